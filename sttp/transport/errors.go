//******************************************************************************************************
//  errors.go - Gbtc
//
//  Copyright © 2021, Grid Protection Alliance.  All Rights Reserved.
//
//  Licensed to the Grid Protection Alliance (GPA) under one or more contributor license agreements. See
//  the NOTICE file distributed with this work for additional information regarding copyright ownership.
//  The GPA licenses this file to you under the MIT License (MIT), the "License"; you may not use this
//  file except in compliance with the License. You may obtain a copy of the License at:
//
//      http://opensource.org/licenses/MIT
//
//  Unless agreed to in writing, the subject software distributed under the License is distributed on an
//  "AS-IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. Refer to the
//  License for the specific language governing permissions and limitations.
//
//  Code Modification History:
//  ----------------------------------------------------------------------------------------------------
//  09/13/2021 - J. Ritchie Carroll
//       Generated original version of source code.
//
//******************************************************************************************************

package transport

import "errors"

// NeedMoreData indicates a compact measurement parse was attempted against a buffer that
// does not yet hold a complete record. Callers retry once more bytes are available; this
// error is never surfaced to users of a publisher.
var NeedMoreData = errors.New("transport: buffer does not contain a complete measurement")

// BadIndex indicates a runtime signal index referenced by a compact measurement is not
// present in the signal index cache in effect for the parse or serialize call.
var BadIndex = errors.New("transport: runtime signal index not found in cache")

// UnknownSignalID indicates a producer supplied a signal ID that has no active route; the
// routing table silently drops measurements for such IDs.
var UnknownSignalID = errors.New("transport: signal id has no route")

// NoHistoryAvailable indicates a temporal subscriber could not be constructed because its
// historical table is empty.
var NoHistoryAvailable = errors.New("transport: no historical data available")

// TransportFailure indicates a write to a destination connection failed. Routing treats
// this as transient for the batch in progress; the connection is expected to transition
// to disconnected and be purged via RemoveRoutes.
var TransportFailure = errors.New("transport: write to destination failed")

// PublisherListenFailure indicates a publisher failed to bind its configured listen port.
var PublisherListenFailure = errors.New("transport: publisher failed to bind listen port")
