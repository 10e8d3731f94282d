//******************************************************************************************************
//  PublisherConfig.go - Gbtc
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

// Package config defines the tunable settings a DataPublisher is constructed with, mirroring
// the way connection-level settings are grouped for an STTP subscriber.
package config

import (
	"github.com/araddon/dateparse"
	"github.com/sttp/gopublisher/sttp/ticks"
)

// PublisherSettings defines the publisher-wide behavior of a DataPublisher.
type PublisherSettings struct {
	// Port is the TCP port the publisher listens on.
	Port uint16

	// SupportsTemporalSubscriptions determines whether a connection may request historical
	// replay. When false, RequestTemporalSubscription is rejected for every connection.
	SupportsTemporalSubscriptions bool

	// IncludeTime determines if time should be included in compact, non-compressed measurements.
	IncludeTime bool

	// UseMillisecondResolution determines if time should be restricted to millisecond
	// resolution in compact, non-compressed measurements.
	UseMillisecondResolution bool

	// UseCompactMeasurementFormat determines if the compact measurement wire format is used.
	// This is the only wire format currently implemented, so this defaults to true.
	UseCompactMeasurementFormat bool

	// CompressPayloadData determines whether published payload frames are gzip compressed.
	CompressPayloadData bool

	// CompressSignalIndexCache determines whether a signal index cache transmitted to a
	// connection is gzip compressed.
	CompressSignalIndexCache bool
}

// publisherSettingsDefaults define the default values for PublisherSettings.
var publisherSettingsDefaults = PublisherSettings{
	IncludeTime:                 true,
	UseMillisecondResolution:    false,
	UseCompactMeasurementFormat: true,
	CompressPayloadData:         false,
	CompressSignalIndexCache:    false,
}

// NewPublisherSettings creates a new PublisherSettings instance initialized with default values.
func NewPublisherSettings() *PublisherSettings {
	settings := publisherSettingsDefaults
	return &settings
}

// TemporalConstraint defines the start/stop window and parameters of a requested historical
// subscription, as parsed from the free-form time strings a connection supplies.
type TemporalConstraint struct {
	// StartTime is the beginning of the requested historical playback window.
	StartTime ticks.Ticks

	// StopTime is the end of the requested historical playback window.
	StopTime ticks.Ticks

	// ConstraintParameters carries any custom parameters a connection supplied alongside its
	// start/stop strings, e.g. to filter or scope the historical source.
	ConstraintParameters string

	// ProcessingInterval is the initial replay cadence, in milliseconds, a connection
	// requested. -1 selects the engine default, 0 requests as-fast-as-possible replay.
	ProcessingInterval int32
}

// ParseTemporalConstraint parses the loosely formatted start/stop time strings a connection
// supplies when requesting a historical subscription. Arbitrary common date/time layouts are
// accepted since STTP connections are not required to agree on a single wire format for these.
func ParseTemporalConstraint(startTime, stopTime, constraintParameters string, processingInterval int32) (TemporalConstraint, error) {
	start, err := dateparse.ParseAny(startTime)

	if err != nil {
		return TemporalConstraint{}, err
	}

	stop, err := dateparse.ParseAny(stopTime)

	if err != nil {
		return TemporalConstraint{}, err
	}

	return TemporalConstraint{
		StartTime:            ticks.FromTime(start),
		StopTime:             ticks.FromTime(stop),
		ConstraintParameters: constraintParameters,
		ProcessingInterval:   processingInterval,
	}, nil
}
