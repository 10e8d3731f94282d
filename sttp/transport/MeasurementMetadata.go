//******************************************************************************************************
//  MeasurementMetadata.go - Gbtc
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

import (
	"sync"

	"github.com/sttp/gopublisher/sttp/guid"
	"github.com/sttp/gopublisher/sttp/ticks"
)

// ReferenceKind identifies the phasor-related role a measurement plays, when it has one.
type ReferenceKind int

const (
	// Frequency indicates the measurement is a frequency value.
	Frequency ReferenceKind = iota
	// DfDt indicates the measurement is a frequency delta (df/dt) value.
	DfDt
	// Magnitude indicates the measurement is a phasor magnitude value.
	Magnitude
	// Angle indicates the measurement is a phasor angle value.
	Angle
	// Other indicates the measurement has no specific phasor-related role.
	Other
)

// SignalReference associates a measurement with its phasor-related role and, for phasor
// channels, the index of the phasor it belongs to within its device.
type SignalReference struct {
	Kind  ReferenceKind
	Index int
}

// MeasurementMetadata holds the descriptive, read-only attributes of a measurement that
// are defined once by the publisher and never mutated by the streaming path.
type MeasurementMetadata struct {
	SignalID           guid.Guid
	PointTag           string
	DeviceAcronym      string
	Reference          SignalReference
	PhasorSourceIndex  int
	UpdatedOn          ticks.Ticks
}

// MetadataRegistry is the publisher-owned, read-after-define registry of measurement
// metadata. Once DefineMetadata has been called for a signal ID, its record is
// read-only for the lifetime of the registry entry; callers wishing to change an
// attribute call DefineMetadata again to replace the entry wholesale.
type MetadataRegistry struct {
	mutex   sync.RWMutex
	records map[guid.Guid]MeasurementMetadata
}

// NewMetadataRegistry creates an empty MetadataRegistry.
func NewMetadataRegistry() *MetadataRegistry {
	return &MetadataRegistry{records: make(map[guid.Guid]MeasurementMetadata)}
}

// DefineMetadata inserts or wholesale replaces the metadata record for a signal ID.
func (r *MetadataRegistry) DefineMetadata(metadata MeasurementMetadata) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.records[metadata.SignalID] = metadata
}

// Lookup returns the metadata record for a signal ID, if one has been defined.
func (r *MetadataRegistry) Lookup(signalID guid.Guid) (MeasurementMetadata, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	metadata, ok := r.records[signalID]
	return metadata, ok
}

// Size returns the number of metadata records currently defined.
func (r *MetadataRegistry) Size() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.records)
}
