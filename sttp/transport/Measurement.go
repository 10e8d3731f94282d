//******************************************************************************************************
//  Measurement.go - Gbtc
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
	"fmt"

	"github.com/sttp/gopublisher/sttp/guid"
	"github.com/sttp/gopublisher/sttp/stateflags"
	"github.com/sttp/gopublisher/sttp/ticks"
)

// Measurement is the fundamental unit of streamed data: a single timestamped
// floating-point sample identified by a signal ID. A Measurement is immutable once it has
// been handed off to a publisher.
type Measurement struct {
	// SignalID is the 128-bit identifier of the measurement's source, globally unique.
	SignalID guid.Guid

	// Source is a short display string for the measurement's originating device, optional.
	Source string

	// ID is an unsigned 32-bit runtime numeric key, optional, for display purposes.
	ID uint32

	// Value is the raw 64-bit floating-point measurement value.
	Value float64

	// Timestamp is the exact time, in ticks, that this measurement was taken.
	Timestamp ticks.Ticks

	// Flags is the full 32-bit quality state bitfield associated with this measurement.
	Flags stateflags.StateFlags

	// Adder is added to the value after the multiplier has been applied, producing the
	// adjusted value that ships on the wire.
	Adder float64

	// Multiplier is applied to the raw value before the adder, producing the adjusted
	// value that ships on the wire.
	Multiplier float64
}

// NewMeasurement creates a new Measurement with a unity multiplier and zero adder, the
// typical starting point before any linear adjustment is configured.
func NewMeasurement() Measurement {
	return Measurement{Multiplier: 1.0}
}

// AdjustedValue returns the measurement's value with its multiplier and adder applied:
// value*multiplier + adder. This is the value serialized onto the wire by the compact
// measurement codec.
func (m *Measurement) AdjustedValue() float64 {
	return m.Value*m.Multiplier + m.Adder
}

// String returns a display string for the measurement, primarily useful for logging.
func (m *Measurement) String() string {
	return fmt.Sprintf("%s @ %s = %.6f (%s)", m.SignalID, m.Timestamp, m.AdjustedValue(), m.Flags)
}
