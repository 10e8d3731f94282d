//******************************************************************************************************
//  CompactMeasurement.go - Gbtc
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
	"encoding/binary"
	"math"

	"github.com/sttp/gopublisher/sttp/stateflags"
	"github.com/sttp/gopublisher/sttp/ticks"
)

// Compact flag byte bits, LSB to MSB.
const (
	compactDataRangeBit      byte = 0x01
	compactDataQualityBit    byte = 0x02
	compactTimeQualityBit    byte = 0x04
	compactSystemIssueBit    byte = 0x08
	compactCalculatedBit     byte = 0x10
	compactDiscardedBit      byte = 0x20
	compactBaseTimeOffsetBit byte = 0x40
	compactTimeIndexBit      byte = 0x80
)

// Bit masks applied to the full 32-bit state flags to derive the six compact quality bits.
// The mapping is intentionally lossy: many full-flag bits collapse onto a single compact
// bit, and decoding back widens a single bit into the whole mask. Round-tripping
// flags through the compact format is not bijective by design.
const (
	DataRangeMask   stateflags.StateFlags = 0x000000FC
	DataQualityMask stateflags.StateFlags = 0x0000EF03
	TimeQualityMask stateflags.StateFlags = 0x00BF0000
	SystemIssueMask stateflags.StateFlags = 0xE0000000
	CalculatedMask  stateflags.StateFlags = 0x00001000
	DiscardedMask   stateflags.StateFlags = 0x00400000
)

// twoToSixteen is 2^16, the boundary at which delta encodings fall back to a full 8-byte
// timestamp.
const twoToSixteen = 1 << 16

// CompactMeasurement serializes and parses measurements in STTP's compact wire format. A
// single instance is bound to one subscriber connection's signal index cache and
// base-time-offset configuration, matching the per-connection encoding state the format
// depends on.
type CompactMeasurement struct {
	// Cache resolves between runtime signal indices and signal IDs for this connection.
	Cache *SignalIndexCache

	// BaseTimeOffsets holds the two generations of reference tick values used for delta
	// time encoding; BaseTimeOffsets[TimeIndex] is the currently active offset.
	BaseTimeOffsets [2]ticks.Ticks

	// TimeIndex selects which of BaseTimeOffsets is currently active (0 or 1).
	TimeIndex int

	// IncludeTime determines whether any time bytes are emitted or expected at all.
	IncludeTime bool

	// UseMillisecondResolution selects 2-byte millisecond delta encoding over 4-byte tick
	// delta encoding when a base-time-offset applies.
	UseMillisecondResolution bool
}

// NewCompactMeasurement creates a CompactMeasurement codec bound to the given signal
// index cache, with time inclusion enabled and tick-resolution deltas, matching the
// documented configuration defaults.
func NewCompactMeasurement(cache *SignalIndexCache) *CompactMeasurement {
	return &CompactMeasurement{Cache: cache, IncludeTime: true}
}

func compactFlagsFromState(flags stateflags.StateFlags) byte {
	var compact byte

	if flags&DataRangeMask != 0 {
		compact |= compactDataRangeBit
	}

	if flags&DataQualityMask != 0 {
		compact |= compactDataQualityBit
	}

	if flags&TimeQualityMask != 0 {
		compact |= compactTimeQualityBit
	}

	if flags&SystemIssueMask != 0 {
		compact |= compactSystemIssueBit
	}

	if flags&CalculatedMask != 0 {
		compact |= compactCalculatedBit
	}

	if flags&DiscardedMask != 0 {
		compact |= compactDiscardedBit
	}

	return compact
}

func stateFromCompactFlags(compact byte) stateflags.StateFlags {
	var flags stateflags.StateFlags

	if compact&compactDataRangeBit != 0 {
		flags |= DataRangeMask
	}

	if compact&compactDataQualityBit != 0 {
		flags |= DataQualityMask
	}

	if compact&compactTimeQualityBit != 0 {
		flags |= TimeQualityMask
	}

	if compact&compactSystemIssueBit != 0 {
		flags |= SystemIssueMask
	}

	if compact&compactCalculatedBit != 0 {
		flags |= CalculatedMask
	}

	if compact&compactDiscardedBit != 0 {
		flags |= DiscardedMask
	}

	return flags
}

// timeEncoding describes how many time bytes a serialization will use and what flag bits
// accompany them. Serialize records the choice in the flag byte's base-time-offset and
// time-index bits; TryParse derives the same byte count back from those bits and the
// codec's IncludeTime and UseMillisecondResolution settings.
type timeEncoding struct {
	byteCount        int
	baseTimeOffsetSet bool
}

func (c *CompactMeasurement) chooseTimeEncoding(timestamp ticks.Ticks) timeEncoding {
	if !c.IncludeTime {
		return timeEncoding{byteCount: 0}
	}

	offset := c.BaseTimeOffsets[c.TimeIndex]

	if offset != 0 {
		delta := timestamp - offset

		if delta > 0 {
			if c.UseMillisecondResolution && int64(delta/ticks.PerMillisecond) < twoToSixteen {
				return timeEncoding{byteCount: 2, baseTimeOffsetSet: true}
			}

			if !c.UseMillisecondResolution && int64(delta) < twoToSixteen {
				return timeEncoding{byteCount: 4, baseTimeOffsetSet: true}
			}
		}
	}

	return timeEncoding{byteCount: 8}
}

// Serialize encodes a measurement into the compact wire format. The measurement's signal
// ID must already be assigned a runtime index in Cache; if it is not, Serialize returns
// BadIndex.
func (c *CompactMeasurement) Serialize(m *Measurement) ([]byte, error) {
	index := c.Cache.GetSignalIndex(m.SignalID)

	if index == UnknownIndex {
		return nil, BadIndex
	}

	encoding := c.chooseTimeEncoding(m.Timestamp)

	flagByte := compactFlagsFromState(m.Flags)

	if encoding.baseTimeOffsetSet {
		flagByte |= compactBaseTimeOffsetBit

		if c.TimeIndex != 0 {
			flagByte |= compactTimeIndexBit
		}
	}

	buffer := make([]byte, 7+encoding.byteCount)
	buffer[0] = flagByte
	binary.BigEndian.PutUint16(buffer[1:3], index)
	binary.BigEndian.PutUint32(buffer[3:7], math.Float32bits(float32(m.AdjustedValue())))

	switch encoding.byteCount {
	case 2:
		delta := m.Timestamp - c.BaseTimeOffsets[c.TimeIndex]
		binary.BigEndian.PutUint16(buffer[7:9], uint16(delta/ticks.PerMillisecond))
	case 4:
		delta := m.Timestamp - c.BaseTimeOffsets[c.TimeIndex]
		binary.BigEndian.PutUint32(buffer[7:11], uint32(delta))
	case 8:
		binary.BigEndian.PutUint64(buffer[7:15], uint64(m.Timestamp))
	}

	return buffer, nil
}

// TryParse attempts to decode one compact measurement from buffer starting at *offset.
// frameTimestamp supplies the timestamp to use when IncludeTime is false, matching the
// shared frame-level timestamp measurements without individual time bytes rely on.
//
// On NeedMoreData or BadIndex, *offset is left unchanged. On success, *offset is advanced
// past the consumed bytes and the decoded measurement is returned.
func (c *CompactMeasurement) TryParse(buffer []byte, offset *int, frameTimestamp ticks.Ticks) (Measurement, error) {
	start := *offset
	remaining := len(buffer) - start

	if remaining < 7 {
		return Measurement{}, NeedMoreData
	}

	flagByte := buffer[start]
	baseTimeOffsetSet := flagByte&compactBaseTimeOffsetBit != 0
	timeIndex := 0

	if flagByte&compactTimeIndexBit != 0 {
		timeIndex = 1
	}

	var timeByteCount int

	if c.IncludeTime {
		if baseTimeOffsetSet {
			if c.UseMillisecondResolution {
				timeByteCount = 2
			} else {
				timeByteCount = 4
			}
		} else {
			timeByteCount = 8
		}
	}

	required := 7 + timeByteCount

	if remaining < required {
		return Measurement{}, NeedMoreData
	}

	if baseTimeOffsetSet && c.BaseTimeOffsets[timeIndex] == 0 {
		return Measurement{}, NeedMoreData
	}

	index := binary.BigEndian.Uint16(buffer[start+1 : start+3])

	signalID, source, numericID, err := c.Cache.GetMeasurementKey(index)

	if err != nil {
		return Measurement{}, err
	}

	value := float64(math.Float32frombits(binary.BigEndian.Uint32(buffer[start+3 : start+7])))

	var timestamp ticks.Ticks

	switch timeByteCount {
	case 0:
		timestamp = frameTimestamp
	case 2:
		ms := binary.BigEndian.Uint16(buffer[start+7 : start+9])
		timestamp = c.BaseTimeOffsets[timeIndex] + ticks.Ticks(ms)*ticks.PerMillisecond
	case 4:
		delta := binary.BigEndian.Uint32(buffer[start+7 : start+11])
		timestamp = c.BaseTimeOffsets[timeIndex] + ticks.Ticks(delta)
	case 8:
		timestamp = ticks.Ticks(binary.BigEndian.Uint64(buffer[start+7 : start+15]))
	}

	*offset = start + required

	return Measurement{
		SignalID:   signalID,
		Source:     source,
		ID:         numericID,
		Value:      value,
		Timestamp:  timestamp,
		Flags:      stateFromCompactFlags(flagByte),
		Multiplier: 1.0,
	}, nil
}
