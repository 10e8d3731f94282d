//******************************************************************************************************
//  Guid.go - Gbtc
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
//  09/09/2021 - J. Ritchie Carroll
//       Generated original version of source code.
//
//******************************************************************************************************

// Package guid implements the 128-bit identifiers STTP uses for signal IDs, subscriber
// IDs, and subscription instance IDs.
package guid

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// Guid is a standard UUID value that can handle alternate wire serialization options.
type Guid uuid.UUID

// Empty is a Guid with a zero value.
var Empty Guid = Guid(uuid.Nil)

// New creates a new random Guid value.
func New() Guid {
	return Guid(uuid.New())
}

// Parse decodes a Guid value from a string, accepting the canonical
// "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx" form with or without surrounding braces.
func Parse(value string) (Guid, error) {
	id, err := uuid.Parse(value)

	if err != nil {
		return Empty, err
	}

	return Guid(id), nil
}

// MustParse is like Parse but panics if the value cannot be parsed. Intended for
// literal IDs known to be valid at compile time, e.g., in tests.
func MustParse(value string) Guid {
	id, err := Parse(value)

	if err != nil {
		panic("failed to parse Guid from string \"" + value + "\": " + err.Error())
	}

	return id
}

// String returns the string form of a Guid, i.e., {xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx}.
func (g Guid) String() string {
	return "{" + uuid.UUID(g).String() + "}"
}

// IsZero determines if the Guid is the zero/empty value.
func (g Guid) IsZero() bool {
	return g == Empty
}

// Equal determines if two Guid values represent the same identifier.
func (g Guid) Equal(other Guid) bool {
	return g == other
}

// Equal determines if two Guid values represent the same identifier.
func Equal(a, b Guid) bool {
	return a == b
}

// Compare returns an integer comparing two Guid values lexicographically by byte content.
// The result is zero if a == b, negative if a < b, and positive if a > b.
func (g Guid) Compare(other Guid) int {
	return bytes.Compare(g[:], other[:])
}

// Compare returns an integer comparing two Guid values; see (Guid).Compare.
func Compare(a, b Guid) int {
	return a.Compare(b)
}

// Components decomposes a Guid into its RFC 4122 fields.
func (g Guid) Components() (a uint32, b uint16, c uint16, d [8]byte) {
	a = binary.BigEndian.Uint32(g[0:4])
	b = binary.BigEndian.Uint16(g[4:6])
	c = binary.BigEndian.Uint16(g[6:8])
	copy(d[:], g[8:16])
	return a, b, c, d
}

// FromBytes creates a new Guid from a 16-byte slice. When swapEndianness is true, the
// first three RFC 4122 fields (time-low, time-mid, time-hi-and-version) are interpreted
// as little-endian on the wire and converted to the big-endian RFC form, matching the
// encoding used by .NET's Guid.ToByteArray().
func FromBytes(data []byte, swapEndianness bool) (Guid, error) {
	if len(data) < 16 {
		return Empty, fmt.Errorf("guid: invalid byte slice length %d, expected 16", len(data))
	}

	var encodedBytes []byte

	if swapEndianness {
		swapped := make([]byte, 16)
		copy(swapped, data[:16])

		swapped[0], swapped[1], swapped[2], swapped[3] = data[3], data[2], data[1], data[0]
		swapped[4], swapped[5] = data[5], data[4]
		swapped[6], swapped[7] = data[7], data[6]

		encodedBytes = swapped
	} else {
		encodedBytes = data[:16]
	}

	id, err := uuid.FromBytes(encodedBytes)

	if err != nil {
		return Empty, err
	}

	return Guid(id), nil
}

// ToBytes serializes a Guid to a 16-byte slice, applying the same endianness
// transform as FromBytes when swapEndianness is true.
func (g Guid) ToBytes(swapEndianness bool) []byte {
	out := make([]byte, 16)
	copy(out, g[:])

	if swapEndianness {
		swapGuidEndianness(out)
	}

	return out
}

func swapGuidEndianness(data []byte) {
	data[0], data[1], data[2], data[3] = data[3], data[2], data[1], data[0]
	data[4], data[5] = data[5], data[4]
	data[6], data[7] = data[7], data[6]
}
