//******************************************************************************************************
//  Guid_test.go - Gbtc
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
//  10/07/2021 - J. Ritchie Carroll
//       Generated original version of source code.
//
//******************************************************************************************************

package guid

import (
	"bytes"
	"testing"
)

const (
	gs1 string = "6586f230-8e7f-4f0f-9e18-1eefee4b9edd"
	gs2 string = "b4a26a66-a073-44a0-b03b-55d97badef75"
	gsz string = "00000000-0000-0000-0000-000000000000"
)

func TestGuidParsing(t *testing.T) {
	g1 := MustParse(gs1)
	g2 := MustParse(gs2)

	if g1.String() != "{"+gs1+"}" {
		t.Fatalf("TestGuidParsing: string generation does not match for %s, got %s", gs1, g1.String())
	}

	if g2.String() != "{"+gs2+"}" {
		t.Fatalf("TestGuidParsing: string generation does not match for %s, got %s", gs2, g2.String())
	}

	if Empty.String() != "{"+gsz+"}" {
		t.Fatalf("TestGuidParsing: string generation does not match for empty guid, got %s", Empty.String())
	}

	if _, err := Parse("not-a-guid"); err == nil {
		t.Fatalf("TestGuidParsing: expected error parsing malformed guid")
	}
}

func TestNewGuidRandomness(t *testing.T) {
	for i := 0; i < 1000; i++ {
		if New().Equal(New()) {
			t.Fatalf("TestNewGuidRandomness: encountered non-unique Guid after %d generations", i)
		}
	}
}

func TestZeroGuid(t *testing.T) {
	gz := MustParse(gsz)

	if !gz.Equal(Empty) {
		t.Fatalf("TestZeroGuid: parsed zero-value guid not equal to Empty")
	}

	if !gz.IsZero() {
		t.Fatalf("TestZeroGuid: parsed zero-value guid not flagged as zero")
	}

	if New().IsZero() {
		t.Fatalf("TestZeroGuid: randomly generated guid flagged as zero")
	}
}

func TestGuidCompare(t *testing.T) {
	g1 := MustParse(gs1)
	g2 := MustParse(gs2)

	if Compare(g1, g1) != 0 {
		t.Fatalf("TestGuidCompare: self comparison should be zero")
	}

	if Compare(g1, g2) == Compare(g2, g1) {
		t.Fatalf("TestGuidCompare: comparison should be antisymmetric for distinct guids")
	}

	if Compare(Empty, g1) >= 0 {
		t.Fatalf("TestGuidCompare: empty guid should sort before a populated one")
	}
}

func TestGuidToFromBytes(t *testing.T) {
	g1 := MustParse(gs1)

	for _, swap := range []bool{false, true} {
		encoded := g1.ToBytes(swap)

		decoded, err := FromBytes(encoded, swap)

		if err != nil {
			t.Fatalf("TestGuidToFromBytes: FromBytes failed for guid %s (swap=%v): %v", gs1, swap, err)
		}

		if !decoded.Equal(g1) {
			t.Fatalf("TestGuidToFromBytes: round trip mismatch for guid %s (swap=%v)", gs1, swap)
		}
	}

	if _, err := FromBytes([]byte{0, 0}, false); err == nil {
		t.Fatalf("TestGuidToFromBytes: unexpected success, short slice expected to fail guid parse")
	}
}

func TestGuidComponents(t *testing.T) {
	g1 := MustParse(gs1)
	a, b, c, d := g1.Components()

	var rebuilt [16]byte
	rebuilt[0] = byte(a >> 24)
	rebuilt[1] = byte(a >> 16)
	rebuilt[2] = byte(a >> 8)
	rebuilt[3] = byte(a)
	rebuilt[4] = byte(b >> 8)
	rebuilt[5] = byte(b)
	rebuilt[6] = byte(c >> 8)
	rebuilt[7] = byte(c)
	copy(rebuilt[8:], d[:])

	if !bytes.Equal(rebuilt[:], g1[:]) {
		t.Fatalf("TestGuidComponents: components do not reassemble original guid bytes")
	}
}
