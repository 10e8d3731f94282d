package transport

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/sttp/gopublisher/sttp/guid"
	"github.com/sttp/gopublisher/sttp/stateflags"
	"github.com/sttp/gopublisher/sttp/ticks"
)

func hexBytes(t *testing.T, spaced string) []byte {
	t.Helper()

	decoded, err := hex.DecodeString(strings.ReplaceAll(spaced, " ", ""))

	if err != nil {
		t.Fatalf("hexBytes: failed to decode %q: %v", spaced, err)
	}

	return decoded
}

func TestScenario1RoundTripNoBaseOffset(t *testing.T) {
	signalID := guid.MustParse("6586f230-8e7f-4f0f-9e18-1eefee4b9edd")

	cache := NewSignalIndexCache()
	cache.Assign(7, signalID, "", 0)

	codec := NewCompactMeasurement(cache)

	m := Measurement{
		SignalID:   signalID,
		Value:      60.0625,
		Multiplier: 1.0,
		Timestamp:  ticks.Ticks(637_000_000_000_000_000),
	}

	encoded, err := codec.Serialize(&m)

	if err != nil {
		t.Fatalf("TestScenario1RoundTripNoBaseOffset: Serialize failed: %v", err)
	}

	expected := hexBytes(t, "00 00 07 42 70 40 00 08 D7 14 20 01 EC 80 00")

	if !bytes.Equal(encoded, expected) {
		t.Fatalf("TestScenario1RoundTripNoBaseOffset: got % X, want % X", encoded, expected)
	}

	offset := 0
	decoded, err := codec.TryParse(encoded, &offset, 0)

	if err != nil {
		t.Fatalf("TestScenario1RoundTripNoBaseOffset: TryParse failed: %v", err)
	}

	if offset != 15 {
		t.Fatalf("TestScenario1RoundTripNoBaseOffset: expected offset 15, got %d", offset)
	}

	if decoded.SignalID != signalID || decoded.Timestamp != m.Timestamp || decoded.AdjustedValue() != m.Value {
		t.Fatalf("TestScenario1RoundTripNoBaseOffset: decoded measurement does not match original: %+v", decoded)
	}
}

func TestScenario2BaseOffsetMillisecondEncoding(t *testing.T) {
	signalID := guid.New()

	cache := NewSignalIndexCache()
	cache.Assign(1, signalID, "", 0)

	codec := NewCompactMeasurement(cache)
	codec.UseMillisecondResolution = true
	codec.BaseTimeOffsets[0] = ticks.Ticks(1_000_000_000_00)
	codec.TimeIndex = 0

	m := Measurement{
		SignalID:   signalID,
		Multiplier: 1.0,
		Timestamp:  codec.BaseTimeOffsets[0] + 50*ticks.PerMillisecond,
	}

	encoded, err := codec.Serialize(&m)

	if err != nil {
		t.Fatalf("TestScenario2BaseOffsetMillisecondEncoding: Serialize failed: %v", err)
	}

	if len(encoded) != 9 {
		t.Fatalf("TestScenario2BaseOffsetMillisecondEncoding: expected 9-byte frame, got %d", len(encoded))
	}

	timeBytes := encoded[7:9]
	expectedTimeBytes := hexBytes(t, "00 32")

	if !bytes.Equal(timeBytes, expectedTimeBytes) {
		t.Fatalf("TestScenario2BaseOffsetMillisecondEncoding: expected time bytes % X, got % X", expectedTimeBytes, timeBytes)
	}

	flagByte := encoded[0]

	if flagByte&compactBaseTimeOffsetBit == 0 {
		t.Fatalf("TestScenario2BaseOffsetMillisecondEncoding: expected base-time-offset-in-use bit set")
	}

	if flagByte&compactTimeIndexBit != 0 {
		t.Fatalf("TestScenario2BaseOffsetMillisecondEncoding: expected time-index bit clear for generation 0")
	}
}

func TestScenario5UnknownIndex(t *testing.T) {
	cache := NewSignalIndexCache()
	codec := NewCompactMeasurement(cache)

	buffer := make([]byte, 15)
	buffer[1] = 0x00
	buffer[2] = 0x63 // index 99, unassigned

	offset := 0
	_, err := codec.TryParse(buffer, &offset, 0)

	if err != BadIndex {
		t.Fatalf("TestScenario5UnknownIndex: expected BadIndex, got %v", err)
	}

	if offset != 0 {
		t.Fatalf("TestScenario5UnknownIndex: expected offset to remain unchanged, got %d", offset)
	}

	// The caller is responsible for skipping the dropped record; TryParse leaves offset
	// where it was, so the skip is applied by hand.
	offset += 7

	if offset != 7 {
		t.Fatalf("TestScenario5UnknownIndex: expected manual skip to advance to offset 7, got %d", offset)
	}
}

func TestBoundaryDeltaJustUnderTwoToSixteenMilliseconds(t *testing.T) {
	signalID := guid.New()
	cache := NewSignalIndexCache()
	cache.Assign(1, signalID, "", 0)

	codec := NewCompactMeasurement(cache)
	codec.UseMillisecondResolution = true
	codec.BaseTimeOffsets[0] = ticks.PerSecond

	m := Measurement{
		SignalID:   signalID,
		Multiplier: 1.0,
		Timestamp:  codec.BaseTimeOffsets[0] + (twoToSixteen-1)*ticks.PerMillisecond,
	}

	encoded, err := codec.Serialize(&m)

	if err != nil {
		t.Fatalf("TestBoundaryDeltaJustUnderTwoToSixteenMilliseconds: Serialize failed: %v", err)
	}

	if len(encoded) != 9 {
		t.Fatalf("TestBoundaryDeltaJustUnderTwoToSixteenMilliseconds: expected 2-byte time encoding (9-byte frame), got %d bytes", len(encoded))
	}
}

func TestBoundaryDeltaAtTwoToSixteenFallsBackToFullTimestamp(t *testing.T) {
	signalID := guid.New()
	cache := NewSignalIndexCache()
	cache.Assign(1, signalID, "", 0)

	codec := NewCompactMeasurement(cache)
	codec.UseMillisecondResolution = true
	codec.BaseTimeOffsets[0] = ticks.PerSecond

	m := Measurement{
		SignalID:   signalID,
		Multiplier: 1.0,
		Timestamp:  codec.BaseTimeOffsets[0] + twoToSixteen*ticks.PerMillisecond,
	}

	encoded, err := codec.Serialize(&m)

	if err != nil {
		t.Fatalf("TestBoundaryDeltaAtTwoToSixteenFallsBackToFullTimestamp: Serialize failed: %v", err)
	}

	if len(encoded) != 15 {
		t.Fatalf("TestBoundaryDeltaAtTwoToSixteenFallsBackToFullTimestamp: expected full 8-byte time encoding (15-byte frame), got %d bytes", len(encoded))
	}
}

func TestBoundaryNegativeDeltaFallsBackToFullTimestamp(t *testing.T) {
	signalID := guid.New()
	cache := NewSignalIndexCache()
	cache.Assign(1, signalID, "", 0)

	codec := NewCompactMeasurement(cache)
	codec.BaseTimeOffsets[0] = ticks.PerSecond * 10

	m := Measurement{
		SignalID:   signalID,
		Multiplier: 1.0,
		Timestamp:  ticks.PerSecond, // before the base offset
	}

	encoded, err := codec.Serialize(&m)

	if err != nil {
		t.Fatalf("TestBoundaryNegativeDeltaFallsBackToFullTimestamp: Serialize failed: %v", err)
	}

	if len(encoded) != 15 {
		t.Fatalf("TestBoundaryNegativeDeltaFallsBackToFullTimestamp: expected full timestamp fallback, got %d bytes", len(encoded))
	}
}

func TestBoundaryNeedMoreDataShortBuffer(t *testing.T) {
	signalID := guid.New()
	cache := NewSignalIndexCache()
	cache.Assign(1, signalID, "", 0)

	codec := NewCompactMeasurement(cache)

	m := Measurement{SignalID: signalID, Multiplier: 1.0, Timestamp: ticks.Now()}
	encoded, err := codec.Serialize(&m)

	if err != nil {
		t.Fatalf("TestBoundaryNeedMoreDataShortBuffer: Serialize failed: %v", err)
	}

	short := encoded[:6]
	offset := 0
	_, err = codec.TryParse(short, &offset, 0)

	if err != NeedMoreData {
		t.Fatalf("TestBoundaryNeedMoreDataShortBuffer: expected NeedMoreData, got %v", err)
	}

	if offset != 0 {
		t.Fatalf("TestBoundaryNeedMoreDataShortBuffer: expected offset to remain unchanged, got %d", offset)
	}
}

func TestFlagMappingIsLossyButSetIfBit(t *testing.T) {
	signalID := guid.New()
	cache := NewSignalIndexCache()
	cache.Assign(1, signalID, "", 0)

	codec := NewCompactMeasurement(cache)

	m := Measurement{
		SignalID:   signalID,
		Multiplier: 1.0,
		Timestamp:  ticks.Now(),
		Flags:      stateflags.BadData, // falls within DataQualityMask
	}

	encoded, err := codec.Serialize(&m)

	if err != nil {
		t.Fatalf("TestFlagMappingIsLossyButSetIfBit: Serialize failed: %v", err)
	}

	offset := 0
	decoded, err := codec.TryParse(encoded, &offset, 0)

	if err != nil {
		t.Fatalf("TestFlagMappingIsLossyButSetIfBit: TryParse failed: %v", err)
	}

	if decoded.Flags&DataQualityMask == 0 {
		t.Fatalf("TestFlagMappingIsLossyButSetIfBit: expected widened DataQualityMask bits to be set")
	}

	if decoded.Flags != DataQualityMask {
		t.Fatalf("TestFlagMappingIsLossyButSetIfBit: expected full mask to be set exactly, got %#x", uint32(decoded.Flags))
	}
}
