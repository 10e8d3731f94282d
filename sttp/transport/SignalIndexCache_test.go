package transport

import (
	"testing"

	"github.com/sttp/gopublisher/sttp/guid"
)

func TestSignalIndexCacheContainsMatchesGetMeasurementKey(t *testing.T) {
	cache := NewSignalIndexCache()
	g1 := guid.New()
	g2 := guid.New()

	cache.Assign(1, g1, "SRC1", 100)
	cache.Assign(2, g2, "SRC2", 200)

	for _, index := range []uint16{1, 2, 3, UnknownIndex} {
		_, _, _, err := cache.GetMeasurementKey(index)
		succeeded := err == nil

		if cache.Contains(index) != succeeded {
			t.Fatalf("TestSignalIndexCacheContainsMatchesGetMeasurementKey: Contains(%d)=%v but success=%v", index, cache.Contains(index), succeeded)
		}
	}

	if cache.GetSignalIndex(g1) != 1 {
		t.Fatalf("TestSignalIndexCacheContainsMatchesGetMeasurementKey: expected index 1 for g1")
	}

	signalID, source, numericID, err := cache.GetMeasurementKey(1)

	if err != nil || signalID != g1 || source != "SRC1" || numericID != 100 {
		t.Fatalf("TestSignalIndexCacheContainsMatchesGetMeasurementKey: unexpected record for index 1: %v %s %d %v", signalID, source, numericID, err)
	}
}

func TestSignalIndexCacheGetSignalIndexRoundTrip(t *testing.T) {
	cache := NewSignalIndexCache()

	for i := uint16(0); i < 10; i++ {
		g := guid.New()
		cache.Assign(i, g, "", uint32(i))

		if cache.GetSignalIndex(g) != i {
			t.Fatalf("TestSignalIndexCacheGetSignalIndexRoundTrip: GetSignalIndex did not round trip for index %d", i)
		}
	}
}

func TestSignalIndexCacheUnknownSentinel(t *testing.T) {
	cache := NewSignalIndexCache()

	if cache.GetSignalIndex(guid.New()) != UnknownIndex {
		t.Fatalf("TestSignalIndexCacheUnknownSentinel: expected UnknownIndex for unassigned signal id")
	}
}

func TestSignalIndexCacheReassignReplacesReverseEntry(t *testing.T) {
	cache := NewSignalIndexCache()
	g1 := guid.New()
	g2 := guid.New()

	cache.Assign(5, g1, "", 0)
	cache.Assign(5, g2, "", 0)

	if cache.GetSignalIndex(g1) != UnknownIndex {
		t.Fatalf("TestSignalIndexCacheReassignReplacesReverseEntry: stale reverse mapping for g1 should be gone")
	}

	if cache.GetSignalIndex(g2) != 5 {
		t.Fatalf("TestSignalIndexCacheReassignReplacesReverseEntry: expected g2 to now own index 5")
	}

	if cache.Size() != 1 {
		t.Fatalf("TestSignalIndexCacheReassignReplacesReverseEntry: expected size 1 after reassignment, got %d", cache.Size())
	}
}

func TestSignalIndexCacheClearAndIterate(t *testing.T) {
	cache := NewSignalIndexCache()
	g1 := guid.New()
	g2 := guid.New()

	cache.Assign(1, g1, "", 0)
	cache.Assign(2, g2, "", 0)

	pairs := cache.Iterate()

	if len(pairs) != 2 || pairs[0].Index != 1 || pairs[1].Index != 2 {
		t.Fatalf("TestSignalIndexCacheClearAndIterate: expected insertion-order iteration, got %v", pairs)
	}

	cache.Clear()

	if cache.Size() != 0 {
		t.Fatalf("TestSignalIndexCacheClearAndIterate: expected empty cache after Clear")
	}

	if cache.Contains(1) {
		t.Fatalf("TestSignalIndexCacheClearAndIterate: expected index 1 to be gone after Clear")
	}
}
