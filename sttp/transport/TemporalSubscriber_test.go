package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/sttp/gopublisher/sttp/guid"
	"github.com/sttp/gopublisher/sttp/ticks"
)

func TestScenario4TemporalCompletion(t *testing.T) {
	signalID := guid.New()

	table, err := NewHistoryTable([]HistoryRow{
		{SignalID: signalID, Timestamp: 0, Value: 1},
	})

	if err != nil {
		t.Fatalf("TestScenario4TemporalCompletion: failed to build history table: %v", err)
	}

	var mutex sync.Mutex
	var publishedAt []ticks.Ticks

	connection := NewSubscriberConnection("c1", "127.0.0.1", "", func(_ *SubscriberConnection, data []byte) error {
		return nil
	})
	cache := NewSignalIndexCache()
	cache.Assign(0, signalID, "", 0)
	connection.BeginTemporalSubscription(cache, 0, 99*ticks.PerMillisecond)

	completions := 0

	ts, err := NewTemporalSubscriber(connection, table, 0, 99*ticks.PerMillisecond, func(instanceID guid.Guid) {
		mutex.Lock()
		completions++
		mutex.Unlock()
	})

	if err != nil {
		t.Fatalf("TestScenario4TemporalCompletion: construction failed: %v", err)
	}

	var frames int

	for !ts.Stopped() && frames < 10 {
		mutex.Lock()
		publishedAt = append(publishedAt, ts.currentTimestamp)
		mutex.Unlock()

		ts.tick()
		frames++
	}

	if frames != 4 {
		t.Fatalf("TestScenario4TemporalCompletion: expected exactly 4 frames before completion, got %d", frames)
	}

	expected := []ticks.Ticks{0, 33 * ticks.PerMillisecond, 66 * ticks.PerMillisecond, 99 * ticks.PerMillisecond}

	for i, want := range expected {
		if publishedAt[i] != want {
			t.Fatalf("TestScenario4TemporalCompletion: frame %d expected timestamp %d, got %d", i, want, publishedAt[i])
		}
	}

	if !ts.Stopped() {
		t.Fatalf("TestScenario4TemporalCompletion: expected engine stopped after fourth frame")
	}

	// the removal callback runs on a detached goroutine, so give it a moment to run
	deadline := time.Now().Add(time.Second)

	for {
		mutex.Lock()
		invoked := completions
		mutex.Unlock()

		if invoked > 0 || time.Now().After(deadline) {
			break
		}

		time.Sleep(time.Millisecond)
	}

	mutex.Lock()
	defer mutex.Unlock()

	if completions != 1 {
		t.Fatalf("TestScenario4TemporalCompletion: expected removal callback invoked exactly once, got %d", completions)
	}
}

func TestSingleRowTableWrapsEveryTick(t *testing.T) {
	signalID := guid.New()

	table, err := NewHistoryTable([]HistoryRow{
		{SignalID: signalID, Timestamp: 42, Value: 7},
	})

	if err != nil {
		t.Fatalf("TestSingleRowTableWrapsEveryTick: failed to build history table: %v", err)
	}

	connection := NewSubscriberConnection("c1", "127.0.0.1", "", func(_ *SubscriberConnection, data []byte) error {
		return nil
	})
	cache := NewSignalIndexCache()
	cache.Assign(0, signalID, "", 0)
	connection.BeginTemporalSubscription(cache, 0, ticks.PerHour)

	ts, err := NewTemporalSubscriber(connection, table, 0, ticks.PerHour, nil)

	if err != nil {
		t.Fatalf("TestSingleRowTableWrapsEveryTick: construction failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		ts.tick()

		if ts.currentRow != 0 {
			t.Fatalf("TestSingleRowTableWrapsEveryTick: expected current_row to stay at 0 after tick %d, got %d", i, ts.currentRow)
		}
	}
}

func TestSetProcessingIntervalSemantics(t *testing.T) {
	signalID := guid.New()

	table, err := NewHistoryTable([]HistoryRow{{SignalID: signalID, Timestamp: 0, Value: 1}})

	if err != nil {
		t.Fatalf("TestSetProcessingIntervalSemantics: failed to build history table: %v", err)
	}

	connection := NewSubscriberConnection("c1", "127.0.0.1", "", nil)
	ts, err := NewTemporalSubscriber(connection, table, 0, ticks.PerHour, nil)

	if err != nil {
		t.Fatalf("TestSetProcessingIntervalSemantics: construction failed: %v", err)
	}

	ts.SetProcessingInterval(-1)

	if ts.processingIntervalMS != defaultProcessingIntervalMS {
		t.Fatalf("TestSetProcessingIntervalSemantics: -1 should select default cadence, got %d", ts.processingIntervalMS)
	}

	ts.SetProcessingInterval(0)

	if ts.processingIntervalMS != asFastAsPossibleIntervalMS {
		t.Fatalf("TestSetProcessingIntervalSemantics: 0 should select as-fast-as-possible cadence, got %d", ts.processingIntervalMS)
	}

	ts.SetProcessingInterval(500)

	if ts.processingIntervalMS != 500 {
		t.Fatalf("TestSetProcessingIntervalSemantics: explicit cadence should be honored, got %d", ts.processingIntervalMS)
	}
}
