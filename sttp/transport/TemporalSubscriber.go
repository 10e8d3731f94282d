//******************************************************************************************************
//  TemporalSubscriber.go - Gbtc
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
	"time"

	"github.com/sttp/gopublisher/sttp/guid"
	"github.com/sttp/gopublisher/sttp/metrics"
	"github.com/sttp/gopublisher/sttp/ticks"
)

// HistoryInterval is the wall-clock tick advancement applied by one tick() of the replay
// engine, independent of the processing interval used to pace the timer that drives it.
const HistoryInterval = 33 * ticks.PerMillisecond

// defaultProcessingIntervalMS is the timer period used when a connection has not
// requested a specific processing interval.
const defaultProcessingIntervalMS = 33

// asFastAsPossibleIntervalMS is the timer period used when a connection requests
// as-fast-as-possible replay via SetProcessingInterval(0).
const asFastAsPossibleIntervalMS = 1

// RemovalCallback is invoked once a TemporalSubscriber has completed, on a detached
// goroutine, so that it may safely destroy the engine without deadlocking the timer that
// drove it.
type RemovalCallback func(instanceID guid.Guid)

// TemporalSubscriber drives historical replay for one temporal connection: it reads rows
// from a shared, read-only HistoryTable and republishes them, re-stamped with a
// synthetic, steadily advancing timestamp, at a configurable cadence.
type TemporalSubscriber struct {
	mutex sync.Mutex

	connection *SubscriberConnection
	table      *HistoryTable
	onRemoved  RemovalCallback

	currentTimestamp ticks.Ticks
	stopTimestamp    ticks.Ticks
	currentRow       int
	lastRow          int
	stopped          bool

	processingIntervalMS int
	timer                *time.Timer
	timerDone            chan struct{}
}

// NewTemporalSubscriber constructs a TemporalSubscriber for connection, replaying table
// starting at startTime and running through stopTime. Construction fails with
// NoHistoryAvailable if table has no rows.
func NewTemporalSubscriber(connection *SubscriberConnection, table *HistoryTable, startTime, stopTime ticks.Ticks, onRemoved RemovalCallback) (*TemporalSubscriber, error) {
	if table == nil || table.RowCount() == 0 {
		return nil, NoHistoryAvailable
	}

	ts := &TemporalSubscriber{
		connection:           connection,
		table:                table,
		onRemoved:            onRemoved,
		currentTimestamp:     startTime,
		stopTimestamp:        stopTime,
		lastRow:              table.RowCount() - 1,
		processingIntervalMS: defaultProcessingIntervalMS,
		timerDone:            make(chan struct{}),
	}

	return ts, nil
}

// Start begins the periodic replay timer.
func (ts *TemporalSubscriber) Start() {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	ts.scheduleNextLocked()
}

func (ts *TemporalSubscriber) scheduleNextLocked() {
	if ts.stopped {
		return
	}

	period := time.Duration(ts.processingIntervalMS) * time.Millisecond
	ts.timer = time.AfterFunc(period, ts.tick)
}

// SetProcessingInterval changes the replay cadence. -1 selects the engine's default
// cadence (33 ms); 0 requests as-fast-as-possible replay (1 ms); any other value is the
// timer period in milliseconds. The wall-clock advancement applied per tick remains
// HistoryInterval regardless of cadence: processing interval only changes how often a
// group is emitted, not the historical time-base density of each group.
func (ts *TemporalSubscriber) SetProcessingInterval(ms int) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	switch {
	case ms == -1:
		ts.processingIntervalMS = defaultProcessingIntervalMS
	case ms == 0:
		ts.processingIntervalMS = asFastAsPossibleIntervalMS
	default:
		ts.processingIntervalMS = ms
	}
}

// tick runs one replay step: it collects every row sharing the current group's
// timestamp, re-stamps them with currentTimestamp, publishes them to the connection, then
// advances currentTimestamp by HistoryInterval. If that advancement crosses
// stopTimestamp, the subscription completes; any in-flight tick runs to completion before
// stop takes effect.
func (ts *TemporalSubscriber) tick() {
	ts.mutex.Lock()

	if ts.stopped {
		ts.mutex.Unlock()
		return
	}

	groupTimestamp := ts.table.Row(ts.currentRow).Timestamp
	var group []Measurement

	for ts.table.Row(ts.currentRow).Timestamp == groupTimestamp {
		row := ts.table.Row(ts.currentRow)

		group = append(group, Measurement{
			SignalID:   row.SignalID,
			Value:      row.Value,
			Multiplier: 1.0,
			Timestamp:  ts.currentTimestamp,
		})

		ts.currentRow++

		if ts.currentRow > ts.lastRow {
			ts.currentRow = 0
		}

		if ts.currentRow == 0 {
			break
		}
	}

	ts.currentTimestamp += HistoryInterval
	complete := ts.currentTimestamp > ts.stopTimestamp

	ts.mutex.Unlock()

	metrics.TemporalFrameEmitted()

	if err := ts.connection.PublishMeasurements(group); err != nil {
		// the temporal engine has no error-callback path, so a publish error is dropped
		// here; the engine keeps advancing so one bad write does not stall replay.
		_ = err
	}

	if complete {
		ts.Complete()
		return
	}

	ts.mutex.Lock()
	ts.scheduleNextLocked()
	ts.mutex.Unlock()
}

// Complete transitions the engine to stopped, halts its timer, notifies the connection,
// and invokes the removal callback on a detached goroutine so that callback may safely
// destroy the engine.
func (ts *TemporalSubscriber) Complete() {
	ts.mutex.Lock()

	if ts.stopped {
		ts.mutex.Unlock()
		return
	}

	ts.stopped = true

	if ts.timer != nil {
		ts.timer.Stop()
	}

	ts.mutex.Unlock()

	_ = ts.connection.CompleteTemporalSubscription()

	if ts.onRemoved != nil {
		instanceID := ts.connection.InstanceID()
		go ts.onRemoved(instanceID)
	}
}

// Stopped reports whether the engine has completed.
func (ts *TemporalSubscriber) Stopped() bool {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	return ts.stopped
}
