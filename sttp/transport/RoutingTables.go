//******************************************************************************************************
//  RoutingTables.go - Gbtc
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

	"github.com/tevino/abool/v2"

	"github.com/sttp/gopublisher/sttp/guid"
	"github.com/sttp/gopublisher/sttp/metrics"
	"github.com/sttp/gopublisher/sttp/queue"
	"github.com/sttp/gopublisher/sttp/thread"
)

// RoutingDestination is the publish-path surface a RoutingTables instance relies on from a
// subscriber connection: enough to decide whether a destination is still eligible for
// real-time fan-out and to hand it a per-destination batch.
type RoutingDestination interface {
	IsSubscribed() bool
	IsTemporalSubscription() bool
	PublishMeasurements(measurements []Measurement) error
}

// routingSnapshot is one immutable generation of the signal-id to destination-set
// mapping. A RoutingTables instance never mutates a snapshot in place; every update
// produces a new snapshot that replaces the active one under a writer lock.
type routingSnapshot map[guid.Guid]map[RoutingDestination]struct{}

func (s routingSnapshot) clone() routingSnapshot {
	clone := make(routingSnapshot, len(s))

	for signalID, destinations := range s {
		destClone := make(map[RoutingDestination]struct{}, len(destinations))

		for dest := range destinations {
			destClone[dest] = struct{}{}
		}

		clone[signalID] = destClone
	}

	return clone
}

// ErrorMessageCallback reports a non-fatal, human-readable error encountered on the
// publish path, e.g., a failed write to a destination.
type ErrorMessageCallback func(message string)

// RoutingTables maps signal IDs to the set of subscriber connections that want them and
// fans out measurement batches accordingly. Updates to the mapping are serialized through
// a dedicated operation thread using copy-on-write semantics so that publish-path lookups
// never block on update operations.
type RoutingTables struct {
	mutex    sync.RWMutex
	snapshot routingSnapshot

	operations *queue.Queue
	opThread   *thread.Thread
	enabled    abool.AtomicBool

	onErrorMessage ErrorMessageCallback
}

// NewRoutingTables creates a RoutingTables instance and starts its operation thread.
func NewRoutingTables(onErrorMessage ErrorMessageCallback) *RoutingTables {
	rt := &RoutingTables{
		snapshot:       make(routingSnapshot),
		operations:     queue.NewQueue(),
		onErrorMessage: onErrorMessage,
	}

	rt.enabled.Set()
	rt.opThread = thread.NewThread(rt.runOperations)
	rt.opThread.Start()

	return rt
}

func (rt *RoutingTables) runOperations() {
	for {
		op, ok := rt.operations.Dequeue()

		if !ok {
			return
		}

		op()
	}
}

// UpdateRoutes enqueues a route update for dest: after it commits, dest is subscribed to
// exactly the signal IDs in routes and no others. Calling UpdateRoutes repeatedly with the
// same (dest, routes) pair is idempotent.
func (rt *RoutingTables) UpdateRoutes(dest RoutingDestination, routes []guid.Guid) {
	routesCopy := make([]guid.Guid, len(routes))
	copy(routesCopy, routes)

	rt.operations.Enqueue(func() {
		rt.mutex.RLock()
		next := rt.snapshot.clone()
		rt.mutex.RUnlock()

		wanted := make(map[guid.Guid]struct{}, len(routesCopy))

		for _, signalID := range routesCopy {
			wanted[signalID] = struct{}{}
		}

		for signalID, destinations := range next {
			if _, wantedHere := wanted[signalID]; !wantedHere {
				delete(destinations, dest)
			}
		}

		for signalID := range wanted {
			destinations, ok := next[signalID]

			if !ok {
				destinations = make(map[RoutingDestination]struct{})
				next[signalID] = destinations
			}

			destinations[dest] = struct{}{}
		}

		rt.mutex.Lock()
		rt.snapshot = next
		rt.mutex.Unlock()

		metrics.RoutingUpdateApplied()
	})
}

// RemoveRoutes enqueues removal of dest from every entry of the routing table. Calling
// RemoveRoutes repeatedly for the same dest is idempotent.
func (rt *RoutingTables) RemoveRoutes(dest RoutingDestination) {
	rt.operations.Enqueue(func() {
		rt.mutex.RLock()
		next := rt.snapshot.clone()
		rt.mutex.RUnlock()

		for _, destinations := range next {
			delete(destinations, dest)
		}

		rt.mutex.Lock()
		rt.snapshot = next
		rt.mutex.Unlock()

		metrics.RoutingUpdateApplied()
	})
}

// PublishMeasurements groups a batch of measurements by destination using a snapshot of
// the routing table captured under a brief shared lock, then hands each per-destination
// group to that destination's PublishMeasurements in the batch's input order. Destinations
// that are not subscribed, or that are in temporal mode, are excluded from real-time
// fan-out. A write failure to one destination is reported via onErrorMessage and does not
// abort delivery to the others.
func (rt *RoutingTables) PublishMeasurements(batch []Measurement) {
	rt.mutex.RLock()
	snapshot := rt.snapshot
	rt.mutex.RUnlock()

	grouped := make(map[RoutingDestination][]Measurement)
	order := make([]RoutingDestination, 0)

	for _, m := range batch {
		destinations, ok := snapshot[m.SignalID]

		if !ok {
			continue
		}

		for dest := range destinations {
			if !dest.IsSubscribed() || dest.IsTemporalSubscription() {
				continue
			}

			if _, seen := grouped[dest]; !seen {
				order = append(order, dest)
			}

			grouped[dest] = append(grouped[dest], m)
		}
	}

	for _, dest := range order {
		if err := dest.PublishMeasurements(grouped[dest]); err != nil {
			metrics.PublishError()

			if rt.onErrorMessage != nil {
				rt.onErrorMessage("routing: publish failed: " + err.Error())
			}
		} else {
			metrics.MeasurementsPublished(len(grouped[dest]))
		}
	}
}

// Disable stops accepting further updates, releases the operation queue so its thread
// exits, and waits for that thread to terminate. Operations already enqueued before
// Disable is called are still drained.
func (rt *RoutingTables) Disable() {
	rt.enabled.UnSet()
	rt.operations.Release()
	rt.opThread.Join()
}

// Enabled reports whether the routing table is still accepting updates.
func (rt *RoutingTables) Enabled() bool {
	return rt.enabled.IsSet()
}
