//******************************************************************************************************
//  SubscriberConnection.go - Gbtc
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

package transport

import (
	"sync"
	"time"

	"github.com/tevino/abool/v2"

	"github.com/sttp/gopublisher/sttp/config"
	"github.com/sttp/gopublisher/sttp/guid"
	"github.com/sttp/gopublisher/sttp/metrics"
	"github.com/sttp/gopublisher/sttp/ticks"
)

// SendFunc delivers one already-serialized frame to the connection's transport. Framing,
// compression, and encryption beyond what the core itself applies are the transport
// layer's responsibility; the core only needs a place to hand finished bytes off to.
type SendFunc func(destination *SubscriberConnection, data []byte) error

// SubscriberConnection represents one subscriber's connection to a DataPublisher: its
// subscription state, signal index cache, base-time-offset pair, and cipher generations.
// A SubscriberConnection is exclusively owned by its DataPublisher and holds no reference
// back to it, so a disconnected connection never keeps its publisher alive.
type SubscriberConnection struct {
	mutex sync.Mutex

	subscriberID guid.Guid
	connectionID string
	ip           string
	host         string

	operationalModes OperationalModesEnum
	encoding         OperationalEncodingEnum

	usePayloadCompression       bool
	useCompactMeasurementFormat bool
	includeTime                 bool
	useMillisecondResolution    bool

	isSubscribed          abool.AtomicBool
	isTemporalSubscription abool.AtomicBool

	cache *SignalIndexCache

	baseTimeOffsets [2]ticks.Ticks
	timeIndex       int

	cipherKeys [2][]byte
	cipherIVs  [2][]byte
	cipherGen  int

	startTimeConstraint ticks.Ticks
	stopTimeConstraint  ticks.Ticks
	processingInterval  int

	instanceID guid.Guid

	send SendFunc
}

// NewSubscriberConnection creates a SubscriberConnection for a freshly accepted command
// channel connection. instanceID is assigned fresh per subscription episode: a
// reconnecting subscriber is given a new one, never a reused value.
func NewSubscriberConnection(connectionID, ip, host string, send SendFunc) *SubscriberConnection {
	sc := &SubscriberConnection{
		connectionID: connectionID,
		ip:           ip,
		host:         host,
		encoding:     OperationalEncoding.UTF8,
		cache:        NewSignalIndexCache(),
		instanceID:   guid.New(),
		send:         send,
	}

	sc.useCompactMeasurementFormat = true
	sc.includeTime = true
	return sc
}

// Configure applies publisher-wide settings to the connection, used once at accept time.
// A nil settings leaves the connection's constructor defaults in place.
func (sc *SubscriberConnection) Configure(settings *config.PublisherSettings) {
	if settings == nil {
		return
	}

	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	sc.useCompactMeasurementFormat = settings.UseCompactMeasurementFormat
	sc.includeTime = settings.IncludeTime
	sc.useMillisecondResolution = settings.UseMillisecondResolution
	sc.usePayloadCompression = settings.CompressPayloadData
}

// IsSubscribed reports whether the connection currently has an active, real-time
// subscription. It participates in the RoutingDestination contract the routing table
// relies on for fan-out eligibility.
func (sc *SubscriberConnection) IsSubscribed() bool {
	return sc.isSubscribed.IsSet()
}

// IsTemporalSubscription reports whether the connection is running a temporal (bounded
// historical replay) subscription rather than a real-time one.
func (sc *SubscriberConnection) IsTemporalSubscription() bool {
	return sc.isTemporalSubscription.IsSet()
}

// SubscriberID returns the 128-bit identifier of the subscriber owning this connection.
func (sc *SubscriberConnection) SubscriberID() guid.Guid {
	return sc.subscriberID
}

// ResolveHost fills in the connection's display host name from its IP address via reverse
// DNS lookup, used for status and error message reporting.
func (sc *SubscriberConnection) ResolveHost() string {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.host == "" {
		sc.host = resolveDNSName(sc.ip)
	}

	return sc.host
}

// InstanceID returns the identifier unique to this connection's current subscription
// episode.
func (sc *SubscriberConnection) InstanceID() guid.Guid {
	return sc.instanceID
}

// SignalIndexCache returns the connection's current signal index cache. The returned
// pointer must be treated as read-only by callers other than the connection itself; cache
// rebuilds replace this field wholesale rather than mutating the existing instance.
func (sc *SubscriberConnection) SignalIndexCache() *SignalIndexCache {
	return sc.cache
}

// Subscribe replaces the connection's signal index cache with a freshly built one and
// marks the connection subscribed. Callers are expected to have already resolved the
// requested signal IDs into cache assignments.
func (sc *SubscriberConnection) Subscribe(cache *SignalIndexCache) {
	sc.mutex.Lock()
	sc.cache = cache
	sc.mutex.Unlock()

	sc.isSubscribed.Set()
	sc.isTemporalSubscription.UnSet()
}

// Unsubscribe marks the connection as no longer subscribed without discarding its cache,
// matching the command-channel state machine's Subscribed -> Unsubscribed transition.
func (sc *SubscriberConnection) Unsubscribe() {
	sc.isSubscribed.UnSet()
}

// BeginTemporalSubscription marks the connection as running a temporal subscription over
// [startTime, stopTime] and excludes it from real-time routing.
func (sc *SubscriberConnection) BeginTemporalSubscription(cache *SignalIndexCache, startTime, stopTime ticks.Ticks) {
	sc.mutex.Lock()
	sc.cache = cache
	sc.startTimeConstraint = startTime
	sc.stopTimeConstraint = stopTime
	sc.mutex.Unlock()

	sc.isTemporalSubscription.Set()
	sc.isSubscribed.Set()
}

// SetProcessingInterval records the subscriber-requested replay cadence for a temporal
// subscription. A value of -1 selects the temporal engine's default cadence, 0 requests
// as-fast-as-possible replay, and any other value is a period in milliseconds.
func (sc *SubscriberConnection) SetProcessingInterval(ms int) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	sc.processingInterval = ms
}

// ProcessingInterval returns the most recently requested replay cadence.
func (sc *SubscriberConnection) ProcessingInterval() int {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	return sc.processingInterval
}

// TimeConstraints returns the temporal subscription's requested start and stop times.
func (sc *SubscriberConnection) TimeConstraints() (start, stop ticks.Ticks) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	return sc.startTimeConstraint, sc.stopTimeConstraint
}

// SetBaseTimeOffset pre-announces a base-time-offset generation. Index 0 or 1 selects
// which of the two generations is updated; TimeIndex continues pointing at whichever
// generation was last made active until a subsequent call to ActivateBaseTimeOffset.
func (sc *SubscriberConnection) SetBaseTimeOffset(index int, offset ticks.Ticks) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	sc.baseTimeOffsets[index] = offset
}

// ActivateBaseTimeOffset flips the connection's active base-time-offset generation,
// matching the compact codec's single time-index bit.
func (sc *SubscriberConnection) ActivateBaseTimeOffset(index int) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	sc.timeIndex = index
}

// RotateCipherKeys generates a fresh cipher key and initialization vector into the
// inactive generation slot and promotes it to active, leaving the prior generation
// available so packets already in flight under the old key remain decryptable.
func (sc *SubscriberConnection) RotateCipherKeys() error {
	key, iv, err := newCipherKeyIV()

	if err != nil {
		return err
	}

	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	next := (sc.cipherGen + 1) % 2
	sc.cipherKeys[next] = key
	sc.cipherIVs[next] = iv
	sc.cipherGen = next

	return nil
}

// newCompactCodec builds a CompactMeasurement codec bound to this connection's current
// cache and base-time-offset state. Called under sc.mutex so the codec observes a
// consistent snapshot of connection state for the duration of one publish call.
func (sc *SubscriberConnection) newCompactCodec(includeTime, useMillisecondResolution bool) *CompactMeasurement {
	codec := NewCompactMeasurement(sc.cache)
	codec.BaseTimeOffsets = sc.baseTimeOffsets
	codec.TimeIndex = sc.timeIndex
	codec.IncludeTime = includeTime
	codec.UseMillisecondResolution = useMillisecondResolution
	return codec
}

// PublishMeasurements serializes a batch of measurements using this connection's cache and
// base-time-offsets, accumulating them into a single frame buffer handed off to the
// transport layer in one call. Safe to call concurrently from the routing publish thread
// and from a temporal engine's timer callback: all serialization and the send itself
// happen while holding the connection's own mutex, so the two never interleave.
func (sc *SubscriberConnection) PublishMeasurements(measurements []Measurement) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isSubscribed.IsSet() {
		return nil
	}

	started := time.Now()
	defer func() {
		metrics.ObservePublishFrameDurationMicro(float64(time.Since(started).Microseconds()))
	}()

	codec := sc.newCompactCodec(sc.includeTime, sc.useMillisecondResolution)

	var frame []byte

	for i := range measurements {
		encoded, err := codec.Serialize(&measurements[i])

		if err == BadIndex {
			continue
		}

		if err != nil {
			return err
		}

		frame = append(frame, encoded...)
	}

	if sc.usePayloadCompression {
		compressed, err := compressGZip(frame)

		if err != nil {
			return err
		}

		frame = compressed
	}

	if sc.send == nil {
		return nil
	}

	if err := sc.send(sc, frame); err != nil {
		return TransportFailure
	}

	return nil
}

// CompleteTemporalSubscription transitions a temporal connection to end-of-stream: it
// unsubscribes the connection and hands its SendFunc a nil frame as the terminator. The
// connection holds no reference to a TemporalSubscriber, so an engine driving it keeps
// ticking until its own Complete runs; what it publishes meanwhile is dropped because the
// connection is no longer subscribed.
func (sc *SubscriberConnection) CompleteTemporalSubscription() error {
	sc.mutex.Lock()
	sc.isTemporalSubscription.UnSet()
	sc.isSubscribed.UnSet()
	send := sc.send
	sc.mutex.Unlock()

	if send == nil {
		return nil
	}

	return send(sc, nil)
}

// DecodeString decodes a wire string using the connection's negotiated encoding. Only
// UTF8 is supported by this implementation, matching the rest of the current STTP
// ecosystem.
func (sc *SubscriberConnection) DecodeString(data []byte) string {
	if sc.encoding != OperationalEncoding.UTF8 {
		panic("sttp: only UTF8 string encoding is supported")
	}

	return string(data)
}

// EncodeString encodes a string using the connection's negotiated encoding.
func (sc *SubscriberConnection) EncodeString(value string) []byte {
	if sc.encoding != OperationalEncoding.UTF8 {
		panic("sttp: only UTF8 string encoding is supported")
	}

	return []byte(value)
}
