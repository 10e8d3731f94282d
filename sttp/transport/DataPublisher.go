//******************************************************************************************************
//  DataPublisher.go - Gbtc
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
	"net"
	"sync"

	"github.com/sttp/gopublisher/sttp/config"
	"github.com/sttp/gopublisher/sttp/guid"
	"github.com/sttp/gopublisher/sttp/metrics"
	"github.com/sttp/gopublisher/sttp/queue"
	"github.com/sttp/gopublisher/sttp/thread"
)

// ClientConnectedCallback is invoked once a subscriber connection has been accepted.
type ClientConnectedCallback func(publisher *DataPublisher, connection *SubscriberConnection)

// ClientDisconnectedCallback is invoked once a subscriber connection has gone away.
type ClientDisconnectedCallback func(publisher *DataPublisher, connection *SubscriberConnection)

// StatusMessageCallback delivers an informational message from the publisher.
type StatusMessageCallback func(publisher *DataPublisher, message string)

// PublisherErrorMessageCallback delivers a non-fatal, human-readable error from the
// publisher. There is no numeric error channel for users; every non-fatal failure
// surfaces through this callback instead.
type PublisherErrorMessageCallback func(publisher *DataPublisher, message string)

// TemporalSubscriptionRequestedCallback is invoked when a connection requests a temporal
// (bounded historical replay) subscription. The callback typically constructs a
// TemporalSubscriber bound to the connection.
type TemporalSubscriptionRequestedCallback func(publisher *DataPublisher, connection *SubscriberConnection)

// ProcessingIntervalChangeRequestedCallback is invoked when a connection requests a new
// replay cadence for its temporal subscription.
type ProcessingIntervalChangeRequestedCallback func(publisher *DataPublisher, connection *SubscriberConnection)

// DataPublisher owns the routing table, the set of live connections, and the metadata
// registry for one publishing endpoint. It accepts measurements from producers and
// forwards them unmodified to routing, and it dispatches the fixed set of user callbacks
// on a dedicated context so callback code never runs on a producer's thread.
//
// Connections hold no reference to their publisher; the publisher is the sole owner, and
// callbacks about a connection are dispatched by publisher methods that take it as a
// parameter. A disconnected connection never keeps its publisher alive.
type DataPublisher struct {
	port   uint16
	listener net.Listener

	settings *config.PublisherSettings

	supportsTemporalSubscriptions bool

	routingTables *RoutingTables
	metadata      *MetadataRegistry

	connectionsMutex sync.RWMutex
	connections      map[guid.Guid]*SubscriberConnection

	dispatch       *queue.Queue
	dispatchThread *thread.Thread

	callbackMutex sync.RWMutex
	onClientConnected                ClientConnectedCallback
	onClientDisconnected              ClientDisconnectedCallback
	onStatusMessage                   StatusMessageCallback
	onErrorMessage                    PublisherErrorMessageCallback
	onTemporalSubscriptionRequested   TemporalSubscriptionRequestedCallback
	onProcessingIntervalChangeRequested ProcessingIntervalChangeRequestedCallback
}

// NewDataPublisher creates a DataPublisher that will listen on port once Listen is called.
// supportsTemporalSubscriptions governs whether temporal-subscription requests from
// connections are honored or rejected. Connections accepted by this publisher use the
// package's default PublisherSettings; use NewDataPublisherWithSettings to override them.
func NewDataPublisher(port uint16, supportsTemporalSubscriptions bool) *DataPublisher {
	settings := config.NewPublisherSettings()
	settings.Port = port
	settings.SupportsTemporalSubscriptions = supportsTemporalSubscriptions

	return NewDataPublisherWithSettings(settings)
}

// NewDataPublisherWithSettings creates a DataPublisher configured from settings. Settings.Port
// determines the port Listen binds to, and Settings.SupportsTemporalSubscriptions determines
// whether temporal-subscription requests from connections are honored or rejected.
func NewDataPublisherWithSettings(settings *config.PublisherSettings) *DataPublisher {
	publisher := &DataPublisher{
		port:                           settings.Port,
		settings:                       settings,
		supportsTemporalSubscriptions:  settings.SupportsTemporalSubscriptions,
		metadata:                       NewMetadataRegistry(),
		connections:                    make(map[guid.Guid]*SubscriberConnection),
		dispatch:                       queue.NewQueue(),
	}

	publisher.routingTables = NewRoutingTables(func(message string) {
		publisher.dispatchErrorMessage(message)
	})

	publisher.dispatchThread = thread.NewThread(publisher.runDispatch)
	publisher.dispatchThread.Start()

	return publisher
}

func (publisher *DataPublisher) runDispatch() {
	for {
		op, ok := publisher.dispatch.Dequeue()

		if !ok {
			return
		}

		op()
	}
}

// Listen binds the publisher's configured TCP port. A bind failure is surfaced
// synchronously as PublisherListenFailure.
func (publisher *DataPublisher) Listen() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", publisher.port))

	if err != nil {
		return PublisherListenFailure
	}

	publisher.listener = listener
	return nil
}

// Serve accepts connections until the listener is closed, wrapping each into a
// SubscriberConnection and dispatching OnClientConnected for it. Serve blocks the calling
// goroutine; callers typically run it in its own goroutine.
func (publisher *DataPublisher) Serve() error {
	if publisher.listener == nil {
		return PublisherListenFailure
	}

	for {
		conn, err := publisher.listener.Accept()

		if err != nil {
			return err
		}

		remoteAddr := conn.RemoteAddr().String()
		connection := NewSubscriberConnection(remoteAddr, remoteAddr, "", func(_ *SubscriberConnection, data []byte) error {
			if data == nil {
				return nil
			}

			_, writeErr := conn.Write(data)
			return writeErr
		})

		connection.Configure(publisher.settings)

		publisher.connectionsMutex.Lock()
		publisher.connections[connection.InstanceID()] = connection
		count := len(publisher.connections)
		publisher.connectionsMutex.Unlock()

		metrics.SetConnectedSubscribers(count)
		publisher.dispatchClientConnected(connection)
	}
}

// Close stops accepting new connections and releases the routing table and dispatch
// queue's resources.
func (publisher *DataPublisher) Close() error {
	var err error

	if publisher.listener != nil {
		err = publisher.listener.Close()
	}

	publisher.routingTables.Disable()
	publisher.dispatch.Release()
	publisher.dispatchThread.Join()

	return err
}

// SetClientConnectedCallback registers the callback invoked when a connection is accepted.
func (publisher *DataPublisher) SetClientConnectedCallback(callback ClientConnectedCallback) {
	publisher.callbackMutex.Lock()
	defer publisher.callbackMutex.Unlock()

	publisher.onClientConnected = callback
}

// SetClientDisconnectedCallback registers the callback invoked when a connection is lost.
func (publisher *DataPublisher) SetClientDisconnectedCallback(callback ClientDisconnectedCallback) {
	publisher.callbackMutex.Lock()
	defer publisher.callbackMutex.Unlock()

	publisher.onClientDisconnected = callback
}

// SetStatusMessageCallback registers the callback invoked for informational messages.
func (publisher *DataPublisher) SetStatusMessageCallback(callback StatusMessageCallback) {
	publisher.callbackMutex.Lock()
	defer publisher.callbackMutex.Unlock()

	publisher.onStatusMessage = callback
}

// SetErrorMessageCallback registers the callback invoked for non-fatal errors.
func (publisher *DataPublisher) SetErrorMessageCallback(callback PublisherErrorMessageCallback) {
	publisher.callbackMutex.Lock()
	defer publisher.callbackMutex.Unlock()

	publisher.onErrorMessage = callback
}

// SetTemporalSubscriptionRequestedCallback registers the callback invoked when a
// connection requests a temporal subscription.
func (publisher *DataPublisher) SetTemporalSubscriptionRequestedCallback(callback TemporalSubscriptionRequestedCallback) {
	publisher.callbackMutex.Lock()
	defer publisher.callbackMutex.Unlock()

	publisher.onTemporalSubscriptionRequested = callback
}

// SetProcessingIntervalChangeRequestedCallback registers the callback invoked when a
// connection requests a new replay cadence.
func (publisher *DataPublisher) SetProcessingIntervalChangeRequestedCallback(callback ProcessingIntervalChangeRequestedCallback) {
	publisher.callbackMutex.Lock()
	defer publisher.callbackMutex.Unlock()

	publisher.onProcessingIntervalChangeRequested = callback
}

func (publisher *DataPublisher) dispatchClientConnected(connection *SubscriberConnection) {
	publisher.dispatch.Enqueue(func() {
		publisher.callbackMutex.RLock()
		callback := publisher.onClientConnected
		publisher.callbackMutex.RUnlock()

		if callback != nil {
			callback(publisher, connection)
		}
	})
}

// DispatchClientDisconnected enqueues the client-disconnected callback for connection and
// removes it from the live connection set.
func (publisher *DataPublisher) DispatchClientDisconnected(connection *SubscriberConnection) {
	publisher.connectionsMutex.Lock()
	delete(publisher.connections, connection.InstanceID())
	count := len(publisher.connections)
	publisher.connectionsMutex.Unlock()

	metrics.SetConnectedSubscribers(count)
	publisher.routingTables.RemoveRoutes(connection)

	publisher.dispatch.Enqueue(func() {
		publisher.callbackMutex.RLock()
		callback := publisher.onClientDisconnected
		publisher.callbackMutex.RUnlock()

		if callback != nil {
			callback(publisher, connection)
		}
	})
}

func (publisher *DataPublisher) dispatchErrorMessage(message string) {
	publisher.dispatch.Enqueue(func() {
		publisher.callbackMutex.RLock()
		callback := publisher.onErrorMessage
		publisher.callbackMutex.RUnlock()

		if callback != nil {
			callback(publisher, message)
		}
	})
}

// DispatchStatusMessage enqueues an informational status message for delivery via
// OnStatusMessage.
func (publisher *DataPublisher) DispatchStatusMessage(message string) {
	publisher.dispatch.Enqueue(func() {
		publisher.callbackMutex.RLock()
		callback := publisher.onStatusMessage
		publisher.callbackMutex.RUnlock()

		if callback != nil {
			callback(publisher, message)
		}
	})
}

// RequestTemporalSubscription handles a connection's request for a bounded historical
// subscription. If the publisher does not support temporal subscriptions, the request is
// rejected and reported via the error callback instead. On success, the connection is
// excluded from real-time routing and OnTemporalSubscriptionRequested is dispatched so
// user code can instantiate a TemporalSubscriber for it.
func (publisher *DataPublisher) RequestTemporalSubscription(connection *SubscriberConnection) {
	if !publisher.supportsTemporalSubscriptions {
		publisher.dispatchErrorMessage("temporal subscriptions are not supported by this publisher")
		return
	}

	publisher.routingTables.RemoveRoutes(connection)

	publisher.dispatch.Enqueue(func() {
		publisher.callbackMutex.RLock()
		callback := publisher.onTemporalSubscriptionRequested
		publisher.callbackMutex.RUnlock()

		if callback != nil {
			callback(publisher, connection)
		}
	})
}

// RequestProcessingIntervalChange dispatches a connection's request to change its replay
// cadence.
func (publisher *DataPublisher) RequestProcessingIntervalChange(connection *SubscriberConnection) {
	publisher.dispatch.Enqueue(func() {
		publisher.callbackMutex.RLock()
		callback := publisher.onProcessingIntervalChangeRequested
		publisher.callbackMutex.RUnlock()

		if callback != nil {
			callback(publisher, connection)
		}
	})
}

// Subscribe establishes a real-time subscription for connection over the given signal
// IDs, updating its cache and registering it with the routing table.
func (publisher *DataPublisher) Subscribe(connection *SubscriberConnection, signalIDs []guid.Guid) {
	cache := NewSignalIndexCache()

	for i, signalID := range signalIDs {
		cache.Assign(uint16(i), signalID, "", uint32(i))
	}

	connection.Subscribe(cache)
	metrics.SignalIndexCacheRebuilt()
	publisher.routingTables.UpdateRoutes(connection, signalIDs)
}

// PublishMeasurements accepts a batch of measurements from a producer and forwards it
// unmodified to the routing table for fan-out.
func (publisher *DataPublisher) PublishMeasurements(batch []Measurement) {
	metrics.ObservePublishBatchSize(len(batch))
	publisher.routingTables.PublishMeasurements(batch)
}

// DefineMetadata inserts or replaces the metadata record for a measurement.
func (publisher *DataPublisher) DefineMetadata(metadata MeasurementMetadata) {
	publisher.metadata.DefineMetadata(metadata)
}

// LookupMetadata returns the metadata record defined for a signal ID, if any.
func (publisher *DataPublisher) LookupMetadata(signalID guid.Guid) (MeasurementMetadata, bool) {
	return publisher.metadata.Lookup(signalID)
}

// ConnectionCount returns the number of currently tracked connections.
func (publisher *DataPublisher) ConnectionCount() int {
	publisher.connectionsMutex.RLock()
	defer publisher.connectionsMutex.RUnlock()

	return len(publisher.connections)
}
