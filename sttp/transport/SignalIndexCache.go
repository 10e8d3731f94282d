//******************************************************************************************************
//  SignalIndexCache.go - Gbtc
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

import "github.com/sttp/gopublisher/sttp/guid"

// UnknownIndex is the reserved runtime signal index meaning "no index assigned". It is a
// protocol-defined sentinel, not an error: GetSignalIndex returns it for any signal ID the
// cache has not assigned.
const UnknownIndex uint16 = 0xFFFF

// signalIndexCacheRecord is the forward-map entry for one assigned runtime index.
type signalIndexCacheRecord struct {
	signalID  guid.Guid
	source    string
	numericID uint32
}

// SignalIndexCache is a bidirectional mapping between 16-bit per-connection runtime
// indices and 128-bit signal IDs, built once per subscription and swapped wholesale on
// rebuild. A SignalIndexCache is effectively immutable after Assign calls stop: callers
// must not mutate it while a CompactMeasurement codec holds a reference, and cache
// replacement is always performed by building a new instance and swapping the owning
// connection's pointer to it, never by editing in place.
type SignalIndexCache struct {
	forward []uint16
	records map[uint16]signalIndexCacheRecord
	reverse map[guid.Guid]uint16
}

// NewSignalIndexCache creates an empty SignalIndexCache.
func NewSignalIndexCache() *SignalIndexCache {
	return &SignalIndexCache{
		records: make(map[uint16]signalIndexCacheRecord),
		reverse: make(map[guid.Guid]uint16),
	}
}

// Assign inserts or replaces the mapping for a runtime index. If index was already
// present, its prior signal ID's reverse entry is removed first so the forward and
// reverse maps never disagree.
func (cache *SignalIndexCache) Assign(index uint16, signalID guid.Guid, source string, numericID uint32) {
	if existing, ok := cache.records[index]; ok {
		delete(cache.reverse, existing.signalID)
	} else {
		cache.forward = append(cache.forward, index)
	}

	cache.records[index] = signalIndexCacheRecord{signalID: signalID, source: source, numericID: numericID}
	cache.reverse[signalID] = index
}

// Contains reports whether a runtime index has an assigned mapping.
func (cache *SignalIndexCache) Contains(index uint16) bool {
	_, ok := cache.records[index]
	return ok
}

// GetMeasurementKey returns the signal ID, source, and numeric ID assigned to a runtime
// index, or BadIndex if the index is unassigned.
func (cache *SignalIndexCache) GetMeasurementKey(index uint16) (guid.Guid, string, uint32, error) {
	record, ok := cache.records[index]

	if !ok {
		return guid.Empty, "", 0, BadIndex
	}

	return record.signalID, record.source, record.numericID, nil
}

// GetSignalIndex returns the runtime index assigned to a signal ID, or UnknownIndex
// (0xFFFF) if the signal ID has no assignment in this cache. This is not an error: an
// absent assignment is a normal outcome for a signal the connection never subscribed to.
func (cache *SignalIndexCache) GetSignalIndex(signalID guid.Guid) uint16 {
	if index, ok := cache.reverse[signalID]; ok {
		return index
	}

	return UnknownIndex
}

// Size returns the number of assigned runtime indices.
func (cache *SignalIndexCache) Size() int {
	return len(cache.forward)
}

// Clear removes all assignments from the cache.
func (cache *SignalIndexCache) Clear() {
	cache.forward = nil
	cache.records = make(map[uint16]signalIndexCacheRecord)
	cache.reverse = make(map[guid.Guid]uint16)
}

// IndexSignalIDPair is one (index, signal_id) entry yielded by Iterate, in the order the
// index was first assigned.
type IndexSignalIDPair struct {
	Index    uint16
	SignalID guid.Guid
}

// Iterate returns every assigned (index, signal_id) pair in insertion order.
func (cache *SignalIndexCache) Iterate() []IndexSignalIDPair {
	pairs := make([]IndexSignalIDPair, 0, len(cache.forward))

	for _, index := range cache.forward {
		pairs = append(pairs, IndexSignalIDPair{Index: index, SignalID: cache.records[index].signalID})
	}

	return pairs
}
