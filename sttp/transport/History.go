//******************************************************************************************************
//  History.go - Gbtc
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
	"encoding/xml"
	"os"

	"github.com/sttp/gopublisher/sttp/guid"
)

// HistoryRow is one record of a historical replay table: a signal reading at a point in
// time. Rows are expected to be sorted by Timestamp ascending.
type HistoryRow struct {
	SignalID  guid.Guid
	Timestamp int64
	Value     float64
}

// historyDocument mirrors the on-disk XML shape a historical table is loaded from:
//
//	<HistoricalData>
//	  <Row><SignalID>...</SignalID><Timestamp>...</Timestamp><Value>...</Value></Row>
//	  ...
//	</HistoricalData>
type historyDocument struct {
	XMLName xml.Name     `xml:"HistoricalData"`
	Rows    []historyRow `xml:"Row"`
}

type historyRow struct {
	SignalID  string  `xml:"SignalID"`
	Timestamp int64   `xml:"Timestamp"`
	Value     float64 `xml:"Value"`
}

// HistoryTable is a historical replay table loaded once and thereafter treated as
// read-only. It is shared across every TemporalSubscriber instance via an explicit
// reference passed at construction, never via module-level mutable state.
type HistoryTable struct {
	rows []HistoryRow
}

// LoadHistoryTable reads a historical table from an XML file at path. Construction fails
// with NoHistoryAvailable if the table is empty.
func LoadHistoryTable(path string) (*HistoryTable, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	var doc historyDocument

	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	rows := make([]HistoryRow, 0, len(doc.Rows))

	for _, raw := range doc.Rows {
		signalID, err := guid.Parse(raw.SignalID)

		if err != nil {
			return nil, err
		}

		rows = append(rows, HistoryRow{SignalID: signalID, Timestamp: raw.Timestamp, Value: raw.Value})
	}

	return NewHistoryTable(rows)
}

// NewHistoryTable builds a HistoryTable directly from already-parsed rows, used both by
// LoadHistoryTable and directly by tests and in-memory producers.
func NewHistoryTable(rows []HistoryRow) (*HistoryTable, error) {
	if len(rows) == 0 {
		return nil, NoHistoryAvailable
	}

	table := make([]HistoryRow, len(rows))
	copy(table, rows)

	return &HistoryTable{rows: table}, nil
}

// RowCount returns the number of rows in the table.
func (table *HistoryTable) RowCount() int {
	return len(table.rows)
}

// Row returns the row at index i.
func (table *HistoryTable) Row(i int) HistoryRow {
	return table.rows[i]
}
