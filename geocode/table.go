// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"database/sql"

	"github.com/jcodagnone/geobatch/spatial"
)

// CRS is the coordinate reference system of every ResultTable: geographic
// lat/lon on WGS84. It is a table-level property, never per-row.
const CRS = "EPSG:4326"

// Mode tells the normalizer how to read a raw coordinate pair. Forward
// providers answer in (lat, lon) order and must be swapped into (x, y);
// reverse providers already answer in (x, y). Keeping the tag explicit
// avoids silent axis bugs when a new provider is added.
type Mode int

const (
	// ModeForward raw pairs are (lat, lon).
	ModeForward Mode = iota
	// ModeReverse raw pairs are (x, y).
	ModeReverse
)

// RawResults accumulates raw provider results keyed by the caller's query
// identity. Iteration order is insertion order, deliberately independent
// of Go map semantics: the output table must keep the input order.
type RawResults struct {
	keys  []string
	items map[string]*Result
}

// NewRawResults returns an empty accumulator.
func NewRawResults() *RawResults {
	return &RawResults{items: make(map[string]*Result)}
}

// Set records the raw result for a key. Setting an existing key replaces
// the result in place without changing its position.
func (r *RawResults) Set(key string, res *Result) {
	if _, ok := r.items[key]; !ok {
		r.keys = append(r.keys, key)
	}

	r.items[key] = res
}

// Len returns the number of keyed results.
func (r *RawResults) Len() int {
	return len(r.keys)
}

// Keys returns the keys in insertion order.
func (r *RawResults) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)

	return out
}

// Row is one assembled record of a ResultTable. Geometry is the empty
// point and Address is invalid when the provider had no answer for the
// query; a row is never partially filled.
type Row struct {
	Key      string
	Geometry spatial.Point
	Address  sql.NullString
}

// ResultTable is the assembled output of a batch: exactly one row per
// input query, in input order, tagged with a single CRS. It is a
// snapshot; rows are never mutated after assembly.
type ResultTable struct {
	rows  []Row
	index map[string]int
	crs   string
}

// CRS returns the coordinate reference system of the geometry column.
func (t *ResultTable) CRS() string {
	return t.crs
}

// Len returns the number of rows.
func (t *ResultTable) Len() int {
	return len(t.rows)
}

// Rows returns the rows in input order.
func (t *ResultTable) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)

	return out
}

// Row returns the row for a query key.
func (t *ResultTable) Row(key string) (Row, bool) {
	i, ok := t.index[key]
	if !ok {
		return Row{}, false
	}

	return t.rows[i], true
}

// Keys returns the query keys in input order.
func (t *ResultTable) Keys() []string {
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row.Key
	}

	return out
}

// NewTable assembles already-normalized rows into a ResultTable, keeping
// their order. Storage layers use it to rehydrate persisted tables; batch
// drivers go through BuildTable instead.
func NewTable(rows []Row) *ResultTable {
	table := &ResultTable{
		rows:  make([]Row, len(rows)),
		index: make(map[string]int, len(rows)),
		crs:   CRS,
	}

	copy(table.rows, rows)

	for i, row := range rows {
		table.index[row.Key] = i
	}

	return table
}

// String returns the mode name used in persistence and the API.
func (m Mode) String() string {
	if m == ModeReverse {
		return "reverse"
	}

	return "forward"
}

// normalize turns one raw provider result into the address/geometry pair
// of a row. A nil result, label or coordinate yields a fully missing
// record; a (0, 0) coordinate is valid data.
func normalize(res *Result, mode Mode) (sql.NullString, spatial.Point) {
	if res == nil || res.Label == nil || res.Coord == nil {
		return sql.NullString{}, spatial.EmptyPoint()
	}

	address := sql.NullString{String: *res.Label, Valid: true}

	if mode == ModeForward {
		// Forward providers answer (lat, lon); geometry is x=lon, y=lat.
		return address, spatial.Point{Lat: res.Coord[0], Lng: res.Coord[1]}
	}

	return address, spatial.Point{Lat: res.Coord[1], Lng: res.Coord[0]}
}

// BuildTable assembles raw results into a ResultTable. It is pure and
// total: missing and malformed-by-absence cases were already folded into
// data by normalization, so there is no failure mode. A zero-query input
// yields a zero-row table that still carries the CRS tag.
func BuildTable(results *RawResults, mode Mode) *ResultTable {
	table := &ResultTable{
		rows:  make([]Row, 0, results.Len()),
		index: make(map[string]int, results.Len()),
		crs:   CRS,
	}

	for _, key := range results.keys {
		address, geometry := normalize(results.items[key], mode)

		table.index[key] = len(table.rows)
		table.rows = append(table.rows, Row{
			Key:      key,
			Geometry: geometry,
			Address:  address,
		})
	}

	return table
}
