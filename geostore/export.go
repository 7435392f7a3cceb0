// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package geostore

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jcodagnone/geobatch/geocode"
	"github.com/jcodagnone/geobatch/spatial"
)

// snapshotRow is the JSON shape of a single table row. Missing halves
// serialize as null so a round trip keeps them missing.
type snapshotRow struct {
	Key     string         `json:"key"`
	Address *string        `json:"address"`
	Point   *spatial.Point `json:"point"`
}

type snapshot struct {
	Version int           `json:"version"`
	Mode    string        `json:"mode"`
	CRS     string        `json:"crs"`
	Rows    []snapshotRow `json:"rows"`
}

const snapshotVersion = 1

// WriteJSON serializes a result table as a versioned JSON snapshot that
// ReadJSON can load back.
func WriteJSON(w io.Writer, mode geocode.Mode, table *geocode.ResultTable) error {
	snap := snapshot{
		Version: snapshotVersion,
		Mode:    mode.String(),
		CRS:     table.CRS(),
		Rows:    make([]snapshotRow, 0, table.Len()),
	}

	for _, row := range table.Rows() {
		sr := snapshotRow{Key: row.Key}

		if row.Address.Valid {
			address := row.Address.String
			sr.Address = &address
		}

		if !row.Geometry.IsEmpty() {
			point := row.Geometry
			sr.Point = &point
		}

		snap.Rows = append(snap.Rows, sr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(snap)
}

// ReadJSON loads a snapshot written by WriteJSON.
func ReadJSON(r io.Reader) (*geocode.ResultTable, geocode.Mode, error) {
	var snap snapshot

	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, geocode.ModeForward, fmt.Errorf("decoding snapshot: %w", err)
	}

	if snap.Version != snapshotVersion {
		return nil, geocode.ModeForward, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	mode := geocode.ModeForward
	if snap.Mode == "reverse" {
		mode = geocode.ModeReverse
	}

	rows := make([]geocode.Row, 0, len(snap.Rows))

	for _, sr := range snap.Rows {
		row := geocode.Row{Key: sr.Key, Geometry: spatial.EmptyPoint()}

		if sr.Address != nil {
			row.Address.String = *sr.Address
			row.Address.Valid = true
		}

		if sr.Point != nil {
			row.Geometry = *sr.Point
		}

		rows = append(rows, row)
	}

	return geocode.NewTable(rows), mode, nil
}

// geoJSONFeature follows RFC 7946. Rows without a geometry get a null
// geometry member rather than being dropped.
type geoJSONFeature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// WriteGeoJSON serializes a result table as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, table *geocode.ResultTable) error {
	collection := geoJSONCollection{
		Type:     "FeatureCollection",
		Features: make([]geoJSONFeature, 0, table.Len()),
	}

	for _, row := range table.Rows() {
		feature := geoJSONFeature{
			Type:     "Feature",
			Geometry: json.RawMessage("null"),
			Properties: map[string]any{
				"key": row.Key,
			},
		}

		if row.Address.Valid {
			feature.Properties["address"] = row.Address.String
		} else {
			feature.Properties["address"] = nil
		}

		if !row.Geometry.IsEmpty() {
			geometry, err := json.Marshal(map[string]any{
				"type":        "Point",
				"coordinates": []float64{row.Geometry.Lng, row.Geometry.Lat},
			})
			if err != nil {
				return err
			}

			feature.Geometry = geometry
		}

		collection.Features = append(collection.Features, feature)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(collection)
}

// WriteCSV serializes a result table with key, address, lat and lng
// columns. Missing halves serialize as empty cells.
func WriteCSV(w io.Writer, table *geocode.ResultTable) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"key", "address", "lat", "lng"}); err != nil {
		return err
	}

	for _, row := range table.Rows() {
		record := []string{row.Key, "", "", ""}

		if row.Address.Valid {
			record[1] = row.Address.String
		}

		if !row.Geometry.IsEmpty() {
			record[2] = strconv.FormatFloat(row.Geometry.Lat, 'f', -1, 64)
			record[3] = strconv.FormatFloat(row.Geometry.Lng, 'f', -1, 64)
		}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}
