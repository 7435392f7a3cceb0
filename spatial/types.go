// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package spatial provides geographic primitives shared across the
// module.
package spatial

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
)

const earthRadius = 6371e3 // meters

// Point represents a geographical point with latitude and longitude.
// The zero value is the valid point (0, 0); use EmptyPoint for a point
// carrying no coordinates.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// EmptyPoint returns a point with no coordinates.
func EmptyPoint() Point {
	return Point{Lat: math.NaN(), Lng: math.NaN()}
}

// IsEmpty reports whether the point carries no coordinates. The point
// (0, 0) is a valid location, not empty.
func (p Point) IsEmpty() bool {
	return math.IsNaN(p.Lat) || math.IsNaN(p.Lng)
}

// String returns the WKT representation of the Point.
func (p Point) String() string {
	if p.IsEmpty() {
		return "POINT EMPTY"
	}

	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Value implements the driver.Valuer interface for database serialization.
// The empty point is stored as NULL.
func (p Point) Value() (driver.Value, error) {
	if p.IsEmpty() {
		return nil, nil
	}

	return p.String(), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (p *Point) Scan(value interface{}) error {
	if value == nil {
		*p = EmptyPoint()

		return nil
	}

	switch v := value.(type) {
	case []byte:
		return p.scanWKT(string(v))
	case string:
		return p.scanWKT(v)
	case map[string]interface{}:
		x, okX := v["x"].(float64)
		y, okY := v["y"].(float64)

		if !okX || !okY {
			return fmt.Errorf("spatial: invalid map for point: expected 'x' and 'y' float64 fields, got %+v", v)
		}

		p.Lng = x
		p.Lat = y

		return nil
	default:
		return fmt.Errorf("spatial: unsupported type for Point scan: %T", value)
	}
}

// The format from DuckDB is "POINT (lng lat)"; our own WKT omits the space.
func (p *Point) scanWKT(s string) error {
	if s == "POINT EMPTY" {
		*p = EmptyPoint()

		return nil
	}

	if _, err := fmt.Sscanf(s, "POINT (%f %f)", &p.Lng, &p.Lat); err == nil {
		return nil
	}

	_, err := fmt.Sscanf(s, "POINT(%f %f)", &p.Lng, &p.Lat)

	return err
}

// MarshalJSON renders the empty point as JSON null.
func (p Point) MarshalJSON() ([]byte, error) {
	if p.IsEmpty() {
		return []byte("null"), nil
	}

	return json.Marshal(struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}{Lat: p.Lat, Lng: p.Lng})
}

// UnmarshalJSON accepts JSON null as the empty point.
func (p *Point) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = EmptyPoint()

		return nil
	}

	var raw struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("spatial: parsing point: %w", err)
	}

	p.Lat = raw.Lat
	p.Lng = raw.Lng

	return nil
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p *Point) HaversineDistance(other *Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
