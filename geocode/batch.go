// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jcodagnone/geobatch/spatial"
)

// Query is one keyed forward-geocoding question.
type Query struct {
	Key     string
	Address string
}

// PointQuery is one keyed reverse-geocoding question.
type PointQuery struct {
	Key   string
	Point spatial.Point
}

// Geocode resolves a batch of addresses through the registered provider
// named by provider. Queries get positional keys "0".."n-1". The address
// column holds the provider's canonical label, not the input string.
//
// Queries run one at a time, in order. A query with no match becomes a
// missing row; a provider error aborts the whole remaining batch. There
// is no retry and no partial resume.
func Geocode(ctx context.Context, addresses []string, provider string, opts Options) (*ResultTable, error) {
	g, err := New(provider, opts)
	if err != nil {
		return nil, err
	}

	return GeocodeWith(ctx, addresses, g)
}

// GeocodeWith is Geocode with a caller-supplied provider instance.
func GeocodeWith(ctx context.Context, addresses []string, g Geocoder) (*ResultTable, error) {
	queries := make([]Query, len(addresses))
	for i, address := range addresses {
		queries[i] = Query{Key: strconv.Itoa(i), Address: address}
	}

	return GeocodeQueries(ctx, queries, g)
}

// GeocodeQueries forward-geocodes caller-keyed queries, preserving their
// order in the output table. A repeated key keeps its first position and
// the last result.
func GeocodeQueries(ctx context.Context, queries []Query, g Geocoder) (*ResultTable, error) {
	results := NewRawResults()

	for _, q := range queries {
		res, err := g.Geocode(ctx, q.Address)
		if err != nil {
			return nil, fmt.Errorf("geocoding %q: %w", q.Key, err)
		}

		results.Set(q.Key, res)
	}

	return BuildTable(results, ModeForward), nil
}

// ReverseGeocode resolves a batch of points through the registered
// provider named by provider. Queries get positional keys "0".."n-1".
func ReverseGeocode(ctx context.Context, points []spatial.Point, provider string, opts Options) (*ResultTable, error) {
	g, err := New(provider, opts)
	if err != nil {
		return nil, err
	}

	return ReverseGeocodeWith(ctx, points, g)
}

// ReverseGeocodeWith is ReverseGeocode with a caller-supplied provider
// instance.
func ReverseGeocodeWith(ctx context.Context, points []spatial.Point, g Geocoder) (*ResultTable, error) {
	queries := make([]PointQuery, len(points))
	for i, point := range points {
		queries[i] = PointQuery{Key: strconv.Itoa(i), Point: point}
	}

	return ReverseQueries(ctx, queries, g)
}

// ReverseQueries reverse-geocodes caller-keyed points, preserving their
// order in the output table. The geometry column holds the point the
// provider answers with, which providers normally echo from the input.
func ReverseQueries(ctx context.Context, queries []PointQuery, g Geocoder) (*ResultTable, error) {
	results := NewRawResults()

	for _, q := range queries {
		res, err := g.Reverse(ctx, q.Point)
		if err != nil {
			return nil, fmt.Errorf("reverse geocoding %q: %w", q.Key, err)
		}

		results.Set(q.Key, res)
	}

	return BuildTable(results, ModeReverse), nil
}
