// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jcodagnone/geobatch/geocode"
	"github.com/jcodagnone/geobatch/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGeocoder(t *testing.T, handler http.HandlerFunc) *Geocoder {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewGeocoder(geocode.Options{BaseURL: srv.URL, UserAgent: "geobatch/test"})
}

func TestGeocode(t *testing.T) {
	var gotPath, gotUA, gotQ string

	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		gotQ = r.URL.Query().Get("q")

		_, _ = w.Write([]byte(`[{
			"lat": "-34.9058916",
			"lon": "-56.1913095",
			"display_name": "Palacio Salvo, 1000, Plaza Independencia, Montevideo, Uruguay"
		}]`))
	})

	res, err := g.Geocode(context.Background(), "Palacio Salvo, Montevideo")
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "/search", gotPath)
	assert.Equal(t, "geobatch/test", gotUA)
	assert.Equal(t, "Palacio Salvo, Montevideo", gotQ)

	// (lat, lon) ordering, parsed from Nominatim's string fields.
	require.NotNil(t, res.Coord)
	assert.Equal(t, -34.9058916, res.Coord[0])
	assert.Equal(t, -56.1913095, res.Coord[1])
}

func TestGeocodeNoMatch(t *testing.T) {
	g := newTestGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	res, err := g.Geocode(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestReverse(t *testing.T) {
	var gotPath string

	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		_, _ = w.Write([]byte(`{
			"lat": "-34.907",
			"lon": "-56.2",
			"display_name": ""
		}`))
	})

	// Blank display_name means no resolution.
	res, err := g.Reverse(context.Background(), spatial.Point{Lat: -34.907, Lng: -56.2})
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, "/reverse", gotPath)
}

func TestReverseResolved(t *testing.T) {
	g := newTestGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"lat": "-34.9066",
			"lon": "-56.1996",
			"display_name": "Plaza Independencia, Montevideo, Uruguay"
		}`))
	})

	res, err := g.Reverse(context.Background(), spatial.Point{Lat: -34.9066, Lng: -56.1996})
	require.NoError(t, err)
	require.NotNil(t, res)

	// (x, y) ordering for reverse results.
	assert.Equal(t, -56.1996, res.Coord[0])
	assert.Equal(t, -34.9066, res.Coord[1])
	assert.Equal(t, "Plaza Independencia, Montevideo, Uruguay", *res.Label)
}

func TestReverseUnableToGeocode(t *testing.T) {
	g := newTestGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Unable to geocode"}`))
	})

	res, err := g.Reverse(context.Background(), spatial.Point{})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestRateLimit(t *testing.T) {
	g := newTestGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := g.Geocode(context.Background(), "somewhere")
	require.Error(t, err)
	assert.True(t, geocode.IsRateLimitError(err))
}

func TestRegistered(t *testing.T) {
	g, err := geocode.New("nominatim", geocode.Options{})
	require.NoError(t, err)
	assert.NotNil(t, g)
}
