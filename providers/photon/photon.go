// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package photon implements a geocode.Geocoder backed by the Komoot
// Photon API, a GeoJSON service over OSM data with no API key.
package photon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jcodagnone/geobatch/geocode"
	"github.com/jcodagnone/geobatch/spatial"
	"github.com/jcodagnone/geobatch/utils/httputils"
)

const (
	defaultBaseURL = "https://photon.komoot.io"
	defaultTimeout = 10 * time.Second
)

func init() {
	geocode.Register("photon", func(opts geocode.Options) (geocode.Geocoder, error) {
		return NewGeocoder(opts), nil
	})
}

// Geocoder uses the Komoot Photon API.
type Geocoder struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewGeocoder creates a Photon geocoder.
func NewGeocoder(opts geocode.Options) *Geocoder {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	clientOpts := httputils.ClientOptions{
		Timeout:   timeout,
		UserAgent: opts.UserAgent,
	}
	if opts.Trace {
		clientOpts.TraceWriter = os.Stderr
	}

	return &Geocoder{
		baseURL:    baseURL,
		language:   opts.Language,
		httpClient: httputils.NewClient(clientOpts),
	}
}

type featureCollection struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
		Properties struct {
			Name     string `json:"name"`
			Street   string `json:"street"`
			City     string `json:"city"`
			State    string `json:"state"`
			Country  string `json:"country"`
			Postcode string `json:"postcode"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode resolves an address. The result pair is (lat, lon).
func (g *Geocoder) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("limit", "1")

	if g.language != "" {
		params.Set("lang", g.language)
	}

	return g.query(ctx, g.baseURL+"/api?"+params.Encode(), false)
}

// Reverse resolves a point. The result pair is (x, y).
func (g *Geocoder) Reverse(ctx context.Context, point spatial.Point) (*geocode.Result, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", point.Lat))
	params.Set("lon", fmt.Sprintf("%f", point.Lng))
	params.Set("limit", "1")

	if g.language != "" {
		params.Set("lang", g.language)
	}

	return g.query(ctx, g.baseURL+"/reverse?"+params.Encode(), true)
}

func (g *Geocoder) query(ctx context.Context, reqURL string, reverse bool) (*geocode.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("photon request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, geocode.ClassifyHTTPError(resp.StatusCode, "")
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(fc.Features) == 0 {
		return nil, nil
	}

	f := fc.Features[0]
	if len(f.Geometry.Coordinates) != 2 {
		return nil, nil
	}

	lon, lat := f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]
	label := formatLabel(f.Properties.Name, f.Properties.Street, f.Properties.Postcode,
		f.Properties.City, f.Properties.State, f.Properties.Country)

	if reverse {
		return geocode.NewResult(label, lon, lat), nil
	}

	return geocode.NewResult(label, lat, lon), nil
}

// Photon has no formatted address field; assemble one from the parts.
func formatLabel(parts ...string) string {
	present := make([]string, 0, len(parts))

	for _, part := range parts {
		if part != "" {
			present = append(present, part)
		}
	}

	return strings.Join(present, ", ")
}
