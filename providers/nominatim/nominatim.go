// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package nominatim implements a geocode.Geocoder backed by the OSM
// Nominatim API. The public instance requires a descriptive User-Agent
// and tolerates at most one request per second; respecting that is the
// caller's responsibility.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jcodagnone/geobatch/geocode"
	"github.com/jcodagnone/geobatch/spatial"
	"github.com/jcodagnone/geobatch/utils/httputils"
)

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org"
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "geobatch (+https://github.com/jcodagnone/geobatch)"
)

func init() {
	geocode.Register("nominatim", func(opts geocode.Options) (geocode.Geocoder, error) {
		return NewGeocoder(opts), nil
	})
}

// Geocoder uses the OSM Nominatim API.
type Geocoder struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewGeocoder creates a Nominatim geocoder.
func NewGeocoder(opts geocode.Options) *Geocoder {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	clientOpts := httputils.ClientOptions{
		Timeout:   timeout,
		UserAgent: userAgent,
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

// Nominatim answers coordinates as JSON strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Geocode resolves an address. The result pair is (lat, lon).
func (g *Geocoder) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")

	if g.language != "" {
		params.Set("accept-language", g.language)
	}

	var places []place
	if err := g.get(ctx, g.baseURL+"/search?"+params.Encode(), &places); err != nil {
		return nil, err
	}

	if len(places) == 0 {
		return nil, nil
	}

	lat, lon, err := places[0].coords()
	if err != nil {
		return nil, err
	}

	return geocode.NewResult(places[0].DisplayName, lat, lon), nil
}

// Reverse resolves a point. The result pair is (x, y).
func (g *Geocoder) Reverse(ctx context.Context, point spatial.Point) (*geocode.Result, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", point.Lat))
	params.Set("lon", fmt.Sprintf("%f", point.Lng))
	params.Set("format", "jsonv2")

	if g.language != "" {
		params.Set("accept-language", g.language)
	}

	var p place
	if err := g.get(ctx, g.baseURL+"/reverse?"+params.Encode(), &p); err != nil {
		return nil, err
	}

	// Nominatim reports "Unable to geocode" as an error field with HTTP 200.
	if p.Error != "" || p.DisplayName == "" {
		return nil, nil
	}

	lat, lon, err := p.coords()
	if err != nil {
		return nil, err
	}

	return geocode.NewResult(p.DisplayName, lon, lat), nil
}

func (g *Geocoder) get(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nominatim request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geocode.ClassifyHTTPError(resp.StatusCode, "")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

func (p *place) coords() (float64, float64, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing latitude %q: %w", p.Lat, err)
	}

	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing longitude %q: %w", p.Lon, err)
	}

	return lat, lon, nil
}
