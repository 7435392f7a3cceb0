// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package google implements a geocode.Geocoder backed by the Google Maps
// Geocoding API.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/jcodagnone/geobatch/geocode"
	"github.com/jcodagnone/geobatch/spatial"
	"github.com/jcodagnone/geobatch/utils/httputils"
)

const defaultTimeout = 10 * time.Second

func init() {
	geocode.Register("google", func(opts geocode.Options) (geocode.Geocoder, error) {
		apiKey := opts.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_MAPS_API_KEY")
		}

		if apiKey == "" {
			var err error

			apiKey, err = apiKeyFromADC(context.Background(), opts.Extra["adc-key-name"])
			if err != nil {
				return nil, fmt.Errorf("google maps requires an API key (flag, GOOGLE_MAPS_API_KEY, or ADC): %w", err)
			}

			log.Println("Retrieved Google Maps API key via ADC")
		}

		return NewGeocoder(apiKey, opts), nil
	})
}

// Geocoder uses the Google Maps Geocoding API.
type Geocoder struct {
	apiKey     string
	baseURL    string
	language   string
	region     string
	httpClient *http.Client
}

// NewGeocoder creates a Google Maps geocoder.
func NewGeocoder(apiKey string, opts geocode.Options) *Geocoder {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com/maps/api/geocode/json"
	}

	clientOpts := httputils.ClientOptions{
		Timeout:   timeout,
		UserAgent: opts.UserAgent,
	}
	if opts.Trace {
		clientOpts.TraceWriter = os.Stderr
	}

	return &Geocoder{
		apiKey:     apiKey,
		baseURL:    baseURL,
		language:   opts.Language,
		region:     opts.Extra["region"],
		httpClient: httputils.NewClient(clientOpts),
	}
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

type googleMapsResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string         `json:"error_message"`
}

// Geocode resolves an address. The result pair is (lat, lon).
func (g *Geocoder) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	params := url.Values{}
	params.Set("address", address)

	if g.region != "" {
		params.Set("region", g.region)
	}

	first, err := g.query(ctx, params)
	if err != nil || first == nil {
		return nil, err
	}

	return geocode.NewResult(
		first.FormattedAddress,
		first.Geometry.Location.Lat,
		first.Geometry.Location.Lng,
	), nil
}

// Reverse resolves a point. The result pair is (x, y).
func (g *Geocoder) Reverse(ctx context.Context, point spatial.Point) (*geocode.Result, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", point.Lat, point.Lng))

	first, err := g.query(ctx, params)
	if err != nil || first == nil {
		return nil, err
	}

	return geocode.NewResult(
		first.FormattedAddress,
		first.Geometry.Location.Lng,
		first.Geometry.Location.Lat,
	), nil
}

func (g *Geocoder) query(ctx context.Context, params url.Values) (*googleResult, error) {
	params.Set("key", g.apiKey)

	if g.language != "" {
		params.Set("language", g.language)
	}

	reqURL := g.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, geocode.ClassifyHTTPError(resp.StatusCode, "")
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	switch gmResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		// Not an error: the query simply has no match.
		return nil, nil
	case "OVER_QUERY_LIMIT":
		return nil, &geocode.GeocodingError{
			Type:    geocode.ErrorTypeQuotaExceeded,
			Message: "google maps status: OVER_QUERY_LIMIT",
		}
	case "REQUEST_DENIED", "INVALID_REQUEST":
		return nil, &geocode.GeocodingError{
			Type:    geocode.ErrorTypeInvalidRequest,
			Message: fmt.Sprintf("google maps status: %s: %s", gmResp.Status, gmResp.ErrorMessage),
		}
	default:
		return nil, &geocode.GeocodingError{
			Type:    geocode.ErrorTypeUnknown,
			Message: fmt.Sprintf("google maps status: %s", gmResp.Status),
		}
	}

	if len(gmResp.Results) == 0 {
		return nil, nil
	}

	return &gmResp.Results[0], nil
}
