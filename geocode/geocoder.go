// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"time"

	"github.com/jcodagnone/geobatch/spatial"
)

// Result is a single raw hit from a geocoding provider. A nil *Result
// means the provider found nothing for the query.
//
// Coord keeps the provider's native ordering: (lat, lon) for forward
// lookups, (x, y) i.e. (lon, lat) for reverse lookups. A nil Label or a
// nil Coord makes the whole record missing downstream; partial records
// are never produced.
type Result struct {
	Label *string
	Coord *[2]float64
}

// NewResult builds a Result from a label and a native coordinate pair.
func NewResult(label string, a, b float64) *Result {
	return &Result{Label: &label, Coord: &[2]float64{a, b}}
}

// Geocoder resolves addresses to locations and locations to addresses.
// Both calls block until the provider answers or ctx is done; timeouts
// are the provider's concern, configured through Options.
type Geocoder interface {
	// Geocode resolves a free-form address. The result coordinate pair
	// is (lat, lon).
	Geocode(ctx context.Context, address string) (*Result, error)

	// Reverse resolves a point to an address. The result coordinate
	// pair is (x, y) = (lon, lat).
	Reverse(ctx context.Context, point spatial.Point) (*Result, error)
}

// Options is provider configuration passed through opaquely to the
// selected provider factory. Providers pick what they understand and
// ignore the rest; nothing here is validated by the batch drivers.
type Options struct {
	// APIKey authenticates against the provider, when required.
	APIKey string

	// UserAgent identifies the client. Some providers (Nominatim)
	// refuse requests without one.
	UserAgent string

	// BaseURL overrides the provider endpoint, mostly for testing.
	BaseURL string

	// Timeout bounds each provider call. Zero means the provider's
	// default.
	Timeout time.Duration

	// Language hints the preferred language of returned labels.
	Language string

	// Trace enables HTTP request/response logging on providers that
	// support it.
	Trace bool

	// Extra carries provider-specific settings with no shared meaning.
	Extra map[string]string
}
