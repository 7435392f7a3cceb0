// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/geobatch/geocode"
	"github.com/jcodagnone/geobatch/spatial"
)

var reverseOptions = &batchOptions{}

// parsePoint reads a "lat,lng" pair.
func parsePoint(s string) (spatial.Point, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return spatial.Point{}, fmt.Errorf("invalid point %q: want lat,lng", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}

	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}

	if lat < -90 || lat > 90 {
		return spatial.Point{}, fmt.Errorf("latitude %g out of range in %q", lat, s)
	}

	if lng < -180 || lng > 180 {
		return spatial.Point{}, fmt.Errorf("longitude %g out of range in %q", lng, s)
	}

	return spatial.Point{Lat: lat, Lng: lng}, nil
}

var reverseCmd = &cobra.Command{
	Use:   "reverse [lat,lng]...",
	Short: "Resolves coordinates to addresses",
	Long: `
Resolves a batch of points through the selected provider, one query at a
time, and writes one result row per point. Points take the form
"lat,lng" in WGS 84 decimal degrees.
`,
	RunE: func(_ *cobra.Command, args []string) error {
		raw, err := reverseOptions.readQueries(args)
		if err != nil {
			return err
		}

		if len(raw) == 0 {
			return errors.New("no points given: pass them as arguments or via --input")
		}

		points := make([]spatial.Point, len(raw))
		for i, s := range raw {
			if points[i], err = parsePoint(s); err != nil {
				return err
			}
		}

		g, err := reverseOptions.newGeocoder(len(points), "Reverse geocoding")
		if err != nil {
			return err
		}

		table, err := geocode.ReverseGeocodeWith(context.Background(), points, g)
		if err != nil {
			return err
		}

		return reverseOptions.writeTable(geocode.ModeReverse, table)
	},
}

func init() {
	rootCmd.AddCommand(reverseCmd)
	reverseOptions.register(reverseCmd)
}
