// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/geobatch/geocode"
	_ "github.com/jcodagnone/geobatch/providers/google"    // register google provider
	_ "github.com/jcodagnone/geobatch/providers/nominatim" // register nominatim provider
	_ "github.com/jcodagnone/geobatch/providers/photon"    // register photon provider
)

var geocodeOptions = &batchOptions{}

var geocodeCmd = &cobra.Command{
	Use:   "geocode [address]...",
	Short: "Resolves addresses to coordinates",
	Long: `
Resolves a batch of addresses through the selected provider, one query
at a time, and writes one result row per address. Addresses the provider
cannot match become rows with empty geometry and address columns.
`,
	RunE: func(_ *cobra.Command, args []string) error {
		addresses, err := geocodeOptions.readQueries(args)
		if err != nil {
			return err
		}

		if len(addresses) == 0 {
			return errors.New("no addresses given: pass them as arguments or via --input")
		}

		g, err := geocodeOptions.newGeocoder(len(addresses), "Geocoding")
		if err != nil {
			return err
		}

		table, err := geocode.GeocodeWith(context.Background(), addresses, g)
		if err != nil {
			return err
		}

		return geocodeOptions.writeTable(geocode.ModeForward, table)
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
	geocodeOptions.register(geocodeCmd)
}
