// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/geobatch/geocode"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Lists the available geocoding providers",
	RunE: func(_ *cobra.Command, _ []string) error {
		notes := map[string]string{
			"google":    "requires an API key (--api-key or GOOGLE_MAPS_API_KEY)",
			"nominatim": "public instance, set a descriptive --user-agent",
			"photon":    "public instance, no key required",
		}

		a, b := strings.Repeat("─", 12), strings.Repeat("─", 56)
		fmt.Println("Available providers:")
		fmt.Printf("╭─%-12s─┬─%-56s╮\n", a, b)
		fmt.Printf("│ %-12s │ %-56s│\n", "Name", "Notes")
		fmt.Printf("├─%-12s─┼─%-56s┤\n", a, b)

		for _, name := range geocode.Providers() {
			fmt.Printf("│ %-12s │ %-56s│\n", name, notes[name])
		}

		fmt.Printf("╰─%-12s─┴─%-56s╯\n", a, b)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
