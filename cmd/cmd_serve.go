// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/geobatch/geostore"
	"github.com/jcodagnone/geobatch/server"
)

var serveOptions = &batchOptions{}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the geocoding API over HTTP",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := os.MkdirAll(serveOptions.dbPath, 0o750); err != nil {
			return fmt.Errorf("creating db directory: %w", err)
		}

		db, err := sql.Open("duckdb", filepath.Join(serveOptions.dbPath, "geobatch.duckdb"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		repo := geostore.NewRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		log.Printf("listening on %s", serveAddr)

		return server.NewServer(repo, serveOptions.geocodeOptions()).Run(serveAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveOptions.register(serveCmd)
	serveCmd.PersistentFlags().StringVar(&serveAddr, "addr", "localhost:8080", "Address to listen on")
}
