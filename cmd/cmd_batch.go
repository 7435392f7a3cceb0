// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jcodagnone/geobatch/geocode"
	"github.com/jcodagnone/geobatch/geostore"
	"github.com/jcodagnone/geobatch/spatial"
	"github.com/jcodagnone/geobatch/utils"
)

// batchOptions holds the flags shared by the geocode and reverse commands.
type batchOptions struct {
	provider  string
	apiKey    string
	userAgent string
	language  string
	timeout   time.Duration
	trace     bool
	input     string
	output    string
	format    string
	cacheSize int
	dbPath    string
	save      string
}

func (o *batchOptions) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&o.provider, "provider", "nominatim", "Geocoding provider to query")
	cmd.PersistentFlags().StringVar(&o.apiKey, "api-key", "", "Provider API key, when the provider needs one")
	cmd.PersistentFlags().StringVar(&o.userAgent, "user-agent", "", "User-Agent header sent to the provider")
	cmd.PersistentFlags().StringVar(&o.language, "lang", "", "Preferred language of returned labels")
	cmd.PersistentFlags().DurationVar(&o.timeout, "timeout", 10*time.Second, "Per-query timeout")
	cmd.PersistentFlags().BoolVar(&o.trace, "trace-http", false, "Display HTTP requests-responses")
	cmd.PersistentFlags().StringVar(&o.input, "input", "", "File with one query per line, - for stdin")
	cmd.PersistentFlags().StringVar(&o.output, "output", "", "Output file, stdout when empty")
	cmd.PersistentFlags().StringVar(&o.format, "format", "csv", "Output format: csv, json or geojson")
	cmd.PersistentFlags().IntVar(&o.cacheSize, "cache", 0, "Cache up to this many provider answers, 0 disables")
	cmd.PersistentFlags().StringVar(&o.dbPath, "db-path", "db", "Directory holding the DuckDB database")
	cmd.PersistentFlags().StringVar(&o.save, "save", "", "Persist the result table under this batch name")
}

func (o *batchOptions) geocodeOptions() geocode.Options {
	userAgent := o.userAgent
	if userAgent == "" {
		userAgent = fmt.Sprintf("geobatch/%s (+https://github.com/jcodagnone/geobatch)", Version)
	}

	return geocode.Options{
		APIKey:    o.apiKey,
		UserAgent: userAgent,
		Timeout:   o.timeout,
		Language:  o.language,
		Trace:     o.trace,
	}
}

// newGeocoder resolves the provider and stacks the cache and progress
// decorators around it.
func (o *batchOptions) newGeocoder(n int, description string) (geocode.Geocoder, error) {
	g, err := geocode.New(o.provider, o.geocodeOptions())
	if err != nil {
		return nil, err
	}

	if o.cacheSize > 0 {
		g = geocode.Cached(g, o.cacheSize)
	}

	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar := progressbar.NewOptions(n,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		g = &progressGeocoder{inner: g, bar: bar}
	}

	return g, nil
}

// readQueries merges positional arguments with the --input file, one
// query per non-blank line, arguments first.
func (o *batchOptions) readQueries(args []string) ([]string, error) {
	queries := append([]string(nil), args...)

	if o.input == "" {
		return queries, nil
	}

	var r io.Reader = os.Stdin

	if o.input != "-" {
		f, err := os.Open(o.input)
		if err != nil {
			return nil, fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()

		r = f
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			queries = append(queries, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	return queries, nil
}

// writeTable serializes the table in the requested format, then persists
// it when --save was given.
func (o *batchOptions) writeTable(mode geocode.Mode, table *geocode.ResultTable) error {
	var w io.Writer = os.Stdout

	if o.output != "" {
		f, err := os.Create(o.output)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()

		w = f
	}

	var err error

	switch o.format {
	case "csv":
		err = geostore.WriteCSV(w, table)
	case "json":
		err = geostore.WriteJSON(w, mode, table)
	case "geojson":
		err = geostore.WriteGeoJSON(w, table)
	default:
		return fmt.Errorf("unknown format %q: want csv, json or geojson", o.format)
	}

	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if o.save != "" {
		if err := o.persist(mode, table); err != nil {
			return fmt.Errorf("persisting batch: %w", err)
		}

		log.Printf("saved %s rows as batch %q", utils.FormatInt(int64(table.Len())), o.save)
	}

	return nil
}

func (o *batchOptions) persist(mode geocode.Mode, table *geocode.ResultTable) error {
	if err := os.MkdirAll(o.dbPath, 0o750); err != nil {
		return fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", filepath.Join(o.dbPath, "geobatch.duckdb"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	repo := geostore.NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return repo.SaveBatch(o.save, mode, table)
}

// progressGeocoder advances a progress bar as queries complete.
type progressGeocoder struct {
	inner geocode.Geocoder
	bar   *progressbar.ProgressBar
}

func (p *progressGeocoder) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	res, err := p.inner.Geocode(ctx, address)
	_ = p.bar.Add(1)

	return res, err
}

func (p *progressGeocoder) Reverse(ctx context.Context, point spatial.Point) (*geocode.Result, error) {
	res, err := p.inner.Reverse(ctx, point)
	_ = p.bar.Add(1)

	return res, err
}
