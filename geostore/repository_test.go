// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package geostore

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/jcodagnone/geobatch/geocode"
)

func setupTestDB(t *testing.T) (*sql.DB, Repository) {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	repo := NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return db, repo
}

// fixtureTable builds a forward table with a geocoded row, a missing row
// and a row at the origin.
func fixtureTable() *geocode.ResultTable {
	results := geocode.NewRawResults()
	results.Set("plaza", geocode.NewResult("Plaza Independencia, Montevideo", -34.9066, -56.1996))
	results.Set("nowhere", nil)
	results.Set("origin", geocode.NewResult("Null Island", 0, 0))

	return geocode.BuildTable(results, geocode.ModeForward)
}

func TestCreateSchema(t *testing.T) {
	db, _ := setupTestDB(t)
	defer db.Close()

	var tableName string

	err := db.QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = 'geocode_results'").Scan(&tableName)
	if err != nil {
		t.Fatalf("Table not created: %v", err)
	}

	if tableName != "geocode_results" {
		t.Errorf("Expected table 'geocode_results', got '%s'", tableName)
	}
}

func TestSaveAndLoadBatch(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	if err := repo.SaveBatch("montevideo", geocode.ModeForward, fixtureTable()); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}

	loaded, mode, err := repo.LoadBatch("montevideo")
	if err != nil {
		t.Fatalf("LoadBatch() error = %v", err)
	}

	if mode != geocode.ModeForward {
		t.Errorf("mode = %v, want forward", mode)
	}

	if loaded.CRS() != geocode.CRS {
		t.Errorf("CRS = %q, want %q", loaded.CRS(), geocode.CRS)
	}

	keys := loaded.Keys()
	want := []string{"plaza", "nowhere", "origin"}

	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}

	for i, key := range want {
		if keys[i] != key {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], key)
		}
	}

	plaza, ok := loaded.Row("plaza")
	if !ok {
		t.Fatal("Row(plaza) not found")
	}

	if !plaza.Address.Valid || plaza.Address.String != "Plaza Independencia, Montevideo" {
		t.Errorf("plaza address = %+v", plaza.Address)
	}

	if plaza.Geometry.Lat != -34.9066 || plaza.Geometry.Lng != -56.1996 {
		t.Errorf("plaza geometry = %v", plaza.Geometry)
	}

	nowhere, _ := loaded.Row("nowhere")
	if nowhere.Address.Valid {
		t.Errorf("nowhere address should be null, got %q", nowhere.Address.String)
	}

	if !nowhere.Geometry.IsEmpty() {
		t.Errorf("nowhere geometry should be empty, got %v", nowhere.Geometry)
	}

	origin, _ := loaded.Row("origin")
	if origin.Geometry.IsEmpty() {
		t.Error("origin geometry should not be empty")
	}

	if origin.Geometry.Lat != 0 || origin.Geometry.Lng != 0 {
		t.Errorf("origin geometry = %v, want (0, 0)", origin.Geometry)
	}
}

func TestSaveBatchReplacesExisting(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	if err := repo.SaveBatch("run", geocode.ModeForward, fixtureTable()); err != nil {
		t.Fatalf("first SaveBatch() error = %v", err)
	}

	results := geocode.NewRawResults()
	results.Set("only", geocode.NewResult("Somewhere", 1.5, 2.5))

	if err := repo.SaveBatch("run", geocode.ModeForward, geocode.BuildTable(results, geocode.ModeForward)); err != nil {
		t.Fatalf("second SaveBatch() error = %v", err)
	}

	loaded, _, err := repo.LoadBatch("run")
	if err != nil {
		t.Fatalf("LoadBatch() error = %v", err)
	}

	if loaded.Len() != 1 {
		t.Errorf("Len() = %d, want 1", loaded.Len())
	}
}

func TestSaveBatchComputesH3(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	if err := repo.SaveBatch("h3", geocode.ModeForward, fixtureTable()); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}

	var res1, res8 sql.NullInt64

	err := db.QueryRow(`SELECT h3_res1, h3_res8 FROM geocode_results WHERE key = 'plaza'`).Scan(&res1, &res8)
	if err != nil {
		t.Fatalf("query h3 columns: %v", err)
	}

	if !res1.Valid || !res8.Valid {
		t.Fatal("h3 columns should be set for geocoded rows")
	}

	if res1.Int64 == res8.Int64 {
		t.Error("h3 resolutions 1 and 8 should differ")
	}

	err = db.QueryRow(`SELECT h3_res1 FROM geocode_results WHERE key = 'nowhere'`).Scan(&res1)
	if err != nil {
		t.Fatalf("query missing row: %v", err)
	}

	if res1.Valid {
		t.Error("h3 columns should be NULL for missing rows")
	}
}

func TestLoadBatchNotFound(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	_, _, err := repo.LoadBatch("missing")
	if !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("LoadBatch() error = %v, want ErrBatchNotFound", err)
	}
}

func TestReverseModeRoundTrip(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	results := geocode.NewRawResults()
	// reverse providers report (lng, lat) pairs
	results.Set("0", geocode.NewResult("18 de Julio 1234", -56.18, -34.905))

	table := geocode.BuildTable(results, geocode.ModeReverse)

	if err := repo.SaveBatch("rev", geocode.ModeReverse, table); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}

	loaded, mode, err := repo.LoadBatch("rev")
	if err != nil {
		t.Fatalf("LoadBatch() error = %v", err)
	}

	if mode != geocode.ModeReverse {
		t.Errorf("mode = %v, want reverse", mode)
	}

	row, _ := loaded.Row("0")
	if row.Geometry.Lat != -34.905 || row.Geometry.Lng != -56.18 {
		t.Errorf("geometry = %v", row.Geometry)
	}
}

func TestListAndDeleteBatches(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	if err := repo.SaveBatch("first", geocode.ModeForward, fixtureTable()); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}

	if err := repo.SaveBatch("second", geocode.ModeReverse, fixtureTable()); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}

	batches, err := repo.ListBatches()
	if err != nil {
		t.Fatalf("ListBatches() error = %v", err)
	}

	if len(batches) != 2 {
		t.Fatalf("ListBatches() returned %d batches, want 2", len(batches))
	}

	for _, info := range batches {
		if info.RowCount != 3 {
			t.Errorf("batch %q row count = %d, want 3", info.Name, info.RowCount)
		}

		if info.CRS != geocode.CRS {
			t.Errorf("batch %q crs = %q, want %q", info.Name, info.CRS, geocode.CRS)
		}
	}

	if err := repo.DeleteBatch("first"); err != nil {
		t.Fatalf("DeleteBatch() error = %v", err)
	}

	batches, err = repo.ListBatches()
	if err != nil {
		t.Fatalf("ListBatches() error = %v", err)
	}

	if len(batches) != 1 || batches[0].Name != "second" {
		t.Errorf("ListBatches() after delete = %+v", batches)
	}

	if err := repo.DeleteBatch("first"); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("DeleteBatch() error = %v, want ErrBatchNotFound", err)
	}
}
