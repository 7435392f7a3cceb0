// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package geostore persists geocoding result tables in DuckDB and exports
// them to interchange formats.
package geostore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uber/h3-go/v4"

	"github.com/jcodagnone/geobatch/geocode"
	"github.com/jcodagnone/geobatch/spatial"
)

// ErrBatchNotFound is returned when a named batch does not exist.
var ErrBatchNotFound = errors.New("batch not found")

// BatchInfo summarizes a persisted batch.
type BatchInfo struct {
	Name      string    `json:"name"`
	Mode      string    `json:"mode"`
	CRS       string    `json:"crs"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository handles persistence of geocoding batches.
type Repository interface {
	// CreateSchema creates the batch tables
	CreateSchema() error

	// SaveBatch stores a result table under a batch name, replacing any
	// previous batch with the same name
	SaveBatch(name string, mode geocode.Mode, table *geocode.ResultTable) error

	// LoadBatch reconstructs a result table, preserving row order
	LoadBatch(name string) (*geocode.ResultTable, geocode.Mode, error)

	// ListBatches returns the stored batches, newest first
	ListBatches() ([]*BatchInfo, error)

	// DeleteBatch removes a batch and its rows
	DeleteBatch(name string) error

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlBatchRepository struct {
	db *sql.DB
}

// NewRepository creates a new batch repository.
func NewRepository(db *sql.DB) Repository {
	return &sqlBatchRepository{db: db}
}

// DB returns the underlying database connection for advanced queries.
func (r *sqlBatchRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlBatchRepository) CreateSchema() error {
	// DuckDB needs to load the spatial extension
	_, err := r.db.Exec(`INSTALL spatial; LOAD spatial;`)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS geocode_batches_seq START 1;

		CREATE TABLE IF NOT EXISTS geocode_batches (
			id INTEGER PRIMARY KEY DEFAULT nextval('geocode_batches_seq'),
			name VARCHAR NOT NULL UNIQUE,
			mode VARCHAR NOT NULL,
			crs VARCHAR NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS geocode_results (
			batch_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			key VARCHAR NOT NULL,
			address VARCHAR,
			point POINT_2D,
			h3_res1 UBIGINT,
			h3_res2 UBIGINT,
			h3_res3 UBIGINT,
			h3_res4 UBIGINT,
			h3_res5 UBIGINT,
			h3_res6 UBIGINT,
			h3_res7 UBIGINT,
			h3_res8 UBIGINT,
			UNIQUE(batch_id, key)
		);
	`)

	return err
}

// h3Cells computes the H3 cell ids for resolutions 1..8. Empty geometries
// map to nil cells so the columns stay NULL in the database.
func h3Cells(point spatial.Point) ([8]*int64, error) {
	var cells [8]*int64

	if point.IsEmpty() {
		return cells, nil
	}

	latLng := h3.NewLatLng(point.Lat, point.Lng)
	for res := 1; res <= 8; res++ {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return cells, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
		}

		id := int64(cell)
		cells[res-1] = &id
	}

	return cells, nil
}

func (r *sqlBatchRepository) SaveBatch(name string, mode geocode.Mode, table *geocode.ResultTable) error {
	if table == nil {
		return errors.New("table can't be null")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	if err = deleteBatchTx(tx, name); err != nil && !errors.Is(err, ErrBatchNotFound) {
		if rErr := tx.Rollback(); rErr != nil {
			err = rErr
		}

		return err
	}

	var batchID int

	err = tx.QueryRow(`
		INSERT INTO geocode_batches(name, mode, crs, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, name, mode.String(), table.CRS(), time.Now()).Scan(&batchID)
	if err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			err = rErr
		}

		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO geocode_results(
			batch_id,
			seq,
			key,
			address,
			point,
			h3_res1,
			h3_res2,
			h3_res3,
			h3_res4,
			h3_res5,
			h3_res6,
			h3_res7,
			h3_res8
		)
		VALUES (?, ?, ?, ?, ST_Point(?, ?), ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			err = rErr
		}

		return err
	}
	defer stmt.Close()

	// ST_Point can't build a NULL geometry, so rows without one go
	// through a separate insert.
	nullStmt, err := tx.Prepare(`
		INSERT INTO geocode_results(batch_id, seq, key, address, point)
		VALUES (?, ?, ?, ?, NULL)
	`)
	if err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			err = rErr
		}

		return err
	}
	defer nullStmt.Close()

	for i, row := range table.Rows() {
		var address *string
		if row.Address.Valid {
			address = &row.Address.String
		}

		if row.Geometry.IsEmpty() {
			_, err = nullStmt.Exec(batchID, i, row.Key, address)
		} else {
			var cells [8]*int64

			cells, err = h3Cells(row.Geometry)
			if err == nil {
				_, err = stmt.Exec(
					batchID,
					i,
					row.Key,
					address,
					row.Geometry.Lng,
					row.Geometry.Lat,
					cells[0],
					cells[1],
					cells[2],
					cells[3],
					cells[4],
					cells[5],
					cells[6],
					cells[7],
				)
			}
		}

		if err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = rErr
			}

			return err
		}
	}

	return tx.Commit()
}

func (r *sqlBatchRepository) LoadBatch(name string) (*geocode.ResultTable, geocode.Mode, error) {
	var (
		batchID int
		modeStr string
	)

	err := r.db.QueryRow(`SELECT id, mode FROM geocode_batches WHERE name = ?`, name).
		Scan(&batchID, &modeStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, geocode.ModeForward, fmt.Errorf("%w: %q", ErrBatchNotFound, name)
	} else if err != nil {
		return nil, geocode.ModeForward, err
	}

	mode := geocode.ModeForward
	if modeStr == "reverse" {
		mode = geocode.ModeReverse
	}

	rows, err := r.db.Query(`
		SELECT key, address, point
		FROM geocode_results
		WHERE batch_id = ?
		ORDER BY seq
	`, batchID)
	if err != nil {
		return nil, mode, err
	}
	defer rows.Close()

	var tableRows []geocode.Row

	for rows.Next() {
		var (
			row     geocode.Row
			address sql.NullString
			point   spatial.Point
		)

		if err = rows.Scan(&row.Key, &address, &point); err != nil {
			return nil, mode, err
		}

		row.Address = address
		row.Geometry = point
		tableRows = append(tableRows, row)
	}

	if err = rows.Err(); err != nil {
		return nil, mode, err
	}

	return geocode.NewTable(tableRows), mode, nil
}

func (r *sqlBatchRepository) ListBatches() ([]*BatchInfo, error) {
	rows, err := r.db.Query(`
		SELECT b.name, b.mode, b.crs, b.created_at,
		       (SELECT COUNT(*) FROM geocode_results r WHERE r.batch_id = b.id) AS row_count
		FROM geocode_batches b
		ORDER BY b.created_at DESC, b.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []*BatchInfo

	for rows.Next() {
		info := &BatchInfo{}
		if err = rows.Scan(&info.Name, &info.Mode, &info.CRS, &info.CreatedAt, &info.RowCount); err != nil {
			return nil, err
		}

		batches = append(batches, info)
	}

	return batches, rows.Err()
}

func (r *sqlBatchRepository) DeleteBatch(name string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	if err = deleteBatchTx(tx, name); err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			err = rErr
		}

		return err
	}

	return tx.Commit()
}

func deleteBatchTx(tx *sql.Tx, name string) error {
	var batchID int

	err := tx.QueryRow(`SELECT id FROM geocode_batches WHERE name = ?`, name).Scan(&batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", ErrBatchNotFound, name)
	} else if err != nil {
		return err
	}

	if _, err = tx.Exec(`DELETE FROM geocode_results WHERE batch_id = ?`, batchID); err != nil {
		return err
	}

	_, err = tx.Exec(`DELETE FROM geocode_batches WHERE id = ?`, batchID)

	return err
}
