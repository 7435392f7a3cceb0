// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes batch geocoding over HTTP.
package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jcodagnone/geobatch/geocode"
	"github.com/jcodagnone/geobatch/geostore"
	"github.com/jcodagnone/geobatch/spatial"
)

type Server struct {
	repo geostore.Repository // nil disables batch persistence
	opts geocode.Options
}

// NewServer creates a server. repo may be nil, in which case the batch
// endpoints answer 404.
func NewServer(repo geostore.Repository, opts geocode.Options) *Server {
	return &Server{repo: repo, opts: opts}
}

func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", s.health)
	r.GET("/api/providers", s.listProviders)
	r.POST("/api/geocode", s.geocodeBatch)
	r.POST("/api/reverse", s.reverseBatch)
	r.GET("/api/batches", s.listBatches)
	r.GET("/api/batches/:name", s.getBatch)
	r.DELETE("/api/batches/:name", s.deleteBatch)

	return r
}

func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listProviders(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"providers": geocode.Providers()})
}

type rowResponse struct {
	Key     string         `json:"key"`
	Address *string        `json:"address"`
	Point   *spatial.Point `json:"point"`
}

type tableResponse struct {
	CRS  string        `json:"crs"`
	Mode string        `json:"mode"`
	Rows []rowResponse `json:"rows"`
}

func newTableResponse(table *geocode.ResultTable, mode geocode.Mode) tableResponse {
	resp := tableResponse{
		CRS:  table.CRS(),
		Mode: mode.String(),
		Rows: make([]rowResponse, 0, table.Len()),
	}

	for _, row := range table.Rows() {
		rr := rowResponse{Key: row.Key}

		if row.Address.Valid {
			address := row.Address.String
			rr.Address = &address
		}

		if !row.Geometry.IsEmpty() {
			point := row.Geometry
			rr.Point = &point
		}

		resp.Rows = append(resp.Rows, rr)
	}

	return resp
}

// writeBatchError maps geocoding failures to HTTP statuses. An unknown
// provider is the caller's mistake; everything a provider throws back at
// us is an upstream failure.
func writeBatchError(ctx *gin.Context, err error) {
	var geoErr *geocode.GeocodingError

	switch {
	case errors.Is(err, geocode.ErrProviderNotFound):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &geoErr):
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

type geocodeRequest struct {
	Provider  string   `json:"provider"`
	Addresses []string `json:"addresses"`
	Save      string   `json:"save,omitempty"`
}

func (s *Server) geocodeBatch(ctx *gin.Context) {
	var req geocodeRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if req.Provider == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "provider is required"})

		return
	}

	table, err := geocode.Geocode(ctx.Request.Context(), req.Addresses, req.Provider, s.opts)
	if err != nil {
		writeBatchError(ctx, err)

		return
	}

	if req.Save != "" {
		if err := s.saveBatch(ctx, req.Save, geocode.ModeForward, table); err != nil {
			return
		}
	}

	ctx.JSON(http.StatusOK, newTableResponse(table, geocode.ModeForward))
}

type pointRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type reverseRequest struct {
	Provider string         `json:"provider"`
	Points   []pointRequest `json:"points"`
	Save     string         `json:"save,omitempty"`
}

func (s *Server) reverseBatch(ctx *gin.Context) {
	var req reverseRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if req.Provider == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "provider is required"})

		return
	}

	points := make([]spatial.Point, len(req.Points))
	for i, p := range req.Points {
		points[i] = spatial.Point{Lat: p.Lat, Lng: p.Lng}
	}

	table, err := geocode.ReverseGeocode(ctx.Request.Context(), points, req.Provider, s.opts)
	if err != nil {
		writeBatchError(ctx, err)

		return
	}

	if req.Save != "" {
		if err := s.saveBatch(ctx, req.Save, geocode.ModeReverse, table); err != nil {
			return
		}
	}

	ctx.JSON(http.StatusOK, newTableResponse(table, geocode.ModeReverse))
}

// saveBatch persists the table, writing the error response itself so
// handlers can just bail out.
func (s *Server) saveBatch(ctx *gin.Context, name string, mode geocode.Mode, table *geocode.ResultTable) error {
	if s.repo == nil {
		err := errors.New("batch persistence is not configured")
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return err
	}

	if err := s.repo.SaveBatch(name, mode, table); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return err
	}

	return nil
}

func (s *Server) listBatches(ctx *gin.Context) {
	if s.repo == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "batch persistence is not configured"})

		return
	}

	batches, err := s.repo.ListBatches()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if batches == nil {
		batches = []*geostore.BatchInfo{}
	}

	ctx.JSON(http.StatusOK, gin.H{"batches": batches})
}

func (s *Server) getBatch(ctx *gin.Context) {
	if s.repo == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "batch persistence is not configured"})

		return
	}

	table, mode, err := s.repo.LoadBatch(ctx.Param("name"))
	if errors.Is(err, geostore.ErrBatchNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		return
	} else if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, newTableResponse(table, mode))
}

func (s *Server) deleteBatch(ctx *gin.Context) {
	if s.repo == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "batch persistence is not configured"})

		return
	}

	err := s.repo.DeleteBatch(ctx.Param("name"))
	if errors.Is(err, geostore.ErrBatchNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		return
	} else if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
