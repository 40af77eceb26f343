//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"github.com/pgEdge/pgedge-ducklens/internal/logging"
	"github.com/pgEdge/pgedge-ducklens/internal/warehouse"
)

type errorResponse struct {
	Error string `json:"error"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

func (s *Server) queryFailed(w http.ResponseWriter, r *http.Request, err error) {
	logging.Error().
		Err(err).
		Str("path", r.URL.Path).
		Msg("Query failed")
	renderError(w, r, http.StatusInternalServerError, err.Error())
}

// parseLimit reads the limit query parameter, bounded to [1, maxLimit].
func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer")
	}
	if n < 1 || n > maxLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxLimit)
	}
	return n, nil
}

type listResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

func newList[T any](data []T) listResponse[T] {
	return listResponse[T]{Data: data, Count: len(data)}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"message": "Welcome to DuckLens Retail Insights API",
		"version": Version,
		"endpoints": map[string]string{
			"health":                  "/health",
			"data_quality":            "/data_quality",
			"promo_summary":           "/promo_summary",
			"promo_kpis":              "/promo_kpis",
			"price_index_store":       "/price_index/store_level",
			"price_index_overall":     "/price_index/overall",
			"price_index_by_category": "/price_index/by_category",
		},
	})
}

type healthResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	APIVersion string `json:"api_version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "connected"
	if err := s.store.Ping(r.Context()); err != nil {
		logging.Warn().Err(err).Msg("Database ping failed")
		status = "disconnected"
	}
	render.JSON(w, r, healthResponse{Status: "ok", Database: status, APIVersion: Version})
}

type metricResponse[T any] struct {
	Metric string `json:"metric"`
	Data   []T    `json:"data"`
}

func (s *Server) handleDataQuality(w http.ResponseWriter, r *http.Request) {
	q, err := s.store.DataQuality(r.Context())
	if err != nil {
		s.queryFailed(w, r, err)
		return
	}
	render.JSON(w, r, metricResponse[warehouse.DataQuality]{
		Metric: "data_quality",
		Data:   []warehouse.DataQuality{*q},
	})
}

func (s *Server) handlePromoSummary(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.PromoSummary(r.Context())
	if err != nil {
		s.queryFailed(w, r, err)
		return
	}
	render.JSON(w, r, p)
}

func (s *Server) handlePromoKPIs(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, s.cfg.PromoLimit, MaxPromoLimit)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	skus, err := s.store.TopPromoSKUs(r.Context(), limit)
	if err != nil {
		s.queryFailed(w, r, err)
		return
	}
	render.JSON(w, r, metricResponse[warehouse.SKUPerformance]{
		Metric: "top_promo_skus",
		Data:   skus,
	})
}

func (s *Server) handleStoreLevel(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, s.cfg.StoreLimit, MaxStoreLimit)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	rows, err := s.store.StoreLevelIndex(r.Context(), warehouse.StoreLevelFilter{
		Store:         q.Get("store"),
		SubDepartment: q.Get("sub_department"),
		Positioning:   q.Get("positioning"),
		Limit:         limit,
	})
	if err != nil {
		s.queryFailed(w, r, err)
		return
	}
	render.JSON(w, r, newList(rows))
}

func (s *Server) handleOverall(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.OverallIndex(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.queryFailed(w, r, err)
		return
	}
	render.JSON(w, r, newList(rows))
}

func (s *Server) handleByCategory(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.IndexByCategory(r.Context())
	if err != nil {
		s.queryFailed(w, r, err)
		return
	}
	render.JSON(w, r, newList(rows))
}
