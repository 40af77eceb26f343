//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package api serves the read-only retail insights JSON API over the
// warehouse views.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/pgEdge/pgedge-ducklens/internal/logging"
	"github.com/pgEdge/pgedge-ducklens/internal/warehouse"
)

// Version is reported by the root and health endpoints.
const Version = "2.0.0"

// Page size bounds.
const (
	DefaultPromoLimit = 20
	MaxPromoLimit     = 100
	DefaultStoreLimit = 50
	MaxStoreLimit     = 500
)

// Store is the read side of the warehouse used by the handlers.
type Store interface {
	Ping(ctx context.Context) error
	DataQuality(ctx context.Context) (*warehouse.DataQuality, error)
	PromoSummary(ctx context.Context) (*warehouse.PromoSummary, error)
	TopPromoSKUs(ctx context.Context, limit int) ([]warehouse.SKUPerformance, error)
	StoreLevelIndex(ctx context.Context, f warehouse.StoreLevelFilter) ([]warehouse.StoreLevelIndex, error)
	OverallIndex(ctx context.Context, category string) ([]warehouse.OverallIndex, error)
	IndexByCategory(ctx context.Context) ([]warehouse.CategoryIndex, error)
}

var _ Store = (*warehouse.Store)(nil)

// Config holds the HTTP server settings.
type Config struct {
	Listen string

	// CORSOrigins lists allowed origins. Empty allows any origin.
	CORSOrigins []string

	PromoLimit int
	StoreLimit int
}

// Server is the query API.
type Server struct {
	store  Store
	cfg    Config
	router chi.Router
}

// NewServer creates the API server and its routes.
func NewServer(store Store, cfg Config) *Server {
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.PromoLimit <= 0 {
		cfg.PromoLimit = DefaultPromoLimit
	}
	if cfg.StoreLimit <= 0 {
		cfg.StoreLimit = DefaultStoreLimit
	}

	s := &Server{store: store, cfg: cfg}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/data_quality", s.handleDataQuality)
	r.Get("/promo_summary", s.handlePromoSummary)
	r.Get("/promo_kpis", s.handlePromoKPIs)

	r.Route("/price_index", func(r chi.Router) {
		r.Get("/store_level", s.handleStoreLevel)
		r.Get("/overall", s.handleOverall)
		r.Get("/by_category", s.handleByCategory)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, http.StatusNotFound, "not found")
	})

	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().
			Str("listen", s.cfg.Listen).
			Msg("Starting query API")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logging.Info().Msg("Shutting down query API")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logging.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}
