//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline runs the batch ETL: staging snapshot, cleaning,
// enrichment and the warehouse load.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-ducklens/internal/cleaning"
	"github.com/pgEdge/pgedge-ducklens/internal/db"
	"github.com/pgEdge/pgedge-ducklens/internal/ingest"
	"github.com/pgEdge/pgedge-ducklens/internal/logging"
	"github.com/pgEdge/pgedge-ducklens/internal/staging"
	"github.com/pgEdge/pgedge-ducklens/internal/transform"
	"github.com/pgEdge/pgedge-ducklens/internal/warehouse"
)

// ErrNotInitialized is returned when the warehouse schema was never created.
var ErrNotInitialized = errors.New(
	"database has not been initialized; run 'pgedge-ducklens init' first")

// Stage names used in Report.Stages.
const (
	StageStaging   = "staging"
	StageCleaning  = "cleaning"
	StageTransform = "transform"
	StageLoad      = "load"
)

// Config holds configuration for the pipeline runner.
type Config struct {
	Pool  db.Pool
	Rules transform.Rules

	// Now and NewRunID default to time.Now and a random UUID.
	Now      func() time.Time
	NewRunID func() string
}

// Runner executes pipeline runs.
type Runner struct {
	pool     db.Pool
	rules    transform.Rules
	now      func() time.Time
	newRunID func() string
}

// StageTiming is the wall time of one pipeline stage.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// Report describes a completed run.
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Staged    int           `json:"staged"`
	Stages    []StageTiming `json:"stages"`

	Cleaning  cleaning.Summary      `json:"cleaning"`
	Transform transform.Summary     `json:"transform"`
	Load      *warehouse.LoadResult `json:"load"`
}

// NewRunner creates a pipeline runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Pool == nil {
		return nil, fmt.Errorf("a database pool is required")
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transform rules: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newRunID := cfg.NewRunID
	if newRunID == nil {
		newRunID = func() string { return uuid.NewString() }
	}

	return &Runner{
		pool:     cfg.Pool,
		rules:    cfg.Rules,
		now:      now,
		newRunID: newRunID,
	}, nil
}

// CheckInitialized returns ErrNotInitialized unless init has been run.
func (r *Runner) CheckInitialized(ctx context.Context) error {
	exists, err := db.MetadataExists(ctx, r.pool)
	if err != nil {
		return fmt.Errorf("failed to check metadata: %w", err)
	}
	if !exists {
		return ErrNotInitialized
	}
	if _, err := db.GetMetadataValue(ctx, r.pool, db.KeyInitializedAt); err != nil {
		if errors.Is(err, db.ErrNoMetadata) {
			return ErrNotInitialized
		}
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	return nil
}

// Run processes the current staging snapshot into the warehouse and
// records the run in the metadata table.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if err := r.CheckInitialized(ctx); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     r.newRunID(),
		StartedAt: r.now(),
	}

	logging.Info().
		Str("run_id", report.RunID).
		Msg("Starting pipeline run")

	stageStart := r.now()
	raw, err := staging.Load(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	report.Staged = len(raw)
	stageStart = r.finishStage(report, StageStaging, stageStart)

	if len(raw) == 0 {
		logging.Warn().Msg("Staging table is empty; the warehouse snapshot will be empty")
	}

	txns, cleanSummary := cleaning.Clean(raw)
	report.Cleaning = cleanSummary
	logging.Info().
		Int("input_rows", cleanSummary.InputRows).
		Int("output_rows", cleanSummary.OutputRows).
		Int("high_quality", cleanSummary.HighQuality).
		Int("medium_quality", cleanSummary.MediumQuality).
		Int("low_quality", cleanSummary.LowQuality).
		Int("duplicates_removed", cleanSummary.DuplicatesRemoved).
		Msg("Cleaned staging rows")
	stageStart = r.finishStage(report, StageCleaning, stageStart)

	enriched, summary := transform.Run(txns, r.rules)
	report.Transform = summary
	logging.Info().
		Int("rows", summary.TotalRows).
		Int("promo_rows", summary.PromoRows).
		Float64("promo_pct", summary.PromoPct).
		Float64("avg_uplift_pct", summary.AvgUpliftPct).
		Int("bidco_rows", summary.BidcoRows).
		Float64("bidco_avg_price_index", summary.BidcoAvgPriceIndex).
		Float64("avg_promo_coverage_pct", summary.AvgPromoCoveragePct).
		Msg("Enriched transactions")
	stageStart = r.finishStage(report, StageTransform, stageStart)

	report.Load, err = warehouse.Load(ctx, r.pool, enriched, report.RunID)
	if err != nil {
		return nil, err
	}
	r.finishStage(report, StageLoad, stageStart)

	report.Duration = r.now().Sub(report.StartedAt)

	err = db.SaveMetadata(ctx, r.pool, map[string]string{
		db.KeyLastRunID:   report.RunID,
		db.KeyLastRunAt:   report.StartedAt.UTC().Format(time.RFC3339),
		db.KeyLastRunRows: strconv.FormatInt(report.Load.Loaded, 10),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	return report, nil
}

func (r *Runner) finishStage(report *Report, stage string, start time.Time) time.Time {
	end := r.now()
	report.Stages = append(report.Stages, StageTiming{Stage: stage, Duration: end.Sub(start)})
	logging.Debug().
		Str("stage", stage).
		Dur("duration", end.Sub(start)).
		Msg("Stage complete")
	return end
}

// PrintSummary logs a final summary of a run.
func PrintSummary(report *Report) {
	logEvent := logging.Info().
		Str("run_id", report.RunID).
		Dur("duration", report.Duration).
		Int("staged", report.Staged).
		Int("cleaned", report.Cleaning.OutputRows).
		Int("enriched", report.Transform.TotalRows)

	if report.Load != nil {
		logEvent = logEvent.
			Int64("loaded", report.Load.Loaded).
			Int("skipped", report.Load.Skipped)
	}

	logEvent.Msg("Final summary")

	if report.Load == nil {
		return
	}
	for i, s := range report.Load.TopSuppliers {
		logging.Info().
			Int("rank", i+1).
			Str("supplier", s.Supplier).
			Int("transactions", s.Transactions).
			Msg("Top supplier")
	}
}

// Ingest reads a POS workbook and replaces the staging snapshot with it.
func Ingest(ctx context.Context, pool db.Pool, path string, opts ingest.Options) (int64, error) {
	rows, err := ingest.ReadWorkbook(path, opts)
	if err != nil {
		return 0, err
	}

	n, err := staging.Replace(ctx, pool, rows)
	if err != nil {
		return 0, err
	}

	err = db.SaveMetadata(ctx, pool, map[string]string{
		db.KeyLastIngestAt:  time.Now().UTC().Format(time.RFC3339),
		db.KeyLastIngestSrc: path,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record ingest: %w", err)
	}

	logging.Info().
		Str("file", path).
		Int64("rows", n).
		Msg("Ingested workbook")

	return n, nil
}
