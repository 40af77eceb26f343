package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-ducklens/internal/db"
	"github.com/pgEdge/pgedge-ducklens/internal/logging"
	"github.com/pgEdge/pgedge-ducklens/internal/pipeline"
)

var (
	runPromoMinDiscount float64
	runPromoMinDays     int
	runBrandMatch       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Clean, enrich and load the staged snapshot into the warehouse",
	Long: `Read the current staging snapshot, clean it, compute promotion, uplift,
price index and promo coverage metrics, and replace the warehouse fact
table. The database must have been initialized with the 'init' command and
loaded with the 'ingest' command.

Example:
  pgedge-ducklens run
  pgedge-ducklens run --promo-min-discount 0.15 --promo-min-days 3`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Float64Var(&runPromoMinDiscount, "promo-min-discount", 0,
		"minimum discount vs RRP for a promo candidate (e.g. 0.10)")
	runCmd.Flags().IntVar(&runPromoMinDays, "promo-min-days", 0,
		"minimum distinct promo dates for an item to count as on promotion")
	runCmd.Flags().StringVar(&runBrandMatch, "brand", "",
		"supplier substring identifying the focus brand")
}

func runRun(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if runPromoMinDiscount > 0 {
		cfg.Transform.PromoMinDiscount = runPromoMinDiscount
	}
	if runPromoMinDays > 0 {
		cfg.Transform.PromoMinDays = runPromoMinDays
	}
	if runBrandMatch != "" {
		cfg.Transform.BrandMatch = runBrandMatch
	}

	// Validate configuration
	if err := cfg.ValidateRun(); err != nil {
		return err
	}

	// Cancel the run on shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	runner, err := pipeline.NewRunner(pipeline.Config{
		Pool:  pool,
		Rules: cfg.Rules(),
	})
	if err != nil {
		return err
	}

	report, err := runner.Run(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logging.Info().Msg("Pipeline run cancelled")
		}
		return err
	}

	pipeline.PrintSummary(report)
	return nil
}
