package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-ducklens/internal/api"
	"github.com/pgEdge/pgedge-ducklens/internal/db"
	"github.com/pgEdge/pgedge-ducklens/internal/logging"
	"github.com/pgEdge/pgedge-ducklens/internal/warehouse"
)

var (
	serveListen      string
	serveCORSOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only insights API",
	Long: `Serve promotion and price index insights as JSON over HTTP. The API
reads the warehouse views only and runs until interrupted with Ctrl+C.

Example:
  pgedge-ducklens serve --listen :8000
  pgedge-ducklens serve --cors-origin http://localhost:3000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"listen address (default: :8000)")
	serveCmd.Flags().StringSliceVar(&serveCORSOrigins, "cors-origin", nil,
		"allowed CORS origin (repeatable; default: any)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if serveListen != "" {
		cfg.Serve.Listen = serveListen
	}
	if len(serveCORSOrigins) > 0 {
		cfg.Serve.CORSOrigins = serveCORSOrigins
	}

	// Validate configuration
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	server := api.NewServer(warehouse.NewStore(pool, cfg.Rules()), api.Config{
		Listen:      cfg.Serve.Listen,
		CORSOrigins: cfg.Serve.CORSOrigins,
		PromoLimit:  cfg.Serve.PromoLimit,
		StoreLimit:  cfg.Serve.StoreLimit,
	})

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logging.Info().Msg("Query API stopped")
	return nil
}
