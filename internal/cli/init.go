package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-ducklens/internal/db"
	"github.com/pgEdge/pgedge-ducklens/internal/logging"
	"github.com/pgEdge/pgedge-ducklens/internal/warehouse"
)

var initDropExisting bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the staging and warehouse schema",
	Long: `Create the staging table, the dimension and fact tables, the analytical
views and the metadata table. The views embed the configured price
positioning thresholds, so re-run init after changing them.

Example:
  pgedge-ducklens init --connection "postgres://..."
  pgedge-ducklens init --drop-existing`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDropExisting, "drop-existing", false,
		"drop existing tables and views before initialization")
}

func runInit(cmd *cobra.Command, args []string) error {
	// Validate configuration
	if err := cfg.ValidateInit(); err != nil {
		return err
	}

	logging.Info().Msg("Initializing database")

	// Connect to database
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	// Drop existing schema if requested
	if initDropExisting {
		logging.Info().Msg("Dropping existing schema")
		if err := warehouse.DropSchema(ctx, pool); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
		if err := db.DropMetadata(ctx, pool); err != nil {
			logging.Debug().Err(err).Msg("No metadata table to drop")
		}
	}

	logging.Info().Msg("Creating schema")
	if err := warehouse.CreateSchema(ctx, pool, cfg.Rules()); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	err = db.SaveMetadata(ctx, pool, map[string]string{
		db.KeyInitializedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	logging.Info().Msg("Database initialization complete")

	return nil
}
