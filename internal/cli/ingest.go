package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-ducklens/internal/db"
	"github.com/pgEdge/pgedge-ducklens/internal/ingest"
	"github.com/pgEdge/pgedge-ducklens/internal/pipeline"
)

var (
	ingestFile  string
	ingestSheet string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a POS workbook into the staging table",
	Long: `Read a point-of-sale .xlsx workbook and replace the contents of
staging.stg_sales_raw with its rows. Values are staged as read; cleaning
happens in the 'run' command.

Example:
  pgedge-ducklens ingest --file Test_Data.xlsx
  pgedge-ducklens ingest --file pos.xlsx --sheet "Week 38"`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "",
		"path of the .xlsx workbook")
	ingestCmd.Flags().StringVar(&ingestSheet, "sheet", "",
		"sheet name (default: first sheet)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if ingestFile != "" {
		cfg.Ingest.File = ingestFile
	}
	if ingestSheet != "" {
		cfg.Ingest.Sheet = ingestSheet
	}

	// Validate configuration
	if err := cfg.ValidateIngest(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	_, err = pipeline.Ingest(ctx, pool, cfg.Ingest.File, ingest.Options{Sheet: cfg.Ingest.Sheet})
	return err
}
