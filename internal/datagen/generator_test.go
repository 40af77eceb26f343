package datagen

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-ducklens/internal/cleaning"
	"github.com/pgEdge/pgedge-ducklens/internal/ingest"
	"github.com/pgEdge/pgedge-ducklens/internal/transform"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Rows = 800
	cfg.Stores = 5
	cfg.Items = 24
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"zero rows", func(c *Config) { c.Rows = 0 }, true},
		{"zero stores", func(c *Config) { c.Stores = 0 }, true},
		{"one item", func(c *Config) { c.Items = 1 }, true},
		{"zero days", func(c *Config) { c.Days = 0 }, true},
		{"dirty rate above one", func(c *Config) { c.DirtyRate = 1.5 }, true},
		{"negative bidco share", func(c *Config) { c.BidcoShare = -0.1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateIsReproducible(t *testing.T) {
	g1, err := NewGenerator(smallConfig())
	require.NoError(t, err)
	g2, err := NewGenerator(smallConfig())
	require.NoError(t, err)

	rows1, stats1 := g1.Generate()
	rows2, stats2 := g2.Generate()
	assert.Equal(t, rows1, rows2)
	assert.Equal(t, stats1, stats2)
}

func TestGenerateShape(t *testing.T) {
	cfg := smallConfig()
	g, err := NewGenerator(cfg)
	require.NoError(t, err)

	rows, stats := g.Generate()
	require.Len(t, rows, cfg.Rows)
	assert.Equal(t, cfg.Rows, stats.Rows)
	assert.Equal(t, cfg.Stores, stats.Stores)
	assert.Equal(t, cfg.Items, stats.Items)
	assert.Greater(t, stats.BidcoItems, 0)
	assert.Less(t, stats.BidcoItems, cfg.Items)

	stores := make(map[string]bool)
	for _, r := range rows {
		stores[r.StoreName] = true
		if r.DateOfSale.Valid {
			day := r.DateOfSale.Time.Sub(cfg.Start).Hours() / 24
			assert.GreaterOrEqual(t, day, 0.0)
			assert.Less(t, day, float64(cfg.Days))
		}
	}
	assert.LessOrEqual(t, len(stores), cfg.Stores)
}

func TestGenerateWithoutDirtyRows(t *testing.T) {
	cfg := smallConfig()
	cfg.DirtyRate = 0
	g, err := NewGenerator(cfg)
	require.NoError(t, err)

	rows, stats := g.Generate()
	assert.Empty(t, stats.Dirty)
	for _, r := range rows {
		assert.True(t, r.Quantity.Float64 > 0)
		assert.True(t, r.RRP.Valid)
		assert.True(t, r.DateOfSale.Valid)
	}
}

func TestGenerateDirtyRows(t *testing.T) {
	cfg := smallConfig()
	cfg.DirtyRate = 0.2
	g, err := NewGenerator(cfg)
	require.NoError(t, err)

	rows, stats := g.Generate()
	total := 0
	for _, n := range stats.Dirty {
		total += n
	}
	assert.Greater(t, total, 0)

	negatives := 0
	for _, r := range rows {
		if r.Quantity.Float64 < 0 {
			negatives++
		}
	}
	assert.GreaterOrEqual(t, negatives, stats.Dirty[DirtyNegativeQuantity])
}

func TestGeneratedWorkbookFeedsPipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.xlsx")
	stats, err := GenerateWorkbook(path, smallConfig())
	require.NoError(t, err)

	raw, err := ingest.ReadWorkbook(path, ingest.Options{Sheet: SheetName})
	require.NoError(t, err)
	require.Len(t, raw, stats.Rows)

	txns, summary := cleaning.Clean(raw)
	assert.Equal(t, stats.Rows, summary.InputRows)
	assert.NotEmpty(t, txns)

	enriched, ts := transform.Run(txns, transform.DefaultRules())
	assert.Len(t, enriched, len(txns))
	assert.Greater(t, ts.BidcoRows, 0)
	assert.Greater(t, ts.PromoRows, 0)
}

func TestGenerateWorkbookInvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Rows = 0
	_, err := GenerateWorkbook(filepath.Join(t.TempDir(), "x.xlsx"), cfg)
	assert.Error(t, err)
}
