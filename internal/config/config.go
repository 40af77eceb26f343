//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-ducklens.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/pgEdge/pgedge-ducklens/internal/transform"
)

// Config holds all configuration for pgedge-ducklens.
type Config struct {
	// Connection is the PostgreSQL connection string.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Ingest holds configuration for the ingest subcommand.
	Ingest IngestConfig `mapstructure:"ingest"`

	// Transform holds the business rules applied by the run subcommand.
	Transform TransformConfig `mapstructure:"transform"`

	// Serve holds configuration for the query API.
	Serve ServeConfig `mapstructure:"serve"`

	// Generate holds configuration for the sample data generator.
	Generate GenerateConfig `mapstructure:"generate"`
}

// IngestConfig holds configuration for workbook ingestion.
type IngestConfig struct {
	// File is the path of the POS workbook.
	File string `mapstructure:"file"`

	// Sheet selects a sheet by name; the first sheet is used when empty.
	Sheet string `mapstructure:"sheet"`
}

// TransformConfig holds the promo and price index thresholds.
type TransformConfig struct {
	PromoMinDiscount        float64 `mapstructure:"promo_min_discount"`
	PromoMinDays            int     `mapstructure:"promo_min_days"`
	BrandMatch              string  `mapstructure:"brand_match"`
	PremiumThreshold        float64 `mapstructure:"premium_threshold"`
	DiscountThreshold       float64 `mapstructure:"discount_threshold"`
	SlightPremiumThreshold  float64 `mapstructure:"slight_premium_threshold"`
	SlightDiscountThreshold float64 `mapstructure:"slight_discount_threshold"`
}

// ServeConfig holds configuration for the HTTP API.
type ServeConfig struct {
	// Listen is the address the API binds to.
	Listen string `mapstructure:"listen"`

	// CORSOrigins lists allowed origins; empty allows any origin.
	CORSOrigins []string `mapstructure:"cors_origins"`

	// PromoLimit is the default page size of /promo_kpis.
	PromoLimit int `mapstructure:"promo_limit"`

	// StoreLimit is the default page size of /price_index/store_level.
	StoreLimit int `mapstructure:"store_limit"`
}

// GenerateConfig holds configuration for sample workbook generation.
type GenerateConfig struct {
	Rows   int    `mapstructure:"rows"`
	Stores int    `mapstructure:"stores"`
	Items  int    `mapstructure:"items"`
	Days   int    `mapstructure:"days"`
	Seed   uint64 `mapstructure:"seed"`
	Output string `mapstructure:"output"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	rules := transform.DefaultRules()
	return &Config{
		LogLevel: "info",
		Transform: TransformConfig{
			PromoMinDiscount:        rules.PromoMinDiscount,
			PromoMinDays:            rules.PromoMinDays,
			BrandMatch:              rules.BrandMatch,
			PremiumThreshold:        rules.PremiumThreshold,
			DiscountThreshold:       rules.DiscountThreshold,
			SlightPremiumThreshold:  rules.SlightPremiumThreshold,
			SlightDiscountThreshold: rules.SlightDiscountThreshold,
		},
		Serve: ServeConfig{
			Listen:     ":8000",
			PromoLimit: 20,
			StoreLimit: 50,
		},
		Generate: GenerateConfig{
			Rows:   5000,
			Stores: 12,
			Items:  60,
			Days:   7,
			Seed:   42,
			Output: "sample_pos.xlsx",
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-ducklens.yaml
// 3. ~/.config/pgedge-ducklens/pgedge-ducklens.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-ducklens")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-ducklens"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Start with defaults
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Rules returns the transform section as business rules.
func (c *Config) Rules() transform.Rules {
	t := c.Transform
	return transform.Rules{
		PromoMinDiscount:        t.PromoMinDiscount,
		PromoMinDays:            t.PromoMinDays,
		BrandMatch:              t.BrandMatch,
		PremiumThreshold:        t.PremiumThreshold,
		DiscountThreshold:       t.DiscountThreshold,
		SlightPremiumThreshold:  t.SlightPremiumThreshold,
		SlightDiscountThreshold: t.SlightDiscountThreshold,
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required")
	}
	return nil
}

// ValidateInit checks configuration required for init command.
func (c *Config) ValidateInit() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.Rules().Validate(); err != nil {
		return fmt.Errorf("invalid transform config: %w", err)
	}
	return nil
}

// ValidateIngest checks configuration required for ingest command.
func (c *Config) ValidateIngest() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Ingest.File == "" {
		return fmt.Errorf("ingest file is required")
	}
	return nil
}

// ValidateRun checks configuration required for run command.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.Rules().Validate(); err != nil {
		return fmt.Errorf("invalid transform config: %w", err)
	}
	return nil
}

// ValidateServe checks configuration required for serve command.
func (c *Config) ValidateServe() error {
	if err := c.ValidateRun(); err != nil {
		return err
	}
	if c.Serve.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Serve.PromoLimit < 1 || c.Serve.PromoLimit > 100 {
		return fmt.Errorf("promo_limit must be between 1 and 100")
	}
	if c.Serve.StoreLimit < 1 || c.Serve.StoreLimit > 500 {
		return fmt.Errorf("store_limit must be between 1 and 500")
	}
	return nil
}

// ValidateGenerate checks configuration required for generate command.
// No database connection is needed.
func (c *Config) ValidateGenerate() error {
	if c.Generate.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if c.Generate.Rows < 1 {
		return fmt.Errorf("rows must be at least 1")
	}
	if c.Generate.Stores < 1 {
		return fmt.Errorf("stores must be at least 1")
	}
	if c.Generate.Items < 2 {
		return fmt.Errorf("items must be at least 2")
	}
	if c.Generate.Days < 1 {
		return fmt.Errorf("days must be at least 1")
	}
	return nil
}
