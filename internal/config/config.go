//-------------------------------------------------------------------------
//
// Marketing Analytics Warehouse
//
// Copyright (c) 2025 - 2026, Nont Fakungkun
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for marketing-etl.
// Configuration is loaded from config files and CLI flags (no environment
// variables). CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for marketing-etl.
type Config struct {
	// Connection is the PostgreSQL connection string for the warehouse.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Load holds configuration for the load subcommand.
	Load LoadConfig `mapstructure:"load"`

	// Insights holds configuration for the insights subcommand.
	Insights InsightsConfig `mapstructure:"insights"`

	// Seed holds configuration for the seed subcommand.
	Seed SeedConfig `mapstructure:"seed"`
}

// LoadConfig holds the raw source file paths for staging loads.
type LoadConfig struct {
	// Transactions is the path to the raw transactions CSV.
	Transactions string `mapstructure:"transactions"`

	// Campaigns is the path to the campaign details CSV.
	Campaigns string `mapstructure:"campaigns"`

	// Spend is the path to the daily channel spend CSV.
	Spend string `mapstructure:"spend"`

	// Promotions is the path to the promotion reference CSV.
	Promotions string `mapstructure:"promotions"`
}

// InsightsConfig holds defaults for the analytical queries.
type InsightsConfig struct {
	// TopN is the default result size for top-N queries.
	TopN int `mapstructure:"top_n"`

	// WasteMinSpend is the spend threshold for spend-waste flagging.
	WasteMinSpend float64 `mapstructure:"waste_min_spend"`

	// WasteMaxClicks is the click threshold for spend-waste flagging.
	WasteMaxClicks int64 `mapstructure:"waste_max_clicks"`

	// WasteMaxRevenue is the revenue threshold for spend-waste flagging.
	WasteMaxRevenue float64 `mapstructure:"waste_max_revenue"`
}

// SeedConfig holds configuration for demo dataset generation.
type SeedConfig struct {
	// Dir is the output directory for generated CSV files.
	Dir string `mapstructure:"dir"`

	// Transactions is the number of transaction rows to generate.
	Transactions int `mapstructure:"transactions"`

	// Campaigns is the number of campaigns to generate.
	Campaigns int `mapstructure:"campaigns"`

	// Days is the number of calendar days the dataset spans.
	Days int `mapstructure:"days"`

	// MalformedRate is the fraction of rows given unparseable dates
	// or numerics, to exercise the pipeline's row-level tolerance.
	MalformedRate float64 `mapstructure:"malformed_rate"`

	// RandomSeed makes generation reproducible when non-zero.
	RandomSeed uint64 `mapstructure:"random_seed"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Insights: InsightsConfig{
			TopN:            10,
			WasteMinSpend:   5000,
			WasteMaxClicks:  100,
			WasteMaxRevenue: 3000,
		},
		Seed: SeedConfig{
			Dir:           "data/raw",
			Transactions:  10000,
			Campaigns:     25,
			Days:          365,
			MalformedRate: 0.01,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./marketing-etl.yaml
// 3. ~/.config/marketing-etl/marketing-etl.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("marketing-etl")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "marketing-etl"))
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

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required")
	}
	return nil
}

// ValidateLoad checks configuration required for the load command.
func (c *Config) ValidateLoad() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Load.Transactions == "" {
		return fmt.Errorf("transactions source path is required")
	}
	if c.Load.Campaigns == "" {
		return fmt.Errorf("campaigns source path is required")
	}
	if c.Load.Spend == "" {
		return fmt.Errorf("spend source path is required")
	}
	if c.Load.Promotions == "" {
		return fmt.Errorf("promotions source path is required")
	}
	return nil
}

// ValidateInsights checks configuration required for the insights command.
func (c *Config) ValidateInsights() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Insights.TopN < 1 {
		return fmt.Errorf("top_n must be at least 1")
	}
	if c.Insights.WasteMinSpend < 0 {
		return fmt.Errorf("waste_min_spend must be non-negative")
	}
	if c.Insights.WasteMaxClicks < 0 {
		return fmt.Errorf("waste_max_clicks must be non-negative")
	}
	if c.Insights.WasteMaxRevenue < 0 {
		return fmt.Errorf("waste_max_revenue must be non-negative")
	}
	return nil
}

// ValidateSeed checks configuration required for the seed command.
// Seeding writes local files only and does not require a connection.
func (c *Config) ValidateSeed() error {
	if c.Seed.Dir == "" {
		return fmt.Errorf("seed output directory is required")
	}
	if c.Seed.Transactions < 1 {
		return fmt.Errorf("seed transactions must be at least 1")
	}
	if c.Seed.Campaigns < 1 {
		return fmt.Errorf("seed campaigns must be at least 1")
	}
	if c.Seed.Days < 1 {
		return fmt.Errorf("seed days must be at least 1")
	}
	if c.Seed.MalformedRate < 0 || c.Seed.MalformedRate >= 1 {
		return fmt.Errorf("seed malformed_rate must be in [0, 1)")
	}
	return nil
}
