//-------------------------------------------------------------------------
//
// Marketing Analytics Warehouse
//
// Copyright (c) 2025 - 2026, Nont Fakungkun
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for marketing-etl.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/NontFakungkun/marketing-etl-analytics/internal/config"
	"github.com/NontFakungkun/marketing-etl-analytics/internal/logging"
	"github.com/NontFakungkun/marketing-etl-analytics/pkg/version"
)

var (
	// Global flags
	cfgFile    string
	connection string
	logLevel   string
	noColor    bool

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "marketing-etl",
		Short: "E-commerce marketing analytics warehouse",
		Long: `marketing-etl builds a PostgreSQL star-schema warehouse from raw
e-commerce exports: customer transactions, campaign details, daily
channel ad spend, and promotion references.

The pipeline stages raw CSVs verbatim, then rebuilds conformed
dimensions and fact tables in a single transaction. KPI views merge
sales and spend per day and campaign, and the insight queries answer
the questions the warehouse exists for: which channels pay for
themselves, which products carry the catalog, and where ad spend is
being wasted.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./marketing-etl.yaml)")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(seedCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if connection != "" {
		cfg.Connection = connection
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}
