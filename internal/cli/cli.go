//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for dwctl.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/awsc"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/config"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/pkg/version"
)

var (
	// Global flags
	cfgFile  string
	region   string
	bucket   string
	logLevel string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "dwctl",
		Short: "Provision and drive a serverless data warehouse pipeline",
		Long: `dwctl provisions an event-driven ETL pipeline on AWS: a bucket for
raw, transformed and curated data, two Glue transform stages, three
Lambda handlers chained by a schedule and bucket notifications, and a
Redshift Serverless warehouse loaded from the curated snapshot.

Every resource dwctl creates is tagged, and teardown removes only
resources carrying the tag.`,
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
		"config file (default: ./dwctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&region, "region", "",
		"AWS region")
	rootCmd.PersistentFlags().StringVar(&bucket, "bucket", "",
		"pipeline bucket name")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(storageCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(rolesCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(functionsCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(warehouseCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(teardownCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if region != "" {
		cfg.Region = region
	}
	if bucket != "" {
		cfg.Storage.Bucket = bucket
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return cfg.Validate()
}

// newClients builds the service clients for the configured region.
func newClients(ctx context.Context) (*awsc.Clients, error) {
	return awsc.New(ctx, cfg.Region)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}
