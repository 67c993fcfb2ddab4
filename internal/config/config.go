//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for dwctl.
// Configuration is loaded from config files and CLI flags (no environment
// variables). CLI flags take precedence over config file values.
//
// The config file doubles as the resource registry: every provisioned
// resource is addressed through a logical role here (bucket, job names,
// function names, rule name, role names, warehouse identifiers) instead
// of names hardcoded at the call sites.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for dwctl.
type Config struct {
	// Region is the AWS region all resources are provisioned in.
	Region string `mapstructure:"region"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Storage holds object store configuration.
	Storage StorageConfig `mapstructure:"storage"`

	// Ingest holds configuration for the ingest subcommand.
	Ingest IngestConfig `mapstructure:"ingest"`

	// Jobs holds the transform stage (Glue job) registry.
	Jobs JobsConfig `mapstructure:"jobs"`

	// Functions holds the event handler (Lambda) registry.
	Functions FunctionsConfig `mapstructure:"functions"`

	// Events holds trigger wiring configuration.
	Events EventsConfig `mapstructure:"events"`

	// Roles holds the IAM role registry.
	Roles RolesConfig `mapstructure:"roles"`

	// Warehouse holds Redshift Serverless configuration.
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
}

// StorageConfig holds object store configuration.
type StorageConfig struct {
	// Bucket is the pipeline bucket name; must be globally unique.
	Bucket string `mapstructure:"bucket"`
}

// IngestConfig holds configuration for raw dataset ingestion.
type IngestConfig struct {
	// File is the local path of the dataset CSV to upload.
	File string `mapstructure:"file"`

	// Key is the object key the dataset is uploaded to.
	Key string `mapstructure:"key"`

	// Generate writes a synthetic dataset to File before uploading.
	Generate bool `mapstructure:"generate"`

	// Rows is the number of rows for a generated dataset.
	Rows int `mapstructure:"rows"`
}

// JobsConfig names the two Glue transform jobs.
type JobsConfig struct {
	// CleanTransform is stage 1: raw CSV -> cleaned/typed Parquet.
	CleanTransform string `mapstructure:"clean_transform"`

	// SplitFactDim is stage 2: cleaned Parquet -> fact/dimension split.
	SplitFactDim string `mapstructure:"split_fact_dim"`
}

// FunctionsConfig names the three event handler functions.
type FunctionsConfig struct {
	// StartClean is handler A, started on a schedule; starts stage 1.
	StartClean string `mapstructure:"start_clean"`

	// SplitFactDim is handler B, fired on transformed/ objects; starts stage 2.
	SplitFactDim string `mapstructure:"split_fact_dim"`

	// LoadWarehouse is handler C, fired on curated/ objects; loads the warehouse.
	LoadWarehouse string `mapstructure:"load_warehouse"`

	// BinDir is the directory holding the compiled handler binaries,
	// one per function name, each built for linux/arm64.
	BinDir string `mapstructure:"bin_dir"`
}

// EventsConfig holds trigger wiring configuration.
type EventsConfig struct {
	// RuleName is the scheduled rule that fires handler A.
	RuleName string `mapstructure:"rule_name"`

	// Schedule is the rule's schedule expression.
	Schedule string `mapstructure:"schedule"`
}

// RolesConfig names the IAM execution roles.
type RolesConfig struct {
	GlueETL      string `mapstructure:"glue_etl"`
	LambdaETL    string `mapstructure:"lambda_etl"`
	RedshiftCopy string `mapstructure:"redshift_copy"`
	GlueCrawler  string `mapstructure:"glue_crawler"`
}

// WarehouseConfig holds Redshift Serverless configuration.
type WarehouseConfig struct {
	// Namespace is the Redshift Serverless namespace name.
	Namespace string `mapstructure:"namespace"`

	// Workgroup is the Redshift Serverless workgroup name.
	Workgroup string `mapstructure:"workgroup"`

	// Database is the warehouse database loaded and queried.
	Database string `mapstructure:"database"`

	// BaseCapacity is the workgroup capacity in RPUs.
	BaseCapacity int `mapstructure:"base_capacity"`

	// AdminUser and AdminPassword are the namespace admin credentials.
	AdminUser     string `mapstructure:"admin_user"`
	AdminPassword string `mapstructure:"admin_password"`

	// BIUser and BIPassword are the read-only analytics credentials.
	BIUser     string `mapstructure:"bi_user"`
	BIPassword string `mapstructure:"bi_password"`

	// CatalogDatabase is the Glue catalog database the crawler fills.
	CatalogDatabase string `mapstructure:"catalog_database"`

	// Crawler is the Glue crawler over the curated prefix.
	Crawler string `mapstructure:"crawler"`

	// DSN is a PostgreSQL-protocol connection string to the workgroup
	// endpoint, used by the query subcommand.
	DSN string `mapstructure:"dsn"`
}

// DefaultConfig returns a Config with default values. The defaults are
// a complete registry; only the bucket name usually needs changing.
func DefaultConfig() *Config {
	return &Config{
		Region:   "us-east-1",
		LogLevel: "info",
		Storage: StorageConfig{
			Bucket: "dp-datawarehouse-solution-1",
		},
		Ingest: IngestConfig{
			Key:  "raw/amazon_products_sales_data_uncleaned.csv",
			Rows: 5000,
		},
		Jobs: JobsConfig{
			CleanTransform: "glue-clean-transform",
			SplitFactDim:   "glue-split-fact-dim",
		},
		Functions: FunctionsConfig{
			StartClean:    "lambda-trigger-glue",
			SplitFactDim:  "lambda-split-fact-dim",
			LoadWarehouse: "lambda-load-redshift",
			BinDir:        "bin",
		},
		Events: EventsConfig{
			RuleName: "trigger-stage1-every-10min",
			Schedule: "rate(10 minutes)",
		},
		Roles: RolesConfig{
			GlueETL:      "glue-etl-role",
			LambdaETL:    "lambda-etl-role",
			RedshiftCopy: "redshift-copy-role",
			GlueCrawler:  "glue-crawler-role",
		},
		Warehouse: WarehouseConfig{
			Namespace:       "dw-namespace",
			Workgroup:       "dw-workgroup",
			Database:        "dev",
			BaseCapacity:    8,
			AdminUser:       "awsuser",
			BIUser:          "bi_user",
			CatalogDatabase: "product_db",
			Crawler:         "product-data-crawler",
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./dwctl.yaml
// 3. ~/.config/dwctl/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("dwctl")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "dwctl"))
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

// Validate checks configuration every subcommand needs.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket name is required")
	}
	return nil
}

// ValidateIngest checks configuration required for the ingest command.
func (c *Config) ValidateIngest() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Ingest.File == "" {
		return fmt.Errorf("dataset file path is required for ingest")
	}
	if !strings.HasPrefix(c.Ingest.Key, "raw/") {
		return fmt.Errorf("ingest key must be under the raw/ prefix, got %q", c.Ingest.Key)
	}
	if c.Ingest.Generate && c.Ingest.Rows < 1 {
		return fmt.Errorf("generated dataset needs at least 1 row")
	}
	return nil
}

// ValidateWarehouse checks configuration required to provision and
// load the warehouse.
func (c *Config) ValidateWarehouse() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Warehouse.Namespace == "" || c.Warehouse.Workgroup == "" {
		return fmt.Errorf("warehouse namespace and workgroup are required")
	}
	if c.Warehouse.Database == "" {
		return fmt.Errorf("warehouse database is required")
	}
	if c.Warehouse.AdminUser == "" || c.Warehouse.AdminPassword == "" {
		return fmt.Errorf("warehouse admin credentials are required")
	}
	if c.Warehouse.BaseCapacity < 8 {
		return fmt.Errorf("warehouse base capacity must be at least 8 RPUs")
	}
	return nil
}

// ValidateQuery checks configuration required for the query command.
func (c *Config) ValidateQuery() error {
	if c.Warehouse.DSN == "" {
		return fmt.Errorf("warehouse dsn is required for query")
	}
	return nil
}
