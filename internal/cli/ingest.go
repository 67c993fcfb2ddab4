//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/datagen"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/provision"
)

var (
	ingestFile     string
	ingestKey      string
	ingestGenerate bool
	ingestRows     int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Upload a dataset CSV to the raw prefix",
	Long: `Upload a product-listing CSV into the bucket's raw/ prefix, where the
scheduled transform stage picks it up. With --generate a synthetic
dataset is written first, so the pipeline can be exercised without a
real scrape export.

Example:
  dwctl ingest --file products.csv
  dwctl ingest --generate --rows 5000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Override config with CLI flags
		if ingestFile != "" {
			cfg.Ingest.File = ingestFile
		}
		if ingestKey != "" {
			cfg.Ingest.Key = ingestKey
		}
		if ingestGenerate {
			cfg.Ingest.Generate = true
		}
		if ingestRows > 0 {
			cfg.Ingest.Rows = ingestRows
		}

		if cfg.Ingest.Generate && cfg.Ingest.File == "" {
			cfg.Ingest.File = filepath.Join(".", "products-generated.csv")
		}
		if err := cfg.ValidateIngest(); err != nil {
			return err
		}

		if cfg.Ingest.Generate {
			g := datagen.NewGenerator()
			if err := g.WriteCSVFile(cfg.Ingest.File, cfg.Ingest.Rows); err != nil {
				return err
			}
			logging.Info().
				Str("file", cfg.Ingest.File).
				Int("rows", cfg.Ingest.Rows).
				Msg("Generated synthetic dataset")
		}

		clients, err := newClients(ctx)
		if err != nil {
			return err
		}
		return provision.UploadDataset(ctx, clients.S3, cfg.Storage.Bucket, cfg.Ingest.Key, cfg.Ingest.File)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "",
		"local dataset CSV to upload")
	ingestCmd.Flags().StringVar(&ingestKey, "key", "",
		"destination object key, must be under raw/")
	ingestCmd.Flags().BoolVar(&ingestGenerate, "generate", false,
		"generate a synthetic dataset before uploading")
	ingestCmd.Flags().IntVar(&ingestRows, "rows", 0,
		"row count for --generate")
}
