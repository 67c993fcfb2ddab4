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
	"github.com/spf13/cobra"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/provision"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Manage the pipeline bucket",
}

var storageCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the pipeline bucket with its prefix layout",
	Long: `Create the pipeline bucket with versioning, encryption at rest and
the raw/, transformed/, curated/, scripts/ and runs/ prefixes. The
command is idempotent; an existing bucket is left as is.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		clients, err := newClients(ctx)
		if err != nil {
			return err
		}

		if err := provision.EnsureBucket(ctx, clients.S3, cfg.Storage.Bucket, cfg.Region); err != nil {
			return err
		}
		logging.Info().Str("bucket", cfg.Storage.Bucket).Msg("Storage ready")
		return nil
	},
}

func init() {
	storageCmd.AddCommand(storageCreateCmd)
}
