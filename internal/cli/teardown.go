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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/provision"
)

var teardownYes bool

var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Delete every pipeline resource named by the config",
	Long: `Delete the schedule rule, handlers, jobs, catalog, warehouse, bucket
and roles named in the configuration. Resources missing the dwctl tag
are refused; deletions are best-effort, and the command reports how
many failed.

The bucket is emptied first, including all object versions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !teardownYes {
			return fmt.Errorf("teardown deletes the bucket and warehouse; re-run with --yes to confirm")
		}

		ctx := cmd.Context()
		clients, err := newClients(ctx)
		if err != nil {
			return err
		}

		td := &provision.Teardown{
			Storage:     clients.S3,
			Functions:   clients.Lambda,
			Jobs:        clients.Glue,
			Catalog:     clients.Glue,
			Rules:       clients.Events,
			Serverless:  clients.Redshift,
			Roles:       clients.IAM,
			Cfg:         cfg,
			FunctionARN: clients.FunctionARN,
		}

		if failed := td.Run(ctx); failed > 0 {
			return fmt.Errorf("teardown finished with %d failed deletions", failed)
		}
		logging.Info().Msg("Teardown complete")
		return nil
	},
}

func init() {
	teardownCmd.Flags().BoolVar(&teardownYes, "yes", false,
		"confirm deletion")
}
