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

var functionsBinDir string

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "Manage the pipeline event handlers",
}

var functionsDeployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Package and deploy the three event handlers",
	Long: `Zip the compiled handler binaries and create or update the three
Lambda functions. The binaries directory must hold one binary per
configured function name, built for linux/arm64.

Example:
  dwctl functions deploy --bin-dir ./dist`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if functionsBinDir != "" {
			cfg.Functions.BinDir = functionsBinDir
		}

		clients, err := newClients(ctx)
		if err != nil {
			return err
		}

		roleARN := clients.RoleARN(cfg.Roles.LambdaETL)
		if err := provision.DeployFunctions(ctx, clients.Lambda, cfg, roleARN); err != nil {
			return err
		}
		logging.Info().Msg("Handlers deployed")
		return nil
	},
}

func init() {
	functionsDeployCmd.Flags().StringVar(&functionsBinDir, "bin-dir", "",
		"directory holding the compiled handler binaries")
	functionsCmd.AddCommand(functionsDeployCmd)
}
