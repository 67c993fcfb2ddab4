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

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage the pipeline IAM roles",
}

var rolesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the four pipeline roles with their managed policies",
	Long: `Create the Glue ETL, Lambda handler, Redshift copy and Glue crawler
roles. Existing roles are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		clients, err := newClients(ctx)
		if err != nil {
			return err
		}

		if err := provision.EnsureRoles(ctx, clients.IAM, cfg.Roles); err != nil {
			return err
		}
		logging.Info().Msg("Roles ready")
		return nil
	},
}

func init() {
	rolesCmd.AddCommand(rolesCreateCmd)
}
