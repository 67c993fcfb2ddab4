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
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/warehouse"
)

var warehouseCmd = &cobra.Command{
	Use:   "warehouse",
	Short: "Manage the serverless warehouse",
}

var warehouseCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the namespace, workgroup, catalog and BI user",
	Long: `Create the Redshift Serverless namespace and workgroup, wait for the
workgroup to become available, register the catalog database and
crawler over the curated prefix, create the warehouse tables and the
read-only analytics user.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.ValidateWarehouse(); err != nil {
			return err
		}

		clients, err := newClients(ctx)
		if err != nil {
			return err
		}

		copyRoleARN := clients.RoleARN(cfg.Roles.RedshiftCopy)
		if err := provision.EnsureNamespace(ctx, clients.Redshift, cfg.Warehouse, copyRoleARN); err != nil {
			return err
		}
		if err := provision.EnsureWorkgroup(ctx, clients.Redshift, cfg.Warehouse); err != nil {
			return err
		}
		if err := provision.WaitForWorkgroup(ctx, clients.Redshift, cfg.Warehouse.Workgroup,
			provision.WorkgroupWaitTimeout); err != nil {
			return err
		}

		crawlerRoleARN := clients.RoleARN(cfg.Roles.GlueCrawler)
		if err := provision.EnsureCatalog(ctx, clients.Glue, cfg.Warehouse,
			cfg.Storage.Bucket, crawlerRoleARN); err != nil {
			return err
		}

		loader := warehouse.NewLoader(clients.RedshiftData,
			cfg.Warehouse.Workgroup, cfg.Warehouse.Database,
			cfg.Storage.Bucket, copyRoleARN)
		if err := loader.EnsureTables(ctx); err != nil {
			return err
		}
		if cfg.Warehouse.BIUser != "" {
			if err := loader.EnsureBIUser(ctx, cfg.Warehouse.BIUser, cfg.Warehouse.BIPassword); err != nil {
				return err
			}
		}

		logging.Info().
			Str("namespace", cfg.Warehouse.Namespace).
			Str("workgroup", cfg.Warehouse.Workgroup).
			Msg("Warehouse ready")
		return nil
	},
}

var warehouseLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Bulk-load the curated snapshot into the warehouse",
	Long: `Run the staged load manually: copy the curated snapshot of each table
into staging and swap the staging tables in. This is the same code
path the curated-prefix handler runs; re-running it replaces the
warehouse contents with the current snapshot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.ValidateWarehouse(); err != nil {
			return err
		}

		clients, err := newClients(ctx)
		if err != nil {
			return err
		}

		loader := warehouse.NewLoader(clients.RedshiftData,
			cfg.Warehouse.Workgroup, cfg.Warehouse.Database,
			cfg.Storage.Bucket, clients.RoleARN(cfg.Roles.RedshiftCopy))
		if err := loader.EnsureTables(ctx); err != nil {
			return err
		}
		return loader.Load(ctx)
	},
}

func init() {
	warehouseCmd.AddCommand(warehouseCreateCmd)
	warehouseCmd.AddCommand(warehouseLoadCmd)
}
