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

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/awsc"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/provision"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Manage the pipeline trigger chain",
}

var eventsWireCmd = &cobra.Command{
	Use:   "wire",
	Short: "Wire the schedule and bucket notifications to the handlers",
	Long: `Create the fixed-interval schedule rule pointing at the first
handler, and attach object-created notifications on the transformed/
and curated/ prefixes to the second and third handlers. Existing
wiring is preserved; only missing pieces are added.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		clients, err := newClients(ctx)
		if err != nil {
			return err
		}

		if err := provision.EnsureScheduleRule(ctx, clients.Events, clients.Lambda,
			cfg.Events.RuleName, cfg.Events.Schedule,
			clients.FunctionARN(cfg.Functions.StartClean),
			clients.RuleARN(cfg.Events.RuleName)); err != nil {
			return err
		}

		specs := []provision.NotificationSpec{
			{
				ID:          "transformed-to-" + cfg.Functions.SplitFactDim,
				Prefix:      provision.PrefixTransformed,
				FunctionARN: clients.FunctionARN(cfg.Functions.SplitFactDim),
			},
			{
				ID:          "curated-to-" + cfg.Functions.LoadWarehouse,
				Prefix:      provision.PrefixCurated,
				FunctionARN: clients.FunctionARN(cfg.Functions.LoadWarehouse),
			},
		}
		if err := provision.EnsureBucketNotifications(ctx, clients.S3, clients.Lambda,
			cfg.Storage.Bucket, awsc.BucketARN(cfg.Storage.Bucket), clients.AccountID, specs); err != nil {
			return err
		}

		logging.Info().Msg("Trigger chain wired")
		return nil
	},
}

func init() {
	eventsCmd.AddCommand(eventsWireCmd)
}
