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
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/pipeline"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/provision"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active pipeline run and provisioned resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		clients, err := newClients(ctx)
		if err != nil {
			return err
		}

		status := &provision.Status{
			Storage:    clients.S3,
			Functions:  clients.Lambda,
			Jobs:       clients.Glue,
			Catalog:    clients.Glue,
			Rules:      clients.Events,
			Serverless: clients.Redshift,
			Roles:      clients.IAM,
			Cfg:        cfg,
		}
		checks, err := status.Check(ctx)
		if err != nil {
			return err
		}

		bucketExists := false
		cmd.Println("Resources:")
		for _, c := range checks {
			mark := "missing"
			if c.Exists {
				mark = "ok"
			}
			if c.Kind == "bucket" {
				bucketExists = c.Exists
			}
			cmd.Printf("  %-10s %-40s %s\n", c.Kind, c.Name, mark)
		}

		if !bucketExists {
			return nil
		}

		cmd.Println()
		store := pipeline.NewStore(clients.S3, cfg.Storage.Bucket)
		lease, err := store.Current(ctx)
		switch {
		case errors.Is(err, pipeline.ErrNoActiveRun):
			cmd.Println("No active run; the next schedule interval will start one.")
		case err != nil:
			return err
		default:
			cmd.Printf("Run:      %s\n", lease.RunID)
			cmd.Printf("State:    %s\n", lease.State)
			cmd.Printf("Started:  %s\n", lease.StartedAt.Format(time.RFC3339))
			cmd.Printf("Expires:  %s\n", lease.ExpiresAt.Format(time.RFC3339))
			if lease.Expired(time.Now()) {
				cmd.Println("The lease has expired; the next interval will replace it.")
			}
		}
		return nil
	},
}
