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
	"time"

	"github.com/spf13/cobra"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/provision"
)

var jobsRunID string

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage the Glue transform jobs",
}

var jobsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Upload the job scripts and register both transform jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		clients, err := newClients(ctx)
		if err != nil {
			return err
		}

		if err := provision.VerifyRole(ctx, clients.IAM, cfg.Roles.GlueETL); err != nil {
			return err
		}

		specs := provision.JobSpecs(cfg.Jobs)
		if err := provision.UploadJobScripts(ctx, clients.S3, cfg.Storage.Bucket, specs); err != nil {
			return err
		}

		roleARN := clients.RoleARN(cfg.Roles.GlueETL)
		for _, spec := range specs {
			if err := provision.EnsureJob(ctx, clients.Glue, spec, cfg.Storage.Bucket, roleARN); err != nil {
				return err
			}
		}
		logging.Info().Msg("Jobs ready")
		return nil
	},
}

var jobsStartCmd = &cobra.Command{
	Use:   "start <job-name>",
	Short: "Start one transform job outside the event chain",
	Long: `Start a registered transform job directly. The job receives the
bucket and a run token as arguments; by default a fresh token is
minted, which keeps the manual run's output separate from scheduled
runs.

Example:
  dwctl jobs start glue-clean-transform`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]

		clients, err := newClients(ctx)
		if err != nil {
			return err
		}

		runID := jobsRunID
		if runID == "" {
			runID = fmt.Sprintf("run-%d", time.Now().UnixNano())
		}

		jobRunID, err := provision.StartJob(ctx, clients.Glue, name, map[string]string{
			"--BUCKET_NAME": cfg.Storage.Bucket,
			"--RUN_ID":      runID,
		})
		if err != nil {
			return err
		}
		logging.Info().
			Str("job", name).
			Str("run_id", runID).
			Str("job_run_id", jobRunID).
			Msg("Job started")
		return nil
	},
}

func init() {
	jobsStartCmd.Flags().StringVar(&jobsRunID, "run-id", "",
		"run token to pass to the job (default: mint a new one)")
	jobsCmd.AddCommand(jobsCreateCmd)
	jobsCmd.AddCommand(jobsStartCmd)
}
