//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/pipeline"
)

// StartClean is the scheduled handler. Each trigger interval it tries
// to start a new pipeline run; if a previous run still holds the lease
// the interval is skipped.
type StartClean struct {
	Leases   LeaseStore
	StartJob JobStarter
	Bucket   string
	JobName  string
	LeaseTTL time.Duration
}

// Result reports what a scheduled invocation did.
type Result struct {
	RunID   string `json:"run_id,omitempty"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

// Handle acquires the run lease, starts the cleaning job with the new
// run token, and advances the lease to stage1-running. A held lease is
// a skip, not an error; the schedule retries next interval anyway.
func (h *StartClean) Handle(ctx context.Context) (Result, error) {
	log := logging.Component("start-clean")

	lease, err := h.Leases.Acquire(ctx, pipeline.StateRawUploaded, h.LeaseTTL)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunActive) {
			log.Info().Err(err).Msg("Skipping interval, run in progress")
			return Result{Skipped: true, Reason: err.Error()}, nil
		}
		return Result{}, fmt.Errorf("failed to acquire run lease: %w", err)
	}

	jobRunID, err := h.StartJob(ctx, h.JobName, map[string]string{
		"--BUCKET_NAME": h.Bucket,
		"--RUN_ID":      lease.RunID,
	})
	if err != nil {
		// Free the lease so the next interval can retry.
		if relErr := h.Leases.Release(ctx); relErr != nil {
			log.Warn().Err(relErr).Msg("Failed to release lease after job start failure")
		}
		return Result{}, fmt.Errorf("failed to start job %s: %w", h.JobName, err)
	}

	if _, err := h.Leases.Advance(ctx, lease.RunID, pipeline.StateStage1Running); err != nil {
		return Result{}, fmt.Errorf("failed to advance run %s: %w", lease.RunID, err)
	}

	log.Info().
		Str("run_id", lease.RunID).
		Str("job", h.JobName).
		Str("job_run_id", jobRunID).
		Msg("Pipeline run started")
	return Result{RunID: lease.RunID}, nil
}
