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
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/pipeline"
)

// SplitFactDim is the transformed-prefix notification handler. The
// first data object of a run's transformed snapshot starts the second
// transform stage; the rest of the part files are dropped by the
// forward-only lease transition.
type SplitFactDim struct {
	Leases   LeaseStore
	StartJob JobStarter
	Bucket   string
	JobName  string
}

// Handle inspects the S3 event records for the run's first transformed
// data object and starts the split job for that run.
func (h *SplitFactDim) Handle(ctx context.Context, event events.S3Event) (Result, error) {
	log := logging.Component("split-fact-dim")

	runID := firstRunID(event)
	if runID == "" {
		log.Debug().Msg("No transformed data objects in event, ignoring")
		return Result{Skipped: true, Reason: "no transformed data objects"}, nil
	}

	lease, err := h.Leases.Current(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read run lease: %w", err)
	}
	if lease.RunID != runID {
		log.Warn().
			Str("event_run_id", runID).
			Str("active_run_id", lease.RunID).
			Msg("Dropping event from a stale run")
		return Result{Skipped: true, Reason: "stale run token"}, nil
	}
	if lease.State != pipeline.StateStage1Running {
		// Another part file of the same snapshot already advanced the
		// run; duplicate deliveries land here too.
		log.Debug().
			Str("run_id", runID).
			Str("state", string(lease.State)).
			Msg("Run already past stage 1, ignoring event")
		return Result{RunID: runID, Skipped: true, Reason: "stage already started"}, nil
	}

	if _, err := h.Leases.Advance(ctx, runID, pipeline.StateTransformedReady); err != nil {
		return Result{}, fmt.Errorf("failed to advance run %s: %w", runID, err)
	}

	jobRunID, err := h.StartJob(ctx, h.JobName, map[string]string{
		"--BUCKET_NAME": h.Bucket,
		"--RUN_ID":      runID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to start job %s: %w", h.JobName, err)
	}

	if _, err := h.Leases.Advance(ctx, runID, pipeline.StateStage2Running); err != nil {
		return Result{}, fmt.Errorf("failed to advance run %s: %w", runID, err)
	}

	log.Info().
		Str("run_id", runID).
		Str("job", h.JobName).
		Str("job_run_id", jobRunID).
		Msg("Second transform stage started")
	return Result{RunID: runID}, nil
}

// firstRunID returns the run token of the first transformed data
// object in the event, or "".
func firstRunID(event events.S3Event) string {
	for _, record := range event.Records {
		key := record.S3.Object.Key
		if !isDataObject(key) {
			continue
		}
		if runID := runIDFromKey(key); runID != "" {
			return runID
		}
	}
	return ""
}
