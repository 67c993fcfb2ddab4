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
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/pipeline"
)

// WarehouseLoader is the load surface handler C drives. Satisfied by
// *warehouse.Loader.
type WarehouseLoader interface {
	EnsureTables(ctx context.Context) error
	Load(ctx context.Context) error
}

// LoadWarehouse is the curated-prefix notification handler. The first
// curated data object of a run catalogs the snapshot and bulk-loads it
// into the warehouse; later part files find the run already loading
// and are dropped.
type LoadWarehouse struct {
	Leases LeaseStore
	Loader WarehouseLoader

	// EnsureWarehouse provisions the namespace, workgroup and catalog
	// if absent and waits for the workgroup to become available.
	EnsureWarehouse func(ctx context.Context) error
	RunCrawler      func(ctx context.Context) error
}

// Handle advances the run to load-running, ensures the warehouse
// resources, refreshes the catalog, and runs the staged load. On
// success the run finishes and the lease is
// released so the next schedule interval can start a fresh run.
func (h *LoadWarehouse) Handle(ctx context.Context, event events.S3Event) (Result, error) {
	log := logging.Component("load-warehouse")

	if !hasCuratedData(event) {
		log.Debug().Msg("No curated data objects in event, ignoring")
		return Result{Skipped: true, Reason: "no curated data objects"}, nil
	}

	lease, err := h.Leases.Current(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read run lease: %w", err)
	}
	if lease.State != pipeline.StateStage2Running {
		log.Debug().
			Str("run_id", lease.RunID).
			Str("state", string(lease.State)).
			Msg("Run not awaiting load, ignoring event")
		return Result{RunID: lease.RunID, Skipped: true, Reason: "load already started"}, nil
	}

	runID := lease.RunID
	if _, err := h.Leases.Advance(ctx, runID, pipeline.StateLoadRunning); err != nil {
		return Result{}, fmt.Errorf("failed to advance run %s: %w", runID, err)
	}

	if h.EnsureWarehouse != nil {
		if err := h.EnsureWarehouse(ctx); err != nil {
			return Result{}, fmt.Errorf("failed to ensure warehouse resources: %w", err)
		}
	}

	if h.RunCrawler != nil {
		if err := h.RunCrawler(ctx); err != nil {
			return Result{}, fmt.Errorf("failed to catalog curated snapshot: %w", err)
		}
	}

	if err := h.Loader.EnsureTables(ctx); err != nil {
		return Result{}, err
	}
	if err := h.Loader.Load(ctx); err != nil {
		return Result{}, fmt.Errorf("warehouse load for run %s failed: %w", runID, err)
	}

	if _, err := h.Leases.Advance(ctx, runID, pipeline.StateLoaded); err != nil {
		return Result{}, fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if err := h.Leases.Release(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to release run %s: %w", runID, err)
	}

	log.Info().Str("run_id", runID).Msg("Warehouse load finished, run complete")
	return Result{RunID: runID}, nil
}

func hasCuratedData(event events.S3Event) bool {
	for _, record := range event.Records {
		key := record.S3.Object.Key
		if strings.HasPrefix(key, "curated/") && isDataObject(key) {
			return true
		}
	}
	return false
}
