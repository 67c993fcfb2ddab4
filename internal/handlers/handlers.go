//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

// Package handlers implements the three pipeline event handlers. Each
// handler is a struct over narrow interfaces so the Lambda entrypoints
// can wire real clients while tests substitute fakes.
//
// All three are idempotent against duplicate event deliveries: the run
// lease only moves forward, so a replayed event fails the transition
// check and is dropped instead of re-running a stage.
package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/pipeline"
)

// LeaseStore is the run-lease surface the handlers need. Satisfied by
// *pipeline.Store.
type LeaseStore interface {
	Acquire(ctx context.Context, initial pipeline.State, ttl time.Duration) (*pipeline.Lease, error)
	Current(ctx context.Context) (*pipeline.Lease, error)
	Advance(ctx context.Context, runID string, next pipeline.State) (*pipeline.Lease, error)
	Release(ctx context.Context) error
}

// JobStarter starts a named Glue job with run arguments and returns
// the job run id.
type JobStarter func(ctx context.Context, name string, arguments map[string]string) (string, error)

// RequireEnv reads a required environment variable set at deploy time.
func RequireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return v, nil
}

// runIDFromKey extracts the run token from a transformed-prefix object
// key of the form transformed/<run-id>/part-....parquet.
func runIDFromKey(key string) string {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 3 || parts[0] != "transformed" {
		return ""
	}
	if !strings.HasPrefix(parts[1], "run-") {
		return ""
	}
	return parts[1]
}

// isDataObject reports whether key names a Parquet data file rather
// than a marker like _SUCCESS or a folder placeholder.
func isDataObject(key string) bool {
	return strings.HasSuffix(key, ".parquet")
}
