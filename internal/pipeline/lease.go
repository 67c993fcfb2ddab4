//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
)

const (
	// LeaseKey is where the active run lease lives in the bucket.
	LeaseKey = "runs/active.json"

	// DefaultLeaseTTL bounds how long a run may hold the lease. A run
	// that dies mid-pipeline stops blocking the schedule once the
	// lease expires.
	DefaultLeaseTTL = 2 * time.Hour
)

// Sentinel errors for lease contention and stale events.
var (
	// ErrRunActive means another run holds the lease; the scheduled
	// trigger skips this interval.
	ErrRunActive = errors.New("a pipeline run is already active")

	// ErrNoActiveRun means no lease object exists.
	ErrNoActiveRun = errors.New("no active pipeline run")

	// ErrStaleRun means an event carried a run token that does not
	// match the active lease.
	ErrStaleRun = errors.New("event does not belong to the active run")
)

// Lease is the persisted run record.
type Lease struct {
	RunID     string    `json:"run_id"`
	State     State     `json:"state"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the lease TTL has passed.
func (l *Lease) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// ObjectAPI is the narrow S3 surface the lease store needs.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ ObjectAPI = (*s3.Client)(nil)

// Store persists run leases in the pipeline bucket.
type Store struct {
	client ObjectAPI
	bucket string
	now    func() time.Time
}

// NewStore creates a lease store over the given bucket.
func NewStore(client ObjectAPI, bucket string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		now:    time.Now,
	}
}

// Acquire mints a new run and takes the lease. If a live, unexpired,
// unfinished run already holds it, Acquire returns ErrRunActive; an
// expired or finished lease is replaced.
func (s *Store) Acquire(ctx context.Context, initial State, ttl time.Duration) (*Lease, error) {
	if !initial.Valid() {
		return nil, fmt.Errorf("invalid initial run state %q", initial)
	}
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}

	now := s.now()

	current, err := s.Current(ctx)
	if err != nil && !errors.Is(err, ErrNoActiveRun) {
		return nil, err
	}
	if current != nil && !current.Expired(now) && !current.State.Terminal() {
		return nil, fmt.Errorf("%w: %s in state %s", ErrRunActive, current.RunID, current.State)
	}
	if current != nil {
		logging.Info().
			Str("run_id", current.RunID).
			Str("state", string(current.State)).
			Msg("Replacing finished or expired run lease")
	}

	lease := &Lease{
		RunID:     fmt.Sprintf("run-%d", now.UnixNano()),
		State:     initial,
		StartedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.put(ctx, lease); err != nil {
		return nil, err
	}
	return lease, nil
}

// Current fetches the active lease, or ErrNoActiveRun.
func (s *Store) Current(ctx context.Context) (*Lease, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(LeaseKey),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNoActiveRun
		}
		return nil, fmt.Errorf("failed to read run lease: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read run lease body: %w", err)
	}

	var lease Lease
	if err := json.Unmarshal(data, &lease); err != nil {
		return nil, fmt.Errorf("failed to decode run lease: %w", err)
	}
	return &lease, nil
}

// Advance moves the active run to the next state. The caller's run
// token must match the lease, and the transition must be forward.
func (s *Store) Advance(ctx context.Context, runID string, next State) (*Lease, error) {
	lease, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if runID != "" && lease.RunID != runID {
		return nil, fmt.Errorf("%w: got %s, active is %s", ErrStaleRun, runID, lease.RunID)
	}
	if !lease.State.CanAdvanceTo(next) {
		return nil, fmt.Errorf("illegal run transition %s -> %s for %s",
			lease.State, next, lease.RunID)
	}

	lease.State = next
	if err := s.put(ctx, lease); err != nil {
		return nil, err
	}

	logging.Info().
		Str("run_id", lease.RunID).
		Str("state", string(next)).
		Msg("Run advanced")
	return lease, nil
}

// Release deletes the lease object, freeing the schedule to start the
// next run.
func (s *Store) Release(ctx context.Context) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(LeaseKey),
	})
	if err != nil {
		return fmt.Errorf("failed to release run lease: %w", err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, lease *Lease) error {
	data, err := json.Marshal(lease)
	if err != nil {
		return fmt.Errorf("failed to encode run lease: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(LeaseKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to write run lease: %w", err)
	}
	return nil
}
