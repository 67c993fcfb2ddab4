//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata"
	datatypes "github.com/aws/aws-sdk-go-v2/service/redshiftdata/types"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
)

// DataAPI is the Redshift Data API surface the loader needs.
type DataAPI interface {
	ExecuteStatement(ctx context.Context, params *redshiftdata.ExecuteStatementInput, optFns ...func(*redshiftdata.Options)) (*redshiftdata.ExecuteStatementOutput, error)
	BatchExecuteStatement(ctx context.Context, params *redshiftdata.BatchExecuteStatementInput, optFns ...func(*redshiftdata.Options)) (*redshiftdata.BatchExecuteStatementOutput, error)
	DescribeStatement(ctx context.Context, params *redshiftdata.DescribeStatementInput, optFns ...func(*redshiftdata.Options)) (*redshiftdata.DescribeStatementOutput, error)
}

var _ DataAPI = (*redshiftdata.Client)(nil)

// Loader bulk-loads curated Parquet snapshots into the warehouse.
//
// The load is staged: each snapshot is copied into a fresh staging
// table, and only after every COPY succeeds are the live tables swapped
// out in a single transactional batch. A failed COPY therefore leaves
// the previous snapshot fully intact, and re-running the load replaces
// the data rather than appending to it.
type Loader struct {
	client      DataAPI
	workgroup   string
	database    string
	bucket      string
	copyRoleARN string

	pollInterval time.Duration
}

// NewLoader creates a loader bound to one workgroup and database.
func NewLoader(client DataAPI, workgroup, database, bucket, copyRoleARN string) *Loader {
	return &Loader{
		client:       client,
		workgroup:    workgroup,
		database:     database,
		bucket:       bucket,
		copyRoleARN:  copyRoleARN,
		pollInterval: 2 * time.Second,
	}
}

// EnsureTables creates the warehouse tables if they do not exist.
func (l *Loader) EnsureTables(ctx context.Context) error {
	log := logging.Component("load")
	for _, table := range Tables {
		if err := l.execAndWait(ctx, createTableSQL[table]); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
		log.Info().Str("table", table).Msg("Table ensured")
	}
	return nil
}

// Load copies the curated snapshot of every table into staging and
// swaps the staging tables in.
func (l *Loader) Load(ctx context.Context) error {
	log := logging.Component("load")

	for _, table := range Tables {
		stage := stageName(table)

		if err := l.execAndWait(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", stage)); err != nil {
			return fmt.Errorf("failed to drop stale staging table %s: %w", stage, err)
		}
		if err := l.execAndWait(ctx, fmt.Sprintf("CREATE TABLE %s (LIKE %s)", stage, table)); err != nil {
			return fmt.Errorf("failed to create staging table %s: %w", stage, err)
		}

		copySQL := fmt.Sprintf(
			"COPY %s FROM 's3://%s/curated/%s/' IAM_ROLE '%s' FORMAT AS PARQUET",
			stage, l.bucket, table, l.copyRoleARN,
		)
		if err := l.execAndWait(ctx, copySQL); err != nil {
			return fmt.Errorf("failed to copy snapshot into %s: %w", stage, err)
		}
		log.Info().Str("table", table).Msg("Snapshot staged")
	}

	if err := l.swap(ctx); err != nil {
		return err
	}
	log.Info().Msg("Warehouse load complete")
	return nil
}

// swap replaces the live tables with the staged snapshots in one
// transactional batch.
func (l *Loader) swap(ctx context.Context) error {
	var statements []string
	for _, table := range Tables {
		retired := retiredName(table)
		statements = append(statements,
			fmt.Sprintf("DROP TABLE IF EXISTS %s", retired),
			fmt.Sprintf("ALTER TABLE %s RENAME TO %s", table, retired),
			fmt.Sprintf("ALTER TABLE %s RENAME TO %s", stageName(table), table),
			fmt.Sprintf("DROP TABLE %s", retired),
		)
	}

	out, err := l.client.BatchExecuteStatement(ctx, &redshiftdata.BatchExecuteStatementInput{
		WorkgroupName: aws.String(l.workgroup),
		Database:      aws.String(l.database),
		Sqls:          statements,
	})
	if err != nil {
		return fmt.Errorf("failed to submit table swap: %w", err)
	}
	if err := l.wait(ctx, aws.ToString(out.Id)); err != nil {
		return fmt.Errorf("table swap failed: %w", err)
	}
	return nil
}

// EnsureBIUser creates the read-only analytics user and grants it
// SELECT on current and future tables.
func (l *Loader) EnsureBIUser(ctx context.Context, user, password string) error {
	statements := []string{
		fmt.Sprintf("CREATE USER IF NOT EXISTS %s PASSWORD '%s'", user, password),
		fmt.Sprintf("GRANT USAGE ON SCHEMA public TO %s", user),
		fmt.Sprintf("GRANT SELECT ON ALL TABLES IN SCHEMA public TO %s", user),
		fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA public GRANT SELECT ON TABLES TO %s", user),
	}
	for _, sql := range statements {
		if err := l.execAndWait(ctx, sql); err != nil {
			return fmt.Errorf("failed to provision analytics user %s: %w", user, err)
		}
	}
	log := logging.Component("load")
	log.Info().Str("user", user).Msg("Analytics user ensured")
	return nil
}

// execAndWait submits one statement and blocks until it finishes.
func (l *Loader) execAndWait(ctx context.Context, sql string) error {
	out, err := l.client.ExecuteStatement(ctx, &redshiftdata.ExecuteStatementInput{
		WorkgroupName: aws.String(l.workgroup),
		Database:      aws.String(l.database),
		Sql:           aws.String(sql),
	})
	if err != nil {
		return err
	}
	return l.wait(ctx, aws.ToString(out.Id))
}

// wait polls a statement until it reaches a terminal status.
func (l *Loader) wait(ctx context.Context, statementID string) error {
	for {
		out, err := l.client.DescribeStatement(ctx, &redshiftdata.DescribeStatementInput{
			Id: aws.String(statementID),
		})
		if err != nil {
			return fmt.Errorf("failed to describe statement %s: %w", statementID, err)
		}

		switch out.Status {
		case datatypes.StatusStringFinished:
			return nil
		case datatypes.StatusStringFailed:
			return fmt.Errorf("statement %s failed: %s", statementID, aws.ToString(out.Error))
		case datatypes.StatusStringAborted:
			return fmt.Errorf("statement %s aborted", statementID)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
}
