//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/aws/aws-sdk-go-v2/service/redshiftserverless"
	rstypes "github.com/aws/aws-sdk-go-v2/service/redshiftserverless/types"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/config"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
)

// Default bounded waits for warehouse readiness polling.
const (
	WorkgroupWaitTimeout = 15 * time.Minute
	CrawlerWaitTimeout   = 10 * time.Minute
	pollInterval         = 15 * time.Second
)

// EnsureNamespace creates the Redshift Serverless namespace if absent.
func EnsureNamespace(ctx context.Context, client ServerlessAPI, wh config.WarehouseConfig, copyRoleARN string) error {
	log := logging.Component("warehouse")

	_, err := client.GetNamespace(ctx, &redshiftserverless.GetNamespaceInput{
		NamespaceName: aws.String(wh.Namespace),
	})
	switch {
	case err == nil:
		log.Info().Str("namespace", wh.Namespace).Msg("Namespace already exists")
		return nil
	case isServerlessMissing(err):
		// fall through to create
	default:
		return fmt.Errorf("failed to check namespace %s: %w", wh.Namespace, err)
	}

	_, err = client.CreateNamespace(ctx, &redshiftserverless.CreateNamespaceInput{
		NamespaceName:     aws.String(wh.Namespace),
		AdminUsername:     aws.String(wh.AdminUser),
		AdminUserPassword: aws.String(wh.AdminPassword),
		IamRoles:          []string{copyRoleARN},
		Tags: []rstypes.Tag{
			{Key: aws.String(ManagedByKey), Value: aws.String(ManagedByValue)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create namespace %s: %w", wh.Namespace, err)
	}
	log.Info().Str("namespace", wh.Namespace).Msg("Created namespace")
	return nil
}

// EnsureWorkgroup creates the workgroup if absent.
func EnsureWorkgroup(ctx context.Context, client ServerlessAPI, wh config.WarehouseConfig) error {
	log := logging.Component("warehouse")

	_, err := client.GetWorkgroup(ctx, &redshiftserverless.GetWorkgroupInput{
		WorkgroupName: aws.String(wh.Workgroup),
	})
	switch {
	case err == nil:
		log.Info().Str("workgroup", wh.Workgroup).Msg("Workgroup already exists")
		return nil
	case isServerlessMissing(err):
		// fall through to create
	default:
		return fmt.Errorf("failed to check workgroup %s: %w", wh.Workgroup, err)
	}

	_, err = client.CreateWorkgroup(ctx, &redshiftserverless.CreateWorkgroupInput{
		WorkgroupName: aws.String(wh.Workgroup),
		NamespaceName: aws.String(wh.Namespace),
		BaseCapacity:  aws.Int32(int32(wh.BaseCapacity)),
		Tags: []rstypes.Tag{
			{Key: aws.String(ManagedByKey), Value: aws.String(ManagedByValue)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create workgroup %s: %w", wh.Workgroup, err)
	}
	log.Info().Str("workgroup", wh.Workgroup).Int("base_capacity", wh.BaseCapacity).Msg("Created workgroup")
	return nil
}

// WaitForWorkgroup polls until the workgroup reports AVAILABLE or the
// timeout elapses.
func WaitForWorkgroup(ctx context.Context, client ServerlessAPI, name string, timeout time.Duration) error {
	log := logging.Component("warehouse")
	deadline := time.Now().Add(timeout)

	for {
		out, err := client.GetWorkgroup(ctx, &redshiftserverless.GetWorkgroupInput{
			WorkgroupName: aws.String(name),
		})
		if err != nil {
			return fmt.Errorf("failed to poll workgroup %s: %w", name, err)
		}

		status := out.Workgroup.Status
		log.Debug().Str("workgroup", name).Str("status", string(status)).Msg("Workgroup status")
		if status == rstypes.WorkgroupStatusAvailable {
			log.Info().Str("workgroup", name).Msg("Workgroup available")
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("workgroup %s not available after %s (last status %s)", name, timeout, status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// EnsureCatalog creates the Glue catalog database and the crawler over
// the curated prefix if absent.
func EnsureCatalog(ctx context.Context, client CatalogAPI, wh config.WarehouseConfig, bucket, crawlerRoleARN string) error {
	log := logging.Component("warehouse")

	_, err := client.GetDatabase(ctx, &glue.GetDatabaseInput{Name: aws.String(wh.CatalogDatabase)})
	switch {
	case err == nil:
		log.Info().Str("database", wh.CatalogDatabase).Msg("Catalog database already exists")
	case isEntityMissing(err):
		_, err = client.CreateDatabase(ctx, &glue.CreateDatabaseInput{
			DatabaseInput: &gluetypes.DatabaseInput{Name: aws.String(wh.CatalogDatabase)},
		})
		if err != nil {
			return fmt.Errorf("failed to create catalog database %s: %w", wh.CatalogDatabase, err)
		}
		log.Info().Str("database", wh.CatalogDatabase).Msg("Created catalog database")
	default:
		return fmt.Errorf("failed to check catalog database %s: %w", wh.CatalogDatabase, err)
	}

	_, err = client.GetCrawler(ctx, &glue.GetCrawlerInput{Name: aws.String(wh.Crawler)})
	switch {
	case err == nil:
		log.Info().Str("crawler", wh.Crawler).Msg("Crawler already exists")
		return nil
	case isEntityMissing(err):
		// fall through to create
	default:
		return fmt.Errorf("failed to check crawler %s: %w", wh.Crawler, err)
	}

	_, err = client.CreateCrawler(ctx, &glue.CreateCrawlerInput{
		Name:         aws.String(wh.Crawler),
		Role:         aws.String(crawlerRoleARN),
		DatabaseName: aws.String(wh.CatalogDatabase),
		Targets: &gluetypes.CrawlerTargets{
			S3Targets: []gluetypes.S3Target{
				{Path: aws.String(fmt.Sprintf("s3://%s/%s", bucket, PrefixCurated))},
			},
		},
		TablePrefix: aws.String("curated_"),
		Tags: map[string]string{
			ManagedByKey: ManagedByValue,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create crawler %s: %w", wh.Crawler, err)
	}
	log.Info().Str("crawler", wh.Crawler).Msg("Created crawler")
	return nil
}

// RunCrawler starts the crawler and polls until it returns to READY.
func RunCrawler(ctx context.Context, client CatalogAPI, name string, timeout time.Duration) error {
	log := logging.Component("warehouse")

	if _, err := client.StartCrawler(ctx, &glue.StartCrawlerInput{Name: aws.String(name)}); err != nil {
		var running *gluetypes.CrawlerRunningException
		if !errors.As(err, &running) {
			return fmt.Errorf("failed to start crawler %s: %w", name, err)
		}
		log.Info().Str("crawler", name).Msg("Crawler already running")
	} else {
		log.Info().Str("crawler", name).Msg("Started crawler")
	}

	deadline := time.Now().Add(timeout)
	for {
		out, err := client.GetCrawler(ctx, &glue.GetCrawlerInput{Name: aws.String(name)})
		if err != nil {
			return fmt.Errorf("failed to poll crawler %s: %w", name, err)
		}

		state := out.Crawler.State
		log.Debug().Str("crawler", name).Str("state", string(state)).Msg("Crawler state")
		if state == gluetypes.CrawlerStateReady {
			log.Info().Str("crawler", name).Msg("Crawler finished")
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("crawler %s not ready after %s (last state %s)", name, timeout, state)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func isServerlessMissing(err error) bool {
	var notFound *rstypes.ResourceNotFoundException
	return errors.As(err, &notFound)
}
