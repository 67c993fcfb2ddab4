//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

// Package main is the curated-prefix notification handler that ensures
// the warehouse resources, catalogs the curated snapshot and bulk-loads
// it into the warehouse.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/awsc"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/config"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/handlers"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/pipeline"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/provision"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/warehouse"
)

func requireEnv(key string) string {
	v, err := handlers.RequireEnv(key)
	if err != nil {
		logging.Error().Err(err).Msg("Handler misconfigured")
		os.Exit(1)
	}
	return v
}

func main() {
	ctx := context.Background()

	bucket := requireEnv("BUCKET_NAME")
	crawler := requireEnv("CRAWLER_NAME")
	crawlerRole := requireEnv("GLUE_CRAWLER_ROLE")
	copyRole := requireEnv("REDSHIFT_COPY_ROLE")

	wh := config.DefaultConfig().Warehouse
	wh.Namespace = requireEnv("REDSHIFT_NAMESPACE")
	wh.Workgroup = requireEnv("REDSHIFT_WORKGROUP")
	wh.Database = requireEnv("REDSHIFT_DATABASE")
	wh.AdminUser = requireEnv("REDSHIFT_USER")
	wh.AdminPassword = requireEnv("REDSHIFT_PASSWORD")
	wh.CatalogDatabase = requireEnv("CATALOG_DATABASE")
	wh.Crawler = crawler

	clients, err := awsc.New(ctx, os.Getenv("AWS_REGION"))
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize clients")
		os.Exit(1)
	}

	loader := warehouse.NewLoader(
		clients.RedshiftData,
		wh.Workgroup,
		wh.Database,
		bucket,
		clients.RoleARN(copyRole),
	)

	h := &handlers.LoadWarehouse{
		Leases: pipeline.NewStore(clients.S3, bucket),
		Loader: loader,
		EnsureWarehouse: func(ctx context.Context) error {
			if err := provision.EnsureNamespace(ctx, clients.Redshift, wh, clients.RoleARN(copyRole)); err != nil {
				return err
			}
			if err := provision.EnsureWorkgroup(ctx, clients.Redshift, wh); err != nil {
				return err
			}
			if err := provision.WaitForWorkgroup(ctx, clients.Redshift, wh.Workgroup, provision.WorkgroupWaitTimeout); err != nil {
				return err
			}
			return provision.EnsureCatalog(ctx, clients.Glue, wh, bucket, clients.RoleARN(crawlerRole))
		},
		RunCrawler: func(ctx context.Context) error {
			return provision.RunCrawler(ctx, clients.Glue, crawler, provision.CrawlerWaitTimeout)
		},
	}

	lambda.Start(func(ctx context.Context, event events.S3Event) (handlers.Result, error) {
		return h.Handle(ctx, event)
	})
}
