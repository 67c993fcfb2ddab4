//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

// Package main is the transformed-prefix notification handler that
// starts the second transform stage.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/awsc"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/handlers"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/pipeline"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/provision"
)

func main() {
	ctx := context.Background()

	bucket, err := handlers.RequireEnv("BUCKET_NAME")
	if err != nil {
		logging.Error().Err(err).Msg("Handler misconfigured")
		os.Exit(1)
	}
	jobName, err := handlers.RequireEnv("GLUE_JOB_NAME")
	if err != nil {
		logging.Error().Err(err).Msg("Handler misconfigured")
		os.Exit(1)
	}

	clients, err := awsc.New(ctx, os.Getenv("AWS_REGION"))
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize clients")
		os.Exit(1)
	}

	h := &handlers.SplitFactDim{
		Leases: pipeline.NewStore(clients.S3, bucket),
		StartJob: func(ctx context.Context, name string, args map[string]string) (string, error) {
			return provision.StartJob(ctx, clients.Glue, name, args)
		},
		Bucket:  bucket,
		JobName: jobName,
	}

	lambda.Start(func(ctx context.Context, event events.S3Event) (handlers.Result, error) {
		return h.Handle(ctx, event)
	})
}
