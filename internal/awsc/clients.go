//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

// Package awsc constructs the AWS service clients used by the
// provisioning packages and resolves the caller's account identity.
package awsc

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata"
	"github.com/aws/aws-sdk-go-v2/service/redshiftserverless"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
)

// Clients bundles one client per managed service the pipeline touches.
type Clients struct {
	Region    string
	AccountID string

	S3           *s3.Client
	Glue         *glue.Client
	Lambda       *lambda.Client
	Events       *eventbridge.Client
	IAM          *iam.Client
	Redshift     *redshiftserverless.Client
	RedshiftData *redshiftdata.Client
}

// New loads the default credential chain for the given region and
// resolves the account ID via STS.
func New(ctx context.Context, region string) (*Clients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	ident, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve caller identity: %w", err)
	}

	logging.Debug().
		Str("region", region).
		Str("account", aws.ToString(ident.Account)).
		Msg("Resolved AWS identity")

	return &Clients{
		Region:       region,
		AccountID:    aws.ToString(ident.Account),
		S3:           s3.NewFromConfig(cfg),
		Glue:         glue.NewFromConfig(cfg),
		Lambda:       lambda.NewFromConfig(cfg),
		Events:       eventbridge.NewFromConfig(cfg),
		IAM:          iam.NewFromConfig(cfg),
		Redshift:     redshiftserverless.NewFromConfig(cfg),
		RedshiftData: redshiftdata.NewFromConfig(cfg),
	}, nil
}
