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
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/redshiftserverless"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/config"
)

// ResourceCheck is the probe result for one registry resource.
type ResourceCheck struct {
	Kind   string
	Name   string
	Exists bool
}

// Status probes every resource the registry names.
type Status struct {
	Storage    StorageAPI
	Functions  FunctionsAPI
	Jobs       JobsAPI
	Catalog    CatalogAPI
	Rules      RuleAPI
	Serverless ServerlessAPI
	Roles      RolesAPI

	Cfg *config.Config
}

// Check probes each resource and returns one entry per resource in
// registry order. Not-found is reported as Exists=false; any other
// probe error aborts.
func (s *Status) Check(ctx context.Context) ([]ResourceCheck, error) {
	cfg := s.Cfg
	var checks []ResourceCheck

	add := func(kind, name string, exists bool) {
		checks = append(checks, ResourceCheck{Kind: kind, Name: name, Exists: exists})
	}

	_, err := s.Storage.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Storage.Bucket)})
	switch {
	case err == nil:
		add("bucket", cfg.Storage.Bucket, true)
	case isBucketMissing(err):
		add("bucket", cfg.Storage.Bucket, false)
	default:
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Storage.Bucket, err)
	}

	for _, name := range []string{cfg.Roles.GlueETL, cfg.Roles.LambdaETL, cfg.Roles.RedshiftCopy, cfg.Roles.GlueCrawler} {
		_, err := s.Roles.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
		switch {
		case err == nil:
			add("role", name, true)
		case isRoleMissing(err):
			add("role", name, false)
		default:
			return nil, fmt.Errorf("failed to check role %s: %w", name, err)
		}
	}

	for _, name := range []string{cfg.Jobs.CleanTransform, cfg.Jobs.SplitFactDim} {
		_, err := s.Jobs.GetJob(ctx, &glue.GetJobInput{JobName: aws.String(name)})
		switch {
		case err == nil:
			add("job", name, true)
		case isEntityMissing(err):
			add("job", name, false)
		default:
			return nil, fmt.Errorf("failed to check job %s: %w", name, err)
		}
	}

	for _, name := range []string{cfg.Functions.StartClean, cfg.Functions.SplitFactDim, cfg.Functions.LoadWarehouse} {
		_, err := s.Functions.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(name)})
		switch {
		case err == nil:
			add("function", name, true)
		case isFunctionMissing(err):
			add("function", name, false)
		default:
			return nil, fmt.Errorf("failed to check function %s: %w", name, err)
		}
	}

	_, err = s.Rules.DescribeRule(ctx, &eventbridge.DescribeRuleInput{Name: aws.String(cfg.Events.RuleName)})
	switch {
	case err == nil:
		add("rule", cfg.Events.RuleName, true)
	case isRuleMissing(err):
		add("rule", cfg.Events.RuleName, false)
	default:
		return nil, fmt.Errorf("failed to check rule %s: %w", cfg.Events.RuleName, err)
	}

	_, err = s.Serverless.GetNamespace(ctx, &redshiftserverless.GetNamespaceInput{
		NamespaceName: aws.String(cfg.Warehouse.Namespace),
	})
	switch {
	case err == nil:
		add("namespace", cfg.Warehouse.Namespace, true)
	case isServerlessMissing(err):
		add("namespace", cfg.Warehouse.Namespace, false)
	default:
		return nil, fmt.Errorf("failed to check namespace %s: %w", cfg.Warehouse.Namespace, err)
	}

	_, err = s.Serverless.GetWorkgroup(ctx, &redshiftserverless.GetWorkgroupInput{
		WorkgroupName: aws.String(cfg.Warehouse.Workgroup),
	})
	switch {
	case err == nil:
		add("workgroup", cfg.Warehouse.Workgroup, true)
	case isServerlessMissing(err):
		add("workgroup", cfg.Warehouse.Workgroup, false)
	default:
		return nil, fmt.Errorf("failed to check workgroup %s: %w", cfg.Warehouse.Workgroup, err)
	}

	_, err = s.Catalog.GetCrawler(ctx, &glue.GetCrawlerInput{Name: aws.String(cfg.Warehouse.Crawler)})
	switch {
	case err == nil:
		add("crawler", cfg.Warehouse.Crawler, true)
	case isEntityMissing(err):
		add("crawler", cfg.Warehouse.Crawler, false)
	default:
		return nil, fmt.Errorf("failed to check crawler %s: %w", cfg.Warehouse.Crawler, err)
	}

	return checks, nil
}
