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
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/config"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
)

// Teardown deletes every pipeline resource named by the registry.
// Deletions are best-effort: each failure is logged and counted, and
// the remaining resources are still attempted.
type Teardown struct {
	Storage    StorageAPI
	Functions  FunctionsAPI
	Jobs       JobsAPI
	Catalog    CatalogAPI
	Rules      RuleAPI
	Serverless ServerlessAPI
	Roles      RolesAPI

	Cfg *config.Config

	// FunctionARN resolves a function name to its ARN for the tag
	// check before deletion.
	FunctionARN func(name string) string
}

// Run tears everything down and returns the number of failed deletes.
func (t *Teardown) Run(ctx context.Context) int {
	failed := 0
	failed += t.deleteSchedule(ctx)
	failed += t.deleteFunctions(ctx)
	failed += t.deleteJobs(ctx)
	failed += t.deleteCatalog(ctx)
	failed += t.deleteWarehouse(ctx)
	failed += t.deleteBucket(ctx)
	failed += t.deleteRoles(ctx)
	return failed
}

func (t *Teardown) deleteSchedule(ctx context.Context) int {
	log := logging.Component("teardown")
	rule := t.Cfg.Events.RuleName

	if _, err := t.Rules.RemoveTargets(ctx, &eventbridge.RemoveTargetsInput{
		Rule: aws.String(rule),
		Ids:  []string{"1"},
	}); err != nil {
		log.Warn().Err(err).Str("rule", rule).Msg("Rule targets not removed")
	}
	if _, err := t.Rules.DeleteRule(ctx, &eventbridge.DeleteRuleInput{
		Name:  aws.String(rule),
		Force: true,
	}); err != nil {
		log.Warn().Err(err).Str("rule", rule).Msg("Rule not deleted")
		return 1
	}
	log.Info().Str("rule", rule).Msg("Deleted rule")
	return 0
}

func (t *Teardown) deleteFunctions(ctx context.Context) int {
	log := logging.Component("teardown")
	failed := 0

	names := []string{
		t.Cfg.Functions.StartClean,
		t.Cfg.Functions.SplitFactDim,
		t.Cfg.Functions.LoadWarehouse,
	}
	for _, name := range names {
		if err := t.verifyFunctionManaged(ctx, name); err != nil {
			log.Warn().Err(err).Str("function", name).Msg("Function not deleted")
			failed++
			continue
		}
		if _, err := t.Functions.DeleteFunction(ctx, &lambda.DeleteFunctionInput{
			FunctionName: aws.String(name),
		}); err != nil {
			log.Warn().Err(err).Str("function", name).Msg("Function not deleted")
			failed++
			continue
		}
		log.Info().Str("function", name).Msg("Deleted function")
	}
	return failed
}

// verifyFunctionManaged checks the managed-by tag before a function is
// deleted, so a name collision with a foreign function is not fatal to
// that function.
func (t *Teardown) verifyFunctionManaged(ctx context.Context, name string) error {
	out, err := t.Functions.ListTags(ctx, &lambda.ListTagsInput{
		Resource: aws.String(t.FunctionARN(name)),
	})
	if err != nil {
		return err
	}
	if out.Tags[ManagedByKey] != ManagedByValue {
		return fmt.Errorf("function %s is not tagged %s=%s", name, ManagedByKey, ManagedByValue)
	}
	return nil
}

func (t *Teardown) deleteJobs(ctx context.Context) int {
	log := logging.Component("teardown")
	failed := 0

	for _, job := range []string{t.Cfg.Jobs.CleanTransform, t.Cfg.Jobs.SplitFactDim} {
		if _, err := t.Jobs.DeleteJob(ctx, &glue.DeleteJobInput{JobName: aws.String(job)}); err != nil {
			log.Warn().Err(err).Str("job", job).Msg("Glue job not deleted")
			failed++
			continue
		}
		log.Info().Str("job", job).Msg("Deleted Glue job")
	}
	return failed
}

func (t *Teardown) deleteCatalog(ctx context.Context) int {
	log := logging.Component("teardown")
	failed := 0

	crawler := t.Cfg.Warehouse.Crawler
	if _, err := t.Catalog.DeleteCrawler(ctx, &glue.DeleteCrawlerInput{Name: aws.String(crawler)}); err != nil {
		log.Warn().Err(err).Str("crawler", crawler).Msg("Crawler not deleted")
		failed++
	} else {
		log.Info().Str("crawler", crawler).Msg("Deleted crawler")
	}

	db := t.Cfg.Warehouse.CatalogDatabase
	if _, err := t.Catalog.DeleteDatabase(ctx, &glue.DeleteDatabaseInput{Name: aws.String(db)}); err != nil {
		log.Warn().Err(err).Str("database", db).Msg("Catalog database not deleted")
		failed++
	} else {
		log.Info().Str("database", db).Msg("Deleted catalog database")
	}
	return failed
}

func (t *Teardown) deleteWarehouse(ctx context.Context) int {
	log := logging.Component("teardown")
	failed := 0

	wg := t.Cfg.Warehouse.Workgroup
	if _, err := t.Serverless.DeleteWorkgroup(ctx, &redshiftserverless.DeleteWorkgroupInput{
		WorkgroupName: aws.String(wg),
	}); err != nil {
		log.Warn().Err(err).Str("workgroup", wg).Msg("Workgroup not deleted")
		failed++
	} else {
		log.Info().Str("workgroup", wg).Msg("Deleted workgroup")
	}

	ns := t.Cfg.Warehouse.Namespace
	if _, err := t.Serverless.DeleteNamespace(ctx, &redshiftserverless.DeleteNamespaceInput{
		NamespaceName: aws.String(ns),
	}); err != nil {
		log.Warn().Err(err).Str("namespace", ns).Msg("Namespace not deleted")
		failed++
	} else {
		log.Info().Str("namespace", ns).Msg("Deleted namespace")
	}
	return failed
}

func (t *Teardown) deleteBucket(ctx context.Context) int {
	log := logging.Component("teardown")
	bucket := t.Cfg.Storage.Bucket

	if err := t.verifyBucketManaged(ctx, bucket); err != nil {
		log.Warn().Err(err).Str("bucket", bucket).Msg("Bucket not deleted")
		return 1
	}
	if err := t.emptyBucket(ctx, bucket); err != nil {
		log.Warn().Err(err).Str("bucket", bucket).Msg("Bucket not emptied")
		return 1
	}
	if _, err := t.Storage.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		log.Warn().Err(err).Str("bucket", bucket).Msg("Bucket not deleted")
		return 1
	}
	log.Info().Str("bucket", bucket).Msg("Deleted bucket")
	return 0
}

func (t *Teardown) verifyBucketManaged(ctx context.Context, bucket string) error {
	out, err := t.Storage.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: aws.String(bucket)})
	if err != nil {
		return err
	}
	for _, tag := range out.TagSet {
		if aws.ToString(tag.Key) == ManagedByKey && aws.ToString(tag.Value) == ManagedByValue {
			return nil
		}
	}
	return fmt.Errorf("bucket %s is not tagged %s=%s", bucket, ManagedByKey, ManagedByValue)
}

// emptyBucket deletes every object version and delete marker. The
// bucket is versioned, so plain object deletion is not enough.
func (t *Teardown) emptyBucket(ctx context.Context, bucket string) error {
	input := &s3.ListObjectVersionsInput{Bucket: aws.String(bucket)}

	for {
		page, err := t.Storage.ListObjectVersions(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to list object versions: %w", err)
		}

		var objects []s3types.ObjectIdentifier
		for _, v := range page.Versions {
			objects = append(objects, s3types.ObjectIdentifier{Key: v.Key, VersionId: v.VersionId})
		}
		for _, m := range page.DeleteMarkers {
			objects = append(objects, s3types.ObjectIdentifier{Key: m.Key, VersionId: m.VersionId})
		}

		if len(objects) > 0 {
			if _, err := t.Storage.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(bucket),
				Delete: &s3types.Delete{Objects: objects, Quiet: aws.Bool(true)},
			}); err != nil {
				return fmt.Errorf("failed to delete object versions: %w", err)
			}
		}

		if !aws.ToBool(page.IsTruncated) {
			return nil
		}
		input.KeyMarker = page.NextKeyMarker
		input.VersionIdMarker = page.NextVersionIdMarker
	}
}

func (t *Teardown) deleteRoles(ctx context.Context) int {
	log := logging.Component("teardown")
	failed := 0

	roles := []string{
		t.Cfg.Roles.GlueETL,
		t.Cfg.Roles.LambdaETL,
		t.Cfg.Roles.RedshiftCopy,
		t.Cfg.Roles.GlueCrawler,
	}
	for _, role := range roles {
		attached, err := t.Roles.ListAttachedRolePolicies(ctx, &iam.ListAttachedRolePoliciesInput{
			RoleName: aws.String(role),
		})
		if err != nil {
			log.Warn().Err(err).Str("role", role).Msg("Role not deleted")
			failed++
			continue
		}

		ok := true
		for _, policy := range attached.AttachedPolicies {
			if _, err := t.Roles.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
				RoleName:  aws.String(role),
				PolicyArn: policy.PolicyArn,
			}); err != nil {
				log.Warn().Err(err).Str("role", role).Msg("Policy not detached")
				ok = false
				break
			}
		}
		if !ok {
			failed++
			continue
		}

		if _, err := t.Roles.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(role)}); err != nil {
			log.Warn().Err(err).Str("role", role).Msg("Role not deleted")
			failed++
			continue
		}
		log.Info().Str("role", role).Msg("Deleted role")
	}
	return failed
}
