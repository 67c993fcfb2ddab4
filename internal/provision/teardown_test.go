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
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/redshiftserverless"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/config"
)

type teardownStorage struct {
	StorageAPI

	tags        []s3types.Tag
	tagErr      error
	versionsErr error

	// two pages of versions to exercise pagination
	pages       []*s3.ListObjectVersionsOutput
	pageIdx     int
	deleted     [][]s3types.ObjectIdentifier
	bucketGone  bool
	deleteError error
}

func (f *teardownStorage) GetBucketTagging(_ context.Context, _ *s3.GetBucketTaggingInput, _ ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error) {
	if f.tagErr != nil {
		return nil, f.tagErr
	}
	return &s3.GetBucketTaggingOutput{TagSet: f.tags}, nil
}

func (f *teardownStorage) ListObjectVersions(_ context.Context, _ *s3.ListObjectVersionsInput, _ ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
	if f.versionsErr != nil {
		return nil, f.versionsErr
	}
	if f.pageIdx >= len(f.pages) {
		return &s3.ListObjectVersionsOutput{IsTruncated: aws.Bool(false)}, nil
	}
	page := f.pages[f.pageIdx]
	f.pageIdx++
	return page, nil
}

func (f *teardownStorage) DeleteObjects(_ context.Context, params *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.deleted = append(f.deleted, params.Delete.Objects)
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *teardownStorage) DeleteBucket(_ context.Context, _ *s3.DeleteBucketInput, _ ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	if f.deleteError != nil {
		return nil, f.deleteError
	}
	f.bucketGone = true
	return &s3.DeleteBucketOutput{}, nil
}

type teardownFunctions struct {
	FunctionsAPI

	tags    map[string]string
	deleted []string
}

func (f *teardownFunctions) ListTags(_ context.Context, _ *lambda.ListTagsInput, _ ...func(*lambda.Options)) (*lambda.ListTagsOutput, error) {
	return &lambda.ListTagsOutput{Tags: f.tags}, nil
}

func (f *teardownFunctions) DeleteFunction(_ context.Context, params *lambda.DeleteFunctionInput, _ ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.FunctionName))
	return &lambda.DeleteFunctionOutput{}, nil
}

type teardownJobs struct {
	JobsAPI
	deleted []string
}

func (f *teardownJobs) DeleteJob(_ context.Context, params *glue.DeleteJobInput, _ ...func(*glue.Options)) (*glue.DeleteJobOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.JobName))
	return &glue.DeleteJobOutput{}, nil
}

type teardownCatalog struct {
	CatalogAPI
	crawlerGone bool
	dbGone      bool
}

func (f *teardownCatalog) DeleteCrawler(_ context.Context, _ *glue.DeleteCrawlerInput, _ ...func(*glue.Options)) (*glue.DeleteCrawlerOutput, error) {
	f.crawlerGone = true
	return &glue.DeleteCrawlerOutput{}, nil
}

func (f *teardownCatalog) DeleteDatabase(_ context.Context, _ *glue.DeleteDatabaseInput, _ ...func(*glue.Options)) (*glue.DeleteDatabaseOutput, error) {
	f.dbGone = true
	return &glue.DeleteDatabaseOutput{}, nil
}

type teardownRules struct {
	RuleAPI
	targetsRemoved bool
	ruleGone       bool
}

func (f *teardownRules) RemoveTargets(_ context.Context, _ *eventbridge.RemoveTargetsInput, _ ...func(*eventbridge.Options)) (*eventbridge.RemoveTargetsOutput, error) {
	f.targetsRemoved = true
	return &eventbridge.RemoveTargetsOutput{}, nil
}

func (f *teardownRules) DeleteRule(_ context.Context, _ *eventbridge.DeleteRuleInput, _ ...func(*eventbridge.Options)) (*eventbridge.DeleteRuleOutput, error) {
	f.ruleGone = true
	return &eventbridge.DeleteRuleOutput{}, nil
}

type teardownServerless struct {
	ServerlessAPI
	workgroupGone bool
	namespaceGone bool
}

func (f *teardownServerless) DeleteWorkgroup(_ context.Context, _ *redshiftserverless.DeleteWorkgroupInput, _ ...func(*redshiftserverless.Options)) (*redshiftserverless.DeleteWorkgroupOutput, error) {
	f.workgroupGone = true
	return &redshiftserverless.DeleteWorkgroupOutput{}, nil
}

func (f *teardownServerless) DeleteNamespace(_ context.Context, _ *redshiftserverless.DeleteNamespaceInput, _ ...func(*redshiftserverless.Options)) (*redshiftserverless.DeleteNamespaceOutput, error) {
	f.namespaceGone = true
	return &redshiftserverless.DeleteNamespaceOutput{}, nil
}

type teardownRoles struct {
	RolesAPI
	detached []string
	deleted  []string
}

func (f *teardownRoles) ListAttachedRolePolicies(_ context.Context, _ *iam.ListAttachedRolePoliciesInput, _ ...func(*iam.Options)) (*iam.ListAttachedRolePoliciesOutput, error) {
	return &iam.ListAttachedRolePoliciesOutput{
		AttachedPolicies: []iamtypes.AttachedPolicy{
			{PolicyArn: aws.String("arn:aws:iam::aws:policy/p1")},
		},
	}, nil
}

func (f *teardownRoles) DetachRolePolicy(_ context.Context, params *iam.DetachRolePolicyInput, _ ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error) {
	f.detached = append(f.detached, aws.ToString(params.PolicyArn))
	return &iam.DetachRolePolicyOutput{}, nil
}

func (f *teardownRoles) DeleteRole(_ context.Context, params *iam.DeleteRoleInput, _ ...func(*iam.Options)) (*iam.DeleteRoleOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.RoleName))
	return &iam.DeleteRoleOutput{}, nil
}

func managedTagSet() []s3types.Tag {
	return []s3types.Tag{
		{Key: aws.String(ManagedByKey), Value: aws.String(ManagedByValue)},
	}
}

func newTeardown(storage *teardownStorage, functions *teardownFunctions) (*Teardown, *teardownJobs, *teardownRules, *teardownServerless, *teardownRoles) {
	jobs := &teardownJobs{}
	rules := &teardownRules{}
	serverless := &teardownServerless{}
	roles := &teardownRoles{}
	td := &Teardown{
		Storage:     storage,
		Functions:   functions,
		Jobs:        jobs,
		Catalog:     &teardownCatalog{},
		Rules:       rules,
		Serverless:  serverless,
		Roles:       roles,
		Cfg:         config.DefaultConfig(),
		FunctionARN: func(name string) string { return "arn:fn:" + name },
	}
	return td, jobs, rules, serverless, roles
}

func TestTeardownDeletesEverything(t *testing.T) {
	storage := &teardownStorage{
		tags: managedTagSet(),
		pages: []*s3.ListObjectVersionsOutput{
			{
				Versions: []s3types.ObjectVersion{
					{Key: aws.String("raw/products.csv"), VersionId: aws.String("v1")},
				},
				DeleteMarkers: []s3types.DeleteMarkerEntry{
					{Key: aws.String("raw/old.csv"), VersionId: aws.String("v0")},
				},
				IsTruncated:         aws.Bool(true),
				NextKeyMarker:       aws.String("raw/products.csv"),
				NextVersionIdMarker: aws.String("v1"),
			},
			{
				Versions: []s3types.ObjectVersion{
					{Key: aws.String("scripts/clean_transform.py"), VersionId: aws.String("v2")},
				},
				IsTruncated: aws.Bool(false),
			},
		},
	}
	functions := &teardownFunctions{tags: map[string]string{ManagedByKey: ManagedByValue}}
	td, jobs, rules, serverless, roles := newTeardown(storage, functions)

	if failed := td.Run(context.Background()); failed != 0 {
		t.Fatalf("expected clean teardown, %d deletions failed", failed)
	}

	if !rules.targetsRemoved || !rules.ruleGone {
		t.Error("schedule rule not fully removed")
	}
	if len(functions.deleted) != 3 {
		t.Errorf("expected 3 functions deleted, got %v", functions.deleted)
	}
	if len(jobs.deleted) != 2 {
		t.Errorf("expected 2 jobs deleted, got %v", jobs.deleted)
	}
	if !serverless.workgroupGone || !serverless.namespaceGone {
		t.Error("warehouse not fully removed")
	}
	if len(storage.deleted) != 2 {
		t.Fatalf("expected 2 delete batches across pages, got %d", len(storage.deleted))
	}
	if len(storage.deleted[0]) != 2 {
		t.Errorf("first batch must include the delete marker, got %d objects", len(storage.deleted[0]))
	}
	if !storage.bucketGone {
		t.Error("bucket not deleted")
	}
	if len(roles.deleted) != 4 {
		t.Errorf("expected 4 roles deleted, got %v", roles.deleted)
	}
	if len(roles.detached) != 4 {
		t.Errorf("expected managed policies detached per role, got %v", roles.detached)
	}
}

func TestTeardownRefusesUnmanagedFunction(t *testing.T) {
	storage := &teardownStorage{tags: managedTagSet()}
	functions := &teardownFunctions{tags: map[string]string{}}
	td, _, _, _, _ := newTeardown(storage, functions)

	failed := td.Run(context.Background())
	if len(functions.deleted) != 0 {
		t.Errorf("unmanaged functions must not be deleted, got %v", functions.deleted)
	}
	if failed != 3 {
		t.Errorf("expected 3 failures for the 3 refused functions, got %d", failed)
	}
}

func TestTeardownRefusesUnmanagedBucket(t *testing.T) {
	storage := &teardownStorage{
		tags: []s3types.Tag{{Key: aws.String("team"), Value: aws.String("data")}},
	}
	functions := &teardownFunctions{tags: map[string]string{ManagedByKey: ManagedByValue}}
	td, _, _, _, _ := newTeardown(storage, functions)

	failed := td.Run(context.Background())
	if storage.bucketGone {
		t.Error("unmanaged bucket must not be deleted")
	}
	if len(storage.deleted) != 0 {
		t.Error("unmanaged bucket must not be emptied")
	}
	if failed != 1 {
		t.Errorf("expected exactly the bucket failure, got %d", failed)
	}
}

func TestTeardownContinuesAfterFailures(t *testing.T) {
	storage := &teardownStorage{
		tags:        managedTagSet(),
		versionsErr: errors.New("listing denied"),
	}
	functions := &teardownFunctions{tags: map[string]string{ManagedByKey: ManagedByValue}}
	td, jobs, _, serverless, roles := newTeardown(storage, functions)

	failed := td.Run(context.Background())
	if failed != 1 {
		t.Errorf("expected 1 failure from the bucket, got %d", failed)
	}
	// Everything after the bucket step still ran.
	if len(roles.deleted) != 4 {
		t.Errorf("roles must still be deleted after a bucket failure, got %v", roles.deleted)
	}
	if len(jobs.deleted) != 2 || !serverless.namespaceGone {
		t.Error("earlier steps must be unaffected")
	}
}
