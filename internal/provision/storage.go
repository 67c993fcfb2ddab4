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
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
)

// Logical prefixes under the pipeline bucket.
const (
	PrefixRaw         = "raw/"
	PrefixTransformed = "transformed/"
	PrefixCurated     = "curated/"
	PrefixScripts     = "scripts/"
	PrefixRuns        = "runs/"
)

// Prefixes lists every prefix marker created under the bucket.
var Prefixes = []string{PrefixRaw, PrefixTransformed, PrefixCurated, PrefixScripts, PrefixRuns}

// EnsureBucket creates the pipeline bucket if absent and applies
// versioning, default encryption, the managed-by tag, and the prefix
// markers. An existing bucket is re-tagged and re-configured, not
// treated as an error.
func EnsureBucket(ctx context.Context, client StorageAPI, bucket, region string) error {
	log := logging.Component("storage")

	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	switch {
	case err == nil:
		log.Info().Str("bucket", bucket).Msg("Bucket already exists")
	case isBucketMissing(err):
		input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
		// us-east-1 rejects an explicit location constraint.
		if region != "us-east-1" {
			input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
				LocationConstraint: types.BucketLocationConstraint(region),
			}
		}
		if _, err := client.CreateBucket(ctx, input); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		log.Info().Str("bucket", bucket).Str("region", region).Msg("Created bucket")
	default:
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}

	if _, err := client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(bucket),
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusEnabled,
		},
	}); err != nil {
		return fmt.Errorf("failed to enable versioning on %s: %w", bucket, err)
	}
	log.Info().Str("bucket", bucket).Msg("Versioning enabled")

	if _, err := client.PutBucketEncryption(ctx, &s3.PutBucketEncryptionInput{
		Bucket: aws.String(bucket),
		ServerSideEncryptionConfiguration: &types.ServerSideEncryptionConfiguration{
			Rules: []types.ServerSideEncryptionRule{
				{
					ApplyServerSideEncryptionByDefault: &types.ServerSideEncryptionByDefault{
						SSEAlgorithm: types.ServerSideEncryptionAes256,
					},
				},
			},
		},
	}); err != nil {
		return fmt.Errorf("failed to enable encryption on %s: %w", bucket, err)
	}
	log.Info().Str("bucket", bucket).Msg("Default encryption enabled")

	if _, err := client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket: aws.String(bucket),
		Tagging: &types.Tagging{
			TagSet: []types.Tag{
				{Key: aws.String(ManagedByKey), Value: aws.String(ManagedByValue)},
			},
		},
	}); err != nil {
		return fmt.Errorf("failed to tag bucket %s: %w", bucket, err)
	}

	for _, prefix := range Prefixes {
		if _, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(prefix),
		}); err != nil {
			return fmt.Errorf("failed to create prefix %s in %s: %w", prefix, bucket, err)
		}
		log.Info().Str("bucket", bucket).Str("prefix", prefix).Msg("Created prefix")
	}

	return nil
}

// UploadDataset uploads a local dataset file to the raw prefix. An
// existing object under the same key is overwritten with a warning.
func UploadDataset(ctx context.Context, client StorageAPI, bucket, key, file string) error {
	log := logging.Component("ingest")

	info, err := os.Stat(file)
	if err != nil {
		return fmt.Errorf("dataset file %s: %w", file, err)
	}

	_, err = client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		log.Warn().Str("key", key).Msg("Object already exists, will overwrite")
	case isObjectMissing(err):
		log.Debug().Str("key", key).Msg("Object does not exist, safe to upload")
	default:
		return fmt.Errorf("failed to check object %s: %w", key, err)
	}

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()

	log.Info().
		Str("file", file).
		Int64("bytes", info.Size()).
		Str("destination", fmt.Sprintf("s3://%s/%s", bucket, key)).
		Msg("Uploading dataset")

	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("text/csv"),
	}); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return verifyUpload(ctx, client, bucket, key)
}

// verifyUpload lists the raw prefix and confirms the uploaded key is
// present.
func verifyUpload(ctx context.Context, client StorageAPI, bucket, key string) error {
	log := logging.Component("ingest")

	out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(PrefixRaw),
	})
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", PrefixRaw, err)
	}

	for _, obj := range out.Contents {
		log.Info().
			Str("key", aws.ToString(obj.Key)).
			Int64("bytes", aws.ToInt64(obj.Size)).
			Msg("Found in raw prefix")
		if aws.ToString(obj.Key) == key {
			return nil
		}
	}
	return fmt.Errorf("uploaded object %s not found under %s", key, PrefixRaw)
}

// isBucketMissing matches the HeadBucket not-found error.
func isBucketMissing(err error) bool {
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

// isObjectMissing matches the HeadObject not-found error.
func isObjectMissing(err error) bool {
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
