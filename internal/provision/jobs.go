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
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/config"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
)

// The transform job scripts are opaque payloads shipped with the
// provisioner and uploaded to the scripts/ prefix.
var (
	//go:embed gluescripts/clean_transform.py
	cleanTransformScript []byte

	//go:embed gluescripts/split_fact_dim.py
	splitFactDimScript []byte
)

// JobSpec describes one Glue transform job.
type JobSpec struct {
	Name        string
	Description string
	ScriptKey   string
	Script      []byte
}

// JobSpecs expands the configured job names into full definitions.
func JobSpecs(jobs config.JobsConfig) []JobSpec {
	return []JobSpec{
		{
			Name:        jobs.CleanTransform,
			Description: "ETL job to clean and type the raw product sales data.",
			ScriptKey:   PrefixScripts + "clean_transform.py",
			Script:      cleanTransformScript,
		},
		{
			Name:        jobs.SplitFactDim,
			Description: "ETL job to split transformed data into fact and dimension tables.",
			ScriptKey:   PrefixScripts + "split_fact_dim.py",
			Script:      splitFactDimScript,
		},
	}
}

// UploadJobScripts puts the job scripts under the scripts/ prefix.
func UploadJobScripts(ctx context.Context, client StorageAPI, bucket string, specs []JobSpec) error {
	log := logging.Component("jobs")
	for _, spec := range specs {
		if _, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(spec.ScriptKey),
			Body:        strings.NewReader(string(spec.Script)),
			ContentType: aws.String("text/x-python"),
		}); err != nil {
			return fmt.Errorf("failed to upload job script %s: %w", spec.ScriptKey, err)
		}
		log.Info().Str("key", spec.ScriptKey).Msg("Uploaded job script")
	}
	return nil
}

// EnsureJob registers the Glue job if it does not exist. An existing
// job is left untouched.
func EnsureJob(ctx context.Context, client JobsAPI, spec JobSpec, bucket, roleARN string) error {
	log := logging.Component("jobs")

	_, err := client.GetJob(ctx, &glue.GetJobInput{JobName: aws.String(spec.Name)})
	switch {
	case err == nil:
		log.Info().Str("job", spec.Name).Msg("Glue job already exists")
		return nil
	case isEntityMissing(err):
		// fall through to create
	default:
		return fmt.Errorf("failed to check Glue job %s: %w", spec.Name, err)
	}

	_, err = client.CreateJob(ctx, &glue.CreateJobInput{
		Name: aws.String(spec.Name),
		Role: aws.String(roleARN),
		Command: &gluetypes.JobCommand{
			Name:           aws.String("glueetl"),
			ScriptLocation: aws.String(fmt.Sprintf("s3://%s/%s", bucket, spec.ScriptKey)),
			PythonVersion:  aws.String("3"),
		},
		DefaultArguments: map[string]string{
			"--TempDir":      fmt.Sprintf("s3://%s/temp/", bucket),
			"--job-language": "python",
		},
		GlueVersion:     aws.String("4.0"),
		WorkerType:      gluetypes.WorkerTypeG1x,
		NumberOfWorkers: aws.Int32(2),
		Description:     aws.String(spec.Description),
		Tags: map[string]string{
			ManagedByKey: ManagedByValue,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create Glue job %s: %w", spec.Name, err)
	}
	log.Info().Str("job", spec.Name).Msg("Created Glue job")
	return nil
}

// StartJob starts an asynchronous job run and returns its ID. The
// caller never waits for completion; the storage events produced by
// the job drive the next pipeline stage.
func StartJob(ctx context.Context, client JobsAPI, name string, arguments map[string]string) (string, error) {
	out, err := client.StartJobRun(ctx, &glue.StartJobRunInput{
		JobName:   aws.String(name),
		Arguments: arguments,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start Glue job %s: %w", name, err)
	}

	runID := aws.ToString(out.JobRunId)
	log := logging.Component("jobs")
	log.Info().
		Str("job", name).
		Str("job_run_id", runID).
		Msg("Started Glue job")
	return runID, nil
}

func isEntityMissing(err error) bool {
	var notFound *gluetypes.EntityNotFoundException
	return errors.As(err, &notFound)
}
