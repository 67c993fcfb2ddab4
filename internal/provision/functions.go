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
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/config"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
)

// FunctionSpec describes one event handler deployment.
type FunctionSpec struct {
	Name    string
	Timeout int32
	Env     map[string]string
}

// FunctionSpecs expands the configured handler names into deployment
// specs. Handler C gets the long timeout; it waits on the workgroup
// and the crawler.
func FunctionSpecs(cfg *config.Config) []FunctionSpec {
	return []FunctionSpec{
		{
			Name:    cfg.Functions.StartClean,
			Timeout: 300,
			Env: map[string]string{
				"BUCKET_NAME":   cfg.Storage.Bucket,
				"GLUE_JOB_NAME": cfg.Jobs.CleanTransform,
			},
		},
		{
			Name:    cfg.Functions.SplitFactDim,
			Timeout: 300,
			Env: map[string]string{
				"BUCKET_NAME":   cfg.Storage.Bucket,
				"GLUE_JOB_NAME": cfg.Jobs.SplitFactDim,
			},
		},
		{
			Name:    cfg.Functions.LoadWarehouse,
			Timeout: 900,
			Env: map[string]string{
				"BUCKET_NAME":        cfg.Storage.Bucket,
				"CRAWLER_NAME":       cfg.Warehouse.Crawler,
				"CATALOG_DATABASE":   cfg.Warehouse.CatalogDatabase,
				"GLUE_CRAWLER_ROLE":  cfg.Roles.GlueCrawler,
				"REDSHIFT_COPY_ROLE": cfg.Roles.RedshiftCopy,
				"REDSHIFT_NAMESPACE": cfg.Warehouse.Namespace,
				"REDSHIFT_WORKGROUP": cfg.Warehouse.Workgroup,
				"REDSHIFT_DATABASE":  cfg.Warehouse.Database,
				"REDSHIFT_USER":      cfg.Warehouse.AdminUser,
				"REDSHIFT_PASSWORD":  cfg.Warehouse.AdminPassword,
			},
		},
	}
}

// PackageBinary zips a compiled handler binary as the bootstrap entry
// of a provided.al2023 deployment package.
func PackageBinary(binPath string) ([]byte, error) {
	data, err := os.ReadFile(binPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read handler binary %s: %w", binPath, err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	header := &zip.FileHeader{Name: "bootstrap", Method: zip.Deflate}
	header.SetMode(0o755)

	w, err := zw.CreateHeader(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create zip entry: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write zip entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize zip: %w", err)
	}

	return buf.Bytes(), nil
}

// DeployFunction creates the function, or updates code and
// configuration when it already exists.
func DeployFunction(ctx context.Context, client FunctionsAPI, spec FunctionSpec, roleARN string, zipBytes []byte) error {
	log := logging.Component("functions")

	_, err := client.CreateFunction(ctx, &lambda.CreateFunctionInput{
		FunctionName:  aws.String(spec.Name),
		Role:          aws.String(roleARN),
		Runtime:       lambdatypes.RuntimeProvidedal2023,
		Handler:       aws.String("bootstrap"),
		Architectures: []lambdatypes.Architecture{lambdatypes.ArchitectureArm64},
		Code:          &lambdatypes.FunctionCode{ZipFile: zipBytes},
		Timeout:       aws.Int32(spec.Timeout),
		Environment:   &lambdatypes.Environment{Variables: spec.Env},
		Tags: map[string]string{
			ManagedByKey: ManagedByValue,
		},
	})
	if err == nil {
		log.Info().Str("function", spec.Name).Msg("Created function")
		return nil
	}

	var conflict *lambdatypes.ResourceConflictException
	if !errors.As(err, &conflict) {
		return fmt.Errorf("failed to create function %s: %w", spec.Name, err)
	}

	if _, err := client.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(spec.Name),
		ZipFile:      zipBytes,
	}); err != nil {
		return fmt.Errorf("failed to update code for %s: %w", spec.Name, err)
	}
	if _, err := client.UpdateFunctionConfiguration(ctx, &lambda.UpdateFunctionConfigurationInput{
		FunctionName: aws.String(spec.Name),
		Role:         aws.String(roleARN),
		Handler:      aws.String("bootstrap"),
		Timeout:      aws.Int32(spec.Timeout),
		Environment:  &lambdatypes.Environment{Variables: spec.Env},
	}); err != nil {
		return fmt.Errorf("failed to update configuration for %s: %w", spec.Name, err)
	}

	log.Info().Str("function", spec.Name).Msg("Updated function")
	return nil
}

func isFunctionMissing(err error) bool {
	var notFound *lambdatypes.ResourceNotFoundException
	return errors.As(err, &notFound)
}

// DeployFunctions packages and deploys all three handlers from binDir,
// which holds one compiled binary per function name.
func DeployFunctions(ctx context.Context, client FunctionsAPI, cfg *config.Config, roleARN string) error {
	for _, spec := range FunctionSpecs(cfg) {
		zipBytes, err := PackageBinary(filepath.Join(cfg.Functions.BinDir, spec.Name))
		if err != nil {
			return err
		}
		if err := DeployFunction(ctx, client, spec, roleARN, zipBytes); err != nil {
			return err
		}
	}
	return nil
}
