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
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/config"
)

type fakeFunctions struct {
	FunctionsAPI

	createErr     error
	created       []*lambda.CreateFunctionInput
	codeUpdates   []*lambda.UpdateFunctionCodeInput
	configUpdates []*lambda.UpdateFunctionConfigurationInput
	permissions   []*lambda.AddPermissionInput
	permissionErr error
}

func (f *fakeFunctions) CreateFunction(_ context.Context, params *lambda.CreateFunctionInput, _ ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, params)
	return &lambda.CreateFunctionOutput{}, nil
}

func (f *fakeFunctions) UpdateFunctionCode(_ context.Context, params *lambda.UpdateFunctionCodeInput, _ ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error) {
	f.codeUpdates = append(f.codeUpdates, params)
	return &lambda.UpdateFunctionCodeOutput{}, nil
}

func (f *fakeFunctions) UpdateFunctionConfiguration(_ context.Context, params *lambda.UpdateFunctionConfigurationInput, _ ...func(*lambda.Options)) (*lambda.UpdateFunctionConfigurationOutput, error) {
	f.configUpdates = append(f.configUpdates, params)
	return &lambda.UpdateFunctionConfigurationOutput{}, nil
}

func (f *fakeFunctions) AddPermission(_ context.Context, params *lambda.AddPermissionInput, _ ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error) {
	if f.permissionErr != nil {
		return nil, f.permissionErr
	}
	f.permissions = append(f.permissions, params)
	return &lambda.AddPermissionOutput{}, nil
}

func TestPackageBinary(t *testing.T) {
	binPath := filepath.Join(t.TempDir(), "handler")
	payload := []byte("#!/bin/true fake binary contents")
	if err := os.WriteFile(binPath, payload, 0o755); err != nil {
		t.Fatalf("failed to write binary: %v", err)
	}

	zipBytes, err := PackageBinary(binPath)
	if err != nil {
		t.Fatalf("PackageBinary failed: %v", err)
	}

	r, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		t.Fatalf("package is not a zip: %v", err)
	}
	if len(r.File) != 1 {
		t.Fatalf("expected a single entry, got %d", len(r.File))
	}
	entry := r.File[0]
	if entry.Name != "bootstrap" {
		t.Errorf("entry named %q, want bootstrap", entry.Name)
	}
	if entry.Mode()&0o111 == 0 {
		t.Error("bootstrap entry is not executable")
	}
	rc, err := entry.Open()
	if err != nil {
		t.Fatalf("failed to open entry: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("failed to read entry: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("entry contents do not match the binary")
	}
}

func TestPackageBinaryMissing(t *testing.T) {
	if _, err := PackageBinary("/does/not/exist"); err == nil {
		t.Fatal("expected an error for a missing binary")
	}
}

func TestDeployFunctionCreates(t *testing.T) {
	fake := &fakeFunctions{}
	spec := FunctionSpec{Name: "lambda-trigger-glue", Timeout: 300, Env: map[string]string{"BUCKET_NAME": "b"}}

	if err := DeployFunction(context.Background(), fake, spec, "arn:role", []byte("zip")); err != nil {
		t.Fatalf("DeployFunction failed: %v", err)
	}
	if len(fake.created) != 1 {
		t.Fatalf("expected one creation, got %d", len(fake.created))
	}
	created := fake.created[0]
	if created.Runtime != lambdatypes.RuntimeProvidedal2023 {
		t.Errorf("unexpected runtime %v", created.Runtime)
	}
	if aws.ToString(created.Handler) != "bootstrap" {
		t.Errorf("unexpected handler %q", aws.ToString(created.Handler))
	}
	if created.Tags[ManagedByKey] != ManagedByValue {
		t.Error("created function missing the managed-by tag")
	}
	if created.Environment.Variables["BUCKET_NAME"] != "b" {
		t.Error("environment not applied")
	}
}

func TestDeployFunctionUpdatesOnConflict(t *testing.T) {
	fake := &fakeFunctions{createErr: &lambdatypes.ResourceConflictException{}}
	spec := FunctionSpec{Name: "lambda-trigger-glue", Timeout: 300}

	if err := DeployFunction(context.Background(), fake, spec, "arn:role", []byte("zip")); err != nil {
		t.Fatalf("DeployFunction failed: %v", err)
	}
	if len(fake.codeUpdates) != 1 || len(fake.configUpdates) != 1 {
		t.Errorf("expected code and configuration updates, got %d/%d",
			len(fake.codeUpdates), len(fake.configUpdates))
	}
}

func TestFunctionSpecsEnvironment(t *testing.T) {
	cfg := config.DefaultConfig()
	specs := FunctionSpecs(cfg)
	if len(specs) != 3 {
		t.Fatalf("expected 3 handler specs, got %d", len(specs))
	}

	for _, spec := range specs[:2] {
		if spec.Env["BUCKET_NAME"] == "" || spec.Env["GLUE_JOB_NAME"] == "" {
			t.Errorf("handler %s missing bucket or job environment", spec.Name)
		}
		if spec.Timeout != 300 {
			t.Errorf("handler %s timeout %d, want 300", spec.Name, spec.Timeout)
		}
	}

	load := specs[2]
	if load.Timeout != 900 {
		t.Errorf("load handler timeout %d, want 900", load.Timeout)
	}
	for _, key := range []string{"CRAWLER_NAME", "REDSHIFT_WORKGROUP", "REDSHIFT_DATABASE", "REDSHIFT_COPY_ROLE"} {
		if load.Env[key] == "" {
			t.Errorf("load handler missing %s", key)
		}
	}
}
