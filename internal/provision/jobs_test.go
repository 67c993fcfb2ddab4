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
	"regexp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/config"
)

type fakeJobs struct {
	JobsAPI

	getJobErr error
	created   *glue.CreateJobInput
	started   *glue.StartJobRunInput
}

func (f *fakeJobs) GetJob(_ context.Context, _ *glue.GetJobInput, _ ...func(*glue.Options)) (*glue.GetJobOutput, error) {
	if f.getJobErr != nil {
		return nil, f.getJobErr
	}
	return &glue.GetJobOutput{}, nil
}

func (f *fakeJobs) CreateJob(_ context.Context, params *glue.CreateJobInput, _ ...func(*glue.Options)) (*glue.CreateJobOutput, error) {
	f.created = params
	return &glue.CreateJobOutput{Name: params.Name}, nil
}

func (f *fakeJobs) StartJobRun(_ context.Context, params *glue.StartJobRunInput, _ ...func(*glue.Options)) (*glue.StartJobRunOutput, error) {
	f.started = params
	return &glue.StartJobRunOutput{JobRunId: aws.String("jr-1")}, nil
}

func testJobsConfig() config.JobsConfig {
	return config.JobsConfig{
		CleanTransform: "glue-clean-transform",
		SplitFactDim:   "glue-split-fact-dim",
	}
}

func TestJobSpecs(t *testing.T) {
	specs := JobSpecs(testJobsConfig())
	if len(specs) != 2 {
		t.Fatalf("expected 2 job specs, got %d", len(specs))
	}
	for _, spec := range specs {
		if !strings.HasPrefix(spec.ScriptKey, PrefixScripts) {
			t.Errorf("job %s: script key %q not under %s", spec.Name, spec.ScriptKey, PrefixScripts)
		}
		if len(spec.Script) == 0 {
			t.Errorf("job %s: embedded script is empty", spec.Name)
		}
	}
	if !strings.Contains(string(specs[0].Script), "RUN_ID") {
		t.Error("stage 1 script must accept the run token argument")
	}
	if !strings.Contains(string(specs[1].Script), "RUN_ID") {
		t.Error("stage 2 script must accept the run token argument")
	}
}

// The handlers and `jobs start` pass exactly --BUCKET_NAME and --RUN_ID,
// so the scripts may only resolve those arguments (plus JOB_NAME).
// getResolvedOptions fails the whole job run on any unsupplied option.
func TestJobScriptsResolveOnlyProvidedArguments(t *testing.T) {
	provided := map[string]bool{"JOB_NAME": true, "BUCKET_NAME": true, "RUN_ID": true}
	optionList := regexp.MustCompile(`getResolvedOptions\(sys\.argv,\s*\[([^\]]*)\]`)
	option := regexp.MustCompile(`"([A-Z_]+)"`)

	for _, spec := range JobSpecs(testJobsConfig()) {
		m := optionList.FindStringSubmatch(string(spec.Script))
		if m == nil {
			t.Fatalf("job %s: script does not call getResolvedOptions", spec.Name)
		}
		for _, opt := range option.FindAllStringSubmatch(m[1], -1) {
			if !provided[opt[1]] {
				t.Errorf("job %s: script resolves %q, which no caller supplies", spec.Name, opt[1])
			}
		}
	}
}

func TestEnsureJobCreatesWhenMissing(t *testing.T) {
	fake := &fakeJobs{getJobErr: &gluetypes.EntityNotFoundException{}}
	spec := JobSpecs(testJobsConfig())[0]

	if err := EnsureJob(context.Background(), fake, spec, "b", "arn:aws:iam::123456789012:role/glue-etl-role"); err != nil {
		t.Fatalf("EnsureJob failed: %v", err)
	}
	if fake.created == nil {
		t.Fatal("expected job creation")
	}
	if got := aws.ToString(fake.created.Command.ScriptLocation); got != "s3://b/"+spec.ScriptKey {
		t.Errorf("unexpected script location %q", got)
	}
	if aws.ToString(fake.created.GlueVersion) != "4.0" {
		t.Errorf("unexpected Glue version %q", aws.ToString(fake.created.GlueVersion))
	}
	if fake.created.WorkerType != gluetypes.WorkerTypeG1x || aws.ToInt32(fake.created.NumberOfWorkers) != 2 {
		t.Error("unexpected worker configuration")
	}
	if fake.created.Tags[ManagedByKey] != ManagedByValue {
		t.Error("created job missing the managed-by tag")
	}
}

func TestEnsureJobExistingIsLeftAlone(t *testing.T) {
	fake := &fakeJobs{}
	spec := JobSpecs(testJobsConfig())[1]

	if err := EnsureJob(context.Background(), fake, spec, "b", "arn"); err != nil {
		t.Fatalf("EnsureJob failed: %v", err)
	}
	if fake.created != nil {
		t.Error("existing job must not be recreated")
	}
}

func TestStartJobPassesArguments(t *testing.T) {
	fake := &fakeJobs{}

	runID, err := StartJob(context.Background(), fake, "glue-clean-transform", map[string]string{
		"--BUCKET_NAME": "b",
		"--RUN_ID":      "run-42",
	})
	if err != nil {
		t.Fatalf("StartJob failed: %v", err)
	}
	if runID != "jr-1" {
		t.Errorf("expected job run id jr-1, got %q", runID)
	}
	if fake.started.Arguments["--RUN_ID"] != "run-42" {
		t.Errorf("run token not forwarded: %v", fake.started.Arguments)
	}
}

func TestUploadJobScripts(t *testing.T) {
	fake := &fakeStorage{}
	specs := JobSpecs(testJobsConfig())

	if err := UploadJobScripts(context.Background(), fake, "b", specs); err != nil {
		t.Fatalf("UploadJobScripts failed: %v", err)
	}
	if len(fake.putKeys) != 2 {
		t.Fatalf("expected 2 script uploads, got %v", fake.putKeys)
	}
	for i, spec := range specs {
		if fake.putKeys[i] != spec.ScriptKey {
			t.Errorf("upload %d: expected %q, got %q", i, spec.ScriptKey, fake.putKeys[i])
		}
	}
}
