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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/config"
	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
)

// Trust policy documents, one per service principal. Opaque payloads.
const (
	glueTrustPolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {"Effect": "Allow", "Principal": {"Service": "glue.amazonaws.com"}, "Action": "sts:AssumeRole"}
  ]
}`

	lambdaTrustPolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {"Effect": "Allow", "Principal": {"Service": "lambda.amazonaws.com"}, "Action": "sts:AssumeRole"}
  ]
}`

	redshiftTrustPolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {"Effect": "Allow", "Principal": {"Service": "redshift.amazonaws.com"}, "Action": "sts:AssumeRole"}
  ]
}`
)

// RoleSpec describes one execution role: its trust policy and the
// managed policies attached to it.
type RoleSpec struct {
	Name        string
	Description string
	TrustPolicy string
	Policies    []string
}

// RoleSpecs expands the configured role names into full role
// definitions.
func RoleSpecs(roles config.RolesConfig) []RoleSpec {
	return []RoleSpec{
		{
			Name:        roles.GlueETL,
			Description: "Execution role for the Glue transform jobs",
			TrustPolicy: glueTrustPolicy,
			Policies: []string{
				"arn:aws:iam::aws:policy/service-role/AWSGlueServiceRole",
				"arn:aws:iam::aws:policy/AmazonS3FullAccess",
				"arn:aws:iam::aws:policy/CloudWatchLogsFullAccess",
			},
		},
		{
			Name:        roles.LambdaETL,
			Description: "Execution role for the pipeline event handlers",
			TrustPolicy: lambdaTrustPolicy,
			Policies: []string{
				"arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole",
				"arn:aws:iam::aws:policy/AmazonS3FullAccess",
				"arn:aws:iam::aws:policy/AWSGlueConsoleFullAccess",
				"arn:aws:iam::aws:policy/AmazonRedshiftFullAccess",
				"arn:aws:iam::aws:policy/AmazonRedshiftDataFullAccess",
			},
		},
		{
			Name:        roles.RedshiftCopy,
			Description: "Role the warehouse assumes for COPY from the curated prefix",
			TrustPolicy: redshiftTrustPolicy,
			Policies: []string{
				"arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess",
			},
		},
		{
			Name:        roles.GlueCrawler,
			Description: "Role for the curated-prefix catalog crawler",
			TrustPolicy: glueTrustPolicy,
			Policies: []string{
				"arn:aws:iam::aws:policy/service-role/AWSGlueServiceRole",
				"arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess",
			},
		},
	}
}

// EnsureRole creates the role if it does not exist and attaches its
// managed policies. AttachRolePolicy is idempotent, so policies are
// re-attached unconditionally.
func EnsureRole(ctx context.Context, client RolesAPI, spec RoleSpec) error {
	log := logging.Component("iam")

	_, err := client.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(spec.Name)})
	switch {
	case err == nil:
		log.Info().Str("role", spec.Name).Msg("Role already exists")
	case isRoleMissing(err):
		_, err = client.CreateRole(ctx, &iam.CreateRoleInput{
			RoleName:                 aws.String(spec.Name),
			AssumeRolePolicyDocument: aws.String(spec.TrustPolicy),
			Description:              aws.String(spec.Description),
			Tags: []iamtypes.Tag{
				{Key: aws.String(ManagedByKey), Value: aws.String(ManagedByValue)},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create role %s: %w", spec.Name, err)
		}
		log.Info().Str("role", spec.Name).Msg("Created role")
	default:
		return fmt.Errorf("failed to check role %s: %w", spec.Name, err)
	}

	for _, policyARN := range spec.Policies {
		if _, err := client.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
			RoleName:  aws.String(spec.Name),
			PolicyArn: aws.String(policyARN),
		}); err != nil {
			return fmt.Errorf("failed to attach %s to %s: %w", policyARN, spec.Name, err)
		}
		log.Info().Str("role", spec.Name).Str("policy", policyARN).Msg("Attached policy")
	}

	return nil
}

// EnsureRoles provisions all four pipeline roles.
func EnsureRoles(ctx context.Context, client RolesAPI, roles config.RolesConfig) error {
	for _, spec := range RoleSpecs(roles) {
		if err := EnsureRole(ctx, client, spec); err != nil {
			return err
		}
	}
	return nil
}

// VerifyRole returns an error if the named role does not exist. Job
// registration calls it before handing the role ARN to Glue.
func VerifyRole(ctx context.Context, client RolesAPI, name string) error {
	if _, err := client.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)}); err != nil {
		if isRoleMissing(err) {
			return fmt.Errorf("IAM role %s not found, run 'dwctl roles create' first", name)
		}
		return fmt.Errorf("failed to check role %s: %w", name, err)
	}
	return nil
}

func isRoleMissing(err error) bool {
	var notFound *iamtypes.NoSuchEntityException
	return errors.As(err, &notFound)
}
