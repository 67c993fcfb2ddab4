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
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/logging"
)

// EnsureScheduleRule creates the fixed-interval rule that fires
// handler A, points it at the handler and grants EventBridge the
// invoke permission.
func EnsureScheduleRule(ctx context.Context, rules RuleAPI, functions FunctionsAPI,
	ruleName, schedule, functionARN, ruleARN string) error {

	log := logging.Component("events")

	_, err := rules.DescribeRule(ctx, &eventbridge.DescribeRuleInput{Name: aws.String(ruleName)})
	switch {
	case err == nil:
		log.Info().Str("rule", ruleName).Msg("Rule already exists")
	case isRuleMissing(err):
		_, err = rules.PutRule(ctx, &eventbridge.PutRuleInput{
			Name:               aws.String(ruleName),
			ScheduleExpression: aws.String(schedule),
			State:              ebtypes.RuleStateEnabled,
			Description:        aws.String("Starts the clean/transform stage on a fixed interval"),
		})
		if err != nil {
			return fmt.Errorf("failed to create rule %s: %w", ruleName, err)
		}
		log.Info().Str("rule", ruleName).Str("schedule", schedule).Msg("Created rule")
	default:
		return fmt.Errorf("failed to check rule %s: %w", ruleName, err)
	}

	if _, err := rules.PutTargets(ctx, &eventbridge.PutTargetsInput{
		Rule: aws.String(ruleName),
		Targets: []ebtypes.Target{
			{Id: aws.String("1"), Arn: aws.String(functionARN)},
		},
	}); err != nil {
		return fmt.Errorf("failed to set rule target: %w", err)
	}

	err = addInvokePermission(ctx, functions, &lambda.AddPermissionInput{
		FunctionName: aws.String(functionARN),
		StatementId:  aws.String(ruleName + "-permission"),
		Action:       aws.String("lambda:InvokeFunction"),
		Principal:    aws.String("events.amazonaws.com"),
		SourceArn:    aws.String(ruleARN),
	})
	if err != nil {
		return err
	}

	log.Info().Str("rule", ruleName).Str("function", functionARN).Msg("Schedule wired")
	return nil
}

// NotificationSpec wires one bucket prefix to one handler.
type NotificationSpec struct {
	ID          string
	Prefix      string
	FunctionARN string
}

// EnsureBucketNotifications appends object-created notifications for
// each spec to the bucket's existing configuration. Specs whose
// function ARN is already wired for the prefix are skipped; the rest
// of the configuration is preserved (read-modify-write).
func EnsureBucketNotifications(ctx context.Context, storage StorageAPI, functions FunctionsAPI,
	bucket, bucketARN, accountID string, specs []NotificationSpec) error {

	log := logging.Component("events")

	current, err := storage.GetBucketNotificationConfiguration(ctx, &s3.GetBucketNotificationConfigurationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to fetch notification configuration for %s: %w", bucket, err)
	}

	configs := current.LambdaFunctionConfigurations
	changed := false

	for _, spec := range specs {
		if notificationExists(configs, spec) {
			log.Info().
				Str("prefix", spec.Prefix).
				Str("function", spec.FunctionARN).
				Msg("Notification already configured")
			continue
		}

		// The bucket needs invoke permission before S3 accepts the
		// notification configuration.
		err := addInvokePermission(ctx, functions, &lambda.AddPermissionInput{
			FunctionName:  aws.String(spec.FunctionARN),
			StatementId:   aws.String(spec.ID + "-permission"),
			Action:        aws.String("lambda:InvokeFunction"),
			Principal:     aws.String("s3.amazonaws.com"),
			SourceArn:     aws.String(bucketARN),
			SourceAccount: aws.String(accountID),
		})
		if err != nil {
			return err
		}

		configs = append(configs, s3types.LambdaFunctionConfiguration{
			Id:                aws.String(spec.ID),
			LambdaFunctionArn: aws.String(spec.FunctionARN),
			Events:            []s3types.Event{s3types.EventS3ObjectCreated},
			Filter: &s3types.NotificationConfigurationFilter{
				Key: &s3types.S3KeyFilter{
					FilterRules: []s3types.FilterRule{
						{Name: s3types.FilterRuleNamePrefix, Value: aws.String(spec.Prefix)},
					},
				},
			},
		})
		changed = true
		log.Info().
			Str("prefix", spec.Prefix).
			Str("function", spec.FunctionARN).
			Msg("Adding notification")
	}

	if !changed {
		return nil
	}

	_, err = storage.PutBucketNotificationConfiguration(ctx, &s3.PutBucketNotificationConfigurationInput{
		Bucket: aws.String(bucket),
		NotificationConfiguration: &s3types.NotificationConfiguration{
			LambdaFunctionConfigurations: configs,
			TopicConfigurations:          current.TopicConfigurations,
			QueueConfigurations:          current.QueueConfigurations,
			EventBridgeConfiguration:     current.EventBridgeConfiguration,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update notification configuration for %s: %w", bucket, err)
	}
	return nil
}

// notificationExists reports whether a configuration already wires the
// spec's function for the spec's prefix.
func notificationExists(configs []s3types.LambdaFunctionConfiguration, spec NotificationSpec) bool {
	for _, cfg := range configs {
		if aws.ToString(cfg.LambdaFunctionArn) != spec.FunctionARN {
			continue
		}
		if cfg.Filter == nil || cfg.Filter.Key == nil {
			return true
		}
		for _, rule := range cfg.Filter.Key.FilterRules {
			if rule.Name == s3types.FilterRuleNamePrefix && aws.ToString(rule.Value) == spec.Prefix {
				return true
			}
		}
	}
	return false
}

// addInvokePermission adds a Lambda resource policy statement,
// treating an existing statement as a no-op.
func addInvokePermission(ctx context.Context, functions FunctionsAPI, input *lambda.AddPermissionInput) error {
	_, err := functions.AddPermission(ctx, input)
	if err != nil {
		var conflict *lambdatypes.ResourceConflictException
		if errors.As(err, &conflict) {
			log := logging.Component("events")
			log.Info().
				Str("statement", aws.ToString(input.StatementId)).
				Msg("Invoke permission already exists")
			return nil
		}
		return fmt.Errorf("failed to add invoke permission %s: %w", aws.ToString(input.StatementId), err)
	}
	return nil
}

func isRuleMissing(err error) bool {
	var notFound *ebtypes.ResourceNotFoundException
	return errors.As(err, &notFound)
}
