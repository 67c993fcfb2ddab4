//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

package awsc

import "fmt"

// RoleARN builds an IAM role ARN for the account.
func (c *Clients) RoleARN(roleName string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", c.AccountID, roleName)
}

// FunctionARN builds a Lambda function ARN in the client region.
func (c *Clients) FunctionARN(functionName string) string {
	return fmt.Sprintf("arn:aws:lambda:%s:%s:function:%s", c.Region, c.AccountID, functionName)
}

// RuleARN builds an EventBridge rule ARN in the client region.
func (c *Clients) RuleARN(ruleName string) string {
	return fmt.Sprintf("arn:aws:events:%s:%s:rule/%s", c.Region, c.AccountID, ruleName)
}

// BucketARN builds an S3 bucket ARN (buckets are not region scoped).
func BucketARN(bucket string) string {
	return fmt.Sprintf("arn:aws:s3:::%s", bucket)
}
