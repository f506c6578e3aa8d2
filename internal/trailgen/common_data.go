package trailgen

import (
	"github.com/brianvoe/gofakeit/v7"
)

// Shared lists for synthetic CloudTrail records.

func pick(list []string) string {
	return list[gofakeit.Number(0, len(list)-1)]
}

// benignCall is an API call no detection rule reacts to.
type benignCall struct {
	Source string
	Name   string
	Read   bool
}

var BenignCalls = []benignCall{
	{"s3.amazonaws.com", "ListBuckets", true},
	{"s3.amazonaws.com", "GetObject", true},
	{"s3.amazonaws.com", "PutObject", false},
	{"s3.amazonaws.com", "GetBucketAcl", true},
	{"ec2.amazonaws.com", "DescribeInstances", true},
	{"ec2.amazonaws.com", "DescribeSecurityGroups", true},
	{"ec2.amazonaws.com", "RunInstances", false},
	{"iam.amazonaws.com", "GetUser", true},
	{"iam.amazonaws.com", "ListRoles", true},
	{"kms.amazonaws.com", "Decrypt", true},
	{"kms.amazonaws.com", "GenerateDataKey", true},
	{"cloudtrail.amazonaws.com", "LookupEvents", true},
	{"cloudtrail.amazonaws.com", "DescribeTrails", true},
	{"sts.amazonaws.com", "AssumeRole", false},
	{"lambda.amazonaws.com", "Invoke", false},
	{"dynamodb.amazonaws.com", "Query", true},
}

var UserAgents = []string{
	"aws-cli/2.15.30 Python/3.11.8 Linux/6.1 exe/x86_64",
	"Boto3/1.34.69 md/Botocore#1.34.69 ua/2.0 os/linux",
	"aws-sdk-go-v2/1.32.7 os/linux lang/go#1.23",
	"console.amazonaws.com",
	"terraform-provider-aws/5.42.0",
}

var Teams = []string{"platform", "data", "payments", "security", "web", "ml"}

var PrivateCIDRs = []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.1.0/24"}
