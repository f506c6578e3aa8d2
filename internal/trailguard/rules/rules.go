// Package rules holds the fixed CloudTrail detection table.
//
// Each rule is a pure predicate over one record. Rules never share state and
// never veto each other, so one record can trigger several rules. Order in the
// table only decides the order of alerts produced for the same record.
package rules

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/alert"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/event"
)

// Rule is one row of the detection table.
type Rule struct {
	Name     string
	Category string
	Severity alert.Severity
	Score    int
	// Describe renders the alert description; some rules embed the event name.
	Describe func(event.Record) string
	Match    func(event.Record) bool
}

const (
	FailedConsoleLogin      = "Failed Console Login"
	RootAccountActivity     = "Root Account Activity"
	CloudTrailLoggingChange = "CloudTrail Logging Change"
	IAMPrivilegeChange      = "IAM Privilege Change"
	SecurityGroupOpen       = "Security Group Open to World"
	PublicS3Bucket          = "Public S3 Bucket Configuration"
	KMSKeyDeactivated       = "KMS Key Deactivated"
)

const openCIDR = "0.0.0.0/0"

var table = []Rule{
	{
		Name:     FailedConsoleLogin,
		Category: "Authentication",
		Severity: alert.SeverityHigh,
		Score:    70,
		Describe: static("Console sign-in failure detected."),
		Match: func(r event.Record) bool {
			return r.String("eventName") == "ConsoleLogin" &&
				r.String("responseElements", "ConsoleLogin") == "Failure"
		},
	},
	{
		Name:     RootAccountActivity,
		Category: "Account Management",
		Severity: alert.SeverityCritical,
		Score:    95,
		Describe: static("AWS root account was used."),
		Match: func(r event.Record) bool {
			return r.StringOr("Unknown", "userIdentity", "type") == "Root"
		},
	},
	{
		Name:     CloudTrailLoggingChange,
		Category: "Monitoring Evasion",
		Severity: alert.SeverityCritical,
		Score:    90,
		Describe: static("CloudTrail logging was stopped or a trail was deleted."),
		Match:    sourceAndName("cloudtrail.amazonaws.com", "StopLogging", "DeleteTrail"),
	},
	{
		Name:     IAMPrivilegeChange,
		Category: "Privilege Escalation",
		Severity: alert.SeverityHigh,
		Score:    80,
		Describe: withEventName("IAM operation '%s' may indicate privilege escalation."),
		Match: sourceAndName("iam.amazonaws.com",
			"CreateUser", "CreateAccessKey", "AttachUserPolicy", "PutUserPolicy", "AddUserToGroup"),
	},
	{
		Name:     SecurityGroupOpen,
		Category: "Network Exposure",
		Severity: alert.SeverityHigh,
		Score:    85,
		Describe: static("Security group rule allows access from 0.0.0.0/0."),
		Match: func(r event.Record) bool {
			return sourceAndName("ec2.amazonaws.com",
				"AuthorizeSecurityGroupIngress", "RevokeSecurityGroupIngress")(r) &&
				opensToWorld(r.Map("requestParameters"))
		},
	},
	{
		Name:     PublicS3Bucket,
		Category: "Data Exposure",
		Severity: alert.SeverityHigh,
		Score:    85,
		Describe: static("S3 bucket ACL or policy may allow public access."),
		Match: func(r event.Record) bool {
			return sourceAndName("s3.amazonaws.com", "PutBucketAcl", "PutBucketPolicy")(r) &&
				grantsPublicAccess(r.Map("requestParameters"))
		},
	},
	{
		Name:     KMSKeyDeactivated,
		Category: "Encryption",
		Severity: alert.SeverityMedium,
		Score:    65,
		Describe: withEventName("KMS key operation '%s' detected."),
		Match:    sourceAndName("kms.amazonaws.com", "DisableKey", "ScheduleKeyDeletion"),
	},
}

// Table returns the detection rules in evaluation order.
// The slice is a copy; rule values themselves are immutable.
func Table() []Rule {
	out := make([]Rule, len(table))
	copy(out, table)
	return out
}

// Lookup finds a rule by its exact name.
func Lookup(name string) (Rule, bool) {
	for _, r := range table {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// Names returns the rule names in evaluation order.
func Names() []string {
	names := make([]string, 0, len(table))
	for _, r := range table {
		names = append(names, r.Name)
	}
	return names
}

func static(desc string) func(event.Record) string {
	return func(event.Record) string { return desc }
}

func withEventName(format string) func(event.Record) string {
	return func(r event.Record) string { return fmt.Sprintf(format, r.String("eventName")) }
}

func sourceAndName(source string, names ...string) func(event.Record) bool {
	return func(r event.Record) bool {
		if r.String("eventSource") != source {
			return false
		}
		name := r.String("eventName")
		for _, n := range names {
			if name == n {
				return true
			}
		}
		return false
	}
}

// opensToWorld looks for an ingress range of 0.0.0.0/0. CloudTrail emits the
// permission list as ipPermissions or IpPermissions and the range keys in
// either casing, so both are consulted. Only list-shaped permissions count.
func opensToWorld(params map[string]any) bool {
	perms, ok := event.AsList(event.FirstPresent(params, "ipPermissions", "IpPermissions"))
	if !ok {
		return false
	}
	for _, p := range perms {
		perm, ok := event.AsMap(p)
		if !ok {
			continue
		}
		var ranges []any
		ranges = append(ranges, event.List(perm, "ipRanges")...)
		ranges = append(ranges, event.List(perm, "IpRanges")...)
		for _, rng := range ranges {
			m, ok := event.AsMap(rng)
			if !ok {
				continue
			}
			if cidr, _ := event.FirstPresent(m, "cidrIp", "CidrIp").(string); cidr == openCIDR {
				return true
			}
		}
	}
	return false
}

// grantsPublicAccess is a substring heuristic over the serialized request.
// It also matches requests that remove a public grant; that is accepted.
func grantsPublicAccess(params map[string]any) bool {
	b, err := json.Marshal(params)
	if err != nil {
		return false
	}
	text := string(b)
	return strings.Contains(text, "AllUsers") || strings.Contains(text, "AuthenticatedUsers")
}
