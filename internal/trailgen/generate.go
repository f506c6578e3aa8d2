package trailgen

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/logger"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/rules"
)

// Summary reports what Generate wrote. ByRule counts the suspicious records
// per rule they were built to trigger.
type Summary struct {
	Files  []string       `json:"files"`
	Events int            `json:"events"`
	ByRule map[string]int `json:"by_rule"`
}

type record = map[string]any

// template builds a record that triggers exactly one rule.
type template func(g *generator, base record) record

var templates = map[string]template{
	rules.FailedConsoleLogin: func(g *generator, r record) record {
		r["eventSource"] = "signin.amazonaws.com"
		r["eventName"] = "ConsoleLogin"
		r["eventType"] = "AwsConsoleSignIn"
		r["responseElements"] = record{"ConsoleLogin": "Failure"}
		r["additionalEventData"] = record{"MFAUsed": "No", "LoginTo": "https://console.aws.amazon.com/"}
		r["errorMessage"] = "Failed authentication"
		return r
	},
	rules.RootAccountActivity: func(g *generator, r record) record {
		r["userIdentity"] = record{
			"type":        "Root",
			"principalId": g.cfg.AccountID,
			"arn":         fmt.Sprintf("arn:aws:iam::%s:root", g.cfg.AccountID),
			"accountId":   g.cfg.AccountID,
		}
		r["eventSource"] = "s3.amazonaws.com"
		r["eventName"] = "ListBuckets"
		return r
	},
	rules.CloudTrailLoggingChange: func(g *generator, r record) record {
		r["eventSource"] = "cloudtrail.amazonaws.com"
		r["eventName"] = pick([]string{"StopLogging", "DeleteTrail"})
		r["requestParameters"] = record{"name": fmt.Sprintf("arn:aws:cloudtrail:%s:%s:trail/org-trail", r["awsRegion"], g.cfg.AccountID)}
		return r
	},
	rules.IAMPrivilegeChange: func(g *generator, r record) record {
		r["eventSource"] = "iam.amazonaws.com"
		name := pick([]string{"CreateUser", "CreateAccessKey", "AttachUserPolicy", "PutUserPolicy", "AddUserToGroup"})
		r["eventName"] = name
		params := record{"userName": gofakeit.Username()}
		switch name {
		case "AttachUserPolicy":
			params["policyArn"] = "arn:aws:iam::aws:policy/AdministratorAccess"
		case "AddUserToGroup":
			params["groupName"] = "admins"
		case "PutUserPolicy":
			params["policyName"] = "inline-" + pick(Teams)
		}
		r["requestParameters"] = params
		return r
	},
	rules.SecurityGroupOpen: func(g *generator, r record) record {
		r["eventSource"] = "ec2.amazonaws.com"
		r["eventName"] = "AuthorizeSecurityGroupIngress"
		port := pick([]string{"22", "3389", "5432"})
		r["requestParameters"] = record{
			"groupId": fmt.Sprintf("sg-%08x", gofakeit.Number(0, 1<<30)),
			"ipPermissions": []any{
				record{
					"ipProtocol": "tcp",
					"fromPort":   port,
					"toPort":     port,
					"ipRanges":   []any{record{"cidrIp": "0.0.0.0/0"}},
				},
			},
		}
		return r
	},
	rules.PublicS3Bucket: func(g *generator, r record) record {
		r["eventSource"] = "s3.amazonaws.com"
		r["eventName"] = "PutBucketAcl"
		r["requestParameters"] = record{
			"bucketName": fmt.Sprintf("%s-%d-assets", pick(Teams), gofakeit.Number(100, 999)),
			"AccessControlPolicy": record{
				"AccessControlList": record{
					"Grant": []any{record{
						"Grantee":    record{"URI": "http://acs.amazonaws.com/groups/global/AllUsers"},
						"Permission": "READ",
					}},
				},
			},
		}
		return r
	},
	rules.KMSKeyDeactivated: func(g *generator, r record) record {
		r["eventSource"] = "kms.amazonaws.com"
		r["eventName"] = pick([]string{"DisableKey", "ScheduleKeyDeletion"})
		r["requestParameters"] = record{"keyId": gofakeit.UUID()}
		return r
	},
}

type generator struct {
	cfg      GenConfig
	clock    time.Time
	suspects []string
}

func newGenerator(cfg GenConfig) (*generator, error) {
	start := time.Now().UTC().Add(-24 * time.Hour).Truncate(time.Second)
	if cfg.Start != "" {
		t, err := time.Parse(time.RFC3339, cfg.Start)
		if err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		start = t.UTC()
	}

	suspects := cfg.Rules
	if len(suspects) == 0 {
		suspects = rules.Names()
	}
	for _, name := range suspects {
		if _, ok := templates[name]; !ok {
			return nil, fmt.Errorf("no template for rule %q", name)
		}
	}
	return &generator{cfg: cfg, clock: start, suspects: suspects}, nil
}

func (g *generator) base() record {
	g.clock = g.clock.Add(time.Duration(gofakeit.Number(1, 90)) * time.Second)
	user := gofakeit.Username()
	call := BenignCalls[gofakeit.Number(0, len(BenignCalls)-1)]
	return record{
		"eventVersion": "1.08",
		"userIdentity": record{
			"type":        "IAMUser",
			"principalId": fmt.Sprintf("AIDA%012d", gofakeit.Number(0, 999999999)),
			"arn":         fmt.Sprintf("arn:aws:iam::%s:user/%s", g.cfg.AccountID, user),
			"accountId":   g.cfg.AccountID,
			"userName":    user,
		},
		"eventTime":          g.clock.Format(time.RFC3339),
		"eventSource":        call.Source,
		"eventName":          call.Name,
		"awsRegion":          pick(g.cfg.Regions),
		"sourceIPAddress":    gofakeit.IPv4Address(),
		"userAgent":          pick(UserAgents),
		"requestParameters":  nil,
		"responseElements":   nil,
		"requestID":          gofakeit.UUID(),
		"eventID":            gofakeit.UUID(),
		"readOnly":           call.Read,
		"eventType":          "AwsApiCall",
		"recipientAccountId": g.cfg.AccountID,
	}
}

// next returns one record and the rule it targets ("" for benign).
func (g *generator) next() (record, string) {
	r := g.base()
	if g.cfg.Suspicious <= 0 || gofakeit.Float64() >= g.cfg.Suspicious {
		if r["eventSource"] == "ec2.amazonaws.com" && r["eventName"] == "DescribeSecurityGroups" {
			r["requestParameters"] = record{"filterSet": record{"items": []any{record{"name": "ip-permission.cidr", "valueSet": []any{pick(PrivateCIDRs)}}}}}
		}
		return r, ""
	}
	rule := pick(g.suspects)
	return templates[rule](g, r), rule
}

// Generate writes cfg.Files CloudTrail log files into cfg.Output.
func Generate(cfg GenConfig) (*Summary, error) {
	log := logger.L()
	cfg.applyDefaults()

	// deterministic data if seed provided
	gofakeit.Seed(cfg.Seed)

	g, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	sum := &Summary{ByRule: make(map[string]int)}
	for i := 0; i < cfg.Files; i++ {
		records := make([]record, 0, cfg.EventsPerFile)
		for j := 0; j < cfg.EventsPerFile; j++ {
			r, rule := g.next()
			if rule != "" {
				sum.ByRule[rule]++
			}
			records = append(records, r)
		}

		path := filepath.Join(cfg.Output, g.fileName(i))
		if err := writeTrailFile(path, records, cfg.Gzip); err != nil {
			return nil, err
		}
		sum.Files = append(sum.Files, path)
		sum.Events += len(records)
		log.Debugw("trail file written", "path", path, "events", len(records))
	}

	log.Infow("generation complete", "files", len(sum.Files), "events", sum.Events, "by_rule", sum.ByRule)
	return sum, nil
}

// fileName follows the CloudTrail delivery naming scheme.
func (g *generator) fileName(i int) string {
	name := fmt.Sprintf("%s_CloudTrail_%s_%s_%04d.json",
		g.cfg.AccountID, g.cfg.Regions[0], g.clock.Format("20060102T1504Z"), i)
	if g.cfg.Gzip {
		name += ".gz"
	}
	return name
}

func writeTrailFile(path string, records []record, gz bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	if gz {
		zw := gzip.NewWriter(f)
		defer func() {
			if cerr := zw.Close(); err == nil && cerr != nil {
				err = cerr
			}
		}()
		w = zw
	}
	return json.NewEncoder(w).Encode(record{"Records": records})
}
