// Package alert defines the Alert record produced by detection, its severity
// scale, and the Filter used to select stored alerts.
package alert

import (
	"time"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/event"
)

// Alert is one rule match against one CloudTrail record.
//
// Rule-level fields (Rule, Description, Category, Severity, Score) come from the
// rule table. Event-level fields are denormalized from the record for querying,
// and RawEvent keeps the full record as forensic evidence. ScanID is stamped by
// whoever runs the detection pass; IngestedAt is set by the store on insert.
type Alert struct {
	ID          string       `json:"_id,omitempty" bson:"-"`
	Rule        string       `json:"rule" bson:"rule"`
	Description string       `json:"description" bson:"description"`
	Category    string       `json:"category" bson:"category"`
	Severity    Severity     `json:"severity" bson:"severity"`
	Score       int          `json:"score" bson:"score"`
	User        string       `json:"user" bson:"user"`
	UserType    string       `json:"userType" bson:"userType"`
	SourceIP    string       `json:"sourceIP" bson:"sourceIP"`
	EventName   string       `json:"eventName" bson:"eventName"`
	EventSource string       `json:"eventSource" bson:"eventSource"`
	EventTime   string       `json:"eventTime" bson:"eventTime"`
	AWSRegion   string       `json:"awsRegion" bson:"awsRegion"`
	EventID     string       `json:"eventId" bson:"eventId"`
	RawEvent    event.Record `json:"rawEvent" bson:"rawEvent"`
	ScanID      string       `json:"scanId,omitempty" bson:"scanId,omitempty"`
	IngestedAt  time.Time    `json:"ingestedAt" bson:"ingestedAt"`
}

// Stamp sets IngestedAt to now unless it is already set.
func (a *Alert) Stamp(now time.Time) {
	if a.IngestedAt.IsZero() {
		a.IngestedAt = now
	}
}
