package query

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/araddon/dateparse"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/alert"
)

// Stats counts what an alerts query read and returned.
type Stats struct {
	InputAlerts   int // alerts read (store rows or decoded lines)
	MatchedAlerts int // alerts returned after filtering and limit
	ErrorLines    int // export lines that failed to decode
	BySeverity    map[string]int
	ByRule        map[string]int
	ByScan        map[string]int
	ByCategory    map[string]int
	// Range of the CloudTrail eventTime of matched alerts.
	FirstEventTime *time.Time
	LastEventTime  *time.Time
}

func NewStats() *Stats {
	return &Stats{
		BySeverity: make(map[string]int),
		ByRule:     make(map[string]int),
		ByScan:     make(map[string]int),
		ByCategory: make(map[string]int),
	}
}

func (s *Stats) IncrementInput() { s.InputAlerts++ }

func (s *Stats) IncrementError() { s.ErrorLines++ }

// IncrementMatched records one returned alert in every breakdown.
func (s *Stats) IncrementMatched(a alert.Alert) {
	s.MatchedAlerts++

	if a.Severity != "" {
		s.BySeverity[string(a.Severity)]++
	}
	if a.Rule != "" {
		s.ByRule[a.Rule]++
	}
	if a.ScanID != "" {
		s.ByScan[a.ScanID]++
	}
	if a.Category != "" {
		s.ByCategory[a.Category]++
	}

	if a.EventTime == "" {
		return
	}
	ts, err := dateparse.ParseAny(a.EventTime)
	if err != nil {
		return
	}
	ts = ts.UTC()
	if s.FirstEventTime == nil || ts.Before(*s.FirstEventTime) {
		s.FirstEventTime = &ts
	}
	if s.LastEventTime == nil || ts.After(*s.LastEventTime) {
		s.LastEventTime = &ts
	}
}

// PrintSummary writes a human-readable breakdown. Maps are listed by count
// descending, then by key.
func (s *Stats) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Total alerts read: %d\n", s.InputAlerts)
	if s.ErrorLines > 0 {
		fmt.Fprintf(w, "  Unreadable lines: %d\n", s.ErrorLines)
	}
	if s.FirstEventTime != nil && s.LastEventTime != nil {
		fmt.Fprintf(w, "  Event time range: %s to %s\n",
			s.FirstEventTime.Format(time.RFC3339),
			s.LastEventTime.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "  Matched: %d\n", s.MatchedAlerts)
	fmt.Fprintf(w, "\n")

	sections := []struct {
		title string
		m     map[string]int
	}{
		{"By severity", s.BySeverity},
		{"By rule", s.ByRule},
		{"By category", s.ByCategory},
		{"By scan", s.ByScan},
	}
	for _, sec := range sections {
		if len(sec.m) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s:\n", sec.title)
		printSortedMap(w, sec.m, "    ")
		fmt.Fprintf(w, "\n")
	}
}

func printSortedMap(w io.Writer, m map[string]int, indent string) {
	type kv struct {
		key   string
		value int
	}

	pairs := make([]kv, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, kv{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].value == pairs[j].value {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value > pairs[j].value
	})

	for _, p := range pairs {
		fmt.Fprintf(w, "%s%s: %d\n", indent, p.key, p.value)
	}
}

// GetSummaryMap returns the statistics as a map for programmatic access
func (s *Stats) GetSummaryMap() map[string]interface{} {
	summary := map[string]interface{}{
		"total_alerts_read": s.InputAlerts,
		"matched_alerts":    s.MatchedAlerts,
		"error_lines":       s.ErrorLines,
		"by_severity":       s.BySeverity,
		"by_rule":           s.ByRule,
		"by_category":       s.ByCategory,
		"by_scan":           s.ByScan,
	}
	if s.FirstEventTime != nil && s.LastEventTime != nil {
		summary["event_time_range"] = map[string]string{
			"start": s.FirstEventTime.Format(time.RFC3339),
			"end":   s.LastEventTime.Format(time.RFC3339),
		}
	}
	return summary
}
