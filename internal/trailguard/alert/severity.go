package alert

import "strings"

// Severity is the ordered alert severity: Low < Medium < High < Critical.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Severities lists every severity from lowest to highest.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// Rank returns 1..4 for known severities and 0 otherwise.
func (s Severity) Rank() int {
	return severityRank[s]
}

func (s Severity) Valid() bool {
	return s.Rank() > 0
}

func (s Severity) String() string {
	return string(s)
}

// ParseSeverity matches s case-insensitively against the known severities.
func ParseSeverity(s string) (Severity, bool) {
	for _, sev := range Severities() {
		if strings.EqualFold(string(sev), strings.TrimSpace(s)) {
			return sev, true
		}
	}
	return "", false
}

// CompareSeverity returns -1, 0 or 1 when a is lower than, equal to or higher than b.
// Unknown severities rank below Low.
func CompareSeverity(a, b Severity) int {
	ra, rb := a.Rank(), b.Rank()
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	default:
		return 0
	}
}

// MaxSeverity returns the highest severity in the list, or "" for an empty list.
func MaxSeverity(sevs ...Severity) Severity {
	var max Severity
	for _, s := range sevs {
		if CompareSeverity(s, max) > 0 {
			max = s
		}
	}
	return max
}
