package query

import "github.com/vaibhaw-/TrailGuard/internal/trailguard/alert"

// AlertsOptions carries the flags of the alerts command.
type AlertsOptions struct {
	// Filters, same meaning as alert.Filter.
	Severity  string
	Rule      string
	ScanID    string
	HoursBack *int
	Limit     int

	// InputFiles switches the source from the configured store to previously
	// exported NDJSON files. "-" reads stdin.
	InputFiles []string
	OutputFile string // empty means stdout

	Summary   bool   // print counts to stderr; alerts are only written when OutputFile is set
	Seal      bool   // hash-chain the written alerts
	StateFile string // chain state override for Seal; defaults to export.state_file
}

// Filter returns the store filter described by the options.
func (o AlertsOptions) Filter() alert.Filter {
	return alert.Filter{
		Severity:  o.Severity,
		Rule:      o.Rule,
		ScanID:    o.ScanID,
		HoursBack: o.HoursBack,
		Limit:     o.Limit,
	}
}

// AlertResult is one decoded line of an alert export, or the error that
// prevented decoding it.
type AlertResult struct {
	Alert alert.Alert
	Err   error
}
