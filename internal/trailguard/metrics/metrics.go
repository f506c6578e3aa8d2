package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailguard_scans_total",
			Help: "Total number of detection scans by source kind and outcome",
		},
		[]string{"source", "status"},
	)

	EventsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailguard_events_fetched_total",
			Help: "Total number of CloudTrail records read from event sources",
		},
		[]string{"source"},
	)

	AlertsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailguard_alerts_detected_total",
			Help: "Total number of alerts produced by the detection engine",
		},
		[]string{"rule", "severity"},
	)

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailguard_store_operations_total",
			Help: "Total number of alert store operations by outcome",
		},
		[]string{"op", "status"},
	)

	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trailguard_scan_duration_seconds",
			Help:    "Time taken by one scan from fetch to insert",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
)

// Status renders an error as the status label used across counters.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
