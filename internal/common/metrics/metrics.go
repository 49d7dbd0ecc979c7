// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_scans_read_total",
			Help: "Total number of scan records read from the export file",
		},
		[]string{"format"},
	)

	MemberLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_member_lookups_total",
			Help: "Total number of member lookups by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "checkin_lookup_duration_seconds",
			Help: "Duration of a full member matching attempt in seconds",
		},
		[]string{"outcome"},
	)

	PlanFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_plan_fetches_total",
			Help: "Total number of plan/order fetches by outcome",
		},
		[]string{"kind", "outcome"},
	)

	WatchEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_watch_events_total",
			Help: "Total number of file-watch events emitted by type",
		},
		[]string{"type"},
	)
)
