package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — счётчики движка циклов обслуживания.
type Metrics struct {
	CyclesCreated   prometheus.Counter
	CarryoverHours  prometheus.Counter
	EntriesRecorded prometheus.Counter
	CycleConflicts  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		CyclesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "agencydesk",
			Subsystem: "maintenance",
			Name:      "cycles_created_total",
			Help:      "Total number of maintenance cycles created.",
		}),
		CarryoverHours: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "agencydesk",
			Subsystem: "maintenance",
			Name:      "carryover_hours_total",
			Help:      "Total hours carried over into newly created cycles.",
		}),
		EntriesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "agencydesk",
			Subsystem: "maintenance",
			Name:      "time_entries_total",
			Help:      "Total number of recorded time entries.",
		}),
		CycleConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "agencydesk",
			Subsystem: "maintenance",
			Name:      "cycle_create_conflicts_total",
			Help:      "Cycle creations lost to the unique-constraint race and retried as reads.",
		}),
	}
}
