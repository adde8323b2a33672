package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var RemediationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "posture",
	Subsystem: "remediation",
	Name:      "requests_total",
	Help:      "Number of remediation requests by outcome",
}, []string{"outcome"})

var RemediationActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "posture",
	Subsystem: "remediation",
	Name:      "actions_total",
	Help:      "Number of corrective actions applied by resource type",
}, []string{"resource_type"})

var ScoringRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "posture",
	Subsystem: "scoring",
	Name:      "runs_total",
	Help:      "Number of risk scoring passes by outcome",
}, []string{"outcome"})

var ScoringResourcesUpdated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "posture",
	Subsystem: "scoring",
	Name:      "resources_updated_total",
	Help:      "Number of resources whose risk score was written",
})

var ScoringResourcesSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "posture",
	Subsystem: "scoring",
	Name:      "resources_skipped_total",
	Help:      "Number of resources skipped because they changed during the pass",
})

var ScoringDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "posture",
	Subsystem: "scoring",
	Name:      "duration_seconds",
	Help:      "Duration of a full risk scoring pass",
	Buckets:   prometheus.DefBuckets,
})
