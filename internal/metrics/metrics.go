// Package metrics exposes Prometheus instrumentation for the
// monitoring pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AssessmentsTotal counts completed assessments by resulting level.
	AssessmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kestrel",
		Name:      "assessments_total",
		Help:      "Completed risk assessments by resulting level.",
	}, []string{"level"})

	// AssessmentDuration observes end-to-end assessment latency.
	AssessmentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kestrel",
		Name:      "assessment_duration_seconds",
		Help:      "End-to-end assessment latency.",
		Buckets:   prometheus.DefBuckets,
	})

	// BehaviorsDetected counts detected behaviors by kind.
	BehaviorsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kestrel",
		Name:      "behaviors_detected_total",
		Help:      "Detected behaviors by kind.",
	}, []string{"kind"})

	// InterventionsCreated counts created interventions by kind.
	InterventionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kestrel",
		Name:      "interventions_created_total",
		Help:      "Created interventions by kind.",
	}, []string{"kind"})

	// WagersPlaced counts accepted wagers.
	WagersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kestrel",
		Name:      "wagers_placed_total",
		Help:      "Wagers accepted by the ledger.",
	})

	// WagersSettled counts settled wagers by outcome.
	WagersSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kestrel",
		Name:      "wagers_settled_total",
		Help:      "Settled wagers by outcome.",
	}, []string{"outcome"})

	// RiskEscalations counts level escalations observed by assessments.
	RiskEscalations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kestrel",
		Name:      "risk_escalations_total",
		Help:      "Assessments that raised a user's risk level.",
	})
)
