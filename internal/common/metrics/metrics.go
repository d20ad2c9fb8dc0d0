package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SectionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_section_transitions_total",
			Help: "Wizard navigation attempts by source section, direction and result",
		},
		[]string{"section", "direction", "result"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Submission attempts by result",
		},
		[]string{"result"},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_submission_duration_seconds",
			Help:    "Duration of the storage insert for a submission",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	DraftOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_draft_operations_total",
			Help: "Draft slot operations by kind and result",
		},
		[]string{"operation", "result"},
	)

	Followups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_followups_total",
			Help: "Post-submission follow-up actions by action and status",
		},
		[]string{"action", "status"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intake_active_sessions",
			Help: "Number of open wizard sessions",
		},
	)
)

func RecordTransition(section int, direction, result string) {
	SectionTransitions.WithLabelValues(strconv.Itoa(section), direction, result).Inc()
}

func RecordDraftOperation(operation string, err error) {
	DraftOperations.WithLabelValues(operation, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
