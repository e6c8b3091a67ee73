package prometheusadapter

import (
	"strconv"

	"eleitoral/contexts/adjudication/case-service/domain/entities"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements ports.Metrics with Prometheus collectors.
type Metrics struct {
	transitions *prometheus.CounterVec
	submissions *prometheus.CounterVec
	judgments   *prometheus.CounterVec
}

func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eleitoral_case_transitions_total",
			Help: "Total number of case status transitions",
		}, []string{"from", "to"}),
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eleitoral_case_submissions_total",
			Help: "Total number of party submissions by kind and timeliness",
		}, []string{"kind", "timely"}),
		judgments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eleitoral_case_judgments_total",
			Help: "Total number of committee judgments by outcome and decision",
		}, []string{"outcome", "decision"}),
	}
}

func (m *Metrics) ObserveTransition(from entities.CaseStatus, to entities.CaseStatus) {
	label := string(from)
	if label == "" {
		label = "none"
	}
	m.transitions.WithLabelValues(label, string(to)).Inc()
}

func (m *Metrics) ObserveSubmission(kind entities.SubmissionKind, timely bool) {
	m.submissions.WithLabelValues(string(kind), strconv.FormatBool(timely)).Inc()
}

func (m *Metrics) ObserveJudgment(outcome entities.Outcome, decision entities.DecisionKind) {
	m.judgments.WithLabelValues(string(outcome), string(decision)).Inc()
}
