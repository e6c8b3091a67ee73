package prometheusadapter

import (
	"testing"

	"eleitoral/contexts/adjudication/case-service/domain/entities"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountByLabel(t *testing.T) {
	metrics := New(prometheus.NewRegistry())

	metrics.ObserveTransition("", entities.CaseStatusFiled)
	metrics.ObserveTransition(entities.CaseStatusFiled, entities.CaseStatusAdmissibilityReview)
	metrics.ObserveSubmission(entities.SubmissionKindDefense, false)
	metrics.ObserveSubmission(entities.SubmissionKindDefense, false)
	metrics.ObserveJudgment(entities.OutcomeUpheld, entities.DecisionTieBreak)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.transitions.WithLabelValues("none", "filed")))
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.submissions.WithLabelValues("defense", "false")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.judgments.WithLabelValues("upheld", "tie_break")))
}
