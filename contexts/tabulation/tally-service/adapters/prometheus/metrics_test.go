package prometheusadapter

import (
	"testing"

	"eleitoral/contexts/tabulation/tally-service/domain/entities"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsTrackBallotsAndSnapshots(t *testing.T) {
	metrics := New(prometheus.NewRegistry())

	metrics.ObserveBallot(entities.BallotCategoryValid, "accepted")
	metrics.ObserveBallot(entities.BallotCategoryValid, "duplicate")
	metrics.ObserveBallot(entities.BallotCategoryValid, "accepted")
	metrics.ObserveSnapshot(false, 10)
	metrics.ObserveSnapshot(true, 12)

	require.Equal(t, 2.0, testutil.ToFloat64(metrics.ballots.WithLabelValues("valid", "accepted")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ballots.WithLabelValues("valid", "duplicate")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.snapshots.WithLabelValues("true")))
	require.Equal(t, 12.0, testutil.ToFloat64(metrics.considered))
}
