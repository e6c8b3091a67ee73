package prometheusadapter

import (
	"strconv"

	"eleitoral/contexts/tabulation/tally-service/domain/entities"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ballots   *prometheus.CounterVec
	snapshots *prometheus.CounterVec
	// Ballots considered by the latest snapshot.
	considered prometheus.Gauge
}

func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		ballots: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eleitoral_tally_ballots_total",
			Help: "Total number of ballot submissions by category and result",
		}, []string{"category", "result"}),
		snapshots: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eleitoral_tally_snapshots_total",
			Help: "Total number of computed tally snapshots",
		}, []string{"final"}),
		considered: factory.NewGauge(prometheus.GaugeOpts{
			Name: "eleitoral_tally_snapshot_considered_ballots",
			Help: "Ballots considered by the most recent snapshot",
		}),
	}
}

func (m *Metrics) ObserveBallot(category entities.BallotCategory, result string) {
	m.ballots.WithLabelValues(string(category), result).Inc()
}

func (m *Metrics) ObserveSnapshot(final bool, considered int) {
	m.snapshots.WithLabelValues(strconv.FormatBool(final)).Inc()
	m.considered.Set(float64(considered))
}
