package consensus

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "consensus"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of rounds with vote state.
	TrackedRounds metrics.Gauge
	// Number of answers emitted, labeled by type.
	Answers metrics.Counter
	// Number of votes dropped because the signer is not a peer.
	DroppedVotes metrics.Counter
	// Number of vote batches handed to the vote storage.
	VoteBatches metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		TrackedRounds: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "tracked_rounds",
			Help:      "Number of rounds with vote state.",
		}, labels).With(labelsAndValues...),
		Answers: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "answers",
			Help:      "Number of answers emitted, labeled by type.",
		}, append(labels, "type")).With(labelsAndValues...),
		DroppedVotes: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "dropped_votes",
			Help:      "Number of votes dropped because the signer is not a peer.",
		}, labels).With(labelsAndValues...),
		VoteBatches: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "vote_batches",
			Help:      "Number of vote batches handed to the vote storage.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		TrackedRounds: discard.NewGauge(),
		Answers:       discard.NewCounter(),
		DroppedVotes:  discard.NewCounter(),
		VoteBatches:   discard.NewCounter(),
	}
}
