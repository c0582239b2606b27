package ordering

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "ordering"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of proposals available for requests.
	Proposals metrics.Gauge
	// Number of batches waiting to be packed.
	PendingBatches metrics.Gauge
	// Number of proposals packed.
	PackedProposals metrics.Counter
	// Number of proposals erased from the window.
	EvictedProposals metrics.Counter
	// Number of batches moved from closed rounds to the next commit round.
	CarriedBatches metrics.Counter
	// Current round of the ordering gate.
	BlockRound  metrics.Gauge
	RejectRound metrics.Gauge
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
		Proposals: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "proposals",
			Help:      "Number of proposals available for requests.",
		}, labels).With(labelsAndValues...),
		PendingBatches: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "pending_batches",
			Help:      "Number of batches waiting to be packed.",
		}, labels).With(labelsAndValues...),
		PackedProposals: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "packed_proposals",
			Help:      "Number of proposals packed.",
		}, labels).With(labelsAndValues...),
		EvictedProposals: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "evicted_proposals",
			Help:      "Number of proposals erased from the window.",
		}, labels).With(labelsAndValues...),
		CarriedBatches: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "carried_batches",
			Help:      "Number of batches moved from closed rounds to the next commit round.",
		}, labels).With(labelsAndValues...),
		BlockRound: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "block_round",
			Help:      "Block round of the ordering gate.",
		}, labels).With(labelsAndValues...),
		RejectRound: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "reject_round",
			Help:      "Reject round of the ordering gate.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Proposals:        discard.NewGauge(),
		PendingBatches:   discard.NewGauge(),
		PackedProposals:  discard.NewCounter(),
		EvictedProposals: discard.NewCounter(),
		CarriedBatches:   discard.NewCounter(),
		BlockRound:       discard.NewGauge(),
		RejectRound:      discard.NewGauge(),
	}
}
