package mempool

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "mempool"
)

// Metrics contains metrics exposed by this package.
// see MetricsProvider for descriptions.
type Metrics struct {
	// Number of batches waiting in the round queues.
	PendingBatches metrics.Gauge
	// Number of batches packed into proposals.
	PackedBatches metrics.Counter
	// Number of batches skipped as duplicates or already processed.
	SkippedBatches metrics.Counter
	// Number of transactions per proposal.
	ProposalSize metrics.Histogram
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
		PendingBatches: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "pending_batches",
			Help:      "Number of batches waiting in the round queues.",
		}, labels).With(labelsAndValues...),
		PackedBatches: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "packed_batches",
			Help:      "Number of batches packed into proposals.",
		}, labels).With(labelsAndValues...),
		SkippedBatches: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "skipped_batches",
			Help:      "Number of batches skipped as duplicates or already processed.",
		}, labels).With(labelsAndValues...),
		ProposalSize: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "proposal_size",
			Help:      "Number of transactions per proposal.",
			Buckets:   stdprometheus.ExponentialBuckets(1, 3, 7),
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		PendingBatches: discard.NewGauge(),
		PackedBatches:  discard.NewCounter(),
		SkippedBatches: discard.NewCounter(),
		ProposalSize:   discard.NewHistogram(),
	}
}
