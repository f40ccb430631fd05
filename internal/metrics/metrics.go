package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeSkipped   = "skipped"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
)

type engineMetrics struct {
	events       *prometheus.CounterVec
	floorClamps  *prometheus.CounterVec
	burns        *prometheus.CounterVec
	feedFailures prometheus.Counter
	retries      *prometheus.CounterVec
	lastBlock    *prometheus.GaugeVec
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *engineMetrics
)

// Engine returns the lazily registered aggregation metrics.
func Engine() *engineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &engineMetrics{
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stats",
				Subsystem: "engine",
				Name:      "events_total",
				Help:      "Events handled by the aggregation engine segmented by event type and outcome.",
			}, []string{"event_type", "outcome"}),
			floorClamps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stats",
				Subsystem: "engine",
				Name:      "floor_clamps_total",
				Help:      "Balance or supply updates that would have gone negative and were floored.",
			}, []string{"kind"}),
			burns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stats",
				Subsystem: "engine",
				Name:      "burns_total",
				Help:      "Burn records written segmented by attributed source.",
			}, []string{"source"}),
			feedFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "stats",
				Subsystem: "feed",
				Name:      "mirror_failures_total",
				Help:      "Actions that could not be mirrored into the feed database.",
			}),
			retries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stats",
				Subsystem: "dispatcher",
				Name:      "retries_total",
				Help:      "Event redeliveries attempted by the dispatcher.",
			}, []string{"chain_id"}),
			lastBlock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "stats",
				Subsystem: "watcher",
				Name:      "last_block",
				Help:      "Last fully processed block per chain.",
			}, []string{"chain_id"}),
		}
		prometheus.MustRegister(
			engineRegistry.events,
			engineRegistry.floorClamps,
			engineRegistry.burns,
			engineRegistry.feedFailures,
			engineRegistry.retries,
			engineRegistry.lastBlock,
		)
	})
	return engineRegistry
}

func (m *engineMetrics) ObserveEvent(eventType, outcome string) {
	m.events.WithLabelValues(eventType, outcome).Inc()
}

func (m *engineMetrics) ObserveFloorClamp(kind string) {
	m.floorClamps.WithLabelValues(kind).Inc()
}

func (m *engineMetrics) ObserveBurn(source string) {
	m.burns.WithLabelValues(source).Inc()
}

func (m *engineMetrics) ObserveFeedFailure() {
	m.feedFailures.Inc()
}

func (m *engineMetrics) ObserveRetry(chainID string) {
	m.retries.WithLabelValues(chainID).Inc()
}

func (m *engineMetrics) SetLastBlock(chainID string, block uint64) {
	m.lastBlock.WithLabelValues(chainID).Set(float64(block))
}
