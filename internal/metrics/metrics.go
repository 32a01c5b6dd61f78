// Package metrics 定义 séance 后端对外暴露的 Prometheus 指标。
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seance"

const (
	SpiritOutcomeProvider = "provider"
	SpiritOutcomeFallback = "fallback"

	AttemptStatusSuccess = "success"
	AttemptStatusFailure = "failure"
)

var (
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of WebSocket connections currently registered across all sessions.",
		},
	)

	broadcastDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_deliveries_total",
			Help:      "Per-connection delivery outcomes of session broadcasts.",
		},
		[]string{"event", "status"},
	)

	prunedConnections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_connections_total",
			Help:      "Connections removed from the registry after a failed send.",
		},
	)

	spiritAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spirit_provider_attempts_total",
			Help:      "Text provider calls made by the spirit orchestrator.",
		},
		[]string{"status"},
	)

	spiritResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spirit_responses_total",
			Help:      "Spirit responses broken out by source.",
		},
		[]string{"outcome"},
	)

	spiritLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "spirit_generate_duration_seconds",
			Help:      "End-to-end latency of spirit response generation, retries included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
	)
)

var registerMetrics sync.Once

// Register 将全部指标注册到 reg，重复调用只生效一次。
func Register(reg prometheus.Registerer) {
	registerMetrics.Do(func() {
		reg.MustRegister(
			activeConnections,
			broadcastDeliveries,
			prunedConnections,
			spiritAttempts,
			spiritResponses,
			spiritLatency,
		)
	})
}

// IncActiveConnections 在连接注册成功后调用。
func IncActiveConnections() { activeConnections.Inc() }

// DecActiveConnections 在连接被注销后调用。
func DecActiveConnections() { activeConnections.Dec() }

// RecordDelivery records one send of a broadcast.
func RecordDelivery(event string, err error) {
	status := AttemptStatusSuccess
	if err != nil {
		status = AttemptStatusFailure
	}
	broadcastDeliveries.WithLabelValues(event, status).Inc()
}

// RecordPruned counts a connection dropped after a failed send.
func RecordPruned() { prunedConnections.Inc() }

// RecordSpiritAttempt records one provider call.
func RecordSpiritAttempt(err error) {
	if err != nil {
		spiritAttempts.WithLabelValues(AttemptStatusFailure).Inc()
	} else {
		spiritAttempts.WithLabelValues(AttemptStatusSuccess).Inc()
	}
}

// RecordSpiritResponse records which path produced a response and how long it took.
func RecordSpiritResponse(outcome string, elapsed time.Duration) {
	spiritResponses.WithLabelValues(outcome).Inc()
	spiritLatency.Observe(elapsed.Seconds())
}
