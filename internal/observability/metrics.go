package observability

import "github.com/prometheus/client_golang/prometheus"

const namespace = "hue_gateway"

var (
	JWKSFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jwks_fetch_total",
			Help:      "Total number of JWKS fetches, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	JWKSKeys = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jwks_keys",
			Help:      "Number of signing keys in the current JWKS snapshot.",
		},
	)

	AuthDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_decisions_total",
			Help:      "Total number of authentication decisions, labeled by outcome and error kind.",
		},
		[]string{"outcome", "kind"},
	)

	ToolInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Total number of tool invocations, labeled by tool and status.",
		},
		[]string{"tool", "status"},
	)

	BridgeRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bridge_request_duration_seconds",
			Help:      "Latency of lighting bridge requests (seconds).",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		JWKSFetchTotal,
		JWKSKeys,
		AuthDecisionsTotal,
		ToolInvocationsTotal,
		BridgeRequestDurationSeconds,
	)
}
