// Package observability holds the Prometheus metrics of the assistant.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "tess"

// Turn statuses
const (
	TurnSuccess = "success"
	TurnError   = "error"
)

// LLM call phases
const (
	PhasePrompting  = "prompting"
	PhaseFinalizing = "finalizing"
	PhaseTool       = "tool"
)

// Metrics bundles the collectors. A nil *Metrics records nothing.
type Metrics struct {
	turnsTotal      *prometheus.CounterVec
	toolCallsTotal  *prometheus.CounterVec
	llmCallDuration *prometheus.HistogramVec
	patchesApplied  prometheus.Counter
	dossiersCleaned prometheus.Counter
	activeTurns     prometheus.Gauge
}

// NewMetrics registers the collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "turns_total",
			Help:      "Total conversational turns by status",
		}, []string{"status"}),

		toolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tool_calls_total",
			Help:      "Total tool calls by tool and result",
		}, []string{"tool", "result"}),

		llmCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "llm_call_duration_seconds",
			Help:      "LLM call latency by turn phase",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"phase"}),

		patchesApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "patches_applied_total",
			Help:      "Total dossier patches applied",
		}),

		dossiersCleaned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dossiers_cleaned_total",
			Help:      "Total dossiers removed by age-based cleanup",
		}),

		activeTurns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_turns",
			Help:      "Turns currently being processed",
		}),
	}
}

// TurnStarted tracks an in-flight turn; call the returned func when it ends
func (m *Metrics) TurnStarted() func(status string) {
	if m == nil {
		return func(string) {}
	}
	m.activeTurns.Inc()
	return func(status string) {
		m.activeTurns.Dec()
		m.turnsTotal.WithLabelValues(status).Inc()
	}
}

// ToolCall counts one resolved tool call
func (m *Metrics) ToolCall(tool, result string) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(tool, result).Inc()
}

// ObserveLLMCall records the latency of one LLM call
func (m *Metrics) ObserveLLMCall(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmCallDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// PatchesApplied counts applied patches
func (m *Metrics) PatchesApplied(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.patchesApplied.Add(float64(n))
}

// DossiersCleaned counts dossiers removed by cleanup
func (m *Metrics) DossiersCleaned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.dossiersCleaned.Add(float64(n))
}
