package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bounded cardinality constants for metric labels. Label values must come
// from these sets; free-form strings would blow up series counts.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultTimeout = "timeout"

	LLMCallDecision  = "decision"
	LLMCallSynthesis = "synthesis"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

// API metrics
var (
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockadvisor_api_requests_total",
		Help: "Total API requests by method, route, and status code",
	}, []string{"method", "route", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockadvisor_api_request_duration_seconds",
		Help:    "API request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Tool metrics
var (
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockadvisor_tool_calls_total",
		Help: "Total tool dispatches by tool name and result",
	}, []string{"tool", "result"})

	ToolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockadvisor_tool_call_duration_seconds",
		Help:    "Tool execution latency by tool name",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"tool"})
)

// Model metrics
var (
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockadvisor_llm_requests_total",
		Help: "Total model calls by call kind and result",
	}, []string{"kind", "result"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockadvisor_llm_request_duration_seconds",
		Help:    "Model call latency by call kind",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"kind"})
)

// Conversation and cache metrics
var (
	ActiveConversations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stockadvisor_active_conversations",
		Help: "Number of live conversation contexts",
	})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockadvisor_cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})
)

// RecordToolCall records one tool dispatch.
func RecordToolCall(tool, result string, seconds float64) {
	ToolCalls.WithLabelValues(tool, result).Inc()
	ToolCallDuration.WithLabelValues(tool).Observe(seconds)
}

// RecordLLMRequest records one model call.
func RecordLLMRequest(kind, result string, seconds float64) {
	LLMRequests.WithLabelValues(kind, result).Inc()
	LLMRequestDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookups.WithLabelValues(CacheHit).Inc()
	} else {
		CacheLookups.WithLabelValues(CacheMiss).Inc()
	}
}
