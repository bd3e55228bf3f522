package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/llm"
)

const namespace = "study_proxy"

var (
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "Dispatched proxy actions by action and HTTP status.",
	}, []string{"action", "status"})

	actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "action_duration_seconds",
		Help:      "Proxy action latency.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"action"})

	llmCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_calls_total",
		Help:      "Gemini calls by task and result.",
	}, []string{"task", "result"})

	llmTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_tokens_total",
		Help:      "Gemini tokens by task and kind.",
	}, []string{"task", "kind"})

	extractCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extract_cache_lookups_total",
		Help:      "Extraction cache lookups by result.",
	}, []string{"result"})

	usageFlushTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "usage_flush_rows_total",
		Help:      "Batched token usage rows written to the database by result.",
	}, []string{"result"})

	usagePending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "usage_pending_requests",
		Help:      "Requests whose token usage is waiting for the next batch flush.",
	})
)

// ObserveAction 은 디스패치 결과 하나를 기록한다. action 이 비어 있으면 "unknown" 으로 남긴다.
func ObserveAction(action string, status int, duration time.Duration) {
	if action == "" {
		action = "unknown"
	}
	actionsTotal.WithLabelValues(action, statusLabel(status)).Inc()
	actionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// ObserveExtractCache 는 추출 캐시 조회 결과(hit, miss, error)를 기록한다.
func ObserveExtractCache(result string) {
	extractCacheTotal.WithLabelValues(result).Inc()
}

// ObserveUsageFlush 는 사용량 배치 행 하나의 플러시 결과(ok, requeued, dropped)를 기록한다.
func ObserveUsageFlush(result string) {
	usageFlushTotal.WithLabelValues(result).Inc()
}

// SetUsagePending 은 플러시를 기다리는 요청 수를 갱신한다.
func SetUsagePending(n int) {
	usagePending.Set(float64(n))
}

func observeLLMCall(task llm.Task, result string, usage llm.Usage) {
	label := string(task)
	if label == "" {
		label = "unknown"
	}
	llmCallsTotal.WithLabelValues(label, result).Inc()
	if usage.InputTokens > 0 {
		llmTokensTotal.WithLabelValues(label, "input").Add(float64(usage.InputTokens))
	}
	if usage.OutputTokens > 0 {
		llmTokensTotal.WithLabelValues(label, "output").Add(float64(usage.OutputTokens))
	}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 200 && status < 300:
		return "2xx"
	default:
		return "other"
	}
}
