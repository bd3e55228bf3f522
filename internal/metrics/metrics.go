package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/llm"
)

// Store 는 Gemini 호출 통계를 프로세스 메모리에 누적한다.
// /api/llm/metrics 응답의 원천이며 같은 값을 Prometheus 에도 보낸다.
type Store struct {
	calls      atomic.Int64
	errors     atomic.Int64
	input      atomic.Int64
	output     atomic.Int64
	reasoning  atomic.Int64
	durationMs atomic.Int64

	mu     sync.Mutex
	byTask map[llm.Task]TaskCounts
}

// TaskCounts 는 작업 유형별 호출/실패 횟수다.
type TaskCounts struct {
	Calls  int64 `json:"calls"`
	Errors int64 `json:"errors"`
}

func NewStore() *Store {
	return &Store{byTask: make(map[llm.Task]TaskCounts)}
}

// RecordSuccess 는 성공 호출과 그 토큰 사용량을 기록한다.
func (s *Store) RecordSuccess(task llm.Task, duration time.Duration, usage llm.Usage) {
	s.input.Add(int64(usage.InputTokens))
	s.output.Add(int64(usage.OutputTokens))
	s.reasoning.Add(int64(usage.ReasoningTokens))
	s.record(task, duration, false)
	observeLLMCall(task, "ok", usage)
}

// RecordError 는 실패 호출을 기록한다. 토큰은 세지 않는다.
func (s *Store) RecordError(task llm.Task, duration time.Duration) {
	s.errors.Add(1)
	s.record(task, duration, true)
	observeLLMCall(task, "error", llm.Usage{})
}

func (s *Store) record(task llm.Task, duration time.Duration, failed bool) {
	s.calls.Add(1)
	s.durationMs.Add(duration.Milliseconds())
	if task == "" {
		return
	}

	s.mu.Lock()
	counts := s.byTask[task]
	counts.Calls++
	if failed {
		counts.Errors++
	}
	s.byTask[task] = counts
	s.mu.Unlock()
}

// UsageTotals 는 누적 토큰 사용량이다. TotalTokens 는 reasoning 을 제외한다.
func (s *Store) UsageTotals() llm.Usage {
	input, output := s.input.Load(), s.output.Load()
	return llm.Usage{
		InputTokens:     int(input),
		OutputTokens:    int(output),
		TotalTokens:     int(input + output),
		ReasoningTokens: int(s.reasoning.Load()),
	}
}

// Snapshot 는 누적 통계를 이름별 값으로 돌려준다.
func (s *Store) Snapshot() map[string]float64 {
	calls := s.calls.Load()
	durationMs := s.durationMs.Load()
	usage := s.UsageTotals()

	var avg float64
	if calls > 0 {
		avg = float64(durationMs) / float64(calls)
	}
	return map[string]float64{
		"total_calls":            float64(calls),
		"total_errors":           float64(s.errors.Load()),
		"total_input_tokens":     float64(usage.InputTokens),
		"total_output_tokens":    float64(usage.OutputTokens),
		"total_reasoning_tokens": float64(usage.ReasoningTokens),
		"total_tokens":           float64(usage.TotalTokens),
		"total_duration_ms":      float64(durationMs),
		"avg_duration_ms":        avg,
	}
}

// ByTask 는 작업 유형별 호출 통계 사본을 반환한다.
func (s *Store) ByTask() map[llm.Task]TaskCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[llm.Task]TaskCounts, len(s.byTask))
	for task, counts := range s.byTask {
		out[task] = counts
	}
	return out
}
