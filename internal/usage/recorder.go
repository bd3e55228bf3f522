package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
)

// Recorder 는 Gemini 호출마다 작업별 토큰 사용량을 남긴다.
// 배치가 켜져 있으면 메모리에 모았다가 주기적으로 적재하고, 아니면 호출마다 바로 쓴다.
// nil Recorder 의 메서드는 아무 일도 하지 않는다.
type Recorder struct {
	repo    Store
	batcher *batcher
	logger  *slog.Logger
}

// NewRecorder 는 사용량 DB 가 꺼져 있거나 repo 가 없으면 nil 을 반환한다.
func NewRecorder(cfg *config.Config, repo Store, logger *slog.Logger) *Recorder {
	if cfg == nil || !cfg.Database.Enabled || repo == nil {
		return nil
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Recorder{repo: repo, logger: logger}
	if db := cfg.Database; db.UsageBatchEnabled {
		r.batcher = newBatcher(cfg, repo, logger)
		r.batcher.start()
		logger.Info("usage_batch_enabled",
			"flush_every", time.Duration(db.UsageBatchFlushIntervalSeconds)*time.Second,
			"max_pending", db.UsageBatchMaxPendingRequests,
			"max_backoff", time.Duration(db.UsageBatchMaxBackoffSeconds)*time.Second,
		)
	}
	return r
}

// Record 는 1회 호출분을 기록한다. 입력과 출력이 모두 0 이면 무시한다.
// 요청 컨텍스트가 끝나도 기록은 이어지도록 취소를 떼어 낸다.
func (r *Recorder) Record(ctx context.Context, task string, inputTokens, outputTokens, reasoningTokens int64) {
	if r == nil {
		return
	}
	if inputTokens <= 0 && outputTokens <= 0 {
		return
	}
	delta := Delta{InputTokens: inputTokens, OutputTokens: outputTokens, ReasoningTokens: reasoningTokens, RequestCount: 1}

	if r.batcher != nil {
		r.batcher.add(task, delta)
		return
	}
	if err := r.repo.RecordUsage(context.WithoutCancel(ctx), task, delta, time.Time{}); err != nil {
		r.logger.Warn("usage_db_save_failed", "task", task, "err", err)
	}
}

// Close 는 배치를 멈추고 남은 사용량을 마지막으로 적재한다.
func (r *Recorder) Close() {
	if r != nil && r.batcher != nil {
		r.batcher.stop()
	}
}
