package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/metrics"
)

// batchKey 는 배치 누적 단위다. DB 행의 유니크 키와 같다.
type batchKey struct {
	date time.Time
	task string
}

func (d *Delta) add(other Delta) {
	d.InputTokens += other.InputTokens
	d.OutputTokens += other.OutputTokens
	d.ReasoningTokens += other.ReasoningTokens
	d.RequestCount += other.RequestCount
}

const defaultFlushTimeout = 5 * time.Second

// batcher 는 작업별 토큰 사용량을 메모리에 모았다가 주기적으로 DB에 플러시한다.
// 실패한 행은 다시 쌓이고, 다음 플러시는 지수 백오프만큼 미뤄진다.
type batcher struct {
	repo          Store
	logger        *slog.Logger
	flushInterval time.Duration
	flushTimeout  time.Duration
	maxPending    int
	logInterval   time.Duration
	now           func() time.Time

	mu           sync.Mutex
	pending      map[batchKey]*Delta
	pendingTotal int

	// flush 는 loop goroutine 또는 stop 이후에만 호출되므로 아래 필드는 잠그지 않는다.
	retry        *backoff.ExponentialBackOff
	failures     int
	holdUntil    time.Time
	lastLoggedAt time.Time

	wakeup chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}
}

func newBatcher(cfg *config.Config, repo Store, logger *slog.Logger) *batcher {
	db := cfg.Database
	interval := time.Duration(db.UsageBatchFlushIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	maxBackoff := time.Duration(db.UsageBatchMaxBackoffSeconds) * time.Second
	if maxBackoff < interval {
		maxBackoff = interval
	}
	flushTimeout := time.Duration(db.UsageBatchFlushTimeoutSeconds) * time.Second
	if flushTimeout <= 0 {
		flushTimeout = defaultFlushTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = interval
	retry.Multiplier = 2
	retry.RandomizationFactor = 0
	retry.MaxInterval = maxBackoff
	retry.MaxElapsedTime = 0
	retry.Reset()

	return &batcher{
		repo:          repo,
		logger:        logger,
		flushInterval: interval,
		flushTimeout:  flushTimeout,
		maxPending:    max(db.UsageBatchMaxPendingRequests, 1),
		logInterval:   time.Duration(db.UsageBatchErrorLogMaxIntervalSeconds) * time.Second,
		now:           time.Now,
		pending:       make(map[batchKey]*Delta),
		retry:         retry,
		wakeup:        make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

func (b *batcher) start() {
	go b.loop()
}

func (b *batcher) stop() {
	close(b.stopCh)
	<-b.doneCh
}

func (b *batcher) add(task string, delta Delta) {
	if delta.InputTokens <= 0 && delta.OutputTokens <= 0 {
		return
	}

	b.mu.Lock()
	b.accumulate(batchKey{date: todayDate(), task: task}, delta)
	full := b.pendingTotal >= b.maxPending
	b.mu.Unlock()

	if full {
		select {
		case b.wakeup <- struct{}{}:
		default:
		}
	}
}

func (b *batcher) loop() {
	ticker := time.NewTicker(b.flushInterval)
	defer func() {
		ticker.Stop()
		close(b.doneCh)
	}()

	for {
		select {
		case <-ticker.C:
			b.flush(false)
		case <-b.wakeup:
			b.flush(false)
		case <-b.stopCh:
			b.flush(true)
			return
		}
	}
}

// flush 는 쌓인 사용량을 모두 기록한다. 종료 중이면 백오프를 무시하고, 실패한 행은 버린다.
func (b *batcher) flush(shutdown bool) {
	if !shutdown && b.now().Before(b.holdUntil) {
		return
	}

	snapshot := b.drain()
	if len(snapshot) == 0 {
		return
	}

	var firstErr error
	for key, delta := range snapshot {
		ctx, cancel := context.WithTimeout(context.Background(), b.flushTimeout)
		err := b.repo.RecordUsage(ctx, key.task, delta, key.date)
		cancel()

		switch {
		case err == nil:
			metrics.ObserveUsageFlush("ok")
		case shutdown:
			metrics.ObserveUsageFlush("dropped")
			b.logger.Warn("usage_db_flush_dropped", "task", key.task, "requests", delta.RequestCount, "err", err)
		default:
			metrics.ObserveUsageFlush("requeued")
			b.mu.Lock()
			b.accumulate(key, delta)
			b.mu.Unlock()
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr == nil {
		b.failures = 0
		b.holdUntil = time.Time{}
		b.retry.Reset()
		return
	}
	if !shutdown {
		b.hold(firstErr)
	}
}

func (b *batcher) hold(err error) {
	b.failures++
	wait := b.retry.NextBackOff()
	now := b.now()
	b.holdUntil = now.Add(wait)

	if b.failures > 1 && now.Sub(b.lastLoggedAt) < b.logInterval {
		return
	}
	b.lastLoggedAt = now
	b.mu.Lock()
	pending := b.pendingTotal
	b.mu.Unlock()
	b.logger.Warn(
		"usage_db_batch_flush_failed",
		"failures", b.failures,
		"retry_in", wait,
		"pending_requests", pending,
		"err", err,
	)
}

// accumulate 는 b.mu 를 잡은 상태에서 호출한다.
func (b *batcher) accumulate(key batchKey, delta Delta) {
	existing := b.pending[key]
	if existing == nil {
		existing = &Delta{}
		b.pending[key] = existing
	}
	existing.add(delta)
	b.pendingTotal += int(delta.RequestCount)
	metrics.SetUsagePending(b.pendingTotal)
}

func (b *batcher) drain() map[batchKey]Delta {
	b.mu.Lock()
	defer b.mu.Unlock()
	snapshot := make(map[batchKey]Delta, len(b.pending))
	for key, delta := range b.pending {
		snapshot[key] = *delta
	}
	b.pending = make(map[batchKey]*Delta)
	b.pendingTotal = 0
	metrics.SetUsagePending(0)
	return snapshot
}
