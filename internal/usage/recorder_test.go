package usage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
)

func newTestBatcher(store Store, interval int, maxBackoff int) (*batcher, *time.Time) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	cfg := &config.Config{Database: config.DatabaseConfig{
		UsageBatchFlushIntervalSeconds:       interval,
		UsageBatchMaxBackoffSeconds:          maxBackoff,
		UsageBatchMaxPendingRequests:         10,
		UsageBatchErrorLogMaxIntervalSeconds: 60,
	}}
	b := newBatcher(cfg, store, nil)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBatcherBackoffDoublesUpToCap(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	b, now := newTestBatcher(store, 1, 4)

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	for i, wait := range want {
		b.add("summary", Delta{InputTokens: 1, RequestCount: 1})
		b.flush(false)
		if got := b.holdUntil.Sub(*now); got != wait {
			t.Fatalf("failure %d: hold %v, want %v", i+1, got, wait)
		}
		*now = b.holdUntil
	}
	if b.failures != len(want) {
		t.Fatalf("failures = %d, want %d", b.failures, len(want))
	}
}

func TestBatcherSkipsFlushWhileHeld(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	b, now := newTestBatcher(store, 10, 60)

	b.add("videos", Delta{OutputTokens: 5, RequestCount: 1})
	b.flush(false)

	store.mu.Lock()
	store.fail = false
	store.mu.Unlock()

	b.flush(false)
	if got := store.get("videos"); got.RequestCount != 0 {
		t.Fatalf("flush must wait for backoff, got %+v", got)
	}

	*now = now.Add(10 * time.Second)
	b.flush(false)
	if got := store.get("videos"); got.OutputTokens != 5 || got.RequestCount != 1 {
		t.Fatalf("unexpected delta after backoff: %+v", got)
	}
	if b.failures != 0 || !b.holdUntil.IsZero() {
		t.Fatalf("success must reset backoff state")
	}
}

type fakeStore struct {
	mu      sync.Mutex
	fail    bool
	records map[string]Delta
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]Delta)}
}

func (f *fakeStore) RecordUsage(_ context.Context, task string, delta Delta, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("db down")
	}
	current := f.records[task]
	current.add(delta)
	f.records[task] = current
	return nil
}

func (f *fakeStore) GetDailyUsage(context.Context, time.Time) (*DailyUsage, error) { return nil, nil }
func (f *fakeStore) GetRecentUsage(context.Context, int) ([]DailyUsage, error)     { return nil, nil }
func (f *fakeStore) GetTotalUsage(context.Context, int) (DailyUsage, error)        { return DailyUsage{}, nil }
func (f *fakeStore) GetTaskUsage(context.Context, int) ([]TaskUsage, error)        { return nil, nil }
func (f *fakeStore) Close()                                                        {}

func (f *fakeStore) get(task string) Delta {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[task]
}

func TestNewRecorderDisabled(t *testing.T) {
	if rec := NewRecorder(&config.Config{}, newFakeStore(), nil); rec != nil {
		t.Fatalf("expected nil recorder when usage db is disabled")
	}
	var rec *Recorder
	rec.Record(context.Background(), "quiz", 1, 1, 0)
	rec.Close()
}

func TestRecorderWritesDirectly(t *testing.T) {
	store := newFakeStore()
	cfg := &config.Config{Database: config.DatabaseConfig{Enabled: true}}
	rec := NewRecorder(cfg, store, nil)

	rec.Record(context.Background(), "summary", 10, 5, 1)
	rec.Record(context.Background(), "summary", 0, 0, 0)
	rec.Record(context.Background(), "quiz", 3, 2, 0)

	if got := store.get("summary"); got.InputTokens != 10 || got.RequestCount != 1 {
		t.Fatalf("unexpected summary delta: %+v", got)
	}
	if got := store.get("quiz"); got.OutputTokens != 2 {
		t.Fatalf("unexpected quiz delta: %+v", got)
	}
}

func TestRecorderBatchFlushesOnClose(t *testing.T) {
	store := newFakeStore()
	cfg := &config.Config{Database: config.DatabaseConfig{
		Enabled:                        true,
		UsageBatchEnabled:              true,
		UsageBatchFlushIntervalSeconds: 3600,
		UsageBatchMaxPendingRequests:   100,
	}}
	rec := NewRecorder(cfg, store, nil)
	rec.Record(context.Background(), "notes", 4, 4, 0)
	rec.Record(context.Background(), "notes", 6, 1, 0)
	rec.Close()

	got := store.get("notes")
	if got.InputTokens != 10 || got.OutputTokens != 5 || got.RequestCount != 2 {
		t.Fatalf("unexpected flushed delta: %+v", got)
	}
}

func TestBatcherRequeuesOnFailure(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	b, _ := newTestBatcher(store, 1, 1)

	b.add("answer", Delta{InputTokens: 2, OutputTokens: 3, RequestCount: 1})
	b.flush(false)

	if b.failures != 1 {
		t.Fatalf("expected one failure, got %d", b.failures)
	}
	if b.pendingTotal != 1 {
		t.Fatalf("expected pending request to be kept, got %d", b.pendingTotal)
	}

	store.mu.Lock()
	store.fail = false
	store.mu.Unlock()
	b.flush(true)
	if got := store.get("answer"); got.InputTokens != 2 || got.RequestCount != 1 {
		t.Fatalf("unexpected delta after recovery: %+v", got)
	}
	if b.failures != 0 {
		t.Fatalf("expected failures to reset")
	}
}

func TestBatcherDropsOnShutdownFailure(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	b, _ := newTestBatcher(store, 1, 1)

	b.add("notes", Delta{InputTokens: 1, RequestCount: 1})
	b.flush(true)
	if b.pendingTotal != 0 || len(b.pending) != 0 {
		t.Fatalf("shutdown flush must not requeue")
	}
}
