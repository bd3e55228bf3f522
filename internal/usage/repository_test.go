package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// 메모리 DB 는 커넥션마다 따로 생기므로 하나로 고정한다.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewRepositoryWithDB(db, nil)
}

func TestRepositoryAccumulatesPerTask(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	today := todayDate()

	if err := repo.RecordUsage(ctx, "quiz", Delta{InputTokens: 10, OutputTokens: 20, RequestCount: 1}, today); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := repo.RecordUsage(ctx, "quiz", Delta{InputTokens: 5, OutputTokens: 5, ReasoningTokens: 2, RequestCount: 1}, today); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := repo.RecordUsage(ctx, "summary", Delta{InputTokens: 1, OutputTokens: 1, RequestCount: 1}, today); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := repo.RecordUsage(ctx, "summary", Delta{}, today); err != nil {
		t.Fatalf("empty delta must be ignored: %v", err)
	}

	daily, err := repo.GetDailyUsage(ctx, today)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if daily == nil || daily.InputTokens != 16 || daily.OutputTokens != 26 || daily.RequestCount != 3 {
		t.Fatalf("unexpected daily usage: %+v", daily)
	}

	tasks, err := repo.GetTaskUsage(ctx, 7)
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Task != "quiz" || tasks[0].RequestCount != 2 || tasks[0].ReasoningTokens != 2 {
		t.Fatalf("unexpected task usage: %+v", tasks)
	}

	var rows int64
	repo.db.Model(&TokenUsage{}).Count(&rows)
	if rows != 2 {
		t.Fatalf("expected one row per task, got %d", rows)
	}
}

func TestRepositoryDailyUsageMissing(t *testing.T) {
	repo := newTestRepository(t)
	daily, err := repo.GetDailyUsage(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if daily != nil {
		t.Fatalf("expected nil usage for empty day, got %+v", daily)
	}
}

func TestRepositoryRecentAndTotal(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	today := todayDate()

	days := []time.Time{today, today.AddDate(0, 0, -1), today.AddDate(0, 0, -40)}
	for _, day := range days {
		if err := repo.RecordUsage(ctx, "answer", Delta{InputTokens: 1, OutputTokens: 2, RequestCount: 1}, day); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	recent, err := repo.GetRecentUsage(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent days, got %d", len(recent))
	}
	if !recent[0].UsageDate.After(recent[1].UsageDate) {
		t.Fatalf("expected newest first: %+v", recent)
	}

	total, err := repo.GetTotalUsage(ctx, 30)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total.RequestCount != 2 || total.TotalTokens() != 6 {
		t.Fatalf("expected only the last 30 days, got %+v", total)
	}
}

func TestRepositoryDisabled(t *testing.T) {
	repo := NewRepository(&config.Config{}, nil)
	_, err := repo.GetTotalUsage(context.Background(), 1)
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestShouldFallbackToLocalhost(t *testing.T) {
	if shouldFallbackToLocalhost(errors.New("dial tcp: lookup postgres: no such host"), "postgres") != true {
		t.Fatalf("expected fallback for unresolved compose host")
	}
	if shouldFallbackToLocalhost(errors.New("no such host"), "db.internal") {
		t.Fatalf("did not expect fallback for other hosts")
	}
	if shouldFallbackToLocalhost(nil, "postgres") {
		t.Fatalf("did not expect fallback without error")
	}
}
