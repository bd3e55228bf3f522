package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
)

// ErrDisabled 는 사용량 DB 가 꺼져 있을 때 반환된다.
var ErrDisabled = errors.New("usage database disabled")

// Delta 는 한 번에 누적할 사용량 증가분이다.
type Delta struct {
	InputTokens     int64
	OutputTokens    int64
	ReasoningTokens int64
	RequestCount    int64
}

func (d Delta) empty() bool {
	return d.RequestCount <= 0 && d.InputTokens <= 0 && d.OutputTokens <= 0
}

// Repository 는 usage DB 접근을 담당한다. 연결은 첫 사용 시점에 연다.
type Repository struct {
	cfg      *config.Config
	logger   *slog.Logger
	mu       sync.Mutex
	db       *gorm.DB
	sqlDB    *sql.DB
	migrated bool
}

// NewRepository 는 설정의 Postgres 로 연결하는 usage 저장소를 생성한다.
func NewRepository(cfg *config.Config, logger *slog.Logger) *Repository {
	return &Repository{
		cfg:    cfg,
		logger: logger,
	}
}

// NewRepositoryWithDB 는 이미 열린 gorm 핸들을 쓰는 저장소를 생성한다.
func NewRepositoryWithDB(db *gorm.DB, logger *slog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// RecordUsage 는 지정한 날짜(또는 오늘)의 작업별 사용량을 누적 저장한다.
func (r *Repository) RecordUsage(ctx context.Context, task string, delta Delta, usageDate time.Time) error {
	if delta.empty() {
		return nil
	}

	db, err := r.getDB(ctx)
	if err != nil {
		return err
	}

	row := TokenUsage{
		UsageDate:       dayOrToday(usageDate),
		Task:            task,
		InputTokens:     delta.InputTokens,
		OutputTokens:    delta.OutputTokens,
		ReasoningTokens: delta.ReasoningTokens,
		RequestCount:    delta.RequestCount,
	}

	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "usage_date"}, {Name: "task"}},
		DoUpdates: clause.Assignments(map[string]any{
			"input_tokens":     gorm.Expr("token_usage.input_tokens + EXCLUDED.input_tokens"),
			"output_tokens":    gorm.Expr("token_usage.output_tokens + EXCLUDED.output_tokens"),
			"reasoning_tokens": gorm.Expr("token_usage.reasoning_tokens + EXCLUDED.reasoning_tokens"),
			"request_count":    gorm.Expr("token_usage.request_count + EXCLUDED.request_count"),
			"version":          gorm.Expr("token_usage.version + 1"),
		}),
	}).Create(&row).Error
}

type aggregateRow struct {
	UsageDate       time.Time
	InputTokens     int64
	OutputTokens    int64
	ReasoningTokens int64
	RequestCount    int64
	RowCount        int64
}

const sumColumns = `COALESCE(SUM(input_tokens), 0) AS input_tokens,
	COALESCE(SUM(output_tokens), 0) AS output_tokens,
	COALESCE(SUM(reasoning_tokens), 0) AS reasoning_tokens,
	COALESCE(SUM(request_count), 0) AS request_count`

func (a aggregateRow) daily(date time.Time) DailyUsage {
	return DailyUsage{
		UsageDate:       date,
		InputTokens:     a.InputTokens,
		OutputTokens:    a.OutputTokens,
		ReasoningTokens: a.ReasoningTokens,
		RequestCount:    a.RequestCount,
	}
}

// GetDailyUsage 는 특정 날짜(또는 오늘)의 작업 합산 사용량을 조회한다. 기록이 없으면 nil 이다.
func (r *Repository) GetDailyUsage(ctx context.Context, usageDate time.Time) (*DailyUsage, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, err
	}

	day := dayOrToday(usageDate)
	var agg aggregateRow
	err = db.WithContext(ctx).Model(&TokenUsage{}).
		Select(sumColumns+", COUNT(*) AS row_count").
		Where("usage_date = ?", day).
		Scan(&agg).Error
	switch {
	case err != nil:
		return nil, err
	case agg.RowCount == 0:
		return nil, nil
	}
	out := agg.daily(day)
	return &out, nil
}

// GetRecentUsage 는 기록이 있는 최근 N일의 일자별 사용량을 최신순으로 조회한다.
func (r *Repository) GetRecentUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, err
	}

	var aggs []aggregateRow
	if err := db.WithContext(ctx).Model(&TokenUsage{}).
		Select("usage_date, " + sumColumns).
		Group("usage_date").
		Order("usage_date desc").
		Limit(orDefault(days, 7)).
		Scan(&aggs).Error; err != nil {
		return nil, err
	}

	out := make([]DailyUsage, len(aggs))
	for i, agg := range aggs {
		out[i] = agg.daily(agg.UsageDate)
	}
	return out, nil
}

// GetTotalUsage 는 최근 N일 합계를 조회한다. UsageDate 는 오늘로 채운다.
func (r *Repository) GetTotalUsage(ctx context.Context, days int) (DailyUsage, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return DailyUsage{}, err
	}

	var agg aggregateRow
	if err := db.WithContext(ctx).Model(&TokenUsage{}).
		Select(sumColumns).
		Where("usage_date >= ?", cutoffDate(orDefault(days, 30))).
		Scan(&agg).Error; err != nil {
		return DailyUsage{}, err
	}
	return agg.daily(todayDate()), nil
}

// GetTaskUsage 는 최근 N일의 작업별 합계를 요청 수 내림차순으로 조회한다.
func (r *Repository) GetTaskUsage(ctx context.Context, days int) ([]TaskUsage, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, err
	}

	var tasks []TaskUsage
	err = db.WithContext(ctx).Model(&TokenUsage{}).
		Select("task, "+sumColumns).
		Where("usage_date >= ?", cutoffDate(orDefault(days, 30))).
		Group("task").
		Order("request_count desc, task").
		Scan(&tasks).Error
	return tasks, err
}

// Close 는 DB 연결을 닫는다.
func (r *Repository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sqlDB == nil {
		return
	}
	_ = r.sqlDB.Close()
	r.sqlDB = nil
	r.db = nil
	r.migrated = false
}

func (r *Repository) getDB(ctx context.Context) (*gorm.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		if err := r.open(); err != nil {
			return nil, err
		}
	}
	if !r.migrated {
		if err := r.db.WithContext(ctx).AutoMigrate(&TokenUsage{}); err != nil {
			return nil, fmt.Errorf("prepare usage db: %w", err)
		}
		r.migrated = true
	}
	return r.db, nil
}

func (r *Repository) open() error {
	if r.cfg == nil {
		return errors.New("database config is nil")
	}
	if !r.cfg.Database.Enabled {
		return ErrDisabled
	}

	hostUsed := r.cfg.Database.Host
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	db, err := gorm.Open(postgres.Open(r.cfg.Database.DSN()), gormCfg)
	if err != nil && shouldFallbackToLocalhost(err, r.cfg.Database.Host) {
		fallback := r.cfg.Database
		fallback.Host = "127.0.0.1"
		db, err = gorm.Open(postgres.Open(fallback.DSN()), gormCfg)
		if err == nil {
			hostUsed = fallback.Host
			if r.logger != nil {
				r.logger.Warn("usage_db_host_fallback", "configured_host", r.cfg.Database.Host, "effective_host", hostUsed)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("open usage db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get usage db handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(r.cfg.Database.MinPool)
	sqlDB.SetMaxOpenConns(r.cfg.Database.MaxPool)
	if r.cfg.Database.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(r.cfg.Database.ConnMaxLifetimeMinutes) * time.Minute)
	}
	if r.cfg.Database.ConnMaxIdleTimeMinutes > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(r.cfg.Database.ConnMaxIdleTimeMinutes) * time.Minute)
	}

	if r.logger != nil {
		r.logger.Info("usage_db_connected", "host", hostUsed, "name", r.cfg.Database.Name)
	}

	r.db = db
	r.sqlDB = sqlDB
	return nil
}

func orDefault(days, fallback int) int {
	if days <= 0 {
		return fallback
	}
	return days
}

func dayOrToday(date time.Time) time.Time {
	if date.IsZero() {
		return todayDate()
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location())
}

func todayDate() time.Time {
	now := time.Now().In(time.Local)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// cutoffDate 는 오늘 포함 최근 days 일 구간의 시작일이다. (CURRENT_DATE - days 와 같다)
func cutoffDate(days int) time.Time {
	return todayDate().AddDate(0, 0, -days)
}

// shouldFallbackToLocalhost 는 compose 서비스명 "postgres" 가 해석되지 않는 로컬 실행을 감지한다.
func shouldFallbackToLocalhost(err error, host string) bool {
	if err == nil {
		return false
	}
	if !strings.EqualFold(host, "postgres") {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return strings.EqualFold(dnsErr.Name, host)
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "no such host") && strings.Contains(lower, strings.ToLower(host))
}
