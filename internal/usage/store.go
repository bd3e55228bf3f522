package usage

import (
	"context"
	"time"
)

// Store: 사용량 저장소 인터페이스입니다.
// 핸들러 테스트에서 fake 구현을 주입할 수 있도록 합니다.
type Store interface {
	// RecordUsage 토큰 사용량 누적
	RecordUsage(ctx context.Context, task string, delta Delta, usageDate time.Time) error

	// GetDailyUsage 일별 사용량 조회 (작업 합산)
	GetDailyUsage(ctx context.Context, usageDate time.Time) (*DailyUsage, error)

	// GetRecentUsage 최근 N일 사용량 조회
	GetRecentUsage(ctx context.Context, days int) ([]DailyUsage, error)

	// GetTotalUsage 최근 N일 합계 조회
	GetTotalUsage(ctx context.Context, days int) (DailyUsage, error)

	// GetTaskUsage 최근 N일 작업별 합계 조회
	GetTaskUsage(ctx context.Context, days int) ([]TaskUsage, error)

	// Close 리소스 정리
	Close()
}

// Repository가 Store 인터페이스를 구현하는지 컴파일 타임 확인
var _ Store = (*Repository)(nil)
