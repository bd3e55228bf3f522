package usage

import "time"

// TokenUsage 는 (일자, 작업) 단위 토큰 사용량 누적 행이다.
type TokenUsage struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UsageDate       time.Time `gorm:"column:usage_date;type:date;not null;uniqueIndex:idx_token_usage_date_task,priority:1"`
	Task            string    `gorm:"column:task;type:varchar(32);not null;default:'';uniqueIndex:idx_token_usage_date_task,priority:2"`
	InputTokens     int64     `gorm:"column:input_tokens;not null;default:0"`
	OutputTokens    int64     `gorm:"column:output_tokens;not null;default:0"`
	ReasoningTokens int64     `gorm:"column:reasoning_tokens;not null;default:0"`
	RequestCount    int64     `gorm:"column:request_count;not null;default:0"`
	Version         int64     `gorm:"column:version;not null;default:0"`
}

// TableName 은 GORM에서 사용할 테이블명을 반환한다.
func (TokenUsage) TableName() string {
	return "token_usage"
}

// DailyUsage 는 API/집계용 사용량 뷰 모델이다. 일자 단위 또는 기간 합계를 담는다.
type DailyUsage struct {
	UsageDate       time.Time
	InputTokens     int64
	OutputTokens    int64
	ReasoningTokens int64
	RequestCount    int64
}

// TotalTokens 는 입력+출력 토큰 합계를 반환한다.
func (d DailyUsage) TotalTokens() int64 {
	return d.InputTokens + d.OutputTokens
}

// TaskUsage 는 기간 내 작업 유형별 합계다.
type TaskUsage struct {
	Task            string
	InputTokens     int64
	OutputTokens    int64
	ReasoningTokens int64
	RequestCount    int64
}

// TotalTokens 는 입력+출력 토큰 합계를 반환한다.
func (t TaskUsage) TotalTokens() int64 {
	return t.InputTokens + t.OutputTokens
}
