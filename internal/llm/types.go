package llm

import "github.com/goccy/go-json"

// Task 는 모델/통계 선택에 쓰는 작업 유형이다.
type Task string

const (
	TaskSummary Task = "summary"
	TaskAnswer  Task = "answer"
	TaskQuiz    Task = "quiz"
	TaskNotes   Task = "notes"
	TaskVideos  Task = "videos"
)

// Role 값. 모델 응답 턴은 "model" 이고, 이전 버전 호출자를 위해 "assistant" 도 받는다.
const (
	RoleUser      = "user"
	RoleModel     = "model"
	RoleAssistant = "assistant"
)

// HistoryEntry: 대화 히스토리 항목입니다.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage: 토큰 사용량 정보를 담습니다.
type Usage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	TotalTokens     int `json:"total_tokens"`
	ReasoningTokens int `json:"reasoning_tokens"`
	CachedTokens    int `json:"cached_tokens"`
}

// ChatResult: LLM 응답과 사용량을 담습니다.
// GroundingMetadata 는 첫 번째 후보의 근거 메타데이터 원문이며 없으면 nil 입니다.
type ChatResult struct {
	Text              string
	Usage             Usage
	GroundingMetadata json.RawMessage
}
