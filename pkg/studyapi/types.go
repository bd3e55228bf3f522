package studyapi

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

// Request 는 프록시로 보내는 요청 본문이다.
type Request struct {
	Action Action `json:"action"`
	Data   any    `json:"data"`
}

// ErrorBody 는 실패 응답 본문이다.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Part 는 대화 턴의 텍스트 조각이다.
type Part struct {
	Text string `json:"text"`
}

// ChatTurn 은 Gemini Content 형태의 대화 턴이다. Role 은 "user" 또는 "model" 이다.
type ChatTurn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Text: 턴의 모든 텍스트 조각을 이어 붙여 반환합니다.
func (t ChatTurn) Text() string {
	if len(t.Parts) == 1 {
		return t.Parts[0].Text
	}
	var builder strings.Builder
	for _, part := range t.Parts {
		builder.WriteString(part.Text)
	}
	return builder.String()
}

// QuizQuestion 은 객관식 문항이다.
// CorrectAnswer 가 Options 중 하나라는 보장은 생성 모델에 맡긴다.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	UserAnswer    string   `json:"userAnswer,omitempty"`
}

// AnswerInOptions: 정답이 보기 중 하나인지 확인합니다.
func (q QuizQuestion) AnswerInOptions() bool {
	return slices.Contains(q.Options, q.CorrectAnswer)
}

// WebSource 는 근거 웹 문서다.
type WebSource struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

// GroundingChunk 는 근거 조각이다.
type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

// GroundingMetadata 는 답변의 출처 정보 중 클라이언트가 쓰는 부분이다.
type GroundingMetadata struct {
	GroundingChunks  []GroundingChunk `json:"groundingChunks,omitempty"`
	WebSearchQueries []string         `json:"webSearchQueries,omitempty"`
}

// Sources: 제목/URI 가 있는 웹 출처만 반환합니다.
func (g *GroundingMetadata) Sources() []WebSource {
	if g == nil {
		return nil
	}
	sources := make([]WebSource, 0, len(g.GroundingChunks))
	for _, chunk := range g.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		sources = append(sources, *chunk.Web)
	}
	return sources
}

// ExtractTextResult 는 extractTextFromFile 결과다.
type ExtractTextResult struct {
	ExtractedText string `json:"extractedText"`
}

// SummaryResult 는 summarizeText 결과다.
type SummaryResult struct {
	Summary string `json:"summary"`
}

// AnswerResult 는 answerQuestion 결과다.
// GroundingMetadata 는 모델 응답 그대로 전달되므로 원문 JSON 으로 보관한다.
type AnswerResult struct {
	Text              string          `json:"text"`
	GroundingMetadata json.RawMessage `json:"groundingMetadata,omitempty"`
}

// Grounding: 원문 근거 메타데이터를 구조체로 디코딩합니다. 없으면 nil 을 반환합니다.
func (r AnswerResult) Grounding() (*GroundingMetadata, error) {
	raw := strings.TrimSpace(string(r.GroundingMetadata))
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var metadata GroundingMetadata
	if err := json.Unmarshal(r.GroundingMetadata, &metadata); err != nil {
		return nil, fmt.Errorf("decode grounding metadata: %w", err)
	}
	return &metadata, nil
}

// QuizResult 는 generateQuiz 결과다.
type QuizResult struct {
	Quiz []QuizQuestion `json:"quiz"`
}

// NotesResult 는 createNotes 결과다.
type NotesResult struct {
	Notes string `json:"notes"`
}

// VideoSuggestionsResult 는 suggestVideoTopics 결과다.
type VideoSuggestionsResult struct {
	Suggestions []string `json:"suggestions"`
}

// ErrNoMaterial 은 붙여넣은 학습 자료가 비었을 때 반환된다.
var ErrNoMaterial = errors.New("Please paste some text or upload a file.")

// ValidateMaterial: 붙여넣은 학습 자료를 정리하고 비었는지 검사합니다.
func ValidateMaterial(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrNoMaterial
	}
	return trimmed, nil
}
