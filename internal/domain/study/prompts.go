package study

import (
	"embed"
	"fmt"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/prompt"
)

//go:embed prompts/*.yml
var promptsFS embed.FS

// placeholders 는 프롬프트 필드별로 코드가 채워 주는 값 이름이다.
// 기동 시 파일과 대조해 필드 누락이나 모르는 자리표시자를 잡는다.
var placeholders = map[string]map[string][]string{
	"summarize": {"user": {"text"}},
	"answer":    {"system_template": {"document"}},
	"quiz":      {"user": {"contextText"}},
	"notes":     {"instruction": nil, "focus": {"topic"}, "body": {"text"}},
	"videos":    {"user": {"text"}},
}

// Prompts 는 학습 도우미 action 의 프롬프트 모음이다.
type Prompts struct {
	bundle *prompt.Bundle
}

// NewPrompts 는 내장 YAML 프롬프트를 로드하고 필드를 확인한다.
func NewPrompts() (*Prompts, error) {
	bundle, err := prompt.LoadBundle(promptsFS, "prompts", "study")
	if err != nil {
		return nil, fmt.Errorf("load study prompts: %w", err)
	}
	if err := bundle.Require(placeholders); err != nil {
		return nil, err
	}
	return &Prompts{bundle: bundle}, nil
}

// Summarize 는 요약 요청 프롬프트를 만든다.
func (p *Prompts) Summarize(text string) (string, error) {
	return p.render("summarize", "user", map[string]string{"text": text})
}

// AnswerSystem 은 문서를 그대로 담은 Q&A system instruction 을 만든다.
func (p *Prompts) AnswerSystem(contextText string) (string, error) {
	return p.render("answer", "system_template", map[string]string{"document": contextText})
}

// Quiz 는 퀴즈 생성 프롬프트를 만든다.
func (p *Prompts) Quiz(contextText string) (string, error) {
	return p.render("quiz", "user", map[string]string{"contextText": contextText})
}

// Notes 는 노트 생성 프롬프트를 만든다. topic 이 비어 있으면 focus 문장을 넣지 않는다.
func (p *Prompts) Notes(text string, topic string) (string, error) {
	instruction, err := p.render("notes", "instruction", nil)
	if err != nil {
		return "", err
	}
	if topic != "" {
		focus, err := p.render("notes", "focus", map[string]string{"topic": topic})
		if err != nil {
			return "", err
		}
		instruction += focus
	}
	body, err := p.render("notes", "body", map[string]string{"text": text})
	if err != nil {
		return "", err
	}
	return instruction + body, nil
}

// Videos 는 영상 검색어 추천 프롬프트를 만든다.
func (p *Prompts) Videos(text string) (string, error) {
	return p.render("videos", "user", map[string]string{"text": text})
}

func (p *Prompts) render(name string, field string, values map[string]string) (string, error) {
	return p.bundle.Render(name, field, values)
}
