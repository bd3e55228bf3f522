// Package quiz 는 객관식 퀴즈 한 판의 진행 상태를 관리한다.
//
// 상태는 idle → active → finished 로만 움직이며 Restart 는 어느 단계에서든 idle 로 되돌린다.
// 생성 요청이 진행되는 동안 Restart/SetSource/Generate 가 끼어들면 늦게 도착한 결과는 버려진다.
package quiz

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/studyapi"
)

// Phase 는 퀴즈 진행 단계다.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

var (
	// ErrNoText 는 자료 없이 생성을 요청했을 때 반환된다.
	ErrNoText = errors.New("No text provided to generate quiz from.")
	// ErrEmptyQuiz 는 생성 결과에 문항이 없을 때 반환된다.
	ErrEmptyQuiz = errors.New("The generated quiz contained no questions.")
	// ErrUnanswered 는 현재 문항에 답하지 않고 넘기려 할 때 반환된다.
	ErrUnanswered = errors.New("select an answer before continuing")
	// ErrSuperseded 는 생성 도중 세션이 바뀌어 결과를 버렸을 때 반환된다.
	ErrSuperseded = errors.New("quiz generation superseded")
	// ErrUnknownOption 은 현재 문항의 보기에 없는 답을 골랐을 때 반환된다.
	ErrUnknownOption = errors.New("option is not one of the current question's options")
)

// PhaseError 는 현재 단계에서 허용되지 않는 조작이다.
type PhaseError struct {
	Op    string
	Phase Phase
}

func (e *PhaseError) Error() string {
	return "quiz: " + e.Op + " not allowed while " + string(e.Phase)
}

// Generator 는 자료로 퀴즈를 만든다. proxyclient.Client 가 구현한다.
type Generator interface {
	GenerateQuiz(ctx context.Context, contextText string) ([]studyapi.QuizQuestion, error)
}

// State 는 세션 상태의 사본이다.
type State struct {
	Questions    []studyapi.QuizQuestion
	CurrentIndex int
	Answers      []string
	Phase        Phase
	Score        int
}

// Current 는 현재 문항을 반환한다. active 가 아니면 false 다.
func (s State) Current() (studyapi.QuizQuestion, bool) {
	if s.Phase != PhaseActive || s.CurrentIndex >= len(s.Questions) {
		return studyapi.QuizQuestion{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// Result 는 끝난 퀴즈의 문항별 채점 결과다.
type Result struct {
	Question  string
	Chosen    string
	Correct   string
	IsCorrect bool
}

// Session 은 퀴즈 한 판이다. 여러 goroutine 에서 함께 써도 된다.
type Session struct {
	generator Generator

	mu         sync.Mutex
	state      State
	source     string
	generation uint64
}

// NewSession 은 idle 세션을 만든다.
func NewSession(generator Generator) *Session {
	return &Session{generator: generator, state: State{Phase: PhaseIdle}}
}

// Generate 는 자료로 새 퀴즈를 시작한다. idle 에서만 호출할 수 있다.
// 실패하면 세션은 idle 로 남고 부분 결과는 저장되지 않는다.
func (s *Session) Generate(ctx context.Context, contextText string) error {
	s.mu.Lock()
	if s.state.Phase != PhaseIdle {
		phase := s.state.Phase
		s.mu.Unlock()
		return &PhaseError{Op: "generate", Phase: phase}
	}
	if strings.TrimSpace(contextText) == "" {
		s.mu.Unlock()
		return ErrNoText
	}
	s.generation++
	generation := s.generation
	s.source = contextText
	s.mu.Unlock()

	questions, err := s.generator.GenerateQuiz(ctx, contextText)

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation || s.state.Phase != PhaseIdle {
		return ErrSuperseded
	}
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return ErrEmptyQuiz
	}

	stored := make([]studyapi.QuizQuestion, len(questions))
	for i, q := range questions {
		q.Options = slices.Clone(q.Options)
		q.UserAnswer = ""
		stored[i] = q
	}
	s.state = State{
		Questions: stored,
		Answers:   make([]string, len(stored)),
		Phase:     PhaseActive,
	}
	return nil
}

// Answer 는 현재 문항의 답을 기록한다. 다시 고르면 마지막 선택이 남는다.
func (s *Session) Answer(option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != PhaseActive {
		return &PhaseError{Op: "answer", Phase: s.state.Phase}
	}
	i := s.state.CurrentIndex
	if !slices.Contains(s.state.Questions[i].Options, option) {
		return ErrUnknownOption
	}
	s.state.Answers[i] = option
	s.state.Questions[i].UserAnswer = option
	return nil
}

// Advance 는 다음 문항으로 넘어가거나 마지막 문항이면 채점하고 끝낸다.
// 이동 후 단계를 반환한다.
func (s *Session) Advance() (Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != PhaseActive {
		return s.state.Phase, &PhaseError{Op: "advance", Phase: s.state.Phase}
	}
	if s.state.Answers[s.state.CurrentIndex] == "" {
		return s.state.Phase, ErrUnanswered
	}
	if s.state.CurrentIndex < len(s.state.Questions)-1 {
		s.state.CurrentIndex++
		return s.state.Phase, nil
	}

	score := 0
	for i, q := range s.state.Questions {
		if s.state.Answers[i] == q.CorrectAnswer {
			score++
		}
	}
	s.state.Score = score
	s.state.Phase = PhaseFinished
	return s.state.Phase, nil
}

// Restart 는 어느 단계에서든 빈 idle 상태로 되돌린다. 진행 중인 생성 결과는 버려진다.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// SetSource 는 학습 자료가 바뀌었음을 알린다. 이전 자료와 다르면 Restart 와 같다.
func (s *Session) SetSource(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == s.source {
		return
	}
	s.source = text
	s.reset()
}

func (s *Session) reset() {
	s.generation++
	s.state = State{Phase: PhaseIdle}
}

// Snapshot 은 현재 상태의 깊은 사본을 반환한다.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.state
	snapshot.Answers = slices.Clone(s.state.Answers)
	if s.state.Questions != nil {
		snapshot.Questions = make([]studyapi.QuizQuestion, len(s.state.Questions))
		for i, q := range s.state.Questions {
			q.Options = slices.Clone(q.Options)
			snapshot.Questions[i] = q
		}
	}
	return snapshot
}

// Review 는 끝난 퀴즈의 문항별 결과를 반환한다. finished 가 아니면 nil 이다.
func (s *Session) Review() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != PhaseFinished {
		return nil
	}
	results := make([]Result, len(s.state.Questions))
	for i, q := range s.state.Questions {
		results[i] = Result{
			Question:  q.Question,
			Chosen:    s.state.Answers[i],
			Correct:   q.CorrectAnswer,
			IsCorrect: s.state.Answers[i] == q.CorrectAnswer,
		}
	}
	return results
}
