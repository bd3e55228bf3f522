// Package chat 는 문서 기반 Q&A 대화 기록을 관리한다.
package chat

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/studyapi"
)

// Greeting 은 자료가 설정되면 첫 메시지로 넣는 AI 인사말이다. 전송 기록에는 포함되지 않는다.
const Greeting = "I've read your document. What would you like to ask about it?"

var (
	// ErrEmptyQuestion 은 공백뿐인 질문이다.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrNoContext 는 자료 없이 질문했을 때 반환된다.
	ErrNoContext = errors.New("Please upload or provide text context first.")
	// ErrSuperseded 는 답을 기다리는 동안 대화가 초기화되어 답을 버렸을 때 반환된다.
	ErrSuperseded = errors.New("chat reply superseded")
)

// Sender 는 메시지 작성자다.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message 는 대화 한 줄이다. GroundingMetadata 는 AI 답변에만 붙는다.
type Message struct {
	Sender            Sender
	Text              string
	GroundingMetadata json.RawMessage
}

// Answerer 는 질문에 답한다. proxyclient.Client 가 구현한다.
type Answerer interface {
	AnswerQuestion(ctx context.Context, contextText string, question string, history []studyapi.ChatTurn) (studyapi.AnswerResult, error)
}

// Conversation 은 한 자료에 대한 대화다. 메시지는 덧붙이기만 한다.
type Conversation struct {
	mu          sync.Mutex
	contextText string
	messages    []Message
	generation  uint64
}

// NewConversation 은 자료를 설정한 대화를 만든다.
func NewConversation(contextText string) *Conversation {
	c := &Conversation{}
	c.Reset(contextText)
	return c
}

// Reset 은 기록을 비우고 자료를 바꾼다. 자료가 있으면 인사말로 시작한다.
func (c *Conversation) Reset(contextText string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.contextText = contextText
	c.messages = nil
	if strings.TrimSpace(contextText) != "" {
		c.messages = append(c.messages, Message{Sender: SenderAI, Text: Greeting})
	}
}

// Messages 는 화면에 보일 전체 메시지의 사본이다.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

// History 는 서버로 보낼 대화 기록이다.
func (c *Conversation) History() []studyapi.ChatTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return buildHistory(c.messages)
}

func buildHistory(messages []Message) []studyapi.ChatTurn {
	history := make([]studyapi.ChatTurn, 0, len(messages))
	for i, msg := range messages {
		if i == 0 && msg.Sender == SenderAI && msg.Text == Greeting {
			continue
		}
		role := "user"
		if msg.Sender == SenderAI {
			role = "model"
		}
		history = append(history, studyapi.ChatTurn{Role: role, Parts: []studyapi.Part{{Text: msg.Text}}})
	}
	return history
}

// Ask 는 질문을 기록하고 답을 받아 덧붙인다.
// 실패해도 질문 메시지는 남는다. 호출 중에 Reset 되면 답을 버리고 ErrSuperseded 를 반환한다.
func (c *Conversation) Ask(ctx context.Context, answerer Answerer, question string) (Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Message{}, ErrEmptyQuestion
	}

	c.mu.Lock()
	if strings.TrimSpace(c.contextText) == "" {
		c.mu.Unlock()
		return Message{}, ErrNoContext
	}
	contextText := c.contextText
	generation := c.generation
	history := buildHistory(c.messages)
	c.messages = append(c.messages, Message{Sender: SenderUser, Text: question})
	c.mu.Unlock()

	result, err := answerer.AnswerQuestion(ctx, contextText, question, history)
	if err != nil {
		return Message{}, err
	}

	reply := Message{Sender: SenderAI, Text: result.Text, GroundingMetadata: result.GroundingMetadata}
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return Message{}, ErrSuperseded
	}
	c.messages = append(c.messages, reply)
	return reply, nil
}
