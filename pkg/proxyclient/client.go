// Package proxyclient 는 학습 도우미 프록시의 Go 클라이언트다.
// 각 메서드는 action 하나를 POST 하고 결과 본문을 검증해 돌려준다.
package proxyclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/net/http2"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/llmjson"
	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/studyapi"
)

const (
	// DefaultEndpoint 는 프록시 action 엔드포인트 경로다.
	DefaultEndpoint = "/api/gemini-proxy"
	defaultTimeout  = 2 * time.Minute
	maxResponseSize = 64 << 20
)

// Config 는 클라이언트 설정이다.
type Config struct {
	BaseURL  string
	Endpoint string
	Timeout  time.Duration
	// H2C 가 true 면 평문 HTTP/2 로 연결한다. HTTPClient 를 지정하면 무시된다.
	H2C        bool
	HTTPClient *http.Client
}

// Client 는 프록시 클라이언트다. 여러 goroutine 에서 함께 써도 된다.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New 는 클라이언트를 생성한다.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", cfg.BaseURL)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
		if cfg.H2C {
			httpClient.Transport = newH2CTransport()
		}
	}

	return &Client{endpoint: base.ResolveReference(ref).String(), httpClient: httpClient}, nil
}

func newH2CTransport() http.RoundTripper {
	return &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var dialer net.Dialer
			return dialer.DialContext(ctx, network, addr)
		},
	}
}

// ExtractTextFromFile 은 base64 파일 본문에서 텍스트를 추출한다.
func (c *Client) ExtractTextFromFile(ctx context.Context, fileName string, fileData string) (string, error) {
	var result studyapi.ExtractTextResult
	err := c.call(ctx, studyapi.ActionExtractTextFromFile, studyapi.ExtractTextFromFile{FileName: fileName, FileData: fileData}, &result)
	return result.ExtractedText, err
}

// SummarizeText 는 요약을 요청한다.
func (c *Client) SummarizeText(ctx context.Context, text string) (string, error) {
	var result studyapi.SummaryResult
	err := c.call(ctx, studyapi.ActionSummarizeText, studyapi.SummarizeText{Text: text}, &result)
	return result.Summary, err
}

// AnswerQuestion 은 문서 기반 질문에 답한다. history 가 nil 이어도 빈 배열로 보낸다.
func (c *Client) AnswerQuestion(ctx context.Context, contextText string, question string, history []studyapi.ChatTurn) (studyapi.AnswerResult, error) {
	if history == nil {
		history = []studyapi.ChatTurn{}
	}
	var result studyapi.AnswerResult
	err := c.call(ctx, studyapi.ActionAnswerQuestion, studyapi.AnswerQuestion{
		ContextText: contextText,
		Question:    question,
		ChatHistory: history,
	}, &result)
	return result, err
}

// GenerateQuiz 는 퀴즈를 요청한다. quiz 가 배열이 아니면 오류다.
func (c *Client) GenerateQuiz(ctx context.Context, contextText string) ([]studyapi.QuizQuestion, error) {
	var raw struct {
		Quiz json.RawMessage `json:"quiz"`
	}
	if err := c.call(ctx, studyapi.ActionGenerateQuiz, studyapi.GenerateQuiz{ContextText: contextText}, &raw); err != nil {
		return nil, err
	}
	if !isArray(raw.Quiz) {
		return nil, &Error{Action: studyapi.ActionGenerateQuiz, Status: http.StatusOK, Message: MessageInvalidQuiz}
	}
	var questions []studyapi.QuizQuestion
	if err := json.Unmarshal(raw.Quiz, &questions); err != nil {
		return nil, &Error{Action: studyapi.ActionGenerateQuiz, Status: http.StatusOK, Message: MessageInvalidQuiz, Err: err}
	}
	return questions, nil
}

// CreateNotes 는 노트를 요청한다. topic 이 비어 있으면 보내지 않는다.
func (c *Client) CreateNotes(ctx context.Context, text string, topic string) (string, error) {
	var result studyapi.NotesResult
	err := c.call(ctx, studyapi.ActionCreateNotes, studyapi.CreateNotes{Text: text, Topic: topic}, &result)
	return result.Notes, err
}

// SuggestVideoTopics 는 영상 검색어를 요청한다.
// 본문이 (펜스가 있을 수 있는) 배열을 담은 JSON 문자열이어도 받아들인다.
func (c *Client) SuggestVideoTopics(ctx context.Context, text string) ([]string, error) {
	var raw json.RawMessage
	if err := c.call(ctx, studyapi.ActionSuggestVideoTopics, studyapi.SuggestVideoTopics{Text: text}, &raw); err != nil {
		return nil, err
	}

	invalid := func(cause error) error {
		return &Error{Action: studyapi.ActionSuggestVideoTopics, Status: http.StatusOK, Message: MessageInvalidVideos, Err: cause}
	}

	var body struct {
		Suggestions json.RawMessage `json:"suggestions"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && isArray(body.Suggestions) {
		var suggestions []string
		if err := json.Unmarshal(body.Suggestions, &suggestions); err != nil {
			return nil, invalid(err)
		}
		return suggestions, nil
	}

	var wrapped string
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, invalid(nil)
	}
	var suggestions []string
	if err := llmjson.Extract(wrapped, &suggestions); err != nil || suggestions == nil {
		return nil, invalid(err)
	}
	return suggestions, nil
}

// VideoSearchURL 은 검색어의 YouTube 검색 결과 주소를 만든다.
func VideoSearchURL(query string) string {
	return "https://www.youtube.com/results?search_query=" + url.QueryEscape(query)
}

func (c *Client) call(ctx context.Context, action studyapi.Action, data any, out any) error {
	payload, err := json.Marshal(studyapi.Request{Action: action, Data: data})
	if err != nil {
		return &Error{Action: action, Message: fmt.Sprintf("encode request: %v", err), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &Error{Action: action, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &Error{Action: action, Message: ctxErr.Error(), Err: ctxErr}
		}
		return &Error{Action: action, Message: MessageNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &Error{Action: action, Status: resp.StatusCode, Message: MessageNetwork, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(action, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{
			Action:  action,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Proxy returned a malformed response for %s.", action),
			Err:     err,
		}
	}
	return nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
