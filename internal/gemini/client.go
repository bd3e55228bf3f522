package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/llm"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/metrics"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/telemetry"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/usage"
)

var (
	// ErrMissingAPIKey 는 Gemini API 키가 없을 때 반환된다.
	ErrMissingAPIKey = errors.New("missing gemini api key")
	// ErrInvalidModel 는 모델명을 결정할 수 없을 때 반환된다.
	ErrInvalidModel = errors.New("invalid model")
)

const jsonMIMEType = "application/json"

// Request 는 Gemini 요청 데이터다.
type Request struct {
	Prompt       string
	SystemPrompt string
	History      []llm.HistoryEntry
	Model        string
	Task         llm.Task
	// JSONOutput 이 true 면 응답 MIME 타입을 application/json 으로 고정한다.
	JSONOutput bool
}

// Client 는 Gemini 호출을 담당한다.
// API 키가 여러 개면 호출마다 순서대로 돌려 쓴다.
type Client struct {
	cfg           *config.Config
	metrics       *metrics.Store
	usageRecorder *usage.Recorder
	tracer        trace.Tracer
	mu            sync.Mutex
	clients       map[string]*genai.Client
	apiKeys       []string
	apiKeyIdx     int
}

// NewClient 는 Gemini 클라이언트를 생성한다. 키가 없으면 ErrMissingAPIKey 를 반환한다.
func NewClient(cfg *config.Config, metricsStore *metrics.Store, usageRecorder *usage.Recorder) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if metricsStore == nil {
		return nil, errors.New("metrics store is nil")
	}
	if !cfg.Gemini.Configured() {
		return nil, ErrMissingAPIKey
	}
	return &Client{
		cfg:           cfg,
		metrics:       metricsStore,
		usageRecorder: usageRecorder,
		tracer:        otel.Tracer(telemetry.InstrumentationName),
		clients:       make(map[string]*genai.Client),
		apiKeys:       cfg.Gemini.APIKeys,
	}, nil
}

// Chat 은 생성 호출 한 번을 수행하고 텍스트, 사용량, 근거 메타데이터를 돌려준다.
func (c *Client) Chat(ctx context.Context, req Request) (llm.ChatResult, string, error) {
	ctx, span := c.tracer.Start(ctx, "gemini.generate_content",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.task", string(req.Task)),
			attribute.Bool("llm.json_output", req.JSONOutput),
			attribute.Int("llm.history_turns", len(req.History)),
		),
	)
	defer span.End()

	start := time.Now()
	response, model, err := c.generate(ctx, req)
	span.SetAttributes(attribute.String("llm.model", model))
	if err != nil {
		c.metrics.RecordError(req.Task, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return llm.ChatResult{}, model, err
	}

	result := llm.ChatResult{
		Text:              strings.Join(extractText(response), ""),
		Usage:             extractUsage(response),
		GroundingMetadata: extractGrounding(response),
	}
	span.SetAttributes(
		attribute.Int("llm.input_tokens", result.Usage.InputTokens),
		attribute.Int("llm.output_tokens", result.Usage.OutputTokens),
	)

	c.metrics.RecordSuccess(req.Task, time.Since(start), result.Usage)
	c.recordUsage(ctx, req.Task, result.Usage)
	return result, model, nil
}

func (c *Client) recordUsage(ctx context.Context, task llm.Task, u llm.Usage) {
	if c.usageRecorder == nil {
		return
	}
	c.usageRecorder.Record(ctx, string(task), int64(u.InputTokens), int64(u.OutputTokens), int64(u.ReasoningTokens))
}

func (c *Client) generate(ctx context.Context, req Request) (*genai.GenerateContentResponse, string, error) {
	client, err := c.selectClient(ctx)
	if err != nil {
		return nil, "", err
	}

	model, err := c.resolveModel(req.Model, req.Task)
	if err != nil {
		return nil, model, err
	}

	config := c.buildGenerateConfig(req.SystemPrompt, req.JSONOutput)
	contents := buildContents(req.Prompt, req.History)
	response, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, model, fmt.Errorf("generate content: %w", err)
	}
	return response, model, nil
}

func (c *Client) selectClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.apiKeys) == 0 {
		return nil, ErrMissingAPIKey
	}

	key := c.apiKeys[c.apiKeyIdx%len(c.apiKeys)]
	c.apiKeyIdx++
	if client, ok := c.clients[key]; ok {
		return client, nil
	}

	httpOptions := genai.HTTPOptions{}
	if c.cfg.Gemini.TimeoutSeconds > 0 {
		httpOptions.Timeout = genai.Ptr(time.Duration(c.cfg.Gemini.TimeoutSeconds) * time.Second)
	}
	client, err := genai.NewClient(context.WithoutCancel(ctx), &genai.ClientConfig{
		APIKey:      key,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	c.clients[key] = client
	return client, nil
}

func (c *Client) resolveModel(modelOverride string, task llm.Task) (string, error) {
	model := strings.TrimSpace(modelOverride)
	if model == "" {
		model = c.cfg.Gemini.ModelForTask(string(task))
	}
	if model == "" {
		return "", ErrInvalidModel
	}
	return model, nil
}

// buildGenerateConfig 는 설정된 값만 채운다. 나머지는 모델 기본값을 따른다.
func (c *Client) buildGenerateConfig(systemPrompt string, jsonOutput bool) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if temperature, ok := c.cfg.Gemini.TemperatureOverride(); ok {
		config.Temperature = genai.Ptr(temperature)
	}
	if c.cfg.Gemini.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(c.cfg.Gemini.MaxOutputTokens)
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if jsonOutput {
		config.ResponseMIMEType = jsonMIMEType
	}
	return config
}

func buildContents(prompt string, history []llm.HistoryEntry) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, entry := range history {
		var role genai.Role = genai.RoleUser
		if isModelRole(entry.Role) {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(entry.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
	return contents
}

func isModelRole(role string) bool {
	return strings.EqualFold(role, llm.RoleModel) || strings.EqualFold(role, llm.RoleAssistant)
}

// extractText 는 첫 번째 후보의 텍스트 파트를 모은다. thought 파트는 제외한다.
func extractText(response *genai.GenerateContentResponse) []string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0] == nil {
		return nil
	}
	content := response.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return nil
	}

	texts := make([]string, 0, len(content.Parts))
	for _, part := range content.Parts {
		if part == nil || part.Text == "" || part.Thought {
			continue
		}
		texts = append(texts, part.Text)
	}
	return texts
}

// extractGrounding 은 첫 번째 후보의 groundingMetadata 를 가공 없이 JSON 으로 옮긴다.
func extractGrounding(response *genai.GenerateContentResponse) json.RawMessage {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0] == nil {
		return nil
	}
	metadata := response.Candidates[0].GroundingMetadata
	if metadata == nil {
		return nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil
	}
	return raw
}

func extractUsage(response *genai.GenerateContentResponse) llm.Usage {
	if response == nil || response.UsageMetadata == nil {
		return llm.Usage{}
	}
	meta := response.UsageMetadata
	return llm.Usage{
		InputTokens:     int(meta.PromptTokenCount),
		OutputTokens:    int(meta.CandidatesTokenCount) + int(meta.ThoughtsTokenCount),
		TotalTokens:     int(meta.TotalTokenCount),
		ReasoningTokens: int(meta.ThoughtsTokenCount),
		CachedTokens:    int(meta.CachedContentTokenCount),
	}
}
