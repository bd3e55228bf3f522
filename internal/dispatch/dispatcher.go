// Package dispatch 는 {action, data} 요청 하나를 검증하고 해당 작업을 실행한다.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/domain/study"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/gemini"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/httperror"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/metrics"
	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/studyapi"
)

// Extractor 는 업로드 파일 텍스트 추출기다.
type Extractor interface {
	Extract(ctx context.Context, fileName string, fileData string) (string, error)
}

// Outcome 은 한 요청의 처리 결과다. Body 는 성공 본문 또는 studyapi.ErrorBody 다.
type Outcome struct {
	Action string
	Status int
	Body   any
}

// Dispatcher 는 요청 간 상태를 갖지 않는다.
type Dispatcher struct {
	llm       gemini.LLM
	prompts   *study.Prompts
	extractor Extractor
	validate  *validator.Validate
	logger    *slog.Logger
}

// New 는 디스패처를 만든다. llm 이 nil 이면 추출 외 action 은 503 이 된다.
func New(llmClient gemini.LLM, prompts *study.Prompts, extractor Extractor, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		llm:       llmClient,
		prompts:   prompts,
		extractor: extractor,
		validate:  validator.New(),
		logger:    logger,
	}
}

// LLMConfigured 는 모델 클라이언트가 주입되었는지 반환한다.
func (d *Dispatcher) LLMConfigured() bool {
	return d.llm != nil
}

// Dispatch 는 본문을 해석해 action 을 실행하고 상태 코드와 본문을 돌려준다.
// 실행 중 panic 은 복구되어 500 이 된다.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "proxy_action_panic", "action", out.Action, "panic", r)
			out = d.failure(ctx, out.Action, httperror.NewPanic(r))
		}
		metrics.ObserveAction(metricLabel(out.Action), out.Status, time.Since(start))
	}()

	env, err := parseEnvelope(body)
	if err != nil {
		return d.failure(ctx, "", httperror.NewBadRequest(err))
	}
	out.Action = env.Action

	action := studyapi.Action(env.Action)
	if action.RequiresLLM() && d.llm == nil {
		return d.failure(ctx, env.Action, httperror.NewServiceUnavailable())
	}

	payload, ok := studyapi.NewPayload(action)
	if !ok {
		return d.failure(ctx, env.Action, httperror.NewInvalidAction(env.Action))
	}
	if err := decodePayload(d.validate, env.Data, payload); err != nil {
		d.logger.DebugContext(ctx, "proxy_payload_invalid", "action", env.Action, "err", err)
		return d.failure(ctx, env.Action, httperror.NewMissingField(payload.MissingFieldMessage()))
	}

	result, err := d.execute(ctx, payload)
	if err != nil {
		return d.failure(ctx, env.Action, err)
	}
	return Outcome{Action: env.Action, Status: http.StatusOK, Body: result}
}

func (d *Dispatcher) execute(ctx context.Context, payload studyapi.Payload) (any, error) {
	switch p := payload.(type) {
	case *studyapi.ExtractTextFromFile:
		return d.extractText(ctx, p)
	case *studyapi.SummarizeText:
		return d.summarize(ctx, p)
	case *studyapi.AnswerQuestion:
		return d.answer(ctx, p)
	case *studyapi.GenerateQuiz:
		return d.quiz(ctx, p)
	case *studyapi.CreateNotes:
		return d.notes(ctx, p)
	case *studyapi.SuggestVideoTopics:
		return d.videos(ctx, p)
	default:
		panic(fmt.Sprintf("unhandled payload %T", payload))
	}
}

func (d *Dispatcher) failure(ctx context.Context, action string, err error) Outcome {
	status, body := httperror.Response(err)
	attrs := []any{"action", action, "status", status, "err", err}
	var apiErr *httperror.Error
	if errors.As(err, &apiErr) {
		attrs = append(attrs, "code", apiErr.Code)
	}
	if status >= http.StatusInternalServerError {
		d.logger.WarnContext(ctx, "proxy_action_failed", attrs...)
	} else {
		d.logger.InfoContext(ctx, "proxy_action_rejected", attrs...)
	}
	return Outcome{Action: action, Status: status, Body: body}
}

// metricLabel 은 알 수 없는 action 이름이 라벨로 새지 않도록 한다.
func metricLabel(action string) string {
	if _, ok := studyapi.NewPayload(studyapi.Action(action)); ok {
		return action
	}
	return ""
}
