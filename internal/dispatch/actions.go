package dispatch

import (
	"context"
	"errors"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/extract"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/gemini"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/httperror"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/llm"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/llmjson"
	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/studyapi"
)

// 모델 출력이 기대한 JSON 형태가 아닐 때의 응답 문구.
const (
	MessageQuizFormat   = "The AI returned an unexpected format for the quiz. Please try again. If the problem persists, the content might be too complex for quiz generation in the required format."
	MessageVideosFormat = "The AI returned an unexpected format for video suggestions. Please try again."
)

func (d *Dispatcher) extractText(ctx context.Context, p *studyapi.ExtractTextFromFile) (any, error) {
	text, err := d.extractor.Extract(ctx, p.FileName, p.FileData)
	if err != nil {
		var unsupported *extract.UnsupportedError
		if errors.As(err, &unsupported) {
			return nil, httperror.NewUnsupportedFileType(unsupported.Ext)
		}
		return nil, httperror.NewExtractionFailed(err)
	}
	return studyapi.ExtractTextResult{ExtractedText: text}, nil
}

func (d *Dispatcher) summarize(ctx context.Context, p *studyapi.SummarizeText) (any, error) {
	prompt, err := d.prompts.Summarize(p.Text)
	if err != nil {
		return nil, err
	}
	result, err := d.chat(ctx, gemini.Request{Prompt: prompt, Task: llm.TaskSummary})
	if err != nil {
		return nil, err
	}
	return studyapi.SummaryResult{Summary: result.Text}, nil
}

func (d *Dispatcher) answer(ctx context.Context, p *studyapi.AnswerQuestion) (any, error) {
	system, err := d.prompts.AnswerSystem(p.ContextText)
	if err != nil {
		return nil, err
	}
	history := make([]llm.HistoryEntry, 0, len(p.ChatHistory))
	for _, turn := range p.ChatHistory {
		history = append(history, llm.HistoryEntry{Role: turn.Role, Content: turn.Text()})
	}

	result, err := d.chat(ctx, gemini.Request{
		Prompt:       p.Question,
		SystemPrompt: system,
		History:      history,
		Task:         llm.TaskAnswer,
	})
	if err != nil {
		return nil, err
	}
	return studyapi.AnswerResult{Text: result.Text, GroundingMetadata: result.GroundingMetadata}, nil
}

func (d *Dispatcher) quiz(ctx context.Context, p *studyapi.GenerateQuiz) (any, error) {
	prompt, err := d.prompts.Quiz(p.ContextText)
	if err != nil {
		return nil, err
	}
	result, err := d.chat(ctx, gemini.Request{Prompt: prompt, Task: llm.TaskQuiz, JSONOutput: true})
	if err != nil {
		return nil, err
	}

	var questions []studyapi.QuizQuestion
	if err := llmjson.Extract(result.Text, &questions); err != nil || questions == nil {
		d.logger.WarnContext(ctx, "quiz_parse_failed", "err", err, "raw_len", len(result.Text))
		return nil, httperror.NewLLMParsingError(MessageQuizFormat)
	}
	for i, q := range questions {
		if !q.AnswerInOptions() {
			d.logger.WarnContext(ctx, "quiz_answer_not_in_options", "index", i, "options", len(q.Options))
		}
	}
	return studyapi.QuizResult{Quiz: questions}, nil
}

func (d *Dispatcher) notes(ctx context.Context, p *studyapi.CreateNotes) (any, error) {
	prompt, err := d.prompts.Notes(p.Text, p.Topic)
	if err != nil {
		return nil, err
	}
	result, err := d.chat(ctx, gemini.Request{Prompt: prompt, Task: llm.TaskNotes})
	if err != nil {
		return nil, err
	}
	return studyapi.NotesResult{Notes: result.Text}, nil
}

func (d *Dispatcher) videos(ctx context.Context, p *studyapi.SuggestVideoTopics) (any, error) {
	prompt, err := d.prompts.Videos(p.Text)
	if err != nil {
		return nil, err
	}
	result, err := d.chat(ctx, gemini.Request{Prompt: prompt, Task: llm.TaskVideos, JSONOutput: true})
	if err != nil {
		return nil, err
	}

	var suggestions []string
	if err := llmjson.Extract(result.Text, &suggestions); err != nil || suggestions == nil {
		d.logger.WarnContext(ctx, "videos_parse_failed", "err", err, "raw_len", len(result.Text))
		return nil, httperror.NewLLMParsingError(MessageVideosFormat)
	}
	return studyapi.VideoSuggestionsResult{Suggestions: suggestions}, nil
}

// chat 은 모델 호출 실패를 제공자 메시지 그대로의 500 으로 바꾼다.
func (d *Dispatcher) chat(ctx context.Context, req gemini.Request) (llm.ChatResult, error) {
	result, model, err := d.llm.Chat(ctx, req)
	if err != nil {
		d.logger.WarnContext(ctx, "llm_call_failed", "task", req.Task, "model", model, "err", err)
		return llm.ChatResult{}, httperror.NewLLMError(rootCause(err))
	}
	return result, nil
}

// rootCause 는 래핑을 모두 벗긴 오류를 반환한다.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
