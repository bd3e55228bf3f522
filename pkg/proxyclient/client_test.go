package proxyclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/studyapi"
)

type captured struct {
	Action studyapi.Action `json:"action"`
	Data   map[string]any  `json:"data"`
}

func newTestClient(t *testing.T, status int, body string, seen *captured) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != DefaultEndpoint {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %q", ct)
		}
		raw, _ := io.ReadAll(r.Body)
		if seen != nil {
			if err := json.Unmarshal(raw, seen); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func proxyError(t *testing.T, err error) *Error {
	t.Helper()
	var proxyErr *Error
	if !errors.As(err, &proxyErr) {
		t.Fatalf("expected *Error, got %T %v", err, err)
	}
	return proxyErr
}

func TestNewValidatesBaseURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "localhost"}); err == nil {
		t.Fatalf("expected relative url to be rejected")
	}
	client, err := New(Config{BaseURL: "http://proxy.local/app/", Endpoint: "/.netlify/functions/gemini-proxy"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.endpoint != "http://proxy.local/.netlify/functions/gemini-proxy" {
		t.Fatalf("unexpected endpoint: %s", client.endpoint)
	}
}

func TestSummarizeText(t *testing.T) {
	var seen captured
	client := newTestClient(t, http.StatusOK, `{"summary":"short"}`, &seen)
	summary, err := client.SummarizeText(context.Background(), "long text")
	if err != nil || summary != "short" {
		t.Fatalf("unexpected result: %q %v", summary, err)
	}
	if seen.Action != studyapi.ActionSummarizeText || seen.Data["text"] != "long text" {
		t.Fatalf("unexpected request: %+v", seen)
	}
}

func TestCreateNotesOmitsEmptyTopic(t *testing.T) {
	var seen captured
	client := newTestClient(t, http.StatusOK, `{"notes":"n"}`, &seen)
	if _, err := client.CreateNotes(context.Background(), "text", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := seen.Data["topic"]; ok {
		t.Fatalf("topic must be omitted: %+v", seen.Data)
	}
}

func TestAnswerQuestionSendsEmptyHistory(t *testing.T) {
	var seen captured
	client := newTestClient(t, http.StatusOK, `{"text":"a","groundingMetadata":{"groundingChunks":[{"web":{"uri":"https://x.example","title":"X"}}]}}`, &seen)
	result, err := client.AnswerQuestion(context.Background(), "doc", "q", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	history, ok := seen.Data["chatHistory"].([]any)
	if !ok || len(history) != 0 {
		t.Fatalf("expected empty chatHistory array, got %#v", seen.Data["chatHistory"])
	}
	metadata, err := result.Grounding()
	if err != nil || len(metadata.Sources()) != 1 {
		t.Fatalf("unexpected grounding: %+v %v", metadata, err)
	}
}

func TestExtractTextFromFile(t *testing.T) {
	var seen captured
	client := newTestClient(t, http.StatusOK, `{"extractedText":"hello"}`, &seen)
	text, err := client.ExtractTextFromFile(context.Background(), "a.txt", "aGVsbG8=")
	if err != nil || text != "hello" {
		t.Fatalf("unexpected result: %q %v", text, err)
	}
	if seen.Data["fileName"] != "a.txt" || seen.Data["fileData"] != "aGVsbG8=" {
		t.Fatalf("unexpected request: %+v", seen.Data)
	}
}

func TestErrorStatusMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error field", http.StatusBadRequest, `{"error":"Missing text for summarization."}`, "Missing text for summarization."},
		{"json without error", http.StatusInternalServerError, `{"detail":"x"}`, "Proxy request failed with status 500"},
		{"plain text", http.StatusBadGateway, "upstream exploded", "upstream exploded"},
		{"empty body", http.StatusBadGateway, "", "HTTP error! status: 502"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, tc.status, tc.body, nil)
			_, err := client.SummarizeText(context.Background(), "x")
			proxyErr := proxyError(t, err)
			if proxyErr.Status != tc.status || proxyErr.Message != tc.message || proxyErr.Action != studyapi.ActionSummarizeText {
				t.Fatalf("unexpected error: %+v", proxyErr)
			}
		})
	}
}

func TestUnavailable(t *testing.T) {
	client := newTestClient(t, http.StatusServiceUnavailable, `{"error":"AI Service Not Initialized."}`, nil)
	_, err := client.GenerateQuiz(context.Background(), "x")
	if !IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client, err := New(Config{BaseURL: baseURL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.SummarizeText(context.Background(), "x")
	proxyErr := proxyError(t, err)
	if proxyErr.Message != MessageNetwork || proxyErr.Status != 0 || proxyErr.Err == nil {
		t.Fatalf("unexpected error: %+v", proxyErr)
	}
}

func TestCanceledContext(t *testing.T) {
	client := newTestClient(t, http.StatusOK, `{"summary":"s"}`, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.SummarizeText(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestMalformedSuccessBody(t *testing.T) {
	client := newTestClient(t, http.StatusOK, `<html>`, nil)
	_, err := client.SummarizeText(context.Background(), "x")
	proxyErr := proxyError(t, err)
	if proxyErr.Status != http.StatusOK || !strings.Contains(proxyErr.Message, "malformed response") {
		t.Fatalf("unexpected error: %+v", proxyErr)
	}
}

func TestGenerateQuizShape(t *testing.T) {
	client := newTestClient(t, http.StatusOK, `{"quiz":[{"question":"Q","options":["A","B","C","D"],"correctAnswer":"A"}]}`, nil)
	quiz, err := client.GenerateQuiz(context.Background(), "x")
	if err != nil || len(quiz) != 1 || quiz[0].CorrectAnswer != "A" {
		t.Fatalf("unexpected quiz: %+v %v", quiz, err)
	}

	for _, body := range []string{`{"quiz":null}`, `{}`, `{"quiz":{"question":"Q"}}`} {
		client := newTestClient(t, http.StatusOK, body, nil)
		_, err := client.GenerateQuiz(context.Background(), "x")
		if proxyError(t, err).Message != MessageInvalidQuiz {
			t.Fatalf("%s: unexpected error %v", body, err)
		}
	}
}

func TestSuggestVideoTopicsShapes(t *testing.T) {
	tests := []struct {
		body string
		want []string
	}{
		{`{"suggestions":["a","b"]}`, []string{"a", "b"}},
		{`"[\"x\", \"y\"]"`, []string{"x", "y"}},
		{"\"```json\\n[\\\"fenced\\\"]\\n```\"", []string{"fenced"}},
	}
	for _, tc := range tests {
		client := newTestClient(t, http.StatusOK, tc.body, nil)
		got, err := client.SuggestVideoTopics(context.Background(), "x")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.body, err)
		}
		if strings.Join(got, ",") != strings.Join(tc.want, ",") {
			t.Fatalf("%s: got %v want %v", tc.body, got, tc.want)
		}
	}

	for _, body := range []string{`{"suggestions":"nope"}`, `{}`, `"not json"`, `{"suggestions":[1,2]}`} {
		client := newTestClient(t, http.StatusOK, body, nil)
		_, err := client.SuggestVideoTopics(context.Background(), "x")
		if proxyError(t, err).Message != MessageInvalidVideos {
			t.Fatalf("%s: unexpected error %v", body, err)
		}
	}
}

func TestVideoSearchURL(t *testing.T) {
	got := VideoSearchURL("photosynthesis explained & more")
	want := "https://www.youtube.com/results?search_query=photosynthesis+explained+%26+more"
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}
