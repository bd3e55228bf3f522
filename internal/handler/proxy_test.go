package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/dispatch"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/domain/study"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/extract"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/gemini"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/llm"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/metrics"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/middleware"
	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/studyapi"
)

type stubLLM struct {
	text string
}

func (s stubLLM) Chat(context.Context, gemini.Request) (llm.ChatResult, string, error) {
	return llm.ChatResult{Text: s.text}, "gemini-test", nil
}

func newTestRouter(t *testing.T, model gemini.LLM, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if cfg == nil {
		cfg = &config.Config{}
	}
	prompts, err := study.NewPrompts()
	if err != nil {
		t.Fatalf("load prompts: %v", err)
	}
	dispatcher := dispatch.New(model, prompts, extract.NewService(nil, nil), nil)
	return NewRouter(
		cfg,
		nil,
		NewProxyHandler(cfg, dispatcher, nil),
		NewHealthHandler(cfg, nil),
		NewLLMHandler(cfg, metrics.NewStore()),
		NewUsageHandler(cfg, nil, nil),
	)
}

func postJSON(router http.Handler, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProxySummarize(t *testing.T) {
	router := newTestRouter(t, stubLLM{text: "Short."}, nil)
	w := postJSON(router, ProxyPath, `{"action":"summarizeText","data":{"text":"Long text"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result studyapi.SummaryResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil || result.Summary != "Short." {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestProxyLegacyPath(t *testing.T) {
	router := newTestRouter(t, stubLLM{text: "ok"}, nil)
	w := postJSON(router, LegacyProxyPath, `{"action":"createNotes","data":{"text":"x"}}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"notes":"ok"`) {
		t.Fatalf("unexpected response: %d %s", w.Code, w.Body.String())
	}
}

func TestProxyMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, stubLLM{}, nil)
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, ProxyPath, nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected 405, got %d", method, w.Code)
		}
		if w.Body.String() != `{"error":"Method Not Allowed"}` {
			t.Fatalf("%s: unexpected body %s", method, w.Body.String())
		}
	}
}

func TestProxyWithoutLLM(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	w := postJSON(router, ProxyPath, `{"action":"generateQuiz","data":{"contextText":"x"}}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	w = postJSON(router, ProxyPath, `{"action":"extractTextFromFile","data":{"fileName":"a.txt","fileData":"aGk="}}`)
	if w.Code != http.StatusOK || w.Body.String() != `{"extractedText":"hi"}` {
		t.Fatalf("unexpected extract response: %d %s", w.Code, w.Body.String())
	}
}

func TestProxyBadJSON(t *testing.T) {
	router := newTestRouter(t, stubLLM{}, nil)
	w := postJSON(router, ProxyPath, `{"action":`)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), `"error":"Bad Request: `) {
		t.Fatalf("unexpected response: %d %s", w.Code, w.Body.String())
	}
}

func TestProxyBodyLimit(t *testing.T) {
	router := newTestRouter(t, stubLLM{}, &config.Config{HTTP: config.HTTPConfig{MaxBodyMB: 1}})
	large := `{"action":"summarizeText","data":{"text":"` + strings.Repeat("a", 2<<20) + `"}}`
	w := postJSON(router, ProxyPath, large)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", w.Code)
	}
}

func TestLLMMetricsRoute(t *testing.T) {
	router := newTestRouter(t, stubLLM{}, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/llm/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload LLMMetricsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Totals["total_calls"] != 0 {
		t.Fatalf("unexpected totals: %+v", payload.Totals)
	}
}
