package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("valkey unreachable") }

func healthRouter(cfg *config.Config, cache interface{ Ping(context.Context) error }) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHealthHandler(cfg, cache).RegisterRoutes(router)
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReadinessFollowsDependencies(t *testing.T) {
	keyed := config.GeminiConfig{APIKeys: []string{"AIza-test"}, DefaultModel: "gemini-2.5-flash"}
	cacheOn := config.ExtractConfig{CacheEnabled: true, CacheURL: "redis://cache:6379", CacheTTLMinutes: 60}

	tests := []struct {
		name  string
		cfg   *config.Config
		cache interface{ Ping(context.Context) error }
		ready int
	}{
		{"no api key", &config.Config{}, nil, http.StatusServiceUnavailable},
		{"key without cache", &config.Config{Gemini: keyed}, nil, http.StatusOK},
		{"cache ping fails", &config.Config{Gemini: keyed, Extract: cacheOn}, failingPinger{}, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := healthRouter(tc.cfg, tc.cache)
			if code := get(router, "/health/ready").Code; code != tc.ready {
				t.Fatalf("ready = %d, want %d", code, tc.ready)
			}
			// liveness 는 의존성과 무관하게 200 이다.
			if code := get(router, "/health").Code; code != http.StatusOK {
				t.Fatalf("liveness = %d", code)
			}
		})
	}
}

func TestModelsRoute(t *testing.T) {
	cfg := &config.Config{
		Gemini: config.GeminiConfig{
			DefaultModel: "gemini-2.5-flash",
			QuizModel:    "gemini-2.5-pro",
			Temperature:  -1,
		},
		HTTP: config.HTTPConfig{HTTP2Enabled: true},
	}
	rec := get(healthRouter(cfg, nil), "/health/models")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var payload ModelConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.ModelQuiz != "gemini-2.5-pro" || payload.ModelNotes != "gemini-2.5-flash" {
		t.Fatalf("per-task models not resolved: %+v", payload)
	}
	if payload.Temperature != nil || payload.TransportMode != "h2c" {
		t.Fatalf("unexpected transport or temperature: %+v", payload)
	}
}

func TestMetricsRoute(t *testing.T) {
	if code := get(healthRouter(&config.Config{}, nil), "/metrics").Code; code != http.StatusOK {
		t.Fatalf("metrics = %d", code)
	}
}
