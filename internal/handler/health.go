package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/health"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/llm"
)

// ModelConfigResponse: 모델 설정 응답입니다.
type ModelConfigResponse struct {
	ModelDefault    string   `json:"model_default"`
	ModelSummary    string   `json:"model_summary"`
	ModelAnswer     string   `json:"model_answer"`
	ModelQuiz       string   `json:"model_quiz"`
	ModelNotes      string   `json:"model_notes"`
	ModelVideos     string   `json:"model_videos"`
	Temperature     *float32 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"max_output_tokens"`
	TimeoutSeconds  int      `json:"timeout_seconds"`
	HTTP2Enabled    bool     `json:"http2_enabled"`
	TransportMode   string   `json:"transport_mode"`
}

// HealthHandler: 상태 확인 핸들러입니다.
type HealthHandler struct {
	cfg          *config.Config
	extractCache health.Pinger
}

// NewHealthHandler: 상태 확인 핸들러를 생성합니다. 캐시가 꺼져 있으면 extractCache 는 nil 입니다.
func NewHealthHandler(cfg *config.Config, extractCache health.Pinger) *HealthHandler {
	return &HealthHandler{cfg: cfg, extractCache: extractCache}
}

// RegisterRoutes: 상태 확인 라우트를 등록합니다.
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		// Liveness: 외부 의존성 상태로 인해 다운 판정되지 않도록 shallow로 유지합니다.
		c.JSON(http.StatusOK, health.Collect(c.Request.Context(), h.cfg, h.extractCache, false))
	})

	router.GET("/health/ready", func(c *gin.Context) {
		payload := health.Collect(c.Request.Context(), h.cfg, h.extractCache, true)
		status := http.StatusOK
		if payload.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, payload)
	})

	// Prometheus 메트릭
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/health/models", h.handleModels)
}

func (h *HealthHandler) handleModels(c *gin.Context) {
	gemini := h.cfg.Gemini
	transportMode := "h1"
	if h.cfg.HTTP.HTTP2Enabled {
		transportMode = "h2c"
	}

	response := ModelConfigResponse{
		ModelDefault:    gemini.DefaultModel,
		ModelSummary:    gemini.ModelForTask(string(llm.TaskSummary)),
		ModelAnswer:     gemini.ModelForTask(string(llm.TaskAnswer)),
		ModelQuiz:       gemini.ModelForTask(string(llm.TaskQuiz)),
		ModelNotes:      gemini.ModelForTask(string(llm.TaskNotes)),
		ModelVideos:     gemini.ModelForTask(string(llm.TaskVideos)),
		MaxOutputTokens: gemini.MaxOutputTokens,
		TimeoutSeconds:  gemini.TimeoutSeconds,
		HTTP2Enabled:    h.cfg.HTTP.HTTP2Enabled,
		TransportMode:   transportMode,
	}
	if temperature, ok := gemini.TemperatureOverride(); ok {
		response.Temperature = &temperature
	}
	c.JSON(http.StatusOK, response)
}
