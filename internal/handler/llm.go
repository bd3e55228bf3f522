package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/llm"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/metrics"
)

// UsageResponse 는 사용량 응답이다.
type UsageResponse struct {
	InputTokens     int64  `json:"input_tokens"`
	OutputTokens    int64  `json:"output_tokens"`
	TotalTokens     int64  `json:"total_tokens"`
	ReasoningTokens int64  `json:"reasoning_tokens"`
	Model           string `json:"model"`
}

// LLMMetricsResponse 는 프로세스 누적 호출 통계다.
type LLMMetricsResponse struct {
	Totals map[string]float64              `json:"totals"`
	ByTask map[llm.Task]metrics.TaskCounts `json:"by_task"`
	Usage  UsageResponse                   `json:"usage"`
}

// LLMHandler 는 모델 호출 통계 API 핸들러다.
type LLMHandler struct {
	cfg     *config.Config
	metrics *metrics.Store
}

// NewLLMHandler 는 LLM 통계 핸들러를 생성한다.
func NewLLMHandler(cfg *config.Config, metricsStore *metrics.Store) *LLMHandler {
	return &LLMHandler{cfg: cfg, metrics: metricsStore}
}

// RegisterRoutes 는 LLM 라우트를 등록한다.
func (h *LLMHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/llm")
	group.GET("/metrics", h.handleMetrics)
}

func (h *LLMHandler) handleMetrics(c *gin.Context) {
	totals := h.metrics.UsageTotals()
	c.JSON(http.StatusOK, LLMMetricsResponse{
		Totals: h.metrics.Snapshot(),
		ByTask: h.metrics.ByTask(),
		Usage: UsageResponse{
			InputTokens:     int64(totals.InputTokens),
			OutputTokens:    int64(totals.OutputTokens),
			TotalTokens:     int64(totals.TotalTokens),
			ReasoningTokens: int64(totals.ReasoningTokens),
			Model:           h.cfg.Gemini.DefaultModel,
		},
	})
}
