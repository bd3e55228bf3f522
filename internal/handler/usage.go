package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/httperror"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/usage"
)

const dateLayout = "2006-01-02"

// TokenCounts 는 사용량 응답의 공통 합계다. TotalTokens 는 입력과 출력의 합이다.
type TokenCounts struct {
	InputTokens     int64 `json:"input_tokens"`
	OutputTokens    int64 `json:"output_tokens"`
	TotalTokens     int64 `json:"total_tokens"`
	ReasoningTokens int64 `json:"reasoning_tokens"`
	RequestCount    int64 `json:"request_count"`
}

func (t *TokenCounts) add(other TokenCounts) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.TotalTokens += other.TotalTokens
	t.ReasoningTokens += other.ReasoningTokens
	t.RequestCount += other.RequestCount
}

func dailyCounts(row usage.DailyUsage) TokenCounts {
	return TokenCounts{
		InputTokens:     row.InputTokens,
		OutputTokens:    row.OutputTokens,
		TotalTokens:     row.TotalTokens(),
		ReasoningTokens: row.ReasoningTokens,
		RequestCount:    row.RequestCount,
	}
}

// DailyUsageResponse 는 하루치 사용량이다.
type DailyUsageResponse struct {
	UsageDate string `json:"usage_date"`
	TokenCounts
	Model string `json:"model"`
}

// UsageListResponse 는 최근 N일의 일자별 사용량과 그 합계다.
type UsageListResponse struct {
	Usages []DailyUsageResponse `json:"usages"`
	Totals TokenCounts          `json:"totals"`
	Model  string               `json:"model"`
}

// TaskUsageResponse 는 작업(summary, answer, quiz, notes, videos)별 합계다.
type TaskUsageResponse struct {
	Task string `json:"task"`
	TokenCounts
}

// TotalUsageResponse 는 기간 합계와 작업별 내역이다.
type TotalUsageResponse struct {
	Days int `json:"days"`
	TokenCounts
	ByTask []TaskUsageResponse `json:"by_task"`
	Model  string              `json:"model"`
}

// UsageHandler 는 토큰 사용량 조회 API 다. 사용량 DB 가 꺼져 있으면 모든 경로가 503 이다.
type UsageHandler struct {
	cfg    *config.Config
	repo   usage.Store
	logger *slog.Logger
}

// NewUsageHandler 는 사용량 핸들러를 만든다. repo 는 nil 일 수 있다.
func NewUsageHandler(cfg *config.Config, repo usage.Store, logger *slog.Logger) *UsageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageHandler{cfg: cfg, repo: repo, logger: logger}
}

// RegisterRoutes 는 /api/usage 아래 daily, recent, total 을 등록한다.
func (h *UsageHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/usage", h.requireRepo)
	group.GET("/daily", h.handleDaily)
	group.GET("/recent", h.handleRecent)
	group.GET("/total", h.handleTotal)
}

func (h *UsageHandler) requireRepo(c *gin.Context) {
	if h.repo == nil {
		writeError(c, httperror.NewUsageDisabled())
		return
	}
	c.Next()
}

// handleDaily: ?date=YYYY-MM-DD 를 주면 그날, 아니면 오늘 사용량. 기록이 없으면 0 으로 채운다.
func (h *UsageHandler) handleDaily(c *gin.Context) {
	date, ok := parseDate(c)
	if !ok {
		return
	}
	row, err := h.repo.GetDailyUsage(c.Request.Context(), date)
	if err != nil {
		h.fail(c, "daily", err)
		return
	}

	resp := DailyUsageResponse{Model: h.cfg.Gemini.DefaultModel}
	switch {
	case row != nil:
		resp.UsageDate = row.UsageDate.Format(dateLayout)
		resp.TokenCounts = dailyCounts(*row)
	case !date.IsZero():
		resp.UsageDate = date.Format(dateLayout)
	default:
		resp.UsageDate = time.Now().Format(dateLayout)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UsageHandler) handleRecent(c *gin.Context) {
	days, ok := parseDays(c, 7)
	if !ok {
		return
	}
	rows, err := h.repo.GetRecentUsage(c.Request.Context(), days)
	if err != nil {
		h.fail(c, "recent", err)
		return
	}
	c.JSON(http.StatusOK, h.listResponse(rows))
}

func (h *UsageHandler) handleTotal(c *gin.Context) {
	days, ok := parseDays(c, 30)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	total, err := h.repo.GetTotalUsage(ctx, days)
	if err != nil {
		h.fail(c, "total", err)
		return
	}
	tasks, err := h.repo.GetTaskUsage(ctx, days)
	if err != nil {
		h.fail(c, "total", err)
		return
	}
	c.JSON(http.StatusOK, h.totalResponse(days, total, tasks))
}

func (h *UsageHandler) listResponse(rows []usage.DailyUsage) UsageListResponse {
	resp := UsageListResponse{
		Usages: make([]DailyUsageResponse, 0, len(rows)),
		Model:  h.cfg.Gemini.DefaultModel,
	}
	for _, row := range rows {
		counts := dailyCounts(row)
		resp.Usages = append(resp.Usages, DailyUsageResponse{
			UsageDate:   row.UsageDate.Format(dateLayout),
			TokenCounts: counts,
			Model:       resp.Model,
		})
		resp.Totals.add(counts)
	}
	return resp
}

func (h *UsageHandler) totalResponse(days int, total usage.DailyUsage, tasks []usage.TaskUsage) TotalUsageResponse {
	resp := TotalUsageResponse{
		Days:        days,
		TokenCounts: dailyCounts(total),
		ByTask:      make([]TaskUsageResponse, 0, len(tasks)),
		Model:       h.cfg.Gemini.DefaultModel,
	}
	for _, task := range tasks {
		resp.ByTask = append(resp.ByTask, TaskUsageResponse{
			Task: task.Task,
			TokenCounts: TokenCounts{
				InputTokens:     task.InputTokens,
				OutputTokens:    task.OutputTokens,
				TotalTokens:     task.TotalTokens(),
				ReasoningTokens: task.ReasoningTokens,
				RequestCount:    task.RequestCount,
			},
		})
	}
	return resp
}

func (h *UsageHandler) fail(c *gin.Context, query string, err error) {
	h.logger.Warn("usage_query_failed", "query", query, "err", err)
	writeError(c, err)
}

func parseDays(c *gin.Context, defaultDays int) (int, bool) {
	raw := c.Query("days")
	if raw == "" {
		return defaultDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 || days > 366 {
		writeError(c, httperror.NewInvalidInput("days must be an integer between 1 and 366"))
		return 0, false
	}
	return days, true
}

// parseDate 는 date 쿼리가 없으면 zero time 을 반환한다. 저장소는 zero 를 오늘로 해석한다.
func parseDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return time.Time{}, true
	}
	date, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		writeError(c, httperror.NewInvalidInput("date must be formatted as YYYY-MM-DD"))
		return time.Time{}, false
	}
	return date, true
}
