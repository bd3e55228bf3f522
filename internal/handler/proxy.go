package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/dispatch"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/httperror"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/middleware"
)

const (
	// ProxyPath 는 action 디스패치 엔드포인트다.
	ProxyPath = "/api/gemini-proxy"
	// LegacyProxyPath 는 이전 배포의 함수 경로다. 같은 핸들러로 연결된다.
	LegacyProxyPath = "/.netlify/functions/gemini-proxy"

	defaultMaxBodyMB = 32
)

// ProxyHandler 는 POST 본문을 디스패처에 넘기고 결과를 그대로 응답한다.
type ProxyHandler struct {
	dispatcher   *dispatch.Dispatcher
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewProxyHandler 는 프록시 핸들러를 생성한다.
func NewProxyHandler(cfg *config.Config, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *ProxyHandler {
	maxBodyMB := defaultMaxBodyMB
	if cfg != nil && cfg.HTTP.MaxBodyMB > 0 {
		maxBodyMB = cfg.HTTP.MaxBodyMB
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProxyHandler{
		dispatcher:   dispatcher,
		maxBodyBytes: int64(maxBodyMB) << 20,
		logger:       logger,
	}
}

// RegisterRoutes 는 프록시 라우트를 등록한다.
// POST 외 메서드는 라우터의 NoMethod 처리로 405 가 된다.
func (h *ProxyHandler) RegisterRoutes(router *gin.Engine) {
	router.POST(ProxyPath, h.handleProxy)
	router.POST(LegacyProxyPath, h.handleProxy)
}

func (h *ProxyHandler) handleProxy(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		h.logger.WarnContext(c.Request.Context(), "proxy_body_read_failed", "err", err)
		writeError(c, httperror.NewBadRequest(err))
		return
	}

	outcome := h.dispatcher.Dispatch(c.Request.Context(), body)
	if outcome.Action != "" {
		c.Set(middleware.ActionKey, outcome.Action)
	}
	c.JSON(outcome.Status, outcome.Body)
}

// handleMethodNotAllowed 는 등록된 경로에 다른 메서드가 왔을 때의 응답이다.
func handleMethodNotAllowed(c *gin.Context) {
	writeError(c, httperror.NewMethodNotAllowed())
}
