package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ActionKey 는 프록시 핸들러가 처리한 action 을 남기는 gin 컨텍스트 키다.
const ActionKey = "proxy_action"

// quietPaths 는 성공했을 때 로그를 남기지 않는 운영 경로다.
var quietPaths = map[string]struct{}{
	"/health":        {},
	"/health/ready":  {},
	"/health/models": {},
	"/metrics":       {},
}

// RequestLogger 는 요청마다 http_request 한 줄을 남긴다. 5xx 는 Error, 4xx 는 Warn 이다.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		level := statusLevel(status)
		if _, quiet := quietPaths[path]; quiet && level == slog.LevelInfo && len(c.Errors) == 0 {
			return
		}

		attrs := []slog.Attr{
			slog.String("request_id", GetRequestID(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", c.Writer.Size()),
		}
		if action := c.GetString(ActionKey); action != "" {
			attrs = append(attrs, slog.String("action", action))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}
		logger.LogAttrs(c.Request.Context(), level, "http_request", attrs...)
	}
}

func statusLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
