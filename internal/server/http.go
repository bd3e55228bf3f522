package server

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
)

// writeSlack 는 모델 호출 제한 시간 위에 더하는 응답 쓰기 여유다.
const writeSlack = 15 * time.Second

// NewHTTPServer 는 HTTP 서버를 생성한다.
// 쓰기 제한 시간은 Gemini 호출 제한 시간보다 길게 잡는다.
func NewHTTPServer(cfg *config.Config, router *gin.Engine) *http.Server {
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if cfg.Gemini.TimeoutSeconds > 0 {
		server.WriteTimeout = time.Duration(cfg.Gemini.TimeoutSeconds)*time.Second + writeSlack
	}

	if cfg.HTTP.HTTP2Enabled {
		server.Handler = h2c.NewHandler(router, &http2.Server{})
	}

	return server
}
