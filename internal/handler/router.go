package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/httperror"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/middleware"
)

// NewRouter 는 HTTP 라우터를 구성한다.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	proxyHandler *ProxyHandler,
	healthHandler *HealthHandler,
	llmHandler *LLMHandler,
	usageHandler *UsageHandler,
) *gin.Engine {
	setGinMode(cfg.Logging.Level)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoMethod(handleMethodNotAllowed)

	// OTel 미들웨어는 가장 앞에 둔다.
	if cfg.Telemetry.Enabled {
		router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		gin.CustomRecovery(recoverPanic(logger)),
	)
	if len(cfg.HTTP.CORSOrigins) > 0 {
		router.Use(cors.New(newCORSConfig(cfg.HTTP.CORSOrigins)))
	}
	router.Use(newGzipMiddleware())

	healthHandler.RegisterRoutes(router)
	proxyHandler.RegisterRoutes(router)
	llmHandler.RegisterRoutes(router)
	usageHandler.RegisterRoutes(router)

	return router
}

func newCORSConfig(origins []string) cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = origins
	corsConfig.AllowMethods = []string{http.MethodPost, http.MethodGet, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	return corsConfig
}

// newGzipMiddleware 는 헬스체크와 메트릭 응답은 압축하지 않는다.
func newGzipMiddleware() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression, gzip.WithCustomShouldCompressFn(func(c *gin.Context) bool {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			return false
		}
		path := c.Request.URL.Path
		return !strings.HasPrefix(path, "/health") && path != "/metrics"
	}))
}

// recoverPanic 은 디스패처 밖에서 난 panic 도 같은 본문 형식으로 응답한다.
func recoverPanic(logger *slog.Logger) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "http_panic", "path", c.Request.URL.Path, "panic", recovered)
		}
		writeError(c, httperror.NewPanic(recovered))
	}
}

func setGinMode(level string) {
	if strings.EqualFold(strings.TrimSpace(level), "debug") {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}
