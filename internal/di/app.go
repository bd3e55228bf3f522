package di

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/extractcache"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/telemetry"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/usage"
)

// App: 애플리케이션 구성 요소를 묶는다.
type App struct {
	Server        *http.Server
	Logger        *slog.Logger
	Config        *config.Config
	Telemetry     *telemetry.Provider
	ExtractCache  *extractcache.Cache
	UsageStore    usage.Store
	UsageRecorder *usage.Recorder
}

// NewApp: App 인스턴스를 생성합니다.
func NewApp(
	server *http.Server,
	logger *slog.Logger,
	cfg *config.Config,
	telemetryProvider *telemetry.Provider,
	extractCache *extractcache.Cache,
	usageStore usage.Store,
	usageRecorder *usage.Recorder,
) *App {
	return &App{
		Server:        server,
		Logger:        logger,
		Config:        cfg,
		Telemetry:     telemetryProvider,
		ExtractCache:  extractCache,
		UsageStore:    usageStore,
		UsageRecorder: usageRecorder,
	}
}

// Run 은 ctx 가 끝날 때까지 HTTP 서버를 돌리고, 끝나면 shutdownTimeout 안에 graceful shutdown 한다.
// 정상 종료면 nil 이다.
func (a *App) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.Server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-serveErr:
	case <-ctx.Done():
		a.Logger.Info("http_server_shutdown_signal", "cause", context.Cause(ctx))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := a.Server.Shutdown(shutdownCtx); shutdownErr != nil {
			a.Logger.Error("http_server_shutdown_failed", "err", shutdownErr)
			_ = a.Server.Close()
		}
		err = <-serveErr
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close: 앱 리소스를 정리합니다. 사용량 배치를 먼저 flush 한 뒤 DB 를 닫습니다.
func (a *App) Close() {
	if a.UsageRecorder != nil {
		a.UsageRecorder.Close()
	}
	if a.UsageStore != nil {
		a.UsageStore.Close()
	}
	if a.ExtractCache != nil {
		a.ExtractCache.Close()
	}
	if a.Telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Telemetry.Shutdown(ctx); err != nil && a.Logger != nil {
			a.Logger.Warn("telemetry_shutdown_failed", "err", err)
		}
	}
}
