// Command server 는 학습 도우미 action 을 Gemini 로 중계하는 HTTP 프록시다.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/di"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "study-proxy:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app, err := di.InitializeApp(ctx)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer app.Close()

	cfg := app.Config
	config.LogEnvStatus(cfg, app.Logger)
	app.Logger.Info("http_server_start",
		"addr", fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		"h2c", cfg.HTTP.HTTP2Enabled,
		"llm_configured", cfg.Gemini.Configured(),
		"extract_cache", app.ExtractCache != nil,
		"usage_db", app.UsageStore != nil,
	)

	if err := app.Run(ctx, shutdownTimeout); err != nil {
		app.Logger.Error("http_server_failed", "err", err)
		return err
	}
	app.Logger.Info("http_server_stopped")
	return nil
}
