package di

import (
	"context"
	"fmt"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/domain/study"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/handler"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/metrics"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/server"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/usage"
)

// InitializeApp 은 애플리케이션 의존성을 초기화하고 App 인스턴스를 반환한다.
// wire.go 의 provider 집합과 같은 순서를 따른다.
func InitializeApp(ctx context.Context) (*App, error) {
	cfg, err := config.ProvideConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	telemetryProvider, err := ProvideTelemetry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	metricsStore := metrics.NewStore()
	usageStore := ProvideUsageStore(cfg, logger)
	usageRecorder := usage.NewRecorder(cfg, usageStore, logger)

	llmClient, err := ProvideLLM(cfg, metricsStore, usageRecorder, logger)
	if err != nil {
		return nil, err
	}

	prompts, err := study.NewPrompts()
	if err != nil {
		return nil, fmt.Errorf("study prompts: %w", err)
	}

	extractCache, err := ProvideExtractCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	extractService := ProvideExtractService(extractCache, logger)
	dispatcher := ProvideDispatcher(llmClient, prompts, extractService, logger)

	proxyHandler := handler.NewProxyHandler(cfg, dispatcher, logger)
	healthHandler := ProvideHealthHandler(cfg, extractCache)
	llmHandler := handler.NewLLMHandler(cfg, metricsStore)
	usageHandler := handler.NewUsageHandler(cfg, usageStore, logger)

	router := handler.NewRouter(cfg, logger, proxyHandler, healthHandler, llmHandler, usageHandler)
	httpServer := server.NewHTTPServer(cfg, router)

	return NewApp(httpServer, logger, cfg, telemetryProvider, extractCache, usageStore, usageRecorder), nil
}
