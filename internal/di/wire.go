//go:build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/domain/study"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/handler"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/metrics"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/server"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/usage"
)

func InitializeApp(ctx context.Context) (*App, error) {
	wire.Build(
		config.ProvideConfig,
		ProvideLogger,
		ProvideTelemetry,
		metrics.NewStore,
		ProvideUsageStore,
		usage.NewRecorder,
		ProvideLLM,
		study.NewPrompts,
		ProvideExtractCache,
		ProvideExtractService,
		ProvideDispatcher,
		handler.NewProxyHandler,
		ProvideHealthHandler,
		handler.NewLLMHandler,
		handler.NewUsageHandler,
		handler.NewRouter,
		server.NewHTTPServer,
		NewApp,
	)
	return nil, nil
}
