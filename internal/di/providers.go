package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/dispatch"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/domain/study"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/extract"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/extractcache"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/gemini"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/handler"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/logging"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/metrics"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/telemetry"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/usage"
)

// ProvideLogger: 로거를 구성해 반환합니다.
// OTel이 활성화된 경우 로그에 trace_id/span_id가 자동으로 추가됩니다.
func ProvideLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewLoggerWithOTel(cfg.Logging, cfg.Telemetry.Enabled)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// ProvideTelemetry: OTLP 트레이서를 초기화합니다. 비활성이면 no-op Provider 입니다.
func ProvideTelemetry(ctx context.Context, cfg *config.Config) (*telemetry.Provider, error) {
	provider, err := telemetry.NewProvider(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	return provider, nil
}

// ProvideUsageStore: 사용량 DB 가 켜져 있을 때만 저장소를 반환합니다.
// 꺼져 있으면 nil 인터페이스입니다.
func ProvideUsageStore(cfg *config.Config, logger *slog.Logger) usage.Store {
	if !cfg.Database.Enabled {
		return nil
	}
	return usage.NewRepository(cfg, logger)
}

// ProvideLLM: API 키가 있으면 Gemini 클라이언트를, 없으면 nil 을 반환합니다.
// 키가 없어도 기동은 계속하며 LLM action 만 503 으로 응답합니다.
func ProvideLLM(cfg *config.Config, metricsStore *metrics.Store, recorder *usage.Recorder, logger *slog.Logger) (gemini.LLM, error) {
	client, err := gemini.NewClient(cfg, metricsStore, recorder)
	if err != nil {
		if errors.Is(err, gemini.ErrMissingAPIKey) {
			logger.Warn("gemini_not_configured", "reason", "no API key in GOOGLE_API_KEYS, API_KEY or GOOGLE_API_KEY")
			return nil, nil
		}
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return client, nil
}

// ProvideExtractCache: 추출 캐시를 연결합니다. 꺼져 있으면 nil 입니다.
func ProvideExtractCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*extractcache.Cache, error) {
	cache, err := extractcache.New(ctx, cfg.Extract, logger)
	if err != nil {
		if errors.Is(err, extractcache.ErrDisabled) {
			return nil, nil
		}
		return nil, fmt.Errorf("extract cache: %w", err)
	}
	return cache, nil
}

// ProvideExtractService: 추출 서비스를 생성합니다.
// typed nil 이 인터페이스로 새지 않도록 캐시가 없으면 nil 을 그대로 넘깁니다.
func ProvideExtractService(cache *extractcache.Cache, logger *slog.Logger) *extract.Service {
	if cache == nil {
		return extract.NewService(nil, logger)
	}
	return extract.NewService(cache, logger)
}

// ProvideDispatcher: 디스패처를 생성합니다.
func ProvideDispatcher(llm gemini.LLM, prompts *study.Prompts, service *extract.Service, logger *slog.Logger) *dispatch.Dispatcher {
	return dispatch.New(llm, prompts, service, logger)
}

// ProvideHealthHandler: 상태 확인 핸들러를 생성합니다.
func ProvideHealthHandler(cfg *config.Config, cache *extractcache.Cache) *handler.HealthHandler {
	if cache == nil {
		return handler.NewHealthHandler(cfg, nil)
	}
	return handler.NewHealthHandler(cfg, cache)
}
