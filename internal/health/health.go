package health

import (
	"context"
	"time"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
)

var startTime = time.Now()

// Pinger 는 연결 확인이 가능한 의존성이다.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Component 는 상태 구성 요소다.
type Component struct {
	Status string         `json:"status"`
	Detail map[string]any `json:"detail"`
}

// Response 는 상태 응답 본문이다.
type Response struct {
	Status     string               `json:"status"`
	Components map[string]Component `json:"components"`
}

// Collect 는 헬스 상태를 수집한다.
// extractCache 가 nil 이면 캐시가 꺼져 있는 것으로 본다. 연결 확인은 deepChecks 일 때만 한다.
func Collect(ctx context.Context, cfg *config.Config, extractCache Pinger, deepChecks bool) Response {
	components := map[string]Component{
		"app":           buildAppStatus(),
		"gemini":        buildGeminiStatus(cfg),
		"extract_cache": buildExtractCacheStatus(ctx, cfg, extractCache, deepChecks),
	}

	overall := "ok"
	for _, component := range components {
		if component.Status != "ok" {
			overall = "degraded"
			break
		}
	}

	return Response{
		Status:     overall,
		Components: components,
	}
}

func buildAppStatus() Component {
	return Component{
		Status: "ok",
		Detail: map[string]any{
			"uptime_seconds": int(time.Since(startTime).Seconds()),
		},
	}
}

// buildGeminiStatus 는 키가 없으면 degraded 다. 추출 action 은 계속 동작한다.
func buildGeminiStatus(cfg *config.Config) Component {
	apiKeyPresent := false
	defaultModel := ""
	timeoutSeconds := 0
	keyCount := 0

	if cfg != nil {
		apiKeyPresent = cfg.Gemini.Configured()
		defaultModel = cfg.Gemini.DefaultModel
		timeoutSeconds = cfg.Gemini.TimeoutSeconds
		keyCount = len(cfg.Gemini.APIKeys)
	}
	status := "ok"
	if !apiKeyPresent {
		status = "degraded"
	}

	return Component{
		Status: status,
		Detail: map[string]any{
			"api_key_present": apiKeyPresent,
			"api_key_count":   keyCount,
			"default_model":   defaultModel,
			"timeout_seconds": timeoutSeconds,
		},
	}
}

func buildExtractCacheStatus(ctx context.Context, cfg *config.Config, extractCache Pinger, deepChecks bool) Component {
	enabled := cfg != nil && cfg.Extract.CacheEnabled
	backend := "none"
	if enabled {
		backend = "memory"
		if cfg.Extract.CacheURL != "" {
			backend = "valkey"
		}
	}

	detail := map[string]any{
		"enabled":      enabled,
		"backend":      backend,
		"deep_checked": deepChecks,
	}
	if enabled {
		detail["ttl_minutes"] = cfg.Extract.CacheTTLMinutes
	}

	status := "ok"
	switch {
	case !enabled:
	case extractCache == nil:
		status = "degraded"
		detail["error"] = "cache not initialized"
	case deepChecks:
		if ctx == nil {
			ctx = context.Background()
		}
		checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := extractCache.Ping(checkCtx); err != nil {
			status = "degraded"
			detail["error"] = err.Error()
		}
		detail["connected"] = status == "ok"
	}

	return Component{Status: status, Detail: detail}
}
