package config

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joho/godotenv"
)

var (
	configOnce  sync.Once
	configValue *Config
)

// Load 는 환경 변수 기반 설정을 로드한다.
func Load() *Config {
	configOnce.Do(func() {
		_ = godotenv.Load()
		configValue = buildConfig()
	})
	return configValue
}

// ProvideConfig 는 설정을 로드하고 검증한다.
func ProvideConfig() (*Config, error) {
	cfg := Load()
	if cfg == nil {
		return nil, errors.New("config not initialized")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 는 설정 유효성을 검사한다.
// API 키 누락은 오류가 아니다. LLM 액션만 503 으로 비활성화된다.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Gemini.DefaultModel == "" {
		return errors.New("gemini default model is empty")
	}
	if c.Gemini.Temperature > 2 {
		return fmt.Errorf("gemini temperature out of range: %.2f", c.Gemini.Temperature)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}
	if c.Extract.CacheEnabled && c.Extract.CacheTTLMinutes <= 0 {
		return fmt.Errorf("invalid extract cache ttl: %d", c.Extract.CacheTTLMinutes)
	}
	if c.Database.Enabled && c.Database.Name == "" {
		return errors.New("usage db enabled but DB_NAME is empty")
	}
	return nil
}

// LogEnvStatus 는 환경 설정 상태를 로그로 남긴다.
func LogEnvStatus(cfg *Config, logger *slog.Logger) {
	if logger == nil || cfg == nil {
		return
	}

	logger.Debug(
		"env_status",
		"env_file", fileExists(".env"),
		"gemini_keys", len(cfg.Gemini.APIKeys),
		"primary_key", maskSecret(cfg.Gemini.PrimaryKey()),
		"model", cfg.Gemini.DefaultModel,
		"timeout", cfg.Gemini.TimeoutSeconds,
		"extract_cache", cfg.Extract.CacheEnabled,
		"extract_cache_url", maskURLPassword(cfg.Extract.CacheURL),
		"usage_db", cfg.Database.Enabled,
		"db_host", cfg.Database.Host,
		"db_name", cfg.Database.Name,
		"cors_origins", len(cfg.HTTP.CORSOrigins),
	)

	if !cfg.Gemini.Configured() {
		logger.Error("env_missing_api_key", "hint", "set API_KEY or GOOGLE_API_KEY; llm actions will return 503")
	}
}

func buildConfig() *Config {
	return &Config{
		Gemini: GeminiConfig{
			APIKeys:         parseAPIKeys(),
			DefaultModel:    getEnvString("GEMINI_MODEL", "gemini-2.5-flash"),
			SummaryModel:    getEnvString("GEMINI_SUMMARY_MODEL", ""),
			AnswerModel:     getEnvString("GEMINI_ANSWER_MODEL", ""),
			QuizModel:       getEnvString("GEMINI_QUIZ_MODEL", ""),
			NotesModel:      getEnvString("GEMINI_NOTES_MODEL", ""),
			VideosModel:     getEnvString("GEMINI_VIDEOS_MODEL", ""),
			Temperature:     getEnvFloat("GEMINI_TEMPERATURE", -1),
			MaxOutputTokens: getEnvNonNegativeInt("GEMINI_MAX_TOKENS", 0),
			TimeoutSeconds:  max(1, getEnvInt("GEMINI_TIMEOUT", 120)),
		},
		Extract: ExtractConfig{
			CacheEnabled:        getEnvBool("EXTRACT_CACHE_ENABLED", false),
			CacheURL:            getEnvString("EXTRACT_CACHE_URL", ""),
			CacheTTLMinutes:     getEnvInt("EXTRACT_CACHE_TTL_MINUTES", 60),
			CacheMaxEntries:     max(1, getEnvNonNegativeInt("EXTRACT_CACHE_MAX_ENTRIES", 256)),
			CacheMaxMB:          getEnvNonNegativeInt("EXTRACT_CACHE_MAX_MB", 64),
			CacheDisableClient:  getEnvBool("EXTRACT_CACHE_DISABLE_CLIENT_CACHE", false),
			ConnectMaxAttempts:  max(1, getEnvNonNegativeInt("EXTRACT_CACHE_CONNECT_MAX_ATTEMPTS", 3)),
			ConnectRetrySeconds: getEnvNonNegativeInt("EXTRACT_CACHE_CONNECT_RETRY_SECONDS", 1),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			LogDir:     getEnvString("LOG_DIR", ""),
			MaxSizeMB:  getEnvInt("LOG_FILE_MAX_SIZE_MB", 1),
			MaxBackups: getEnvInt("LOG_FILE_MAX_BACKUPS", 30),
			MaxAgeDays: getEnvInt("LOG_FILE_MAX_AGE_DAYS", 7),
			Compress:   getEnvBool("LOG_FILE_COMPRESS", true),
		},
		HTTP: HTTPConfig{
			Host:         getEnvString("HTTP_HOST", "127.0.0.1"),
			Port:         getEnvInt("HTTP_PORT", 8888),
			HTTP2Enabled: getEnvBool("HTTP2_ENABLED", true),
			CORSOrigins:  getEnvList("HTTP_CORS_ORIGINS"),
			MaxBodyMB:    max(1, getEnvNonNegativeInt("HTTP_MAX_BODY_MB", 32)),
		},
		Telemetry: readTelemetryConfig(),
		Database: DatabaseConfig{
			Enabled:                              getEnvBool("USAGE_DB_ENABLED", false),
			Host:                                 getEnvString("DB_HOST", "localhost"),
			Port:                                 getEnvInt("DB_PORT", 5432),
			Name:                                 getEnvString("DB_NAME", "study_proxy"),
			User:                                 getEnvString("DB_USER", "study_proxy"),
			Password:                             getEnvString("DB_PASSWORD", ""),
			MinPool:                              getEnvInt("DB_MIN_POOL", 1),
			MaxPool:                              getEnvInt("DB_MAX_POOL", 5),
			ConnMaxLifetimeMinutes:               getEnvNonNegativeInt("DB_CONN_MAX_LIFETIME_MINUTES", 60),
			ConnMaxIdleTimeMinutes:               getEnvNonNegativeInt("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),
			UsageBatchEnabled:                    getEnvBool("DB_USAGE_BATCH_ENABLED", true),
			UsageBatchFlushIntervalSeconds:       max(1, getEnvNonNegativeInt("DB_USAGE_BATCH_FLUSH_INTERVAL_SECONDS", 5)),
			UsageBatchFlushTimeoutSeconds:        max(1, getEnvNonNegativeInt("DB_USAGE_BATCH_FLUSH_TIMEOUT_SECONDS", 5)),
			UsageBatchMaxPendingRequests:         max(1, getEnvNonNegativeInt("DB_USAGE_BATCH_MAX_PENDING_REQUESTS", 50)),
			UsageBatchMaxBackoffSeconds:          getEnvNonNegativeInt("DB_USAGE_BATCH_MAX_BACKOFF_SECONDS", 60),
			UsageBatchErrorLogMaxIntervalSeconds: getEnvNonNegativeInt("DB_USAGE_BATCH_ERROR_LOG_MAX_INTERVAL_SECONDS", 60),
		},
	}
}
