package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// apiKeyEnvNames 는 GOOGLE_API_KEYS 가 없을 때 차례로 보는 단일 키 변수다.
var apiKeyEnvNames = []string{"API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY"}

// envValue 는 앞뒤 공백을 걷어낸 값과 설정 여부를 돌려준다. 빈 값은 미설정으로 본다.
func envValue(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	return value, value != ""
}

func parseAPIKeys() []string {
	if keys, ok := envValue("GOOGLE_API_KEYS"); ok {
		return splitKeys(keys)
	}
	for _, name := range apiKeyEnvNames {
		if key, ok := envValue(name); ok {
			return []string{key}
		}
	}
	return nil
}

// splitKeys 는 쉼표나 공백으로 구분된 목록을 나눈다.
func splitKeys(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func getEnvString(key string, def string) string {
	if value, ok := envValue(key); ok {
		return value
	}
	return def
}

func getEnvList(key string) []string {
	value, _ := envValue(key)
	if value == "" {
		return nil
	}
	return splitKeys(value)
}

// getEnvInt 는 파싱에 실패하면 기본값을 쓴다.
func getEnvInt(key string, def int) int {
	value, ok := envValue(key)
	if !ok {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvNonNegativeInt(key string, def int) int {
	return max(getEnvInt(key, def), 0)
}

func getEnvFloat(key string, def float64) float64 {
	value, ok := envValue(key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	value, ok := envValue(key)
	if !ok {
		return def
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func maskSecret(value string) string {
	switch n := len(value); {
	case n == 0:
		return "<missing>"
	case n <= 4:
		return strings.Repeat("*", n)
	default:
		return value[:2] + "***" + value[n-2:]
	}
}

// maskURLPassword 는 Valkey/DB URL 의 비밀번호만 가린다.
func maskURLPassword(raw string) string {
	if !strings.Contains(raw, "://") {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.User == nil {
		return raw
	}
	if _, ok := parsed.User.Password(); !ok {
		return raw
	}
	parsed.User = url.UserPassword(parsed.User.Username(), "***")
	return parsed.String()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:        getEnvBool("OTEL_ENABLED", false),
		ServiceName:    getEnvString("OTEL_SERVICE_NAME", "study-proxy"),
		ServiceVersion: getEnvString("OTEL_SERVICE_VERSION", "1.0.0"),
		Environment:    getEnvString("OTEL_ENVIRONMENT", "production"),
		OTLPEndpoint:   getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure:   getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		SampleRate:     getEnvFloat("OTEL_SAMPLE_RATE", 1.0),
	}
}
