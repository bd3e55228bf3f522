package config

import (
	"net"
	"net/url"
	"strconv"
)

// GeminiConfig: Gemini 모델 설정입니다.
type GeminiConfig struct {
	APIKeys         []string
	DefaultModel    string
	SummaryModel    string
	AnswerModel     string
	QuizModel       string
	NotesModel      string
	VideosModel     string
	Temperature     float64 // 음수면 모델 기본값 사용
	MaxOutputTokens int     // 0 이면 모델 기본값 사용
	TimeoutSeconds  int
}

// PrimaryKey: 기본 API 키를 반환합니다.
func (g GeminiConfig) PrimaryKey() string {
	if len(g.APIKeys) == 0 {
		return ""
	}
	return g.APIKeys[0]
}

// Configured: API 키가 하나라도 있는지 반환합니다.
func (g GeminiConfig) Configured() bool {
	return len(g.APIKeys) > 0
}

// ModelForTask: 작업 유형별 모델을 반환합니다.
func (g GeminiConfig) ModelForTask(task string) string {
	var override string
	switch task {
	case "summary":
		override = g.SummaryModel
	case "answer":
		override = g.AnswerModel
	case "quiz":
		override = g.QuizModel
	case "notes":
		override = g.NotesModel
	case "videos":
		override = g.VideosModel
	}
	if override != "" {
		return override
	}
	return g.DefaultModel
}

// TemperatureOverride: 설정된 temperature 와 설정 여부를 반환합니다.
func (g GeminiConfig) TemperatureOverride() (float32, bool) {
	if g.Temperature < 0 {
		return 0, false
	}
	return float32(g.Temperature), true
}

// ExtractConfig: 파일 텍스트 추출과 추출 결과 캐시 설정입니다.
type ExtractConfig struct {
	CacheEnabled        bool
	CacheURL            string // 비어 있으면 메모리 캐시
	CacheTTLMinutes     int
	CacheMaxEntries     int
	CacheMaxMB          int // 메모리 캐시 전용, 0 이면 제한 없음
	CacheDisableClient  bool
	ConnectMaxAttempts  int
	ConnectRetrySeconds int
}

// LoggingConfig: 로깅 설정입니다.
type LoggingConfig struct {
	Level      string
	LogDir     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// HTTPConfig: HTTP 서버 설정입니다.
type HTTPConfig struct {
	Host         string
	Port         int
	HTTP2Enabled bool
	CORSOrigins  []string
	MaxBodyMB    int
}

// TelemetryConfig: OpenTelemetry 설정입니다.
type TelemetryConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPInsecure   bool
	SampleRate     float64
}

// DatabaseConfig: 토큰 사용량 DB 연결 및 저장 설정입니다.
type DatabaseConfig struct {
	Enabled                              bool
	Host                                 string
	Port                                 int
	Name                                 string
	User                                 string
	Password                             string
	MinPool                              int
	MaxPool                              int
	ConnMaxLifetimeMinutes               int
	ConnMaxIdleTimeMinutes               int
	UsageBatchEnabled                    bool
	UsageBatchFlushIntervalSeconds       int
	UsageBatchFlushTimeoutSeconds        int
	UsageBatchMaxPendingRequests         int
	UsageBatchMaxBackoffSeconds          int
	UsageBatchErrorLogMaxIntervalSeconds int
}

// DSN: DB 접속 문자열을 반환합니다.
func (d DatabaseConfig) DSN() string {
	host := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	u := &url.URL{
		Scheme: "postgresql",
		Host:   host,
		Path:   "/" + d.Name,
	}
	if d.Password == "" {
		u.User = url.User(d.User)
	} else {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u.String()
}

// Config: 애플리케이션 전체 설정입니다.
type Config struct {
	Gemini    GeminiConfig
	Extract   ExtractConfig
	Logging   LoggingConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
	Database  DatabaseConfig
}
