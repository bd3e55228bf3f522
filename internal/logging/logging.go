// Package logging 은 tint 콘솔 출력과 lumberjack 파일 회전을 묶은 slog 로거를 만든다.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
)

const logFileName = "study-proxy.log"

// NewLogger 는 trace 필드 없이 로거를 만든다.
func NewLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	return NewLoggerWithOTel(cfg, false)
}

// NewLoggerWithOTel 은 LogDir 이 있으면 stdout 과 회전 파일에 함께 쓴다.
// withTrace 면 레코드에 trace_id/span_id 를 붙인다. 만든 로거는 slog 기본값으로도 설정된다.
func NewLoggerWithOTel(cfg config.LoggingConfig, withTrace bool) (*slog.Logger, error) {
	sink, err := openSink(cfg)
	if err != nil {
		return nil, err
	}

	var writer io.Writer = os.Stdout
	if sink != nil {
		writer = io.MultiWriter(os.Stdout, sink)
	}

	var handler slog.Handler = tint.NewHandler(writer, &tint.Options{
		Level:      parseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		AddSource:  true,
		// 파일에 ANSI 코드가 섞이지 않게 한다.
		NoColor: sink != nil,
	})
	if withTrace {
		handler = newTraceHandler(handler)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	if sink != nil {
		logger.Info("file_logging_enabled", "path", sink.Filename, "max_mb", sink.MaxSize, "backups", sink.MaxBackups)
	}
	return logger, nil
}

// openSink 는 LogDir 이 비어 있으면 nil 을 돌려준다.
func openSink(cfg config.LoggingConfig) (*lumberjack.Logger, error) {
	dir := strings.TrimSpace(cfg.LogDir)
	if dir == "" {
		return nil, nil
	}
	if cfg.MaxSizeMB <= 0 || cfg.MaxBackups <= 0 || cfg.MaxAgeDays <= 0 {
		return nil, fmt.Errorf("invalid log rotation: size=%dMB backups=%d age=%dd", cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
