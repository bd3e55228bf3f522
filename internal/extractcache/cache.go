package extractcache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/valkey-io/valkey-go"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/cache"
	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
)

const keyPrefix = "extract:v1:"

// Backend 는 캐시 저장 위치다.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendValkey Backend = "valkey"
)

// ErrDisabled 는 캐시가 꺼져 있을 때 New 가 반환한다.
var ErrDisabled = errors.New("extract cache disabled")

// Cache 는 파일 내용 해시를 키로 추출 텍스트를 보관한다.
// 값은 zstd 로 압축한 JSON 이며 TTL 이 지나면 사라진다.
type Cache struct {
	backend Backend
	ttl     time.Duration
	client  valkey.Client
	memory  *cache.BlobLRU
	logger  *slog.Logger
}

// New 는 설정에 맞는 캐시를 만든다. URL 이 비어 있으면 메모리 LRU 를 쓴다.
// Valkey 연결은 ConnectMaxAttempts 회까지 지수 백오프로 재시도한다.
func New(ctx context.Context, cfg config.ExtractConfig, logger *slog.Logger) (*Cache, error) {
	if !cfg.CacheEnabled {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = slog.Default()
	}
	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		return nil, errors.New("extract cache ttl must be positive")
	}

	if cfg.CacheURL == "" {
		logger.Info("extract_cache_ready", "backend", BackendMemory, "max_entries", cfg.CacheMaxEntries, "max_mb", cfg.CacheMaxMB, "ttl", ttl)
		return &Cache{
			backend: BackendMemory,
			ttl:     ttl,
			memory:  cache.NewBlobLRU(cfg.CacheMaxEntries, cfg.CacheMaxMB<<20, ttl),
			logger:  logger,
		}, nil
	}

	conn, err := parseURL(cfg.CacheURL)
	if err != nil {
		return nil, fmt.Errorf("parse extract cache url: %w", err)
	}
	option := valkey.ClientOption{
		Username:     conn.username,
		Password:     conn.password,
		InitAddress:  []string{conn.addr},
		SelectDB:     conn.selectDB,
		DisableCache: cfg.CacheDisableClient,
	}
	if conn.useTLS {
		host, _, splitErr := net.SplitHostPort(conn.addr)
		if splitErr != nil {
			return nil, fmt.Errorf("parse extract cache addr: %w", splitErr)
		}
		option.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}

	client, err := connect(ctx, option, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("extract_cache_ready", "backend", BackendValkey, "addr", conn.addr, "db", conn.selectDB, "ttl", ttl)
	return &Cache{backend: BackendValkey, ttl: ttl, client: client, logger: logger}, nil
}

func connect(ctx context.Context, option valkey.ClientOption, cfg config.ExtractConfig, logger *slog.Logger) (valkey.Client, error) {
	retry := backoff.NewExponentialBackOff()
	if cfg.ConnectRetrySeconds > 0 {
		retry.InitialInterval = time.Duration(cfg.ConnectRetrySeconds) * time.Second
	}
	retry.MaxInterval = 30 * time.Second
	retry.RandomizationFactor = 0.2
	retry.MaxElapsedTime = 0

	attempts := max(cfg.ConnectMaxAttempts, 1)
	policy := backoff.WithContext(backoff.WithMaxRetries(retry, uint64(attempts-1)), ctx)

	var client valkey.Client
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		c, err := valkey.NewClient(option)
		if err != nil {
			return err
		}
		client = c
		return nil
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("extract_cache_connect_retry", "attempt", attempt, "max_attempts", attempts, "retry_in", wait.Round(time.Millisecond), "err", err)
	})
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}
	return client, nil
}

// Backend 는 사용 중인 저장 위치를 반환한다.
func (c *Cache) Backend() Backend {
	return c.backend
}

// Get 은 키에 해당하는 텍스트를 돌려준다. 없으면 ok=false 다.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	var raw []byte
	switch c.backend {
	case BackendMemory:
		value, ok := c.memory.Get(key)
		if !ok {
			return "", false, nil
		}
		raw = value
	default:
		value, err := c.client.Do(ctx, c.client.B().Get().Key(keyPrefix+key).Build()).AsBytes()
		if err != nil {
			if valkey.IsValkeyNil(err) {
				return "", false, nil
			}
			return "", false, fmt.Errorf("get extract cache: %w", err)
		}
		raw = value
	}

	decoded, err := decodeEntry(raw)
	if err != nil {
		return "", false, err
	}
	return decoded.Text, true, nil
}

// Set 은 추출 결과를 TTL 과 함께 저장한다.
func (c *Cache) Set(ctx context.Context, key string, format string, text string) error {
	raw, err := encodeEntry(entry{Format: format, Text: text})
	if err != nil {
		return err
	}
	if c.backend == BackendMemory {
		if !c.memory.Set(key, raw) {
			c.logger.Debug("extract_cache_skip_oversized", "bytes", len(raw))
		}
		return nil
	}

	cmd := c.client.B().Set().Key(keyPrefix + key).Value(valkey.BinaryString(raw)).Ex(c.ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set extract cache: %w", err)
	}
	return nil
}

// Ping 은 헬스체크용 연결 확인이다. 메모리 캐시는 항상 성공한다.
func (c *Cache) Ping(ctx context.Context) error {
	if c.backend == BackendMemory {
		return nil
	}
	if err := c.client.Do(ctx, c.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping valkey: %w", err)
	}
	return nil
}

// Close 는 Valkey 연결을 닫는다.
func (c *Cache) Close() {
	if c == nil || c.client == nil {
		return
	}
	c.client.Close()
}
