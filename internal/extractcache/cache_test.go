package extractcache

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
)

func newValkeyCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	c, err := New(context.Background(), config.ExtractConfig{
		CacheEnabled:       true,
		CacheURL:           "redis://" + mini.Addr() + "/0",
		CacheTTLMinutes:    5,
		CacheDisableClient: true,
		ConnectMaxAttempts: 1,
	}, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	t.Cleanup(c.Close)
	return c, mini
}

func TestNewDisabled(t *testing.T) {
	if _, err := New(context.Background(), config.ExtractConfig{}, nil); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if _, err := New(context.Background(), config.ExtractConfig{CacheEnabled: true}, nil); err == nil {
		t.Fatalf("expected ttl error")
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c, err := New(context.Background(), config.ExtractConfig{CacheEnabled: true, CacheTTLMinutes: 1, CacheMaxEntries: 2}, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if c.Backend() != BackendMemory {
		t.Fatalf("expected memory backend, got %s", c.Backend())
	}

	ctx := context.Background()
	if _, ok, err := c.Get(ctx, "k1"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, "k1", "pdf", "hello world"); err != nil {
		t.Fatalf("set: %v", err)
	}
	text, ok, err := c.Get(ctx, "k1")
	if err != nil || !ok || text != "hello world" {
		t.Fatalf("unexpected get: %q %v %v", text, ok, err)
	}
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("memory ping: %v", err)
	}
}

func TestValkeyCacheRoundTrip(t *testing.T) {
	c, mini := newValkeyCache(t)
	ctx := context.Background()

	text := strings.Repeat("Mitochondria is the powerhouse of the cell. ", 50)
	if err := c.Set(ctx, "abc", "docx", text); err != nil {
		t.Fatalf("set: %v", err)
	}

	stored, err := mini.Get(keyPrefix + "abc")
	if err != nil {
		t.Fatalf("expected stored key: %v", err)
	}
	if len(stored) >= len(text) {
		t.Fatalf("expected compressed value, got %d bytes for %d bytes of text", len(stored), len(text))
	}
	if ttl := mini.TTL(keyPrefix + "abc"); ttl != 5*time.Minute {
		t.Fatalf("unexpected ttl: %v", ttl)
	}

	got, ok, err := c.Get(ctx, "abc")
	if err != nil || !ok || got != text {
		t.Fatalf("unexpected get: ok=%v err=%v", ok, err)
	}
	if _, ok, err := c.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	mini.FastForward(6 * time.Minute)
	if _, ok, _ := c.Get(ctx, "abc"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestValkeyCacheCorruptEntry(t *testing.T) {
	c, mini := newValkeyCache(t)
	if err := mini.Set(keyPrefix+"bad", "not zstd"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := c.Get(context.Background(), "bad"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestConnectGivesUpAfterAttempts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := New(ctx, config.ExtractConfig{
		CacheEnabled:        true,
		CacheURL:            "redis://127.0.0.1:1",
		CacheTTLMinutes:     1,
		ConnectMaxAttempts:  2,
		ConnectRetrySeconds: 0,
	}, nil)
	if err == nil {
		t.Fatalf("expected connect error")
	}
}

func TestEntryCodec(t *testing.T) {
	raw, err := encodeEntry(entry{Format: "txt", Text: "안녕하세요"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if bytes.Contains(raw, []byte("안녕하세요")) {
		t.Fatalf("expected compressed payload")
	}
	decoded, err := decodeEntry(raw)
	if err != nil || decoded.Text != "안녕하세요" || decoded.Format != "txt" {
		t.Fatalf("unexpected decode: %+v %v", decoded, err)
	}
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		raw     string
		addr    string
		db      int
		tls     bool
		user    string
		wantErr bool
	}{
		{raw: "redis://cache:6380/2", addr: "cache:6380", db: 2},
		{raw: "rediss://user:pw@cache", addr: "cache:6379", tls: true, user: "user"},
		{raw: "valkey://cache", addr: "cache:6379"},
		{raw: "cache", addr: "cache:6379"},
		{raw: "cache:7000", addr: "cache:7000"},
		{raw: "http://cache", wantErr: true},
		{raw: "redis://cache/x", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tc := range tests {
		info, err := parseURL(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseURL(%q) expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseURL(%q) unexpected error: %v", tc.raw, err)
			continue
		}
		if info.addr != tc.addr || info.selectDB != tc.db || info.useTLS != tc.tls || info.username != tc.user {
			t.Errorf("parseURL(%q) = %+v", tc.raw, info)
		}
	}
}
