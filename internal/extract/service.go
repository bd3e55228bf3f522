// Package extract 는 업로드된 학습 자료(pdf, docx, pptx, xlsx, txt)에서 평문을 추출한다.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"maps"

	"golang.org/x/sync/singleflight"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/metrics"
)

// Cache 는 추출 결과 저장소다. 구현은 extractcache 패키지에 있다.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, format string, text string) error
}

type extractor func(data []byte) (string, error)

// defaultExtractors 는 읽기 전용이다. 서비스마다 사본을 가진다.
var defaultExtractors = map[Format]extractor{
	FormatPDF:  extractPDF,
	FormatDOCX: extractDOCX,
	FormatPPTX: extractPPTX,
	FormatXLSX: extractXLSX,
	FormatTXT:  extractTXT,
}

// Service 는 형식 판별, 디코딩, 추출, 캐시를 묶는다.
// 같은 내용의 동시 요청은 한 번만 추출한다.
type Service struct {
	cache      Cache
	group      singleflight.Group
	logger     *slog.Logger
	extractors map[Format]extractor
}

// NewService 는 추출 서비스를 만든다. cache 가 nil 이면 캐시 없이 동작한다.
func NewService(cache Cache, logger *slog.Logger) *Service {
	return newService(cache, logger, nil)
}

// newService 는 overrides 의 형식만 바꿔 끼운 서비스를 만든다.
func newService(cache Cache, logger *slog.Logger, overrides map[Format]extractor) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	table := maps.Clone(defaultExtractors)
	maps.Copy(table, overrides)
	return &Service{cache: cache, logger: logger, extractors: table}
}

// Extract 는 base64 로 인코딩된 파일에서 양 끝 공백을 제거한 텍스트를 꺼낸다.
// 지원하지 않는 확장자는 *UnsupportedError 를 반환하며 디코딩 전에 검사한다.
func (s *Service) Extract(ctx context.Context, fileName string, fileData string) (string, error) {
	format, err := Detect(fileName)
	if err != nil {
		return "", err
	}
	data, err := DecodeBase64(fileData)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}

	key := cacheKey(format, data)
	if text, ok := s.lookup(ctx, key); ok {
		return text, nil
	}

	resultCh := s.group.DoChan(key, func() (any, error) {
		raw, err := s.extractors[format](data)
		if err != nil {
			return "", err
		}
		text := trimText(raw)
		s.store(context.WithoutCancel(ctx), key, format, text)
		return text, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			s.logger.DebugContext(ctx, "extract_shared", "format", format)
		}
		return res.Val.(string), nil
	}
}

func (s *Service) lookup(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	text, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.ObserveExtractCache("error")
		s.logger.WarnContext(ctx, "extract_cache_get_failed", "err", err)
		return "", false
	}
	if !ok {
		metrics.ObserveExtractCache("miss")
		return "", false
	}
	metrics.ObserveExtractCache("hit")
	s.logger.DebugContext(ctx, "extract_cache_hit")
	return text, true
}

func (s *Service) store(ctx context.Context, key string, format Format, text string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(format), text); err != nil {
		s.logger.WarnContext(ctx, "extract_cache_set_failed", "err", err)
	}
}

func cacheKey(format Format, data []byte) string {
	h := sha256.New()
	h.Write([]byte(format))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
