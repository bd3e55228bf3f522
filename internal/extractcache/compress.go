package extractcache

import (
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

// 인코더/디코더는 EncodeAll/DecodeAll 에 한해 동시 사용이 안전하다.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	initOnce    sync.Once
	errInit     error
)

func initZstd() error {
	initOnce.Do(func() {
		var err error
		zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			errInit = fmt.Errorf("create zstd encoder: %w", err)
			return
		}
		zstdDecoder, err = zstd.NewReader(nil)
		if err != nil {
			errInit = fmt.Errorf("create zstd decoder: %w", err)
		}
	})
	return errInit
}

// entry 는 캐시에 저장되는 추출 결과다.
type entry struct {
	Format string `json:"f"`
	Text   string `json:"t"`
}

func encodeEntry(e entry) ([]byte, error) {
	if err := initZstd(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	return zstdEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

func decodeEntry(src []byte) (entry, error) {
	if err := initZstd(); err != nil {
		return entry{}, err
	}
	raw, err := zstdDecoder.DecodeAll(src, nil)
	if err != nil {
		return entry{}, fmt.Errorf("zstd decompress: %w", err)
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return entry{}, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return e, nil
}
