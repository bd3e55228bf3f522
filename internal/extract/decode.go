package extract

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrEmptyData 는 base64 본문이 비어 있을 때 반환된다.
var ErrEmptyData = errors.New("file data is empty")

// DecodeBase64 는 업로드 본문을 디코딩한다.
// data:<mime>;base64, 접두사와 패딩 없는 입력, 공백/개행이 섞인 입력을 허용한다.
func DecodeBase64(raw string) ([]byte, error) {
	payload := strings.TrimSpace(raw)
	if strings.HasPrefix(payload, "data:") {
		if comma := strings.IndexByte(payload, ','); comma >= 0 {
			payload = payload[comma+1:]
		}
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return nil, ErrEmptyData
	}

	if strings.HasSuffix(payload, "=") || len(payload)%4 == 0 {
		return base64.StdEncoding.DecodeString(payload)
	}
	return base64.RawStdEncoding.DecodeString(payload)
}
