// Package llmjson 은 모델이 출력한 텍스트에서 JSON 값을 꺼낸다.
package llmjson

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// ErrMalformed 는 펜스 제거 후에도 유효한 JSON 이 아닐 때 반환된다.
var ErrMalformed = errors.New("malformed json output")

// 전체 텍스트가 ```lang ... ``` 하나로 감싸진 경우만 벗긴다.
var fencePattern = regexp.MustCompile("(?s)^```(\\w*)?\\s*\\n?(.*?)\\n?\\s*```$")

// StripFence: 코드 펜스를 제거한 본문을 반환합니다. 펜스가 없으면 입력을 trim 해서 그대로 돌려줍니다.
func StripFence(raw string) string {
	text := strings.TrimSpace(raw)
	match := fencePattern.FindStringSubmatch(text)
	if len(match) == 3 && match[2] != "" {
		return strings.TrimSpace(match[2])
	}
	return text
}

// Extract: 펜스를 벗긴 뒤 엄격하게 JSON 디코딩합니다.
// 실패 시 ErrMalformed 로 감싼 오류를 반환하며 복구를 시도하지 않습니다.
func Extract(raw string, out any) error {
	payload := StripFence(raw)
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}
