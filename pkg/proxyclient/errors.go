package proxyclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/studyapi"
)

// 클라이언트가 만드는 고정 오류 문구.
const (
	MessageNetwork       = "Network error or proxy not found. Ensure the proxy endpoint is correct and the server is running."
	MessageInvalidQuiz   = "Proxy returned an invalid quiz format."
	MessageInvalidVideos = "Proxy returned an invalid format for video suggestions."
)

// Error 는 프록시 호출 실패다. 모든 메서드는 실패 시 이 타입을 반환한다.
// Status 는 HTTP 응답을 받지 못했으면 0 이다.
type Error struct {
	Action  studyapi.Action
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// statusError 는 2xx 가 아닌 응답 본문에서 사용자에게 보일 문구를 고른다.
func statusError(action studyapi.Action, status int, body []byte) *Error {
	return &Error{Action: action, Status: status, Message: statusMessage(status, body)}
}

func statusMessage(status int, body []byte) string {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" {
			return text
		}
		return fmt.Sprintf("HTTP error! status: %d", status)
	}
	if obj, ok := parsed.(map[string]any); ok {
		if msg, ok := obj["error"].(string); ok && msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("Proxy request failed with status %d", status)
}

// IsStatus 는 err 가 지정한 HTTP 상태의 프록시 오류인지 확인한다.
func IsStatus(err error, status int) bool {
	var proxyErr *Error
	if !errors.As(err, &proxyErr) {
		return false
	}
	return proxyErr.Status == status
}

// IsUnavailable 은 서버에 모델 키가 없어서 실패했는지 확인한다.
func IsUnavailable(err error) bool {
	return IsStatus(err, http.StatusServiceUnavailable)
}
