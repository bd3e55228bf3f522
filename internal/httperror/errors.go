package httperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/gemini"
	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/studyapi"
)

// ErrorCode 는 로그/메트릭용 내부 오류 분류다. 응답 본문에는 나가지 않는다.
type ErrorCode string

const (
	ErrorCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrorCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrorCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrorCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrorCodeMissingField       ErrorCode = "MISSING_FIELD"
	ErrorCodeInvalidAction      ErrorCode = "INVALID_ACTION"
	ErrorCodeUnsupportedFile    ErrorCode = "UNSUPPORTED_FILE_TYPE"
	ErrorCodeExtraction         ErrorCode = "EXTRACTION_ERROR"
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorCodeLLM                ErrorCode = "LLM_ERROR"
	ErrorCodeLLMTimeout         ErrorCode = "LLM_TIMEOUT"
	ErrorCodeLLMParsing         ErrorCode = "LLM_PARSING_ERROR"
	ErrorCodePanic              ErrorCode = "PANIC"
	ErrorCodeMethodNotAllowed   ErrorCode = "METHOD_NOT_ALLOWED"
)

// 클라이언트가 그대로 보여주는 고정 문구.
const (
	MessageServiceUnavailable = "AI Service Not Initialized. The API_KEY is likely missing on the server. Please check server logs."
	MessageUnknown            = "An unknown error occurred on the server."
	MessageMethodNotAllowed   = "Method Not Allowed"
)

// Error 는 내부 표준 오류 타입이다.
// Details 가 비어 있으면 응답 본문에서 details 필드가 빠진다.
type Error struct {
	Code    ErrorCode
	Status  int
	Type    string
	Message string
	Details string
}

// Error 는 오류 메시지를 반환한다.
func (e *Error) Error() string {
	return e.Message
}

// Body 는 응답 본문을 만든다.
func (e *Error) Body() studyapi.ErrorBody {
	return studyapi.ErrorBody{Error: e.Message, Details: e.Details}
}

// Response 는 오류를 HTTP 상태와 응답 본문으로 변환한다.
func Response(err error) (int, studyapi.ErrorBody) {
	apiErr := FromError(err)
	if apiErr == nil {
		apiErr = NewInternalError(MessageUnknown)
	}
	return apiErr.Status, apiErr.Body()
}

// FromError 는 오류를 내부 오류 타입으로 변환한다.
// 분류되지 않은 오류는 메시지를 그대로 담은 500 이 된다.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	if errors.Is(err, gemini.ErrMissingAPIKey) {
		return NewServiceUnavailable()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Code:    ErrorCodeLLMTimeout,
			Status:  http.StatusInternalServerError,
			Type:    "LLMTimeoutError",
			Message: err.Error(),
			Details: errorDetails(err.Error()),
		}
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return NewValidationError(err)
	}

	return NewInternalError(err.Error())
}

func errorDetails(message string) string {
	return "Error: " + message
}

// NewInternalError 는 처리 중 실패를 500 으로 만든다. details 는 "Error: <message>" 이다.
func NewInternalError(message string) *Error {
	return &Error{
		Code:    ErrorCodeInternal,
		Status:  http.StatusInternalServerError,
		Type:    "InternalError",
		Message: message,
		Details: errorDetails(message),
	}
}

// NewLLMError 는 모델 호출 실패다.
func NewLLMError(err error) *Error {
	message := err.Error()
	return &Error{
		Code:    ErrorCodeLLM,
		Status:  http.StatusInternalServerError,
		Type:    "LLMError",
		Message: message,
		Details: errorDetails(message),
	}
}

// NewLLMParsingError 는 모델 응답이 기대한 JSON 형태가 아닐 때 쓴다.
func NewLLMParsingError(message string) *Error {
	return &Error{
		Code:    ErrorCodeLLMParsing,
		Status:  http.StatusInternalServerError,
		Type:    "LLMParsingError",
		Message: message,
		Details: errorDetails(message),
	}
}

// NewPanic 은 복구한 panic 을 500 으로 만든다.
func NewPanic(recovered any) *Error {
	return &Error{
		Code:    ErrorCodePanic,
		Status:  http.StatusInternalServerError,
		Type:    "PanicError",
		Message: MessageUnknown,
		Details: fmt.Sprint(recovered),
	}
}

// NewServiceUnavailable 은 모델 자격 증명이 없을 때의 503 이다.
func NewServiceUnavailable() *Error {
	return &Error{
		Code:    ErrorCodeServiceUnavailable,
		Status:  http.StatusServiceUnavailable,
		Type:    "ServiceUnavailableError",
		Message: MessageServiceUnavailable,
	}
}

// NewBadRequest 는 본문 파싱 실패다.
func NewBadRequest(cause error) *Error {
	return &Error{
		Code:    ErrorCodeBadRequest,
		Status:  http.StatusBadRequest,
		Type:    "BadRequestError",
		Message: "Bad Request: " + cause.Error(),
	}
}

// NewInvalidAction 은 알 수 없는 action 태그다.
func NewInvalidAction(action string) *Error {
	return &Error{
		Code:    ErrorCodeInvalidAction,
		Status:  http.StatusBadRequest,
		Type:    "InvalidActionError",
		Message: "Invalid action: " + action,
	}
}

// NewMissingField 는 action 별 필수 필드 누락 문구를 그대로 담는다.
func NewMissingField(message string) *Error {
	return &Error{
		Code:    ErrorCodeMissingField,
		Status:  http.StatusBadRequest,
		Type:    "MissingFieldError",
		Message: message,
	}
}

// NewUnsupportedFileType 은 지원하지 않는 확장자다.
func NewUnsupportedFileType(ext string) *Error {
	return &Error{
		Code:    ErrorCodeUnsupportedFile,
		Status:  http.StatusBadRequest,
		Type:    "UnsupportedFileTypeError",
		Message: "Unsupported file type: " + ext,
	}
}

// NewExtractionFailed 는 디코딩 또는 파서 실패다. details 를 싣지 않는다.
func NewExtractionFailed(cause error) *Error {
	return &Error{
		Code:    ErrorCodeExtraction,
		Status:  http.StatusInternalServerError,
		Type:    "ExtractionError",
		Message: "Failed to extract text from file: " + cause.Error(),
	}
}

// NewInvalidInput 는 조회 API 의 쿼리 파라미터 오류다.
func NewInvalidInput(message string) *Error {
	return &Error{
		Code:    ErrorCodeInvalidInput,
		Status:  http.StatusBadRequest,
		Type:    "InvalidInputError",
		Message: message,
	}
}

// NewMethodNotAllowed 는 프록시 경로에 POST 외 메서드가 왔을 때다.
func NewMethodNotAllowed() *Error {
	return &Error{
		Code:    ErrorCodeMethodNotAllowed,
		Status:  http.StatusMethodNotAllowed,
		Type:    "MethodNotAllowedError",
		Message: MessageMethodNotAllowed,
	}
}

// NewValidationError 는 검증 오류를 생성한다.
func NewValidationError(err error) *Error {
	return &Error{
		Code:    ErrorCodeValidation,
		Status:  http.StatusBadRequest,
		Type:    "ValidationError",
		Message: "Input validation failed",
		Details: validationDetails(err),
	}
}

func validationDetails(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	fields := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields = append(fields, fmt.Sprintf("%s failed on '%s'", fieldErr.Field(), fieldErr.Tag()))
	}
	return strings.Join(fields, "; ")
}

// NewUsageDisabled 는 사용량 DB 가 꺼져 있을 때 조회 API 가 반환한다.
func NewUsageDisabled() *Error {
	return &Error{
		Code:    ErrorCodeServiceUnavailable,
		Status:  http.StatusServiceUnavailable,
		Type:    "UsageDisabledError",
		Message: "usage accounting is disabled",
	}
}
