package dispatch

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"

	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/studyapi"
)

var (
	errDataNotObject = errors.New("data must be a JSON object")
	errNotArray      = errors.New("expected a JSON array")
)

// envelope 는 파싱한 요청 본문이다. Data 는 항상 nil 이 아닌 맵이다.
type envelope struct {
	Action string
	Data   map[string]any
}

// parseEnvelope 는 본문을 {action, data} 로 읽는다.
// 빈 본문은 {} 로, 없거나 null 인 data 는 빈 객체로 취급한다.
func parseEnvelope(body []byte) (envelope, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	var raw struct {
		Action any `json:"action"`
		Data   any `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return envelope{}, err
	}

	env := envelope{Data: map[string]any{}}
	switch action := raw.Action.(type) {
	case nil:
	case string:
		env.Action = action
	default:
		env.Action = fmt.Sprint(action)
	}

	switch data := raw.Data.(type) {
	case nil:
	case map[string]any:
		env.Data = data
	default:
		return envelope{}, errDataNotObject
	}
	return env, nil
}

// rejectNonArray 는 슬라이스 필드에 배열이 아닌 값이 들어오면 거부한다.
// WeaklyTypedInput 은 객체나 스칼라를 한 원소짜리 슬라이스로 감싸기 때문이다.
func rejectNonArray(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Slice {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Slice, reflect.Array:
		return data, nil
	default:
		return nil, fmt.Errorf("%w: got %s", errNotArray, from.Kind())
	}
}

func decoderConfig(result any) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		Result:           result,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       rejectNonArray,
	}
}

// decodePayload 는 data 객체를 액션별 페이로드로 옮기고 필수 필드를 검사한다.
// 숫자 같은 스칼라는 문자열로 약하게 변환된다.
func decodePayload(validate *validator.Validate, data map[string]any, payload studyapi.Payload) error {
	decoder, err := mapstructure.NewDecoder(decoderConfig(payload))
	if err != nil {
		return fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}
