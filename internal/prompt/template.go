package prompt

import (
	"fmt"
	"strings"
)

type segment struct {
	text        string
	placeholder bool
}

// Template 은 {name} 자리표시자를 가진 프롬프트 템플릿이다.
// {{ 와 }} 는 중괄호 문자 자체로 출력된다. 치환한 값은 다시 해석하지 않는다.
type Template struct {
	segments []segment
}

// ParseTemplate: 템플릿 문자열을 파싱합니다. 짝이 맞지 않는 중괄호는 오류입니다.
func ParseTemplate(raw string) (*Template, error) {
	var segments []segment
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, segment{text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(raw); {
		switch raw[i] {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				literal.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("invalid template: missing '}' after offset %d", i)
			}
			name := raw[i+1 : i+1+end]
			if name == "" || strings.ContainsAny(name, "{ \n\t") {
				return nil, fmt.Errorf("invalid template: bad placeholder %q", name)
			}
			flush()
			segments = append(segments, segment{text: name, placeholder: true})
			i += end + 2
		case '}':
			if i+1 < len(raw) && raw[i+1] == '}' {
				literal.WriteByte('}')
				i += 2
				continue
			}
			return nil, fmt.Errorf("invalid template: unexpected '}' at offset %d", i)
		default:
			literal.WriteByte(raw[i])
			i++
		}
	}
	flush()
	return &Template{segments: segments}, nil
}

// Placeholders: 템플릿이 요구하는 값 이름을 등장 순서대로 중복 없이 반환합니다.
func (t *Template) Placeholders() []string {
	var names []string
	seen := make(map[string]struct{})
	for _, seg := range t.segments {
		if !seg.placeholder {
			continue
		}
		if _, ok := seen[seg.text]; ok {
			continue
		}
		seen[seg.text] = struct{}{}
		names = append(names, seg.text)
	}
	return names
}

// Render: 자리표시자를 값으로 치환합니다. 값이 없으면 오류입니다.
func (t *Template) Render(values map[string]string) (string, error) {
	var builder strings.Builder
	for _, seg := range t.segments {
		if !seg.placeholder {
			builder.WriteString(seg.text)
			continue
		}
		value, ok := values[seg.text]
		if !ok {
			return "", fmt.Errorf("missing template value for %q", seg.text)
		}
		builder.WriteString(value)
	}
	return builder.String(), nil
}
