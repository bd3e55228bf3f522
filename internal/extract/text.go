package extract

import (
	"strings"
	"unicode"

	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeText 는 BOM 을 보고 UTF-8/UTF-16 을 판별한다. BOM 이 없으면 UTF-8 이다.
// 잘못된 바이트는 U+FFFD 로 바뀐다.
func decodeText(data []byte) (string, error) {
	decoder := textunicode.BOMOverride(textunicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// trimText 는 양 끝 공백과 BOM 을 제거한다.
func trimText(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}
