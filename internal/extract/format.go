package extract

import (
	"fmt"
	"strings"
)

// Format 은 지원하는 업로드 파일 형식이다.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatPPTX Format = "pptx"
	FormatXLSX Format = "xlsx"
	FormatTXT  Format = "txt"
)

// UnsupportedError 는 확장자로 형식을 정할 수 없을 때 반환된다.
type UnsupportedError struct {
	Ext string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Ext)
}

// Detect 는 파일명(대소문자 무시)의 마지막 확장자로 형식을 고른다.
// 점이 없는 이름은 지원하지 않으며 이름 전체가 확장자로 보고된다.
func Detect(fileName string) (Format, error) {
	lower := strings.ToLower(fileName)
	idx := strings.LastIndexByte(lower, '.')
	if idx < 0 {
		return "", &UnsupportedError{Ext: lower}
	}
	ext := lower[idx+1:]
	switch Format(ext) {
	case FormatPDF, FormatDOCX, FormatPPTX, FormatXLSX, FormatTXT:
		return Format(ext), nil
	default:
		return "", &UnsupportedError{Ext: ext}
	}
}
