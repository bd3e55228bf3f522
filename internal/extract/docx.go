package extract

import (
	"errors"
	"strings"
)

var errMissingDocumentPart = errors.New("word/document.xml not found")

// extractDOCX 는 본문 단락을 빈 줄로 구분해 돌려준다.
func extractDOCX(data []byte) (string, error) {
	zr, err := openZip(data)
	if err != nil {
		return "", err
	}
	file := findPart(zr, "word/document.xml")
	if file == nil {
		return "", errMissingDocumentPart
	}
	part, err := readPart(file)
	if err != nil {
		return "", err
	}
	paras, err := paragraphs(part, wordprocessingNS)
	if err != nil {
		return "", err
	}
	return strings.Join(paras, "\n\n"), nil
}
