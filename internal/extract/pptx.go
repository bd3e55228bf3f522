package extract

import (
	"errors"
	"path"
	"sort"
	"strconv"
	"strings"
)

var errNoSlides = errors.New("no slides found")

type slidePart struct {
	number int
	index  int
}

// extractPPTX 는 슬라이드 번호 순서로 각 슬라이드의 단락을 줄 단위로 잇고
// 슬라이드 사이는 빈 줄로 구분한다.
func extractPPTX(data []byte) (string, error) {
	zr, err := openZip(data)
	if err != nil {
		return "", err
	}

	var slides []slidePart
	for i, file := range zr.File {
		if number, ok := slideNumber(file.Name); ok {
			slides = append(slides, slidePart{number: number, index: i})
		}
	}
	if len(slides) == 0 {
		return "", errNoSlides
	}
	sort.Slice(slides, func(a, b int) bool { return slides[a].number < slides[b].number })

	texts := make([]string, 0, len(slides))
	for _, slide := range slides {
		part, err := readPart(zr.File[slide.index])
		if err != nil {
			return "", err
		}
		paras, err := paragraphs(part, drawingNS)
		if err != nil {
			return "", err
		}
		texts = append(texts, strings.Join(paras, "\n"))
	}
	return strings.Join(texts, "\n\n"), nil
}

// slideNumber 는 ppt/slides/slideN.xml 에서 N 을 꺼낸다.
func slideNumber(name string) (int, bool) {
	if path.Dir(name) != "ppt/slides" {
		return 0, false
	}
	base := path.Base(name)
	if !strings.HasPrefix(base, "slide") || !strings.HasSuffix(base, ".xml") {
		return 0, false
	}
	number, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(base, "slide"), ".xml"))
	if err != nil {
		return 0, false
	}
	return number, true
}
