package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	drawingNS        = "http://schemas.openxmlformats.org/drawingml/2006/main"

	// maxPartBytes 는 압축 해제한 XML 파트 하나의 상한이다.
	maxPartBytes = 64 << 20
)

var errPartTooLarge = errors.New("document part exceeds size limit")

func openZip(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return zr, nil
}

func readPart(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, maxPartBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Name, err)
	}
	if len(content) > maxPartBytes {
		return nil, fmt.Errorf("%s: %w", file.Name, errPartTooLarge)
	}
	return content, nil
}

func findPart(zr *zip.Reader, name string) *zip.File {
	for _, file := range zr.File {
		if file.Name == name {
			return file
		}
	}
	return nil
}

// paragraphs 는 ns 네임스페이스의 <t> 텍스트를 <p> 단위로 모은다.
// <tab> 은 탭, <br>/<cr> 은 줄바꿈이 된다.
func paragraphs(part []byte, ns string) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(part))
	var (
		result  []string
		current strings.Builder
		inText  bool
	)
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}

		switch el := token.(type) {
		case xml.StartElement:
			if el.Name.Space != ns {
				continue
			}
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			if el.Name.Space != ns {
				continue
			}
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				result = append(result, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(el)
			}
		}
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result, nil
}
