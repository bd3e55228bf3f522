package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/proxyclient"
	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/studyapi"
)

const maxMaterialBytes = 24 << 20

// loadMaterial 은 파일이면 서버에서 텍스트를 추출하고, 아니면 표준 입력을 그대로 쓴다.
func loadMaterial(ctx context.Context, client *proxyclient.Client, path string, stdin io.Reader) (string, error) {
	if path == "" {
		raw, err := io.ReadAll(io.LimitReader(stdin, maxMaterialBytes))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return studyapi.ValidateMaterial(string(raw))
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > maxMaterialBytes {
		return "", fmt.Errorf("%s is too large (%d bytes)", path, info.Size())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := client.ExtractTextFromFile(ctx, filepath.Base(path), base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		return "", err
	}
	return studyapi.ValidateMaterial(text)
}
