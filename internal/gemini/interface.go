package gemini

import (
	"context"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/llm"
)

// LLM 은 디스패처가 의존하는 생성 모델 인터페이스다.
// 테스트에서 fake 구현을 주입할 수 있도록 한다.
type LLM interface {
	// Chat 은 한 번의 생성 호출 결과와 실제 사용한 모델명을 반환한다.
	Chat(ctx context.Context, req Request) (llm.ChatResult, string, error)
}

// Client가 LLM 인터페이스를 구현하는지 컴파일 타임 확인
var _ LLM = (*Client)(nil)
