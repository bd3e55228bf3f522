package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/studyapi"
)

type fakeAnswerer struct {
	result      studyapi.AnswerResult
	err         error
	gotContext  string
	gotQuestion string
	gotHistory  []studyapi.ChatTurn
	calls       int
}

func (f *fakeAnswerer) AnswerQuestion(_ context.Context, contextText string, question string, history []studyapi.ChatTurn) (studyapi.AnswerResult, error) {
	f.calls++
	f.gotContext = contextText
	f.gotQuestion = question
	f.gotHistory = history
	return f.result, f.err
}

func TestResetSeedsGreeting(t *testing.T) {
	conv := NewConversation("doc")
	msgs := conv.Messages()
	if len(msgs) != 1 || msgs[0].Sender != SenderAI || msgs[0].Text != Greeting {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if history := conv.History(); len(history) != 0 {
		t.Fatalf("greeting must not be sent: %+v", history)
	}

	conv.Reset("   ")
	if msgs := conv.Messages(); len(msgs) != 0 {
		t.Fatalf("blank context must not greet: %+v", msgs)
	}
}

func TestAskValidation(t *testing.T) {
	answerer := &fakeAnswerer{}
	if _, err := NewConversation("doc").Ask(context.Background(), answerer, " \n"); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
	if _, err := NewConversation("").Ask(context.Background(), answerer, "why?"); !errors.Is(err, ErrNoContext) {
		t.Fatalf("expected ErrNoContext, got %v", err)
	}
	if answerer.calls != 0 {
		t.Fatalf("answerer must not be called")
	}
}

func TestAskBuildsHistory(t *testing.T) {
	answerer := &fakeAnswerer{result: studyapi.AnswerResult{Text: "first answer"}}
	conv := NewConversation("doc")

	if _, err := conv.Ask(context.Background(), answerer, "  first?  "); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answerer.gotQuestion != "first?" || answerer.gotContext != "doc" || len(answerer.gotHistory) != 0 {
		t.Fatalf("unexpected first call: %+v", answerer)
	}

	answerer.result = studyapi.AnswerResult{Text: "second answer", GroundingMetadata: []byte(`{"groundingChunks":[]}`)}
	reply, err := conv.Ask(context.Background(), answerer, "second?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if string(reply.GroundingMetadata) != `{"groundingChunks":[]}` {
		t.Fatalf("grounding must be kept: %s", reply.GroundingMetadata)
	}

	want := []studyapi.ChatTurn{
		{Role: "user", Parts: []studyapi.Part{{Text: "first?"}}},
		{Role: "model", Parts: []studyapi.Part{{Text: "first answer"}}},
	}
	if len(answerer.gotHistory) != len(want) {
		t.Fatalf("unexpected history: %+v", answerer.gotHistory)
	}
	for i := range want {
		if answerer.gotHistory[i].Role != want[i].Role || answerer.gotHistory[i].Text() != want[i].Parts[0].Text {
			t.Fatalf("history[%d] = %+v, want %+v", i, answerer.gotHistory[i], want[i])
		}
	}

	if msgs := conv.Messages(); len(msgs) != 5 {
		t.Fatalf("expected greeting plus four turns, got %d", len(msgs))
	}
}

func TestAskFailureKeepsUserTurn(t *testing.T) {
	boom := errors.New("Network error")
	conv := NewConversation("doc")
	if _, err := conv.Ask(context.Background(), &fakeAnswerer{err: boom}, "q"); !errors.Is(err, boom) {
		t.Fatalf("expected proxy error, got %v", err)
	}
	msgs := conv.Messages()
	if len(msgs) != 2 || msgs[1].Sender != SenderUser || msgs[1].Text != "q" {
		t.Fatalf("user turn must remain: %+v", msgs)
	}
	history := conv.History()
	if len(history) != 1 || history[0].Role != "user" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

type resettingAnswerer struct {
	conv     *Conversation
	material string
}

func (r *resettingAnswerer) AnswerQuestion(context.Context, string, string, []studyapi.ChatTurn) (studyapi.AnswerResult, error) {
	r.conv.Reset(r.material)
	return studyapi.AnswerResult{Text: "late reply"}, nil
}

func TestAskDropsReplyAfterReset(t *testing.T) {
	for _, material := range []string{"doc", "other doc"} {
		t.Run(material, func(t *testing.T) {
			conv := NewConversation("doc")
			_, err := conv.Ask(context.Background(), &resettingAnswerer{conv: conv, material: material}, "what is it?")
			if !errors.Is(err, ErrSuperseded) {
				t.Fatalf("expected ErrSuperseded, got %v", err)
			}
			msgs := conv.Messages()
			if len(msgs) != 1 || msgs[0].Text != Greeting {
				t.Fatalf("reset transcript must hold only the greeting: %+v", msgs)
			}
		})
	}
}
