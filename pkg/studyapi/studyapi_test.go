package studyapi

import (
	"errors"
	"testing"
)

func TestNewPayloadCoversEveryAction(t *testing.T) {
	for _, action := range Actions() {
		payload, ok := NewPayload(action)
		if !ok {
			t.Fatalf("expected payload for %s", action)
		}
		if payload.Action() != action {
			t.Fatalf("payload action mismatch: %s != %s", payload.Action(), action)
		}
		if payload.MissingFieldMessage() == "" {
			t.Fatalf("expected missing field message for %s", action)
		}
	}

	if _, ok := NewPayload("deleteEverything"); ok {
		t.Fatalf("expected unknown action to be rejected")
	}
}

func TestRequiresLLM(t *testing.T) {
	if ActionExtractTextFromFile.RequiresLLM() {
		t.Fatalf("extraction must not require llm")
	}
	if !ActionSummarizeText.RequiresLLM() {
		t.Fatalf("summarize must require llm")
	}
	if !Action("unknown").RequiresLLM() {
		t.Fatalf("unknown actions are treated as llm backed")
	}
}

func TestAnswerInOptions(t *testing.T) {
	q := QuizQuestion{Options: []string{"A", "B", "C", "D"}, CorrectAnswer: "C"}
	if !q.AnswerInOptions() {
		t.Fatalf("expected answer in options")
	}
	q.CorrectAnswer = "c"
	if q.AnswerInOptions() {
		t.Fatalf("comparison must be case sensitive")
	}
}

func TestAnswerResultGrounding(t *testing.T) {
	empty := AnswerResult{Text: "hi"}
	metadata, err := empty.Grounding()
	if err != nil || metadata != nil {
		t.Fatalf("expected nil metadata, got %+v err=%v", metadata, err)
	}

	withSources := AnswerResult{
		Text:              "hi",
		GroundingMetadata: []byte(`{"groundingChunks":[{"web":{"uri":"https://a.example","title":"A"}},{"web":{}}],"retrievalQueries":["x"]}`),
	}
	metadata, err = withSources.Grounding()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sources := metadata.Sources()
	if len(sources) != 1 || sources[0].Title != "A" {
		t.Fatalf("unexpected sources: %+v", sources)
	}

	broken := AnswerResult{GroundingMetadata: []byte(`{"groundingChunks":`)}
	if _, err := broken.Grounding(); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestChatTurnText(t *testing.T) {
	turn := ChatTurn{Role: "user", Parts: []Part{{Text: "a"}, {Text: "b"}}}
	if turn.Text() != "ab" {
		t.Fatalf("unexpected text: %q", turn.Text())
	}
}

func TestValidateMaterial(t *testing.T) {
	if _, err := ValidateMaterial("  \n\t"); !errors.Is(err, ErrNoMaterial) {
		t.Fatalf("expected ErrNoMaterial, got %v", err)
	}
	text, err := ValidateMaterial("  cells  ")
	if err != nil || text != "cells" {
		t.Fatalf("unexpected result: %q %v", text, err)
	}
}
