package llmjson

import (
	"errors"
	"reflect"
	"testing"
)

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: `  [1,2]  `, want: `[1,2]`},
		{name: "json fence", raw: "```json\n[1,2]\n```", want: `[1,2]`},
		{name: "bare fence", raw: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "no newline", raw: "```[\"x\"]```", want: `["x"]`},
		{name: "multiline body", raw: "```json\n[\n  \"a\",\n  \"b\"\n]\n```", want: "[\n  \"a\",\n  \"b\"\n]"},
		{name: "text around fence", raw: "here:\n```json\n[1]\n```", want: "here:\n```json\n[1]\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFence(tt.raw); got != tt.want {
				t.Fatalf("StripFence(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestExtractFencedEqualsUnfenced(t *testing.T) {
	plain := `[{"question":"Q","options":["a","b","c","d"],"correctAnswer":"a"}]`

	var fromPlain []map[string]any
	if err := Extract(plain, &fromPlain); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var fromFenced []map[string]any
	if err := Extract("```json\n"+plain+"\n```", &fromFenced); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(fromPlain, fromFenced) {
		t.Fatalf("fenced parse differs: %v vs %v", fromPlain, fromFenced)
	}
}

func TestExtractMalformed(t *testing.T) {
	inputs := []string{
		"",
		"Sure! Here is your quiz.",
		"```json\n[1,2,\n```",
		`{"a":}`,
	}
	for _, input := range inputs {
		var out any
		err := Extract(input, &out)
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed for %q, got %v", input, err)
		}
	}
}
