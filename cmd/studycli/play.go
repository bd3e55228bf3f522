package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/chat"
	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/quiz"
	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/studyapi"
)

var errInputClosed = errors.New("input closed")

// playQuiz 는 퀴즈를 생성해 한 문항씩 묻고 마지막에 채점 결과를 보여준다.
func playQuiz(ctx context.Context, session *quiz.Session, material string, input *bufio.Scanner, out io.Writer) error {
	fmt.Fprintln(out, "Generating quiz...")
	if err := session.Generate(ctx, material); err != nil {
		return err
	}

	for {
		state := session.Snapshot()
		current, ok := state.Current()
		if !ok {
			break
		}
		fmt.Fprintf(out, "\nQuestion %d of %d\n%s\n", state.CurrentIndex+1, len(state.Questions), current.Question)
		for i, option := range current.Options {
			fmt.Fprintf(out, "  %d) %s\n", i+1, option)
		}

		choice, err := readChoice(input, out, len(current.Options))
		if err != nil {
			return err
		}
		if err := session.Answer(current.Options[choice]); err != nil {
			return err
		}
		if _, err := session.Advance(); err != nil {
			return err
		}
	}

	state := session.Snapshot()
	fmt.Fprintf(out, "\nYou scored %d out of %d.\n", state.Score, len(state.Questions))
	for i, result := range session.Review() {
		mark := "x"
		if result.IsCorrect {
			mark = "o"
		}
		fmt.Fprintf(out, "[%s] %d. %s\n    your answer: %s\n", mark, i+1, result.Question, result.Chosen)
		if !result.IsCorrect {
			fmt.Fprintf(out, "    correct answer: %s\n", result.Correct)
		}
	}
	return nil
}

func readChoice(input *bufio.Scanner, out io.Writer, count int) (int, error) {
	for {
		fmt.Fprintf(out, "Your answer (1-%d): ", count)
		if !input.Scan() {
			if err := input.Err(); err != nil {
				return 0, err
			}
			return 0, errInputClosed
		}
		n, err := strconv.Atoi(strings.TrimSpace(input.Text()))
		if err == nil && n >= 1 && n <= count {
			return n - 1, nil
		}
		fmt.Fprintln(out, "Please pick one of the listed options.")
	}
}

// askLoop 는 빈 줄이나 입력 종료까지 질문을 받아 답한다.
func askLoop(ctx context.Context, conv *chat.Conversation, answerer chat.Answerer, input *bufio.Scanner, out io.Writer) error {
	for _, msg := range conv.Messages() {
		fmt.Fprintf(out, "AI: %s\n", msg.Text)
	}
	for {
		fmt.Fprint(out, "You: ")
		if !input.Scan() {
			fmt.Fprintln(out)
			return input.Err()
		}
		line := input.Text()
		if strings.TrimSpace(line) == "" {
			return nil
		}

		reply, err := conv.Ask(ctx, answerer, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(out, "AI: Sorry, I encountered an error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "AI: %s\n", reply.Text)
		printSources(out, reply)
	}
}

func printSources(out io.Writer, reply chat.Message) {
	result := studyapi.AnswerResult{GroundingMetadata: reply.GroundingMetadata}
	metadata, err := result.Grounding()
	if err != nil {
		return
	}
	sources := metadata.Sources()
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(out, "Sources:")
	for _, source := range sources {
		title := source.Title
		if title == "" {
			title = source.URI
		}
		fmt.Fprintf(out, "  - %s (%s)\n", title, source.URI)
	}
}
