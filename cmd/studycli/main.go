// studycli 는 학습 도우미 프록시를 터미널에서 쓰는 클라이언트다.
//
//	studycli [flags] <extract|summarize|notes|videos|quiz|ask>
//
// 자료는 -file 로 지정한 파일(서버에서 텍스트 추출) 또는 표준 입력에서 읽는다.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/chat"
	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/proxyclient"
	"github.com/park285/llm-kakao-bots/study-proxy-go/pkg/quiz"
)

type options struct {
	baseURL  string
	endpoint string
	file     string
	topic    string
	timeout  time.Duration
	h2c      bool
	verbose  bool
	command  string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("studycli_failed", "command", opts.command, "err", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("studycli", flag.ContinueOnError)
	fs.StringVar(&opts.baseURL, "url", envOr("STUDY_PROXY_URL", "http://127.0.0.1:8888"), "proxy base URL")
	fs.StringVar(&opts.endpoint, "endpoint", proxyclient.DefaultEndpoint, "proxy endpoint path")
	fs.StringVar(&opts.file, "file", "", "study material file (pdf, docx, pptx, xlsx, txt); stdin when empty")
	fs.StringVar(&opts.topic, "topic", "", "optional focus topic for notes")
	fs.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "per-request timeout")
	fs.BoolVar(&opts.h2c, "h2c", false, "use cleartext HTTP/2")
	fs.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: studycli [flags] <extract|summarize|notes|videos|quiz|ask>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errors.New("exactly one command is required")
	}
	opts.command = fs.Arg(0)
	switch opts.command {
	case "extract", "summarize", "notes", "videos", "quiz", "ask":
	default:
		return opts, fmt.Errorf("unknown command %q", opts.command)
	}
	if opts.file == "" && (opts.command == "quiz" || opts.command == "ask") {
		return opts, fmt.Errorf("%s reads answers from stdin; pass the material with -file", opts.command)
	}
	return opts, nil
}

func envOr(key string, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

func run(ctx context.Context, opts options, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	client, err := proxyclient.New(proxyclient.Config{
		BaseURL:  opts.baseURL,
		Endpoint: opts.endpoint,
		Timeout:  opts.timeout,
		H2C:      opts.h2c,
	})
	if err != nil {
		return err
	}

	material, err := loadMaterial(ctx, client, opts.file, stdin)
	if err != nil {
		return err
	}
	logger.Debug("material_loaded", "chars", len(material), "file", opts.file)

	if opts.command == "extract" {
		_, err := fmt.Fprintln(stdout, material)
		return err
	}

	input := bufio.NewScanner(stdin)
	switch opts.command {
	case "summarize":
		summary, err := client.SummarizeText(ctx, material)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, summary)
		return err
	case "notes":
		notes, err := client.CreateNotes(ctx, material, opts.topic)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, notes)
		return err
	case "videos":
		topics, err := client.SuggestVideoTopics(ctx, material)
		if err != nil {
			return err
		}
		for _, topic := range topics {
			fmt.Fprintf(stdout, "- %s\n  %s\n", topic, proxyclient.VideoSearchURL(topic))
		}
		return nil
	case "quiz":
		return playQuiz(ctx, quiz.NewSession(client), material, input, stdout)
	default:
		return askLoop(ctx, chat.NewConversation(material), client, input, stdout)
	}
}
