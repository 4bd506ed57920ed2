// Command quizcheck runs the validation pipeline over a saved model response.
//
//	quizcheck -raw out.json -source notes.txt -file notes.pdf -page 3
//
// The raw response is read from stdin when -raw is "-" or empty. With -server
// the response is checked by a running quizforge instance instead of locally.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/yungbote/quizforge/internal/app"
	"github.com/yungbote/quizforge/internal/client"
	"github.com/yungbote/quizforge/internal/config"
	"github.com/yungbote/quizforge/internal/dedupe"
	"github.com/yungbote/quizforge/internal/pipeline"
	"github.com/yungbote/quizforge/internal/platform/logger"
	"github.com/yungbote/quizforge/internal/platform/shutdown"
	"github.com/yungbote/quizforge/internal/question"
)

type output struct {
	Kept     []question.QuestionItem `json:"kept"`
	Rejected []string                `json:"rejected"`
	Pairs    []dedupe.Pair           `json:"duplicate_pairs"`
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 on success, 2 when the response could
// not be parsed, 1 for anything else. Deferred cleanup finishes before main
// exits.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("quizcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		rawPath    = fs.String("raw", "-", "model response file (- for stdin)")
		sourcePath = fs.String("source", "", "source text file")
		file       = fs.String("file", "", "citation file name to backfill")
		page       = fs.Int("page", -1, "citation page to backfill (-1 for none)")
		enforceMCQ = fs.Bool("enforce-mcq", true, "reject items that are not single-answer multiple choice")
		threshold  = fs.Float64("threshold", 0, "dedupe similarity threshold (0 uses config)")
		cfgPath    = fs.String("config", "", "config file (defaults plus environment when empty)")
		server     = fs.String("server", "", "quizforge base URL; validate remotely instead of locally")
	)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *sourcePath == "" {
		fmt.Fprintln(stderr, "quizcheck: -source is required")
		return 1
	}
	raw, err := readInput(*rawPath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "quizcheck: read response: %v\n", err)
		return 1
	}
	src, err := os.ReadFile(*sourcePath)
	if err != nil {
		fmt.Fprintf(stderr, "quizcheck: read source: %v\n", err)
		return 1
	}

	var pagePtr *int
	if *page >= 0 {
		pagePtr = page
	}

	if *server != "" {
		return checkRemote(ctx, *server, string(raw), string(src), *file, pagePtr, *enforceMCQ, stdout, stderr)
	}

	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "quizcheck: config: %v\n", err)
		return 1
	}
	if *threshold > 0 {
		cfg.Dedupe.Threshold = *threshold
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		log = logger.Nop()
	}
	defer log.Sync()

	ctx, stop := shutdown.NotifyContext(ctx, log)
	defer stop()

	a, err := app.NewWithConfig(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "quizcheck: %v\n", err)
		return 1
	}
	defer a.Close(context.Background())

	req := pipeline.Request{Source: string(src), File: *file, Page: pagePtr, EnforceMCQ: *enforceMCQ}
	res, err := a.Pipeline.Run(ctx, string(raw), req)
	if err != nil {
		fmt.Fprintf(stderr, "quizcheck: %v\n", err)
		var pe *question.ParseError
		if errors.As(err, &pe) {
			return 2
		}
		return 1
	}

	if err := printJSON(stdout, output{Kept: res.Kept, Rejected: res.Rejected, Pairs: res.Pairs}); err != nil {
		fmt.Fprintf(stderr, "quizcheck: %v\n", err)
		return 1
	}
	return 0
}

func checkRemote(ctx context.Context, baseURL, raw, src, file string, page *int, enforceMCQ bool, stdout, stderr io.Writer) int {
	c, err := client.New(client.Options{BaseURL: baseURL, MaxRetries: 2})
	if err != nil {
		fmt.Fprintf(stderr, "quizcheck: %v\n", err)
		return 1
	}
	res, err := c.Validate(ctx, client.ValidateRequest{
		RawOutput:  raw,
		SourceText: src,
		File:       file,
		Page:       page,
		EnforceMCQ: &enforceMCQ,
	})
	if err != nil {
		fmt.Fprintf(stderr, "quizcheck: %v\n", err)
		var herr *client.HTTPError
		if errors.As(err, &herr) && herr.Code == "invalid_model_output" {
			return 2
		}
		return 1
	}
	if err := printJSON(stdout, output{Kept: res.Kept, Rejected: res.Rejected}); err != nil {
		fmt.Fprintf(stderr, "quizcheck: %v\n", err)
		return 1
	}
	return 0
}

func printJSON(w io.Writer, out output) error {
	if out.Kept == nil {
		out.Kept = []question.QuestionItem{}
	}
	if out.Rejected == nil {
		out.Rejected = []string{}
	}
	if out.Pairs == nil {
		out.Pairs = []dedupe.Pair{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
