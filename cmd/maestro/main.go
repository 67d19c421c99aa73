// Command maestro runs the interview wizard on a terminal: it gathers a
// brief, asks the interview questions, prints the decision and the adapted
// generation request.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"maestro/pkg/agent"
	"maestro/pkg/config"
	"maestro/pkg/decision"
	"maestro/pkg/executor"
	"maestro/pkg/logx"
	"maestro/pkg/maestro"
	"maestro/pkg/metrics"
	"maestro/pkg/persistence"
	"maestro/pkg/question"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "maestro: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logx.NewLogger("cli")

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("stdin is not a terminal; the wizard needs interactive input")
	}

	client, err := agent.NewClient(cfg.LLM)
	if err != nil {
		return err
	}

	store, err := persistence.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if n, err := store.MarkStale(ctx); err != nil {
		logger.Warn("stale-session cleanup failed: %v", err)
	} else if n > 0 {
		logger.Info("marked %d session(s) from a previous run expired", n)
	}

	coord, err := maestro.New(cfg, maestro.Deps{
		Client:    client,
		Generator: dryRunGenerator{},
		Store:     store,
		Recorder:  metrics.NewRecorder(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	return wizard(ctx, coord)
}

// dryRunGenerator stands in for the external generation pipeline: it echoes
// the adapted request so the operator can inspect what would be sent.
type dryRunGenerator struct{}

func (dryRunGenerator) Generate(_ context.Context, req executor.Request) (string, error) {
	data, err := json.MarshalIndent(map[string]any{
		"mode":   req.Mode,
		"params": req.Params,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func wizard(ctx context.Context, coord *maestro.Coordinator) error {
	in := bufio.NewScanner(os.Stdin)

	id, err := coord.StartSession()
	if err != nil {
		return err
	}
	defer func() {
		// Best effort: an interrupted wizard leaves no dangling session.
		if _, getErr := coord.Sessions().Get(id); getErr == nil {
			_ = coord.Abandon(id)
		}
	}()

	fmt.Println("Describe the project you want designed (one paragraph):")
	fmt.Print("> ")
	if !in.Scan() {
		return in.Err()
	}
	if err := coord.SubmitBrief(ctx, id, in.Text()); err != nil {
		return err
	}

	if err := interviewLoop(ctx, coord, id, in); err != nil {
		return err
	}

	d, err := decideLoop(ctx, coord, id, in)
	if err != nil {
		return err
	}
	printDecision(d)

	result, err := coord.Execute(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println("\nAdapted generation request:")
	fmt.Println(result.Output)
	return nil
}

// interviewLoop asks questions until the engine has nothing left.
func interviewLoop(ctx context.Context, coord *maestro.Coordinator, id string, in *bufio.Scanner) error {
	for {
		q, ok, err := coord.NextQuestion(id)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if p, err := coord.Progress(id); err == nil {
			fmt.Printf("\n[%.0f%%] %s\n", p.Percent, q.Text)
		} else {
			fmt.Printf("\n%s\n", q.Text)
		}
		printOptions(q)

		for {
			fmt.Print("> ")
			if !in.Scan() {
				return in.Err()
			}
			result, err := coord.SubmitAnswer(id, answerFromInput(q, in.Text()))
			if err != nil {
				return err
			}
			if result.IsValid {
				break
			}
			fmt.Printf("  %s\n", result.Error)
		}
	}
}

// decideLoop runs decision passes, re-entering the interview while the tree
// asks for more input and budget remains.
func decideLoop(ctx context.Context, coord *maestro.Coordinator, id string, in *bufio.Scanner) (*decision.Decision, error) {
	for {
		d, err := coord.Decide(ctx, id)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, maestro.ErrNeedMoreInput) {
			return nil, err
		}
		fmt.Println("\nI need a little more detail before deciding.")
		if err := interviewLoop(ctx, coord, id, in); err != nil {
			return nil, err
		}
	}
}

func printOptions(q *question.Question) {
	for _, opt := range q.Options {
		fmt.Printf("  %s) %s\n", opt.ID, opt.Label)
	}
	switch q.Type {
	case question.TypeMultiChoice:
		fmt.Println("  (comma-separated ids)")
	case question.TypeSlider:
		if q.SliderMin != nil && q.SliderMax != nil {
			fmt.Printf("  (number between %g and %g)\n", *q.SliderMin, *q.SliderMax)
		}
	case question.TypeColor:
		fmt.Println("  (hex color, e.g. #336699)")
	}
}

// answerFromInput maps a raw input line to an answer for the question type.
func answerFromInput(q *question.Question, line string) *question.Answer {
	line = strings.TrimSpace(line)
	ans := &question.Answer{QuestionID: q.ID}
	switch q.Type {
	case question.TypeSingleChoice:
		if line != "" {
			ans.SelectedOptions = []string{line}
		}
	case question.TypeMultiChoice:
		for _, part := range strings.Split(line, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ans.SelectedOptions = append(ans.SelectedOptions, part)
			}
		}
	default:
		ans.FreeText = line
	}
	return ans
}

func printDecision(d *decision.Decision) {
	fmt.Printf("\nDecision: %s (confidence %.2f", d.Mode, d.Confidence)
	if d.Degraded {
		fmt.Print(", degraded")
	}
	fmt.Println(")")
	fmt.Printf("  %s\n", d.Reasoning)
	for _, alt := range d.Alternatives {
		fmt.Printf("  alternative: %s (%.2f)\n", alt.Mode, alt.Confidence)
	}
}
