package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trivia-service/internal/bank"
	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/game"
)

// NewPlayCmd plays the built-in bank in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var seconds int
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the default question bank in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			rules := rulesFromConfig(cfg)
			if seconds > 0 {
				rules.SessionSeconds = seconds
			}
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			return playGame(cmd.Context(), bank.Default(), rules, cmd.InOrStdin(), cmd.OutOrStdout(), ticker.C)
		},
	}
	cmd.Flags().IntVar(&seconds, "seconds", 0, "session length in seconds (overrides config)")
	return cmd
}

// playGame owns the controller on a single goroutine and feeds it ticks and
// typed answers. Choices are entered 1-based.
func playGame(ctx context.Context, b domain.Bank, rules domain.Rules, in io.Reader, out io.Writer, ticks <-chan time.Time) error {
	if err := bank.Validate(b); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	ctrl := game.NewController(b, rules, func(ev domain.Event) { render(out, ev) })
	fmt.Fprintln(out, "Type 'new' to start, a choice number to answer, 'quit' to leave.")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
			if ctrl.Phase() == domain.PhaseActive {
				_ = ctrl.Tick()
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.ToLower(line) {
			case "":
				continue
			case "quit", "q":
				return nil
			case "new", "start":
				ctrl.Start()
				continue
			}
			n, err := strconv.Atoi(line)
			if err != nil {
				fmt.Fprintf(out, "Unknown input %q.\n", line)
				continue
			}
			if err := ctrl.Submit(n - 1); err != nil {
				switch {
				case errors.Is(err, domain.ErrInvalidOperation):
					fmt.Fprintln(out, "No game running. Type 'new' to start.")
				case errors.Is(err, domain.ErrChoiceOutOfRange):
					fmt.Fprintf(out, "Pick a choice between 1 and %d.\n", len(ctrl.Choices()))
				default:
					return err
				}
			}
		}
	}
}

func render(out io.Writer, ev domain.Event) {
	s := ev.Snapshot
	switch ev.Type {
	case domain.EventQuestion:
		fmt.Fprintf(out, "\n[%s] Question %d/%d: %s\n", s.Clock, s.QuestionIndex+1, s.QuestionCount, s.Prompt)
		for i, c := range s.Choices {
			fmt.Fprintf(out, "  %d) %s\n", i+1, c)
		}
	case domain.EventScore:
		fmt.Fprintf(out, "Score: %d\n", s.Score)
	case domain.EventTime:
		if s.RemainingSeconds%10 == 0 || s.RemainingSeconds <= 5 {
			fmt.Fprintf(out, "Time left: %s\n", s.Clock)
		}
	case domain.EventFinished:
		if s.Result == nil {
			return
		}
		fmt.Fprintf(out, "\n%s\n%s\nType 'new' for a new game or 'quit' to exit.\n", finishTitle(*s.Result), finishMessage(*s.Result))
	}
}

func finishTitle(r domain.Result) string {
	if r.Reason == domain.ReasonTimeUp {
		return "Time's Up!"
	}
	return "Game Over!"
}

func finishMessage(r domain.Result) string {
	remark := "Try again!"
	if r.IsHighScore {
		remark = "Awesome!"
	}
	return fmt.Sprintf("You scored %d points and took %d seconds. %s", r.Score, r.ElapsedSeconds, remark)
}
