package cli

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"trivia-service/internal/bank"
	"trivia-service/internal/domain"
)

func TestPlayGamePerfectRun(t *testing.T) {
	input := []string{"1", "new"}
	for _, q := range bank.Default().Questions {
		idx, _ := q.Answer.Index()
		input = append(input, strconv.Itoa(idx+1))
	}
	input = append(input, "9", "quit")

	var out syncBuffer
	err := playGame(context.Background(), bank.Default(), domain.DefaultRules(), strings.NewReader(strings.Join(input, "\n")), &out, nil)
	if err != nil {
		t.Fatalf("play: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"No game running. Type 'new' to start.",
		"[01:00] Question 1/10: Who is Karl Li?",
		"  4) Fear of dogs",
		"Game Over!",
		"You scored 1600 points and took 0 seconds. Awesome!",
		"No game running.",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, got)
		}
	}
}

func TestPlayGameTimesOut(t *testing.T) {
	rules := domain.DefaultRules()
	rules.SessionSeconds = 2

	pr, pw := io.Pipe()
	var out syncBuffer
	ticks := make(chan time.Time)
	done := make(chan error, 1)
	go func() {
		done <- playGame(context.Background(), bank.Default(), rules, pr, &out, ticks)
	}()

	if _, err := pw.Write([]byte("new\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case ticks <- time.Now():
			case <-stop:
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "Time's Up!") {
		if time.Now().After(deadline) {
			t.Fatalf("timed out, output:\n%s", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(stop)
	_ = pw.Close()
	if err := <-done; err != nil {
		t.Fatalf("play: %v", err)
	}
	if !strings.Contains(out.String(), "You scored 0 points and took 2 seconds. Try again!") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestFinishWording(t *testing.T) {
	r := domain.Result{Reason: domain.ReasonCompleted, Score: 500, ElapsedSeconds: 42}
	if finishTitle(r) != "Game Over!" || finishMessage(r) != "You scored 500 points and took 42 seconds. Try again!" {
		t.Fatalf("unexpected wording %q / %q", finishTitle(r), finishMessage(r))
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
