package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"trivia-service/internal/app"
	"trivia-service/internal/bank"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
)

func TestWebSocketGameFlow(t *testing.T) {
	service := newTestService()
	wsHandler := NewWSHandler(service, rate.Inf, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?bank=default&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect joined event first.
	_, payload := readNext(conn, t, "joined")
	if payload["sessionId"] == "" {
		t.Fatalf("expected session id, got %v", payload)
	}

	send(t, conn, map[string]any{"type": "start"})
	for _, typ := range []string{"question", "score", "time"} {
		readNext(conn, t, typ)
	}

	send(t, conn, map[string]any{"type": "submit", "payload": map[string]any{"choice": 2}})
	_, score := readNext(conn, t, "score")
	if score["score"] != float64(100) {
		t.Fatalf("expected score 100, got %v", score["score"])
	}
	_, question := readNext(conn, t, "question")
	if question["questionIndex"] != float64(1) || question["prompt"] != "How old is SHS?" {
		t.Fatalf("expected second question, got %v", question)
	}

	send(t, conn, map[string]any{"type": "submit", "payload": map[string]any{"choice": 7}})
	_, errPayload := readNext(conn, t, "error")
	if errPayload["message"] == "" {
		t.Fatalf("expected error message")
	}

	send(t, conn, map[string]any{"type": "dance"})
	readNext(conn, t, "error")
}

func TestWebSocketDefaultsToAnonymousPlayer(t *testing.T) {
	service := newTestService()
	server := httptest.NewServer(http.HandlerFunc(NewWSHandler(service, rate.Inf, 1).ServeWS))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/", nil)
	if err != nil {
		t.Fatalf("dial without name: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "joined")

	send(t, conn, map[string]any{"type": "start"})
	for _, choice := range []int{0, 2, 0, 2, 0, 1, 3, 1, 2, 3} {
		send(t, conn, map[string]any{"type": "submit", "payload": map[string]any{"choice": choice}})
	}
	for {
		typ, _ := readNext(conn, t, "")
		if typ == "finished" {
			break
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		board, err := service.Leaderboard(context.Background(), bank.DefaultID, 0)
		if err != nil {
			t.Fatalf("leaderboard: %v", err)
		}
		if len(board) == 1 {
			if board[0].Player != "anonymous" {
				t.Fatalf("expected anonymous player, got %q", board[0].Player)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected one finished game, got %v", board)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEnqueueStopsWhenWriterExits(t *testing.T) {
	send := make(chan outboundMessage[any], 1)
	writerDone := make(chan struct{})

	if !enqueue(send, writerDone, errorMessage("first")) {
		t.Fatalf("expected buffered send to succeed")
	}
	close(writerDone)

	done := make(chan bool, 1)
	go func() { done <- enqueue(send, writerDone, errorMessage("second")) }()
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("expected enqueue to report the writer is gone")
		}
	case <-time.After(time.Second):
		t.Fatalf("enqueue blocked on a full queue after the writer exited")
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	wsHandler := NewWSHandler(newTestService(), rate.Every(time.Hour), 1)
	server := httptest.NewServer(http.HandlerFunc(wsHandler.ServeWS))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/?name=Bob", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "joined")

	send(t, conn, map[string]any{"type": "dance"})
	readNext(conn, t, "error")
	send(t, conn, map[string]any{"type": "start"})
	_, payload := readNext(conn, t, "error")
	if payload["message"] != "too many messages, slow down" {
		t.Fatalf("expected rate limit error, got %v", payload)
	}
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func newTestService() *app.GameService {
	store := memory.NewSessionStore()
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(map[string]domain.Bank{
		bank.DefaultID: bank.Default(),
	}), time.Minute)
	return app.NewGameService(store, banks, memory.NewScoreBoard(), app.WithTickInterval(0))
}
