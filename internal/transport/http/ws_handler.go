package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"trivia-service/internal/app"
	"trivia-service/internal/bank"
	"trivia-service/internal/domain"
)

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
	limit    rate.Limit
	burst    int
}

// NewWSHandler serves games over websockets. Each connection may send up to
// limit messages per second with the given burst.
func NewWSHandler(service *app.GameService, limit rate.Limit, burst int) *WSHandler {
	if burst <= 0 {
		burst = 1
	}
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		limit: limit,
		burst: burst,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type submitPayload struct {
	Choice *int `json:"choice"`
}

type joinedPayload struct {
	SessionID string          `json:"sessionId"`
	Snapshot  domain.Snapshot `json:"snapshot"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// ServeWS upgrades HTTP requests to websockets and binds one game session to the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	bankID := r.URL.Query().Get("bank")
	if bankID == "" {
		bankID = bank.DefaultID
	}
	player := r.URL.Query().Get("name")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sessionID, _, err := h.service.Create(r.Context(), bankID, player)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	defer h.service.Close(r.Context(), sessionID)

	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	defer cancel()
	initial := <-updates

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	reply := func(msg outboundMessage[any]) bool { return enqueue(send, writerDone, msg) }

	reply(outboundMessage[any]{Type: "joined", Payload: joinedPayload{SessionID: sessionID, Snapshot: initial.Snapshot}})

	go func() {
		defer close(updatesDone)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: string(ev.Type), Payload: ev.Snapshot}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	limiter := rate.NewLimiter(h.limit, h.burst)
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		msg, ok := h.handle(r, sessionID, limiter, inbound)
		if ok && !reply(msg) {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// enqueue hands msg to the writer and reports false once the writer has exited.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

// handle applies one inbound message. It reports false when there is nothing to reply.
func (h *WSHandler) handle(r *http.Request, sessionID string, limiter *rate.Limiter, inbound inboundMessage) (outboundMessage[any], bool) {
	if !limiter.Allow() {
		return errorMessage("too many messages, slow down"), true
	}
	switch inbound.Type {
	case "start", "restart":
		if _, err := h.service.Start(r.Context(), sessionID); err != nil {
			return errorMessage(err.Error()), true
		}
	case "submit":
		var payload submitPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Choice == nil {
			return errorMessage("invalid submit payload"), true
		}
		if _, err := h.service.Submit(r.Context(), sessionID, *payload.Choice); err != nil {
			return errorMessage(err.Error()), true
		}
	default:
		return errorMessage("unsupported message type"), true
	}
	return outboundMessage[any]{}, false
}
