package http

import (
	"log"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
)

// WSHandler exposes the presentation-facing API over a websocket: inbound
// messages dispatch named session transitions, outbound messages push the
// post-transition snapshot. One attach at a time; the quiz is single-taker.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader

	mu       sync.Mutex
	attached bool
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type emailPayload struct {
	Email string `json:"email"`
}

type navigatePayload struct {
	Index int `json:"index"`
}

type selectPayload struct {
	Index int    `json:"index"`
	Value string `json:"value"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and wires the connection into the session
// state machine.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.attached {
		h.mu.Unlock()
		http.Error(w, "a quiz client is already attached", http.StatusConflict)
		return
	}
	h.attached = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.attached = false
		h.mu.Unlock()
	}()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snapshot, ok := <-updates:
				if !ok {
					return
				}
				msgs := []outboundMessage[any]{{Type: "session", Payload: snapshot}}
				if snapshot.Status == domain.StatusSubmitted {
					msgs = append(msgs, outboundMessage[any]{Type: "report", Payload: snapshot.BuildReport()})
				}
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r, inbound); err != nil {
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-writerDone:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch maps one inbound message onto a named transition.
func (h *WSHandler) dispatch(r *http.Request, inbound inboundMessage) error {
	switch inbound.Type {
	case "setEmail":
		var payload emailPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		if !domain.ValidEmail(payload.Email) {
			return domain.ErrEmailInvalid
		}
		h.service.SetEmail(payload.Email)
		return nil
	case "begin":
		// The fetch blocks, so it runs off the read loop; failures land in the
		// session error state and reach the client through the snapshot push.
		go func() {
			if err := h.service.BeginLoad(r.Context()); err != nil {
				log.Printf("question load failed: %v", err)
			}
		}()
		return nil
	case "navigate":
		var payload navigatePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return h.service.Navigate(payload.Index)
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return h.service.SelectAnswer(payload.Index, payload.Value)
	case "submit":
		return h.service.Submit()
	case "retry":
		return h.service.Retry()
	case "reset":
		h.service.Reset()
		return nil
	default:
		return errUnsupportedType
	}
}

// ServeSession returns the current session snapshot.
func (h *WSHandler) ServeSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.service.Snapshot()); err != nil {
		log.Printf("snapshot encode failed: %v", err)
	}
}
