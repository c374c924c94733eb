package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"interview-rehearsal-service/internal/app"
	"interview-rehearsal-service/internal/domain"
	"interview-rehearsal-service/internal/session"
)

// WSHandler drives one rehearsal session per websocket connection. The
// browser owns the actual camera; it reports capture grants and losses as
// messages, which the handler translates into the machine's capture
// collaborator events.
type WSHandler struct {
	service  *app.InterviewService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.InterviewService) *WSHandler {
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

type capturePayload struct {
	Granted bool `json:"granted"`
}

type textPayload struct {
	Text string `json:"text"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// wsCapture adapts client capture messages to the session.Capture port.
type wsCapture struct {
	grant    chan bool
	lost     chan struct{}
	lostOnce sync.Once
}

func newWSCapture() *wsCapture {
	return &wsCapture{grant: make(chan bool, 1), lost: make(chan struct{})}
}

func (c *wsCapture) Acquire(ctx context.Context) (session.CaptureHandle, error) {
	select {
	case granted := <-c.grant:
		if !granted {
			return nil, domain.ErrCaptureUnavailable
		}
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *wsCapture) Lost() <-chan struct{} { return c.lost }

func (c *wsCapture) Release() {}

func (c *wsCapture) markLost() {
	c.lostOnce.Do(func() { close(c.lost) })
}

func (c *wsCapture) offer(granted bool) {
	select {
	case c.grant <- granted:
	default:
	}
}

// ServeWS upgrades the request and runs the session event loop until the
// client disconnects or the session reaches a terminal state.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	topicID := r.URL.Query().Get("topicId")
	userID := r.URL.Query().Get("userId")
	if topicID == "" {
		http.Error(w, "missing topicId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Scope all session work to the connection so a disconnect while
	// capture acquisition is still pending unblocks StartSession.
	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	pumpDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	capture := newWSCapture()

	var (
		machineMu sync.Mutex
		machine   *session.Machine
	)
	currentMachine := func() *session.Machine {
		machineMu.Lock()
		defer machineMu.Unlock()
		return machine
	}

	// The countdown ticker can finalize a session after the connection is
	// already gone, so completion sends must never block past teardown.
	onComplete := func(summary domain.InterviewSummary, err error) {
		msg := outboundMessage[any]{Type: "completed", Payload: summary}
		if err != nil {
			msg = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	// Start blocks until the client reports its capture result, so it runs
	// off the read loop; the snapshot pump starts once the machine is up.
	go func() {
		defer close(pumpDone)
		m, err := h.service.StartSession(ctx, topicID, userID, capture, onComplete)
		if err != nil {
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-closeSignals:
			}
			return
		}
		machineMu.Lock()
		machine = m
		machineMu.Unlock()

		updates, cancel := m.Subscribe()
		defer cancel()
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: snap}:
				case <-closeSignals:
					return
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
		switch inbound.Type {
		case "capture":
			var payload capturePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid capture payload"}}
				continue
			}
			capture.offer(payload.Granted)
		case "captureLost":
			capture.markLost()
			if m := currentMachine(); m != nil {
				m.CaptureLost()
			}
		case "edit", "transcript":
			var payload textPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid text payload"}}
				continue
			}
			h.dispatch(send, currentMachine(), func(m *session.Machine) error {
				return m.EditAnswer(ctx, payload.Text)
			})
		case "next":
			h.dispatch(send, currentMachine(), func(m *session.Machine) error {
				return m.Next(ctx)
			})
		case "finish":
			h.dispatch(send, currentMachine(), func(m *session.Machine) error {
				return m.Finish(ctx)
			})
		case "confirmEnd":
			h.dispatch(send, currentMachine(), func(m *session.Machine) error {
				return m.ConfirmEnd(ctx)
			})
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	// Unblock a pending capture acquire, then wait for the starter goroutine
	// so the machine pointer is final before tearing the session down. A
	// disconnect must never leave a countdown running.
	cancelCtx()
	close(closeSignals)
	<-pumpDone
	if m := currentMachine(); m != nil {
		m.Close()
	}
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(send chan outboundMessage[any], m *session.Machine, fn func(*session.Machine) error) {
	if m == nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: domain.ErrSessionNotFound.Error()}}
		return
	}
	if err := fn(m); err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}
}
