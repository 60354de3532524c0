package http

import (
	"encoding/json"
	"log"
	"net/http"

	"examprep-engine/internal/app"
	"examprep-engine/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler serves a live exam session over one websocket: the client
// receives the active demo test on connect, then submits its answer payload
// and receives the scored result on the same socket.
type WSHandler struct {
	engine   *app.Engine
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine) *WSHandler {
	return &WSHandler{
		engine: engine,
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

type submitPayload struct {
	Answers   app.RawAnswers `json:"answers"`
	TimeTaken int            `json:"timeTaken"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs the exam session loop. One goroutine
// reads and writes, so no write-concurrency guard is needed.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	examType := domain.ExamType(r.URL.Query().Get("exam"))
	if examType == "" {
		examType = domain.ExamJEE
	}
	userID := r.URL.Query().Get("userId")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	test, err := h.engine.ActiveDemo(r.Context(), examType)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	if err := conn.WriteJSON(outboundMessage[domain.AssembledTest]{Type: "test", Payload: test}); err != nil {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid submit payload"}})
				continue
			}
			result, err := h.engine.Submit(r.Context(), test.ID, userID, payload.Answers, payload.TimeTaken)
			if err != nil {
				_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			if err := conn.WriteJSON(outboundMessage[domain.Result]{Type: "result", Payload: result}); err != nil {
				return
			}
		default:
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}
}
