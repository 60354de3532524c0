package http

import (
	"encoding/json"
	"strings"
	"testing"

	"examprep-engine/internal/domain"
	"github.com/gorilla/websocket"
)

func dialExam(t *testing.T, serverURL, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws/exam" + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg.Type, msg.Payload
}

func TestExamSessionOverWebsocket(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dialExam(t, server.URL, "?exam=JEE&userId=u1")

	msgType, payload := readMessage(t, conn)
	if msgType != "test" {
		t.Fatalf("expected a test on connect, got %q", msgType)
	}
	var test domain.AssembledTest
	if err := json.Unmarshal(payload, &test); err != nil {
		t.Fatalf("unmarshal test: %v", err)
	}
	if len(test.QuestionIDs) != 75 {
		t.Fatalf("expected 75 questions, got %d", len(test.QuestionIDs))
	}

	submit := map[string]any{
		"type": "submit",
		"payload": map[string]any{
			"answers":   map[string]any{},
			"timeTaken": 900,
		},
	}
	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	msgType, payload = readMessage(t, conn)
	if msgType != "result" {
		t.Fatalf("expected a result, got %q", msgType)
	}
	var result domain.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.TestID != test.ID {
		t.Fatalf("result for wrong test: %s vs %s", result.TestID, test.ID)
	}
	if result.Unattempted != 75 {
		t.Fatalf("blank submission should leave 75 unattempted, got %d", result.Unattempted)
	}
}

func TestWebsocketRejectsUnknownMessageType(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dialExam(t, server.URL, "?exam=JEE")

	if msgType, _ := readMessage(t, conn); msgType != "test" {
		t.Fatalf("expected a test on connect, got %q", msgType)
	}
	if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msgType, _ := readMessage(t, conn); msgType != "error" {
		t.Fatalf("expected an error reply, got %q", msgType)
	}
}
