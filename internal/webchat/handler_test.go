package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/patient-intake/internal/intake"
	"github.com/wolfman30/patient-intake/pkg/logging"
	"golang.org/x/net/websocket"
)

// fakeConversation echoes messages and ends on "book it".
type fakeConversation struct {
	mu       sync.Mutex
	sessions map[string]intake.State
	texts    []string
}

func newFakeConversation() *fakeConversation {
	return &fakeConversation{sessions: map[string]intake.State{}}
}

func (f *fakeConversation) Start(context.Context) (intake.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions["s-1"] = intake.StateGreet
	return intake.Outcome{SessionID: "s-1", State: intake.StateGreet, Reply: "Hello! Are you a new patient?"}, nil
}

func (f *fakeConversation) ProcessMessage(_ context.Context, id, text string) (intake.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.sessions[id]
	if !ok {
		return intake.Outcome{}, intake.ErrSessionNotFound
	}
	if state.Terminal() {
		return intake.Outcome{SessionID: id, State: state, Reply: "This conversation has ended."}, intake.ErrSessionEnded
	}
	f.texts = append(f.texts, text)
	next := intake.StateCollectPatient
	if text == "book it" {
		next = intake.StateEnd
	}
	f.sessions[id] = next
	return intake.Outcome{SessionID: id, State: next, Reply: "you said " + text}, nil
}

func (f *fakeConversation) Abandon(_ context.Context, id string) (intake.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return intake.Outcome{}, intake.ErrSessionNotFound
	}
	f.sessions[id] = intake.StateEnd
	return intake.Outcome{SessionID: id, State: intake.StateEnd, Reply: "Goodbye.", Abandoned: true}, nil
}

func (f *fakeConversation) Get(_ context.Context, id string) (*intake.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.sessions[id]
	if !ok {
		return nil, intake.ErrSessionNotFound
	}
	return &intake.Session{ID: id, State: state}, nil
}

// memTranscript stores messages in memory.
type memTranscript struct {
	mu    sync.Mutex
	store map[string][]Message
}

func newMemTranscript() *memTranscript {
	return &memTranscript{store: map[string][]Message{}}
}

func (m *memTranscript) Append(_ context.Context, id string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[id] = append(m.store[id], msg)
	return nil
}

func (m *memTranscript) List(_ context.Context, id string, limit int64) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.store[id]
	if int64(len(msgs)) > limit {
		msgs = msgs[int64(len(msgs))-limit:]
	}
	return append([]Message(nil), msgs...), nil
}

func dialChat(t *testing.T, h *Handler, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws" + query
	conn, err := websocket.Dial(url, "", "http://localhost/")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) OutboundMessage {
	t.Helper()
	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	return msg
}

func TestWebSocketConversation(t *testing.T) {
	conv := newFakeConversation()
	ts := newMemTranscript()
	h := NewHandler(conv, ts, logging.New("error"))
	conn := dialChat(t, h, "")

	session := receive(t, conn)
	assert.Equal(t, "session", session.Type)
	assert.Equal(t, "s-1", session.SessionID)

	greeting := receive(t, conn)
	assert.Equal(t, "message", greeting.Type)
	assert.Equal(t, "Hello! Are you a new patient?", greeting.Text)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	assert.Equal(t, "pong", receive(t, conn).Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "I'm new"}))
	reply := receive(t, conn)
	assert.Equal(t, "you said I'm new", reply.Text)
	assert.Equal(t, string(intake.StateCollectPatient), reply.State)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "book it"}))
	assert.Equal(t, "you said book it", receive(t, conn).Text)
	assert.Equal(t, "ended", receive(t, conn).Type)

	msgs, err := ts.List(context.Background(), "s-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	assert.Equal(t, "assistant", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "I'm new", msgs[1].Text)
}

func TestWebSocketResumeSendsHistory(t *testing.T) {
	conv := newFakeConversation()
	_, _ = conv.Start(context.Background())
	ts := newMemTranscript()
	_ = ts.Append(context.Background(), "s-1", Message{Role: "assistant", Text: "Hello!"})
	h := NewHandler(conv, ts, logging.New("error"))

	conn := dialChat(t, h, "?session=s-1")
	assert.Equal(t, "session", receive(t, conn).Type)
	history := receive(t, conn)
	assert.Equal(t, "history", history.Type)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "Hello!", history.Messages[0].Text)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "end"}))
	bye := receive(t, conn)
	assert.Equal(t, "Goodbye.", bye.Text)
	assert.Equal(t, "ended", receive(t, conn).Type)
}

func TestWebSocketUnknownSession(t *testing.T) {
	h := NewHandler(newFakeConversation(), nil, logging.New("error"))
	conn := dialChat(t, h, "?session=nope")
	msg := receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "not_found", msg.Error)
}

func TestHandleMessageStartsSession(t *testing.T) {
	conv := newFakeConversation()
	h := NewHandler(conv, newMemTranscript(), logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"text":"hi there"}`))
	w := httptest.NewRecorder()
	h.HandleMessage(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		SessionID string            `json:"session_id"`
		Replies   []OutboundMessage `json:"replies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "s-1", resp.SessionID)
	require.Len(t, resp.Replies, 2)
	assert.Equal(t, "Hello! Are you a new patient?", resp.Replies[0].Text)
	assert.Equal(t, "you said hi there", resp.Replies[1].Text)
	assert.Equal(t, []string{"hi there"}, conv.texts)
}

func TestHandleMessageErrors(t *testing.T) {
	h := NewHandler(newFakeConversation(), nil, logging.New("error"))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"no text", `{"session_id":"s-1"}`, http.StatusBadRequest},
		{"unknown session", `{"session_id":"nope","text":"hi"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.HandleMessage(w, httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestHandleHistory(t *testing.T) {
	ts := newMemTranscript()
	_ = ts.Append(context.Background(), "s-1", Message{Role: "user", Text: "Hello"})
	_ = ts.Append(context.Background(), "s-1", Message{Role: "assistant", Text: "Hi there!"})
	h := NewHandler(newFakeConversation(), ts, logging.New("error"))

	w := httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/chat/history?session=s-1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "user", resp.Messages[0].Role)
	assert.Equal(t, "Hi there!", resp.Messages[1].Text)
}

func TestHandleHistoryParams(t *testing.T) {
	h := NewHandler(newFakeConversation(), nil, logging.New("error"))

	w := httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/chat/history", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/chat/history?session=s-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[]}`, w.Body.String())
}
