package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/patient-intake/internal/intake"
	"github.com/wolfman30/patient-intake/pkg/logging"
	"golang.org/x/net/websocket"
)

// Conversation is the intake surface the chat drives.
type Conversation interface {
	Start(ctx context.Context) (intake.Outcome, error)
	ProcessMessage(ctx context.Context, sessionID, text string) (intake.Outcome, error)
	Abandon(ctx context.Context, sessionID string) (intake.Outcome, error)
	Get(ctx context.Context, sessionID string) (*intake.Session, error)
}

// Handler serves the chat over WebSocket with an HTTP fallback.
type Handler struct {
	conv       Conversation
	transcript TranscriptStore
	logger     *logging.Logger
	now        func() time.Time
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping", "end"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string    `json:"type"` // "session", "message", "history", "ended", "pong", "error"
	Text      string    `json:"text,omitempty"`
	Role      string    `json:"role,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	State     string    `json:"state,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
}

func NewHandler(conv Conversation, transcript TranscriptStore, logger *logging.Logger) *Handler {
	if conv == nil {
		panic("webchat: conversation cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		conv:       conv,
		transcript: transcript,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// HandleWebSocket upgrades to WebSocket. Pass ?session=<id> to resume.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	sessionID := r.URL.Query().Get("session")

	if sessionID == "" {
		out, err := h.conv.Start(ctx)
		if err != nil {
			h.logger.Error("webchat: failed to start session", "error", err)
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "Sorry, chat is unavailable right now."})
			return
		}
		sessionID = out.SessionID
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID, State: string(out.State)})
		_ = websocket.JSON.Send(conn, h.reply(ctx, sessionID, out))
	} else {
		sess, err := h.conv.Get(ctx, sessionID)
		if err != nil {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "That chat session has expired.", Error: intake.ErrorKind(err)})
			return
		}
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID, State: string(sess.State)})
		if history := h.history(ctx, sessionID, 50); len(history) > 0 {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
		}
	}

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		var (
			out intake.Outcome
			err error
		)
		switch msg.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		case "end":
			out, err = h.conv.Abandon(ctx, sessionID)
		case "message":
			if strings.TrimSpace(msg.Text) == "" {
				continue
			}
			h.record(ctx, sessionID, Message{Role: "user", Text: msg.Text})
			out, err = h.conv.ProcessMessage(ctx, sessionID, msg.Text)
		default:
			continue
		}

		if err != nil && out.SessionID == "" {
			h.logger.Error("webchat: turn failed", "session_id", sessionID, "error", err)
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again.", Error: intake.ErrorKind(err)})
			if errors.Is(err, intake.ErrSessionEnded) || errors.Is(err, intake.ErrSessionNotFound) {
				return
			}
			continue
		}
		_ = websocket.JSON.Send(conn, h.reply(ctx, sessionID, out))
		if out.State.Terminal() {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "ended", SessionID: sessionID})
			return
		}
	}
}

// reply records the assistant turn and builds its frame.
func (h *Handler) reply(ctx context.Context, sessionID string, out intake.Outcome) OutboundMessage {
	now := h.now()
	h.record(ctx, sessionID, Message{Role: "assistant", Text: out.Reply, State: string(out.State), Timestamp: now})
	return OutboundMessage{
		Type:      "message",
		Role:      "assistant",
		Text:      out.Reply,
		SessionID: sessionID,
		State:     string(out.State),
		Error:     out.ErrorKind,
		Timestamp: now.Format(time.RFC3339),
	}
}

func (h *Handler) record(ctx context.Context, sessionID string, msg Message) {
	if h.transcript == nil {
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = h.now()
	}
	if err := h.transcript.Append(ctx, sessionID, msg); err != nil {
		h.logger.Warn("webchat: transcript append failed", "session_id", sessionID, "error", err)
	}
}

func (h *Handler) history(ctx context.Context, sessionID string, limit int64) []Message {
	if h.transcript == nil {
		return nil
	}
	msgs, err := h.transcript.List(ctx, sessionID, limit)
	if err != nil {
		h.logger.Warn("webchat: failed to load history", "session_id", sessionID, "error", err)
		return nil
	}
	return msgs
}

// HandleMessage is the HTTP fallback. An empty session_id starts a new session.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	var replies []OutboundMessage
	if req.SessionID == "" {
		out, err := h.conv.Start(ctx)
		if err != nil {
			h.logger.Error("webchat: failed to start session", "error", err)
			http.Error(w, "failed to start session", http.StatusInternalServerError)
			return
		}
		req.SessionID = out.SessionID
		replies = append(replies, h.reply(ctx, req.SessionID, out))
	}

	if strings.TrimSpace(req.Text) != "" {
		h.record(ctx, req.SessionID, Message{Role: "user", Text: req.Text})
		out, err := h.conv.ProcessMessage(ctx, req.SessionID, req.Text)
		if err != nil && out.SessionID == "" {
			status := http.StatusInternalServerError
			if errors.Is(err, intake.ErrSessionNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, http.StatusText(status), status)
			return
		}
		replies = append(replies, h.reply(ctx, req.SessionID, out))
	}

	if len(replies) == 0 {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": req.SessionID,
		"replies":    replies,
	})
}

// HandleHistory returns the transcript for ?session=<id>.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	msgs := []Message{}
	if h.transcript != nil {
		var err error
		msgs, err = h.transcript.List(r.Context(), sessionID, 100)
		if err != nil {
			h.logger.Error("webchat: failed to load history", "error", err)
			http.Error(w, "failed to load history", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": msgs})
}
