package intake

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/patient-intake/pkg/logging"
)

// Handler exposes conversations over HTTP.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the session endpoints on r. messageMW wraps only the message
// endpoint, after routing, so it can read {sessionID}.
func (h *Handler) Routes(r chi.Router, messageMW ...func(http.Handler) http.Handler) {
	r.Post("/sessions", h.StartSession)
	r.Get("/sessions/{sessionID}", h.GetSession)
	r.With(messageMW...).Post("/sessions/{sessionID}/messages", h.PostMessage)
	r.Delete("/sessions/{sessionID}", h.AbandonSession)
}

// MessageRequest is the body of POST /sessions/{sessionID}/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// StartSession handles POST /sessions
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Start(r.Context())
	if err != nil {
		h.logger.Error("failed to start session", "error", err)
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// PostMessage handles POST /sessions/{sessionID}/messages
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	out, err := h.svc.ProcessMessage(r.Context(), sessionID, req.Text)
	if err != nil {
		status := statusFor(err)
		if out.SessionID == "" {
			http.Error(w, http.StatusText(status), status)
			return
		}
		writeJSON(w, status, out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetSession handles GET /sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		status := statusFor(err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// AbandonSession handles DELETE /sessions/{sessionID}
func (h *Handler) AbandonSession(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Abandon(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		status := statusFor(err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func statusFor(err error) int {
	var persistErr *PersistenceError
	var extErr *ExternalServiceError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSessionEnded), errors.Is(err, ErrVersionConflict):
		return http.StatusConflict
	case errors.As(err, &persistErr), errors.As(err, &extErr):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
