package intake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newTestService(t, newHarness(t))
	r := chi.NewRouter()
	NewHandler(svc, nil).Routes(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerConversation(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var started Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.Equal(t, "sess-1", started.SessionID)
	assert.NotEmpty(t, started.Reply)

	rec = doJSON(t, r, http.MethodPost, "/sessions/sess-1/messages", `{"text":"I'm a new patient"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, StateCollectPatient, out.State)

	rec = doJSON(t, r, http.MethodGet, "/sessions/sess-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sess Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, StateCollectPatient, sess.State)

	rec = doJSON(t, r, http.MethodDelete, "/sessions/sess-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/sessions/sess-1/messages", `{"text":"hello"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/sessions/sess-1/messages", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/sessions/sess-1/messages", `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/sessions/unknown/messages", `{"text":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/sessions/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerFailedTurnReturnsRetryReply(t *testing.T) {
	h := newHarness(t)
	h.withDeps(t, func(d *Dependencies) { d.Extractor = failingExtractor{} })
	svc, store := newTestService(t, h)
	require.NoError(t, store.Create(t.Context(), NewSession("sess-x", fixedNow)))
	r := chi.NewRouter()
	NewHandler(svc, nil).Routes(r)

	rec := doJSON(t, r, http.MethodPost, "/sessions/sess-x/messages", `{"text":"I'm new"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var out Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "external_service", out.ErrorKind)
	assert.Contains(t, out.Reply, "try again")
}
