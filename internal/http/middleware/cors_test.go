package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSOrigins(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"listed", []string{"https://clinic.example"}, "https://clinic.example", "https://clinic.example"},
		{"listed with slash", []string{"https://clinic.example/"}, "https://clinic.example", "https://clinic.example"},
		{"unknown", []string{"https://clinic.example"}, "https://other.example", ""},
		{"wildcard", []string{"*"}, "https://random.example", "https://random.example"},
		{"no origin", []string{"*"}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/intake/sessions", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			called := false
			CORS(tt.allowed)(okHandler(&called)).ServeHTTP(rec, req)

			assert.True(t, called)
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.want != "" {
				assert.Equal(t, corsAllowedMethods, rec.Header().Get("Access-Control-Allow-Methods"))
				assert.Equal(t, "X-Request-ID", rec.Header().Get("Access-Control-Expose-Headers"))
			}
		})
	}
}

func TestCORSHandlesPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/v1/intake/sessions", nil)
	req.Header.Set("Origin", "https://clinic.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	called := false

	CORS([]string{"https://clinic.example"})(okHandler(&called)).ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
