package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedAdminToken(t *testing.T, method jwt.SigningMethod, secret, role string, exp *jwt.NumericDate) string {
	t.Helper()
	claims := AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "jane",
			ExpiresAt: exp,
		},
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAdminJWT(t *testing.T) {
	soon := jwt.NewNumericDate(time.Now().Add(5 * time.Minute))
	past := jwt.NewNumericDate(time.Now().Add(-time.Minute))

	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"auth disabled", "", "Bearer x", http.StatusUnauthorized},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"not bearer", "secret", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "secret", "Bearer " + signedAdminToken(t, jwt.SigningMethodHS256, "wrong", "admin", soon), http.StatusUnauthorized},
		{"expired", "secret", "Bearer " + signedAdminToken(t, jwt.SigningMethodHS256, "secret", "admin", past), http.StatusUnauthorized},
		{"no expiry", "secret", "Bearer " + signedAdminToken(t, jwt.SigningMethodHS256, "secret", "admin", nil), http.StatusUnauthorized},
		{"other hmac", "secret", "Bearer " + signedAdminToken(t, jwt.SigningMethodHS512, "secret", "admin", soon), http.StatusUnauthorized},
		{"patient role", "secret", "Bearer " + signedAdminToken(t, jwt.SigningMethodHS256, "secret", "patient", soon), http.StatusForbidden},
		{"staff", "secret", "Bearer " + signedAdminToken(t, jwt.SigningMethodHS256, "secret", "staff", soon), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/patients/p-1/changes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			AdminJWT(tt.secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAdminJWTPutsClaimsInContext(t *testing.T) {
	token := signedAdminToken(t, jwt.SigningMethodHS256, "secret", "admin", jwt.NewNumericDate(time.Now().Add(time.Minute)))
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	var actor string
	AdminJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := AdminClaimsFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "admin", claims.Role)
		actor = AdminActor(r.Context())
	})).ServeHTTP(rec, req)

	assert.Equal(t, "admin:jane", actor)
	assert.Equal(t, "admin:unknown", AdminActor(req.Context()))
}
