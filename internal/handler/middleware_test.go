package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTMiddleware(t *testing.T) {
	const secret = "test-secret"
	valid := signToken(t, secret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "auditor",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := signToken(t, secret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "auditor",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	noExp := signToken(t, secret, jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "auditor"})
	wrongKey := signToken(t, "other", jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	wrongAlg := signToken(t, secret, jwt.SigningMethodHS512, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer " + valid, want: http.StatusOK},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "not-bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "empty-token", header: "Bearer   ", want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, want: http.StatusUnauthorized},
		{name: "no-exp", header: "Bearer " + noExp, want: http.StatusUnauthorized},
		{name: "wrong-key", header: "Bearer " + wrongKey, want: http.StatusUnauthorized},
		{name: "wrong-alg", header: "Bearer " + wrongAlg, want: http.StatusUnauthorized},
	}

	r := newTestRouter(&fakeAuditService{}, secret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			w := doRequest(r, http.MethodGet, "/api/v1/audits", "", headers)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestJWTDisabledWithoutSecret(t *testing.T) {
	r := newTestRouter(&fakeAuditService{}, "")
	w := doRequest(r, http.MethodGet, "/api/v1/audits", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSMiddleware(t *testing.T) {
	r := NewRouter(RouterConfig{
		Audits:         NewAuditHandler(&fakeAuditService{}),
		AllowedOrigins: []string{"https://audit.example.com", " "},
		JWTSecret:      "secret",
	})

	w := doRequest(r, http.MethodOptions, "/api/v1/audits", "", map[string]string{"Origin": "https://audit.example.com"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://audit.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = doRequest(r, http.MethodGet, "/ping", "", map[string]string{"Origin": "https://evil.example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
