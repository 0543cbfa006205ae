package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"threadview/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator() *Authenticator {
	return NewAuthenticator("test-secret", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAuthenticator_RoundTrip(t *testing.T) {
	auth := newTestAuthenticator()

	token, err := auth.GenerateToken(42)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "42", claims.Subject)
}

func TestAuthenticator_RejectsOtherSecret(t *testing.T) {
	token, err := NewAuthenticator("other", slog.Default()).GenerateToken(42)
	require.NoError(t, err)

	_, err = newTestAuthenticator().ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthenticator_RejectsExpired(t *testing.T) {
	auth := newTestAuthenticator()
	auth.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, err := auth.GenerateToken(42)
	require.NoError(t, err)

	auth.now = time.Now
	_, err = auth.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidToken))
}

func TestAuthenticator_Optional(t *testing.T) {
	auth := newTestAuthenticator()
	token, err := auth.GenerateToken(9)
	require.NoError(t, err)

	tests := []struct {
		name    string
		target  string
		header  string
		want    int
		wantErr bool
	}{
		{name: "guest", target: "/ws"},
		{name: "header", target: "/actions", header: "Bearer " + token, want: 9},
		{name: "query param", target: "/ws?token=" + token, want: 9},
		{name: "bad header format", target: "/actions", header: "Token " + token, wantErr: true},
		{name: "bad token", target: "/ws?token=garbage", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			userID, err := auth.Optional(req)
			if tt.wantErr {
				assert.True(t, utils.IsAuthError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, userID)
		})
	}
}

func TestRequire(t *testing.T) {
	auth := newTestAuthenticator()
	token, err := auth.GenerateToken(7)
	require.NoError(t, err)

	var gotUserID int
	handler := auth.Require(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, 7, gotUserID)
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := CORSMiddleware(DefaultCORSConfig([]string{"https://forum.example"}))(next)

	preflight := httptest.NewRequest(http.MethodOptions, "/actions", nil)
	preflight.Header.Set("Origin", "https://forum.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, preflight)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://forum.example", rec.Header().Get("Access-Control-Allow-Origin"))

	other := httptest.NewRequest(http.MethodGet, "/page", nil)
	other.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
