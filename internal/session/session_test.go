package session

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, clock clockwork.Clock) *Manager {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	m, err := newManagerWithKey(k, Config{Issuer: "test", TTL: time.Hour}, clock)
	require.NoError(t, err)
	return m
}

func TestIssueAndVerify(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := newTestManager(t, clock)

	tok, exp, err := m.Issue("alice")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Hour).Unix(), exp.Unix())

	sub, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestVerify_Expired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := newTestManager(t, clock)
	tok, _, err := m.Issue("alice")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_ForeignKey(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tok, _, err := newTestManager(t, clock).Issue("alice")
	require.NoError(t, err)

	_, err = newTestManager(t, clock).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = newTestManager(t, clock).Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWKS(t *testing.T) {
	m := newTestManager(t, nil)
	keys := m.JWKS()["keys"].([]any)
	require.Len(t, keys, 1)
	jwk := keys[0].(map[string]any)
	assert.Equal(t, "RS256", jwk["alg"])
	assert.Equal(t, m.kid, jwk["kid"])
	assert.Equal(t, "AQAB", jwk["e"])
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SESSION_ISSUER", "")
	t.Setenv("SESSION_TTL", "30m")
	cfg := ConfigFromEnv()
	assert.Equal(t, "meeting-api", cfg.Issuer)
	assert.Equal(t, 30*time.Minute, cfg.TTL)
}

func TestMiddleware(t *testing.T) {
	m := newTestManager(t, clockwork.NewFakeClock())
	tok, _, err := m.Issue("alice")
	require.NoError(t, err)

	var seen string
	h := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFrom(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		status int
		user   string
	}{
		{"valid", "Bearer " + tok, http.StatusOK, "alice"},
		{"lowercase scheme", "bearer " + tok, http.StatusOK, "alice"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"garbage", "Bearer abc", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.user, seen)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Body.String(), `"error":"`)
			}
		})
	}
}
