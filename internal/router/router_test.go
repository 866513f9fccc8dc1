package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/observability"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/session"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/throttle"
)

func newTestServer(t *testing.T, store table.Store, limiter *throttle.Limiter) http.Handler {
	t.Helper()
	tbl := table.New(store, table.Options{Limiter: limiter})
	svc := meeting.NewService(tbl, meeting.Options{})
	sessions, err := session.NewManager(session.Config{Issuer: "test", TTL: time.Hour}, nil)
	require.NoError(t, err)
	h := meeting.NewHandler(svc, sessions, "GM", limiter.Remaining, nil)
	return RegisterRoutes(Deps{
		Meeting:     h,
		Sessions:    sessions,
		Metrics:     observability.NewCollector("test"),
		CORSOrigins: []string{"http://localhost:3000"},
	})
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, BasePath+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler, user, pw string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/login", "", map[string]string{"user_id": user, "password": pw})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp meeting.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthAndHeaders(t *testing.T) {
	h := newTestServer(t, table.NewMemoryStore(), throttle.New(0, nil))

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = do(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")

	rec = do(t, h, http.MethodGet, "/.well-known/jwks.json", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"RS256"`)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, table.NewMemoryStore(), throttle.New(0, nil))

	req := httptest.NewRequest(http.MethodOptions, BasePath+"/events", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMeetingFlow(t *testing.T) {
	h := newTestServer(t, table.NewMemoryStore(), throttle.New(0, nil))

	assert.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/users", "", map[string]string{"user_id": "alice", "password": "pw123a"}).Code)
	assert.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/users", "", map[string]string{"user_id": "bob", "password": "pw123b"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/users", "", map[string]string{"user_id": "carol", "password": "123456"}).Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/users", "", map[string]string{"user_id": "alice", "password": "pw123a"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/users", "", map[string]string{"user_id": "dave"}).Code)

	rec := do(t, h, http.MethodPost, "/login", "", map[string]string{"user_id": "alice", "password": "nope12"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/me", "", nil).Code)

	alice := login(t, h, "alice", "pw123a")
	bob := login(t, h, "bob", "pw123b")

	rec = do(t, h, http.MethodPost, "/friend-requests", alice, map[string]string{"to": "bob"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"auto_accepted":false}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/friend-requests", bob, nil)
	assert.JSONEq(t, `{"friend_requests":["alice"]}`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPost, "/friend-requests/alice/accept", bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/friend-requests/alice/reject", bob, nil).Code)

	rec = do(t, h, http.MethodGet, "/friends", alice, nil)
	assert.JSONEq(t, `{"friends":["bob"]}`, rec.Body.String())

	assert.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/groups", alice, map[string]string{"name": "study"}).Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/groups/study/members", bob, nil).Code)
	assert.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/groups/study/members", alice, map[string]string{"user_id": "bob"}).Code)

	rec = do(t, h, http.MethodGet, "/groups", bob, nil)
	assert.JSONEq(t, `{"groups":{"study":["alice","bob"]}}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/events", bob, map[string]string{
		"group_name": "study", "event_title": "Review", "event_date": "2099-01-01", "event_summary": "desc",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ev struct {
		ActivityID string `json:"activity_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	require.NotEmpty(t, ev.ActivityID)

	rec = do(t, h, http.MethodPost, "/events", bob, map[string]string{"group_name": "study", "event_title": "Bad", "event_date": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/events/"+ev.ActivityID+"/participation", alice, map[string]string{"attending": "yes"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"attending":"yes"`)
	assert.Contains(t, rec.Body.String(), `"participants_yes":["alice"]`)

	rec = do(t, h, http.MethodGet, "/events?group=study", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ev.ActivityID)

	rec = do(t, h, http.MethodGet, "/events/"+ev.ActivityID+"/roster.csv", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "user_id,attending\nalice,yes\n", rec.Body.String())

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodDelete, "/events/"+ev.ActivityID, alice, nil).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/events/"+ev.ActivityID, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/events/"+ev.ActivityID, bob, nil).Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/groups/study/members/bob", alice, nil).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/groups/study", alice, nil).Code)
}

func TestAdminRoutes(t *testing.T) {
	h := newTestServer(t, table.NewMemoryStore(), throttle.New(0, nil))
	for _, u := range []string{"alice", "GM"} {
		require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/users", "", map[string]string{"user_id": u, "password": "pw123a"}).Code)
	}
	alice := login(t, h, "alice", "pw123a")
	gm := login(t, h, "GM", "pw123a")

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/admin/table", alice, nil).Code)

	rec := do(t, h, http.MethodGet, "/admin/table", gm, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dump struct {
		Version int64       `json:"version"`
		Rows    []table.Row `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dump))
	assert.Len(t, dump.Rows, 2)
	assert.Equal(t, int64(2), dump.Version)
	for _, r := range dump.Rows {
		assert.Equal(t, table.RedactedPassword, r.Get(table.ColPassword))
	}
	assert.NotContains(t, rec.Body.String(), "pw123a")

	rec = do(t, h, http.MethodPost, "/admin/sweep", gm, nil)
	assert.JSONEq(t, `{"removed":0}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/admin/integrity", gm, nil)
	assert.JSONEq(t, `{"violations":[]}`, rec.Body.String())
}

func TestThrottledWriteReturns429(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := newTestServer(t, table.NewMemoryStore(), throttle.New(throttle.DefaultCooldown, clock))

	assert.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/users", "", map[string]string{"user_id": "alice", "password": "pw123a"}).Code)

	rec := do(t, h, http.MethodPost, "/users", "", map[string]string{"user_id": "bob", "password": "pw123b"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

type downStore struct{}

func (downStore) Fetch(ctx context.Context) (*table.Snapshot, error) {
	return nil, errors.New("connection refused")
}

func (downStore) Replace(ctx context.Context, snap *table.Snapshot, checkVersion bool) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestTransportFailureReturns502(t *testing.T) {
	h := newTestServer(t, downStore{}, throttle.New(0, nil))

	rec := do(t, h, http.MethodPost, "/users", "", map[string]string{"user_id": "alice", "password": "pw123a"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
