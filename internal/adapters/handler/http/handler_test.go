package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/vncsmyrnk/ballot/internal/adapters/handler/http"
	"github.com/vncsmyrnk/ballot/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/ballot/internal/core/domain"
	"github.com/vncsmyrnk/ballot/internal/core/ports"
	"github.com/vncsmyrnk/ballot/internal/core/services"
)

const (
	owner = "owner@example.com"
	alice = "alice@example.com"
	bob   = "bob@example.com"
)

type testApp struct {
	t      *testing.T
	server *httptest.Server
	auth   *services.AuthService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	auth := services.NewAuthService(nil, []byte("test-secret"), "", time.Hour)
	b := domain.NewBallot(uuid.New(), owner)
	svc := services.NewBallotService(b, memory.NewSnapshotRepository(), memory.NewEventRepository(0), slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := handler.NewHandler(
		handler.NewBallotHandler(svc),
		handler.NewUserHandler(svc),
		handler.NewAuthHandler(auth, "/", "", http.SameSiteLaxMode, time.Hour),
		auth, nil, nil, []string{"*"},
	)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testApp{t: t, server: server, auth: auth}
}

func (a *testApp) do(method, path, identity string, body any) *http.Response {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if identity != "" {
		token, err := a.auth.IssueAccessToken(identity)
		require.NoError(a.t, err)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	}
	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	a.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestBallotFlowOverHTTP(t *testing.T) {
	app := newTestApp(t)

	for _, id := range []string{alice, bob} {
		resp := app.do(http.MethodPost, "/api/ballot/voters", owner, map[string]string{"identity": id})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := app.do(http.MethodPost, "/api/ballot/phase/start-proposals-registration", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[ports.BallotState](t, resp)
	assert.Equal(t, domain.ProposalsRegistrationStarted, state.Phase)

	resp = app.do(http.MethodPost, "/api/ballot/proposals", alice, map[string]string{"description": "Bike lanes"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = app.do(http.MethodPost, "/api/ballot/proposals", bob, map[string]string{"description": "Trees"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = app.do(http.MethodGet, "/api/ballot/proposals?author="+bob, alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mine := decode[[]domain.Proposal](t, resp)
	require.Len(t, mine, 1)
	assert.Equal(t, 1, mine[0].ID)

	resp = app.do(http.MethodPost, "/api/ballot/phase/next", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = app.do(http.MethodPost, "/api/ballot/phase/start-voting-session", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, id := range []string{alice, bob} {
		resp = app.do(http.MethodPost, "/api/ballot/votes", id, map[string]int{"proposal_id": 1})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp = app.do(http.MethodPost, "/api/ballot/votes", alice, map[string]int{"proposal_id": 0})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_voted", decode[map[string]any](t, resp)["error"])

	resp = app.do(http.MethodPost, "/api/ballot/phase/end-voting-session", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = app.do(http.MethodPost, "/api/ballot/tally", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(http.MethodGet, "/api/ballot/winner", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	winner := decode[domain.Winner](t, resp)
	assert.Equal(t, 1, winner.ProposalID)
	assert.Equal(t, uint64(2), winner.VoteCount)
	assert.Equal(t, "Trees", winner.Description)

	resp = app.do(http.MethodGet, "/api/ballot/events?kind=VoteCast", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.Event](t, resp), 2)

	resp = app.do(http.MethodPost, "/api/ballot/reset", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint64(1), decode[ports.BallotState](t, resp).SessionID)

	resp = app.do(http.MethodGet, "/api/ballot/sessions/0/proposals", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.Proposal](t, resp), 2)
}

func TestErrorMapping(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(http.MethodPost, "/api/ballot/voters", "", map[string]string{"identity": alice})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.do(http.MethodPost, "/api/ballot/voters", alice, map[string]string{"identity": bob})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = app.do(http.MethodPost, "/api/ballot/voters", owner, map[string]string{"identity": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.do(http.MethodPost, "/api/ballot/voters", owner, map[string]string{"identity": alice})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = app.do(http.MethodPost, "/api/ballot/voters", owner, map[string]string{"identity": alice})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = app.do(http.MethodPost, "/api/ballot/phase/end-voting-session", owner, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "invalid_phase", body["error"])
	assert.Equal(t, "Voting session havent started yet", body["message"])
	assert.Equal(t, "VotingSessionStarted", body["expected_phase"])
	assert.Equal(t, "RegisteringVoters", body["current_phase"])

	resp = app.do(http.MethodPost, "/api/ballot/phase/close", owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = app.do(http.MethodPost, "/api/ballot/phase/next", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(http.MethodPost, "/api/ballot/proposals", alice, map[string]string{"description": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.do(http.MethodGet, "/api/ballot/proposals/7", alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = app.do(http.MethodGet, "/api/ballot/proposals/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.do(http.MethodPost, "/api/ballot/votes", alice, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.do(http.MethodGet, "/api/ballot/events?session=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetMe(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(http.MethodGet, "/api/me", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[ports.CallerStatus](t, resp)
	assert.True(t, me.IsAdministrator)
	assert.False(t, me.Voter.IsRegistered)

	resp = app.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	app := newTestApp(t)
	token, err := app.auth.IssueAccessToken(owner)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, app.server.URL+"/api/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogoutClearsCookie(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(http.MethodPost, "/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == "access_token" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestGoogleCallbackRequiresCredential(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.server.Client().PostForm(app.server.URL+"/auth/google/callback", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRateLimiter(t *testing.T) {
	assert.Nil(t, handler.NewRateLimiter(0, 1))

	limiter := handler.NewRateLimiter(1, 2)
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"), "limits are per client")

	h := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestGetVoterDecodesEscapedIdentity(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(http.MethodPost, "/api/ballot/voters", owner, map[string]string{"identity": alice})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for _, path := range []string{"alice@example.com", "alice%40example.com"} {
		resp = app.do(http.MethodGet, "/api/ballot/voters/"+path, alice, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		voter := decode[domain.Voter](t, resp)
		assert.Equal(t, alice, voter.Identity, path)
		assert.True(t, voter.IsRegistered, path)
	}
}
