package websocket_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/ballot/internal/adapters/stream/websocket"
	"github.com/vncsmyrnk/ballot/internal/core/domain"
)

func startHub(t *testing.T) (*websocket.Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := websocket.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run(ctx)

	server := httptest.NewServer(websocket.NewHandler(hub, []string{"*"}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, query string) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/" + query
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *gorilla.Conn) domain.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var e domain.Event
	require.NoError(t, json.Unmarshal(msg, &e))
	return e
}

func TestHubBroadcasts(t *testing.T) {
	hub, server := startHub(t)
	all := dial(t, server, "")
	votes := dial(t, server, "?kind=VoteCast")
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 5*time.Second, 10*time.Millisecond)

	ballotID := uuid.New()
	next := domain.ProposalsRegistrationStarted
	require.NoError(t, hub.Notify(context.Background(), domain.Event{Seq: 1, Kind: domain.EventPhaseChanged, BallotID: ballotID, NewPhase: &next}))
	proposal := 0
	require.NoError(t, hub.Notify(context.Background(), domain.Event{Seq: 2, Kind: domain.EventVoteCast, BallotID: ballotID, Identity: "alice", ProposalID: &proposal}))

	first := readEvent(t, all)
	assert.Equal(t, uint64(1), first.Seq)
	require.NotNil(t, first.NewPhase)
	assert.Equal(t, domain.ProposalsRegistrationStarted, *first.NewPhase)
	assert.Equal(t, uint64(2), readEvent(t, all).Seq)

	vote := readEvent(t, votes)
	assert.Equal(t, domain.EventVoteCast, vote.Kind)
	assert.Equal(t, "alice", vote.Identity)
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, "")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHandlerRejectsUnknownKind(t *testing.T) {
	_, server := startHub(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?kind=Nope"
	_, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
