package integration

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	handler "github.com/vncsmyrnk/ballot/internal/adapters/handler/http"
	repo "github.com/vncsmyrnk/ballot/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/ballot/internal/adapters/stream/websocket"
	"github.com/vncsmyrnk/ballot/internal/core/ports"
	"github.com/vncsmyrnk/ballot/internal/core/services"
)

const (
	jwtSecret     = "test-secret"
	administrator = "owner@example.com"
)

type TestApp struct {
	DB          *sql.DB
	Server      *httptest.Server
	Client      *http.Client
	BallotID    uuid.UUID
	Reports     ports.ReportService
	Hub         *websocket.Hub
	DBContainer testcontainers.Container
	cancel      context.CancelFunc
}

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

// setupTestApp wires the full server against a fresh Postgres container.
func setupTestApp(t *testing.T) *TestApp {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	require.NoError(t, repo.ApplyUpMigrations(ctx, db))

	snapshots := repo.NewSnapshotRepository(db)
	events := repo.NewEventRepository(db)

	ballotID := uuid.New()
	ballot, err := services.LoadBallot(ctx, snapshots, ballotID, administrator)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	ballotSvc := services.NewBallotService(ballot, snapshots, events, logger, hub)
	authSvc := services.NewAuthService(nil, []byte(jwtSecret), "", time.Hour)

	router := handler.NewHandler(
		handler.NewBallotHandler(ballotSvc),
		handler.NewUserHandler(ballotSvc),
		nil,
		authSvc,
		websocket.NewHandler(hub, []string{"*"}),
		nil,
		[]string{"*"},
	)
	server := httptest.NewServer(router)

	return &TestApp{
		DB:          db,
		Server:      server,
		Client:      server.Client(),
		BallotID:    ballotID,
		Reports:     services.NewReportService(snapshots),
		Hub:         hub,
		DBContainer: dbContainer,
		cancel:      cancel,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.cancel()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

func createToken(t *testing.T, identity string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": identity,
		"exp": time.Now().Add(15 * time.Minute).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signedToken
}
