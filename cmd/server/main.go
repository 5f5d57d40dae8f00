package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/vncsmyrnk/ballot/internal/adapters/handler/http"
	"github.com/vncsmyrnk/ballot/internal/adapters/notify/redis"
	"github.com/vncsmyrnk/ballot/internal/adapters/oauth/google"
	"github.com/vncsmyrnk/ballot/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/ballot/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/ballot/internal/adapters/stream/websocket"
	"github.com/vncsmyrnk/ballot/internal/config"
	"github.com/vncsmyrnk/ballot/internal/core/ports"
	"github.com/vncsmyrnk/ballot/internal/core/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		snapshots ports.SnapshotRepository
		events    ports.EventRepository
	)
	if cfg.Postgres.Enabled() {
		db, err := sql.Open("postgres", cfg.Postgres.ConnString())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return err
		}
		snapshots = postgres.NewSnapshotRepository(db)
		events = postgres.NewEventRepository(db)
		logger.Info("using postgres storage", "host", cfg.Postgres.Host, "db", cfg.Postgres.DB)
	} else {
		snapshots = memory.NewSnapshotRepository()
		events = memory.NewEventRepository(cfg.EventLogSize)
		logger.Warn("POSTGRES_HOST not set, ballot state is kept in memory only")
	}

	ballot, err := services.LoadBallot(ctx, snapshots, cfg.BallotID, cfg.AdministratorIdentity)
	if err != nil {
		return err
	}

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	observers := []ports.Observer{hub}

	if cfg.RedisAddr != "" {
		client, err := redis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		observers = append(observers, redis.NewPublisher(client, cfg.RedisChannel))
		logger.Info("publishing events to redis", "channel", cfg.RedisChannel)
	}

	ballotService := services.NewBallotService(ballot, snapshots, events, logger, observers...)
	authService := services.NewAuthService(google.NewVerifier(), []byte(cfg.JWTSecret), cfg.GoogleClientID, cfg.TokenTTL)

	handler := http.NewHandler(
		http.NewBallotHandler(ballotService),
		http.NewUserHandler(ballotService),
		http.NewAuthHandler(authService, cfg.RedirectURL, cfg.CookieDomain, cfg.CookieSameSite, cfg.TokenTTL),
		authService,
		websocket.NewHandler(hub, cfg.AllowedOrigins),
		http.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		cfg.AllowedOrigins,
	)
	server := &stdhttp.Server{Addr: cfg.Addr, Handler: handler}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "ballot_id", cfg.BallotID, "phase", ballot.Phase(), "session_id", ballot.SessionID())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
