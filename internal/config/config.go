package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// ballotNamespace seeds ballot ids derived from the administrator.
var ballotNamespace = uuid.MustParse("6b1f8f8e-1d4c-4c1e-9a52-6f0d0b3e7a10")

type Config struct {
	Addr string

	AdministratorIdentity string
	BallotID              uuid.UUID

	JWTSecret      string
	TokenTTL       time.Duration
	GoogleClientID string
	RedirectURL    string
	CookieDomain   string
	CookieSameSite http.SameSite
	AllowedOrigins []string

	Postgres Postgres

	RedisAddr    string
	RedisChannel string

	RateLimit    float64
	RateBurst    int
	EventLogSize int

	LogLevel slog.Level
}

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
}

// Enabled reports whether a Postgres host was configured.
func (p Postgres) Enabled() bool {
	return p.Host != ""
}

func (p Postgres) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DB)
}

// Load reads .env when present, then environment variables, then flags in
// args. Flags win over the environment.
func Load(args []string) (Config, error) {
	LoadDotEnv()
	return parse(args)
}

func parse(args []string) (Config, error) {
	var (
		cfg            Config
		ballotID       string
		sameSite       string
		allowedOrigins string
		logLevel       string
	)

	fs := flag.NewFlagSet("ballot", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Addr, "addr", env("ADDR", "0.0.0.0:8080"), "HTTP listen address")
	fs.StringVar(&cfg.AdministratorIdentity, "admin", os.Getenv("ADMIN_IDENTITY"), "Identity of the ballot administrator")
	fs.StringVar(&ballotID, "ballot-id", os.Getenv("BALLOT_ID"), "Ballot id")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "Access token signing secret")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", envDuration("TOKEN_TTL", 12*time.Hour), "Access token lifetime")
	fs.StringVar(&cfg.GoogleClientID, "google-client-id", os.Getenv("GOOGLE_CLIENT_ID"), "Google OAuth client id")
	fs.StringVar(&cfg.RedirectURL, "redirect-url", env("REDIRECT_URL", "/"), "Redirect after login")
	fs.StringVar(&cfg.CookieDomain, "cookie-domain", os.Getenv("COOKIE_DOMAIN"), "Access token cookie domain")
	fs.StringVar(&sameSite, "cookie-samesite", env("COOKIE_SAMESITE", "lax"), "Access token cookie SameSite (lax, strict, none)")
	fs.StringVar(&allowedOrigins, "allowed-origins", env("ALLOWED_ORIGINS", "*"), "Comma separated CORS origins")
	pg := PostgresFlags(fs)
	fs.StringVar(&cfg.RedisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "Redis address for event publishing")
	fs.StringVar(&cfg.RedisChannel, "redis-channel", env("REDIS_CHANNEL", "ballot:events"), "Redis pub/sub channel")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", envFloat("RATE_LIMIT", 20), "Requests per second per client, 0 disables")
	fs.IntVar(&cfg.RateBurst, "rate-burst", envInt("RATE_BURST", 40), "Rate limiter burst")
	fs.IntVar(&cfg.EventLogSize, "event-log-size", envInt("EVENT_LOG_SIZE", 1024), "In-memory event history size")
	fs.StringVar(&logLevel, "log-level", env("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Postgres = *pg

	var errs []error
	if strings.TrimSpace(cfg.AdministratorIdentity) == "" {
		errs = append(errs, errors.New("ADMIN_IDENTITY is required"))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	if ballotID == "" {
		cfg.BallotID = uuid.NewSHA1(ballotNamespace, []byte(cfg.AdministratorIdentity))
	} else {
		id, err := uuid.Parse(ballotID)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid BALLOT_ID: %w", err))
		}
		cfg.BallotID = id
	}

	switch strings.ToLower(sameSite) {
	case "lax":
		cfg.CookieSameSite = http.SameSiteLaxMode
	case "strict":
		cfg.CookieSameSite = http.SameSiteStrictMode
	case "none":
		cfg.CookieSameSite = http.SameSiteNoneMode
	default:
		errs = append(errs, fmt.Errorf("invalid COOKIE_SAMESITE %q", sameSite))
	}

	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// PostgresFlags registers the database flags on fs, defaulting to the
// POSTGRES_* environment variables.
func PostgresFlags(fs *flag.FlagSet) *Postgres {
	var p Postgres
	fs.StringVar(&p.Host, "db-host", os.Getenv("POSTGRES_HOST"), "Database host")
	fs.StringVar(&p.Port, "db-port", env("POSTGRES_PORT", "5432"), "Database port")
	fs.StringVar(&p.User, "db-user", os.Getenv("POSTGRES_USER"), "Database user")
	fs.StringVar(&p.Password, "db-pass", os.Getenv("POSTGRES_PASSWORD"), "Database password")
	fs.StringVar(&p.DB, "db-name", os.Getenv("POSTGRES_DB"), "Database name")
	return &p
}

// LoadDotEnv loads .env into the environment when the file exists.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}
}

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
