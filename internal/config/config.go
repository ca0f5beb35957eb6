package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	AMQP         AMQPConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// RateLimitConfig bounds requests per client IP in a fixed window.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowSeconds     int
}

// AMQPConfig configures the optional RabbitMQ event sink.
type AMQPConfig struct {
	URL          string
	Queue        string
	QueueDurable bool
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// DefaultJWTSecret is the development signing key. Validate rejects it
// outside development.
const DefaultJWTSecret = "dev-secret"

// Load reads configuration from the environment, after merging a local .env
// file when present. Malformed numbers and booleans are reported together.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := &envReader{}
	cfg := &Config{
		App: AppConfig{
			Name:                  env.text("APP_NAME", "helpdesk-service"),
			Env:                   env.text("APP_ENV", "development"),
			Host:                  env.text("APP_HOST", "0.0.0.0"),
			Port:                  env.text("APP_PORT", "8080"),
			Version:               env.text("APP_VERSION", "dev"),
			RequestTimeoutSeconds: env.integer("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(env.integer("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(env.integer("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  env.boolean("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(env.integer("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(env.integer("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     env.text("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       env.integer("REDIS_DB", 0),
		},
		Logger: LoggerConfig{
			Level: env.text("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             env.text("AUTH_JWT_SECRET", DefaultJWTSecret),
			AccessTokenTTLMinutes: env.integer("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            env.integer("AUTH_BCRYPT_COST", 12),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: env.integer("RATE_LIMIT_PER_MINUTE", 100),
			WindowSeconds:     env.integer("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		AMQP: AMQPConfig{
			URL:          os.Getenv("AMQP_URL"),
			Queue:        env.text("AMQP_QUEUE", "helpdesk.ticket-events"),
			QueueDurable: env.boolean("AMQP_QUEUE_DURABLE", true),
		},
		Notification: NotificationConfig{
			EmailFrom:  env.text("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		},
	}
	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that parsing alone cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.App.Env != "development" && c.App.Env != "test" && c.Auth.JWTSecret == DefaultJWTSecret {
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET must be set when APP_ENV=%s", c.App.Env))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be within 4..31, got %d", c.Auth.BcryptCost))
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL_MINUTES must be positive"))
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}
	if c.Postgres.MinConns > c.Postgres.MaxConns {
		errs = append(errs, errors.New("POSTGRES_MIN_CONNS exceeds POSTGRES_MAX_CONNS"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// Window returns the rate limit window duration.
func (r RateLimitConfig) Window() time.Duration {
	if r.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(r.WindowSeconds) * time.Second
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// envReader reads typed variables and collects parse failures.
type envReader struct {
	errs []error
}

func (e *envReader) text(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func (e *envReader) integer(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return parsed
}

func (e *envReader) boolean(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return parsed
}
