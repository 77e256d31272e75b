package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pstrings "folio/pkg/platform/strings"
	"folio/pkg/validation"
)

// Config is the full process configuration. Everything is read from the
// environment; a .env file in the working directory is loaded first when
// present, without overriding variables that are already set.
type Config struct {
	Server    Server
	Logging   Logging
	Redis     RedisConfig
	Database  DatabaseConfig
	Providers Providers
	Quota     Quota
	Security  Security
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"FOLIO_ADDR" validate:"required"`
	Environment     string        `env:"ENVIRONMENT" validate:"oneof=development staging production test"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

type Logging struct {
	Level  string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `env:"LOG_FORMAT" validate:"oneof=json text"`
}

// RedisConfig configures the remote counter store. An empty URL means
// remote-backed policies fall back to the in-process table.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" validate:"gt=0"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" validate:"gte=0"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" validate:"gt=0"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" validate:"gt=0"`
}

// DatabaseConfig configures the health data source. An empty URL selects
// the embedded snapshot.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" validate:"gt=0"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" validate:"gte=0"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" validate:"gt=0"`
}

// Providers holds third-party credentials. Empty keys disable the feature
// that needs them rather than failing startup.
type Providers struct {
	OpenAIAPIKey       string `env:"OPENAI_API_KEY"`
	OpenAIModel        string `env:"OPENAI_MODEL" validate:"notblank"`
	AnthropicAPIKey    string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel     string `env:"ANTHROPIC_MODEL" validate:"notblank"`
	TurnstileSecretKey string `env:"TURNSTILE_SECRET_KEY"`
	TurnstileVerifyURL string `env:"TURNSTILE_VERIFY_URL" validate:"url"`
}

// Quota holds the tunables of the two shipped policies.
type Quota struct {
	ClassifierDailyLimit int           `env:"CLASSIFIER_DAILY_LIMIT" validate:"gt=0"`
	ChatHourlyLimit      int           `env:"CHAT_HOURLY_LIMIT" validate:"gt=0"`
	StoreTimeout         time.Duration `env:"QUOTA_STORE_TIMEOUT" validate:"gte=1ms"`
}

type Security struct {
	TrustedProxies []string `env:"TRUSTED_PROXIES" validate:"dive,cidr"`
	AdminAPIToken  string   `env:"ADMIN_API_TOKEN"`
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			Environment:     "development",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: Logging{Level: "info", Format: "json"},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  300 * time.Millisecond,
			WriteTimeout: 300 * time.Millisecond,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Providers: Providers{
			OpenAIModel:        "gpt-4o-mini",
			AnthropicModel:     "claude-sonnet-4-20250514",
			TurnstileVerifyURL: "https://challenges.cloudflare.com/turnstile/v0/siteverify",
		},
		Quota: Quota{
			ClassifierDailyLimit: 5,
			ChatHourlyLimit:      10,
			StoreTimeout:         300 * time.Millisecond,
		},
	}
}

// Load reads .env (if any) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv so tests can supply a map.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	r := reader{getenv: getenv}

	r.str("FOLIO_ADDR", &cfg.Server.Addr)
	r.str("ENVIRONMENT", &cfg.Server.Environment)
	r.duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	r.duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	r.duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	r.str("LOG_LEVEL", &cfg.Logging.Level)
	r.str("LOG_FORMAT", &cfg.Logging.Format)

	r.str("REDIS_URL", &cfg.Redis.URL)
	r.integer("REDIS_POOL_SIZE", &cfg.Redis.PoolSize)
	r.integer("REDIS_MIN_IDLE_CONNS", &cfg.Redis.MinIdleConns)
	r.duration("REDIS_DIAL_TIMEOUT", &cfg.Redis.DialTimeout)
	r.duration("REDIS_READ_TIMEOUT", &cfg.Redis.ReadTimeout)
	r.duration("REDIS_WRITE_TIMEOUT", &cfg.Redis.WriteTimeout)

	r.str("DATABASE_URL", &cfg.Database.URL)
	r.integer("DATABASE_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	r.integer("DATABASE_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns)
	r.duration("DATABASE_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)

	r.str("OPENAI_API_KEY", &cfg.Providers.OpenAIAPIKey)
	r.str("OPENAI_MODEL", &cfg.Providers.OpenAIModel)
	r.str("ANTHROPIC_API_KEY", &cfg.Providers.AnthropicAPIKey)
	r.str("ANTHROPIC_MODEL", &cfg.Providers.AnthropicModel)
	r.str("TURNSTILE_SECRET_KEY", &cfg.Providers.TurnstileSecretKey)
	r.str("TURNSTILE_VERIFY_URL", &cfg.Providers.TurnstileVerifyURL)

	r.integer("CLASSIFIER_DAILY_LIMIT", &cfg.Quota.ClassifierDailyLimit)
	r.integer("CHAT_HOURLY_LIMIT", &cfg.Quota.ChatHourlyLimit)
	r.duration("QUOTA_STORE_TIMEOUT", &cfg.Quota.StoreTimeout)

	r.list("TRUSTED_PROXIES", &cfg.Security.TrustedProxies)
	r.str("ADMIN_API_TOKEN", &cfg.Security.AdminAPIToken)

	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section with the shared struct validator.
func (c Config) Validate() error {
	for _, section := range []any{c.Server, c.Logging, c.Redis, c.Database, c.Providers, c.Quota, c.Security} {
		if err := validation.Validate(section); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}

// IsProduction reports whether the server runs in production.
func (c Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(r.getenv(key))
	return v, v != ""
}

func (r *reader) str(key string, dst *string) {
	if v, ok := r.lookup(key); ok {
		*dst = v
	}
}

func (r *reader) integer(key string, dst *int) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (r *reader) duration(key string, dst *time.Duration) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

func (r *reader) list(key string, dst *[]string) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	*dst = pstrings.SplitList(v)
}
