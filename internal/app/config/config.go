// Package config builds the process configuration once at startup.
//
// Sources, later ones winning: a .env file (when present), the process
// environment, then an optional YAML file named by DIRECTORY_CONFIG_FILE
// that overrides the directory source settings.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"quantpulse_backend/internal/platform/db"
	"quantpulse_backend/internal/platform/eventbus"
	"quantpulse_backend/internal/platform/externalapi/nasdaq"
	"quantpulse_backend/internal/platform/externalapi/sec"
	jwtmw "quantpulse_backend/internal/platform/jwt"
	redisclient "quantpulse_backend/internal/platform/redis"
)

// EnvDirectoryConfigFile names the optional YAML overlay for directory sources.
const EnvDirectoryConfigFile = "DIRECTORY_CONFIG_FILE"

// DirectoryConfig holds per-source fetch settings.
type DirectoryConfig struct {
	NASDAQ nasdaq.Config `yaml:"nasdaq"`
	SEC    sec.Config    `yaml:"sec"`
}

// AdminConfig is the predefined administrator seeded at startup.
type AdminConfig struct {
	Username string
	Email    string
	Password string
}

// Config is the complete process configuration.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	DB        db.Config
	Redis     redisclient.Config
	JWT       jwtmw.Config
	Admin     AdminConfig
	Directory DirectoryConfig
	Events    eventbus.Config

	SymbolCacheTTL     time.Duration
	SECImportOnStartup bool
}

// Load reads .env, the environment and the optional YAML overlay.
func Load() (Config, error) {
	// .envを読み込む
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env not found; using system environment variables")
	}

	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		return Config{}, err
	}

	if path := os.Getenv(EnvDirectoryConfigFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", EnvDirectoryConfigFile, err)
		}
		if err := cfg.ApplyDirectoryYAML(data); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// FromEnv builds a Config from getenv. Unset variables take their defaults;
// malformed numbers, booleans and durations are errors.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}

	cfg := Config{
		HTTPAddr:  p.str("HTTP_ADDR", ":8080"),
		LogLevel:  p.str("LOG_LEVEL", "info"),
		LogFormat: p.str("LOG_FORMAT", "json"),

		DB: db.Config{
			URL:            getenv("DATABASE_URL"),
			User:           getenv("DB_USER"),
			Password:       getenv("DB_PASSWORD"),
			Name:           getenv("DB_NAME"),
			Host:           p.str("DB_HOST", "localhost"),
			Port:           p.str("DB_PORT", "5432"),
			SSLMode:        getenv("DB_SSLMODE"),
			InstanceName:   getenv("INSTANCE_CONNECTION_NAME"),
			ConnectTimeout: p.duration("DB_CONNECT_TIMEOUT", 60*time.Second),
			RunMigrations:  p.boolean("RUN_MIGRATIONS", true),
		},
		Redis: redisclient.Config{
			Host:     getenv("REDIS_HOST"),
			Port:     p.str("REDIS_PORT", "6379"),
			Password: getenv("REDIS_PASSWORD"),
			DB:       p.integer("REDIS_DB", 0),
		},
		Admin: AdminConfig{
			Username: p.str("ADMIN_USERNAME", "admin"),
			Email:    p.str("ADMIN_EMAIL", "admin@localhost"),
			Password: getenv("ADMIN_PASSWORD"),
		},
		Events: eventbus.Config{
			Prefix: p.str("EVENT_STREAM_PREFIX", eventbus.DefaultPrefix),
			MaxLen: int64(p.integer("EVENT_STREAM_MAXLEN", 1000)),
		},
		SymbolCacheTTL:     p.duration("SYMBOL_CACHE_TTL", 10*time.Minute),
		SECImportOnStartup: p.boolean("SEC_IMPORT_ON_STARTUP", false),
	}

	jwtCfg := jwtmw.DefaultConfig()
	jwtCfg.Secret = getenv(jwtmw.EnvKeyJWTSecret)
	jwtCfg.AccessTTL = time.Duration(p.integer("JWT_EXPIRATION_HOURS", int(jwtCfg.AccessTTL/time.Hour))) * time.Hour
	jwtCfg.RefreshTTL = time.Duration(p.integer("JWT_REFRESH_EXPIRATION_DAYS", int(jwtCfg.RefreshTTL/(24*time.Hour)))) * 24 * time.Hour
	cfg.JWT = jwtCfg

	nq := nasdaq.DefaultConfig()
	nq.URL = p.str("NASDAQ_URL", nq.URL)
	nq.Timeout = p.duration("NASDAQ_TIMEOUT", nq.Timeout)
	nq.MaxRetries = p.integer("NASDAQ_RETRIES", nq.MaxRetries)
	nq.Backoff = p.duration("NASDAQ_BACKOFF", nq.Backoff)
	cfg.Directory.NASDAQ = nq

	sc := sec.DefaultConfig()
	sc.URL = p.str("SEC_URL", sc.URL)
	sc.Timeout = p.duration("SEC_TIMEOUT", sc.Timeout)
	sc.MaxRetries = p.integer("SEC_RETRIES", sc.MaxRetries)
	sc.Backoff = p.duration("SEC_BACKOFF", sc.Backoff)
	sc.UserAgent = getenv("SEC_USER_AGENT")
	cfg.Directory.SEC = sc

	if len(p.errs) > 0 {
		return Config{}, errors.Join(p.errs...)
	}
	return cfg, nil
}

// ApplyDirectoryYAML overlays directory settings from YAML. Keys absent from
// the document keep their current values.
//
//	nasdaq:
//	  timeout: 45s
//	sec:
//	  user_agent: "QuantPulse ops@example.com"
func (c *Config) ApplyDirectoryYAML(data []byte) error {
	if err := yaml.Unmarshal(data, &c.Directory); err != nil {
		return fmt.Errorf("parse directory config: %w", err)
	}
	return nil
}

// Validate checks the settings the HTTP server cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, fmt.Errorf("%s is required", jwtmw.EnvKeyJWTSecret))
	}
	if err := c.Directory.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks both directory sources.
func (d DirectoryConfig) Validate() error {
	var errs []error
	if d.NASDAQ.URL == "" {
		errs = append(errs, errors.New("nasdaq url is required"))
	}
	if d.NASDAQ.MaxRetries < 1 {
		errs = append(errs, errors.New("NASDAQ_RETRIES must be at least 1"))
	}
	if d.SEC.URL == "" {
		errs = append(errs, errors.New("sec url is required"))
	}
	if d.SEC.MaxRetries < 1 {
		errs = append(errs, errors.New("SEC_RETRIES must be at least 1"))
	}
	if strings.TrimSpace(d.SEC.UserAgent) == "" {
		errs = append(errs, errors.New("SEC_USER_AGENT is required (e.g. \"Company contact@example.com\")"))
	}
	return errors.Join(errs...)
}

// parser collects conversion errors so every bad variable is reported at once.
type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return def
	}
	return b
}

// duration accepts Go durations ("30s") or a bare number of seconds.
func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}
