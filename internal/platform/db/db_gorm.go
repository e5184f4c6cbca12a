// Package db opens the PostgreSQL connection and runs schema migrations.
package db

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	authadapters "quantpulse_backend/internal/feature/auth/adapters"
	symbolentity "quantpulse_backend/internal/feature/symbollist/domain/entity"
)

// retryInterval is the wait between connection attempts.
const retryInterval = 3 * time.Second

// Config holds database connection settings.
// URL, when set, is used verbatim and the discrete fields are ignored.
type Config struct {
	URL          string
	User         string
	Password     string
	Name         string
	Host         string
	Port         string
	SSLMode      string
	InstanceName string // Cloud SQL instance connection name; uses the unix socket under /cloudsql

	ConnectTimeout time.Duration
	RunMigrations  bool
}

// BuildDSN returns a libpq key/value DSN. InstanceName takes precedence over Host/Port.
func BuildDSN(cfg Config) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	host, port := cfg.Host, cfg.Port
	if cfg.InstanceName != "" {
		host = "/cloudsql/" + cfg.InstanceName
		port = ""
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		host, cfg.User, cfg.Password, cfg.Name, sslmode)
	if port != "" {
		dsn += " port=" + port
	}
	return dsn
}

// Opener opens a gorm connection for a DSN.
type Opener func(dsn string) (*gorm.DB, error)

// PostgresOpener opens dsn with the pgx-based PostgreSQL driver.
// TranslateError maps unique violations to gorm.ErrDuplicatedKey.
func PostgresOpener(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
}

// ConnectWithRetry calls opener until it succeeds or timeout elapses,
// waiting retryInterval (or the remaining time, if shorter) between attempts.
func ConnectWithRetry(dsn string, timeout time.Duration, opener Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for attempt := 1; ; attempt++ {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("db connect failed after %s (%d attempts): %w", timeout, attempt, err)
		}
		slog.Warn("db connect failed, retrying", "attempt", attempt, "error", err)
		time.Sleep(min(retryInterval, remaining))
	}
}

// OpenDB connects with retry and runs migrations when cfg.RunMigrations is set.
func OpenDB(cfg Config) (*gorm.DB, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	db, err := ConnectWithRetry(BuildDSN(cfg), timeout, PostgresOpener)
	if err != nil {
		return nil, err
	}
	slog.Info("database connected", "host", cfg.Host, "name", cfg.Name)

	if cfg.RunMigrations {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	// マイグレーション（Symbol, SelectedSymbol, User）
	if err := db.AutoMigrate(
		&symbolentity.Symbol{},
		&symbolentity.SelectedSymbol{},
		&authadapters.UserModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	slog.Info("database migrations applied")
	return nil
}
