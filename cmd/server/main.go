package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"quantpulse_backend/internal/app/config"
	"quantpulse_backend/internal/app/di"
	"quantpulse_backend/internal/app/router"
	authhandler "quantpulse_backend/internal/feature/auth/transport/handler"
	authusecase "quantpulse_backend/internal/feature/auth/usecase"
	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	importhandler "quantpulse_backend/internal/feature/symbolimport/transport/handler"
	importusecase "quantpulse_backend/internal/feature/symbolimport/usecase"
	symbollisthandler "quantpulse_backend/internal/feature/symbollist/transport/handler"
	infradb "quantpulse_backend/internal/platform/db"
	"quantpulse_backend/internal/platform/http/handler"
	"quantpulse_backend/internal/platform/logging"
	infraredis "quantpulse_backend/internal/platform/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg.LogLevel, cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	// db
	db, err := infradb.OpenDB(cfg.DB)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	checks := []handler.Check{{Name: "database", Ping: sqlDB.PingContext}}

	// Redis（任意）
	var rdb *redisv9.Client
	if cfg.Redis.Enabled() {
		if tmp, err := infraredis.NewRedisClient(ctx, cfg.Redis); err != nil {
			slog.Warn("Redis unavailable. Running without cache and events.", "error", err)
		} else {
			rdb = tmp
			defer func() {
				if err := rdb.Close(); err != nil {
					slog.Error("failed to close Redis client", "error", err)
				}
			}()
			checks = append(checks, handler.Check{Name: "redis", Ping: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}})
		}
	} else {
		slog.Info("REDIS_HOST not set. Running without cache and events.")
	}

	// Usecase
	authUC := di.NewAuthUsecase(db, cfg.JWT)
	symbolUC := di.NewSymbolUsecase(db, rdb, cfg)
	importUC := di.NewImportUsecase(db, rdb, cfg)

	if err := authUC.EnsureAdmin(ctx, authusecase.AdminAccount{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}); err != nil {
		// 管理者作成に失敗してもサーバーは起動する
		slog.Error("failed to seed admin user", "error", err)
	}

	// Handler
	engine := router.NewRouter(router.Handlers{
		Auth:      authhandler.NewAuthHandler(authUC),
		Symbol:    symbollisthandler.NewSymbolHandler(symbolUC),
		Import:    importhandler.NewImportHandler(importUC),
		Readiness: handler.NewReadinessHandler(checks...),
	}, cfg.JWT.Secret)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	if cfg.SECImportOnStartup {
		wg.Add(1)
		go func() {
			defer wg.Done()
			startupImport(ctx, importUC)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	slog.Info("gracefully shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("error shutting down http server", "error", err)
	}
	wg.Wait()
	return nil
}

// startupImport runs one SEC import in the background. Failure never stops the server.
func startupImport(ctx context.Context, uc *importusecase.ImportUsecase) {
	summary, err := uc.ImportDirectory(ctx, entity.SourceSEC, entity.TriggerStartup)
	if err != nil {
		slog.Error("startup SEC import failed", "error", err)
		return
	}
	slog.Info("startup SEC import finished",
		"processed", summary.Processed,
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
	)
}
