package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quantpulse_backend/internal/app/config"
	"quantpulse_backend/internal/app/di"
	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	"quantpulse_backend/internal/feature/symbolimport/transport/http/dto"
	infradb "quantpulse_backend/internal/platform/db"
	"quantpulse_backend/internal/platform/logging"
	infraredis "quantpulse_backend/internal/platform/redis"
)

// importFunc runs one import; replaced in tests.
type importFunc func(ctx context.Context, cfg config.Config, source entity.Source) (entity.ImportSummary, error)

func newRootCmd(run importFunc, out io.Writer) *cobra.Command {
	var (
		envFile string
		verbose bool
		timeout time.Duration
		cfg     config.Config
	)

	cmd := &cobra.Command{
		Use:   "symbol-import <nasdaq|sec>",
		Short: "Import a symbol directory into the symbols table",
		Long: `Download the NASDAQ listed-securities file or the SEC company tickers file,
upsert every symbol and publish a symbols_imported event.

The summary is printed to stdout as JSON.`,
		Args:         cobra.ExactArgs(1),
		ValidArgs:    []string{"nasdaq", "sec"},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("load %s: %w", envFile, err)
				}
			}
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			if verbose {
				loaded.LogLevel = "debug"
			}
			slog.SetDefault(logging.New(loaded.LogLevel, loaded.LogFormat))
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := entity.ParseSource(args[0])
			if err != nil {
				return err
			}
			if err := cfg.Directory.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			summary, err := run(ctx, cfg, source)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(dto.NewImportSummaryResponse(summary))
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load before the environment (default .env when present)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall deadline for the import")
	cmd.SetOut(out)

	return cmd
}

// runImport opens the database (and Redis when configured) and runs one import.
func runImport(ctx context.Context, cfg config.Config, source entity.Source) (entity.ImportSummary, error) {
	db, err := infradb.OpenDB(cfg.DB)
	if err != nil {
		return entity.ImportSummary{}, err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}

	var rdb *redisv9.Client
	if cfg.Redis.Enabled() {
		if rdb, err = infraredis.NewRedisClient(ctx, cfg.Redis); err != nil {
			slog.Warn("Redis unavailable. Import event will not be published.", "error", err)
			rdb = nil
		} else {
			defer func() { _ = rdb.Close() }()
		}
	}

	return di.NewImportUsecase(db, rdb, cfg).ImportDirectory(ctx, source, entity.TriggerCLI)
}
