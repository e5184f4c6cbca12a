package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
)

const (
	// DefaultRecentImports is the default number of import events returned.
	DefaultRecentImports = 10
	// MaxRecentImports caps the number of import events returned.
	MaxRecentImports = 100
	// DefaultRunTimeout bounds one shared import run.
	DefaultRunTimeout = 10 * time.Minute
)

// DirectoryProvider fetches, parses and normalizes one external directory.
// Implementations own the retry policy: a failure after the last attempt is a *ProviderError.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (platform).
type DirectoryProvider interface {
	FetchDirectory(ctx context.Context) (entity.DirectoryBatch, error)
}

// SymbolWriter reconciles a normalized batch against the persisted symbols.
// All writes of one call commit together or not at all.
type SymbolWriter interface {
	UpsertDirectory(ctx context.Context, source entity.Source, records []entity.DirectoryRecord) (entity.UpsertResult, error)
	// CreateMissing inserts the symbols not yet stored and returns how many it created.
	// Existing symbols are left untouched.
	CreateMissing(ctx context.Context, symbols []entity.ManualSymbol) (int, error)
}

// ImportEvents announces completed imports and reads back the most recent announcements.
type ImportEvents interface {
	PublishSymbolsImported(ctx context.Context, ev entity.ImportEvent) error
	RecentSymbolsImported(ctx context.Context, limit int) ([]entity.PublishedImport, error)
}

// ImportUsecase runs the fetch → parse → normalize → upsert → publish pipeline.
type ImportUsecase struct {
	providers  map[entity.Source]DirectoryProvider
	writer     SymbolWriter
	events     ImportEvents
	group      singleflight.Group
	runTimeout time.Duration
	now        func() time.Time
}

// NewImportUsecase creates a new ImportUsecase.
func NewImportUsecase(providers map[entity.Source]DirectoryProvider, writer SymbolWriter, events ImportEvents) *ImportUsecase {
	return &ImportUsecase{
		providers:  providers,
		writer:     writer,
		events:     events,
		runTimeout: DefaultRunTimeout,
		now:        time.Now,
	}
}

// sharedRun is the value handed to every caller of one run.
type sharedRun struct {
	summary entity.ImportSummary
	trigger entity.Trigger
}

// ImportDirectory imports the directory of the given source and returns a summary.
//
// Concurrent calls for the same source share one run and its result. The shared
// run is detached from every caller's cancellation and bounded by its own timeout;
// each caller stops waiting when its own ctx is done. A caller that joins a run in
// progress gets that run's summary, and the published event carries the trigger
// of the caller that started it.
// A fetch failure is returned as *ProviderError and leaves the store untouched.
// A publish failure is logged and reflected in Summary.Published only.
func (u *ImportUsecase) ImportDirectory(ctx context.Context, source entity.Source, trigger entity.Trigger) (entity.ImportSummary, error) {
	provider, ok := u.providers[source]
	if !ok {
		return entity.ImportSummary{}, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	ch := u.group.DoChan(string(source), func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.runTimeout)
		defer cancel()
		summary, err := u.run(runCtx, source, trigger, provider)
		return sharedRun{summary: summary, trigger: trigger}, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return entity.ImportSummary{}, res.Err
		}
		r := res.Val.(sharedRun)
		if res.Shared && r.trigger != trigger {
			slog.Info("joined in-flight directory import", "exchange", source, "trigger", trigger, "run_trigger", r.trigger)
		}
		return r.summary, nil
	case <-ctx.Done():
		slog.Warn("stopped waiting for directory import", "exchange", source, "trigger", trigger, "error", ctx.Err())
		return entity.ImportSummary{}, fmt.Errorf("wait for %s import: %w", source, ctx.Err())
	}
}

func (u *ImportUsecase) run(ctx context.Context, source entity.Source, trigger entity.Trigger, provider DirectoryProvider) (entity.ImportSummary, error) {
	slog.Info("starting directory import", "exchange", source, "trigger", trigger)

	batch, err := provider.FetchDirectory(ctx)
	if err != nil {
		slog.Error("directory fetch failed", "exchange", source, "error", err)
		return entity.ImportSummary{}, err
	}

	records, duplicates := dedupeBySymbol(batch.Records)

	// 一度始めたバッチはキャンセルや実行タイムアウトで中断しない
	res, err := u.writer.UpsertDirectory(context.WithoutCancel(ctx), source, records)
	if err != nil {
		return entity.ImportSummary{}, fmt.Errorf("upsert %s symbols: %w", source, err)
	}

	summary := entity.ImportSummary{
		Exchange:  source,
		Processed: batch.RawRows,
		Inserted:  res.Inserted,
		Updated:   res.Updated,
		Skipped:   batch.Skipped + duplicates,
		Timestamp: u.now().UTC(),
	}

	ev := entity.ImportEvent{
		Exchange: source,
		Inserted: res.Inserted,
		Updated:  res.Updated,
		Trigger:  trigger,
	}
	if err := u.events.PublishSymbolsImported(context.WithoutCancel(ctx), ev); err != nil {
		slog.Warn("failed to publish import event", "exchange", source, "error", err)
	} else {
		summary.Published = true
	}

	slog.Info("directory import completed",
		"exchange", source,
		"trigger", trigger,
		"processed", summary.Processed,
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

// RecentImports returns up to limit of the latest import announcements, newest first.
func (u *ImportUsecase) RecentImports(ctx context.Context, limit int) ([]entity.PublishedImport, error) {
	if limit <= 0 || limit > MaxRecentImports {
		limit = DefaultRecentImports
	}
	return u.events.RecentSymbolsImported(ctx, limit)
}

// dedupeBySymbol collapses repeated symbols into one record. The last
// occurrence wins but keeps the position of the first.
func dedupeBySymbol(records []entity.DirectoryRecord) ([]entity.DirectoryRecord, int) {
	index := make(map[string]int, len(records))
	out := make([]entity.DirectoryRecord, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.Symbol]; ok {
			out[i] = r
			continue
		}
		index[r.Symbol] = len(out)
		out = append(out, r)
	}
	return out, len(records) - len(out)
}
