package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
)

// mockProvider is a mock implementation of the DirectoryProvider interface.
type mockProvider struct {
	FetchDirectoryFunc  func(ctx context.Context) (entity.DirectoryBatch, error)
	FetchDirectoryCalls int32
}

func (m *mockProvider) FetchDirectory(ctx context.Context) (entity.DirectoryBatch, error) {
	atomic.AddInt32(&m.FetchDirectoryCalls, 1)
	if m.FetchDirectoryFunc != nil {
		return m.FetchDirectoryFunc(ctx)
	}
	return entity.DirectoryBatch{}, errors.New("FetchDirectoryFunc is not implemented")
}

// mockWriter is a mock implementation of the SymbolWriter interface.
type mockWriter struct {
	UpsertDirectoryFunc  func(ctx context.Context, source entity.Source, records []entity.DirectoryRecord) (entity.UpsertResult, error)
	UpsertDirectoryCalls int
	GotRecords           []entity.DirectoryRecord
	CreateMissingFunc    func(ctx context.Context, symbols []entity.ManualSymbol) (int, error)
	GotManual            []entity.ManualSymbol
}

func (m *mockWriter) UpsertDirectory(ctx context.Context, source entity.Source, records []entity.DirectoryRecord) (entity.UpsertResult, error) {
	m.UpsertDirectoryCalls++
	m.GotRecords = records
	if m.UpsertDirectoryFunc != nil {
		return m.UpsertDirectoryFunc(ctx, source, records)
	}
	return entity.UpsertResult{Inserted: len(records)}, nil
}

func (m *mockWriter) CreateMissing(ctx context.Context, symbols []entity.ManualSymbol) (int, error) {
	m.GotManual = symbols
	if m.CreateMissingFunc != nil {
		return m.CreateMissingFunc(ctx, symbols)
	}
	return len(symbols), nil
}

// mockEvents is a mock implementation of the ImportEvents interface.
type mockEvents struct {
	PublishErr error
	Published  []entity.ImportEvent
	RecentFunc func(ctx context.Context, limit int) ([]entity.PublishedImport, error)
	GotLimit   int
}

func (m *mockEvents) PublishSymbolsImported(ctx context.Context, ev entity.ImportEvent) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Published = append(m.Published, ev)
	return nil
}

func (m *mockEvents) RecentSymbolsImported(ctx context.Context, limit int) ([]entity.PublishedImport, error) {
	m.GotLimit = limit
	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, limit)
	}
	return nil, nil
}

func batchOf(source entity.Source, raw, skipped int, symbols ...string) entity.DirectoryBatch {
	records := make([]entity.DirectoryRecord, 0, len(symbols))
	for _, s := range symbols {
		records = append(records, entity.DirectoryRecord{Symbol: s, CompanyName: s + " Inc.", YahooSymbol: s})
	}
	return entity.DirectoryBatch{Source: source, Records: records, RawRows: raw, Skipped: skipped}
}

func newTestUsecase(provider DirectoryProvider, writer SymbolWriter, events ImportEvents) *ImportUsecase {
	uc := NewImportUsecase(map[entity.Source]DirectoryProvider{entity.SourceNASDAQ: provider}, writer, events)
	uc.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.FixedZone("JST", 9*3600)) }
	return uc
}

func TestImportUsecase_ImportDirectory(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		batch       entity.DirectoryBatch
		upsert      entity.UpsertResult
		wantSummary entity.ImportSummary
	}{
		{
			name:   "success: first import inserts everything",
			batch:  batchOf(entity.SourceNASDAQ, 3, 1, "AAPL", "MSFT"),
			upsert: entity.UpsertResult{Inserted: 2},
			wantSummary: entity.ImportSummary{
				Exchange: entity.SourceNASDAQ, Processed: 3, Inserted: 2, Skipped: 1, Published: true,
			},
		},
		{
			name:   "success: re-import only updates",
			batch:  batchOf(entity.SourceNASDAQ, 2, 0, "AAPL", "MSFT"),
			upsert: entity.UpsertResult{Updated: 2},
			wantSummary: entity.ImportSummary{
				Exchange: entity.SourceNASDAQ, Processed: 2, Updated: 2, Published: true,
			},
		},
		{
			name:   "success: duplicate symbols count as skipped",
			batch:  batchOf(entity.SourceNASDAQ, 3, 0, "AAPL", "AAPL", "MSFT"),
			upsert: entity.UpsertResult{Inserted: 1, Updated: 1},
			wantSummary: entity.ImportSummary{
				Exchange: entity.SourceNASDAQ, Processed: 3, Inserted: 1, Updated: 1, Skipped: 1, Published: true,
			},
		},
		{
			name:   "success: empty batch",
			batch:  batchOf(entity.SourceNASDAQ, 0, 0),
			upsert: entity.UpsertResult{},
			wantSummary: entity.ImportSummary{
				Exchange: entity.SourceNASDAQ, Published: true,
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			provider := &mockProvider{FetchDirectoryFunc: func(ctx context.Context) (entity.DirectoryBatch, error) {
				return tc.batch, nil
			}}
			writer := &mockWriter{UpsertDirectoryFunc: func(ctx context.Context, source entity.Source, records []entity.DirectoryRecord) (entity.UpsertResult, error) {
				return tc.upsert, nil
			}}
			events := &mockEvents{}

			summary, err := newTestUsecase(provider, writer, events).ImportDirectory(context.Background(), entity.SourceNASDAQ, entity.TriggerAPI)
			require.NoError(t, err)

			tc.wantSummary.Timestamp = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
			assert.Equal(t, tc.wantSummary, summary)
			assert.Equal(t, summary.Processed, summary.Inserted+summary.Updated+summary.Skipped, "processed = inserted + updated + skipped")

			require.Len(t, events.Published, 1)
			assert.Equal(t, entity.ImportEvent{
				Exchange: entity.SourceNASDAQ,
				Inserted: tc.upsert.Inserted,
				Updated:  tc.upsert.Updated,
				Trigger:  entity.TriggerAPI,
			}, events.Published[0])
		})
	}
}

func TestImportUsecase_ImportDirectory_DedupeLastWins(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{FetchDirectoryFunc: func(ctx context.Context) (entity.DirectoryBatch, error) {
		return entity.DirectoryBatch{
			Source: entity.SourceNASDAQ,
			Records: []entity.DirectoryRecord{
				{Symbol: "AAPL", CompanyName: "Apple (old)"},
				{Symbol: "MSFT", CompanyName: "Microsoft"},
				{Symbol: "AAPL", CompanyName: "Apple Inc."},
			},
			RawRows: 3,
		}, nil
	}}
	writer := &mockWriter{}

	_, err := newTestUsecase(provider, writer, &mockEvents{}).ImportDirectory(context.Background(), entity.SourceNASDAQ, entity.TriggerCLI)
	require.NoError(t, err)

	assert.Equal(t, []entity.DirectoryRecord{
		{Symbol: "AAPL", CompanyName: "Apple Inc."},
		{Symbol: "MSFT", CompanyName: "Microsoft"},
	}, writer.GotRecords)
}

func TestImportUsecase_ImportDirectory_ProviderErrorLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	perr := &ProviderError{Source: entity.SourceNASDAQ, Attempts: 3, Err: errors.New("http 503")}
	provider := &mockProvider{FetchDirectoryFunc: func(ctx context.Context) (entity.DirectoryBatch, error) {
		return entity.DirectoryBatch{}, perr
	}}
	writer := &mockWriter{}
	events := &mockEvents{}

	_, err := newTestUsecase(provider, writer, events).ImportDirectory(context.Background(), entity.SourceNASDAQ, entity.TriggerAPI)

	var got *ProviderError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 3, got.Attempts)
	assert.Zero(t, writer.UpsertDirectoryCalls)
	assert.Empty(t, events.Published)
}

func TestImportUsecase_ImportDirectory_WriteErrorIsNotPublished(t *testing.T) {
	t.Parallel()

	errDB := errors.New("connection reset")
	provider := &mockProvider{FetchDirectoryFunc: func(ctx context.Context) (entity.DirectoryBatch, error) {
		return batchOf(entity.SourceNASDAQ, 1, 0, "AAPL"), nil
	}}
	writer := &mockWriter{UpsertDirectoryFunc: func(ctx context.Context, source entity.Source, records []entity.DirectoryRecord) (entity.UpsertResult, error) {
		return entity.UpsertResult{}, errDB
	}}
	events := &mockEvents{}

	_, err := newTestUsecase(provider, writer, events).ImportDirectory(context.Background(), entity.SourceNASDAQ, entity.TriggerAPI)

	require.ErrorIs(t, err, errDB)
	assert.Empty(t, events.Published)
}

func TestImportUsecase_ImportDirectory_PublishFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{FetchDirectoryFunc: func(ctx context.Context) (entity.DirectoryBatch, error) {
		return batchOf(entity.SourceNASDAQ, 1, 0, "AAPL"), nil
	}}
	events := &mockEvents{PublishErr: errors.New("redis: connection refused")}

	summary, err := newTestUsecase(provider, &mockWriter{}, events).ImportDirectory(context.Background(), entity.SourceNASDAQ, entity.TriggerAPI)

	require.NoError(t, err)
	assert.False(t, summary.Published)
	assert.Equal(t, 1, summary.Inserted)
}

func TestImportUsecase_ImportDirectory_UnknownSource(t *testing.T) {
	t.Parallel()

	uc := newTestUsecase(&mockProvider{}, &mockWriter{}, &mockEvents{})

	_, err := uc.ImportDirectory(context.Background(), entity.SourceSEC, entity.TriggerAPI)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestImportUsecase_ImportDirectory_CancelledRequestStillCommits(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	callerReturned := make(chan struct{})
	committed := make(chan struct{})
	provider := &mockProvider{FetchDirectoryFunc: func(context.Context) (entity.DirectoryBatch, error) {
		cancel()
		<-callerReturned
		return batchOf(entity.SourceNASDAQ, 1, 0, "AAPL"), nil
	}}
	writer := &mockWriter{UpsertDirectoryFunc: func(ctx context.Context, source entity.Source, records []entity.DirectoryRecord) (entity.UpsertResult, error) {
		defer close(committed)
		if err := ctx.Err(); err != nil {
			return entity.UpsertResult{}, err
		}
		return entity.UpsertResult{Inserted: 1}, nil
	}}
	events := &mockEvents{}

	_, err := newTestUsecase(provider, writer, events).ImportDirectory(ctx, entity.SourceNASDAQ, entity.TriggerAPI)
	close(callerReturned)

	// 呼び出し元は待機をやめるが、取り込み自体は完了する
	require.ErrorIs(t, err, context.Canceled)
	select {
	case <-committed:
	case <-time.After(2 * time.Second):
		t.Fatal("import was not committed after the caller left")
	}
	assert.Equal(t, 1, writer.UpsertDirectoryCalls)
}

func TestImportUsecase_ImportDirectory_CancelledLeaderDoesNotFailJoinedCaller(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	provider := &mockProvider{FetchDirectoryFunc: func(ctx context.Context) (entity.DirectoryBatch, error) {
		entered <- struct{}{}
		select {
		case <-ctx.Done():
			return entity.DirectoryBatch{}, &ProviderError{Source: entity.SourceNASDAQ, Attempts: 1, Err: ctx.Err()}
		case <-release:
		}
		return batchOf(entity.SourceNASDAQ, 1, 0, "AAPL"), nil
	}}
	events := &mockEvents{}
	uc := newTestUsecase(provider, &mockWriter{}, events)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := uc.ImportDirectory(leaderCtx, entity.SourceNASDAQ, entity.TriggerAPI)
		leaderErr <- err
	}()
	<-entered

	type result struct {
		summary entity.ImportSummary
		err     error
	}
	joined := make(chan result, 1)
	go func() {
		s, err := uc.ImportDirectory(context.Background(), entity.SourceNASDAQ, entity.TriggerStartup)
		joined <- result{s, err}
	}()
	// 後続の呼び出しがsingleflightに合流するのを待つ
	time.Sleep(50 * time.Millisecond)

	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	got := <-joined
	require.NoError(t, got.err)
	assert.Equal(t, 1, got.summary.Inserted)
	assert.True(t, got.summary.Published)
	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.FetchDirectoryCalls))

	// イベントは実行を開始した呼び出しのトリガーを持つ
	require.Len(t, events.Published, 1)
	assert.Equal(t, entity.TriggerAPI, events.Published[0].Trigger)
}

func TestImportUsecase_ImportDirectory_RunTimeout(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{FetchDirectoryFunc: func(ctx context.Context) (entity.DirectoryBatch, error) {
		<-ctx.Done()
		return entity.DirectoryBatch{}, &ProviderError{Source: entity.SourceNASDAQ, Attempts: 1, Err: ctx.Err()}
	}}
	writer := &mockWriter{}
	uc := newTestUsecase(provider, writer, &mockEvents{})
	uc.runTimeout = 20 * time.Millisecond

	_, err := uc.ImportDirectory(context.Background(), entity.SourceNASDAQ, entity.TriggerCLI)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, writer.UpsertDirectoryCalls)
}

func TestImportUsecase_ImportDirectory_ConcurrentCallsShareOneRun(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	provider := &mockProvider{FetchDirectoryFunc: func(context.Context) (entity.DirectoryBatch, error) {
		entered <- struct{}{}
		<-release
		return batchOf(entity.SourceNASDAQ, 1, 0, "AAPL"), nil
	}}
	uc := newTestUsecase(provider, &mockWriter{}, &mockEvents{})

	const callers = 5
	var wg sync.WaitGroup
	results := make([]entity.ImportSummary, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = uc.ImportDirectory(context.Background(), entity.SourceNASDAQ, entity.TriggerAPI)
	}()
	<-entered

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = uc.ImportDirectory(context.Background(), entity.SourceNASDAQ, entity.TriggerAPI)
		}(i)
	}
	// 後続の呼び出しがsingleflightに合流するのを待つ
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.FetchDirectoryCalls))
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestImportUsecase_RecentImports(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{name: "default when zero", limit: 0, wantLimit: DefaultRecentImports},
		{name: "default when negative", limit: -1, wantLimit: DefaultRecentImports},
		{name: "passes through", limit: 25, wantLimit: 25},
		{name: "max is allowed", limit: MaxRecentImports, wantLimit: MaxRecentImports},
		{name: "above max falls back to default", limit: MaxRecentImports + 1, wantLimit: DefaultRecentImports},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			events := &mockEvents{RecentFunc: func(ctx context.Context, limit int) ([]entity.PublishedImport, error) {
				return []entity.PublishedImport{{ID: "1-0", Exchange: entity.SourceSEC}}, nil
			}}
			uc := newTestUsecase(&mockProvider{}, &mockWriter{}, events)

			got, err := uc.RecentImports(context.Background(), tc.limit)
			require.NoError(t, err)
			assert.Len(t, got, 1)
			assert.Equal(t, tc.wantLimit, events.GotLimit)
		})
	}
}
