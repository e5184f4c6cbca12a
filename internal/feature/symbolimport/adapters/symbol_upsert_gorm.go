// Package adapters はsymbolimportフィーチャーの永続化とイベント発行の実装を提供します。
package adapters

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	"quantpulse_backend/internal/feature/symbolimport/usecase"
	symbolentity "quantpulse_backend/internal/feature/symbollist/domain/entity"
)

const (
	// lookupChunkSize bounds the IN (...) list of the existing-symbol lookup.
	lookupChunkSize = 500
	// writeBatchSize is the number of rows per INSERT ... ON CONFLICT statement.
	writeBatchSize = 200
)

// updateColumns lists the columns a re-import overwrites, per source.
// exchange, currency, instrument_type and created_at are set on insert only.
var updateColumns = map[entity.Source][]string{
	entity.SourceNASDAQ: {"company_name", "yahoo_symbol", "market_category", "financial_status", "is_active", "updated_at"},
	entity.SourceSEC:    {"company_name", "yahoo_symbol", "is_active", "updated_at"},
}

// symbolUpsertGorm はSymbolWriterインターフェースのGORM実装です。
type symbolUpsertGorm struct {
	db         *gorm.DB
	lookupSize int
	batchSize  int
}

var _ usecase.SymbolWriter = (*symbolUpsertGorm)(nil)

// NewSymbolUpsertRepository は指定されたDB接続でsymbolUpsertGormの新しいインスタンスを生成します。
func NewSymbolUpsertRepository(db *gorm.DB) *symbolUpsertGorm {
	return &symbolUpsertGorm{db: db, lookupSize: lookupChunkSize, batchSize: writeBatchSize}
}

// UpsertDirectory writes records keyed by symbol in one transaction.
// Symbols not present before the call count as inserted, the rest as updated.
// records must not contain duplicate symbols.
func (r *symbolUpsertGorm) UpsertDirectory(ctx context.Context, source entity.Source, records []entity.DirectoryRecord) (entity.UpsertResult, error) {
	cols, ok := updateColumns[source]
	if !ok {
		return entity.UpsertResult{}, fmt.Errorf("%w: %s", usecase.ErrUnknownSource, source)
	}
	if len(records) == 0 {
		return entity.UpsertResult{}, nil
	}

	var res entity.UpsertResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keys := make([]string, 0, len(records))
		for _, rec := range records {
			keys = append(keys, rec.Symbol)
		}
		existing, err := r.existingSymbols(tx, keys)
		if err != nil {
			return err
		}

		rows := make([]symbolentity.Symbol, 0, len(records))
		for _, rec := range records {
			if _, ok := existing[rec.Symbol]; ok {
				res.Updated++
			} else {
				res.Inserted++
			}
			rows = append(rows, toModel(source, rec))
		}

		// 同一トランザクション内で既存判定と書き込みを行う
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).CreateInBatches(&rows, r.batchSize).Error
	})
	if err != nil {
		return entity.UpsertResult{}, err
	}
	return res, nil
}

// CreateMissing inserts the symbols not yet stored in one transaction and
// returns how many rows it created. Existing rows are never updated.
func (r *symbolUpsertGorm) CreateMissing(ctx context.Context, symbols []entity.ManualSymbol) (int, error) {
	if len(symbols) == 0 {
		return 0, nil
	}

	var created int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keys := make([]string, 0, len(symbols))
		for _, s := range symbols {
			keys = append(keys, s.Symbol)
		}
		existing, err := r.existingSymbols(tx, keys)
		if err != nil {
			return err
		}

		rows := make([]symbolentity.Symbol, 0, len(symbols))
		var inactive []string
		for _, s := range symbols {
			if _, ok := existing[s.Symbol]; ok {
				continue
			}
			rows = append(rows, manualModel(s))
			if !s.IsActive {
				inactive = append(inactive, s.Symbol)
			}
		}
		if len(rows) == 0 {
			return nil
		}

		// 並行して追加されたシンボルは上書きしない
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, r.batchSize)
		if res.Error != nil {
			return res.Error
		}
		created = int(res.RowsAffected)

		// is_activeのゼロ値falseはカラムのデフォルト値(true)に置き換わるため、挿入後に反映する
		for start := 0; start < len(inactive); start += r.lookupSize {
			end := min(start+r.lookupSize, len(inactive))
			if err := tx.Model(&symbolentity.Symbol{}).
				Where("symbol IN ?", inactive[start:end]).
				Update("is_active", false).Error; err != nil {
				return fmt.Errorf("deactivate new symbols: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (r *symbolUpsertGorm) existingSymbols(tx *gorm.DB, symbols []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(symbols))
	for start := 0; start < len(symbols); start += r.lookupSize {
		end := min(start+r.lookupSize, len(symbols))
		keys := symbols[start:end]

		var found []string
		if err := tx.Model(&symbolentity.Symbol{}).
			Where("symbol IN ?", keys).
			Pluck("symbol", &found).Error; err != nil {
			return nil, fmt.Errorf("lookup existing symbols: %w", err)
		}
		for _, s := range found {
			existing[s] = struct{}{}
		}
	}
	return existing, nil
}

func toModel(source entity.Source, rec entity.DirectoryRecord) symbolentity.Symbol {
	return symbolentity.Symbol{
		Symbol:          rec.Symbol,
		CompanyName:     rec.CompanyName,
		YahooSymbol:     rec.YahooSymbol,
		Exchange:        string(source),
		MarketCategory:  rec.MarketCategory,
		FinancialStatus: rec.FinancialStatus,
		Currency:        "USD",
		InstrumentType:  symbolentity.InstrumentStock,
		IsActive:        true,
	}
}

func manualModel(s entity.ManualSymbol) symbolentity.Symbol {
	return symbolentity.Symbol{
		Symbol:         s.Symbol,
		CompanyName:    s.CompanyName,
		YahooSymbol:    s.YahooSymbol,
		Exchange:       s.Exchange,
		Currency:       s.Currency,
		InstrumentType: s.InstrumentType,
		IsActive:       true,
	}
}
