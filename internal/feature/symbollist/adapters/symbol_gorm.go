// Package adapters はsymbollistフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quantpulse_backend/internal/feature/symbollist/domain/entity"
	"quantpulse_backend/internal/feature/symbollist/usecase"
)

// likeEscaper escapes LIKE wildcards with '!' so the pattern behaves the same on PostgreSQL and SQLite.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// symbolGorm はSymbolRepositoryインターフェースのGORM実装です。
type symbolGorm struct {
	db *gorm.DB
}

var _ usecase.SymbolRepository = (*symbolGorm)(nil)

// NewSymbolRepository は指定されたDB接続でsymbolGormリポジトリの新しいインスタンスを生成します。
func NewSymbolRepository(db *gorm.DB) *symbolGorm {
	return &symbolGorm{db: db}
}

// Search はアクティブな銘柄を検索します。
// search が空でなければ symbol か company_name の部分一致（大文字小文字を区別しない）で絞り込み、
// 完全一致 → 前方一致 → その他 → symbol 順に並べます。
func (r *symbolGorm) Search(ctx context.Context, q entity.SymbolQuery) (entity.SymbolPage, error) {
	search := strings.ToUpper(q.Search)

	base := r.db.WithContext(ctx).Model(&entity.Symbol{}).Where("is_active = ?", true)
	if search != "" {
		pattern := "%" + likeEscaper.Replace(search) + "%"
		base = base.Where("(UPPER(symbol) LIKE ? ESCAPE '!' OR UPPER(company_name) LIKE ? ESCAPE '!')", pattern, pattern)
	}
	base = base.Session(&gorm.Session{})

	var page entity.SymbolPage
	if err := base.Count(&page.Total).Error; err != nil {
		return entity.SymbolPage{}, err
	}

	find := base
	if search != "" {
		find = find.Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                "CASE WHEN UPPER(symbol) = ? THEN 0 WHEN UPPER(symbol) LIKE ? ESCAPE '!' THEN 1 ELSE 2 END, symbol ASC",
			Vars:               []any{search, likeEscaper.Replace(search) + "%"},
			WithoutParentheses: true,
		}})
	} else {
		find = find.Order("symbol ASC")
	}
	if err := find.Limit(q.Limit).Offset(q.Offset).Find(&page.Symbols).Error; err != nil {
		return entity.SymbolPage{}, err
	}
	return page, nil
}

// Exists は銘柄がディレクトリに登録されているかを返します。
func (r *symbolGorm) Exists(ctx context.Context, symbol string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&entity.Symbol{}).
		Where("symbol = ?", symbol).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
