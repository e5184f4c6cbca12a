package adapters

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quantpulse_backend/internal/feature/symbollist/domain/entity"
	"quantpulse_backend/internal/feature/symbollist/usecase"
)

// selectionGorm はSelectionRepositoryインターフェースのGORM実装です。
type selectionGorm struct {
	db *gorm.DB
}

var _ usecase.SelectionRepository = (*selectionGorm)(nil)

// NewSelectionRepository は指定されたDB接続でselectionGormの新しいインスタンスを生成します。
func NewSelectionRepository(db *gorm.DB) *selectionGorm {
	return &selectionGorm{db: db}
}

func (r *selectionGorm) Select(ctx context.Context, userID uint, symbol string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.SelectedSymbol{UserID: userID, Symbol: symbol})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *selectionGorm) Deselect(ctx context.Context, userID uint, symbol string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND symbol = ?", userID, symbol).
		Delete(&entity.SelectedSymbol{}).Error
}

func (r *selectionGorm) ListSelected(ctx context.Context, userID uint) ([]string, error) {
	symbols := []string{}
	if err := r.db.WithContext(ctx).
		Model(&entity.SelectedSymbol{}).
		Where("user_id = ?", userID).
		Order("symbol ASC").
		Pluck("symbol", &symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}
