// Package adapters はauthフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"quantpulse_backend/internal/feature/auth/domain/entity"
	"quantpulse_backend/internal/feature/auth/usecase"
)

// pgUniqueViolation はPostgreSQLの一意制約違反コードです。
const pgUniqueViolation = "23505"

// UserModel は users テーブルのGORMモデルです。
type UserModel struct {
	ID             uint       `gorm:"primaryKey"`
	Username       string     `gorm:"uniqueIndex;size:100;not null"`
	Email          string     `gorm:"uniqueIndex;size:255;not null"`
	Password       string     `gorm:"size:255;not null"`
	FirstName      string     `gorm:"size:100"`
	LastName       string     `gorm:"size:100"`
	Role           string     `gorm:"size:20;not null;default:user"`
	ApprovalStatus string     `gorm:"size:20;not null;default:PENDING;index"`
	IsActive       bool       `gorm:"not null;default:true"`
	LastLogin      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName はテーブル名を固定します。
func (UserModel) TableName() string { return "users" }

func toModel(u *entity.User) *UserModel {
	return &UserModel{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Password:       u.Password,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           string(u.Role),
		ApprovalStatus: string(u.ApprovalStatus),
		IsActive:       u.IsActive,
		LastLogin:      u.LastLogin,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (m *UserModel) toEntity() *entity.User {
	return &entity.User{
		ID:             m.ID,
		Username:       m.Username,
		Email:          m.Email,
		Password:       m.Password,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		Role:           entity.Role(m.Role),
		ApprovalStatus: entity.ApprovalStatus(m.ApprovalStatus),
		IsActive:       m.IsActive,
		LastLogin:      m.LastLogin,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// userGorm はUserRepositoryインターフェースのGORM実装です。
type userGorm struct {
	db *gorm.DB
}

// userGormがUserRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.UserRepository = (*userGorm)(nil)

// NewUserRepository は指定されたgorm.DB接続でuserGormの新しいインスタンスを生成します。
func NewUserRepository(db *gorm.DB) *userGorm {
	return &userGorm{db: db}
}

// Create はユーザーをデータベースに追加し、採番されたIDとタイムスタンプをuに反映します。
// ユーザー名またはメールアドレスが重複する場合、usecase.ErrUserAlreadyExistsを返します。
func (r *userGorm) Create(ctx context.Context, u *entity.User) error {
	m := toModel(u)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDuplicateKey(err) {
			return usecase.ErrUserAlreadyExists
		}
		return err
	}
	u.ID = m.ID
	u.CreatedAt = m.CreatedAt
	u.UpdatedAt = m.UpdatedAt
	return nil
}

// FindByLogin はユーザー名またはメールアドレスでユーザーを取得します。
// メールアドレスは大文字小文字を区別しません。
func (r *userGorm) FindByLogin(ctx context.Context, login string) (*entity.User, error) {
	var m UserModel
	err := r.db.WithContext(ctx).
		Where("username = ? OR LOWER(email) = LOWER(?)", login, login).
		Order("id").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}
	return m.toEntity(), nil
}

// FindByID はIDでユーザーを取得します。
func (r *userGorm) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}
	return m.toEntity(), nil
}

// List はユーザーをID順で返します。statusが空の場合は全件を返します。
func (r *userGorm) List(ctx context.Context, status entity.ApprovalStatus) ([]entity.User, error) {
	q := r.db.WithContext(ctx).Model(&UserModel{})
	if status != "" {
		q = q.Where("approval_status = ?", string(status))
	}

	var rows []UserModel
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	users := make([]entity.User, 0, len(rows))
	for i := range rows {
		users = append(users, *rows[i].toEntity())
	}
	return users, nil
}

// UpdateApproval は承認ステータスを更新し、更新後のユーザーを返します。
func (r *userGorm) UpdateApproval(ctx context.Context, id uint, status entity.ApprovalStatus) (*entity.User, error) {
	res := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Update("approval_status", string(status))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, usecase.ErrUserNotFound
	}
	return r.FindByID(ctx, id)
}

// Deactivate はis_activeをfalseにします。
func (r *userGorm) Deactivate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrUserNotFound
	}
	return nil
}

// TouchLastLogin は最終ログイン日時を記録します。updated_atは変更しません。
func (r *userGorm) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).UpdateColumn("last_login", at).Error
}

// UpdateProfile はnilでない姓名のみを更新し、更新後のユーザーを返します。
func (r *userGorm) UpdateProfile(ctx context.Context, id uint, p entity.ProfileUpdate) (*entity.User, error) {
	updates := make(map[string]any, 2)
	if p.FirstName != nil {
		updates["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		updates["last_name"] = *p.LastName
	}
	if len(updates) == 0 {
		return r.FindByID(ctx, id)
	}

	res := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, usecase.ErrUserNotFound
	}
	return r.FindByID(ctx, id)
}

// isDuplicateKey はGORMが変換した重複エラーとPostgreSQLの23505を判定します。
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
