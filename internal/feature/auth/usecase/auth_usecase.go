// Package usecase はauthフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"quantpulse_backend/internal/feature/auth/domain/entity"
	jwtmw "quantpulse_backend/internal/platform/jwt"
)

const (
	// minPasswordLength はパスワードの最低文字数を定義します。
	minPasswordLength = 8
	// maxNameLength はプロフィールの姓名それぞれの最大文字数です。
	maxNameLength = 100

	// dummyHash はユーザーが存在しない場合のタイミング攻撃緩和用ダミーハッシュです。
	dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
)

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// Create は新しいユーザーをストレージに永続化します。
	// ユーザー名またはメールアドレスが既に存在する場合、ErrUserAlreadyExistsを返します。
	Create(ctx context.Context, user *entity.User) error

	// FindByLogin はユーザー名またはメールアドレスに一致するユーザーを取得します。
	// ユーザーが存在しない場合、ErrUserNotFoundを返します。
	FindByLogin(ctx context.Context, login string) (*entity.User, error)

	// FindByID は指定されたIDに一致するユーザーを取得します。
	// ユーザーが存在しない場合、ErrUserNotFoundを返します。
	FindByID(ctx context.Context, id uint) (*entity.User, error)

	// List はユーザーをID順で返します。statusが空の場合は全件を返します。
	List(ctx context.Context, status entity.ApprovalStatus) ([]entity.User, error)

	// UpdateApproval は承認ステータスを更新し、更新後のユーザーを返します。
	UpdateApproval(ctx context.Context, id uint, status entity.ApprovalStatus) (*entity.User, error)

	// Deactivate はユーザーを無効化します。行は削除しません。
	Deactivate(ctx context.Context, id uint) error

	// TouchLastLogin は最終ログイン日時を記録します。
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error

	// UpdateProfile はnilでない姓名のみを更新し、更新後のユーザーを返します。
	UpdateProfile(ctx context.Context, id uint, p entity.ProfileUpdate) (*entity.User, error)
}

// JWTGenerator はJWTトークン生成のインターフェースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（platform/jwt）ではなくコンシューマー（usecase）が定義します。
type JWTGenerator interface {
	GenerateToken(id jwtmw.Identity) (string, error)
	GenerateRefreshToken(id jwtmw.Identity) (string, error)
	ParseRefreshToken(token string) (jwtmw.Identity, error)
	AccessTTL() time.Duration
}

// TokenPair is issued on login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Tokens TokenPair
	User   *entity.User
}

// AdminAccount is the predefined administrator seeded at startup.
type AdminAccount struct {
	Username string
	Email    string
	Password string
}

// authUsecase は認証ビジネスロジックを実装します。
type authUsecase struct {
	users        UserRepository
	jwtGenerator JWTGenerator
	now          func() time.Time
}

// NewAuthUsecase はauthUsecaseの新しいインスタンスを生成します。
func NewAuthUsecase(users UserRepository, jwtGenerator JWTGenerator) *authUsecase {
	return &authUsecase{
		users:        users,
		jwtGenerator: jwtGenerator,
		now:          time.Now,
	}
}

// validatePassword はパスワードがセキュリティ要件を満たしているかチェックします。
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters long", ErrWeakPassword, minPasswordLength)
	}
	return nil
}

// Register はPENDING状態の一般ユーザーを登録します。管理者の承認までログインできません。
func (u *authUsecase) Register(ctx context.Context, username, email, password string) (*entity.User, error) {
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Username:       strings.TrimSpace(username),
		Email:          strings.ToLower(strings.TrimSpace(email)),
		Password:       string(hashed),
		Role:           entity.RoleUser,
		ApprovalStatus: entity.ApprovalPending,
		IsActive:       true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login はユーザー名またはメールアドレスで認証し、トークンペアを返します。
// タイミング攻撃を防止するため、ユーザーが存在しない場合でもbcrypt比較を実行します。
// 認証情報の検証後に、無効化（ErrUserInactive）と未承認（ErrNotApproved）を判定します。
func (u *authUsecase) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	user, err := u.users.FindByLogin(ctx, strings.TrimSpace(login))
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	passwordHash := dummyHash
	if err == nil {
		passwordHash = user.Password
	}

	// 第1引数はハッシュ化パスワード、第2引数は平文パスワード
	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))
	if err != nil || compareErr != nil {
		return nil, ErrInvalidCredentials
	}

	if err := checkLoginAllowed(user); err != nil {
		return nil, err
	}

	tokens, err := u.issueTokens(user)
	if err != nil {
		return nil, err
	}

	now := u.now()
	if err := u.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		// ログイン自体は成功させる
		slog.Warn("failed to record last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLogin = &now
	}

	return &LoginResult{Tokens: tokens, User: user}, nil
}

// Refresh はリフレッシュトークンを検証し、新しいトークンペアを発行します。
// 発行後に無効化または承認取り消しされたユーザーは拒否されます。
func (u *authUsecase) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	id, err := u.jwtGenerator.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	user, err := u.users.FindByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}
	if err := checkLoginAllowed(user); err != nil {
		return TokenPair{}, err
	}

	return u.issueTokens(user)
}

// Me は認証済みユーザー自身の情報を返します。
func (u *authUsecase) Me(ctx context.Context, userID uint) (*entity.User, error) {
	return u.users.FindByID(ctx, userID)
}

// UpdateProfile は認証済みユーザー自身の姓名を更新します。
// 指定されなかった項目は変更しません。空文字はその項目のクリアです。
func (u *authUsecase) UpdateProfile(ctx context.Context, userID uint, p entity.ProfileUpdate) (*entity.User, error) {
	p.FirstName = trimName(p.FirstName)
	p.LastName = trimName(p.LastName)
	for _, name := range []*string{p.FirstName, p.LastName} {
		if name != nil && utf8.RuneCountInString(*name) > maxNameLength {
			return nil, fmt.Errorf("%w: name longer than %d characters", ErrInvalidProfile, maxNameLength)
		}
	}

	if p.Empty() {
		return u.users.FindByID(ctx, userID)
	}

	user, err := u.users.UpdateProfile(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	slog.Info("user profile updated", "user_id", userID)
	return user, nil
}

func trimName(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// ListUsers はユーザー一覧を返します。statusが空の場合は全件です。
func (u *authUsecase) ListUsers(ctx context.Context, status string) ([]entity.User, error) {
	var filter entity.ApprovalStatus
	if strings.TrimSpace(status) != "" {
		st, err := entity.ParseApprovalStatus(status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidApprovalStatus, err)
		}
		filter = st
	}
	return u.users.List(ctx, filter)
}

// GetUser はIDでユーザーを返します。
func (u *authUsecase) GetUser(ctx context.Context, id uint) (*entity.User, error) {
	return u.users.FindByID(ctx, id)
}

// SetApproval はユーザーの承認ステータスを変更します。
func (u *authUsecase) SetApproval(ctx context.Context, id uint, status string) (*entity.User, error) {
	st, err := entity.ParseApprovalStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidApprovalStatus, err)
	}

	user, err := u.users.UpdateApproval(ctx, id, st)
	if err != nil {
		return nil, err
	}
	slog.Info("user approval status changed", "user_id", id, "status", st)
	return user, nil
}

// DeactivateUser はユーザーを無効化します。管理者自身は無効化できません。
func (u *authUsecase) DeactivateUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return ErrCannotDeactivateSelf
	}
	if err := u.users.Deactivate(ctx, id); err != nil {
		return err
	}
	slog.Info("user deactivated", "user_id", id, "by", actorID)
	return nil
}

// EnsureAdmin は事前定義の管理者アカウントが存在しない場合に作成します。
// 既に同じユーザー名のユーザーが存在する場合は何もしません。
func (u *authUsecase) EnsureAdmin(ctx context.Context, admin AdminAccount) error {
	if admin.Username == "" || admin.Password == "" {
		slog.Warn("admin account not configured, skipping seed")
		return nil
	}

	_, err := u.users.FindByLogin(ctx, admin.Username)
	if err == nil {
		slog.Info("admin user already exists", "username", admin.Username)
		return nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user := &entity.User{
		Username:       admin.Username,
		Email:          strings.ToLower(admin.Email),
		Password:       string(hashed),
		Role:           entity.RoleAdmin,
		ApprovalStatus: entity.ApprovalApproved,
		IsActive:       true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	slog.Info("predefined admin user created", "username", admin.Username)
	return nil
}

func checkLoginAllowed(user *entity.User) error {
	if !user.IsActive {
		return ErrUserInactive
	}
	if user.ApprovalStatus != entity.ApprovalApproved {
		return ErrNotApproved
	}
	return nil
}

func (u *authUsecase) issueTokens(user *entity.User) (TokenPair, error) {
	id := jwtmw.Identity{UserID: user.ID, Username: user.Username, Role: string(user.Role)}

	access, err := u.jwtGenerator.GenerateToken(id)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to generate token: %w", err)
	}
	refresh, err := u.jwtGenerator.GenerateRefreshToken(id)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: u.jwtGenerator.AccessTTL()}, nil
}
