package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"quantpulse_backend/internal/feature/auth/domain/entity"
	jwtmw "quantpulse_backend/internal/platform/jwt"
)

// mockUserRepository is a mock implementation of UserRepository.
type mockUserRepository struct {
	CreateFunc         func(user *entity.User) error
	FindByLoginFunc    func(login string) (*entity.User, error)
	FindByIDFunc       func(id uint) (*entity.User, error)
	ListFunc           func(status entity.ApprovalStatus) ([]entity.User, error)
	UpdateApprovalFunc func(id uint, status entity.ApprovalStatus) (*entity.User, error)
	DeactivateFunc     func(id uint) error
	TouchLastLoginFunc func(id uint, at time.Time) error
	UpdateProfileFunc  func(id uint, p entity.ProfileUpdate) (*entity.User, error)
}

func (m *mockUserRepository) Create(_ context.Context, user *entity.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(user)
	}
	return nil
}

func (m *mockUserRepository) FindByLogin(_ context.Context, login string) (*entity.User, error) {
	if m.FindByLoginFunc != nil {
		return m.FindByLoginFunc(login)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) FindByID(_ context.Context, id uint) (*entity.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) List(_ context.Context, status entity.ApprovalStatus) ([]entity.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(status)
	}
	return nil, nil
}

func (m *mockUserRepository) UpdateApproval(_ context.Context, id uint, status entity.ApprovalStatus) (*entity.User, error) {
	if m.UpdateApprovalFunc != nil {
		return m.UpdateApprovalFunc(id, status)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) Deactivate(_ context.Context, id uint) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(id)
	}
	return nil
}

func (m *mockUserRepository) TouchLastLogin(_ context.Context, id uint, at time.Time) error {
	if m.TouchLastLoginFunc != nil {
		return m.TouchLastLoginFunc(id, at)
	}
	return nil
}

func (m *mockUserRepository) UpdateProfile(_ context.Context, id uint, p entity.ProfileUpdate) (*entity.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(id, p)
	}
	return nil, ErrUserNotFound
}

// mockJWTGenerator is a mock implementation of JWTGenerator.
type mockJWTGenerator struct {
	GenerateTokenFunc     func(id jwtmw.Identity) (string, error)
	ParseRefreshTokenFunc func(token string) (jwtmw.Identity, error)
}

func (m *mockJWTGenerator) GenerateToken(id jwtmw.Identity) (string, error) {
	if m.GenerateTokenFunc != nil {
		return m.GenerateTokenFunc(id)
	}
	return "access-token", nil
}

func (m *mockJWTGenerator) GenerateRefreshToken(jwtmw.Identity) (string, error) {
	return "refresh-token", nil
}

func (m *mockJWTGenerator) ParseRefreshToken(token string) (jwtmw.Identity, error) {
	if m.ParseRefreshTokenFunc != nil {
		return m.ParseRefreshTokenFunc(token)
	}
	return jwtmw.Identity{}, jwtmw.ErrInvalidToken
}

func (m *mockJWTGenerator) AccessTTL() time.Duration { return time.Hour }

func hashFor(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthUsecase_Register(t *testing.T) {
	t.Parallel()

	t.Run("success: creates a pending user with hashed password", func(t *testing.T) {
		t.Parallel()

		var created *entity.User
		repo := &mockUserRepository{CreateFunc: func(u *entity.User) error {
			u.ID = 7
			created = u
			return nil
		}}
		uc := NewAuthUsecase(repo, &mockJWTGenerator{})

		user, err := uc.Register(context.Background(), " alice ", "Alice@Example.com", "password123")

		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, uint(7), user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, entity.RoleUser, user.Role)
		assert.Equal(t, entity.ApprovalPending, user.ApprovalStatus)
		assert.True(t, user.IsActive)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	})

	t.Run("failure: short password is rejected before storage", func(t *testing.T) {
		t.Parallel()

		repo := &mockUserRepository{CreateFunc: func(*entity.User) error {
			t.Fatal("Create must not be called")
			return nil
		}}
		uc := NewAuthUsecase(repo, &mockJWTGenerator{})

		_, err := uc.Register(context.Background(), "bob", "bob@example.com", "short")
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("failure: duplicate user", func(t *testing.T) {
		t.Parallel()

		repo := &mockUserRepository{CreateFunc: func(*entity.User) error { return ErrUserAlreadyExists }}
		uc := NewAuthUsecase(repo, &mockJWTGenerator{})

		_, err := uc.Register(context.Background(), "bob", "bob@example.com", "password123")
		assert.ErrorIs(t, err, ErrUserAlreadyExists)
	})
}

func TestAuthUsecase_Login(t *testing.T) {
	t.Parallel()

	hash := hashFor(t, "password123")
	base := entity.User{
		ID:             3,
		Username:       "alice",
		Email:          "alice@example.com",
		Password:       hash,
		Role:           entity.RoleUser,
		ApprovalStatus: entity.ApprovalApproved,
		IsActive:       true,
	}

	tests := []struct {
		name     string
		mutate   func(u *entity.User)
		findErr  error
		password string
		wantErr  error
	}{
		{name: "success: approved active user", password: "password123"},
		{name: "failure: wrong password", password: "wrong-password", wantErr: ErrInvalidCredentials},
		{name: "failure: unknown user", findErr: ErrUserNotFound, password: "password123", wantErr: ErrInvalidCredentials},
		{
			name:     "failure: pending user",
			mutate:   func(u *entity.User) { u.ApprovalStatus = entity.ApprovalPending },
			password: "password123",
			wantErr:  ErrNotApproved,
		},
		{
			name:     "failure: rejected user",
			mutate:   func(u *entity.User) { u.ApprovalStatus = entity.ApprovalRejected },
			password: "password123",
			wantErr:  ErrNotApproved,
		},
		{
			name:     "failure: inactive user",
			mutate:   func(u *entity.User) { u.IsActive = false },
			password: "password123",
			wantErr:  ErrUserInactive,
		},
		{
			name:     "failure: pending user with wrong password gets invalid credentials",
			mutate:   func(u *entity.User) { u.ApprovalStatus = entity.ApprovalPending },
			password: "wrong-password",
			wantErr:  ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user := base
			if tt.mutate != nil {
				tt.mutate(&user)
			}
			var touched bool
			repo := &mockUserRepository{
				FindByLoginFunc: func(login string) (*entity.User, error) {
					assert.Equal(t, "alice", login)
					if tt.findErr != nil {
						return nil, tt.findErr
					}
					return &user, nil
				},
				TouchLastLoginFunc: func(id uint, _ time.Time) error {
					assert.Equal(t, uint(3), id)
					touched = true
					return nil
				},
			}
			uc := NewAuthUsecase(repo, &mockJWTGenerator{})
			fixed := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
			uc.now = func() time.Time { return fixed }

			res, err := uc.Login(context.Background(), " alice ", tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
				assert.False(t, touched)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "access-token", res.Tokens.AccessToken)
			assert.Equal(t, "refresh-token", res.Tokens.RefreshToken)
			assert.Equal(t, time.Hour, res.Tokens.ExpiresIn)
			assert.True(t, touched)
			require.NotNil(t, res.User.LastLogin)
			assert.Equal(t, fixed, *res.User.LastLogin)
		})
	}
}

func TestAuthUsecase_Login_TokenClaims(t *testing.T) {
	t.Parallel()

	admin := &entity.User{
		ID: 1, Username: "root", Password: hashFor(t, "password123"),
		Role: entity.RoleAdmin, ApprovalStatus: entity.ApprovalApproved, IsActive: true,
	}
	var got jwtmw.Identity
	gen := &mockJWTGenerator{GenerateTokenFunc: func(id jwtmw.Identity) (string, error) {
		got = id
		return "tok", nil
	}}
	repo := &mockUserRepository{FindByLoginFunc: func(string) (*entity.User, error) { return admin, nil }}

	_, err := NewAuthUsecase(repo, gen).Login(context.Background(), "root", "password123")

	require.NoError(t, err)
	assert.Equal(t, jwtmw.Identity{UserID: 1, Username: "root", Role: "admin"}, got)
}

func TestAuthUsecase_Login_LastLoginFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	user := &entity.User{
		ID: 2, Username: "alice", Password: hashFor(t, "password123"),
		Role: entity.RoleUser, ApprovalStatus: entity.ApprovalApproved, IsActive: true,
	}
	repo := &mockUserRepository{
		FindByLoginFunc:    func(string) (*entity.User, error) { return user, nil },
		TouchLastLoginFunc: func(uint, time.Time) error { return errors.New("db down") },
	}

	res, err := NewAuthUsecase(repo, &mockJWTGenerator{}).Login(context.Background(), "alice", "password123")

	require.NoError(t, err)
	assert.Nil(t, res.User.LastLogin)
}

func TestAuthUsecase_Login_RepositoryError(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("connection refused")
	repo := &mockUserRepository{FindByLoginFunc: func(string) (*entity.User, error) { return nil, dbErr }}

	_, err := NewAuthUsecase(repo, &mockJWTGenerator{}).Login(context.Background(), "alice", "password123")
	assert.ErrorIs(t, err, dbErr)
}

func TestAuthUsecase_Refresh(t *testing.T) {
	t.Parallel()

	approved := &entity.User{ID: 5, Username: "alice", Role: entity.RoleUser, ApprovalStatus: entity.ApprovalApproved, IsActive: true}
	rejected := &entity.User{ID: 6, Username: "bob", Role: entity.RoleUser, ApprovalStatus: entity.ApprovalRejected, IsActive: true}

	gen := &mockJWTGenerator{ParseRefreshTokenFunc: func(token string) (jwtmw.Identity, error) {
		switch token {
		case "valid-5":
			return jwtmw.Identity{UserID: 5}, nil
		case "valid-6":
			return jwtmw.Identity{UserID: 6}, nil
		case "valid-9":
			return jwtmw.Identity{UserID: 9}, nil
		}
		return jwtmw.Identity{}, jwtmw.ErrInvalidToken
	}}
	repo := &mockUserRepository{FindByIDFunc: func(id uint) (*entity.User, error) {
		switch id {
		case 5:
			return approved, nil
		case 6:
			return rejected, nil
		}
		return nil, ErrUserNotFound
	}}
	uc := NewAuthUsecase(repo, gen)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"success: approved user", "valid-5", nil},
		{"failure: approval revoked", "valid-6", ErrNotApproved},
		{"failure: user deleted", "valid-9", ErrInvalidRefreshToken},
		{"failure: bad token", "garbage", ErrInvalidRefreshToken},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pair, err := uc.Refresh(context.Background(), tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "access-token", pair.AccessToken)
			assert.Equal(t, "refresh-token", pair.RefreshToken)
		})
	}
}

func TestAuthUsecase_ListUsers(t *testing.T) {
	t.Parallel()

	var gotStatus entity.ApprovalStatus
	repo := &mockUserRepository{ListFunc: func(status entity.ApprovalStatus) ([]entity.User, error) {
		gotStatus = status
		return []entity.User{{ID: 1}}, nil
	}}
	uc := NewAuthUsecase(repo, &mockJWTGenerator{})

	users, err := uc.ListUsers(context.Background(), "pending")
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, entity.ApprovalPending, gotStatus)

	_, err = uc.ListUsers(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalStatus(""), gotStatus)

	_, err = uc.ListUsers(context.Background(), "maybe")
	assert.ErrorIs(t, err, ErrInvalidApprovalStatus)
}

func TestAuthUsecase_SetApproval(t *testing.T) {
	t.Parallel()

	repo := &mockUserRepository{UpdateApprovalFunc: func(id uint, status entity.ApprovalStatus) (*entity.User, error) {
		if id != 4 {
			return nil, ErrUserNotFound
		}
		return &entity.User{ID: id, ApprovalStatus: status}, nil
	}}
	uc := NewAuthUsecase(repo, &mockJWTGenerator{})

	user, err := uc.SetApproval(context.Background(), 4, "approved")
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalApproved, user.ApprovalStatus)

	_, err = uc.SetApproval(context.Background(), 4, "accepted")
	assert.ErrorIs(t, err, ErrInvalidApprovalStatus)

	_, err = uc.SetApproval(context.Background(), 99, "REJECTED")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthUsecase_UpdateProfile(t *testing.T) {
	t.Parallel()

	ptr := func(s string) *string { return &s }

	tests := []struct {
		name      string
		update    entity.ProfileUpdate
		wantErr   error
		wantRepo  bool
		wantFirst *string
		wantLast  *string
	}{
		{
			name:      "success: names are trimmed",
			update:    entity.ProfileUpdate{FirstName: ptr("  Alice "), LastName: ptr(" Liddell")},
			wantRepo:  true,
			wantFirst: ptr("Alice"),
			wantLast:  ptr("Liddell"),
		},
		{
			name:     "success: only last name",
			update:   entity.ProfileUpdate{LastName: ptr("Liddell")},
			wantRepo: true,
			wantLast: ptr("Liddell"),
		},
		{
			name:     "success: nothing to change reads the user",
			update:   entity.ProfileUpdate{},
			wantRepo: false,
		},
		{
			name:    "error: name too long",
			update:  entity.ProfileUpdate{FirstName: ptr(strings.Repeat("あ", 101))},
			wantErr: ErrInvalidProfile,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got *entity.ProfileUpdate
			repo := &mockUserRepository{
				UpdateProfileFunc: func(id uint, p entity.ProfileUpdate) (*entity.User, error) {
					got = &p
					return &entity.User{ID: id}, nil
				},
				FindByIDFunc: func(id uint) (*entity.User, error) {
					return &entity.User{ID: id, FirstName: "Existing"}, nil
				},
			}
			uc := NewAuthUsecase(repo, &mockJWTGenerator{})

			user, err := uc.UpdateProfile(context.Background(), 5, tt.update)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint(5), user.ID)

			if !tt.wantRepo {
				assert.Nil(t, got)
				assert.Equal(t, "Existing", user.FirstName)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantFirst, got.FirstName)
			assert.Equal(t, tt.wantLast, got.LastName)
		})
	}

	t.Run("error: unknown user", func(t *testing.T) {
		t.Parallel()

		uc := NewAuthUsecase(&mockUserRepository{}, &mockJWTGenerator{})
		_, err := uc.UpdateProfile(context.Background(), 99, entity.ProfileUpdate{FirstName: ptr("A")})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestAuthUsecase_DeactivateUser(t *testing.T) {
	t.Parallel()

	var deactivated []uint
	repo := &mockUserRepository{DeactivateFunc: func(id uint) error {
		deactivated = append(deactivated, id)
		return nil
	}}
	uc := NewAuthUsecase(repo, &mockJWTGenerator{})

	assert.ErrorIs(t, uc.DeactivateUser(context.Background(), 1, 1), ErrCannotDeactivateSelf)
	require.NoError(t, uc.DeactivateUser(context.Background(), 1, 2))
	assert.Equal(t, []uint{2}, deactivated)
}

func TestAuthUsecase_EnsureAdmin(t *testing.T) {
	t.Parallel()

	account := AdminAccount{Username: "admin", Email: "Admin@Example.com", Password: "admin-password"}

	t.Run("success: creates approved admin when missing", func(t *testing.T) {
		t.Parallel()

		var created *entity.User
		repo := &mockUserRepository{CreateFunc: func(u *entity.User) error {
			created = u
			return nil
		}}

		require.NoError(t, NewAuthUsecase(repo, &mockJWTGenerator{}).EnsureAdmin(context.Background(), account))
		require.NotNil(t, created)
		assert.Equal(t, "admin", created.Username)
		assert.Equal(t, "admin@example.com", created.Email)
		assert.Equal(t, entity.RoleAdmin, created.Role)
		assert.Equal(t, entity.ApprovalApproved, created.ApprovalStatus)
		assert.True(t, created.IsActive)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("admin-password")))
	})

	t.Run("success: existing admin is left untouched", func(t *testing.T) {
		t.Parallel()

		repo := &mockUserRepository{
			FindByLoginFunc: func(string) (*entity.User, error) { return &entity.User{ID: 1}, nil },
			CreateFunc: func(*entity.User) error {
				t.Fatal("Create must not be called")
				return nil
			},
		}
		assert.NoError(t, NewAuthUsecase(repo, &mockJWTGenerator{}).EnsureAdmin(context.Background(), account))
	})

	t.Run("success: unconfigured admin is skipped", func(t *testing.T) {
		t.Parallel()

		repo := &mockUserRepository{FindByLoginFunc: func(string) (*entity.User, error) {
			t.Fatal("FindByLogin must not be called")
			return nil, nil
		}}
		assert.NoError(t, NewAuthUsecase(repo, &mockJWTGenerator{}).EnsureAdmin(context.Background(), AdminAccount{}))
	})
}
