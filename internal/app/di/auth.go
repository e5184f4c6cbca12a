package di

import (
	"context"

	"gorm.io/gorm"

	"quantpulse_backend/internal/feature/auth/adapters"
	authhandler "quantpulse_backend/internal/feature/auth/transport/handler"
	"quantpulse_backend/internal/feature/auth/usecase"
	jwtmw "quantpulse_backend/internal/platform/jwt"
)

// AuthService is what cmd/server needs from the auth feature: the handler
// operations plus the startup admin seed.
type AuthService interface {
	authhandler.AuthUsecase
	EnsureAdmin(ctx context.Context, admin usecase.AdminAccount) error
}

// NewAuthUsecase wires registration, login and user administration.
func NewAuthUsecase(db *gorm.DB, cfg jwtmw.Config) AuthService {
	return usecase.NewAuthUsecase(adapters.NewUserRepository(db), jwtmw.NewGeneratorFromConfig(cfg))
}
