// Package router builds the gin engine and registers every HTTP route.
package router

import (
	"github.com/gin-gonic/gin"

	authhandler "quantpulse_backend/internal/feature/auth/transport/handler"
	importhandler "quantpulse_backend/internal/feature/symbolimport/transport/handler"
	symbollisthandler "quantpulse_backend/internal/feature/symbollist/transport/handler"
	"quantpulse_backend/internal/platform/http/handler"
	jwtmw "quantpulse_backend/internal/platform/jwt"
)

// Handlers groups the feature handlers mounted by NewRouter.
type Handlers struct {
	Auth      *authhandler.AuthHandler
	Symbol    *symbollisthandler.SymbolHandler
	Import    *importhandler.ImportHandler
	Readiness *handler.ReadinessHandler
}

// NewRouter registers all routes. jwtSecret verifies access tokens.
func NewRouter(h Handlers, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// 認証不要
	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	r.OPTIONS("/healthz", handler.Health)
	r.GET("/health", h.Readiness.Ready)
	// 新規ユーザー登録（管理者の承認待ち）
	r.POST("/register", h.Auth.Register)
	// ログイン（JWT 発行）
	r.POST("/login", h.Auth.Login)
	r.POST("/refresh", h.Auth.Refresh)

	// 認証必須のルート
	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired(jwtSecret))
	{
		auth.GET("/me", h.Auth.Me)
		auth.PUT("/me/profile", h.Auth.UpdateProfile)
		auth.GET("/symbols", h.Symbol.List)
		auth.GET("/symbols/selected", h.Symbol.Selected)
		auth.POST("/symbols/select", h.Symbol.Select)
	}

	// 管理者のみ
	admin := auth.Group("/")
	admin.Use(jwtmw.AdminRequired())
	{
		admin.GET("/admin/users", h.Auth.ListUsers)
		admin.GET("/admin/users/:id", h.Auth.GetUser)
		admin.POST("/admin/users/:id/approval", h.Auth.SetApproval)
		admin.DELETE("/admin/users/:id", h.Auth.Deactivate)

		admin.POST("/symbols/import", h.Import.ImportSymbols)
		admin.GET("/symbols/import/events", h.Import.Events)
		admin.POST("/symbols/import/:source", h.Import.Import)
	}

	return r
}
