// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"quantpulse_backend/internal/feature/auth/domain/entity"
	"quantpulse_backend/internal/feature/auth/transport/http/dto"
	"quantpulse_backend/internal/feature/auth/usecase"
	httpdto "quantpulse_backend/internal/platform/http/dto"
	jwtmw "quantpulse_backend/internal/platform/jwt"
)

// AuthUsecase は認証操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AuthUsecase interface {
	Register(ctx context.Context, username, email, password string) (*entity.User, error)
	Login(ctx context.Context, login, password string) (*usecase.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (usecase.TokenPair, error)
	Me(ctx context.Context, userID uint) (*entity.User, error)
	UpdateProfile(ctx context.Context, userID uint, p entity.ProfileUpdate) (*entity.User, error)
	ListUsers(ctx context.Context, status string) ([]entity.User, error)
	GetUser(ctx context.Context, id uint) (*entity.User, error)
	SetApproval(ctx context.Context, id uint, status string) (*entity.User, error)
	DeactivateUser(ctx context.Context, actorID, id uint) error
}

// AuthHandler は認証操作とユーザー管理のHTTPリクエストを処理します。
type AuthHandler struct {
	auth AuthUsecase
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
func NewAuthHandler(auth AuthUsecase) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register はユーザー登録APIエンドポイントを処理します。
// - バリデーションエラー時は400を返却
// - ユーザー名またはメールアドレス重複時は409を返却
// - 成功時はPENDING状態のユーザーと201を返却
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("register validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request"})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUserAlreadyExists):
			c.JSON(http.StatusConflict, httpdto.ErrorResponse{Error: usecase.ErrUserAlreadyExists.Error()})
		case errors.Is(err, usecase.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		default:
			slog.Error("register failed", "error", err, "username", req.Username)
			c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "register failed"})
		}
		return
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username, "remote_addr", c.ClientIP())
	c.JSON(http.StatusCreated, toUserRes(user))
}

// Login はユーザーログインAPIエンドポイントを処理します。
// - 認証失敗時は401、無効化または未承認のユーザーは403を返却
// - 成功時はアクセストークンとリフレッシュトークンを返却
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request"})
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		// ユーザー列挙攻撃を防止するため、認証失敗の詳細は公開しない
		slog.Warn("login failed", "error", err, "login", req.UsernameOrEmail, "remote_addr", c.ClientIP())
		writeAuthError(c, err)
		return
	}

	slog.Info("user login successful", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	user := toUserRes(res.User)
	c.JSON(http.StatusOK, toTokenRes(res.Tokens, &user))
}

// Refresh はリフレッシュトークンから新しいトークンペアを発行します。
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request"})
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		slog.Warn("token refresh failed", "error", err, "remote_addr", c.ClientIP())
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenRes(pair, nil))
}

// Me は認証済みユーザー自身の情報を返します。
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
		return
	}

	user, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
			return
		}
		slog.Error("failed to load current user", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "failed to load user"})
		return
	}
	c.JSON(http.StatusOK, toUserRes(user))
}

// UpdateProfile は認証済みユーザー自身の姓名を更新します。
//
// エンドポイント例:
// PUT /me/profile {"first_name": "Alice"}
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
		return
	}
	var req dto.ProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request"})
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), userID, entity.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUserNotFound):
			c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
		case errors.Is(err, usecase.ErrInvalidProfile):
			c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		default:
			slog.Error("failed to update profile", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "failed to update profile"})
		}
		return
	}
	c.JSON(http.StatusOK, toUserRes(user))
}

// ListUsers はユーザー一覧を返します（管理者のみ）。
//
// エンドポイント例:
// GET /admin/users?status=PENDING
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context(), c.Query("status"))
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidApprovalStatus) {
			c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid status"})
			return
		}
		slog.Error("failed to list users", "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "failed to list users"})
		return
	}

	out := make([]dto.UserRes, 0, len(users))
	for i := range users {
		out = append(out, toUserRes(&users[i]))
	}
	c.JSON(http.StatusOK, dto.UserListRes{Users: out, Total: len(out)})
}

// GetUser は指定IDのユーザーを返します（管理者のみ）。
func (h *AuthHandler) GetUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	user, err := h.auth.GetUser(c.Request.Context(), id)
	if err != nil {
		writeAdminError(c, err, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, toUserRes(user))
}

// SetApproval はユーザーの承認ステータスを変更します（管理者のみ）。
//
// エンドポイント例:
// POST /admin/users/12/approval {"status": "APPROVED"}
func (h *AuthHandler) SetApproval(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var req dto.ApprovalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request"})
		return
	}

	user, err := h.auth.SetApproval(c.Request.Context(), id, req.Status)
	if err != nil {
		writeAdminError(c, err, "failed to update approval")
		return
	}
	c.JSON(http.StatusOK, toUserRes(user))
}

// Deactivate はユーザーを無効化します（管理者のみ）。自分自身は無効化できません。
func (h *AuthHandler) Deactivate(c *gin.Context) {
	actorID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
		return
	}
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	if err := h.auth.DeactivateUser(c.Request.Context(), actorID, id); err != nil {
		writeAdminError(c, err, "failed to deactivate user")
		return
	}
	c.JSON(http.StatusOK, httpdto.MessageResponse{Message: "user deactivated"})
}

func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "invalid credentials"})
	case errors.Is(err, usecase.ErrInvalidRefreshToken):
		c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "invalid refresh token"})
	case errors.Is(err, usecase.ErrUserInactive), errors.Is(err, usecase.ErrNotApproved):
		c.JSON(http.StatusForbidden, httpdto.ErrorResponse{Error: err.Error()})
	default:
		slog.Error("authentication error", "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "authentication failed"})
	}
}

func writeAdminError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrUserNotFound):
		c.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "user not found"})
	case errors.Is(err, usecase.ErrInvalidApprovalStatus):
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid status"})
	case errors.Is(err, usecase.ErrCannotDeactivateSelf):
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	default:
		slog.Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: fallback})
	}
}

func userIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid user id"})
		return 0, false
	}
	return uint(id), true
}

func toUserRes(u *entity.User) dto.UserRes {
	return dto.UserRes{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           string(u.Role),
		ApprovalStatus: string(u.ApprovalStatus),
		IsActive:       u.IsActive,
		LastLogin:      u.LastLogin,
		CreatedAt:      u.CreatedAt,
	}
}

func toTokenRes(p usecase.TokenPair, user *dto.UserRes) dto.TokenRes {
	return dto.TokenRes{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(p.ExpiresIn.Seconds()),
		User:         user,
	}
}
