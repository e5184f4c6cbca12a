// Package dto はauthフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import "time"

// RegisterReq は/registerエンドポイントのリクエストボディを表します。
type RegisterReq struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginReq は/loginエンドポイントのリクエストボディを表します。
// UsernameOrEmail にはユーザー名とメールアドレスのどちらも指定できます。
type LoginReq struct {
	UsernameOrEmail string `json:"username_or_email" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

// RefreshReq represents the request for token refresh.
type RefreshReq struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ApprovalReq は承認ステータス変更のリクエストボディです。
type ApprovalReq struct {
	Status string `json:"status" binding:"required"`
}

// ProfileReq は PUT /me/profile のリクエストボディです。
// 省略した項目は変更されません。
type ProfileReq struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,max=100"`
}

// UserRes is the public view of a user. The password hash is never exposed.
type UserRes struct {
	ID             uint       `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Role           string     `json:"role"`
	ApprovalStatus string     `json:"approval_status"`
	IsActive       bool       `json:"is_active"`
	LastLogin      *time.Time `json:"last_login"`
	CreatedAt      time.Time  `json:"created_at"`
}

// TokenRes is returned by /login and /refresh.
type TokenRes struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	User         *UserRes `json:"user,omitempty"`
}

// UserListRes is returned by GET /admin/users.
type UserListRes struct {
	Users []UserRes `json:"users"`
	Total int       `json:"total"`
}
