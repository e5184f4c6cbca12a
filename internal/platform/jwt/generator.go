package jwtmw

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "typ" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken is returned when a token fails verification or has the wrong type.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the subject a token is issued for.
type Identity struct {
	UserID   uint
	Username string
	Role     string
}

// generator signs access and refresh tokens with one HMAC secret.
type generator struct {
	secret     []byte
	expiration time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewGenerator creates a new JWT generator with the provided secret and expiration duration.
// Refresh tokens live seven times as long as access tokens unless WithRefreshTTL is used.
func NewGenerator(secret string, expiration time.Duration) *generator {
	return &generator{
		secret:     []byte(secret),
		expiration: expiration,
		refreshTTL: 7 * expiration,
		now:        time.Now,
	}
}

// NewGeneratorFromConfig creates a generator from Config.
func NewGeneratorFromConfig(cfg Config) *generator {
	return NewGenerator(cfg.Secret, cfg.AccessTTL).WithRefreshTTL(cfg.RefreshTTL)
}

// WithRefreshTTL overrides the refresh token lifetime.
func (g *generator) WithRefreshTTL(ttl time.Duration) *generator {
	if ttl > 0 {
		g.refreshTTL = ttl
	}
	return g
}

// AccessTTL is the lifetime of access tokens.
func (g *generator) AccessTTL() time.Duration {
	return g.expiration
}

// GenerateToken creates a signed access token.
func (g *generator) GenerateToken(id Identity) (string, error) {
	return g.sign(id, TokenTypeAccess, g.expiration)
}

// GenerateRefreshToken creates a signed refresh token.
func (g *generator) GenerateRefreshToken(id Identity) (string, error) {
	return g.sign(id, TokenTypeRefresh, g.refreshTTL)
}

// ParseRefreshToken verifies a refresh token and returns its subject.
func (g *generator) ParseRefreshToken(tokenStr string) (Identity, error) {
	claims, err := parse(tokenStr, g.secret)
	if err != nil {
		return Identity{}, err
	}
	if typ, _ := claims["typ"].(string); typ != TokenTypeRefresh {
		return Identity{}, ErrInvalidToken
	}
	return identityFrom(claims), nil
}

func (g *generator) sign(id Identity, typ string, ttl time.Duration) (string, error) {
	now := g.now()
	claims := jwt.MapClaims{
		"sub":      id.UserID,
		"username": id.Username,
		"role":     id.Role,
		"typ":      typ,
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// parse verifies signature and expiry. Only HMAC methods are accepted.
func parse(tokenStr string, secret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func identityFrom(claims jwt.MapClaims) Identity {
	var id Identity
	if sub, ok := claims["sub"].(float64); ok { // JWT numbers are decoded as float64
		id.UserID = uint(sub)
	}
	id.Username, _ = claims["username"].(string)
	id.Role, _ = claims["role"].(string)
	return id
}
