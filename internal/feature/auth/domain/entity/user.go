// Package entity defines the domain entities for the auth feature.
package entity

import (
	"fmt"
	"strings"
	"time"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ApprovalStatus gates login: only APPROVED users receive tokens.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// ParseApprovalStatus accepts the status name case-insensitively.
func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	switch st := ApprovalStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return st, nil
	default:
		return "", fmt.Errorf("unknown approval status %q", s)
	}
}

// User represents a registered user in the system.
type User struct {
	// ID is the unique identifier for the user.
	ID uint

	// Username and Email are both unique and both accepted at login.
	Username string
	Email    string

	// Password is the bcrypt hash. Plaintext is never stored.
	Password string

	// FirstName and LastName are optional profile fields, empty until set.
	FirstName string
	LastName  string

	Role           Role
	ApprovalStatus ApprovalStatus
	IsActive       bool

	// LastLogin is nil until the first successful login.
	LastLogin *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileUpdate holds the profile fields to change. A nil field is left as is.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.FirstName == nil && p.LastName == nil
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
