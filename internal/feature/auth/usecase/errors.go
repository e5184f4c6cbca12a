package usecase

import "errors"

var (
	// ErrUserNotFound is returned when a user cannot be found by username, email or ID.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists is returned when the username or email is already registered.
	ErrUserAlreadyExists = errors.New("username or email already registered")

	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserInactive is returned when a deactivated user tries to log in.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrNotApproved is returned when a PENDING or REJECTED user tries to log in.
	ErrNotApproved = errors.New("account has not been approved yet")

	// ErrInvalidRefreshToken is returned when a refresh token is invalid or malformed.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrInvalidApprovalStatus is returned for an approval status outside PENDING/APPROVED/REJECTED.
	ErrInvalidApprovalStatus = errors.New("invalid approval status")

	// ErrCannotDeactivateSelf is returned when an admin tries to deactivate their own account.
	ErrCannotDeactivateSelf = errors.New("cannot deactivate your own account")

	// ErrWeakPassword is returned when a password is shorter than the minimum length.
	ErrWeakPassword = errors.New("password too short")

	// ErrInvalidProfile is returned when a profile field exceeds its maximum length.
	ErrInvalidProfile = errors.New("invalid profile")
)
