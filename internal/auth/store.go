package auth

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("auth: not found")

// UserListFilter narrows and pages user listings.
type UserListFilter struct {
	Role   Role
	Query  string
	Offset int
	Limit  int
}

// ProfileUpdate is a partial account edit. Nil fields stay untouched.
type ProfileUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
	// ClearVerification drops the verified timestamp together with any
	// pending verification token. Set on email change.
	ClearVerification bool
}

// EmailVerification is a pending verification token on an account: the sha256
// hash of the issued token plus its expiry.
type EmailVerification struct {
	TokenHash string
	ExpiresAt time.Time
}

// UserStore manages accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter UserListFilter) ([]*User, int, error)
	SetActive(ctx context.Context, id string, active bool) error
	IncrementTokenVersion(ctx context.Context, id string) error
	// ListNotifiable returns active, email-verified accounts with the role.
	ListNotifiable(ctx context.Context, role Role) ([]*User, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error)
	SetEmailVerification(ctx context.Context, id string, v EmailVerification) error
	// PendingVerification returns nil when no token is outstanding.
	PendingVerification(ctx context.Context, id string) (*EmailVerification, error)
	// MarkEmailVerified stamps the account verified and clears the token.
	MarkEmailVerified(ctx context.Context, id string, at time.Time) error
}

// RefreshTokenStore manages the refresh token lifecycle.
type RefreshTokenStore interface {
	Create(ctx context.Context, tok *RefreshToken) error
	Find(ctx context.Context, id string) (*RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// Store bundles the persistence operations the auth subsystem needs.
type Store interface {
	Users() UserStore
	RefreshTokens() RefreshTokenStore
}
