package auth

import "time"

// Role is the closed set of account roles. The wire values match the
// organizational vocabulary used by existing clients.
type Role string

const (
	// RolePAC is the sub-branch secretary: creates submissions scoped to
	// itself and its active period.
	RolePAC Role = "SEKRETARIS_PAC"
	// RoleCabang is the branch secretary: organization-wide visibility and
	// approval authority.
	RoleCabang Role = "SEKRETARIS_CABANG"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RolePAC, RoleCabang:
		return true
	}
	return false
}

// SeesAll reports whether the role has organization-wide visibility. This is
// the single broadening rule for listings and realtime fan-out; adding a role
// here widens every call site at once.
func (r Role) SeesAll() bool {
	return r == RoleCabang
}

// User is an authenticated principal.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"isActive"`
	// EmailVerified is the verification timestamp; nil means unverified.
	EmailVerified *time.Time `json:"emailVerified"`
	// TokenVersion invalidates all previously issued access tokens when
	// incremented (logout, forced reset).
	TokenVersion int       `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RefreshToken is a persisted, hashed refresh token record.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Principal is the authenticated identity attached to a request context by
// the bearer middleware. EmailVerified is carried along so downstream guards
// can skip a redundant user lookup.
type Principal struct {
	UserID        string
	Role          Role
	EmailVerified *time.Time
}

// TokenPair is the result of a successful login, register or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}
