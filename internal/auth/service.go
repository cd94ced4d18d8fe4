package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/Inur123/Be-Laci/internal/apperr"
	"github.com/Inur123/Be-Laci/internal/mailer"
)

const (
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	verifyTokenTTL    = 24 * time.Hour
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Service owns account lifecycle, credential checks and token issuance.
type Service struct {
	store      Store
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mail       *mailer.Dispatcher
	appBaseURL string
}

// Option configures Service behavior.
type Option func(*Service)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithVerificationMail wires the dispatcher and the public base URL used to
// build verification links. Without it verification tokens are still issued,
// just not mailed.
func WithVerificationMail(d *mailer.Dispatcher, baseURL string) Option {
	return func(s *Service) {
		s.mail = d
		s.appBaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithClock overrides the time source. Test use.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the auth service.
func NewService(store Store, secret string, opts ...Option) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: token secret is required")
	}
	svc := &Service{
		store:      store,
		secret:     []byte(secret),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RegisterInput carries the registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a new sub-branch account (inactive, unverified) and issues
// an initial token pair.
func (s *Service) Register(ctx context.Context, in RegisterInput) (TokenPair, error) {
	fields := map[string]string{}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if len(strings.TrimSpace(in.Name)) < 2 {
		fields["name"] = "Nama minimal 2 karakter"
	}
	if !emailPattern.MatchString(email) {
		fields["email"] = "Email tidak valid"
	}
	if len(in.Password) < 6 {
		fields["password"] = "Password minimal 6 karakter"
	}
	if len(fields) > 0 {
		return TokenPair{}, apperr.Validation(fields)
	}

	if _, err := s.store.Users().FindByEmail(ctx, email); err == nil {
		return TokenPair{}, apperr.ValidationConflict("email", "Email sudah terdaftar")
	} else if !errors.Is(err, ErrNotFound) {
		return TokenPair{}, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return TokenPair{}, err
	}
	user := &User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         RolePAC,
		IsActive:     false,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return TokenPair{}, err
	}
	return s.mintTokens(ctx, user)
}

// Login verifies credentials and issues a token pair. Inactive accounts are
// rejected even with valid credentials.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	fields := map[string]string{}
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailPattern.MatchString(email) {
		fields["email"] = "Email tidak valid"
	}
	if password == "" {
		fields["password"] = "Password wajib diisi"
	}
	if len(fields) > 0 {
		return TokenPair{}, apperr.Validation(fields)
	}

	user, err := s.store.Users().FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return TokenPair{}, apperr.Unauthorized("Email atau password salah")
	}
	if err != nil {
		return TokenPair{}, err
	}
	if !user.IsActive {
		return TokenPair{}, apperr.RoleForbidden("Akun tidak aktif")
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, apperr.Unauthorized("Email atau password salah")
	}
	return s.mintTokens(ctx, user)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. Revoked, expired or forged tokens fail uniformly.
func (s *Service) Refresh(ctx context.Context, rawToken string) (TokenPair, error) {
	tokenID, secret, err := splitRefreshToken(rawToken)
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("Token tidak valid")
	}

	tokens := s.store.RefreshTokens()
	rec, err := tokens.Find(ctx, tokenID)
	if errors.Is(err, ErrNotFound) {
		return TokenPair{}, apperr.Unauthorized("Token tidak valid")
	}
	if err != nil {
		return TokenPair{}, err
	}
	if rec.RevokedAt != nil || s.now().After(rec.ExpiresAt) {
		return TokenPair{}, apperr.Unauthorized("Token tidak valid")
	}
	if subtle.ConstantTimeCompare([]byte(rec.TokenHash), []byte(hashRefreshSecret(secret))) != 1 {
		_ = tokens.Revoke(ctx, rec.ID)
		return TokenPair{}, apperr.Unauthorized("Token tidak valid")
	}

	user, err := s.store.Users().Find(ctx, rec.UserID)
	if errors.Is(err, ErrNotFound) {
		return TokenPair{}, apperr.NotFound("User tidak ditemukan")
	}
	if err != nil {
		return TokenPair{}, err
	}

	if err := tokens.Revoke(ctx, rec.ID); err != nil {
		return TokenPair{}, err
	}
	return s.mintTokens(ctx, user)
}

// Logout revokes every refresh token of the account and bumps its token
// version, invalidating all outstanding access tokens at once.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	tokenID, secret, err := splitRefreshToken(rawToken)
	if err != nil {
		return apperr.Unauthorized("Token tidak valid")
	}
	tokens := s.store.RefreshTokens()
	rec, err := tokens.Find(ctx, tokenID)
	if errors.Is(err, ErrNotFound) {
		return apperr.Unauthorized("Token tidak valid")
	}
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(rec.TokenHash), []byte(hashRefreshSecret(secret))) != 1 {
		return apperr.Unauthorized("Token tidak valid")
	}
	if err := tokens.RevokeAllForUser(ctx, rec.UserID); err != nil {
		return err
	}
	return s.store.Users().IncrementTokenVersion(ctx, rec.UserID)
}

// Authenticate validates a bearer access token: signature, account existence,
// active flag and token version must all hold.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (Principal, error) {
	claims, err := parseAccessToken(s.secret, rawToken)
	if err != nil {
		return Principal{}, apperr.Unauthorized("Token tidak valid")
	}
	user, err := s.store.Users().Find(ctx, claims.Subject)
	if errors.Is(err, ErrNotFound) {
		return Principal{}, apperr.Unauthorized("Token tidak valid")
	}
	if err != nil {
		return Principal{}, err
	}
	if !user.IsActive || user.TokenVersion != claims.TokenVersion {
		return Principal{}, apperr.Unauthorized("Token tidak valid")
	}
	return Principal{UserID: user.ID, Role: user.Role, EmailVerified: user.EmailVerified}, nil
}

// Me returns the account behind the principal.
func (s *Service) Me(ctx context.Context, userID string) (*User, error) {
	user, err := s.store.Users().Find(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("User tidak ditemukan")
	}
	return user, err
}

// VerificationHint is a pre-fetched emailVerified value. When non-nil it is
// trusted without another lookup.
type VerificationHint struct {
	EmailVerified *time.Time
}

// EnsureVerified fails unless the account exists and its email is verified.
func (s *Service) EnsureVerified(ctx context.Context, userID string, hint *VerificationHint) error {
	if hint != nil {
		if hint.EmailVerified == nil {
			return apperr.EmailNotVerified()
		}
		return nil
	}
	user, err := s.store.Users().Find(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("User tidak ditemukan")
	}
	if err != nil {
		return err
	}
	if user.EmailVerified == nil {
		return apperr.EmailNotVerified()
	}
	return nil
}

// RequireRole fails unless the role is in the allowed set.
func RequireRole(role Role, allowed ...Role) error {
	for _, a := range allowed {
		if role == a {
			return nil
		}
	}
	return apperr.RoleForbidden("Akses ditolak")
}

// ListUsers pages accounts, optionally filtered by role and free text.
// Branch-only operation, enforced at the transport layer.
func (s *Service) ListUsers(ctx context.Context, filter UserListFilter) ([]*User, int, error) {
	return s.store.Users().List(ctx, filter)
}

// SetUserActive toggles an account's activation flag.
func (s *Service) SetUserActive(ctx context.Context, userID string, active bool) (*User, error) {
	users := s.store.Users()
	if _, err := users.Find(ctx, userID); errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("User tidak ditemukan")
	} else if err != nil {
		return nil, err
	}
	if err := users.SetActive(ctx, userID, active); err != nil {
		return nil, err
	}
	return users.Find(ctx, userID)
}

// ProfileInput is the partial self-service profile edit. Nil means absent.
// Changing the password requires the current one; changing the email drops
// the verification status.
type ProfileInput struct {
	Name            *string
	Email           *string
	CurrentPassword *string
	NewPassword     *string
}

// UpdateProfile applies a partial edit to the caller's own account.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*User, error) {
	fields := map[string]string{}
	var upd ProfileUpdate

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			fields["name"] = "Nama wajib diisi"
		}
		upd.Name = &name
	}
	var email string
	if in.Email != nil {
		email = strings.TrimSpace(strings.ToLower(*in.Email))
		if !emailPattern.MatchString(email) {
			fields["email"] = "Email tidak valid"
		}
	}
	if in.NewPassword != nil {
		if len(*in.NewPassword) < 6 {
			fields["newPassword"] = "Password minimal 6 karakter"
		}
		if in.CurrentPassword == nil || *in.CurrentPassword == "" {
			fields["currentPassword"] = "Password lama wajib diisi"
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	user, err := s.store.Users().Find(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("User tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}

	if in.NewPassword != nil {
		if err := VerifyPassword(user.PasswordHash, *in.CurrentPassword); err != nil {
			return nil, apperr.Validation(map[string]string{"currentPassword": "Password lama salah"})
		}
		hash, err := HashPassword(*in.NewPassword)
		if err != nil {
			return nil, err
		}
		upd.PasswordHash = &hash
	}

	if in.Email != nil && email != user.Email {
		if _, err := s.store.Users().FindByEmail(ctx, email); err == nil {
			return nil, apperr.ValidationConflict("email", "Email sudah terdaftar")
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		upd.Email = &email
		// The new address has to be verified again.
		upd.ClearVerification = true
	}

	updated, err := s.store.Users().UpdateProfile(ctx, userID, upd)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("User tidak ditemukan")
	}
	return updated, err
}

// VerificationRequest is the outcome of requesting or confirming email
// verification. Token and ExpiresAt are only set when a new token was issued.
type VerificationRequest struct {
	Verified  bool       `json:"verified"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// RequestEmailVerification issues a fresh verification token for the account
// and mails the verification link. Already verified accounts short-circuit.
func (s *Service) RequestEmailVerification(ctx context.Context, userID string) (*VerificationRequest, error) {
	user, err := s.store.Users().Find(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("User tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	if user.EmailVerified != nil {
		return &VerificationRequest{Verified: true}, nil
	}

	token, err := generateVerifyToken()
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(verifyTokenTTL)
	err = s.store.Users().SetEmailVerification(ctx, userID, EmailVerification{
		TokenHash: sha256Hex(token),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	if s.mail != nil {
		link := s.appBaseURL + "/verify-email?token=" + token
		s.mail.Enqueue(mailer.EmailVerification(user.Email, user.Name, link))
	}
	return &VerificationRequest{Token: token, ExpiresAt: &expiresAt}, nil
}

// VerifyEmail redeems a verification token. Expired, unknown and already
// cleared tokens all fail; a verified account short-circuits to success.
func (s *Service) VerifyEmail(ctx context.Context, userID, token string) (*VerificationRequest, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Validation(map[string]string{"token": "Token wajib diisi"})
	}

	user, err := s.store.Users().Find(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("User tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	if user.EmailVerified != nil {
		return &VerificationRequest{Verified: true}, nil
	}

	pending, err := s.store.Users().PendingVerification(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, apperr.ValidationMessage("Token tidak valid")
	}
	if s.now().After(pending.ExpiresAt) {
		return nil, apperr.ValidationMessage("Token sudah kedaluwarsa")
	}
	if subtle.ConstantTimeCompare([]byte(pending.TokenHash), []byte(sha256Hex(token))) != 1 {
		return nil, apperr.ValidationMessage("Token tidak valid")
	}

	if err := s.store.Users().MarkEmailVerified(ctx, userID, s.now()); err != nil {
		return nil, err
	}
	return &VerificationRequest{Verified: true}, nil
}

// PasswordReset is the result of a branch-side forced reset.
type PasswordReset struct {
	Email             string `json:"email"`
	TemporaryPassword string `json:"temporaryPassword"`
}

// ResetUserPassword replaces a sub-branch account's password with a one-time
// temporary one and invalidates every outstanding token of the account.
// Branch-only operation, enforced at the transport layer.
func (s *Service) ResetUserPassword(ctx context.Context, targetID string) (*PasswordReset, error) {
	users := s.store.Users()
	target, err := users.Find(ctx, targetID)
	if errors.Is(err, ErrNotFound) || (err == nil && target.Role != RolePAC) {
		return nil, apperr.NotFound("User PAC tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}

	temp, err := generateTempPassword()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(temp)
	if err != nil {
		return nil, err
	}
	if _, err := users.UpdateProfile(ctx, targetID, ProfileUpdate{PasswordHash: &hash}); err != nil {
		return nil, err
	}
	if err := s.store.RefreshTokens().RevokeAllForUser(ctx, targetID); err != nil {
		return nil, err
	}
	if err := users.IncrementTokenVersion(ctx, targetID); err != nil {
		return nil, err
	}
	return &PasswordReset{Email: target.Email, TemporaryPassword: temp}, nil
}

func (s *Service) mintTokens(ctx context.Context, user *User) (TokenPair, error) {
	now := s.now()
	access, err := signAccessToken(s.secret, user, s.accessTTL, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rec, err := generateRefreshToken(user.ID, s.refreshTTL, now)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.RefreshTokens().Create(ctx, rec); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}
