package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Inur123/Be-Laci/internal/ids"
)

const issuer = "laci"

// ErrInvalidToken indicates a token failed verification.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims are the JWT claims carried by access tokens. TokenVersion must match
// the account's current counter for the token to be accepted, which gives
// instant server-side revocation without a blacklist.
type Claims struct {
	Role         Role `json:"role"`
	TokenVersion int  `json:"tv"`
	jwt.RegisteredClaims
}

func signAccessToken(secret []byte, user *User, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        ids.New(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseAccessToken(secret []byte, raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Refresh tokens are opaque "id.secret" strings: the id locates the persisted
// record, the secret is compared against its stored sha256 hash.

func generateRefreshToken(userID string, ttl time.Duration, now time.Time) (string, *RefreshToken, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)
	rec := &RefreshToken{
		ID:        ids.New(),
		UserID:    userID,
		TokenHash: hashRefreshSecret(secret),
		ExpiresAt: now.Add(ttl),
	}
	return rec.ID + "." + secret, rec, nil
}

func splitRefreshToken(raw string) (id, secret string, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidToken
	}
	return parts[0], parts[1], nil
}

func hashRefreshSecret(secret string) string {
	return sha256Hex(secret)
}

// Email verification tokens are single-use hex strings; only their sha256
// hash is persisted, next to an expiry on the user row.

func generateVerifyToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// generateTempPassword produces a short one-time password for the branch-side
// forced reset.
func generateTempPassword() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
