package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Inur123/Be-Laci/internal/apperr"
	"github.com/Inur123/Be-Laci/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/register",
	"/v1/auth/login",
	"/v1/auth/refresh",
	"/healthz",
	"/readyz",
	"/metrics",
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// withAuth authenticates every non-public request and stores the principal in
// the request context.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			respondError(w, apperr.Unauthorized("Token tidak valid"))
			return
		}
		principal, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			respondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// principal pulls the authenticated account from the context. Handlers behind
// withAuth can rely on it being present.
func principal(r *http.Request) (auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return auth.Principal{}, apperr.Unauthorized("Token tidak valid")
	}
	return p, nil
}

// verifiedPrincipal additionally requires a verified email, using the value
// carried by the principal to avoid a second account lookup.
func (a *API) verifiedPrincipal(r *http.Request) (auth.Principal, error) {
	p, err := principal(r)
	if err != nil {
		return auth.Principal{}, err
	}
	hint := &auth.VerificationHint{EmailVerified: p.EmailVerified}
	if err := a.auth.EnsureVerified(r.Context(), p.UserID, hint); err != nil {
		return auth.Principal{}, err
	}
	return p, nil
}
