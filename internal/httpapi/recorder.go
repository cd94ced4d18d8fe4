package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Inur123/Be-Laci/internal/activity"
	"github.com/Inur123/Be-Laci/internal/auth"
)

var mutatingMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// recordActivity appends a trail entry for every authenticated mutating
// request that succeeded. Auth endpoints are skipped, the token exchange is
// not part of the trail.
func (a *API) recordActivity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !mutatingMethods[r.Method] || strings.HasPrefix(r.URL.Path, "/v1/auth/") {
			next.ServeHTTP(w, r)
			return
		}

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		if sw.code < 200 || sw.code >= 300 {
			return
		}
		p, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			return
		}

		entry := &activity.Entry{
			UserID:      p.UserID,
			Action:      actionFor(r.Method, r.URL.Path),
			Method:      r.Method,
			Endpoint:    r.URL.Path,
			Description: describeAction(r.Method, r.URL.Path),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			a.trail.Record(ctx, entry)
		}()
	})
}

// actionFor derives a short action label like "create_periode" or
// "approve_pengajuan-pac" from the request shape.
func actionFor(method, path string) string {
	entity, verb := splitRoute(path)
	if verb == "" {
		switch method {
		case http.MethodPost:
			verb = "create"
		case http.MethodPut, http.MethodPatch:
			verb = "update"
		case http.MethodDelete:
			verb = "delete"
		default:
			verb = strings.ToLower(method)
		}
	}
	if entity == "" {
		return verb
	}
	return verb + "_" + entity
}

func describeAction(method, path string) string {
	return method + " " + path
}

// splitRoute pulls the entity segment and a trailing verb segment (approve,
// reject, activate, active) out of a /v1/... path.
func splitRoute(path string) (entity, verb string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 0 && parts[0] == "v1" {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return "", ""
	}
	entity = parts[0]
	switch last := parts[len(parts)-1]; last {
	case "approve", "reject", "activate":
		verb = last
	case "reset-password":
		verb = "reset_password"
	case "active":
		verb = "toggle"
	}
	return entity, verb
}
