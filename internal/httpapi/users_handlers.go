package httpapi

import (
	"net/http"

	"github.com/Inur123/Be-Laci/internal/auth"
)

type userActiveRequest struct {
	IsActive bool `json:"isActive"`
}

func (a *API) handleUserList(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := auth.RequireRole(p.Role, auth.RoleCabang); err != nil {
		respondError(w, err)
		return
	}
	page, limit, offset := pagination(r)
	q := r.URL.Query()
	users, total, err := a.auth.ListUsers(r.Context(), auth.UserListFilter{
		Role:   auth.Role(q.Get("role")),
		Query:  q.Get("q"),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOKMeta(w, users, paginateMeta(page, limit, total))
}

func (a *API) handleUserSetActive(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := auth.RequireRole(p.Role, auth.RoleCabang); err != nil {
		respondError(w, err)
		return
	}
	var req userActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	user, err := a.auth.SetUserActive(r.Context(), r.PathValue("id"), req.IsActive)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, user)
}
