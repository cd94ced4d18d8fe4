package httpapi

import (
	"net/http"

	"github.com/Inur123/Be-Laci/internal/activity"
	"github.com/Inur123/Be-Laci/internal/auth"
)

func (a *API) handleActivityListMine(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	page, limit, offset := pagination(r)
	q := r.URL.Query()
	items, total, err := a.trail.List(r.Context(), activity.ListFilter{
		UserID: p.UserID,
		Action: q.Get("action"),
		Method: q.Get("method"),
		Query:  q.Get("q"),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOKMeta(w, items, paginateMeta(page, limit, total))
}

func (a *API) handleActivityListAll(w http.ResponseWriter, r *http.Request) {
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
	items, total, err := a.trail.List(r.Context(), activity.ListFilter{
		UserID: q.Get("userId"),
		Action: q.Get("action"),
		Method: q.Get("method"),
		Query:  q.Get("q"),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOKMeta(w, items, paginateMeta(page, limit, total))
}

func (a *API) handleActivityStatsMine(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	stats, err := a.trail.Stats(r.Context(), p.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, stats)
}

func (a *API) handleActivityStatsAll(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := auth.RequireRole(p.Role, auth.RoleCabang); err != nil {
		respondError(w, err)
		return
	}
	stats, err := a.trail.Stats(r.Context(), "")
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, stats)
}
