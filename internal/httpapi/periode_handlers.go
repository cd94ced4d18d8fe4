package httpapi

import (
	"net/http"

	"github.com/Inur123/Be-Laci/internal/periode"
)

type periodeRequest struct {
	Nama     *string `json:"nama"`
	IsActive *bool   `json:"isActive"`
}

func (a *API) handlePeriodeList(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	page, limit, offset := pagination(r)
	items, total, err := a.periods.List(r.Context(), periode.ListFilter{
		UserID: p.UserID,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOKMeta(w, items, paginateMeta(page, limit, total))
}

func (a *API) handlePeriodeGet(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	item, err := a.periods.Get(r.Context(), p.UserID, r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, item)
}

func (a *API) handlePeriodeCreate(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req periodeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	nama := ""
	if req.Nama != nil {
		nama = *req.Nama
	}
	item, err := a.periods.Create(r.Context(), p.UserID, nama, req.IsActive)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, item)
}

func (a *API) handlePeriodeUpdate(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req periodeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	item, err := a.periods.Update(r.Context(), p.UserID, r.PathValue("id"), req.Nama, req.IsActive)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, item)
}

func (a *API) handlePeriodeActivate(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	item, err := a.periods.Activate(r.Context(), p.UserID, r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, item)
}

func (a *API) handlePeriodeDelete(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := a.periods.Delete(r.Context(), p.UserID, r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, struct{}{})
}
