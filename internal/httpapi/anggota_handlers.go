package httpapi

import (
	"net/http"

	"github.com/Inur123/Be-Laci/internal/anggota"
)

type anggotaCreateRequest struct {
	NamaLengkap  string  `json:"namaLengkap"`
	JenisKelamin string  `json:"jenisKelamin"`
	TanggalLahir *string `json:"tanggalLahir"`
	Jabatan      *string `json:"jabatan"`
	Alamat       *string `json:"alamat"`
	NoHp         *string `json:"noHp"`
	Email        *string `json:"email"`
	PeriodeID    *string `json:"periodeId"`
}

type anggotaUpdateRequest struct {
	NamaLengkap  *string `json:"namaLengkap"`
	JenisKelamin *string `json:"jenisKelamin"`
	TanggalLahir *string `json:"tanggalLahir"`
	Jabatan      *string `json:"jabatan"`
	Alamat       *string `json:"alamat"`
	NoHp         *string `json:"noHp"`
	Email        *string `json:"email"`
	PeriodeID    *string `json:"periodeId"`
}

func (a *API) handleAnggotaList(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	page, limit, offset := pagination(r)
	q := r.URL.Query()
	items, total, err := a.members.List(r.Context(), anggota.ListFilter{
		UserID:    p.UserID,
		PeriodeID: q.Get("periodeId"),
		Query:     q.Get("q"),
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOKMeta(w, items, paginateMeta(page, limit, total))
}

func (a *API) handleAnggotaGet(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	item, err := a.members.Get(r.Context(), p.UserID, r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, item)
}

func (a *API) handleAnggotaCreate(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req anggotaCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	item, err := a.members.Create(r.Context(), p.UserID, anggota.CreateInput{
		NamaLengkap:  req.NamaLengkap,
		JenisKelamin: req.JenisKelamin,
		TanggalLahir: req.TanggalLahir,
		Jabatan:      req.Jabatan,
		Alamat:       req.Alamat,
		NoHp:         req.NoHp,
		Email:        req.Email,
		PeriodeID:    req.PeriodeID,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, item)
}

func (a *API) handleAnggotaUpdate(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req anggotaUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	item, err := a.members.Update(r.Context(), p.UserID, r.PathValue("id"), anggota.UpdateInput{
		NamaLengkap:  req.NamaLengkap,
		JenisKelamin: req.JenisKelamin,
		TanggalLahir: req.TanggalLahir,
		Jabatan:      req.Jabatan,
		Alamat:       req.Alamat,
		NoHp:         req.NoHp,
		Email:        req.Email,
		PeriodeID:    req.PeriodeID,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, item)
}

func (a *API) handleAnggotaDelete(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := a.members.Delete(r.Context(), p.UserID, r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, struct{}{})
}

func (a *API) handleAnggotaStats(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	byPeriode := r.URL.Query().Get("groupBy") == "periode"
	stats, err := a.members.Stats(r.Context(), p.UserID, byPeriode)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, stats)
}
