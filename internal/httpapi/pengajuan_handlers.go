package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Inur123/Be-Laci/internal/apperr"
	"github.com/Inur123/Be-Laci/internal/auth"
	"github.com/Inur123/Be-Laci/internal/pengajuan"
)

type pengajuanCreateRequest struct {
	NomorSurat string  `json:"nomorSurat"`
	Penerima   string  `json:"penerima"`
	Tanggal    string  `json:"tanggal"`
	Keperluan  string  `json:"keperluan"`
	Deskripsi  *string `json:"deskripsi"`
	FileURL    *string `json:"fileUrl"`
	FileName   *string `json:"fileName"`
	FileMime   *string `json:"fileMime"`
	FileSize   *int64  `json:"fileSize"`
}

type pengajuanUpdateRequest struct {
	NomorSurat *string `json:"nomorSurat"`
	Penerima   *string `json:"penerima"`
	Tanggal    *string `json:"tanggal"`
	Keperluan  *string `json:"keperluan"`
	Deskripsi  *string `json:"deskripsi"`
	FileURL    *string `json:"fileUrl"`
	FileName   *string `json:"fileName"`
	FileMime   *string `json:"fileMime"`
	FileSize   *int64  `json:"fileSize"`
	Status     *string `json:"status"`
}

type rejectRequest struct {
	AlasanPenolakan string `json:"alasanPenolakan"`
}

func (a *API) handlePengajuanList(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := auth.RequireRole(p.Role, auth.RolePAC); err != nil {
		respondError(w, err)
		return
	}
	page, limit, offset := pagination(r)
	q := r.URL.Query()
	items, total, err := a.submissions.List(r.Context(), pengajuan.Filter{
		UserID:   p.UserID,
		Status:   pengajuan.Status(q.Get("status")),
		Penerima: pengajuan.Penerima(q.Get("penerima")),
		Query:    q.Get("q"),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOKMeta(w, items, paginateMeta(page, limit, total))
}

func (a *API) handlePengajuanListCabang(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
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
	items, total, err := a.submissions.List(r.Context(), pengajuan.Filter{
		UserID:   q.Get("pacId"),
		Status:   pengajuan.Status(q.Get("status")),
		Penerima: pengajuan.Penerima(q.Get("penerima")),
		Query:    q.Get("q"),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOKMeta(w, items, paginateMeta(page, limit, total))
}

func (a *API) handlePengajuanGet(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	item, err := a.submissions.Get(r.Context(), p.UserID, p.Role.SeesAll(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, item)
}

func (a *API) handlePengajuanCreate(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := auth.RequireRole(p.Role, auth.RolePAC); err != nil {
		respondError(w, err)
		return
	}
	var req pengajuanCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	item, err := a.submissions.Create(r.Context(), p.UserID, pengajuan.CreateInput{
		NomorSurat: req.NomorSurat,
		Penerima:   req.Penerima,
		Tanggal:    req.Tanggal,
		Keperluan:  req.Keperluan,
		Deskripsi:  req.Deskripsi,
		FileURL:    req.FileURL,
		FileName:   req.FileName,
		FileMime:   req.FileMime,
		FileSize:   req.FileSize,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, item)
}

func (a *API) handlePengajuanUpdate(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := auth.RequireRole(p.Role, auth.RolePAC); err != nil {
		respondError(w, err)
		return
	}
	var req pengajuanUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	item, err := a.submissions.Update(r.Context(), p.UserID, r.PathValue("id"), pengajuan.UpdateInput{
		NomorSurat:     req.NomorSurat,
		Penerima:       req.Penerima,
		Tanggal:        req.Tanggal,
		Keperluan:      req.Keperluan,
		Deskripsi:      req.Deskripsi,
		FileURL:        req.FileURL,
		FileName:       req.FileName,
		FileMime:       req.FileMime,
		FileSize:       req.FileSize,
		StatusProvided: req.Status != nil,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, item)
}

func (a *API) handlePengajuanDelete(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := auth.RequireRole(p.Role, auth.RolePAC); err != nil {
		respondError(w, err)
		return
	}
	if err := a.submissions.Delete(r.Context(), p.UserID, r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, struct{}{})
}

func (a *API) handlePengajuanApprove(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := auth.RequireRole(p.Role, auth.RoleCabang); err != nil {
		respondError(w, err)
		return
	}
	item, err := a.submissions.Approve(r.Context(), p.UserID, r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, item)
}

func (a *API) handlePengajuanReject(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := auth.RequireRole(p.Role, auth.RoleCabang); err != nil {
		respondError(w, err)
		return
	}
	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	item, err := a.submissions.Reject(r.Context(), p.UserID, r.PathValue("id"), req.AlasanPenolakan)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, item)
}

func (a *API) handlePengajuanStats(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	scope := p.UserID
	if p.Role.SeesAll() {
		scope = ""
	}
	stats, err := a.submissions.Stats(r.Context(), scope)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, stats)
}

// attachmentPath maps a stored file reference onto the upload root. The
// reference is rooted before joining so it can never escape the directory,
// not even as an absolute path.
func attachmentPath(uploadDir, fileURL string) string {
	return filepath.Join(uploadDir, filepath.Clean("/"+fileURL))
}

// handlePengajuanDownload serves the submission attachment. http(s) URLs
// redirect; anything else is treated as a path under the upload root.
func (a *API) handlePengajuanDownload(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	item, err := a.submissions.Get(r.Context(), p.UserID, p.Role.SeesAll(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	if item.FileURL == nil || *item.FileURL == "" {
		respondError(w, apperr.NotFound("File belum tersedia"))
		return
	}
	fileURL := *item.FileURL
	if strings.HasPrefix(fileURL, "http://") || strings.HasPrefix(fileURL, "https://") {
		http.Redirect(w, r, fileURL, http.StatusFound)
		return
	}

	path := attachmentPath(a.cfg.UploadDir, fileURL)
	if _, err := os.Stat(path); err != nil {
		respondError(w, apperr.NotFound("File tidak ditemukan"))
		return
	}
	name := filepath.Base(path)
	if item.FileName != nil && *item.FileName != "" {
		name = *item.FileName
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if item.FileMime != nil && *item.FileMime != "" {
		w.Header().Set("Content-Type", *item.FileMime)
	}
	http.ServeFile(w, r, path)
}
