package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Inur123/Be-Laci/internal/apperr"
)

// envelope is the uniform success body: {success, message, data, meta?}.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Meta    *meta  `json:"meta,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

type meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func paginateMeta(page, limit, total int) *meta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return &meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "OK", Data: data})
}

func respondOKMeta(w http.ResponseWriter, data any, m *meta) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "OK", Data: data, Meta: m})
}

func respondCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Created", Data: data})
}

func respondError(w http.ResponseWriter, err error) {
	ae := apperr.From(err)
	body := errorBody{Code: ae.Code}
	if len(ae.Details) > 0 {
		body.Details = map[string]any{"fields": ae.Details}
	}
	writeJSON(w, ae.Status, errorEnvelope{Success: false, Message: ae.Message, Error: body})
}

// decodeJSON reads one JSON object from the request body. An empty body
// decodes to the zero value so PATCH-style handlers can treat every field as
// absent.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation(map[string]string{"body": "Body tidak valid"})
	}
	return nil
}

// pagination extracts page/limit query values with the API defaults.
func pagination(r *http.Request) (page, limit, offset int) {
	page = queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit = queryInt(r, "limit", 10)
	if limit < 1 {
		limit = 1
	}
	return page, limit, (page - 1) * limit
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
