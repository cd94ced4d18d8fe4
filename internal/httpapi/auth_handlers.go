package httpapi

import (
	"net/http"
	"strings"

	"github.com/Inur123/Be-Laci/internal/apperr"
	"github.com/Inur123/Be-Laci/internal/auth"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	pair, err := a.auth.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, pair)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	pair, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, pair)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		respondError(w, apperr.Validation(map[string]string{"refreshToken": "Refresh token wajib diisi"}))
		return
	}
	pair, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, pair)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		respondError(w, apperr.Validation(map[string]string{"refreshToken": "Refresh token wajib diisi"}))
		return
	}
	if err := a.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, struct{}{})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	user, err := a.auth.Me(r.Context(), p.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, user)
}
