package httpapi

import (
	"net/http"

	"github.com/Inur123/Be-Laci/internal/auth"
)

type profileUpdateRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	CurrentPassword *string `json:"currentPassword"`
	NewPassword     *string `json:"newPassword"`
}

type verifyConfirmRequest struct {
	Token string `json:"token"`
}

// The profile endpoints only require authentication, not a verified email:
// they are the way out of the unverified state.

func (a *API) handleProfileGet(w http.ResponseWriter, r *http.Request) {
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

func (a *API) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req profileUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	user, err := a.auth.UpdateProfile(r.Context(), p.UserID, auth.ProfileInput{
		Name:            req.Name,
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, user)
}

func (a *API) handleVerifyRequest(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	result, err := a.auth.RequestEmailVerification(r.Context(), p.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, result)
}

func (a *API) handleVerifyConfirm(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req verifyConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	result, err := a.auth.VerifyEmail(r.Context(), p.UserID, req.Token)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, result)
}

func (a *API) handleUserResetPassword(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := auth.RequireRole(p.Role, auth.RoleCabang); err != nil {
		respondError(w, err)
		return
	}
	reset, err := a.auth.ResetUserPassword(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, reset)
}
