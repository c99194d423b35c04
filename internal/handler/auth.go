package handler

import (
	"net/http"

	"github.com/Dan9191/bank-portal/internal/session"
)

type credentialsRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignUp handles account creation on the auth platform
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.svc.SignUp(r.Context(), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		h.fail(w, r, err, "User not found", "Failed to create user account")
		return
	}

	if resp.AccessToken != "" {
		session.SetCookie(w, h.sessions.CookieName(), resp.AccessToken, resp.ExpiresIn, h.cfg.SecureCookies)
	}
	h.ok(w, http.StatusCreated, map[string]any{
		"user":               authUser{ID: resp.User.ID, Email: resp.User.Email},
		"needs_confirmation": resp.AccessToken == "",
	})
}

// SignIn handles password sign-in and sets the session cookie
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err, "User not found", "Failed to sign in")
		return
	}

	session.SetCookie(w, h.sessions.CookieName(), res.Session.AccessToken, res.Session.ExpiresIn, h.cfg.SecureCookies)
	h.ok(w, http.StatusOK, map[string]any{
		"user": authUser{ID: res.Session.User.ID, Email: res.Session.User.Email},
		"next": res.Next,
	})
}

// SignOut clears the session cookie and revokes the token upstream
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if id := h.sessions.Resolve(r); id != nil {
		h.svc.SignOut(r.Context(), id.AccessToken)
	}
	session.ClearCookie(w, h.sessions.CookieName(), h.cfg.SecureCookies)
	session.ClearCookie(w, h.sessions.PINCookieName(), h.cfg.SecureCookies)
	h.ok(w, http.StatusOK, nil)
}

// VerifyPIN checks the caller's secondary credential and marks the session verified
func (h *Handler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	id := caller(r)
	if err := h.svc.VerifyPIN(r.Context(), id.UserID, req.PIN); err != nil {
		h.fail(w, r, err, "Profile not found", "Failed to verify PIN")
		return
	}
	if err := h.sessions.SetPINCookie(w, id, h.cfg.SecureCookies); err != nil {
		h.fail(w, r, err, "Profile not found", "Failed to verify PIN")
		return
	}
	h.ok(w, http.StatusOK, map[string]bool{"verified": true})
}
