package handler

import (
	"net/http"
	"strconv"

	"github.com/Dan9191/bank-portal/internal/validation"
	"github.com/gorilla/mux"
)

// CompleteRegistration handles the final registration step
func (h *Handler) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	var reg validation.Registration
	if !h.decode(w, r, &reg) {
		return
	}

	id := caller(r)
	profile, err := h.svc.CompleteRegistration(r.Context(), id.UserID, id.Email, reg)
	if err != nil {
		h.fail(w, r, err, "Profile not found", "Failed to create user profile")
		return
	}
	h.ok(w, http.StatusCreated, profile)
}

// RegistrationStatus reports whether the caller still has to register
func (h *Handler) RegistrationStatus(w http.ResponseWriter, r *http.Request) {
	done, err := h.svc.RegistrationComplete(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err, "Profile not found", "Failed to retrieve user profile")
		return
	}
	h.ok(w, http.StatusOK, map[string]bool{"registered": done})
}

// ValidateRegistrationStep checks one step of the flow without saving it
func (h *Handler) ValidateRegistrationStep(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.Atoi(mux.Vars(r)["step"])
	if err != nil {
		h.badRequest(w, "Invalid registration step")
		return
	}
	var reg validation.Registration
	if !h.decode(w, r, &reg) {
		return
	}

	if err := h.svc.ValidateRegistrationStep(validation.Step(step), reg); err != nil {
		h.fail(w, r, err, "Step not found", "Failed to validate step")
		return
	}
	h.ok(w, http.StatusOK, map[string]bool{"valid": true})
}

// GetProfile returns the caller's profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.GetProfile(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err, "Profile not found", "Failed to retrieve user profile")
		return
	}
	h.ok(w, http.StatusOK, profile)
}

// UpdateProfile applies self-service profile edits
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if !h.decode(w, r, &fields) {
		return
	}

	profile, err := h.svc.UpdateOwnProfile(r.Context(), caller(r).UserID, fields)
	if err != nil {
		h.fail(w, r, err, "Profile not found", "Failed to update profile")
		return
	}
	h.ok(w, http.StatusOK, profile)
}
