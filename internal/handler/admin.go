package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
)

const profileNotFound = "Profile not found"

// AdminListProfiles lists every profile, optionally filtered by ?q=
func (h *Handler) AdminListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.svc.AdminListProfiles(r.Context(), caller(r).UserID, r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err, profileNotFound, "Failed to fetch profiles")
		return
	}
	h.ok(w, http.StatusOK, profiles)
}

// AdminListAccounts lists every account with its owner, optionally filtered by ?q=
func (h *Handler) AdminListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.AdminListAccounts(r.Context(), caller(r).UserID, r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err, accountNotFound, "Failed to fetch accounts")
		return
	}
	h.ok(w, http.StatusOK, accounts)
}

// AdminStats returns user and balance totals
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.AdminStats(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err, profileNotFound, "Failed to fetch stats")
		return
	}
	h.ok(w, http.StatusOK, stats)
}

// AdminSetProfileStatus changes a profile's account_status
func (h *Handler) AdminSetProfileStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountStatus string `json:"account_status"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	profile, err := h.svc.AdminSetProfileStatus(r.Context(), caller(r).UserID, pathID(r), req.AccountStatus)
	if err != nil {
		h.fail(w, r, err, profileNotFound, "Failed to update account status")
		return
	}
	h.ok(w, http.StatusOK, profile)
}

// AdminUpdateProfile edits any allow-listed profile field
func (h *Handler) AdminUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if !h.decode(w, r, &fields) {
		return
	}

	profile, err := h.svc.AdminUpdateProfile(r.Context(), caller(r).UserID, pathID(r), fields)
	if err != nil {
		h.fail(w, r, err, profileNotFound, "Failed to update profile")
		return
	}
	h.ok(w, http.StatusOK, profile)
}

// AdminVerifySSN checks a number read out by the customer against the sealed one
func (h *Handler) AdminVerifySSN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SSN string `json:"ssn"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.SSN == "" {
		h.badRequest(w, "ssn is required")
		return
	}

	match, err := h.svc.AdminVerifySSN(r.Context(), caller(r).UserID, pathID(r), req.SSN)
	if err != nil {
		h.fail(w, r, err, profileNotFound, "Failed to verify SSN")
		return
	}
	h.ok(w, http.StatusOK, map[string]bool{"match": match})
}

type balanceRequest struct {
	NewBalance  json.RawMessage `json:"new_balance"`
	Description string          `json:"description"`
}

// AdjustBalance sets an account's balance through the ledger procedure. The
// amount may be sent as a JSON number or a numeric string.
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.NewBalance) == 0 || string(req.NewBalance) == "null" {
		h.badRequest(w, "new_balance is required")
		return
	}
	var amount decimal.Decimal
	if err := amount.UnmarshalJSON(req.NewBalance); err != nil {
		h.badRequest(w, "new_balance must be a number")
		return
	}

	res, err := h.svc.AdjustBalance(r.Context(), caller(r).UserID, pathID(r), amount, req.Description)
	if err != nil {
		h.fail(w, r, err, accountNotFound, "Failed to update balance")
		return
	}
	h.ok(w, http.StatusOK, res)
}
