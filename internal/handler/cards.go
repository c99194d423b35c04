package handler

import (
	"net/http"

	"github.com/Dan9191/bank-portal/internal/validation"
)

const cardNotFound = "Card not found"

// ListCards returns the caller's cards
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.ListCards(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err, cardNotFound, "Failed to fetch cards")
		return
	}
	h.ok(w, http.StatusOK, cards)
}

// CreateCard handles card creation
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req validation.CardRequest
	if !h.decode(w, r, &req) {
		return
	}

	card, err := h.svc.CreateCard(r.Context(), caller(r).UserID, req)
	if err != nil {
		h.fail(w, r, err, cardNotFound, "Failed to create card")
		return
	}
	h.ok(w, http.StatusCreated, card)
}

// UpdateCard applies a partial update to an owned card
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if !h.decode(w, r, &fields) {
		return
	}

	card, err := h.svc.UpdateCard(r.Context(), caller(r).UserID, pathID(r), fields)
	if err != nil {
		h.fail(w, r, err, cardNotFound, "Failed to update card")
		return
	}
	h.ok(w, http.StatusOK, card)
}

// DeleteCard removes an owned card
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCard(r.Context(), caller(r).UserID, pathID(r)); err != nil {
		h.fail(w, r, err, cardNotFound, "Failed to delete card")
		return
	}
	h.ok(w, http.StatusOK, nil)
}

// ToggleCardLock moves an owned card between active and blocked
func (h *Handler) ToggleCardLock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	card, err := h.svc.SetCardLock(r.Context(), caller(r).UserID, pathID(r), req.Status)
	if err != nil {
		h.fail(w, r, err, cardNotFound, "Failed to update card status")
		return
	}
	h.ok(w, http.StatusOK, card)
}
