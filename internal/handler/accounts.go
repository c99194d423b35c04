package handler

import (
	"fmt"
	"net/http"
)

const accountNotFound = "Account not found"

// ListAccounts returns the caller's ledger accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListAccounts(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err, accountNotFound, "Failed to fetch accounts")
		return
	}
	h.ok(w, http.StatusOK, accounts)
}

// ListTransactions returns postings on an owned account
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.ListTransactions(r.Context(), caller(r).UserID, pathID(r))
	if err != nil {
		h.fail(w, r, err, accountNotFound, "Failed to fetch transactions")
		return
	}
	h.ok(w, http.StatusOK, txs)
}

// Statement downloads a camt.053 statement for an owned account
func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Statement(r.Context(), caller(r).UserID, pathID(r))
	if err != nil {
		h.fail(w, r, err, accountNotFound, "Failed to build statement")
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", st.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(st.XML)
}
