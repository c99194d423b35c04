package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/Dan9191/bank-portal/internal/middleware"
	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/session"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) ok(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// fail maps a service error to a status and message. notFound names what was
// missing; fallback is shown for unexpected failures instead of internals.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, notFound, fallback string) {
	var (
		verr     *models.ValidationError
		conflict *models.ConflictError
		authErr  *models.AuthError
		limited  *models.RateLimitError
		procErr  *models.ProcedureError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error(), Fields: verr.Fields})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: conflict.Message})
	case errors.As(err, &limited):
		secs := int(math.Ceil(limited.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "Too many attempts. Please try again later."})
	case errors.As(err, &procErr):
		h.logFailure(r, err).Warn("Stored procedure rejected request")
		writeJSON(w, http.StatusBadGateway, errorBody{Error: procErr.Message})
	case errors.As(err, &authErr):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: authErr.Message})
	case errors.Is(err, models.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
	case errors.Is(err, models.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden"})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: notFound})
	default:
		h.logFailure(r, err).Error(fallback)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: fallback})
	}
}

func (h *Handler) logFailure(r *http.Request, err error) *logrus.Entry {
	return h.log.WithError(err).WithFields(logrus.Fields{
		"request_id": middleware.RequestIDFromContext(r.Context()),
		"path":       r.URL.Path,
	})
}

// decode reads a JSON body into v, writing a 400 on failure
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.badRequest(w, "Invalid request body")
		return false
	}
	return true
}

// caller returns the identity set by the session middleware
func caller(r *http.Request) *session.Identity {
	return session.FromContext(r.Context())
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}
