package handler

import (
	"embed"
	"errors"
	"net/http"

	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageData struct {
	Title   string
	Profile *models.Profile
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages.ExecuteTemplate(w, name, data); err != nil {
		h.logFailure(r, err).Error("Failed to render page")
	}
}

// Index sends visitors to the dashboard, which redirects onward as needed
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// AuthPage renders sign-in and sign-up
func (h *Handler) AuthPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "auth.html", pageData{Title: "Sign in"})
}

// RegisterPage renders the registration flow unless it is already done
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	done, err := h.svc.RegistrationComplete(r.Context(), caller(r).UserID)
	if err != nil {
		h.logFailure(r, err).Error("Failed to check registration")
		http.Error(w, "Failed to retrieve user profile", http.StatusInternalServerError)
		return
	}
	if done {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render(w, r, "register.html", pageData{Title: "Complete registration"})
}

// DashboardPage renders the customer dashboard for registered profiles
func (h *Handler) DashboardPage(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.registeredProfile(w, r)
	if !ok {
		return
	}
	h.render(w, r, "dashboard.html", pageData{Title: "Dashboard", Profile: profile})
}

// AdminPage renders the admin console; everyone else lands on the dashboard
func (h *Handler) AdminPage(w http.ResponseWriter, r *http.Request) {
	err := h.svc.RequireAdmin(r.Context(), caller(r).UserID)
	if errors.Is(err, models.ErrForbidden) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	if err != nil {
		h.logFailure(r, err).Error("Failed to check admin rights")
		http.Error(w, "Failed to retrieve user profile", http.StatusInternalServerError)
		return
	}
	profile, ok := h.registeredProfile(w, r)
	if !ok {
		return
	}
	h.render(w, r, "admin.html", pageData{Title: "Admin", Profile: profile})
}

func (h *Handler) registeredProfile(w http.ResponseWriter, r *http.Request) (*models.Profile, bool) {
	userID := caller(r).UserID
	done, err := h.svc.RegistrationComplete(r.Context(), userID)
	if err != nil {
		h.logFailure(r, err).Error("Failed to check registration")
		http.Error(w, "Failed to retrieve user profile", http.StatusInternalServerError)
		return nil, false
	}
	if !done {
		http.Redirect(w, r, "/register", http.StatusFound)
		return nil, false
	}
	if !h.sessions.PINVerified(r, caller(r)) {
		http.Redirect(w, r, session.PINStepPath, http.StatusFound)
		return nil, false
	}
	profile, err := h.svc.GetProfile(r.Context(), userID)
	if err != nil {
		h.logFailure(r, err).Error("Failed to load profile")
		http.Error(w, "Failed to retrieve user profile", http.StatusInternalServerError)
		return nil, false
	}
	return profile, true
}
