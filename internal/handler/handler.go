package handler

import (
	"html/template"
	"net/http"

	"github.com/Dan9191/bank-portal/internal/config"
	"github.com/Dan9191/bank-portal/internal/service"
	"github.com/Dan9191/bank-portal/internal/session"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc      *service.Service
	sessions *session.Resolver
	cfg      *config.Config
	log      *logrus.Logger
	pages    *template.Template
}

func NewHandler(svc *service.Service, sessions *session.Resolver, cfg *config.Config, log *logrus.Logger) *Handler {
	return &Handler{
		svc:      svc,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		pages:    template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

// RegisterRoutes mounts the JSON API and the pages on r
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Public routes
	r.HandleFunc("/api/auth/signup", h.SignUp).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/signin", h.SignIn).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/signout", h.SignOut).Methods(http.MethodPost)
	r.HandleFunc(session.AuthPath, h.AuthPage).Methods(http.MethodGet)
	r.HandleFunc("/", h.Index).Methods(http.MethodGet)

	// Protected API
	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.sessions.RequireAPI)

	api.HandleFunc("/auth/pin/verify", h.VerifyPIN).Methods(http.MethodPost)

	api.HandleFunc("/register", h.CompleteRegistration).Methods(http.MethodPost)
	api.HandleFunc("/register/status", h.RegistrationStatus).Methods(http.MethodGet)
	api.HandleFunc("/register/steps/{step:[0-9]+}", h.ValidateRegistrationStep).Methods(http.MethodPost)
	api.HandleFunc("/profile", h.GetProfile).Methods(http.MethodGet)
	api.HandleFunc("/profile", h.UpdateProfile).Methods(http.MethodPatch)

	// Everything below needs a PIN-verified session
	api = api.NewRoute().Subrouter()
	api.Use(h.sessions.RequirePIN)

	api.HandleFunc("/cards", h.ListCards).Methods(http.MethodGet)
	api.HandleFunc("/cards", h.CreateCard).Methods(http.MethodPost)
	api.HandleFunc("/cards/{id}", h.UpdateCard).Methods(http.MethodPatch)
	api.HandleFunc("/cards/{id}", h.DeleteCard).Methods(http.MethodDelete)
	api.HandleFunc("/cards/{id}/toggle-lock", h.ToggleCardLock).Methods(http.MethodPatch)

	api.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/transactions", h.ListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/statement", h.Statement).Methods(http.MethodGet)

	api.HandleFunc("/security/selfie", h.UploadSelfie).Methods(http.MethodPost)
	api.HandleFunc("/security/devices", h.ListDevices).Methods(http.MethodGet)
	api.HandleFunc("/security/devices/{id}", h.RemoveDevice).Methods(http.MethodDelete)
	api.HandleFunc("/security/devices/{id}/trust", h.SetDeviceTrust).Methods(http.MethodPatch)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/profiles", h.AdminListProfiles).Methods(http.MethodGet)
	admin.HandleFunc("/profiles/{id}", h.AdminUpdateProfile).Methods(http.MethodPatch)
	admin.HandleFunc("/profiles/{id}/status", h.AdminSetProfileStatus).Methods(http.MethodPatch)
	admin.HandleFunc("/profiles/{id}/verify-ssn", h.AdminVerifySSN).Methods(http.MethodPost)
	admin.HandleFunc("/accounts", h.AdminListAccounts).Methods(http.MethodGet)
	admin.HandleFunc("/accounts/{id}/balance", h.AdjustBalance).Methods(http.MethodPost)
	admin.HandleFunc("/stats", h.AdminStats).Methods(http.MethodGet)

	// Pages
	pages := r.NewRoute().Subrouter()
	pages.Use(h.sessions.RequirePage)
	pages.HandleFunc("/register", h.RegisterPage).Methods(http.MethodGet)
	pages.HandleFunc("/dashboard", h.DashboardPage).Methods(http.MethodGet)
	pages.HandleFunc("/admin", h.AdminPage).Methods(http.MethodGet)
}
