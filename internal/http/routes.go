package httpx

import (
	"log/slog"
	"net/http"

	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
	"github.com/loveliiivelaugh/exercise-tracker/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Session    *service.SessionReconciler
	Activities *service.ActivityService
	Sessions   ports.SessionStore
	// Broker enables the browser leg of external provider sign-in; nil
	// disables those routes.
	Broker       ports.ExternalSignInBroker
	CookieDomain string
	Logger       *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Svc:          services.Session,
		Sessions:     services.Sessions,
		Broker:       services.Broker,
		CookieDomain: services.CookieDomain,
		Logger:       services.Logger,
	}
	meHandlers := &MeHandlers{Svc: services.Session}
	activityHandlers := &ActivityHandlers{Svc: services.Activities}

	registerAuthRoutes(mux, authHandlers)
	registerMeRoutes(mux, meHandlers, services.Session)
	registerActivityRoutes(mux, activityHandlers, services.Session)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Logging(logger)(Recover(logger)(mux))
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /api/auth/signup", h.SignUp)
	mux.HandleFunc("POST /api/auth/signin", h.SignIn)
	mux.HandleFunc("POST /api/auth/signout", h.SignOut)
	mux.HandleFunc("POST /api/auth/password-reset", h.SendPasswordReset)
	mux.HandleFunc("POST /api/auth/password-reset/confirm", h.ConfirmPasswordReset)
	mux.HandleFunc("POST /api/auth/verify-email", h.VerifyEmail)
	mux.HandleFunc("POST /api/auth/recover-email", h.RecoverEmail)
	mux.HandleFunc("GET /api/auth/status", h.Status)
	mux.HandleFunc("GET /auth/provider/{kind}", h.BeginProvider)
	mux.HandleFunc("GET /auth/callback/{kind}", h.ProviderCallback)
}

func registerMeRoutes(mux *http.ServeMux, h *MeHandlers, session SessionReader) {
	guard := RequireUser(session)
	mux.Handle("GET /api/me", guard(http.HandlerFunc(h.Get)))
	mux.Handle("PATCH /api/me", guard(http.HandlerFunc(h.Update)))
	mux.Handle("PUT /api/me/password", guard(http.HandlerFunc(h.UpdatePassword)))
}

func registerActivityRoutes(mux *http.ServeMux, h *ActivityHandlers, session SessionReader) {
	guard := RequireUser(session)
	mux.Handle("POST /api/activities", guard(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/activities", guard(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/activities/{id}", guard(http.HandlerFunc(h.Get)))
	mux.Handle("PATCH /api/activities/{id}", guard(http.HandlerFunc(h.Update)))
	mux.Handle("PUT /api/activities/{id}/featured", guard(http.HandlerFunc(h.SetFeatured)))
	mux.Handle("DELETE /api/activities/{id}", guard(http.HandlerFunc(h.Delete)))
}
