package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
)

// SessionCore is the session reconciler surface the HTTP layer drives.
// service.SessionReconciler satisfies it.
type SessionCore interface {
	Current() identity.MergedUser
	SignUp(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	CompleteExternalSignIn(ctx context.Context, profile ports.ExternalProfile) (string, error)
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) error
	VerifyEmail(ctx context.Context, code string) error
	RecoverEmail(ctx context.Context, code string) (string, error)
}

// sessionTTL bounds a browser session's lifetime in the session store.
const sessionTTL = 24 * time.Hour

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc      SessionCore
	Sessions ports.SessionStore
	// Broker is the external sign-in broker; nil disables provider routes.
	Broker       ports.ExternalSignInBroker
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp handles new account creation.
// POST /api/auth/signup.
func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	id, err := h.Svc.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.startSession(w, r, id, req.Email)
	WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// SignIn handles password sign-in.
// POST /api/auth/signin.
func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	id, err := h.Svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.startSession(w, r, id, req.Email)
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// SignOut ends the session on both sides: the identity provider and the
// browser session store.
// POST /api/auth/signout.
func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("session_id"); err == nil && h.Sessions != nil {
		if delErr := h.Sessions.Delete(r.Context(), cookie.Value); delErr != nil {
			h.logger().WarnContext(r.Context(), "session delete failed", "error", delErr)
		}
	}
	h.clearCookie(w, r, "session_id")

	if err := h.Svc.SignOut(r.Context()); err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

type emailRequest struct {
	Email string `json:"email"`
}

// SendPasswordReset mails a reset code.
// POST /api/auth/password-reset.
func (h *AuthHandlers) SendPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.SendPasswordReset(r.Context(), req.Email); err != nil {
		// Whether the address exists is not revealed to the caller.
		if !errorsx.IsNotFound(err) {
			WriteAppError(w, err)
			return
		}
		h.logger().DebugContext(r.Context(), "password reset for unknown email", "error", err)
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

type confirmResetRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ConfirmPasswordReset redeems a reset code.
// POST /api/auth/password-reset/confirm.
func (h *AuthHandlers) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.ConfirmPasswordReset(r.Context(), req.Code, req.NewPassword); err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "password_updated"})
}

type codeRequest struct {
	Code string `json:"code"`
}

// VerifyEmail applies an emailed verification code.
// POST /api/auth/verify-email.
func (h *AuthHandlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.VerifyEmail(r.Context(), req.Code); err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "email_verified"})
}

// RecoverEmail reverts an email change using an emailed recovery code.
// POST /api/auth/recover-email.
func (h *AuthHandlers) RecoverEmail(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	email, err := h.Svc.RecoverEmail(r.Context(), req.Code)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "email_recovered", "email": email})
}

// Status returns the current authentication status.
// GET /api/auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	user := h.Svc.Current()
	switch user.State {
	case identity.StatePresent:
		WriteJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"user":          user,
		})
	case identity.StateAbsent:
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
	default:
		WriteJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
			"loading":       true,
		})
	}
}

// BeginProvider starts the browser leg of an external provider sign-in.
// GET /auth/provider/{kind}?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) BeginProvider(w http.ResponseWriter, r *http.Request) {
	if h.Broker == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "provider_signin_disabled",
			Err:     errors.New("external sign-in is not configured"),
		})
		return
	}

	kind, err := identity.ParseProviderKind(r.PathValue("kind"))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "unknown_provider", Err: err})
		return
	}

	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))
	callbackURL := h.callbackURL(r, kind)

	authURL, state, nonce, err := h.Broker.Begin(r.Context(), kind, callbackURL)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.setOAuthCookies(w, r, oauthCookieParams{State: state, Nonce: nonce, RedirectURI: redirectURI})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// ProviderCallback completes the browser leg of an external provider sign-in.
// GET /auth/callback/{kind}?code=<code>&state=<state>.
func (h *AuthHandlers) ProviderCallback(w http.ResponseWriter, r *http.Request) {
	if h.Broker == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "provider_signin_disabled",
			Err:     errors.New("external sign-in is not configured"),
		})
		return
	}

	kind, err := identity.ParseProviderKind(r.PathValue("kind"))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "unknown_provider", Err: err})
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_code",
			Err:     errors.New("authorization code is required"),
		})
		return
	}
	if state == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_state",
			Err:     errors.New("state parameter is required"),
		})
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nonceCookie, err := r.Cookie("oauth_nonce")
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_nonce",
			Err:     errors.New("missing nonce parameter"),
		})
		return
	}

	profile, err := h.Broker.Exchange(r.Context(), kind, ports.ExchangeInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	id, err := h.Svc.CompleteExternalSignIn(r.Context(), profile)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.startSession(w, r, id, profile.Email)
	h.clearCookie(w, r, "oauth_state")
	h.clearCookie(w, r, "oauth_nonce")

	http.Redirect(w, r, h.getPostLoginRedirect(w, r), http.StatusFound)
}

// startSession persists a browser session and sets the session cookie.
func (h *AuthHandlers) startSession(w http.ResponseWriter, r *http.Request, userID, email string) {
	if h.Sessions == nil {
		return
	}

	sess := identity.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		ExpiresAt: time.Now().Add(sessionTTL),
	}
	if err := h.Sessions.Save(r.Context(), sess); err != nil {
		// The sign-in itself succeeded; a lost browser session only costs a
		// re-authentication.
		h.logger().WarnContext(r.Context(), "session save failed", "error", err, "user_id", userID)
		return
	}

	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	http.SetCookie(w, &http.Cookie{
		Name:     "session_id",
		Value:    sess.ID,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecure,
		Expires:  sess.ExpiresAt,
		SameSite: http.SameSiteLaxMode,
	})
}

// oauthCookieParams groups values needed to set OAuth cookies.
type oauthCookieParams struct {
	State       string
	Nonce       string
	RedirectURI string
}

// setOAuthCookies stores OAuth state, nonce, and the post-login redirect in secure cookies.
func (h *AuthHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")

	for name, value := range map[string]string{
		"oauth_state":    p.State,
		"oauth_nonce":    p.Nonce,
		"oauth_redirect": p.RedirectURI,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   h.CookieDomain,
			HttpOnly: true,
			Secure:   isSecure,
			MaxAge:   int((10 * time.Minute).Seconds()),
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// clearCookie clears a cookie by setting it to expire immediately. It mirrors
// key attributes (Secure, Path, Domain, SameSite) used when setting cookies to
// maximize compatibility across browsers during deletion.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecure,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// getPostLoginRedirect reads the stored post-login destination and clears the
// cookie. Only safe relative paths are honored.
func (h *AuthHandlers) getPostLoginRedirect(w http.ResponseWriter, r *http.Request) string {
	redirectURI := "/"
	if cookie, err := r.Cookie("oauth_redirect"); err == nil {
		redirectURI = safeRedirectPath(cookie.Value)
	}
	h.clearCookie(w, r, "oauth_redirect")
	return redirectURI
}

// callbackURL builds the absolute callback URL for a provider flow.
func (h *AuthHandlers) callbackURL(r *http.Request, kind identity.ProviderKind) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: "/auth/callback/" + string(kind)}
	return u.String()
}

// safeRedirectPath allows only relative paths (no scheme/host) starting with "/".
func safeRedirectPath(raw string) string {
	if raw == "" {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return raw
}
