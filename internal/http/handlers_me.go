package httpx

import (
	"context"
	"net/http"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
	"github.com/loveliiivelaugh/exercise-tracker/internal/service"
)

// ProfileCore is the profile-mutation surface of the session reconciler.
type ProfileCore interface {
	Current() identity.MergedUser
	UpdateProfile(ctx context.Context, data service.ProfileUpdate) error
	UpdatePassword(ctx context.Context, password string) error
}

// MeHandlers provides HTTP handlers for the current user's profile. All
// routes are mounted behind RequireUser.
type MeHandlers struct {
	Svc ProfileCore
}

// Get returns the merged view of the current user.
// GET /api/me.
func (h *MeHandlers) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r.Context())
	if !ok {
		// RequireUser injects the user; reaching here means the route was
		// mounted without it.
		user = h.Svc.Current()
	}
	WriteJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Email   *string `json:"email"`
	Name    *string `json:"name"`
	Picture *string `json:"picture"`
}

// Update applies a partial profile update across both the identity provider
// and the user record.
// PATCH /api/me.
func (h *MeHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	err := h.Svc.UpdateProfile(r.Context(), service.ProfileUpdate{
		Email:   req.Email,
		Name:    req.Name,
		Picture: req.Picture,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, h.Svc.Current())
}

type updatePasswordRequest struct {
	Password string `json:"password"`
}

// UpdatePassword changes the identity-side password.
// PUT /api/me/password.
func (h *MeHandlers) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.UpdatePassword(r.Context(), req.Password); err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "password_updated"})
}
