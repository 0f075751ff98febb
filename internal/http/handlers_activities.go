package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/activity"
	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
)

// ActivityServiceInterface defines the activity operations the handlers use.
// service.ActivityService satisfies it.
type ActivityServiceInterface interface {
	Log(ctx context.Context, a activity.Activity) (activity.Activity, error)
	List(ctx context.Context) ([]activity.Activity, error)
	Get(ctx context.Context, id string) (activity.Activity, error)
	Update(ctx context.Context, id string, patch activity.Patch) error
	SetFeatured(ctx context.Context, id string, featured bool) error
	Delete(ctx context.Context, id string) error
}

// ActivityHandlers provides HTTP handlers for activity CRUD. All routes are
// mounted behind RequireUser; ownership is enforced in the service.
type ActivityHandlers struct {
	Svc ActivityServiceInterface
}

// dateLayout is the wire format for activity dates (a calendar day).
const dateLayout = "2006-01-02"

type logActivityRequest struct {
	Date            string `json:"date"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	DurationMinutes int    `json:"duration_minutes"`
	Featured        bool   `json:"featured"`
}

// Create logs a new activity for the current user.
// POST /api/activities.
func (h *ActivityHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req logActivityRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		WriteAppError(w, errorsx.Validationf("invalid date %q, expected YYYY-MM-DD", req.Date))
		return
	}

	created, err := h.Svc.Log(r.Context(), activity.Activity{
		Date:            date,
		Name:            req.Name,
		Type:            activity.Type(req.Type),
		DurationMinutes: req.DurationMinutes,
		Featured:        req.Featured,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, created)
}

// List returns the current user's activities ordered by date.
// GET /api/activities.
func (h *ActivityHandlers) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.List(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if items == nil {
		items = []activity.Activity{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"activities": items})
}

// Get returns one activity by id.
// GET /api/activities/{id}.
func (h *ActivityHandlers) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, a)
}

type updateActivityRequest struct {
	Date            *string `json:"date"`
	Name            *string `json:"name"`
	Type            *string `json:"type"`
	DurationMinutes *int    `json:"duration_minutes"`
	Featured        *bool   `json:"featured"`
}

// Update applies a partial update to one activity.
// PATCH /api/activities/{id}.
func (h *ActivityHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req updateActivityRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	patch := activity.Patch{
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Featured:        req.Featured,
	}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			WriteAppError(w, errorsx.Validationf("invalid date %q, expected YYYY-MM-DD", *req.Date))
			return
		}
		patch.Date = &date
	}
	if req.Type != nil {
		t := activity.Type(*req.Type)
		patch.Type = &t
	}

	if err := h.Svc.Update(r.Context(), r.PathValue("id"), patch); err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type featuredRequest struct {
	Featured bool `json:"featured"`
}

// SetFeatured toggles the plan-gated star flag on one activity.
// PUT /api/activities/{id}/featured.
func (h *ActivityHandlers) SetFeatured(w http.ResponseWriter, r *http.Request) {
	var req featuredRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.SetFeatured(r.Context(), r.PathValue("id"), req.Featured); err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Delete removes one activity.
// DELETE /api/activities/{id}.
func (h *ActivityHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
