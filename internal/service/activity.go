package service

import (
	"context"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/activity"
	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
)

// SessionView is the read side of the session reconciler that the activity
// service depends on. SessionReconciler satisfies it.
type SessionView interface {
	Current() identity.MergedUser
	CanUseFeature(f identity.Feature) bool
}

// ActivityServiceOptions groups dependencies for ActivityService.
type ActivityServiceOptions struct {
	Store   ports.ActivityStore
	Session SessionView
}

// ActivityService orchestrates activity CRUD for the current user. Every
// operation resolves the acting user from the merged session view; ownership
// and the plan-gated star flag are enforced here, not in the store.
type ActivityService struct {
	store   ports.ActivityStore
	session SessionView
}

// NewActivityService constructs a new ActivityService.
func NewActivityService(opts ActivityServiceOptions) *ActivityService {
	return &ActivityService{store: opts.Store, session: opts.Session}
}

// Log records a new activity for the current user.
func (s *ActivityService) Log(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	user, err := s.requireUser()
	if err != nil {
		return activity.Activity{}, err
	}

	a.Owner = user.ID
	if a.Featured && !s.session.CanUseFeature(identity.FeatureStar) {
		return activity.Activity{}, errorsx.Permission("starring activities requires an active pro or business plan")
	}
	if err := a.Validate(); err != nil {
		return activity.Activity{}, errorsx.Wrap(err, errorsx.ErrCodeValidation, "invalid activity")
	}

	return s.store.Create(ctx, a)
}

// List returns the current user's activities ordered by date.
func (s *ActivityService) List(ctx context.Context) ([]activity.Activity, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	return s.store.ListByOwner(ctx, user.ID)
}

// Get returns one of the current user's activities by id.
func (s *ActivityService) Get(ctx context.Context, id string) (activity.Activity, error) {
	user, err := s.requireUser()
	if err != nil {
		return activity.Activity{}, err
	}
	return s.getOwned(ctx, user, id)
}

// Update applies a partial update to one of the current user's activities.
// Setting Featured requires the star capability; clearing it does not.
func (s *ActivityService) Update(ctx context.Context, id string, patch activity.Patch) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	if patch.IsZero() {
		return nil
	}
	if _, err := s.getOwned(ctx, user, id); err != nil {
		return err
	}
	if patch.Featured != nil && *patch.Featured && !s.session.CanUseFeature(identity.FeatureStar) {
		return errorsx.Permission("starring activities requires an active pro or business plan")
	}
	return s.store.Update(ctx, id, patch)
}

// SetFeatured toggles the star flag on one of the current user's activities.
func (s *ActivityService) SetFeatured(ctx context.Context, id string, featured bool) error {
	return s.Update(ctx, id, activity.Patch{Featured: &featured})
}

// Delete removes one of the current user's activities.
func (s *ActivityService) Delete(ctx context.Context, id string) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	if _, err := s.getOwned(ctx, user, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// requireUser resolves the acting user from the merged view. Unknown maps to
// a retryable not-ready error, Absent to a permission error.
func (s *ActivityService) requireUser() (identity.MergedUser, error) {
	user := s.session.Current()
	switch user.State {
	case identity.StatePresent:
		return user, nil
	case identity.StateUnknown:
		return identity.MergedUser{}, errorsx.RecordNotReady("session state not determined yet")
	default:
		return identity.MergedUser{}, errorsx.Permission("sign in required")
	}
}

// getOwned fetches an activity and verifies it belongs to user. Entries
// owned by someone else are reported as not found rather than forbidden.
func (s *ActivityService) getOwned(ctx context.Context, user identity.MergedUser, id string) (activity.Activity, error) {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return activity.Activity{}, err
	}
	if a.Owner != user.ID {
		return activity.Activity{}, errorsx.NotFoundf("activity %s not found", id)
	}
	return a, nil
}
