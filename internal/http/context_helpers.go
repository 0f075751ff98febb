package httpx

import (
	"context"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
)

// userKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type userKey struct{}

// SetUserInContext returns a child context carrying the given merged user.
// Only Present views are stored; anything else returns ctx unchanged.
func SetUserInContext(ctx context.Context, user identity.MergedUser) context.Context {
	if !user.IsPresent() {
		return ctx
	}
	return context.WithValue(ctx, userKey{}, user)
}

// GetUserFromContext returns the merged user from context and a boolean
// indicating presence.
func GetUserFromContext(ctx context.Context) (identity.MergedUser, bool) {
	if user, ok := ctx.Value(userKey{}).(identity.MergedUser); ok && user.IsPresent() {
		return user, true
	}
	return identity.MergedUser{}, false
}
