package service

import (
	"context"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
	"github.com/loveliiivelaugh/exercise-tracker/internal/observability/metrics"
	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
)

// SignUp creates an identity, writes the initial user record, and returns
// the new user id. The record write is an idempotent upsert, so a retried
// sign-up whose earlier completion was not observed does not fail. A partial
// completion (identity created, record write lost) self-heals once the
// record store's live subscription reports the document.
func (r *SessionReconciler) SignUp(ctx context.Context, email, password string) (string, error) {
	res, err := r.identityp.SignUp(ctx, email, password)
	if err != nil {
		metrics.EmitAuthOp(r.sink, metrics.AuthOpMetric{Op: "signup", Result: metrics.ResultError})
		return "", err
	}
	metrics.EmitAuthOp(r.sink, metrics.AuthOpMetric{Op: "signup", Result: metrics.ResultSuccess})
	return r.handleAuth(ctx, res)
}

// SignIn authenticates an existing identity. A first-ever sign-in through
// a linked route still runs the new-identity path.
func (r *SessionReconciler) SignIn(ctx context.Context, email, password string) (string, error) {
	res, err := r.identityp.SignIn(ctx, email, password)
	if err != nil {
		metrics.EmitAuthOp(r.sink, metrics.AuthOpMetric{Op: "signin", Result: metrics.ResultError})
		return "", err
	}
	metrics.EmitAuthOp(r.sink, metrics.AuthOpMetric{Op: "signin", Result: metrics.ResultSuccess})
	return r.handleAuth(ctx, res)
}

// SignInWithProvider authenticates through one of the enumerated external
// providers.
func (r *SessionReconciler) SignInWithProvider(ctx context.Context, kind identity.ProviderKind) (string, error) {
	res, err := r.identityp.SignInWithProvider(ctx, kind)
	if err != nil {
		metrics.EmitAuthOp(r.sink, metrics.AuthOpMetric{Op: "signin_provider", Result: metrics.ResultError})
		return "", err
	}
	metrics.EmitAuthOp(r.sink, metrics.AuthOpMetric{Op: "signin_provider", Result: metrics.ResultSuccess})
	return r.handleAuth(ctx, res)
}

// CompleteExternalSignIn finishes a broker-driven external sign-in flow.
// The identity provider must support external completion.
func (r *SessionReconciler) CompleteExternalSignIn(ctx context.Context, profile ports.ExternalProfile) (string, error) {
	completer, ok := r.identityp.(ports.ExternalSignInCompleter)
	if !ok {
		return "", errorsx.Validation("identity provider does not support external sign-in")
	}
	res, err := completer.CompleteExternalSignIn(ctx, profile)
	if err != nil {
		metrics.EmitAuthOp(r.sink, metrics.AuthOpMetric{Op: "signin_external", Result: metrics.ResultError})
		return "", err
	}
	metrics.EmitAuthOp(r.sink, metrics.AuthOpMetric{Op: "signin_external", Result: metrics.ResultSuccess})
	return r.handleAuth(ctx, res)
}

// handleAuth runs the shared tail of every authentication operation:
// create the user record for new identities, trigger the verification
// mail, and refresh the cached raw user.
func (r *SessionReconciler) handleAuth(ctx context.Context, res ports.SignInResult) (string, error) {
	if res.IsNewIdentity {
		email := res.User.Email
		if err := r.records.CreateByID(ctx, res.User.ID, identity.RecordPatch{Email: &email}); err != nil {
			// The identity exists but the record write failed. Surface the
			// error; the nil-data branch of the passive path keeps the view
			// at Unknown until a retried write lands.
			return "", errorsx.Wrap(err, errorsx.GetCodeOrInternal(err), "create user record")
		}

		if r.verify {
			go r.sendVerification(res.User.ID)
		}
	}

	r.refreshFromProvider(res.User.ID)
	return res.User.ID, nil
}

// SignOut delegates to the identity provider and does not touch local
// state: the signed-out transition arrives through the session
// subscription, keeping a single source of truth.
func (r *SessionReconciler) SignOut(ctx context.Context) error {
	return r.identityp.SignOut(ctx)
}

// SendPasswordReset asks the identity provider to mail a reset code.
func (r *SessionReconciler) SendPasswordReset(ctx context.Context, email string) error {
	return r.identityp.SendPasswordReset(ctx, email)
}

// ConfirmPasswordReset redeems a reset code for a new password.
func (r *SessionReconciler) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	return r.identityp.ConfirmPasswordReset(ctx, code, newPassword)
}

// VerifyEmail applies an emailed verification code.
func (r *SessionReconciler) VerifyEmail(ctx context.Context, code string) error {
	if err := r.identityp.VerifyEmail(ctx, code); err != nil {
		return err
	}
	r.refreshFromProvider(r.currentRawID())
	return nil
}

// RecoverEmail reverts an email change using an emailed recovery code, then
// sends a password reset to the restored address so the owner can lock out
// whoever changed it. Returns the restored address for display.
func (r *SessionReconciler) RecoverEmail(ctx context.Context, code string) (string, error) {
	originalEmail, err := r.identityp.RecoverEmail(ctx, code)
	if err != nil {
		return "", err
	}
	if err := r.identityp.SendPasswordReset(ctx, originalEmail); err != nil {
		return "", errorsx.Wrap(err, errorsx.ErrCodeNetwork, "send password reset after recovery")
	}
	return originalEmail, nil
}

// UpdateEmail updates the identity-side email and refreshes the cached raw
// user, since the provider does not emit a session change for it.
func (r *SessionReconciler) UpdateEmail(ctx context.Context, email string) error {
	id := r.currentRawID()
	if id == "" {
		return errorsx.Permission("no active session")
	}
	if err := r.identityp.UpdateEmail(ctx, email); err != nil {
		return err
	}
	r.refreshFromProvider(id)
	return nil
}

// UpdatePassword updates the identity-side password.
func (r *SessionReconciler) UpdatePassword(ctx context.Context, password string) error {
	if r.currentRawID() == "" {
		return errorsx.Permission("no active session")
	}
	return r.identityp.UpdatePassword(ctx, password)
}

// ProfileUpdate carries a combined identity and record profile change.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Email        *string
	Name         *string
	Picture      *string
	PlanID       *string
	PlanIsActive *bool
	Features     map[string]bool
}

func (p ProfileUpdate) recordPatch() identity.RecordPatch {
	return identity.RecordPatch{
		Email:        p.Email,
		Name:         p.Name,
		Picture:      p.Picture,
		PlanID:       p.PlanID,
		PlanIsActive: p.PlanIsActive,
		Features:     p.Features,
	}
}

// UpdateProfile writes a profile change through both sources: identity
// email first (can fail with a permission error requiring recent login),
// then identity display fields, then the full patch to the user record.
// The writes run sequentially. If the identity-side writes succeed but the
// record write fails, the merged view reflects the updated identity fields
// with stale application fields until a retry; the record-write error is
// still returned.
func (r *SessionReconciler) UpdateProfile(ctx context.Context, data ProfileUpdate) error {
	id := r.currentRawID()
	if id == "" {
		return errorsx.Permission("no active session")
	}

	if data.Email != nil {
		if err := r.identityp.UpdateEmail(ctx, *data.Email); err != nil {
			return err
		}
	}

	if data.Name != nil || data.Picture != nil {
		fields := ports.DisplayFields{Name: data.Name, Picture: data.Picture}
		if err := r.identityp.UpdateDisplayFields(ctx, fields); err != nil {
			r.refreshFromProvider(id)
			return err
		}
	}

	recErr := r.records.UpdateByID(ctx, id, data.recordPatch())

	r.refreshFromProvider(id)

	if recErr != nil {
		return errorsx.Wrap(recErr, errorsx.GetCodeOrInternal(recErr), "update user record")
	}
	return nil
}

// currentRawID returns the active raw session id, or empty.
func (r *SessionReconciler) currentRawID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.raw == nil {
		return ""
	}
	return r.raw.ID
}

// refreshFromProvider re-reads the provider's cached raw user after a write
// that does not emit a session change. The completion is tagged with the id
// it was issued against; if the session has moved to a different principal
// in the meantime the refresh is discarded rather than applied.
func (r *SessionReconciler) refreshFromProvider(expectedID string) {
	if expectedID == "" {
		return
	}
	cur := r.identityp.CurrentUser()
	if cur == nil || cur.ID != expectedID {
		r.logger.Debug("discarding stale session refresh", "expected_id", expectedID)
		return
	}
	r.applyRaw(cur)
}

func (r *SessionReconciler) sendVerification(userID string) {
	ctx := context.Background()
	if err := r.identityp.SendEmailVerification(ctx); err != nil {
		r.logger.Debug("send verification email failed", "error", err, "user_id", userID)
	}
}
