package ports

// Package ports defines interfaces (hexagonal ports) for the session core.
// Implementations live in internal/adapters and internal/data; orchestration
// in internal/service.

import (
	"context"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
)

// SignInResult is the outcome of any successful authentication operation.
type SignInResult struct {
	User identity.RawSessionUser
	// IsNewIdentity is true when the operation created the identity
	// (first sign-up, or first sign-in through an external provider).
	IsNewIdentity bool
}

// DisplayFields carries optional display-field updates for the identity side.
// Nil fields are left untouched.
type DisplayFields struct {
	Name    *string
	Picture *string
}

// IdentityProvider wraps the hosted authentication service. It is the only
// permitted channel for session mutation.
//
// Successful sign-up/sign-in triggers exactly one Subscribe emission carrying
// the new raw user, eventually; callers must not assume the emission lands
// before the method returns.
type IdentityProvider interface {
	// Subscribe registers fn to be invoked once per observed session
	// transition. A nil user denotes an explicit "no session". The provider
	// reports the current state immediately on subscription, never runs
	// callbacks concurrently, and stops invoking fn once the returned
	// unsubscribe function has been called.
	Subscribe(fn func(*identity.RawSessionUser)) (unsubscribe func())

	// CurrentUser returns the provider's current raw session user, or nil.
	CurrentUser() *identity.RawSessionUser

	SignUp(ctx context.Context, email, password string) (SignInResult, error)
	SignIn(ctx context.Context, email, password string) (SignInResult, error)

	// SignInWithProvider signs in through one of the enumerated external
	// providers. Unknown kinds are rejected with a validation error.
	SignInWithProvider(ctx context.Context, kind identity.ProviderKind) (SignInResult, error)

	SignOut(ctx context.Context) error

	SendPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) error

	// SendEmailVerification mails a verification link for the current
	// session's address.
	SendEmailVerification(ctx context.Context) error
	// VerifyEmail applies an emailed verification code.
	VerifyEmail(ctx context.Context, code string) error
	// RecoverEmail applies an emailed recovery code, reverting an email
	// change, and returns the restored address.
	RecoverEmail(ctx context.Context, code string) (originalEmail string, err error)

	// UpdateEmail may fail with a permission error when the provider
	// requires a recent re-authentication.
	UpdateEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, password string) error
	UpdateDisplayFields(ctx context.Context, fields DisplayFields) error
}

// ExchangeInput groups parameters for an external provider code exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// ExternalProfile is the identity an external provider reports after a
// completed sign-in flow.
type ExternalProfile struct {
	Link          identity.ProviderLink
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// ExternalSignInBroker drives the redirect flow against an external
// provider's endpoints. The web layer uses it for the browser leg;
// IdentityProvider.SignInWithProvider covers the non-interactive path.
type ExternalSignInBroker interface {
	// Begin starts the flow for the given provider kind and returns the
	// provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, kind identity.ProviderKind, redirectURL string) (authURL, state, nonce string, err error)

	// Exchange completes the flow, verifying state and nonce, and returns
	// the external identity's profile.
	Exchange(ctx context.Context, kind identity.ProviderKind, in ExchangeInput) (ExternalProfile, error)
}

// ExternalSignInCompleter is implemented by identity providers that can
// finish a broker-driven flow by linking the external identity to an
// account and starting a session.
type ExternalSignInCompleter interface {
	CompleteExternalSignIn(ctx context.Context, profile ExternalProfile) (SignInResult, error)
}
