package devidentity

// Package devidentity provides a complete in-memory identity provider for
// local development and tests. It implements the full hosted-auth contract,
// including session-change emissions, password accounts, external provider
// linking, and emailed action codes.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
	"github.com/google/uuid"
)

// Config controls the dev identity provider behavior.
type Config struct {
	// RecentLoginWindow bounds how long after sign-in privileged updates
	// (email, password) are allowed. Default 5m.
	RecentLoginWindow time.Duration
	// Mail delivers action codes. When nil, codes are logged instead.
	Mail ports.MailSender
	// ExternalProfiles simulates the identity each external provider would
	// report after a completed popup flow. Kinds without an entry behave
	// like a dismissed popup.
	ExternalProfiles map[identity.ProviderKind]ports.ExternalProfile
	Logger           *slog.Logger
	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

type actionKind string

const (
	actionReset   actionKind = "reset"
	actionVerify  actionKind = "verify"
	actionRecover actionKind = "recover"
)

type actionCode struct {
	kind      actionKind
	accountID string
	// email is the restore target for recover codes.
	email string
}

type account struct {
	id            string
	email         string
	emailVerified bool
	displayName   string
	photoURL      string
	passwordHash  []byte
	providers     []identity.ProviderLink
}

// Provider implements ports.IdentityProvider in memory.
type Provider struct {
	cfg    Config
	logger *slog.Logger
	clock  func() time.Time

	// emitMu serializes session-change emissions so subscriber callbacks
	// never overlap. Always acquired before mu.
	emitMu sync.Mutex

	mu          sync.Mutex
	byID        map[string]*account
	byEmail     map[string]*account
	current     *identity.RawSessionUser
	lastSignIn  time.Time
	codes       map[string]actionCode
	subscribers map[int]func(*identity.RawSessionUser)
	nextSub     int
}

var (
	_ ports.IdentityProvider        = (*Provider)(nil)
	_ ports.ExternalSignInCompleter = (*Provider)(nil)
)

// NewProvider constructs an empty dev identity provider.
func NewProvider(cfg Config) *Provider {
	if cfg.RecentLoginWindow <= 0 {
		cfg.RecentLoginWindow = 5 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Provider{
		cfg:         cfg,
		logger:      logger,
		clock:       clock,
		byID:        make(map[string]*account),
		byEmail:     make(map[string]*account),
		codes:       make(map[string]actionCode),
		subscribers: make(map[int]func(*identity.RawSessionUser)),
	}
}

// Subscribe registers fn and reports the current session state immediately.
func (p *Provider) Subscribe(fn func(*identity.RawSessionUser)) func() {
	p.emitMu.Lock()
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subscribers[id] = fn
	cur := cloneUser(p.current)
	p.mu.Unlock()
	fn(cur)
	p.emitMu.Unlock()

	return func() {
		p.emitMu.Lock()
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
		p.emitMu.Unlock()
	}
}

// CurrentUser returns the current raw session user, or nil.
func (p *Provider) CurrentUser() *identity.RawSessionUser {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneUser(p.current)
}

// SignUp creates a password account and starts a session for it.
func (p *Provider) SignUp(_ context.Context, email, password string) (ports.SignInResult, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return ports.SignInResult{}, err
	}
	if err := validatePassword(password); err != nil {
		return ports.SignInResult{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return ports.SignInResult{}, errorsx.Wrap(err, errorsx.ErrCodeInternal, "hash password")
	}

	p.emitMu.Lock()
	p.mu.Lock()
	if existing := p.byEmail[email]; existing != nil && existing.passwordHash != nil {
		p.mu.Unlock()
		p.emitMu.Unlock()
		return ports.SignInResult{}, errorsx.Conflictf("email %s is already in use", email)
	}

	isNew := false
	acc := p.byEmail[email]
	if acc == nil {
		acc = &account{
			id:    uuid.New().String(),
			email: email,
		}
		p.byID[acc.id] = acc
		p.byEmail[email] = acc
		isNew = true
	}
	acc.passwordHash = hash
	acc.providers = appendLink(acc.providers, identity.ProviderLink{Kind: identity.ProviderPassword})

	raw := p.startSessionLocked(acc)
	p.mu.Unlock()
	p.deliver(raw)
	p.emitMu.Unlock()

	return ports.SignInResult{User: *raw, IsNewIdentity: isNew}, nil
}

// SignIn authenticates a password account and starts a session for it.
func (p *Provider) SignIn(_ context.Context, email, password string) (ports.SignInResult, error) {
	email = normalizeEmail(email)

	p.emitMu.Lock()
	p.mu.Lock()
	acc := p.byEmail[email]
	if acc == nil || acc.passwordHash == nil {
		p.mu.Unlock()
		p.emitMu.Unlock()
		return ports.SignInResult{}, errorsx.Credential("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		p.mu.Unlock()
		p.emitMu.Unlock()
		return ports.SignInResult{}, errorsx.Credential("invalid email or password")
	}

	raw := p.startSessionLocked(acc)
	p.mu.Unlock()
	p.deliver(raw)
	p.emitMu.Unlock()

	return ports.SignInResult{User: *raw, IsNewIdentity: false}, nil
}

// SignInWithProvider simulates the popup leg of an external sign-in using
// the configured profile for the provider kind. A kind without a configured
// profile behaves like a popup dismissed before completion.
func (p *Provider) SignInWithProvider(ctx context.Context, kind identity.ProviderKind) (ports.SignInResult, error) {
	parsed, err := identity.ParseProviderKind(string(kind))
	if err != nil {
		return ports.SignInResult{}, errorsx.Wrap(err, errorsx.ErrCodeValidation, "sign in with provider")
	}
	if parsed == identity.ProviderPassword {
		return ports.SignInResult{}, errorsx.Validation("password sign-in takes credentials, not a provider flow")
	}

	profile, ok := p.cfg.ExternalProfiles[parsed]
	if !ok {
		return ports.SignInResult{}, &errorsx.AppError{
			Code:    errorsx.ErrCodeCanceled,
			Message: fmt.Sprintf("sign-in window for %s closed before completion", parsed),
		}
	}
	return p.CompleteExternalSignIn(ctx, profile)
}

// CompleteExternalSignIn links the reported external identity to an account,
// creating one when no account matches, and starts a session for it.
func (p *Provider) CompleteExternalSignIn(_ context.Context, profile ports.ExternalProfile) (ports.SignInResult, error) {
	if profile.Link.Kind == "" || profile.Link.Subject == "" {
		return ports.SignInResult{}, errorsx.Validation("external profile is missing its provider link")
	}
	email := normalizeEmail(profile.Email)

	p.emitMu.Lock()
	p.mu.Lock()

	acc := p.findByLinkLocked(profile.Link)
	if acc == nil && email != "" {
		acc = p.byEmail[email]
	}

	isNew := false
	if acc == nil {
		acc = &account{
			id:            uuid.New().String(),
			email:         email,
			emailVerified: profile.EmailVerified,
			displayName:   profile.Name,
			photoURL:      profile.Picture,
		}
		p.byID[acc.id] = acc
		if email != "" {
			p.byEmail[email] = acc
		}
		isNew = true
	}
	acc.providers = appendLink(acc.providers, profile.Link)
	if acc.displayName == "" {
		acc.displayName = profile.Name
	}
	if acc.photoURL == "" {
		acc.photoURL = profile.Picture
	}

	raw := p.startSessionLocked(acc)
	p.mu.Unlock()
	p.deliver(raw)
	p.emitMu.Unlock()

	return ports.SignInResult{User: *raw, IsNewIdentity: isNew}, nil
}

// SignOut ends the current session and emits the explicit nil transition.
func (p *Provider) SignOut(_ context.Context) error {
	p.emitMu.Lock()
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	p.deliver(nil)
	p.emitMu.Unlock()
	return nil
}

// startSessionLocked replaces the current session with acc's identity.
// Caller holds both emitMu and mu; the returned user is a private copy.
func (p *Provider) startSessionLocked(acc *account) *identity.RawSessionUser {
	raw := rawFromAccount(acc)
	p.current = raw
	p.lastSignIn = p.clock()
	return cloneUser(raw)
}

// deliver invokes every subscriber with its own copy of user.
// Caller holds emitMu and must not hold mu.
func (p *Provider) deliver(user *identity.RawSessionUser) {
	p.mu.Lock()
	fns := make([]func(*identity.RawSessionUser), 0, len(p.subscribers))
	for i := 0; i < p.nextSub; i++ {
		if fn, ok := p.subscribers[i]; ok {
			fns = append(fns, fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(cloneUser(user))
	}
}

func (p *Provider) findByLinkLocked(link identity.ProviderLink) *account {
	for _, acc := range p.byID {
		for _, l := range acc.providers {
			if l.Kind == link.Kind && l.Subject == link.Subject {
				return acc
			}
		}
	}
	return nil
}

func rawFromAccount(acc *account) *identity.RawSessionUser {
	providers := make([]identity.ProviderLink, len(acc.providers))
	copy(providers, acc.providers)
	return &identity.RawSessionUser{
		ID:            acc.id,
		Email:         acc.email,
		EmailVerified: acc.emailVerified,
		DisplayName:   acc.displayName,
		PhotoURL:      acc.photoURL,
		Providers:     providers,
	}
}

func cloneUser(u *identity.RawSessionUser) *identity.RawSessionUser {
	if u == nil {
		return nil
	}
	c := *u
	c.Providers = make([]identity.ProviderLink, len(u.Providers))
	copy(c.Providers, u.Providers)
	return &c
}

func appendLink(links []identity.ProviderLink, link identity.ProviderLink) []identity.ProviderLink {
	for _, l := range links {
		if l.Kind == link.Kind && l.Subject == link.Subject {
			return links
		}
	}
	return append(links, link)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" || !strings.Contains(email, "@") {
		return errorsx.ValidationField("email", "a valid email address is required")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return errorsx.ValidationField("password", "password must be at least 6 characters")
	}
	return nil
}

func randomCode(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
