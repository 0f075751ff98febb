package oidcidentity

// Package oidcidentity drives the browser redirect leg of external sign-in
// against real OIDC endpoints, one configured client per provider kind.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
)

// ClientConfig holds the per-provider OAuth client registration.
type ClientConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	Scope        string
}

// BrokerConfig configures the broker with one client per enabled kind.
type BrokerConfig struct {
	Clients map[identity.ProviderKind]ClientConfig
	// HTTPClient is used for discovery, token, and userinfo calls.
	// Defaults to a 30s-timeout client.
	HTTPClient *http.Client
}

type providerClient struct {
	kind     identity.ProviderKind
	oauth    oauth2.Config
	verifier *gooidc.IDTokenVerifier
	provider *gooidc.Provider
}

// Broker implements ports.ExternalSignInBroker over go-oidc.
type Broker struct {
	clients    map[identity.ProviderKind]*providerClient
	httpClient *http.Client
}

var _ ports.ExternalSignInBroker = (*Broker)(nil)

// NewBroker performs discovery for every configured client. A kind that is
// not configured is rejected at Begin/Exchange time with a validation error.
func NewBroker(ctx context.Context, cfg BrokerConfig) (*Broker, error) {
	if len(cfg.Clients) == 0 {
		return nil, errorsx.Validation("at least one external provider client is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	b := &Broker{
		clients:    make(map[identity.ProviderKind]*providerClient, len(cfg.Clients)),
		httpClient: httpClient,
	}

	for kind, cc := range cfg.Clients {
		parsed, err := identity.ParseProviderKind(string(kind))
		if err != nil {
			return nil, errorsx.Wrap(err, errorsx.ErrCodeValidation, "configure external provider")
		}
		if parsed == identity.ProviderPassword {
			return nil, errorsx.Validation("password is not an external provider")
		}
		pc, err := newProviderClient(ctx, parsed, cc, httpClient)
		if err != nil {
			return nil, err
		}
		b.clients[parsed] = pc
	}
	return b, nil
}

func newProviderClient(ctx context.Context, kind identity.ProviderKind, cc ClientConfig, httpClient *http.Client) (*providerClient, error) {
	if cc.ClientID == "" {
		return nil, errorsx.Validationf("%s: client ID is required", kind)
	}
	if cc.ClientSecret == "" {
		return nil, errorsx.Validationf("%s: client secret is required", kind)
	}
	if cc.IssuerURL == "" {
		return nil, errorsx.Validationf("%s: issuer URL is required", kind)
	}

	scope := cc.Scope
	if scope == "" {
		scope = "openid email profile"
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(cc.IssuerURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, errorsx.Wrapf(err, errorsx.ErrCodeNetwork, "%s: oidc discovery", kind)
	}

	return &providerClient{
		kind:     kind,
		provider: op,
		verifier: op.Verifier(&gooidc.Config{ClientID: cc.ClientID}),
		oauth: oauth2.Config{
			ClientID:     cc.ClientID,
			ClientSecret: cc.ClientSecret,
			Scopes:       strings.Fields(scope),
			Endpoint:     op.Endpoint(),
		},
	}, nil
}

// Begin builds the provider auth URL with fresh state and nonce.
func (b *Broker) Begin(_ context.Context, kind identity.ProviderKind, redirectURL string) (string, string, string, error) {
	pc, err := b.client(kind)
	if err != nil {
		return "", "", "", err
	}
	if redirectURL == "" {
		return "", "", "", errorsx.Validation("redirect URL is required")
	}

	state, err := generateRandomString(32)
	if err != nil {
		return "", "", "", errorsx.Wrap(err, errorsx.ErrCodeInternal, "generate state")
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return "", "", "", errorsx.Wrap(err, errorsx.ErrCodeInternal, "generate nonce")
	}

	cfg := pc.oauth
	cfg.RedirectURL = redirectURL
	authURL := cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("response_type", "code"),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

// Exchange redeems the authorization code, verifies the ID token and nonce,
// and maps the claims to an external profile.
func (b *Broker) Exchange(ctx context.Context, kind identity.ProviderKind, in ports.ExchangeInput) (ports.ExternalProfile, error) {
	pc, err := b.client(kind)
	if err != nil {
		return ports.ExternalProfile{}, err
	}
	if in.Code == "" {
		return ports.ExternalProfile{}, errorsx.Validation("authorization code is required")
	}
	if in.Nonce == "" {
		return ports.ExternalProfile{}, errorsx.Validation("nonce is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	token, err := pc.oauth.Exchange(ctx, in.Code)
	if err != nil {
		return ports.ExternalProfile{}, errorsx.Wrap(err, errorsx.ErrCodeNetwork, "exchange code for token")
	}

	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return ports.ExternalProfile{}, errorsx.Credential("missing id_token in token response")
	}
	idTok, err := pc.verifier.Verify(ctx, rawID)
	if err != nil {
		return ports.ExternalProfile{}, errorsx.Wrap(err, errorsx.ErrCodeCredential, "verify id_token")
	}

	var claims idTokenClaims
	if err := idTok.Claims(&claims); err != nil {
		return ports.ExternalProfile{}, errorsx.Wrap(err, errorsx.ErrCodeInternal, "parse id_token claims")
	}
	if claims.Nonce != in.Nonce {
		return ports.ExternalProfile{}, errorsx.Credential("invalid nonce")
	}

	profile := mapClaims(kind, claims)

	// Some providers keep profile claims off the ID token.
	if profile.Email == "" || profile.Name == "" {
		if err := pc.fillFromUserInfo(ctx, token.AccessToken, &profile); err != nil {
			return ports.ExternalProfile{}, err
		}
	}
	if profile.Link.Subject == "" {
		return ports.ExternalProfile{}, errorsx.Consistency("provider reported no subject")
	}
	return profile, nil
}

func (b *Broker) client(kind identity.ProviderKind) (*providerClient, error) {
	pc, ok := b.clients[kind]
	if !ok {
		return nil, errorsx.Validationf("external provider %s is not configured", kind)
	}
	return pc, nil
}

// idTokenClaims is the standard-claims subset the profile mapping reads.
type idTokenClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Nonce         string `json:"nonce"`
}

func mapClaims(kind identity.ProviderKind, c idTokenClaims) ports.ExternalProfile {
	return ports.ExternalProfile{
		Link:          identity.ProviderLink{Kind: kind, Subject: c.Sub},
		Email:         strings.ToLower(strings.TrimSpace(c.Email)),
		EmailVerified: c.EmailVerified,
		Name:          c.Name,
		Picture:       c.Picture,
	}
}

func (pc *providerClient) fillFromUserInfo(ctx context.Context, accessToken string, profile *ports.ExternalProfile) error {
	ui, err := pc.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return errorsx.Wrap(err, errorsx.ErrCodeNetwork, "fetch user info")
	}
	var claims idTokenClaims
	if err := ui.Claims(&claims); err != nil {
		return errorsx.Wrap(err, errorsx.ErrCodeInternal, "decode user info")
	}
	if profile.Link.Subject == "" {
		profile.Link.Subject = claims.Sub
	}
	if profile.Email == "" {
		profile.Email = strings.ToLower(strings.TrimSpace(claims.Email))
		profile.EmailVerified = claims.EmailVerified
	}
	if profile.Name == "" {
		profile.Name = claims.Name
	}
	if profile.Picture == "" {
		profile.Picture = claims.Picture
	}
	return nil
}

// generateRandomString returns a URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	for len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}
