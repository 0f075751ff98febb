package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the identity provider backing the session core.
type AuthMode string

const (
	// AuthModeOIDC uses hosted OIDC identity providers.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeDev uses the in-memory dev identity provider (for development only).
	AuthModeDev AuthMode = "dev"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oidc", "dev":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oidc, dev)", v)
	}
}

// OIDCClientConfig configures one external sign-in provider.
type OIDCClientConfig struct {
	IssuerURL    string `env:"ISSUER_URL"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Scope        string `env:"SCOPE" envDefault:"openid email profile"`
}

// IsConfigured reports whether this provider was given credentials.
func (c OIDCClientConfig) IsConfigured() bool {
	return c.IssuerURL != "" && c.ClientID != ""
}

// DevAuthConfig controls the in-memory dev identity provider.
// Used when AUTH_MODE=dev for development and testing.
type DevAuthConfig struct {
	// RecentLoginWindow bounds how long privileged updates stay allowed
	// after sign-in.
	RecentLoginWindow time.Duration `env:"RECENT_LOGIN_WINDOW" envDefault:"5m"`
}

// AuthConfig groups all identity-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"dev"`

	// Per-provider OIDC clients (used when Mode=oidc). Providers without
	// credentials are simply not offered.
	Google   OIDCClientConfig `envPrefix:"AUTH_GOOGLE_"`
	GitHub   OIDCClientConfig `envPrefix:"AUTH_GITHUB_"`
	Facebook OIDCClientConfig `envPrefix:"AUTH_FACEBOOK_"`
	Twitter  OIDCClientConfig `envPrefix:"AUTH_TWITTER_"`

	// Dev configuration (used when Mode=dev).
	Dev DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// SendVerificationEmail triggers a verification mail after sign-up.
	SendVerificationEmail bool `env:"AUTH_SEND_VERIFICATION_EMAIL" envDefault:"true"`
}

// Sanitize applies guardrails to auth configuration values.
func (c *AuthConfig) Sanitize() {
	if c.Dev.RecentLoginWindow <= 0 {
		c.Dev.RecentLoginWindow = 5 * time.Minute
	}
}
