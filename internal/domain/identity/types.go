package identity

// Package identity contains domain-level types for the session core: the
// identity-provider-native session user, the application-owned user record,
// and the merged view downstream code consumes. It is pure and free of
// framework/adapter concerns.

import (
	"fmt"
	"strings"
	"time"
)

// ProviderKind identifies a supported sign-in method. The set is closed;
// unknown names are rejected at the call boundary with a typed error.
type ProviderKind string

const (
	ProviderPassword ProviderKind = "password"
	ProviderGoogle   ProviderKind = "google"
	ProviderFacebook ProviderKind = "facebook"
	ProviderTwitter  ProviderKind = "twitter"
	ProviderGitHub   ProviderKind = "github"
)

// AllProviderKinds lists every supported sign-in method.
var AllProviderKinds = []ProviderKind{
	ProviderPassword,
	ProviderGoogle,
	ProviderFacebook,
	ProviderTwitter,
	ProviderGitHub,
}

// ParseProviderKind validates a provider name against the closed set.
func ParseProviderKind(name string) (ProviderKind, error) {
	k := ProviderKind(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range AllProviderKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sign-in provider: %q", name)
}

// ProviderLink records one linked sign-in method on an identity.
type ProviderLink struct {
	Kind ProviderKind `json:"kind"`
	// Subject is the provider-specific subject id (empty for password).
	Subject string `json:"subject,omitempty"`
}

// RawSessionUser is the identity-provider-native representation of the
// current principal, independent of application data. It is created and
// replaced only by the identity provider adapter.
type RawSessionUser struct {
	// ID is the stable, opaque, provider-assigned identifier.
	ID            string
	Email         string
	EmailVerified bool
	DisplayName   string
	PhotoURL      string
	Providers     []ProviderLink
}

// ProviderKinds returns the kinds of all linked sign-in methods.
func (u RawSessionUser) ProviderKinds() []ProviderKind {
	kinds := make([]ProviderKind, 0, len(u.Providers))
	for _, p := range u.Providers {
		kinds = append(kinds, p.Kind)
	}
	return kinds
}

// UserRecord is the application-owned profile/plan document keyed by the
// same id the identity provider assigns. It is created exactly once by the
// session reconciler after first sign-up; creation must tolerate
// at-least-once delivery (idempotent upsert by id).
type UserRecord struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	Name         string          `json:"name,omitempty"`
	Picture      string          `json:"picture,omitempty"`
	PlanID       string          `json:"planId,omitempty"`
	PlanIsActive bool            `json:"planIsActive"`
	Features     map[string]bool `json:"features,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// RecordPatch is a partial update to a UserRecord. Nil fields are left
// untouched; Features entries are merged key-by-key.
type RecordPatch struct {
	Email        *string
	Name         *string
	Picture      *string
	PlanID       *string
	PlanIsActive *bool
	Features     map[string]bool
}

// IsZero reports whether the patch carries no changes.
func (p RecordPatch) IsZero() bool {
	return p.Email == nil && p.Name == nil && p.Picture == nil &&
		p.PlanID == nil && p.PlanIsActive == nil && len(p.Features) == 0
}

// Apply returns a copy of rec with the patch applied.
func (p RecordPatch) Apply(rec UserRecord) UserRecord {
	if p.Email != nil {
		rec.Email = *p.Email
	}
	if p.Name != nil {
		rec.Name = *p.Name
	}
	if p.Picture != nil {
		rec.Picture = *p.Picture
	}
	if p.PlanID != nil {
		rec.PlanID = *p.PlanID
	}
	if p.PlanIsActive != nil {
		rec.PlanIsActive = *p.PlanIsActive
	}
	if len(p.Features) > 0 {
		merged := make(map[string]bool, len(rec.Features)+len(p.Features))
		for k, v := range rec.Features {
			merged[k] = v
		}
		for k, v := range p.Features {
			merged[k] = v
		}
		rec.Features = merged
	}
	return rec
}

// SessionState is the observable state of the merged user view.
// The three states must stay distinguishable for downstream consumers:
// a route guard renders a placeholder for Unknown, redirects once for
// Absent, and serves the protected view for Present.
type SessionState string

const (
	// StateUnknown means the session status is not yet determined, either
	// because the identity provider has not reported the initial state or
	// because the record fetch has not reached terminal success.
	StateUnknown SessionState = "unknown"
	// StateAbsent means the identity provider explicitly reported no session.
	StateAbsent SessionState = "absent"
	// StatePresent means both identity and application fields are populated.
	StatePresent SessionState = "present"
)

// MergedUser is the single consistent view downstream code is allowed to
// depend on. Identity fields come from the raw session user; application
// fields come from the user record. Present is never fabricated from
// partial data.
type MergedUser struct {
	State SessionState `json:"state"`

	ID            string         `json:"id,omitempty"`
	Email         string         `json:"email,omitempty"`
	EmailVerified bool           `json:"emailVerified,omitempty"`
	Name          string         `json:"name,omitempty"`
	Picture       string         `json:"picture,omitempty"`
	Providers     []ProviderKind `json:"providers,omitempty"`

	PlanID       string          `json:"planId,omitempty"`
	PlanIsActive bool            `json:"planIsActive,omitempty"`
	Features     map[string]bool `json:"features,omitempty"`
}

// IsPresent reports whether the merged view carries a fully populated user.
func (u MergedUser) IsPresent() bool { return u.State == StatePresent }

// Session is the server-side record binding a browser cookie to an
// authenticated principal. ID is an opaque session identifier.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
