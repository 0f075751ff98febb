package identity

import "fmt"

// Unknown returns the merged view for an undetermined session.
func Unknown() MergedUser { return MergedUser{State: StateUnknown} }

// Absent returns the merged view for an explicitly signed-out session.
func Absent() MergedUser { return MergedUser{State: StateAbsent} }

// Merge combines a raw session user with its user record into a Present
// merged view. Session-owned fields (id, email, verification, linked
// providers) always come from the raw session user. The record contributes
// the application fields (plan, features) and, when set, wins the display
// fields: a profile update writes name and picture through to the record,
// so the record copy is the authoritative one.
//
// The ids must agree; a mismatch is a consistency fault and the caller
// must degrade the view to Unknown rather than expose mixed data.
func Merge(raw RawSessionUser, rec UserRecord) (MergedUser, error) {
	if raw.ID == "" {
		return Unknown(), fmt.Errorf("merge: raw session user has no id")
	}
	if raw.ID != rec.ID {
		return Unknown(), fmt.Errorf("merge: id mismatch: session %q vs record %q", raw.ID, rec.ID)
	}

	name := raw.DisplayName
	if rec.Name != "" {
		name = rec.Name
	}
	picture := raw.PhotoURL
	if rec.Picture != "" {
		picture = rec.Picture
	}

	features := make(map[string]bool, len(rec.Features))
	for k, v := range rec.Features {
		features[k] = v
	}

	return MergedUser{
		State:         StatePresent,
		ID:            raw.ID,
		Email:         raw.Email,
		EmailVerified: raw.EmailVerified,
		Name:          name,
		Picture:       picture,
		Providers:     raw.ProviderKinds(),
		PlanID:        rec.PlanID,
		PlanIsActive:  rec.PlanIsActive,
		Features:      features,
	}, nil
}
