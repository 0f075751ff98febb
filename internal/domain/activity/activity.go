package activity

// Package activity contains domain types for logged workout activities.

import (
	"fmt"
	"strings"
	"time"
)

// Type is the kind of workout an activity records. The set matches the
// options offered by the dashboard form.
type Type string

const (
	TypeWeightLifting Type = "Weight Lifting"
	TypeCardio        Type = "Cardio"
	TypeWalking       Type = "Walking"
	TypeRunning       Type = "Running"
	TypeBiking        Type = "Biking"
)

// AllTypes lists every supported activity type.
var AllTypes = []Type{
	TypeWeightLifting,
	TypeCardio,
	TypeWalking,
	TypeRunning,
	TypeBiking,
}

// ParseType validates an activity type name against the supported set.
func ParseType(name string) (Type, error) {
	trimmed := strings.TrimSpace(name)
	for _, known := range AllTypes {
		if strings.EqualFold(trimmed, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown activity type: %q", name)
}

// Activity is one logged entry on a user's calendar. Owner is the user id
// the entry belongs to; Featured is the plan-gated star flag.
type Activity struct {
	ID              string    `json:"id"`
	Owner           string    `json:"owner"`
	Date            time.Time `json:"date"`
	Name            string    `json:"name"`
	Type            Type      `json:"type"`
	DurationMinutes int       `json:"durationMinutes"`
	Featured        bool      `json:"featured"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Validate checks the fields a caller must supply before persisting.
func (a Activity) Validate() error {
	if a.Owner == "" {
		return fmt.Errorf("activity owner is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("activity name is required")
	}
	if _, err := ParseType(string(a.Type)); err != nil {
		return err
	}
	if a.DurationMinutes < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	if a.Date.IsZero() {
		return fmt.Errorf("activity date is required")
	}
	return nil
}

// Patch is a partial update to an Activity. Nil fields are left untouched.
type Patch struct {
	Date            *time.Time
	Name            *string
	Type            *Type
	DurationMinutes *int
	Featured        *bool
}

// IsZero reports whether the patch carries no changes.
func (p Patch) IsZero() bool {
	return p.Date == nil && p.Name == nil && p.Type == nil &&
		p.DurationMinutes == nil && p.Featured == nil
}
