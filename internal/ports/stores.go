package ports

import (
	"context"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/activity"
	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
)

// RecordStatus is the status of a user record fetch.
type RecordStatus string

const (
	RecordPending RecordStatus = "pending"
	RecordSuccess RecordStatus = "success"
	RecordError   RecordStatus = "error"
)

// RecordSnapshot is one emission from a live user record subscription.
// Status success with nil Data means the document does not exist yet,
// which is the expected transient right after sign-up.
type RecordSnapshot struct {
	Status RecordStatus
	Data   *identity.UserRecord
	Err    error
}

// UserRecordStore is the async document interface for application-owned
// user records, keyed by the identity provider's user id.
type UserRecordStore interface {
	// SubscribeByID emits the current snapshot first, then re-emits
	// whenever the record changes, until the returned unsubscribe function
	// is called. Snapshots are delivered one at a time, never concurrently,
	// and never from inside the SubscribeByID call itself.
	SubscribeByID(ctx context.Context, id string, fn func(RecordSnapshot)) (unsubscribe func(), err error)

	// CreateByID writes the initial record for id. Creation is an
	// idempotent upsert: repeating it for an existing id is not an error.
	CreateByID(ctx context.Context, id string, patch identity.RecordPatch) error

	// UpdateByID applies a partial update, merging fields into the record.
	UpdateByID(ctx context.Context, id string, patch identity.RecordPatch) error

	// GetByID fetches the record once. Returns a NotFound error when the
	// record has not been created yet.
	GetByID(ctx context.Context, id string) (identity.UserRecord, error)
}

// ActivityStore persists logged activities. It follows the same document
// store contract as UserRecordStore but is keyed by activity id and
// queried by owner.
type ActivityStore interface {
	Create(ctx context.Context, a activity.Activity) (activity.Activity, error)
	GetByID(ctx context.Context, id string) (activity.Activity, error)
	// ListByOwner returns the owner's activities ordered by date.
	ListByOwner(ctx context.Context, owner string) ([]activity.Activity, error)
	Update(ctx context.Context, id string, patch activity.Patch) error
	Delete(ctx context.Context, id string) error
}

// SessionStore persists and retrieves browser sessions.
type SessionStore interface {
	Save(ctx context.Context, sess identity.Session) error
	Get(ctx context.Context, id string) (identity.Session, error)
	Delete(ctx context.Context, id string) error
}
