package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
	"github.com/loveliiivelaugh/exercise-tracker/internal/observability/metrics"
	"github.com/loveliiivelaugh/exercise-tracker/internal/observability/statsd"
	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
)

// ReconcilerState is the internal state of the session state machine.
type ReconcilerState string

const (
	// StatePending means no raw session has been observed yet.
	StatePending ReconcilerState = "pending"
	// StateSignedOut means the identity provider reported an explicit nil session.
	StateSignedOut ReconcilerState = "signedOut"
	// StateLoadingRecord means a raw session is present and the record fetch
	// has not reached terminal success yet.
	StateLoadingRecord ReconcilerState = "signedInLoadingRecord"
	// StateReady means the record fetch succeeded with data for the active id.
	StateReady ReconcilerState = "signedInReady"
	// StateDegraded means the record fetch errored, returned no document, or
	// disagreed about the user id. Consumers see Unknown, never partial data.
	StateDegraded ReconcilerState = "signedInDegraded"
)

// SessionReconcilerOptions groups dependencies for SessionReconciler.
type SessionReconcilerOptions struct {
	Identity ports.IdentityProvider
	Records  ports.UserRecordStore
	// Analytics receives a fire-and-forget identify call on each transition
	// into Present with a new user id. Optional.
	Analytics ports.AnalyticsSink
	// Metrics counts state transitions and auth operations. Optional.
	Metrics statsd.Sink
	Logger  *slog.Logger
	// SendVerificationEmail triggers a best-effort verification mail after
	// a new identity is created.
	SendVerificationEmail bool
}

// SessionReconciler owns the process-wide notion of "current user". It merges
// the identity provider's raw session with the user record store's document
// for the same id into one consistent view, and keeps both sources in step
// when callers mutate the session.
//
// The reconciler is explicitly constructed and injected into consumers; call
// Start to attach it to the identity provider and Close to release both
// subscriptions. Merged-view subscribers must not invoke session-mutating
// operations from inside their callback.
type SessionReconciler struct {
	identityp ports.IdentityProvider
	records   ports.UserRecordStore
	analytics ports.AnalyticsSink
	sink      statsd.Sink
	logger    *slog.Logger
	verify    bool

	// emitMu serializes merged-view deliveries so subscribers observe
	// transitions in order. It is always acquired before mu.
	emitMu sync.Mutex

	mu         sync.Mutex
	ctx        context.Context
	state      ReconcilerState
	raw        *identity.RawSessionUser
	record     *identity.UserRecord
	merged     identity.MergedUser
	generation uint64

	unsubIdentity func()
	unsubRecord   func()

	subs    map[int]func(identity.MergedUser)
	nextSub int

	lastIdentified string
	started        bool
	closed         bool
}

// NewSessionReconciler constructs a reconciler in the pending state.
func NewSessionReconciler(opts SessionReconcilerOptions) *SessionReconciler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionReconciler{
		identityp: opts.Identity,
		records:   opts.Records,
		analytics: opts.Analytics,
		sink:      opts.Metrics,
		logger:    logger,
		verify:    opts.SendVerificationEmail,
		state:     StatePending,
		merged:    identity.Unknown(),
		subs:      make(map[int]func(identity.MergedUser)),
	}
}

// Start subscribes to the identity provider's session changes. The given
// context bounds all record subscriptions the reconciler opens.
func (r *SessionReconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errorsx.Internal("session reconciler already started")
	}
	if r.closed {
		r.mu.Unlock()
		return errorsx.Internal("session reconciler is closed")
	}
	r.started = true
	r.ctx = ctx
	r.mu.Unlock()

	r.unsubIdentity = r.identityp.Subscribe(r.onRawChange)
	return nil
}

// Close releases both subscriptions. No merged-view callbacks run after
// Close returns.
func (r *SessionReconciler) Close() {
	r.emitMu.Lock()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.emitMu.Unlock()
		return
	}
	r.closed = true
	unsubIdentity := r.unsubIdentity
	unsubRecord := r.unsubRecord
	r.unsubIdentity = nil
	r.unsubRecord = nil
	r.subs = make(map[int]func(identity.MergedUser))
	r.mu.Unlock()
	r.emitMu.Unlock()

	if unsubIdentity != nil {
		unsubIdentity()
	}
	if unsubRecord != nil {
		unsubRecord()
	}
}

// Current returns the merged user view.
func (r *SessionReconciler) Current() identity.MergedUser {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.merged
}

// State returns the reconciler's internal state. Exposed for observability;
// consumers should branch on the merged view instead.
func (r *SessionReconciler) State() ReconcilerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SubscribeMerged registers fn to receive every merged-view recomputation
// until the returned unsubscribe function is called.
func (r *SessionReconciler) SubscribeMerged(fn func(identity.MergedUser)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// CanUseFeature derives a capability flag from the current merged view.
func (r *SessionReconciler) CanUseFeature(f identity.Feature) bool {
	return identity.CanUseFeature(r.Current(), f)
}

// onRawChange is the identity provider subscription callback.
func (r *SessionReconciler) onRawChange(user *identity.RawSessionUser) {
	r.applyRaw(user)
}

// applyRaw folds a raw-session observation into the state machine. A change
// of principal (or an explicit nil) invalidates the record subscription and
// bumps the generation so stale record emissions are discarded; a refresh of
// the same principal only recomputes the merged view.
func (r *SessionReconciler) applyRaw(user *identity.RawSessionUser) {
	r.emitMu.Lock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.emitMu.Unlock()
		return
	}

	var (
		oldUnsub    func()
		subscribeID string
		gen         uint64
	)

	switch {
	case user == nil:
		r.generation++
		oldUnsub = r.dropRecordSubscriptionLocked()
		r.raw = nil
		r.record = nil
		r.setStateLocked(StateSignedOut)
		r.merged = identity.Absent()

	case r.raw != nil && r.raw.ID == user.ID:
		// Same principal: refresh identity fields in place. The record
		// subscription stays attached.
		u := *user
		r.raw = &u
		if r.state == StateReady && r.record != nil {
			merged, err := identity.Merge(u, *r.record)
			if err != nil {
				r.logger.Error("merged view degraded", "error", err, "user_id", u.ID)
				r.setStateLocked(StateDegraded)
				r.merged = identity.Unknown()
			} else {
				r.merged = merged
			}
		}

	default:
		r.generation++
		gen = r.generation
		oldUnsub = r.dropRecordSubscriptionLocked()
		u := *user
		r.raw = &u
		r.record = nil
		r.setStateLocked(StateLoadingRecord)
		r.merged = identity.Unknown()
		subscribeID = u.ID
	}

	view := r.merged
	callbacks := r.subscribersLocked()
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(view)
	}
	r.emitMu.Unlock()

	if oldUnsub != nil {
		oldUnsub()
	}
	if subscribeID != "" {
		r.openRecordSubscription(gen, subscribeID)
	}
}

// openRecordSubscription attaches a live record subscription for id. The
// captured generation tags every emission; emissions and the subscription
// handle itself are discarded if the session has moved on in the meantime.
func (r *SessionReconciler) openRecordSubscription(gen uint64, id string) {
	r.mu.Lock()
	ctx := r.ctx
	stale := r.closed || r.generation != gen
	r.mu.Unlock()
	if stale {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	unsub, err := r.records.SubscribeByID(ctx, id, func(snap ports.RecordSnapshot) {
		r.onRecordSnapshot(gen, id, snap)
	})

	r.emitMu.Lock()
	r.mu.Lock()
	if r.closed || r.generation != gen {
		r.mu.Unlock()
		r.emitMu.Unlock()
		if unsub != nil {
			unsub()
		}
		return
	}

	if err != nil {
		r.logger.Error("user record subscription failed", "error", err, "user_id", id)
		r.setStateLocked(StateDegraded)
		r.merged = identity.Unknown()
		view := r.merged
		callbacks := r.subscribersLocked()
		r.mu.Unlock()
		for _, fn := range callbacks {
			fn(view)
		}
		r.emitMu.Unlock()
		return
	}

	r.unsubRecord = unsub
	r.mu.Unlock()
	r.emitMu.Unlock()
}

// onRecordSnapshot folds a record store emission into the state machine.
// Emissions tagged with a superseded generation, or describing a different
// id than the active raw session, are discarded.
func (r *SessionReconciler) onRecordSnapshot(gen uint64, id string, snap ports.RecordSnapshot) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	if r.closed || r.generation != gen || r.raw == nil || r.raw.ID != id {
		r.mu.Unlock()
		return
	}

	switch snap.Status {
	case ports.RecordPending:
		// Fetch still in flight; nothing to fold in yet.
		r.mu.Unlock()
		return

	case ports.RecordSuccess:
		r.applyRecordSuccessLocked(id, snap.Data)

	case ports.RecordError:
		r.logger.Error("user record fetch failed", "error", snap.Err, "user_id", id)
		r.record = nil
		r.setStateLocked(StateDegraded)
		r.merged = identity.Unknown()

	default:
		r.logger.Error("unrecognized record snapshot status", "status", string(snap.Status), "user_id", id)
		r.mu.Unlock()
		return
	}

	view := r.merged
	callbacks := r.subscribersLocked()
	identifyID := ""
	if view.IsPresent() && view.ID != r.lastIdentified {
		r.lastIdentified = view.ID
		identifyID = view.ID
	}
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(view)
	}

	if identifyID != "" && r.analytics != nil {
		go r.identify(identifyID)
	}
}

// applyRecordSuccessLocked handles a terminal-success record emission.
// Caller holds mu.
func (r *SessionReconciler) applyRecordSuccessLocked(id string, rec *identity.UserRecord) {
	if rec == nil {
		// Expected transient right after sign-up, before the record-creation
		// write lands. The live subscription re-emits once it appears; no
		// retry from here, and no fabricated defaults.
		r.logger.Debug("user record not ready", "user_id", id)
		r.record = nil
		r.setStateLocked(StateDegraded)
		r.merged = identity.Unknown()
		return
	}

	if rec.ID != id {
		fault := errorsx.Consistencyf("record id %q does not match session id %q", rec.ID, id)
		r.logger.Error("merged view degraded", "error", fault, "user_id", id)
		r.record = nil
		r.setStateLocked(StateDegraded)
		r.merged = identity.Unknown()
		return
	}

	merged, err := identity.Merge(*r.raw, *rec)
	if err != nil {
		r.logger.Error("merged view degraded", "error", err, "user_id", id)
		r.record = nil
		r.setStateLocked(StateDegraded)
		r.merged = identity.Unknown()
		return
	}

	rc := *rec
	r.record = &rc
	r.setStateLocked(StateReady)
	r.merged = merged
}

func (r *SessionReconciler) setStateLocked(next ReconcilerState) {
	if r.state == next {
		return
	}
	r.state = next
	metrics.EmitSessionTransition(r.sink, string(next))
}

func (r *SessionReconciler) dropRecordSubscriptionLocked() func() {
	unsub := r.unsubRecord
	r.unsubRecord = nil
	return unsub
}

// subscribersLocked snapshots the subscriber list in registration order.
// Caller holds mu.
func (r *SessionReconciler) subscribersLocked() []func(identity.MergedUser) {
	out := make([]func(identity.MergedUser), 0, len(r.subs))
	for i := 0; i < r.nextSub; i++ {
		if fn, ok := r.subs[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (r *SessionReconciler) identify(userID string) {
	ctx := context.Background()
	if err := r.analytics.Identify(ctx, userID); err != nil {
		r.logger.Debug("analytics identify failed", "error", err, "user_id", userID)
	}
}
