package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
	"github.com/loveliiivelaugh/exercise-tracker/internal/mocks/identitymocks"
	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func rawUser(id, email string) *identity.RawSessionUser {
	return &identity.RawSessionUser{
		ID:            id,
		Email:         email,
		EmailVerified: true,
		Providers:     []identity.ProviderLink{{Kind: identity.ProviderPassword}},
	}
}

func seededRecord(id, email string) identity.UserRecord {
	return identity.UserRecord{ID: id, Email: email, PlanID: "pro", PlanIsActive: true}
}

// viewLog collects merged-view emissions for assertions.
type viewLog struct {
	mu    sync.Mutex
	views []identity.MergedUser
}

func (l *viewLog) add(v identity.MergedUser) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.views = append(l.views, v)
}

func (l *viewLog) states() []identity.SessionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]identity.SessionState, 0, len(l.views))
	for _, v := range l.views {
		out = append(out, v.State)
	}
	return out
}

func (l *viewLog) all() []identity.MergedUser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]identity.MergedUser(nil), l.views...)
}

func (l *viewLog) last() identity.MergedUser {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.views) == 0 {
		return identity.MergedUser{}
	}
	return l.views[len(l.views)-1]
}

func newTestReconciler(t *testing.T, provider *identitymocks.FakeIdentityProvider, records *identitymocks.MemoryRecordStore) *SessionReconciler {
	t.Helper()
	r := NewSessionReconciler(SessionReconcilerOptions{
		Identity: provider,
		Records:  records,
		Logger:   silentLogger(),
	})
	t.Cleanup(r.Close)
	return r
}

func TestReconciler_StartsPendingThenAbsent(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	r := newTestReconciler(t, provider, records)

	require.Equal(t, identity.StateUnknown, r.Current().State)
	require.Equal(t, StatePending, r.State())

	require.NoError(t, r.Start(context.Background()))

	// The provider reports its current (nil) state on subscription.
	assert.Equal(t, identity.StateAbsent, r.Current().State)
	assert.Equal(t, StateSignedOut, r.State())
}

func TestReconciler_StartTwiceFails(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	r := newTestReconciler(t, provider, identitymocks.NewMemoryRecordStore())

	require.NoError(t, r.Start(context.Background()))
	require.Error(t, r.Start(context.Background()))
}

func TestReconciler_PresentRequiresBothSources(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	records.Seed(seededRecord("u1", "ada@example.com"))
	r := newTestReconciler(t, provider, records)
	require.NoError(t, r.Start(context.Background()))

	provider.Emit(rawUser("u1", "ada@example.com"))

	// Identity alone is not enough; the view stays Unknown until the record
	// snapshot lands.
	require.Equal(t, identity.StateUnknown, r.Current().State)
	require.Equal(t, StateLoadingRecord, r.State())

	require.Eventually(t, func() bool {
		return r.Current().IsPresent()
	}, waitFor, tick)

	got := r.Current()
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.True(t, got.EmailVerified)
	assert.Equal(t, "pro", got.PlanID)
	assert.True(t, got.PlanIsActive)
	assert.Equal(t, StateReady, r.State())
}

func TestReconciler_SessionSequence(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	records.Seed(seededRecord("alice", "alice@example.com"))
	records.Seed(seededRecord("bob", "bob@example.com"))
	r := newTestReconciler(t, provider, records)

	log := &viewLog{}
	unsub := r.SubscribeMerged(log.add)
	defer unsub()

	require.NoError(t, r.Start(context.Background()))

	provider.Emit(rawUser("alice", "alice@example.com"))
	require.Eventually(t, func() bool { return r.Current().ID == "alice" }, waitFor, tick)

	provider.Emit(nil)
	require.Equal(t, identity.StateAbsent, r.Current().State)

	provider.Emit(rawUser("bob", "bob@example.com"))
	require.Eventually(t, func() bool { return r.Current().ID == "bob" }, waitFor, tick)

	// absent, unknown, present(alice), absent, unknown, present(bob):
	// every sign-in passes through Unknown before Present, and a sign-out is
	// visible as Absent in between.
	states := log.states()
	require.GreaterOrEqual(t, len(states), 6)
	assert.Equal(t, identity.StateAbsent, states[0])
	assert.Equal(t, identity.StateUnknown, states[1])
	assert.Equal(t, identity.StatePresent, states[2])
	assert.Equal(t, identity.StateAbsent, states[3])
	assert.Equal(t, identity.StateUnknown, states[4])
	assert.Equal(t, identity.StatePresent, states[5])
	assert.Equal(t, "bob", log.last().ID)
}

func TestReconciler_RapidSwitchNeverShowsStaleUser(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	records.Seed(seededRecord("alice", "alice@example.com"))
	records.Seed(seededRecord("bob", "bob@example.com"))
	r := newTestReconciler(t, provider, records)

	log := &viewLog{}
	unsub := r.SubscribeMerged(log.add)
	defer unsub()

	require.NoError(t, r.Start(context.Background()))

	provider.Emit(rawUser("alice", "alice@example.com"))
	provider.Emit(rawUser("bob", "bob@example.com"))

	require.Eventually(t, func() bool { return r.Current().ID == "bob" }, waitFor, tick)
	time.Sleep(100 * time.Millisecond)

	// Alice's record fetch was in flight when the session switched; its
	// result must never surface as a Present view.
	for _, v := range log.all() {
		if v.IsPresent() {
			assert.Equal(t, "bob", v.ID)
		}
	}
	assert.Equal(t, "bob", r.Current().ID)
}

func TestReconciler_MissingRecordDegrades(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	r := newTestReconciler(t, provider, records)
	require.NoError(t, r.Start(context.Background()))

	provider.Emit(rawUser("ghost", "ghost@example.com"))

	require.Eventually(t, func() bool { return r.State() == StateDegraded }, waitFor, tick)
	assert.Equal(t, identity.StateUnknown, r.Current().State)

	// The record arriving later recovers the view without a new sign-in.
	require.NoError(t, records.CreateByID(context.Background(), "ghost", identity.RecordPatch{}))
	require.Eventually(t, func() bool { return r.Current().IsPresent() }, waitFor, tick)
	assert.Equal(t, "ghost", r.Current().ID)
}

func TestReconciler_RecordErrorDegrades(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	records.Seed(seededRecord("u1", "a@example.com"))
	r := newTestReconciler(t, provider, records)
	require.NoError(t, r.Start(context.Background()))

	provider.Emit(rawUser("u1", "a@example.com"))
	require.Eventually(t, func() bool { return r.Current().IsPresent() }, waitFor, tick)

	records.EmitError("u1", errors.New("connection reset"))

	require.Eventually(t, func() bool { return r.State() == StateDegraded }, waitFor, tick)
	assert.Equal(t, identity.StateUnknown, r.Current().State)
}

func TestReconciler_SubscribeFailureDegrades(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	records.SubscribeErr = errors.New("listener unavailable")
	r := newTestReconciler(t, provider, records)
	require.NoError(t, r.Start(context.Background()))

	provider.Emit(rawUser("u1", "a@example.com"))

	require.Eventually(t, func() bool { return r.State() == StateDegraded }, waitFor, tick)
	assert.Equal(t, identity.StateUnknown, r.Current().State)
}

func TestReconciler_MismatchedRecordIDDegrades(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	records.Seed(seededRecord("u1", "a@example.com"))
	r := newTestReconciler(t, provider, records)
	require.NoError(t, r.Start(context.Background()))

	provider.Emit(rawUser("u1", "a@example.com"))
	require.Eventually(t, func() bool { return r.Current().IsPresent() }, waitFor, tick)

	// A record claiming a different principal never produces a Present view.
	stray := identity.UserRecord{ID: "someone-else", Email: "x@example.com"}
	records.EmitSnapshot("u1", ports.RecordSnapshot{Status: ports.RecordSuccess, Data: &stray})

	require.Eventually(t, func() bool { return r.State() == StateDegraded }, waitFor, tick)
	assert.Equal(t, identity.StateUnknown, r.Current().State)
}

func TestReconciler_SignUpCreatesRecord(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	user := rawUser("new-user", "new@example.com")
	provider.SignUpFunc = func(ctx context.Context, email, password string) (ports.SignInResult, error) {
		provider.Emit(user)
		return ports.SignInResult{User: *user, IsNewIdentity: true}, nil
	}
	r := newTestReconciler(t, provider, records)
	require.NoError(t, r.Start(context.Background()))

	id, err := r.SignUp(context.Background(), "new@example.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, "new-user", id)

	rec, err := records.GetByID(context.Background(), "new-user")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", rec.Email)

	require.Eventually(t, func() bool { return r.Current().IsPresent() }, waitFor, tick)
	assert.Equal(t, "new-user", r.Current().ID)
}

func TestReconciler_SignUpRecordWriteFailureSurfaces(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	records.CreateErr = errorsx.Internal("write lost")
	user := rawUser("new-user", "new@example.com")
	provider.SignUpFunc = func(ctx context.Context, email, password string) (ports.SignInResult, error) {
		provider.Emit(user)
		return ports.SignInResult{User: *user, IsNewIdentity: true}, nil
	}
	r := newTestReconciler(t, provider, records)
	require.NoError(t, r.Start(context.Background()))

	_, err := r.SignUp(context.Background(), "new@example.com", "hunter22")
	require.Error(t, err)

	// Identity exists but the record does not: the view must stay Unknown,
	// never a fabricated Present.
	require.Eventually(t, func() bool { return r.State() == StateDegraded }, waitFor, tick)
	assert.Equal(t, identity.StateUnknown, r.Current().State)
}

func TestReconciler_IdentifyFiredOncePerUser(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	records.Seed(seededRecord("u1", "a@example.com"))
	analytics := &identitymocks.CaptureAnalytics{}

	r := NewSessionReconciler(SessionReconcilerOptions{
		Identity:  provider,
		Records:   records,
		Analytics: analytics,
		Logger:    silentLogger(),
	})
	t.Cleanup(r.Close)
	require.NoError(t, r.Start(context.Background()))

	provider.Emit(rawUser("u1", "a@example.com"))
	require.Eventually(t, func() bool { return r.Current().IsPresent() }, waitFor, tick)

	// A record update re-emits a Present view for the same user; that must
	// not re-identify.
	require.NoError(t, records.UpdateByID(context.Background(), "u1", identity.RecordPatch{Name: strPtr("Ada")}))
	require.Eventually(t, func() bool { return r.Current().Name == "Ada" }, waitFor, tick)

	require.Eventually(t, func() bool { return len(analytics.Identified()) == 1 }, waitFor, tick)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"u1"}, analytics.Identified())
}

func TestReconciler_SignOutPropagatesThroughSubscription(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	records.Seed(seededRecord("u1", "a@example.com"))
	r := newTestReconciler(t, provider, records)
	require.NoError(t, r.Start(context.Background()))

	provider.Emit(rawUser("u1", "a@example.com"))
	require.Eventually(t, func() bool { return r.Current().IsPresent() }, waitFor, tick)

	require.NoError(t, r.SignOut(context.Background()))

	assert.Equal(t, identity.StateAbsent, r.Current().State)
	assert.Equal(t, StateSignedOut, r.State())
}

func TestReconciler_UpdateProfileRequiresSession(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	r := newTestReconciler(t, provider, identitymocks.NewMemoryRecordStore())
	require.NoError(t, r.Start(context.Background()))

	err := r.UpdateProfile(context.Background(), ProfileUpdate{Name: strPtr("Ada")})
	require.Error(t, err)
	assert.True(t, errorsx.IsPermission(err))
}

func TestReconciler_UpdateProfileWritesBothSources(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	records.Seed(seededRecord("u1", "a@example.com"))

	var gotFields ports.DisplayFields
	provider.UpdateDisplayFieldsFunc = func(ctx context.Context, fields ports.DisplayFields) error {
		gotFields = fields
		return nil
	}
	r := newTestReconciler(t, provider, records)
	require.NoError(t, r.Start(context.Background()))

	provider.Emit(rawUser("u1", "a@example.com"))
	require.Eventually(t, func() bool { return r.Current().IsPresent() }, waitFor, tick)

	name := "Ada Lovelace"
	require.NoError(t, r.UpdateProfile(context.Background(), ProfileUpdate{Name: &name}))

	require.NotNil(t, gotFields.Name)
	assert.Equal(t, name, *gotFields.Name)

	rec, err := records.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, name, rec.Name)

	require.Eventually(t, func() bool { return r.Current().Name == name }, waitFor, tick)
}

func TestReconciler_CanUseFeatureFollowsPlan(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	records.Seed(seededRecord("u1", "a@example.com"))
	r := newTestReconciler(t, provider, records)
	require.NoError(t, r.Start(context.Background()))

	assert.False(t, r.CanUseFeature(identity.FeatureStar))

	provider.Emit(rawUser("u1", "a@example.com"))
	require.Eventually(t, func() bool { return r.Current().IsPresent() }, waitFor, tick)
	assert.True(t, r.CanUseFeature(identity.FeatureStar))

	inactive := false
	require.NoError(t, records.UpdateByID(context.Background(), "u1", identity.RecordPatch{PlanIsActive: &inactive}))
	require.Eventually(t, func() bool { return !r.CanUseFeature(identity.FeatureStar) }, waitFor, tick)
}

func TestReconciler_CloseStopsEmissions(t *testing.T) {
	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()
	records.Seed(seededRecord("u1", "a@example.com"))
	r := newTestReconciler(t, provider, records)

	log := &viewLog{}
	unsub := r.SubscribeMerged(log.add)
	defer unsub()

	require.NoError(t, r.Start(context.Background()))
	provider.Emit(rawUser("u1", "a@example.com"))
	require.Eventually(t, func() bool { return log.last().IsPresent() }, waitFor, tick)

	r.Close()
	seen := len(log.states())

	provider.Emit(nil)
	provider.Emit(rawUser("u2", "b@example.com"))
	time.Sleep(100 * time.Millisecond)

	assert.Len(t, log.states(), seen)
}
