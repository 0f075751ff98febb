package identitymocks

// Package identitymocks contains simple hand-written test doubles for the
// session core's ports. These are lightweight and suitable for unit tests
// without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/activity"
	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider        = (*FakeIdentityProvider)(nil)
	_ ports.ExternalSignInCompleter = (*FakeIdentityProvider)(nil)
	_ ports.UserRecordStore         = (*MemoryRecordStore)(nil)
	_ ports.ActivityStore           = (*MemoryActivityStore)(nil)
	_ ports.SessionStore            = (*MemorySessionStore)(nil)
	_ ports.AnalyticsSink           = (*CaptureAnalytics)(nil)
)

// FakeIdentityProvider is a scripted identity provider for tests. Method
// behaviour can be overridden per test through the *Func fields; Emit drives
// session transitions directly.
type FakeIdentityProvider struct {
	mu      sync.Mutex
	current *identity.RawSessionUser
	subs    map[int]func(*identity.RawSessionUser)
	nextSub int

	SignUpFunc               func(ctx context.Context, email, password string) (ports.SignInResult, error)
	SignInFunc               func(ctx context.Context, email, password string) (ports.SignInResult, error)
	SignInWithProviderFunc   func(ctx context.Context, kind identity.ProviderKind) (ports.SignInResult, error)
	CompleteExternalFunc     func(ctx context.Context, profile ports.ExternalProfile) (ports.SignInResult, error)
	SignOutFunc              func(ctx context.Context) error
	SendPasswordResetFunc    func(ctx context.Context, email string) error
	ConfirmPasswordResetFunc func(ctx context.Context, code, newPassword string) error
	SendVerificationFunc     func(ctx context.Context) error
	VerifyEmailFunc          func(ctx context.Context, code string) error
	RecoverEmailFunc         func(ctx context.Context, code string) (string, error)
	UpdateEmailFunc          func(ctx context.Context, email string) error
	UpdatePasswordFunc       func(ctx context.Context, password string) error
	UpdateDisplayFieldsFunc  func(ctx context.Context, fields ports.DisplayFields) error
}

// NewFakeIdentityProvider creates a provider with no session.
func NewFakeIdentityProvider() *FakeIdentityProvider {
	return &FakeIdentityProvider{subs: make(map[int]func(*identity.RawSessionUser))}
}

// Emit replaces the current raw user and delivers it to all subscribers in
// registration order.
func (f *FakeIdentityProvider) Emit(user *identity.RawSessionUser) {
	f.mu.Lock()
	f.current = user
	fns := make([]func(*identity.RawSessionUser), 0, len(f.subs))
	for i := 0; i < f.nextSub; i++ {
		if fn, ok := f.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

func (f *FakeIdentityProvider) Subscribe(fn func(*identity.RawSessionUser)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	cur := f.current
	f.mu.Unlock()

	fn(cur)

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *FakeIdentityProvider) CurrentUser() *identity.RawSessionUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return nil
	}
	cp := *f.current
	return &cp
}

func (f *FakeIdentityProvider) SignUp(ctx context.Context, email, password string) (ports.SignInResult, error) {
	if f.SignUpFunc != nil {
		return f.SignUpFunc(ctx, email, password)
	}
	return ports.SignInResult{}, errors.New("SignUpFunc not set")
}

func (f *FakeIdentityProvider) SignIn(ctx context.Context, email, password string) (ports.SignInResult, error) {
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, email, password)
	}
	return ports.SignInResult{}, errors.New("SignInFunc not set")
}

func (f *FakeIdentityProvider) SignInWithProvider(ctx context.Context, kind identity.ProviderKind) (ports.SignInResult, error) {
	if f.SignInWithProviderFunc != nil {
		return f.SignInWithProviderFunc(ctx, kind)
	}
	return ports.SignInResult{}, errors.New("SignInWithProviderFunc not set")
}

func (f *FakeIdentityProvider) CompleteExternalSignIn(ctx context.Context, profile ports.ExternalProfile) (ports.SignInResult, error) {
	if f.CompleteExternalFunc != nil {
		return f.CompleteExternalFunc(ctx, profile)
	}
	return ports.SignInResult{}, errors.New("CompleteExternalFunc not set")
}

func (f *FakeIdentityProvider) SignOut(ctx context.Context) error {
	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx)
	}
	f.Emit(nil)
	return nil
}

func (f *FakeIdentityProvider) SendPasswordReset(ctx context.Context, email string) error {
	if f.SendPasswordResetFunc != nil {
		return f.SendPasswordResetFunc(ctx, email)
	}
	return nil
}

func (f *FakeIdentityProvider) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	if f.ConfirmPasswordResetFunc != nil {
		return f.ConfirmPasswordResetFunc(ctx, code, newPassword)
	}
	return nil
}

func (f *FakeIdentityProvider) SendEmailVerification(ctx context.Context) error {
	if f.SendVerificationFunc != nil {
		return f.SendVerificationFunc(ctx)
	}
	return nil
}

func (f *FakeIdentityProvider) VerifyEmail(ctx context.Context, code string) error {
	if f.VerifyEmailFunc != nil {
		return f.VerifyEmailFunc(ctx, code)
	}
	return nil
}

func (f *FakeIdentityProvider) RecoverEmail(ctx context.Context, code string) (string, error) {
	if f.RecoverEmailFunc != nil {
		return f.RecoverEmailFunc(ctx, code)
	}
	return "", nil
}

func (f *FakeIdentityProvider) UpdateEmail(ctx context.Context, email string) error {
	if f.UpdateEmailFunc != nil {
		return f.UpdateEmailFunc(ctx, email)
	}
	return nil
}

func (f *FakeIdentityProvider) UpdatePassword(ctx context.Context, password string) error {
	if f.UpdatePasswordFunc != nil {
		return f.UpdatePasswordFunc(ctx, password)
	}
	return nil
}

func (f *FakeIdentityProvider) UpdateDisplayFields(ctx context.Context, fields ports.DisplayFields) error {
	if f.UpdateDisplayFieldsFunc != nil {
		return f.UpdateDisplayFieldsFunc(ctx, fields)
	}
	return nil
}

// MemoryRecordStore is an in-memory user record store with working live
// subscriptions. Each subscription gets its own pump goroutine so snapshots
// arrive one at a time and never from inside SubscribeByID.
type MemoryRecordStore struct {
	mu      sync.Mutex
	records map[string]identity.UserRecord
	subs    map[string]map[int]*recordSub
	nextSub int

	// SubscribeErr makes SubscribeByID fail, for degraded-path tests.
	SubscribeErr error
	// CreateErr makes CreateByID fail.
	CreateErr error
	// UpdateErr makes UpdateByID fail.
	UpdateErr error
}

type recordSub struct {
	ch   chan ports.RecordSnapshot
	done chan struct{}
}

// NewMemoryRecordStore creates an empty in-memory record store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		records: make(map[string]identity.UserRecord),
		subs:    make(map[string]map[int]*recordSub),
	}
}

func (s *MemoryRecordStore) SubscribeByID(_ context.Context, id string, fn func(ports.RecordSnapshot)) (func(), error) {
	if s.SubscribeErr != nil {
		return nil, s.SubscribeErr
	}

	sub := &recordSub{
		ch:   make(chan ports.RecordSnapshot, 16),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	key := s.nextSub
	s.nextSub++
	if s.subs[id] == nil {
		s.subs[id] = make(map[int]*recordSub)
	}
	s.subs[id][key] = sub
	sub.ch <- s.snapshotLocked(id)
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case snap := <-sub.ch:
				fn(snap)
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[id], key)
			s.mu.Unlock()
			close(sub.done)
		})
	}
	return unsubscribe, nil
}

func (s *MemoryRecordStore) CreateByID(_ context.Context, id string, patch identity.RecordPatch) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}

	s.mu.Lock()
	if _, exists := s.records[id]; !exists {
		s.records[id] = patch.Apply(identity.UserRecord{ID: id})
	}
	s.broadcastLocked(id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryRecordStore) UpdateByID(_ context.Context, id string, patch identity.RecordPatch) error {
	if s.UpdateErr != nil {
		return s.UpdateErr
	}

	s.mu.Lock()
	rec, exists := s.records[id]
	if !exists {
		s.mu.Unlock()
		return errorsx.NotFoundf("user record %s not found", id)
	}
	s.records[id] = patch.Apply(rec)
	s.broadcastLocked(id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryRecordStore) GetByID(_ context.Context, id string) (identity.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, exists := s.records[id]
	if !exists {
		return identity.UserRecord{}, errorsx.NotFoundf("user record %s not found", id)
	}
	return rec, nil
}

// EmitError pushes an error snapshot to every subscriber of id.
func (s *MemoryRecordStore) EmitError(id string, err error) {
	s.EmitSnapshot(id, ports.RecordSnapshot{Status: ports.RecordError, Err: err})
}

// EmitSnapshot pushes an arbitrary snapshot to every subscriber of id,
// bypassing the stored records.
func (s *MemoryRecordStore) EmitSnapshot(id string, snap ports.RecordSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs[id] {
		sub.ch <- snap
	}
}

// Seed stores a record directly without notifying subscribers.
func (s *MemoryRecordStore) Seed(rec identity.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

func (s *MemoryRecordStore) snapshotLocked(id string) ports.RecordSnapshot {
	if rec, exists := s.records[id]; exists {
		cp := rec
		return ports.RecordSnapshot{Status: ports.RecordSuccess, Data: &cp}
	}
	return ports.RecordSnapshot{Status: ports.RecordSuccess}
}

func (s *MemoryRecordStore) broadcastLocked(id string) {
	snap := s.snapshotLocked(id)
	for _, sub := range s.subs[id] {
		sub.ch <- snap
	}
}

// MemoryActivityStore is an in-memory activity store for unit tests.
type MemoryActivityStore struct {
	mu     sync.Mutex
	items  map[string]activity.Activity
	nextID int
}

// NewMemoryActivityStore creates an empty in-memory activity store.
func NewMemoryActivityStore() *MemoryActivityStore {
	return &MemoryActivityStore{items: make(map[string]activity.Activity)}
}

func (s *MemoryActivityStore) Create(_ context.Context, a activity.Activity) (activity.Activity, error) {
	if err := a.Validate(); err != nil {
		return activity.Activity{}, errorsx.Wrap(err, errorsx.ErrCodeValidation, "invalid activity")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		s.nextID++
		a.ID = fmt.Sprintf("act-%d", s.nextID)
	}
	s.items[a.ID] = a
	return a, nil
}

func (s *MemoryActivityStore) GetByID(_ context.Context, id string) (activity.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return activity.Activity{}, errorsx.NotFoundf("activity %s not found", id)
	}
	return a, nil
}

func (s *MemoryActivityStore) ListByOwner(_ context.Context, owner string) ([]activity.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []activity.Activity
	for _, a := range s.items {
		if a.Owner == owner {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemoryActivityStore) Update(_ context.Context, id string, patch activity.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return errorsx.NotFoundf("activity %s not found", id)
	}
	if patch.Date != nil {
		a.Date = *patch.Date
	}
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.Type != nil {
		a.Type = *patch.Type
	}
	if patch.DurationMinutes != nil {
		a.DurationMinutes = *patch.DurationMinutes
	}
	if patch.Featured != nil {
		a.Featured = *patch.Featured
	}
	s.items[id] = a
	return nil
}

func (s *MemoryActivityStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return errorsx.NotFoundf("activity %s not found", id)
	}
	delete(s.items, id)
	return nil
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]identity.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]identity.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess identity.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (identity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return identity.Session{}, errorsx.NotFoundf("session %s not found", id)
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// CaptureAnalytics records identify calls for assertions.
type CaptureAnalytics struct {
	mu      sync.Mutex
	userIDs []string

	// Err, when set, is returned from every Identify call.
	Err error
}

func (c *CaptureAnalytics) Identify(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.userIDs = append(c.userIDs, userID)
	return nil
}

// Identified returns the user ids identified so far.
func (c *CaptureAnalytics) Identified() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.userIDs...)
}
