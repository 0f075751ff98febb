package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
	"github.com/loveliiivelaugh/exercise-tracker/internal/mocks/identitymocks"
	"github.com/loveliiivelaugh/exercise-tracker/internal/service"
)

func newTestRouter(t *testing.T) (http.Handler, *identitymocks.FakeIdentityProvider, *identitymocks.MemoryRecordStore) {
	t.Helper()

	provider := identitymocks.NewFakeIdentityProvider()
	records := identitymocks.NewMemoryRecordStore()

	reconciler := service.NewSessionReconciler(service.SessionReconcilerOptions{
		Identity: provider,
		Records:  records,
		Logger:   testLogger(),
	})
	t.Cleanup(reconciler.Close)
	require.NoError(t, reconciler.Start(context.Background()))

	activities := service.NewActivityService(service.ActivityServiceOptions{
		Store:   identitymocks.NewMemoryActivityStore(),
		Session: reconciler,
	})

	router := NewRouter(RouterServices{
		Session:    reconciler,
		Activities: activities,
		Sessions:   identitymocks.NewMemorySessionStore(),
		Logger:     testLogger(),
	})
	return router, provider, records
}

func TestRouter_Healthz(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), "exercise-tracker")

	head := httptest.NewRecorder()
	router.ServeHTTP(head, httptest.NewRequest(http.MethodHead, "/healthz", nil))
	assert.Equal(t, http.StatusOK, head.Code)
	assert.Empty(t, head.Body.String())
}

func TestRouter_GuardedRouteSignedOut(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Accept", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_GuardedRouteEndToEnd(t *testing.T) {
	router, provider, records := newTestRouter(t)

	records.Seed(identity.UserRecord{ID: "u1", Email: "a@b.com", PlanID: "pro", PlanIsActive: true})
	provider.Emit(&identity.RawSessionUser{ID: "u1", Email: "a@b.com", EmailVerified: true})

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Accept", "application/json")
		router.ServeHTTP(rec, req)
		return rec.Code == http.StatusOK
	}, 3*time.Second, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Accept", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"a@b.com"`)

	// Provider routes are disabled without a broker.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/auth/provider/google", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
