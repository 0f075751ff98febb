package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
)

type stubSessionReader struct {
	user identity.MergedUser
}

func (s stubSessionReader) Current() identity.MergedUser { return s.user }

func presentUser(id string) identity.MergedUser {
	return identity.MergedUser{State: identity.StatePresent, ID: id, Email: id + "@example.com"}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireUser_PresentInjectsUser(t *testing.T) {
	guard := RequireUser(stubSessionReader{user: presentUser("u1")})

	var gotID string
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		require.True(t, ok)
		gotID = user.ID
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/activities", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", gotID)
}

func TestRequireUser_UnknownRespondsRetryable(t *testing.T) {
	guard := RequireUser(stubSessionReader{user: identity.Unknown()})
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run while session is undetermined")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	handler.ServeHTTP(rec, req)

	// Loading is never a redirect: the client retries in place.
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRequireUser_AbsentRedirectsBrowserOnce(t *testing.T) {
	guard := RequireUser(stubSessionReader{user: identity.Absent()})
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run while signed out")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/signin", rec.Header().Get("Location"))
}

func TestRequireUser_AbsentAPIGets401(t *testing.T) {
	guard := RequireUser(stubSessionReader{user: identity.Absent()})
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run while signed out")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/activities", nil)
	req.Header.Set("Accept", "application/json")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestRecover_ConvertsPanicTo500(t *testing.T) {
	handler := Recover(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogging_PreservesStatus(t *testing.T) {
	handler := Logging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}
