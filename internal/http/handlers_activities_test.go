package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/activity"
	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
)

// fakeActivities is a scripted ActivityServiceInterface.
type fakeActivities struct {
	logged  *activity.Activity
	listOut []activity.Activity
	getOut  activity.Activity
	getErr  error

	updatedID    string
	updatedPatch activity.Patch
	featured     *bool
	deletedID    string
	err          error
}

func (f *fakeActivities) Log(_ context.Context, a activity.Activity) (activity.Activity, error) {
	if f.err != nil {
		return activity.Activity{}, f.err
	}
	a.ID = "act-1"
	a.Owner = "u1"
	f.logged = &a
	return a, nil
}

func (f *fakeActivities) List(context.Context) ([]activity.Activity, error) {
	return f.listOut, f.err
}

func (f *fakeActivities) Get(context.Context, string) (activity.Activity, error) {
	return f.getOut, f.getErr
}

func (f *fakeActivities) Update(_ context.Context, id string, patch activity.Patch) error {
	f.updatedID = id
	f.updatedPatch = patch
	return f.err
}

func (f *fakeActivities) SetFeatured(_ context.Context, id string, featured bool) error {
	f.updatedID = id
	f.featured = &featured
	return f.err
}

func (f *fakeActivities) Delete(_ context.Context, id string) error {
	f.deletedID = id
	return f.err
}

func TestActivityHandlers_Create(t *testing.T) {
	svc := &fakeActivities{}
	h := &ActivityHandlers{Svc: svc}

	rec := postJSON(t, h.Create, "/api/activities",
		`{"date":"2026-03-14","name":"Morning run","type":"Running","duration_minutes":30}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.logged)
	assert.Equal(t, "Morning run", svc.logged.Name)
	assert.Equal(t, activity.TypeRunning, svc.logged.Type)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), svc.logged.Date)

	var out activity.Activity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "act-1", out.ID)
}

func TestActivityHandlers_CreateRejectsBadDate(t *testing.T) {
	h := &ActivityHandlers{Svc: &fakeActivities{}}

	rec := postJSON(t, h.Create, "/api/activities",
		`{"date":"14/03/2026","name":"Morning run","type":"Running"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation")
}

func TestActivityHandlers_CreateStarWithoutPlan(t *testing.T) {
	svc := &fakeActivities{err: errorsx.Permission("starring activities requires an active pro or business plan")}
	h := &ActivityHandlers{Svc: svc}

	rec := postJSON(t, h.Create, "/api/activities",
		`{"date":"2026-03-14","name":"Morning run","type":"Running","featured":true}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestActivityHandlers_ListReturnsEmptyArray(t *testing.T) {
	h := &ActivityHandlers{Svc: &fakeActivities{}}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/activities", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	// nil slices must serialize as [] rather than null.
	assert.Contains(t, rec.Body.String(), `"activities":[]`)
}

func TestActivityHandlers_GetNotFound(t *testing.T) {
	h := &ActivityHandlers{Svc: &fakeActivities{getErr: errorsx.NotFoundf("activity %s not found", "nope")}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/activities/nope", nil)
	req.SetPathValue("id", "nope")
	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActivityHandlers_UpdateParsesPatch(t *testing.T) {
	svc := &fakeActivities{}
	h := &ActivityHandlers{Svc: svc}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/activities/act-1",
		strings.NewReader(`{"name":"Evening run","type":"Walking","duration_minutes":45}`))
	req.SetPathValue("id", "act-1")
	h.Update(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "act-1", svc.updatedID)
	require.NotNil(t, svc.updatedPatch.Name)
	assert.Equal(t, "Evening run", *svc.updatedPatch.Name)
	require.NotNil(t, svc.updatedPatch.Type)
	assert.Equal(t, activity.TypeWalking, *svc.updatedPatch.Type)
	require.NotNil(t, svc.updatedPatch.DurationMinutes)
	assert.Equal(t, 45, *svc.updatedPatch.DurationMinutes)
	assert.Nil(t, svc.updatedPatch.Date)
}

func TestActivityHandlers_SetFeatured(t *testing.T) {
	svc := &fakeActivities{}
	h := &ActivityHandlers{Svc: svc}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/activities/act-1/featured",
		strings.NewReader(`{"featured":true}`))
	req.SetPathValue("id", "act-1")
	h.SetFeatured(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.featured)
	assert.True(t, *svc.featured)
}

func TestActivityHandlers_Delete(t *testing.T) {
	svc := &fakeActivities{}
	h := &ActivityHandlers{Svc: svc}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/activities/act-1", nil)
	req.SetPathValue("id", "act-1")
	h.Delete(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "act-1", svc.deletedID)
}
