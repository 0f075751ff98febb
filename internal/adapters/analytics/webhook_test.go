package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresWebhookURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook url is required")
}

func TestClient_IdentifyPostsPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(Config{WebhookURL: srv.URL})
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, c.Identify(context.Background(), "user-1"))
	assert.Equal(t, "identify", got["type"])
	assert.Equal(t, "user-1", got["userId"])
	assert.Equal(t, "exercise-tracker", got["source"])
	assert.Equal(t, "2026-03-01T09:00:00Z", got["timestamp"])
}

func TestClient_IdentifyRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(Config{WebhookURL: srv.URL, RetryLimit: 2})
	require.NoError(t, err)

	require.NoError(t, c.Identify(context.Background(), "user-1"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_IdentifyExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(Config{WebhookURL: srv.URL, RetryLimit: 1})
	require.NoError(t, err)

	err = c.Identify(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_IdentifyRequiresUserID(t *testing.T) {
	c, err := NewClient(Config{WebhookURL: "http://localhost:0/hook"})
	require.NoError(t, err)

	err = c.Identify(context.Background(), "  ")
	require.Error(t, err)
}

func TestNoop_Identify(t *testing.T) {
	assert.NoError(t, Noop{}.Identify(context.Background(), "user-1"))
}
