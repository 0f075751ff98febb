package analytics

// Package analytics links the analytics session to the signed-in user over
// a generic identify webhook. Delivery is fire-and-forget from the caller's
// point of view: the session core logs failures and never blocks on them.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
)

// Config captures the subset of webhook behaviour the identify call needs.
type Config struct {
	WebhookURL string
	Source     string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// Client posts identify events to an analytics webhook.
type Client struct {
	webhookURL string
	source     string
	retryLimit int
	client     *http.Client
	now        func() time.Time
}

var _ ports.AnalyticsSink = (*Client)(nil)

// NewClient builds a webhook client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("analytics webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	retries := cfg.RetryLimit
	if retries < 0 {
		retries = 0
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	source := strings.TrimSpace(cfg.Source)
	if source == "" {
		source = "exercise-tracker"
	}

	return &Client{
		webhookURL: webhookURL,
		source:     source,
		retryLimit: retries,
		client:     hc,
		now:        time.Now,
	}, nil
}

// Identify posts the user id with linear-backoff retries.
func (c *Client) Identify(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}

	body, err := json.Marshal(map[string]any{
		"type":      "identify",
		"userId":    userID,
		"source":    c.source,
		"timestamp": c.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode identify payload: %w", err)
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		err = c.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < attempts-1 {
			// Simple linear backoff to avoid thundering retries.
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return lastErr
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create identify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("identify request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleErrorResponse(resp)
	}

	return drainSuccess(resp)
}

func drainSuccess(resp *http.Response) error {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return errors.Join(
				fmt.Errorf("drain identify response body: %w", err),
				fmt.Errorf("close response body: %w", closeErr),
			)
		}
		return fmt.Errorf("drain identify response body: %w", err)
	}
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}
	return nil
}

func handleErrorResponse(resp *http.Response) error {
	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return errors.Join(
				fmt.Errorf("read identify error response: %w", readErr),
				fmt.Errorf("close response body: %w", closeErr),
			)
		}
		return fmt.Errorf("read identify error response: %w", readErr)
	}
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return fmt.Errorf("analytics webhook %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
}

// Noop drops identify events. Used when no webhook is configured.
type Noop struct{}

var _ ports.AnalyticsSink = Noop{}

func (Noop) Identify(context.Context, string) error { return nil }
