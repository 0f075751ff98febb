package config

import (
	"strings"
	"time"
)

// MailConfig contains Mailgun delivery configuration. When disabled (or
// missing credentials) action-code mail falls back to the log-only sender.
type MailConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"false"`
	Domain  string `env:"DOMAIN"  envDefault:""`
	APIKey  string `env:"API_KEY" envDefault:""`
	Sender  string `env:"SENDER"  envDefault:""`
}

// Sanitize normalises mail configuration values.
func (c *MailConfig) Sanitize() {
	c.Domain = strings.TrimSpace(c.Domain)
	c.Sender = strings.TrimSpace(c.Sender)
	if c.Domain == "" || c.APIKey == "" || c.Sender == "" {
		c.Enabled = false
	}
}

// IsEnabled returns true when mail delivery is active after sanitisation.
func (c *MailConfig) IsEnabled() bool {
	return c.Enabled && c.Domain != "" && c.APIKey != "" && c.Sender != ""
}

// AnalyticsConfig controls the identify webhook.
type AnalyticsConfig struct {
	Enabled    bool          `env:"ENABLED"     envDefault:"false"`
	WebhookURL string        `env:"WEBHOOK_URL" envDefault:""`
	Source     string        `env:"SOURCE"      envDefault:"exercise-tracker"`
	Timeout    time.Duration `env:"TIMEOUT"     envDefault:"5s"`
	RetryLimit int           `env:"RETRY_LIMIT" envDefault:"3"`
}

// Sanitize normalises analytics configuration values.
func (c *AnalyticsConfig) Sanitize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	if c.WebhookURL == "" {
		c.Enabled = false
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
}

// IsEnabled returns true when identify events are forwarded after sanitisation.
func (c *AnalyticsConfig) IsEnabled() bool {
	return c.Enabled && c.WebhookURL != ""
}
