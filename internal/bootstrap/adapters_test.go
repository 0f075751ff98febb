package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loveliiivelaugh/exercise-tracker/config"
	"github.com/loveliiivelaugh/exercise-tracker/internal/adapters/mail"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildMailSenderFallsBackToNoop(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Sanitize()

	sender, err := BuildMailSender(cfg, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &mail.Noop{}, sender)
}

func TestBuildMailSenderRequiresCompleteConfig(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Mail = config.MailConfig{Enabled: true, Domain: "mg.example.com"}
	cfg.Sanitize()

	sender, err := BuildMailSender(cfg, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &mail.Noop{}, sender, "incomplete mail config must not build a live sender")
}

func TestBuildMetricsSinkDisabled(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Sanitize()

	assert.Nil(t, BuildMetricsSink(cfg, testLogger()))
}

func TestBuildExternalBrokerDisabledInDevMode(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Auth.Mode = config.AuthModeDev
	cfg.Auth.Google = config.OIDCClientConfig{
		IssuerURL: "https://accounts.google.com",
		ClientID:  "client-1",
	}

	broker, err := BuildExternalBroker(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	assert.Nil(t, broker)
}

func TestBuildExternalBrokerNoCredentials(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Auth.Mode = config.AuthModeOIDC

	broker, err := BuildExternalBroker(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	assert.Nil(t, broker, "oidc mode without credentials disables external sign-in")
}
