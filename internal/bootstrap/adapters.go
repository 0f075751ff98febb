package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loveliiivelaugh/exercise-tracker/config"
	"github.com/loveliiivelaugh/exercise-tracker/internal/adapters/analytics"
	"github.com/loveliiivelaugh/exercise-tracker/internal/adapters/devidentity"
	"github.com/loveliiivelaugh/exercise-tracker/internal/adapters/mail"
	"github.com/loveliiivelaugh/exercise-tracker/internal/adapters/oidcidentity"
	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
	"github.com/loveliiivelaugh/exercise-tracker/internal/observability/statsd"
	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
)

// BuildMailSender returns the Mailgun sender when mail is configured,
// otherwise the log-only sender so action codes still surface in dev.
//
//nolint:ireturn // callers depend on the MailSender port, not a concrete sender.
func BuildMailSender(cfg *config.AppConfig, logger *slog.Logger) (ports.MailSender, error) {
	if !cfg.Mail.IsEnabled() {
		return &mail.Noop{Logger: logger}, nil
	}

	sender, err := mail.NewMailgun(mail.MailgunConfig{
		Domain:  cfg.Mail.Domain,
		APIKey:  cfg.Mail.APIKey,
		Sender:  cfg.Mail.Sender,
		BaseURL: cfg.HTTP.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("init mailgun: %w", err)
	}

	logger.Info("mail delivery enabled", "domain", cfg.Mail.Domain)
	return sender, nil
}

// BuildAnalyticsSink returns the identify webhook client, or a sink that
// drops events when analytics is disabled.
//
//nolint:ireturn // callers depend on the AnalyticsSink port, not a concrete sink.
func BuildAnalyticsSink(cfg *config.AppConfig, logger *slog.Logger) (ports.AnalyticsSink, error) {
	if !cfg.Analytics.IsEnabled() {
		return analytics.Noop{}, nil
	}

	client, err := analytics.NewClient(analytics.Config{
		WebhookURL: cfg.Analytics.WebhookURL,
		Source:     cfg.Analytics.Source,
		Timeout:    cfg.Analytics.Timeout,
		RetryLimit: cfg.Analytics.RetryLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("init analytics client: %w", err)
	}

	logger.Info("analytics identify webhook enabled", "source", cfg.Analytics.Source)
	return client, nil
}

// BuildMetricsSink returns a statsd client when metrics is enabled, nil
// otherwise. A nil sink is accepted everywhere metrics are emitted.
func BuildMetricsSink(cfg *config.AppConfig, logger *slog.Logger) *statsd.Client {
	if !cfg.Observability.Metrics.IsEnabled() {
		return nil
	}

	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  "exercisetracker",
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// BuildIdentityProvider constructs the account core. The dev provider holds
// identities in memory; it also implements the external sign-in completion
// hook that the OIDC broker callback feeds.
func BuildIdentityProvider(cfg *config.AppConfig, sender ports.MailSender, logger *slog.Logger) *devidentity.Provider {
	return devidentity.NewProvider(devidentity.Config{
		RecentLoginWindow: cfg.Auth.Dev.RecentLoginWindow,
		Mail:              sender,
		Logger:            logger,
	})
}

// BuildExternalBroker constructs the OIDC broker for external sign-in when
// AUTH_MODE=oidc and at least one provider has credentials. Returns nil when
// the external path is disabled; the HTTP layer rejects provider routes then.
func BuildExternalBroker(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (ports.ExternalSignInBroker, error) {
	if cfg.Auth.Mode != config.AuthModeOIDC {
		return nil, nil
	}

	clients := make(map[identity.ProviderKind]oidcidentity.ClientConfig)
	for kind, cc := range map[identity.ProviderKind]config.OIDCClientConfig{
		identity.ProviderGoogle:   cfg.Auth.Google,
		identity.ProviderGitHub:   cfg.Auth.GitHub,
		identity.ProviderFacebook: cfg.Auth.Facebook,
		identity.ProviderTwitter:  cfg.Auth.Twitter,
	} {
		if !cc.IsConfigured() {
			continue
		}
		clients[kind] = oidcidentity.ClientConfig{
			IssuerURL:    cc.IssuerURL,
			ClientID:     cc.ClientID,
			ClientSecret: cc.ClientSecret,
			Scope:        cc.Scope,
		}
	}

	if len(clients) == 0 {
		logger.Warn("auth mode is oidc but no provider has credentials; external sign-in disabled")
		return nil, nil
	}

	broker, err := oidcidentity.NewBroker(ctx, oidcidentity.BrokerConfig{Clients: clients})
	if err != nil {
		return nil, fmt.Errorf("init oidc broker: %w", err)
	}

	kinds := make([]string, 0, len(clients))
	for kind := range clients {
		kinds = append(kinds, string(kind))
	}
	logger.Info("external sign-in enabled", "providers", kinds)
	return broker, nil
}
