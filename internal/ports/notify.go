package ports

import "context"

// MailSender delivers transactional mail for the identity flows.
type MailSender interface {
	// SendVerification mails an email-verification link carrying code.
	SendVerification(ctx context.Context, email, code string) error
	// SendPasswordReset mails a password-reset link carrying code.
	SendPasswordReset(ctx context.Context, email, code string) error
}

// AnalyticsSink connects the analytics session to a user id. Calls are
// fire-and-forget: the reconciler logs failures and never blocks on them.
type AnalyticsSink interface {
	Identify(ctx context.Context, userID string) error
}
