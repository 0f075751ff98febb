package devidentity

import (
	"context"

	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
	"golang.org/x/crypto/bcrypt"
)

// SendPasswordReset issues a reset code and mails it to the account address.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	p.mu.Lock()
	acc := p.byEmail[email]
	if acc == nil {
		p.mu.Unlock()
		return errorsx.NotFoundf("no account for %s", email)
	}
	code, err := p.issueCodeLocked(actionReset, acc.id, "")
	p.mu.Unlock()
	if err != nil {
		return err
	}

	return p.sendCode(ctx, actionReset, email, code)
}

// ConfirmPasswordReset redeems a reset code and sets the new password.
func (p *Provider) ConfirmPasswordReset(_ context.Context, code, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ErrCodeInternal, "hash password")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ac, ok := p.codes[code]
	if !ok || ac.kind != actionReset {
		return errorsx.Credential("invalid or expired reset code")
	}
	acc := p.byID[ac.accountID]
	if acc == nil {
		return errorsx.Credential("invalid or expired reset code")
	}
	delete(p.codes, code)

	acc.passwordHash = hash
	acc.providers = appendLink(acc.providers, identity.ProviderLink{Kind: identity.ProviderPassword})
	return nil
}

// SendEmailVerification issues a verification code for the current session's
// address and mails it.
func (p *Provider) SendEmailVerification(ctx context.Context) error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return errorsx.Permission("no active session")
	}
	acc := p.byID[p.current.ID]
	if acc == nil {
		p.mu.Unlock()
		return errorsx.Permission("no active session")
	}
	email := acc.email
	code, err := p.issueCodeLocked(actionVerify, acc.id, "")
	p.mu.Unlock()
	if err != nil {
		return err
	}

	return p.sendCode(ctx, actionVerify, email, code)
}

// VerifyEmail redeems a verification code and marks the address verified.
// The provider does not emit a session change for this; callers refresh
// through CurrentUser.
func (p *Provider) VerifyEmail(_ context.Context, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ac, ok := p.codes[code]
	if !ok || ac.kind != actionVerify {
		return errorsx.Credential("invalid or expired verification code")
	}
	acc := p.byID[ac.accountID]
	if acc == nil {
		return errorsx.Credential("invalid or expired verification code")
	}
	delete(p.codes, code)

	acc.emailVerified = true
	p.refreshCurrentLocked(acc)
	return nil
}

// RecoverEmail redeems a recovery code, reverting the account to the address
// it had before the last email change, and returns the restored address.
func (p *Provider) RecoverEmail(_ context.Context, code string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ac, ok := p.codes[code]
	if !ok || ac.kind != actionRecover {
		return "", errorsx.Credential("invalid or expired recovery code")
	}
	acc := p.byID[ac.accountID]
	if acc == nil {
		return "", errorsx.Credential("invalid or expired recovery code")
	}
	delete(p.codes, code)

	if other := p.byEmail[ac.email]; other != nil && other != acc {
		return "", errorsx.Conflictf("email %s is already in use", ac.email)
	}

	delete(p.byEmail, acc.email)
	acc.email = ac.email
	acc.emailVerified = true
	p.byEmail[acc.email] = acc
	p.refreshCurrentLocked(acc)
	return acc.email, nil
}

// UpdateEmail changes the current account's address. It requires a recent
// sign-in and mails a recovery code to the previous address. No session
// change is emitted; callers refresh through CurrentUser.
func (p *Provider) UpdateEmail(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	p.mu.Lock()
	acc, err := p.requireRecentSessionLocked()
	if err != nil {
		p.mu.Unlock()
		return err
	}
	if other := p.byEmail[email]; other != nil && other != acc {
		p.mu.Unlock()
		return errorsx.Conflictf("email %s is already in use", email)
	}
	if acc.email == email {
		p.mu.Unlock()
		return nil
	}

	previous := acc.email
	delete(p.byEmail, previous)
	acc.email = email
	acc.emailVerified = false
	p.byEmail[email] = acc
	p.refreshCurrentLocked(acc)

	code, codeErr := p.issueCodeLocked(actionRecover, acc.id, previous)
	p.mu.Unlock()

	// Recovery mail is best-effort; the email change itself succeeded.
	if codeErr == nil {
		if sendErr := p.sendCode(ctx, actionRecover, previous, code); sendErr != nil {
			p.logger.Debug("send recovery code failed", "error", sendErr, "email", previous)
		}
	}
	return nil
}

// UpdatePassword changes the current account's password. Requires a recent
// sign-in.
func (p *Provider) UpdatePassword(_ context.Context, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ErrCodeInternal, "hash password")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	acc, reqErr := p.requireRecentSessionLocked()
	if reqErr != nil {
		return reqErr
	}
	acc.passwordHash = hash
	acc.providers = appendLink(acc.providers, identity.ProviderLink{Kind: identity.ProviderPassword})
	return nil
}

// UpdateDisplayFields changes the current account's display name and/or
// picture. No session change is emitted; callers refresh through CurrentUser.
func (p *Provider) UpdateDisplayFields(_ context.Context, fields ports.DisplayFields) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	acc, err := p.requireSessionLocked()
	if err != nil {
		return err
	}
	if fields.Name != nil {
		acc.displayName = *fields.Name
	}
	if fields.Picture != nil {
		acc.photoURL = *fields.Picture
	}
	p.refreshCurrentLocked(acc)
	return nil
}

// requireSessionLocked returns the current session's account.
func (p *Provider) requireSessionLocked() (*account, error) {
	if p.current == nil {
		return nil, errorsx.Permission("no active session")
	}
	acc := p.byID[p.current.ID]
	if acc == nil {
		return nil, errorsx.Permission("no active session")
	}
	return acc, nil
}

// requireRecentSessionLocked additionally enforces the recent-login window
// for privileged updates.
func (p *Provider) requireRecentSessionLocked() (*account, error) {
	acc, err := p.requireSessionLocked()
	if err != nil {
		return nil, err
	}
	if p.clock().Sub(p.lastSignIn) > p.cfg.RecentLoginWindow {
		return nil, errorsx.Permission("this operation requires a recent sign-in")
	}
	return acc, nil
}

// refreshCurrentLocked updates the cached session snapshot when acc is the
// signed-in account.
func (p *Provider) refreshCurrentLocked(acc *account) {
	if p.current != nil && p.current.ID == acc.id {
		p.current = rawFromAccount(acc)
	}
}

func (p *Provider) issueCodeLocked(kind actionKind, accountID, email string) (string, error) {
	code, err := randomCode(24)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ErrCodeInternal, "issue action code")
	}
	p.codes[code] = actionCode{kind: kind, accountID: accountID, email: email}
	return code, nil
}

func (p *Provider) sendCode(ctx context.Context, kind actionKind, email, code string) error {
	if p.cfg.Mail == nil {
		p.logger.Info("action code issued", "kind", string(kind), "email", email, "code", code)
		return nil
	}
	var err error
	switch kind {
	case actionReset:
		err = p.cfg.Mail.SendPasswordReset(ctx, email, code)
	default:
		err = p.cfg.Mail.SendVerification(ctx, email, code)
	}
	if err != nil {
		return errorsx.Wrap(err, errorsx.ErrCodeNetwork, "send action code")
	}
	return nil
}
