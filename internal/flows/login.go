package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/jwtAuth/account"
)

type LoginMetrics struct {
	LoginSuccess int
	LoginFailure int
}

type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
}

type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	Unconfirmed        error
}

type LoginDeps struct {
	RequireConfirmation bool

	LoadByEmail   func(context.Context, string) (*account.Account, error)
	VerifySecret  func(secret, hash string) (bool, error)
	MapStoreError func(error) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunAuthenticate resolves email and checks secret against the stored hash.
// Unknown accounts, passwordless accounts and wrong secrets all fail with
// Errors.InvalidCredentials.
func RunAuthenticate(ctx context.Context, email, secret string, deps LoginDeps) (*account.Account, error) {
	normalizeLoginDeps(&deps)

	if deps.LoadByEmail == nil || deps.VerifySecret == nil {
		return nil, deps.Errors.EngineNotReady
	}

	fail := func(accountID, reason string, err error) (*account.Account, error) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, accountID, err, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return nil, err
	}

	email = account.NormalizeEmail(email)
	if email == "" || secret == "" {
		return fail("", "empty_input", deps.Errors.InvalidCredentials)
	}

	acc, err := deps.LoadByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return fail("", "unknown_account", deps.Errors.InvalidCredentials)
		}
		return nil, deps.MapStoreError(err)
	}
	if !acc.HasPassword() {
		return fail(acc.ID, "no_password", deps.Errors.InvalidCredentials)
	}

	ok, err := deps.VerifySecret(secret, acc.PasswordHash)
	if err != nil || !ok {
		return fail(acc.ID, "password_mismatch", deps.Errors.InvalidCredentials)
	}

	if deps.RequireConfirmation && !acc.IsConfirmed() {
		return fail(acc.ID, account.CodeUnconfirmed, deps.Errors.Unconfirmed)
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, acc.ID, nil, nil)
	return acc, nil
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(err error) error { return err }
	}
}
