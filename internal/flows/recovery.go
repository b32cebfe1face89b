package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/jwtAuth/account"
	"github.com/MrEthical07/jwtAuth/session"
)

// RecoveryInProgress is true iff a recovery token and its timestamp are both
// present and the token is younger than window.
func RecoveryInProgress(acc *account.Account, now time.Time, window time.Duration) bool {
	return acc.RecoveryToken != "" &&
		acc.RecoverySentAt != nil &&
		now.Before(acc.RecoverySentAt.Add(window))
}

type RecoveryMetrics struct {
	RecoverySent        int
	RecoveryRejected    int
	RecoveryResetOK     int
	RecoveryResetFailed int
	PersistenceFailure  int
	NotificationFailure int
}

type RecoveryEvents struct {
	RecoveryRequest string
	RecoveryReset   string
}

type RecoveryErrors struct {
	EngineNotReady error
}

type RecoveryDeps struct {
	Window                time.Duration
	RequireConfirmation   bool
	RevokeSessionsOnReset bool
	SendCredentialChanged bool

	Now      func() time.Time
	NewToken func() string

	HashSecret func(string) (string, error)

	Save           func(context.Context, *account.Account) error
	LoadByToken    func(context.Context, string) (*account.Account, error)
	MapStoreError  func(error) error
	MapNotifyError func(error) error

	NotifyRecovery          func(context.Context, *account.Account) error
	NotifyCredentialChanged func(context.Context, *account.Account) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics RecoveryMetrics
	Events  RecoveryEvents
	Errors  RecoveryErrors
}

// RunSendRecovery issues a recovery token. Unconfirmed accounts are rejected
// with email unconfirmed when confirmation is required; nothing is written or
// sent in that case.
func RunSendRecovery(ctx context.Context, acc *account.Account, deps RecoveryDeps) (account.Errors, error) {
	normalizeRecoveryDeps(&deps)

	if deps.Save == nil || deps.NewToken == nil || deps.NotifyRecovery == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if deps.RequireConfirmation && !acc.IsConfirmed() {
		deps.MetricInc(deps.Metrics.RecoveryRejected)
		deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, acc.ID, nil, func() map[string]string {
			return map[string]string{
				"reason": account.CodeUnconfirmed,
			}
		})
		return account.Errors{account.RecoveryUnconfirmed}, nil
	}

	work := acc.Clone()
	work.RecoveryToken = deps.NewToken()
	work.RecoverySentAt = account.TimePtr(deps.Now())

	if err := deps.Save(ctx, work); err != nil {
		mapped := deps.MapStoreError(err)
		deps.MetricInc(deps.Metrics.PersistenceFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, acc.ID, mapped, nil)
		return nil, mapped
	}
	*acc = *work

	if err := deps.NotifyRecovery(ctx, work.Clone()); err != nil {
		mapped := deps.MapNotifyError(err)
		deps.MetricInc(deps.Metrics.NotificationFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, acc.ID, mapped, func() map[string]string {
			return map[string]string{
				"reason": "notify_failed",
			}
		})
		return nil, mapped
	}

	deps.MetricInc(deps.Metrics.RecoverySent)
	deps.EmitAudit(ctx, deps.Events.RecoveryRequest, true, acc.ID, nil, nil)
	return nil, nil
}

// RunResetCredential consumes a recovery token and sets a new secret. The
// recovery fields are cleared in the same write that stores the new hash.
func RunResetCredential(ctx context.Context, token, newSecret string, deps RecoveryDeps) (*account.Account, account.Errors, error) {
	normalizeRecoveryDeps(&deps)

	if deps.Save == nil || deps.LoadByToken == nil || deps.HashSecret == nil {
		return nil, nil, deps.Errors.EngineNotReady
	}

	reject := func(accountID, reason string, errs account.Errors) account.Errors {
		deps.MetricInc(deps.Metrics.RecoveryResetFailed)
		deps.EmitAudit(ctx, deps.Events.RecoveryReset, false, accountID, nil, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return errs
	}

	if token == "" {
		return nil, reject("", "empty_token", account.Errors{account.RecoveryTokenInvalid}), nil
	}

	acc, err := deps.LoadByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, account.ErrNotFound) {
			return nil, nil, deps.MapStoreError(err)
		}
		return nil, reject("", "unknown_token", account.Errors{account.RecoveryTokenInvalid}), nil
	}

	var errs account.Errors
	if !RecoveryInProgress(acc, deps.Now(), deps.Window) {
		errs.Add(account.RecoveryTokenExpired)
	}
	if newSecret == "" {
		errs.Add(account.NewSecretBlank)
	}
	if !errs.Empty() {
		return acc, reject(acc.ID, errs.Error(), errs), nil
	}

	hash, err := deps.HashSecret(newSecret)
	if err != nil {
		fe := account.NewSecretInvalid
		fe.Message = err.Error()
		return acc, reject(acc.ID, "hash_policy", account.Errors{fe}), nil
	}

	work := acc.Clone()
	work.PasswordHash = hash
	work.ClearRecovery()
	if deps.RevokeSessionsOnReset {
		work.SessionTokens = session.RevokeAll(work.SessionTokens)
	}

	if err := deps.Save(ctx, work); err != nil {
		mapped := deps.MapStoreError(err)
		deps.MetricInc(deps.Metrics.PersistenceFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryReset, false, acc.ID, mapped, nil)
		return acc, nil, mapped
	}
	*acc = *work

	deps.MetricInc(deps.Metrics.RecoveryResetOK)
	deps.EmitAudit(ctx, deps.Events.RecoveryReset, true, acc.ID, nil, func() map[string]string {
		return map[string]string{
			"sessions_revoked": boolString(deps.RevokeSessionsOnReset),
		}
	})

	if deps.SendCredentialChanged && deps.NotifyCredentialChanged != nil {
		if err := deps.NotifyCredentialChanged(ctx, work.Clone()); err != nil {
			deps.MetricInc(deps.Metrics.NotificationFailure)
			return acc, nil, deps.MapNotifyError(err)
		}
	}
	return acc, nil, nil
}

func normalizeRecoveryDeps(deps *RecoveryDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(err error) error { return err }
	}
	if deps.MapNotifyError == nil {
		deps.MapNotifyError = func(err error) error { return err }
	}
}
