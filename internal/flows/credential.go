package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/jwtAuth/account"
)

// CheckCredentialUpdate collects every credential-policy failure for a secret
// change. The current secret is only required when acc already has a hash; a
// verifier error counts as an invalid current secret.
func CheckCredentialUpdate(acc *account.Account, current, next string, verify func(secret, hash string) (bool, error)) account.Errors {
	var errs account.Errors
	if acc.HasPassword() {
		switch {
		case current == "":
			errs.Add(account.CurrentSecretBlank)
		case verify == nil:
			errs.Add(account.CurrentSecretInvalid)
		default:
			ok, err := verify(current, acc.PasswordHash)
			if err != nil || !ok {
				errs.Add(account.CurrentSecretInvalid)
			}
		}
	}
	if next == "" {
		errs.Add(account.NewSecretBlank)
	}
	return errs
}

// UpdateRequest carries the fields an account update may touch. A nil Email
// leaves the address alone; ChangeSecret enables the credential checks.
type UpdateRequest struct {
	Email         *string
	ChangeSecret  bool
	CurrentSecret string
	NewSecret     string
}

type UpdateMetrics struct {
	CredentialChanged      int
	CredentialRejected     int
	EmailChangeIntercepted int
	AccountUpdated         int
	PersistenceFailure     int
	NotificationFailure    int
}

type UpdateEvents struct {
	AccountUpdate    string
	CredentialChange string
	EmailChange      string
}

type UpdateErrors struct {
	EngineNotReady error
}

type UpdateDeps struct {
	SendCredentialChanged bool
	SendEmailChanged      bool

	Now      func() time.Time
	NewToken func() string

	HashSecret   func(string) (string, error)
	VerifySecret func(secret, hash string) (bool, error)

	Save           func(context.Context, *account.Account) error
	MapStoreError  func(error) error
	MapNotifyError func(error) error

	NotifyConfirmation      func(context.Context, *account.Account) error
	NotifyCredentialChanged func(context.Context, *account.Account) error
	NotifyEmailChanged      func(context.Context, *account.Account) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics UpdateMetrics
	Events  UpdateEvents
	Errors  UpdateErrors
}

// RunUpdate applies req to acc. All validation failures are collected and
// nothing is persisted unless the set is empty. An email change on a confirmed
// account is diverted into PendingEmail and starts a confirmation cycle for the
// new address. A successful secret change clears any recovery token.
func RunUpdate(ctx context.Context, acc *account.Account, req UpdateRequest, deps UpdateDeps) (account.Errors, error) {
	normalizeUpdateDeps(&deps)

	if deps.Save == nil || deps.NewToken == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if req.ChangeSecret && deps.HashSecret == nil {
		return nil, deps.Errors.EngineNotReady
	}

	now := deps.Now()
	work := acc.Clone()

	var errs account.Errors
	if req.ChangeSecret {
		errs.Merge(CheckCredentialUpdate(acc, req.CurrentSecret, req.NewSecret, deps.VerifySecret))
	}

	if req.Email != nil {
		work.Email = account.NormalizeEmail(*req.Email)
		if work.Email == "" {
			// Must not reach interception: PendingEmail is never blank.
			errs.Add(account.EmailBlank)
			work.Email = acc.Email
		}
	}

	intercepted := false
	restarted := false
	switch {
	case InterceptsEmailChange(acc, work):
		work.PendingEmail = work.Email
		work.Email = acc.Email
		startConfirmation(work, deps.NewToken(), now)
		intercepted = true
	case acc.Email != work.Email && !acc.IsConfirmed() && acc.ConfirmationToken != "":
		// Unconfirmed address replaced; the old token was addressed elsewhere.
		startConfirmation(work, deps.NewToken(), now)
		restarted = true
	}

	if req.ChangeSecret && errs.Empty() {
		hash, err := deps.HashSecret(req.NewSecret)
		if err != nil {
			fe := account.NewSecretInvalid
			fe.Message = err.Error()
			errs.Add(fe)
		} else {
			work.PasswordHash = hash
			work.ClearRecovery()
		}
	}

	errs.Merge(account.Validate(work))
	if !errs.Empty() {
		event := deps.Events.AccountUpdate
		if req.ChangeSecret {
			event = deps.Events.CredentialChange
			deps.MetricInc(deps.Metrics.CredentialRejected)
		}
		deps.EmitAudit(ctx, event, false, acc.ID, nil, func() map[string]string {
			return map[string]string{
				"reason": errs.Error(),
			}
		})
		return errs, nil
	}

	if err := deps.Save(ctx, work); err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			deps.EmitAudit(ctx, deps.Events.AccountUpdate, false, acc.ID, nil, func() map[string]string {
				return map[string]string{
					"reason": account.CodeTaken,
				}
			})
			return account.Errors{account.EmailTaken}, nil
		}
		mapped := deps.MapStoreError(err)
		deps.MetricInc(deps.Metrics.PersistenceFailure)
		deps.EmitAudit(ctx, deps.Events.AccountUpdate, false, acc.ID, mapped, nil)
		return nil, mapped
	}
	*acc = *work

	deps.MetricInc(deps.Metrics.AccountUpdated)
	if req.ChangeSecret {
		deps.MetricInc(deps.Metrics.CredentialChanged)
		deps.EmitAudit(ctx, deps.Events.CredentialChange, true, acc.ID, nil, nil)
	}
	if intercepted {
		deps.MetricInc(deps.Metrics.EmailChangeIntercepted)
		deps.EmitAudit(ctx, deps.Events.EmailChange, true, acc.ID, nil, func() map[string]string {
			return map[string]string{
				"intercepted": "true",
			}
		})
	}

	var notifyErrs []error
	notify := func(enabled bool, fn func(context.Context, *account.Account) error) {
		if !enabled || fn == nil {
			return
		}
		if err := fn(ctx, work.Clone()); err != nil {
			deps.MetricInc(deps.Metrics.NotificationFailure)
			notifyErrs = append(notifyErrs, err)
		}
	}
	notify(intercepted || restarted, deps.NotifyConfirmation)
	notify(intercepted && deps.SendEmailChanged, deps.NotifyEmailChanged)
	notify(req.ChangeSecret && deps.SendCredentialChanged, deps.NotifyCredentialChanged)

	if len(notifyErrs) > 0 {
		return nil, deps.MapNotifyError(errors.Join(notifyErrs...))
	}
	return nil, nil
}

func normalizeUpdateDeps(deps *UpdateDeps) {
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
