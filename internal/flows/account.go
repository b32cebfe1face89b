package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/jwtAuth/account"
)

type RegisterMetrics struct {
	AccountRegistered  int
	AccountDuplicate   int
	PersistenceFailure int
}

type RegisterEvents struct {
	AccountRegister string
}

type RegisterErrors struct {
	EngineNotReady error
}

type RegisterDeps struct {
	SendConfirmation bool

	Now        func() time.Time
	NewID      func() string
	HashSecret func(string) (string, error)

	Create        func(context.Context, *account.Account) error
	MapStoreError func(error) error

	// AfterCreate runs once the account is stored, typically to send the first
	// confirmation instructions.
	AfterCreate func(context.Context, *account.Account) (account.Errors, error)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister stores a new account. An empty secret registers the account
// without a password; the first credential update then needs no current
// secret. Confirmation instructions follow creation unless the account is
// already confirmed or instructions were already stamped.
func RunRegister(ctx context.Context, acc *account.Account, secret string, deps RegisterDeps) (account.Errors, error) {
	normalizeRegisterDeps(&deps)

	if deps.Create == nil || deps.NewID == nil {
		return nil, deps.Errors.EngineNotReady
	}

	now := deps.Now().UTC()
	work := acc.Clone()
	if work.ID == "" {
		work.ID = deps.NewID()
	}
	work.Email = account.NormalizeEmail(work.Email)
	work.PendingEmail = account.NormalizeEmail(work.PendingEmail)
	if work.CreatedAt.IsZero() {
		work.CreatedAt = now
	}
	work.UpdatedAt = now

	var errs account.Errors
	if secret != "" {
		if deps.HashSecret == nil {
			return nil, deps.Errors.EngineNotReady
		}
		hash, err := deps.HashSecret(secret)
		if err != nil {
			fe := account.NewSecretInvalid
			fe.Message = err.Error()
			errs.Add(fe)
		} else {
			work.PasswordHash = hash
		}
	}
	errs.Merge(account.Validate(work))
	if !errs.Empty() {
		deps.EmitAudit(ctx, deps.Events.AccountRegister, false, "", nil, func() map[string]string {
			return map[string]string{
				"reason": errs.Error(),
			}
		})
		return errs, nil
	}

	if err := deps.Create(ctx, work); err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			deps.MetricInc(deps.Metrics.AccountDuplicate)
			deps.EmitAudit(ctx, deps.Events.AccountRegister, false, "", nil, func() map[string]string {
				return map[string]string{
					"reason": account.CodeTaken,
				}
			})
			return account.Errors{account.EmailTaken}, nil
		}
		mapped := deps.MapStoreError(err)
		deps.MetricInc(deps.Metrics.PersistenceFailure)
		deps.EmitAudit(ctx, deps.Events.AccountRegister, false, "", mapped, nil)
		return nil, mapped
	}
	*acc = *work

	deps.MetricInc(deps.Metrics.AccountRegistered)
	deps.EmitAudit(ctx, deps.Events.AccountRegister, true, acc.ID, nil, func() map[string]string {
		return map[string]string{
			"password": boolString(acc.HasPassword()),
		}
	})

	if deps.SendConfirmation && deps.AfterCreate != nil && acc.ConfirmedAt == nil && acc.ConfirmationSentAt == nil {
		return deps.AfterCreate(ctx, acc)
	}
	return nil, nil
}

func normalizeRegisterDeps(deps *RegisterDeps) {
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
}
