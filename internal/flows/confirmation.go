package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/jwtAuth/account"
)

// ConfirmationState is the position of an account in the confirmation cycle.
type ConfirmationState int

const (
	ConfirmationUnconfirmed ConfirmationState = iota
	ConfirmationPending
	ConfirmationConfirmed
	ConfirmationEmailChangePending
)

func (s ConfirmationState) String() string {
	switch s {
	case ConfirmationUnconfirmed:
		return "unconfirmed"
	case ConfirmationPending:
		return "pending"
	case ConfirmationConfirmed:
		return "confirmed"
	case ConfirmationEmailChangePending:
		return "email_change_pending"
	default:
		return "unknown"
	}
}

// ConfirmationStateOf derives the state from stored fields. An unconfirmed
// account whose token has expired is reported as unconfirmed.
func ConfirmationStateOf(acc *account.Account, now time.Time, window time.Duration) ConfirmationState {
	switch {
	case acc.IsConfirmed() && acc.PendingEmail != "":
		return ConfirmationEmailChangePending
	case acc.IsConfirmed():
		return ConfirmationConfirmed
	case ConfirmationInProgress(acc, now, window):
		return ConfirmationPending
	default:
		return ConfirmationUnconfirmed
	}
}

// ConfirmationInProgress is true iff the account is unconfirmed and holds a
// token sent less than window ago.
func ConfirmationInProgress(acc *account.Account, now time.Time, window time.Duration) bool {
	return acc.ConfirmedAt == nil &&
		acc.ConfirmationToken != "" &&
		acc.ConfirmationSentAt != nil &&
		now.Before(acc.ConfirmationSentAt.Add(window))
}

// ConfirmationTokenExpired reports whether the token on acc was sent before
// now-window. A missing timestamp counts as expired.
func ConfirmationTokenExpired(acc *account.Account, now time.Time, window time.Duration) bool {
	if acc.ConfirmationSentAt == nil {
		return true
	}
	return acc.ConfirmationSentAt.Before(now.Add(-window))
}

// CheckConfirmationTransition validates a write that moves ConfirmedAt. It is
// a no-op when ConfirmedAt is unchanged, cleared, or when the email changes in
// the same write (completing an email change is a legitimate confirmation).
func CheckConfirmationTransition(before, after *account.Account, now time.Time, window time.Duration) account.Errors {
	var errs account.Errors
	if account.SameInstant(before.ConfirmedAt, after.ConfirmedAt) || after.ConfirmedAt == nil {
		return errs
	}
	if before.Email != after.Email {
		return errs
	}
	if before.ConfirmedAt != nil {
		errs.Add(account.AlreadyConfirmed)
		return errs
	}
	if after.ConfirmationSentAt != nil && after.ConfirmationSentAt.Before(now.Add(-window)) {
		errs.Add(account.ConfirmationTokenExpired)
	}
	return errs
}

// InterceptsEmailChange reports whether a write from before to after is a
// user-initiated email edit on a confirmed account. Confirmation completions
// move ConfirmedAt and are never intercepted.
func InterceptsEmailChange(before, after *account.Account) bool {
	return before.Email != "" &&
		before.Email != after.Email &&
		before.ConfirmedAt != nil &&
		account.SameInstant(before.ConfirmedAt, after.ConfirmedAt)
}

// startConfirmation stamps a fresh token on acc.
func startConfirmation(acc *account.Account, token string, now time.Time) {
	acc.ConfirmationToken = token
	acc.ConfirmationSentAt = account.TimePtr(now)
}

type ConfirmationMetrics struct {
	ConfirmationSent     int
	ConfirmationRejected int
	ConfirmationSuccess  int
	ConfirmationExpired  int
	PersistenceFailure   int
	NotificationFailure  int
}

type ConfirmationEvents struct {
	ConfirmationSent    string
	ConfirmationConfirm string
}

type ConfirmationErrors struct {
	EngineNotReady error
}

type ConfirmationDeps struct {
	Window time.Duration

	Now      func() time.Time
	NewToken func() string

	Save           func(context.Context, *account.Account) error
	LoadByToken    func(context.Context, string) (*account.Account, error)
	MapStoreError  func(error) error
	MapNotifyError func(error) error

	NotifyConfirmation func(context.Context, *account.Account) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics ConfirmationMetrics
	Events  ConfirmationEvents
	Errors  ConfirmationErrors
}

// RunSendConfirmation issues a fresh confirmation token, persists it and only
// then notifies. A confirmed account with no pending email is rejected with
// email already_confirmed and left untouched.
func RunSendConfirmation(ctx context.Context, acc *account.Account, deps ConfirmationDeps) (account.Errors, error) {
	normalizeConfirmationDeps(&deps)

	if deps.Save == nil || deps.NewToken == nil || deps.NotifyConfirmation == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if acc.IsConfirmed() && acc.PendingEmail == "" {
		deps.MetricInc(deps.Metrics.ConfirmationRejected)
		deps.EmitAudit(ctx, deps.Events.ConfirmationSent, false, acc.ID, nil, func() map[string]string {
			return map[string]string{
				"reason": account.CodeAlreadyConfirmed,
			}
		})
		return account.Errors{account.AlreadyConfirmed}, nil
	}

	work := acc.Clone()
	startConfirmation(work, deps.NewToken(), deps.Now())

	if err := deps.Save(ctx, work); err != nil {
		mapped := deps.MapStoreError(err)
		deps.MetricInc(deps.Metrics.PersistenceFailure)
		deps.EmitAudit(ctx, deps.Events.ConfirmationSent, false, acc.ID, mapped, nil)
		return nil, mapped
	}
	*acc = *work

	if err := deps.NotifyConfirmation(ctx, work.Clone()); err != nil {
		mapped := deps.MapNotifyError(err)
		deps.MetricInc(deps.Metrics.NotificationFailure)
		deps.EmitAudit(ctx, deps.Events.ConfirmationSent, false, acc.ID, mapped, func() map[string]string {
			return map[string]string{
				"reason": "notify_failed",
			}
		})
		return nil, mapped
	}

	deps.MetricInc(deps.Metrics.ConfirmationSent)
	deps.EmitAudit(ctx, deps.Events.ConfirmationSent, true, acc.ID, nil, func() map[string]string {
		return map[string]string{
			"pending_email": boolString(acc.PendingEmail != ""),
		}
	})
	return nil, nil
}

// RunConfirm marks the account confirmed, promotes a pending email and
// persists. The transition is validated before anything is written.
func RunConfirm(ctx context.Context, acc *account.Account, deps ConfirmationDeps) (account.Errors, error) {
	normalizeConfirmationDeps(&deps)

	if deps.Save == nil {
		return nil, deps.Errors.EngineNotReady
	}

	now := deps.Now()
	work := acc.Clone()
	work.ConfirmedAt = account.TimePtr(now)
	if work.PendingEmail != "" {
		work.Email = work.PendingEmail
		work.PendingEmail = ""
	}

	errs := CheckConfirmationTransition(acc, work, now, deps.Window)
	if acc.IsConfirmed() && acc.PendingEmail == "" {
		// Re-confirming within the same clock tick leaves ConfirmedAt unchanged.
		errs.Add(account.AlreadyConfirmed)
	}
	if !errs.Empty() {
		if errs.Has(account.ConfirmationTokenExpired) {
			deps.MetricInc(deps.Metrics.ConfirmationExpired)
		} else {
			deps.MetricInc(deps.Metrics.ConfirmationRejected)
		}
		deps.EmitAudit(ctx, deps.Events.ConfirmationConfirm, false, acc.ID, nil, func() map[string]string {
			return map[string]string{
				"reason": errs.Error(),
			}
		})
		return errs, nil
	}

	if err := deps.Save(ctx, work); err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			// The pending address was registered by someone else meanwhile.
			deps.MetricInc(deps.Metrics.ConfirmationRejected)
			return account.Errors{account.EmailTaken}, nil
		}
		mapped := deps.MapStoreError(err)
		deps.MetricInc(deps.Metrics.PersistenceFailure)
		deps.EmitAudit(ctx, deps.Events.ConfirmationConfirm, false, acc.ID, mapped, nil)
		return nil, mapped
	}
	promoted := acc.Email != work.Email
	*acc = *work

	deps.MetricInc(deps.Metrics.ConfirmationSuccess)
	deps.EmitAudit(ctx, deps.Events.ConfirmationConfirm, true, acc.ID, nil, func() map[string]string {
		return map[string]string{
			"email_promoted": boolString(promoted),
		}
	})
	return nil, nil
}

// RunConfirmByToken resolves the account holding token and confirms it. The
// expiry window applies to every token presented here, including tokens of a
// pending email change.
func RunConfirmByToken(ctx context.Context, token string, deps ConfirmationDeps) (*account.Account, account.Errors, error) {
	normalizeConfirmationDeps(&deps)

	if deps.LoadByToken == nil {
		return nil, nil, deps.Errors.EngineNotReady
	}
	if token == "" {
		deps.MetricInc(deps.Metrics.ConfirmationRejected)
		return nil, account.Errors{account.ConfirmationTokenInvalid}, nil
	}

	acc, err := deps.LoadByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, account.ErrNotFound) {
			return nil, nil, deps.MapStoreError(err)
		}
		deps.MetricInc(deps.Metrics.ConfirmationRejected)
		deps.EmitAudit(ctx, deps.Events.ConfirmationConfirm, false, "", nil, func() map[string]string {
			return map[string]string{
				"reason": "unknown_token",
			}
		})
		return nil, account.Errors{account.ConfirmationTokenInvalid}, nil
	}

	if !(acc.IsConfirmed() && acc.PendingEmail == "") && ConfirmationTokenExpired(acc, deps.Now(), deps.Window) {
		deps.MetricInc(deps.Metrics.ConfirmationExpired)
		deps.EmitAudit(ctx, deps.Events.ConfirmationConfirm, false, acc.ID, nil, func() map[string]string {
			return map[string]string{
				"reason": account.CodeExpired,
			}
		})
		return acc, account.Errors{account.ConfirmationTokenExpired}, nil
	}

	errs, err := RunConfirm(ctx, acc, deps)
	return acc, errs, err
}

// SkipConfirmation marks acc confirmed in memory, for hosts that verify
// ownership some other way. Nothing is persisted or sent; a later Register or
// Save carries the change.
func SkipConfirmation(acc *account.Account, now time.Time) {
	acc.ConfirmedAt = account.TimePtr(now)
}

func normalizeConfirmationDeps(deps *ConfirmationDeps) {
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
