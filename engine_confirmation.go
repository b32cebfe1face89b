package jwtAuth

import (
	"context"

	"github.com/MrEthical07/jwtAuth/account"
	internalflows "github.com/MrEthical07/jwtAuth/internal/flows"
)

// ConfirmationState re-exports the confirmation states for callers that do
// not import the flows package.
type ConfirmationState = internalflows.ConfirmationState

const (
	ConfirmationUnconfirmed        = internalflows.ConfirmationUnconfirmed
	ConfirmationPending            = internalflows.ConfirmationPending
	ConfirmationConfirmed          = internalflows.ConfirmationConfirmed
	ConfirmationEmailChangePending = internalflows.ConfirmationEmailChangePending
)

// SendConfirmationInstructions stamps a fresh confirmation token on acc,
// persists it and then notifies the pending address if an email change is
// in progress, the current address otherwise.
//
// A confirmed account with no pending email is rejected with email
// already_confirmed and left untouched.
func (e *Engine) SendConfirmationInstructions(ctx context.Context, acc *account.Account) (Result, error) {
	if !e.ready() || acc == nil {
		return Result{}, ErrEngineNotReady
	}
	errs, err := internalflows.RunSendConfirmation(ctx, acc, e.confirmationFlowDeps())
	e.logOutcome(ctx, "send_confirmation_instructions", acc, err)
	return Result{Errors: errs}, err
}

// Confirm marks acc confirmed now and promotes a pending email. The
// transition is rejected with email already_confirmed when acc was confirmed
// before, or confirmation_token expired when the token is older than
// Confirmation.ExpirationWindow.
func (e *Engine) Confirm(ctx context.Context, acc *account.Account) (Result, error) {
	if !e.ready() || acc == nil {
		return Result{}, ErrEngineNotReady
	}
	errs, err := internalflows.RunConfirm(ctx, acc, e.confirmationFlowDeps())
	e.logOutcome(ctx, "confirm", acc, err)
	return Result{Errors: errs}, err
}

// ConfirmByToken resolves the account holding token and confirms it. Unknown
// tokens yield confirmation_token invalid; tokens older than the window,
// including those of a pending email change, yield confirmation_token
// expired. The returned account is nil only for unknown tokens.
func (e *Engine) ConfirmByToken(ctx context.Context, token string) (*account.Account, Result, error) {
	if !e.ready() {
		return nil, Result{}, ErrEngineNotReady
	}
	acc, errs, err := internalflows.RunConfirmByToken(ctx, token, e.confirmationFlowDeps())
	e.logOutcome(ctx, "confirm_by_token", acc, err)
	return acc, Result{Errors: errs}, err
}

// SkipConfirmation marks acc confirmed in memory without sending anything.
// The change is persisted by the next Register or save of acc.
func (e *Engine) SkipConfirmation(acc *account.Account) {
	if acc == nil {
		return
	}
	internalflows.SkipConfirmation(acc, e.now())
}

// IsConfirmationInProgress reports whether acc is unconfirmed and holds a
// token younger than Confirmation.ExpirationWindow.
func (e *Engine) IsConfirmationInProgress(acc *account.Account) bool {
	if acc == nil {
		return false
	}
	return internalflows.ConfirmationInProgress(acc, e.now(), e.config.Confirmation.ExpirationWindow)
}

func (e *Engine) ConfirmationState(acc *account.Account) ConfirmationState {
	if acc == nil {
		return ConfirmationUnconfirmed
	}
	return internalflows.ConfirmationStateOf(acc, e.now(), e.config.Confirmation.ExpirationWindow)
}

func (e *Engine) confirmationFlowDeps() internalflows.ConfirmationDeps {
	return internalflows.ConfirmationDeps{
		Window:             e.config.Confirmation.ExpirationWindow,
		Now:                e.now,
		NewToken:           newToken,
		Save:               e.repository.Save,
		LoadByToken:        e.loadBy(account.ByConfirmationToken),
		MapStoreError:      mapStoreError,
		MapNotifyError:     mapNotifyError,
		NotifyConfirmation: e.notifyConfirmation,
		MetricInc:          e.flowMetricInc,
		EmitAudit:          e.emitAudit,
		Metrics: internalflows.ConfirmationMetrics{
			ConfirmationSent:     int(MetricConfirmationSent),
			ConfirmationRejected: int(MetricConfirmationRejected),
			ConfirmationSuccess:  int(MetricConfirmationSuccess),
			ConfirmationExpired:  int(MetricConfirmationExpired),
			PersistenceFailure:   int(MetricPersistenceFailure),
			NotificationFailure:  int(MetricNotificationFailure),
		},
		Events: internalflows.ConfirmationEvents{
			ConfirmationSent:    auditEventConfirmationSent,
			ConfirmationConfirm: auditEventConfirmationConfirm,
		},
		Errors: internalflows.ConfirmationErrors{
			EngineNotReady: ErrEngineNotReady,
		},
	}
}
