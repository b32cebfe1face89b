package jwtAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/jwtAuth/account"
	internalflows "github.com/MrEthical07/jwtAuth/internal/flows"
)

// SendRecoveryInstructions stamps a recovery token on acc, persists it and
// notifies the account's address. With Recovery.RequireConfirmation an
// unconfirmed account is rejected with email unconfirmed; nothing is written
// or sent.
func (e *Engine) SendRecoveryInstructions(ctx context.Context, acc *account.Account) (Result, error) {
	if !e.ready() || acc == nil {
		return Result{}, ErrEngineNotReady
	}
	errs, err := internalflows.RunSendRecovery(ctx, acc, e.recoveryFlowDeps())
	e.logOutcome(ctx, "send_recovery_instructions", acc, err)
	return Result{Errors: errs}, err
}

// RequestRecovery looks up the account registered under email and sends
// recovery instructions. Unknown addresses return ErrAccountNotFound; hosts
// that must not reveal registration should treat it as success.
func (e *Engine) RequestRecovery(ctx context.Context, email string) (Result, error) {
	if !e.ready() {
		return Result{}, ErrEngineNotReady
	}
	acc, err := e.repository.Load(ctx, account.Criteria{
		Field: account.ByEmail,
		Value: account.NormalizeEmail(email),
	})
	if err != nil {
		mapped := mapStoreError(err)
		if !errors.Is(mapped, ErrAccountNotFound) {
			e.logOutcome(ctx, "request_recovery", nil, mapped)
		}
		return Result{}, mapped
	}
	return e.SendRecoveryInstructions(ctx, acc)
}

// IsRecoveryInProgress reports whether acc holds a recovery token younger
// than Recovery.ExpirationWindow.
func (e *Engine) IsRecoveryInProgress(acc *account.Account) bool {
	if acc == nil {
		return false
	}
	return internalflows.RecoveryInProgress(acc, e.now(), e.config.Recovery.ExpirationWindow)
}

// ResetCredential consumes a recovery token and stores newSecret. The
// recovery fields are cleared in the same write and, with
// Recovery.RevokeSessionsOnReset, every session token is revoked.
//
// Unknown tokens yield recovery_token invalid; stale tokens recovery_token
// expired; a blank secret password blank. The returned account is nil only
// for unknown tokens.
func (e *Engine) ResetCredential(ctx context.Context, token, newSecret string) (*account.Account, Result, error) {
	if !e.ready() {
		return nil, Result{}, ErrEngineNotReady
	}
	acc, errs, err := internalflows.RunResetCredential(ctx, token, newSecret, e.recoveryFlowDeps())
	e.logOutcome(ctx, "reset_credential", acc, err)
	return acc, Result{Errors: errs}, err
}

func (e *Engine) recoveryFlowDeps() internalflows.RecoveryDeps {
	return internalflows.RecoveryDeps{
		Window:                  e.config.Recovery.ExpirationWindow,
		RequireConfirmation:     e.config.Recovery.RequireConfirmation,
		RevokeSessionsOnReset:   e.config.Recovery.RevokeSessionsOnReset,
		SendCredentialChanged:   e.config.Notifications.SendCredentialChanged,
		Now:                     e.now,
		NewToken:                newToken,
		HashSecret:              e.passwordHash.Hash,
		Save:                    e.repository.Save,
		LoadByToken:             e.loadBy(account.ByRecoveryToken),
		MapStoreError:           mapStoreError,
		MapNotifyError:          mapNotifyError,
		NotifyRecovery:          e.notifyRecovery,
		NotifyCredentialChanged: e.notifyCredentialChanged,
		MetricInc:               e.flowMetricInc,
		EmitAudit:               e.emitAudit,
		Metrics: internalflows.RecoveryMetrics{
			RecoverySent:        int(MetricRecoverySent),
			RecoveryRejected:    int(MetricRecoveryRejected),
			RecoveryResetOK:     int(MetricRecoveryResetSuccess),
			RecoveryResetFailed: int(MetricRecoveryResetFailure),
			PersistenceFailure:  int(MetricPersistenceFailure),
			NotificationFailure: int(MetricNotificationFailure),
		},
		Events: internalflows.RecoveryEvents{
			RecoveryRequest: auditEventRecoveryRequest,
			RecoveryReset:   auditEventRecoveryReset,
		},
		Errors: internalflows.RecoveryErrors{
			EngineNotReady: ErrEngineNotReady,
		},
	}
}
