package jwtAuth

import (
	"context"

	"github.com/MrEthical07/jwtAuth/account"
	internalflows "github.com/MrEthical07/jwtAuth/internal/flows"
)

// UpdateCredential changes acc's secret, and its email when upd.Email is set,
// in a single write. Every policy failure is collected: current_password
// blank or invalid, password blank, plus email field errors. Nothing is
// persisted unless the set is empty.
//
// A successful change clears any recovery token and, with
// Notifications.SendCredentialChanged, notifies the account. An email change
// on a confirmed account is diverted into PendingEmail as in UpdateAccount.
func (e *Engine) UpdateCredential(ctx context.Context, acc *account.Account, upd CredentialUpdate) (Result, error) {
	if !e.ready() || acc == nil {
		return Result{}, ErrEngineNotReady
	}
	errs, err := internalflows.RunUpdate(ctx, acc, internalflows.UpdateRequest{
		Email:         upd.Email,
		ChangeSecret:  true,
		CurrentSecret: upd.CurrentSecret,
		NewSecret:     upd.NewSecret,
	}, e.updateFlowDeps())
	e.logOutcome(ctx, "update_credential", acc, err)
	return Result{Errors: errs}, err
}

// UpdateAccount applies a non-credential update. Changing the email of a
// confirmed account does not change Email: the new address is stored as
// PendingEmail, a confirmation cycle starts for it and, with
// Notifications.SendEmailChanged, the current address is told. Unconfirmed
// accounts change Email directly; a running confirmation cycle restarts for
// the new address.
func (e *Engine) UpdateAccount(ctx context.Context, acc *account.Account, upd AccountUpdate) (Result, error) {
	if !e.ready() || acc == nil {
		return Result{}, ErrEngineNotReady
	}
	errs, err := internalflows.RunUpdate(ctx, acc, internalflows.UpdateRequest{
		Email: upd.Email,
	}, e.updateFlowDeps())
	e.logOutcome(ctx, "update_account", acc, err)
	return Result{Errors: errs}, err
}

func (e *Engine) updateFlowDeps() internalflows.UpdateDeps {
	return internalflows.UpdateDeps{
		SendCredentialChanged:   e.config.Notifications.SendCredentialChanged,
		SendEmailChanged:        e.config.Notifications.SendEmailChanged,
		Now:                     e.now,
		NewToken:                newToken,
		HashSecret:              e.passwordHash.Hash,
		VerifySecret:            e.passwordHash.Verify,
		Save:                    e.repository.Save,
		MapStoreError:           mapStoreError,
		MapNotifyError:          mapNotifyError,
		NotifyConfirmation:      e.notifyConfirmation,
		NotifyCredentialChanged: e.notifyCredentialChanged,
		NotifyEmailChanged:      e.notifyEmailChanged,
		MetricInc:               e.flowMetricInc,
		EmitAudit:               e.emitAudit,
		Metrics: internalflows.UpdateMetrics{
			CredentialChanged:      int(MetricCredentialChangeSuccess),
			CredentialRejected:     int(MetricCredentialChangeRejected),
			EmailChangeIntercepted: int(MetricEmailChangeIntercepted),
			AccountUpdated:         int(MetricAccountUpdated),
			PersistenceFailure:     int(MetricPersistenceFailure),
			NotificationFailure:    int(MetricNotificationFailure),
		},
		Events: internalflows.UpdateEvents{
			AccountUpdate:    auditEventAccountUpdate,
			CredentialChange: auditEventCredentialChange,
			EmailChange:      auditEventEmailChange,
		},
		Errors: internalflows.UpdateErrors{
			EngineNotReady: ErrEngineNotReady,
		},
	}
}
