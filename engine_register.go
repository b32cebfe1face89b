package jwtAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/jwtAuth/account"
	internalflows "github.com/MrEthical07/jwtAuth/internal/flows"
)

// Register stores acc as a new account. An empty secret registers the account
// without a password. When Confirmation.SendOnRegister is set, confirmation
// instructions follow unless acc is already confirmed or already stamped.
//
// A taken email is reported as the field error email taken. A failure to
// deliver the first instructions returns ErrNotificationFailed with the
// account already created.
func (e *Engine) Register(ctx context.Context, acc *account.Account, secret string) (Result, error) {
	if !e.ready() || acc == nil {
		return Result{}, ErrEngineNotReady
	}
	errs, err := internalflows.RunRegister(ctx, acc, secret, e.registerFlowDeps())
	e.logOutcome(ctx, "register", acc, err)
	return Result{Errors: errs}, err
}

// Authenticate checks secret against the account registered under email.
// Unknown emails, passwordless accounts and wrong secrets all return
// ErrInvalidCredentials. With Confirmation.RequireForLogin an unconfirmed
// account returns ErrAccountUnconfirmed.
func (e *Engine) Authenticate(ctx context.Context, email, secret string) (*account.Account, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	acc, err := internalflows.RunAuthenticate(ctx, email, secret, e.loginFlowDeps())
	if err != nil && !errors.Is(err, ErrInvalidCredentials) && !errors.Is(err, ErrAccountUnconfirmed) {
		e.logOutcome(ctx, "authenticate", nil, err)
	}
	return acc, err
}

// Login authenticates and opens a session. In token modes a session token is
// issued; when JWT signing is enabled the session payload is also returned as
// a signed bearer credential.
func (e *Engine) Login(ctx context.Context, email, secret string) (*LoginResult, error) {
	acc, err := e.Authenticate(ctx, email, secret)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{Account: acc}
	if e.config.Sessions.MaxSimultaneousSessions > 0 {
		tok, err := e.IssueSessionToken(ctx, acc)
		if err != nil {
			return nil, err
		}
		result.SessionToken = tok
	}

	if e.jwtManager != nil {
		bearer, err := e.SignSessionPayload(acc)
		if err != nil {
			return nil, err
		}
		result.Bearer = bearer
	}

	return result, nil
}

func (e *Engine) registerFlowDeps() internalflows.RegisterDeps {
	return internalflows.RegisterDeps{
		SendConfirmation: e.config.Confirmation.SendOnRegister,
		Now:              e.now,
		NewID:            newAccountID,
		HashSecret:       e.passwordHash.Hash,
		Create:           e.repository.Create,
		MapStoreError:    mapStoreError,
		AfterCreate: func(ctx context.Context, acc *account.Account) (account.Errors, error) {
			return internalflows.RunSendConfirmation(ctx, acc, e.confirmationFlowDeps())
		},
		MetricInc: e.flowMetricInc,
		EmitAudit: e.emitAudit,
		Metrics: internalflows.RegisterMetrics{
			AccountRegistered:  int(MetricRegisterSuccess),
			AccountDuplicate:   int(MetricRegisterDuplicate),
			PersistenceFailure: int(MetricPersistenceFailure),
		},
		Events: internalflows.RegisterEvents{
			AccountRegister: auditEventAccountRegister,
		},
		Errors: internalflows.RegisterErrors{
			EngineNotReady: ErrEngineNotReady,
		},
	}
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	return internalflows.LoginDeps{
		RequireConfirmation: e.config.Confirmation.RequireForLogin,
		LoadByEmail:         e.loadBy(account.ByEmail),
		VerifySecret:        e.passwordHash.Verify,
		MapStoreError:       mapStoreError,
		MetricInc:           e.flowMetricInc,
		EmitAudit:           e.emitAudit,
		Metrics: internalflows.LoginMetrics{
			LoginSuccess: int(MetricLoginSuccess),
			LoginFailure: int(MetricLoginFailure),
		},
		Events: internalflows.LoginEvents{
			LoginSuccess: auditEventLoginSuccess,
			LoginFailure: auditEventLoginFailure,
		},
		Errors: internalflows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			Unconfirmed:        ErrAccountUnconfirmed,
		},
	}
}
