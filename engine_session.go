package jwtAuth

import (
	"context"
	"time"

	"github.com/MrEthical07/jwtAuth/account"
	internalflows "github.com/MrEthical07/jwtAuth/internal/flows"
	"github.com/MrEthical07/jwtAuth/session"
)

// IssueSessionToken adds a fresh opaque token to acc's session window and
// persists it. The oldest tokens are evicted beyond
// Sessions.MaxSimultaneousSessions. Lost optimistic-lock races are retried
// against a reloaded account up to Sessions.ConflictRetries times.
//
// Returns ErrSessionTokensDisabled in stateless mode.
func (e *Engine) IssueSessionToken(ctx context.Context, acc *account.Account) (string, error) {
	if !e.ready() || acc == nil {
		return "", ErrEngineNotReady
	}
	tok, err := internalflows.RunIssueSessionToken(ctx, acc, e.sessionFlowDeps())
	e.logOutcome(ctx, "issue_session_token", acc, err)
	return tok, err
}

// RegenerateSessionToken replaces old with a fresh token in a single write.
// An unknown old token simply results in an additional session.
func (e *Engine) RegenerateSessionToken(ctx context.Context, acc *account.Account, old string) (string, error) {
	if !e.ready() || acc == nil {
		return "", ErrEngineNotReady
	}
	tok, err := internalflows.RunRegenerateSessionToken(ctx, acc, old, e.sessionFlowDeps())
	e.logOutcome(ctx, "regenerate_session_token", acc, err)
	return tok, err
}

// DestroySessionToken ends the session identified by token. With a cap of one
// or less every session is cleared. Destroying an absent token is a no-op.
func (e *Engine) DestroySessionToken(ctx context.Context, acc *account.Account, token string) error {
	if !e.ready() || acc == nil {
		return ErrEngineNotReady
	}
	err := internalflows.RunDestroySessionToken(ctx, acc, token, e.sessionFlowDeps())
	e.logOutcome(ctx, "destroy_session_token", acc, err)
	return err
}

func (e *Engine) DestroyAllSessionTokens(ctx context.Context, acc *account.Account) error {
	if !e.ready() || acc == nil {
		return ErrEngineNotReady
	}
	err := internalflows.RunDestroyAllSessionTokens(ctx, acc, e.sessionFlowDeps())
	e.logOutcome(ctx, "destroy_all_session_tokens", acc, err)
	return err
}

// SessionPayload returns the serialized identity claim for acc:
// {"auth_token": <most recent token>} in token modes, {"id": <account id>}
// in stateless mode. The token-mode payload carries an empty token when no
// session was issued yet.
func (e *Engine) SessionPayload(acc *account.Account) map[string]any {
	if acc == nil {
		return nil
	}
	mode := e.SessionMode()
	p := session.ToPayload(mode, acc.SessionTokens, acc.ID)
	if mode != session.ModeStateless {
		return map[string]any{session.KeyAuthToken: p.AuthToken}
	}
	return p.Map()
}

// AccountFromSessionPayload maps a claim produced by SessionPayload back to
// an account. In token modes the token must still be an active member of the
// account's session window.
//
// Returns ErrInvalidPayload for claims of the wrong shape, ErrUnauthorized
// when no account matches, and ErrPersistenceFailed for repository failures.
func (e *Engine) AccountFromSessionPayload(ctx context.Context, payload map[string]any) (*account.Account, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := e.now()
	res := internalflows.RunResolvePayload(ctx, payload, e.resolveFlowDeps())
	e.observeResolve(start)
	return e.resolveOutcome(ctx, res)
}

// SignSessionPayload wraps SessionPayload in a signed bearer credential.
//
// Returns ErrBearerDisabled when JWT signing is not configured and
// ErrInvalidPayload when acc has no session token to embed.
func (e *Engine) SignSessionPayload(acc *account.Account) (string, error) {
	if e == nil || e.jwtManager == nil {
		return "", ErrBearerDisabled
	}
	if acc == nil {
		return "", ErrInvalidPayload
	}
	p := session.ToPayload(e.SessionMode(), acc.SessionTokens, acc.ID)
	if p.AuthToken == "" && p.ID == "" {
		return "", ErrInvalidPayload
	}
	return e.jwtManager.CreateSession(p.AuthToken, p.ID)
}

// AccountFromBearer verifies a credential produced by SignSessionPayload and
// resolves its payload. Any signature, expiry or claim failure is reported as
// ErrUnauthorized.
func (e *Engine) AccountFromBearer(ctx context.Context, bearer string) (*account.Account, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.jwtManager == nil {
		return nil, ErrBearerDisabled
	}
	start := e.now()
	res := internalflows.RunResolveBearer(ctx, bearer, e.resolveFlowDeps())
	e.observeResolve(start)
	return e.resolveOutcome(ctx, res)
}

func (e *Engine) resolveOutcome(ctx context.Context, res internalflows.ResolveResult) (*account.Account, error) {
	var err error
	switch res.Failure {
	case internalflows.ResolveFailureNone:
		return res.Account, nil
	case internalflows.ResolveFailureMalformed:
		err = ErrInvalidPayload
	case internalflows.ResolveFailureStore:
		err = mapStoreError(res.Err)
		e.logOutcome(ctx, "resolve_session_payload", nil, err)
	default:
		err = ErrUnauthorized
	}

	e.metricInc(MetricPayloadResolveFailure)
	e.emitAudit(ctx, auditEventPayloadRejected, false, "", err, func() map[string]string {
		return map[string]string{
			"mode": e.SessionMode().String(),
		}
	})
	return nil, err
}

func (e *Engine) observeResolve(start time.Time) {
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricResolveLatency, e.now().Sub(start))
	}
}

func (e *Engine) resolveFlowDeps() internalflows.ResolveDeps {
	deps := internalflows.ResolveDeps{
		Mode:               e.SessionMode(),
		FindByID:           e.repository.FindByID,
		FindBySessionToken: e.repository.FindBySessionToken,
	}
	if e.jwtManager != nil {
		deps.ParseBearer = func(bearer string) (session.Payload, error) {
			claims, err := e.jwtManager.ParseSession(bearer)
			if err != nil {
				return session.Payload{}, err
			}
			return session.Payload{AuthToken: claims.AuthToken, ID: claims.ID}, nil
		}
	}
	return deps
}

func (e *Engine) sessionFlowDeps() internalflows.SessionDeps {
	return internalflows.SessionDeps{
		MaxSessions:     e.config.Sessions.MaxSimultaneousSessions,
		ConflictRetries: e.config.Sessions.ConflictRetries,
		NewToken:        newToken,
		Save:            e.repository.Save,
		Reload:          e.repository.FindByID,
		MapStoreError:   mapStoreError,
		MetricInc:       e.flowMetricInc,
		EmitAudit:       e.emitAudit,
		Metrics: internalflows.SessionMetrics{
			SessionIssued:      int(MetricSessionIssued),
			SessionRevoked:     int(MetricSessionRevoked),
			SessionRevokedAll:  int(MetricSessionRevokedAll),
			ConflictRetry:      int(MetricSessionConflictRetry),
			PersistenceFailure: int(MetricPersistenceFailure),
		},
		Events: internalflows.SessionEvents{
			SessionIssued:     auditEventSessionIssued,
			SessionRevoked:    auditEventSessionRevoked,
			SessionRevokedAll: auditEventSessionRevokedAll,
		},
		Errors: internalflows.SessionErrors{
			EngineNotReady:   ErrEngineNotReady,
			SessionsDisabled: ErrSessionTokensDisabled,
		},
	}
}
