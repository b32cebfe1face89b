package flows

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/jwtAuth/account"
	"github.com/MrEthical07/jwtAuth/session"
)

type SessionMetrics struct {
	SessionIssued      int
	SessionRevoked     int
	SessionRevokedAll  int
	ConflictRetry      int
	PersistenceFailure int
}

type SessionEvents struct {
	SessionIssued     string
	SessionRevoked    string
	SessionRevokedAll string
}

type SessionErrors struct {
	EngineNotReady   error
	SessionsDisabled error
}

type SessionDeps struct {
	MaxSessions     int
	ConflictRetries int

	NewToken func() string

	Save          func(context.Context, *account.Account) error
	Reload        func(context.Context, string) (*account.Account, error)
	MapStoreError func(error) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics SessionMetrics
	Events  SessionEvents
	Errors  SessionErrors
}

// RunIssueSessionToken appends a fresh token to the account's session window
// and persists it. Returns the new token.
func RunIssueSessionToken(ctx context.Context, acc *account.Account, deps SessionDeps) (string, error) {
	normalizeSessionDeps(&deps)

	if deps.NewToken == nil {
		return "", deps.Errors.EngineNotReady
	}
	if session.ModeFor(deps.MaxSessions) == session.ModeStateless {
		return "", deps.Errors.SessionsDisabled
	}

	token := deps.NewToken()
	err := mutateSessions(ctx, acc, deps, func(tokens []string) []string {
		return session.Issue(tokens, deps.MaxSessions, token)
	})
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.SessionIssued, false, acc.ID, err, nil)
		return "", err
	}

	deps.MetricInc(deps.Metrics.SessionIssued)
	deps.EmitAudit(ctx, deps.Events.SessionIssued, true, acc.ID, nil, func() map[string]string {
		return map[string]string{
			"active": strconv.Itoa(len(acc.SessionTokens)),
		}
	})
	return token, nil
}

// RunRegenerateSessionToken drops old and issues a replacement in one write.
func RunRegenerateSessionToken(ctx context.Context, acc *account.Account, old string, deps SessionDeps) (string, error) {
	normalizeSessionDeps(&deps)

	if deps.NewToken == nil {
		return "", deps.Errors.EngineNotReady
	}
	if session.ModeFor(deps.MaxSessions) == session.ModeStateless {
		return "", deps.Errors.SessionsDisabled
	}

	token := deps.NewToken()
	err := mutateSessions(ctx, acc, deps, func(tokens []string) []string {
		return session.Issue(session.Revoke(tokens, old), deps.MaxSessions, token)
	})
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.SessionIssued, false, acc.ID, err, func() map[string]string {
			return map[string]string{
				"regenerate": "true",
			}
		})
		return "", err
	}

	deps.MetricInc(deps.Metrics.SessionRevoked)
	deps.MetricInc(deps.Metrics.SessionIssued)
	deps.EmitAudit(ctx, deps.Events.SessionIssued, true, acc.ID, nil, func() map[string]string {
		return map[string]string{
			"regenerate": "true",
		}
	})
	return token, nil
}

// RunDestroySessionToken ends one session. With a window of one or less every
// token is cleared, since the account holds a single session by definition.
func RunDestroySessionToken(ctx context.Context, acc *account.Account, token string, deps SessionDeps) error {
	if deps.MaxSessions <= 1 {
		return RunDestroyAllSessionTokens(ctx, acc, deps)
	}
	normalizeSessionDeps(&deps)

	err := mutateSessions(ctx, acc, deps, func(tokens []string) []string {
		return session.Revoke(tokens, token)
	})
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.SessionRevoked, false, acc.ID, err, nil)
		return err
	}
	deps.MetricInc(deps.Metrics.SessionRevoked)
	deps.EmitAudit(ctx, deps.Events.SessionRevoked, true, acc.ID, nil, nil)
	return nil
}

// RunDestroyAllSessionTokens clears the session window.
func RunDestroyAllSessionTokens(ctx context.Context, acc *account.Account, deps SessionDeps) error {
	normalizeSessionDeps(&deps)

	err := mutateSessions(ctx, acc, deps, session.RevokeAll)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.SessionRevokedAll, false, acc.ID, err, nil)
		return err
	}
	deps.MetricInc(deps.Metrics.SessionRevokedAll)
	deps.EmitAudit(ctx, deps.Events.SessionRevokedAll, true, acc.ID, nil, nil)
	return nil
}

// mutateSessions applies fn to a copy of the account and saves it. On a
// version conflict the account is reloaded and fn re-applied to the fresh
// token set, up to ConflictRetries times. acc is only overwritten once a save
// succeeds.
func mutateSessions(ctx context.Context, acc *account.Account, deps SessionDeps, fn func([]string) []string) error {
	if deps.Save == nil {
		return deps.Errors.EngineNotReady
	}

	base := acc
	for attempt := 0; ; attempt++ {
		work := base.Clone()
		work.SessionTokens = fn(work.SessionTokens)

		err := deps.Save(ctx, work)
		if err == nil {
			*acc = *work
			return nil
		}
		if !errors.Is(err, account.ErrConflict) || deps.Reload == nil || attempt >= deps.ConflictRetries {
			deps.MetricInc(deps.Metrics.PersistenceFailure)
			return deps.MapStoreError(err)
		}

		deps.MetricInc(deps.Metrics.ConflictRetry)
		fresh, reloadErr := deps.Reload(ctx, acc.ID)
		if reloadErr != nil {
			deps.MetricInc(deps.Metrics.PersistenceFailure)
			return deps.MapStoreError(reloadErr)
		}
		base = fresh
	}
}

func normalizeSessionDeps(deps *SessionDeps) {
	if deps.ConflictRetries < 0 {
		deps.ConflictRetries = 0
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

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
