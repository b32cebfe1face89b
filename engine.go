package jwtAuth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/jwtAuth/account"
	"github.com/MrEthical07/jwtAuth/internal"
	"github.com/MrEthical07/jwtAuth/jwt"
	"github.com/MrEthical07/jwtAuth/password"
	"github.com/MrEthical07/jwtAuth/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine coordinates the account token lifecycle: session tokens, credential
// changes, email confirmation and recovery. It holds no per-account state;
// every operation reads and writes through the configured Repository.
//
// Engine is safe for concurrent use once built.
type Engine struct {
	config       Config
	repository   account.Repository
	notifier     Notifier
	logger       *zap.Logger
	clock        func() time.Time
	audit        *auditDispatcher
	metrics      *Metrics
	passwordHash password.Hasher
	jwtManager   *jwt.Manager
}

// Close flushes pending audit events and stops the audit goroutine.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

// AuditDropped returns how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// SessionMode reports the session mode selected by
// Sessions.MaxSimultaneousSessions.
func (e *Engine) SessionMode() session.Mode {
	if e == nil {
		return session.ModeStateless
	}
	return session.ModeFor(e.config.Sessions.MaxSimultaneousSessions)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) flowMetricInc(id int) {
	e.metricInc(MetricID(id))
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

func (e *Engine) ready() bool {
	return e != nil && e.repository != nil && e.passwordHash != nil
}

/*
====================================
REPOSITORY ADAPTERS
====================================
*/

func (e *Engine) loadBy(field account.LookupField) func(context.Context, string) (*account.Account, error) {
	return func(ctx context.Context, value string) (*account.Account, error) {
		return e.repository.Load(ctx, account.Criteria{Field: field, Value: value})
	}
}

func newAccountID() string {
	return uuid.NewString()
}

/*
====================================
NOTIFIER ADAPTERS
====================================
*/

func (e *Engine) notifyConfirmation(ctx context.Context, acc *account.Account) error {
	return e.notifier.NotifyConfirmationInstructions(ctx, confirmationNotification(acc))
}

func (e *Engine) notifyRecovery(ctx context.Context, acc *account.Account) error {
	return e.notifier.NotifyRecoveryInstructions(ctx, recoveryNotification(acc))
}

func (e *Engine) notifyCredentialChanged(ctx context.Context, acc *account.Account) error {
	return e.notifier.NotifyCredentialChanged(ctx, credentialChangedNotification(acc))
}

func (e *Engine) notifyEmailChanged(ctx context.Context, acc *account.Account) error {
	return e.notifier.NotifyEmailChanged(ctx, emailChangedNotification(acc))
}

/*
====================================
LOGGING
====================================
*/

// logOutcome records infrastructure failures. Validation failures are the
// caller's business and are not logged.
func (e *Engine) logOutcome(ctx context.Context, operation string, acc *account.Account, err error) {
	if e == nil || e.logger == nil || err == nil {
		return
	}

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Error(err),
	}
	if acc != nil {
		fields = append(fields,
			zap.String("account_id", acc.ID),
			zap.String("email", maskEmail(acc.Email)),
		)
	}
	if id := requestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	switch {
	case errors.Is(err, ErrNotificationFailed):
		e.logger.Warn("notification not delivered, state already persisted", fields...)
	case errors.Is(err, ErrPersistenceFailed), errors.Is(err, ErrEngineNotReady):
		e.logger.Error("account operation failed", fields...)
	case errors.Is(err, ErrConflict):
		e.logger.Warn("account write lost a concurrent update", fields...)
	default:
		e.logger.Debug("account operation rejected", fields...)
	}
}

// maskEmail keeps the first character of the local part and the domain.
func maskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		if email == "" {
			return ""
		}
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// newToken is the single source of opaque tokens for every flow.
var newToken = internal.NewToken
