package jwtAuth

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/jwtAuth/account"
)

var (
	// ErrUnauthorized is returned when a session payload or bearer credential
	// does not resolve to an account.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidPayload is returned when a session payload is structurally
	// wrong for the configured session mode.
	ErrInvalidPayload = errors.New("invalid session payload")
	// ErrInvalidCredentials is returned by Authenticate for unknown accounts,
	// passwordless accounts and wrong secrets alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountUnconfirmed is returned by Authenticate when confirmation is
	// required for login and the account has not confirmed.
	ErrAccountUnconfirmed = errors.New("account unconfirmed")
	// ErrAccountNotFound is returned when a lookup by id or email misses.
	ErrAccountNotFound = errors.New("account not found")
	// ErrConflict is returned when a write lost an optimistic-lock race and
	// could not be retried.
	ErrConflict = errors.New("account modified concurrently")
	// ErrPersistenceFailed wraps repository failures other than not-found and
	// conflict.
	ErrPersistenceFailed = errors.New("account persistence failed")
	// ErrNotificationFailed wraps notifier failures. The state change that
	// preceded the notification has already been persisted.
	ErrNotificationFailed = errors.New("notification delivery failed")
	// ErrSessionTokensDisabled is returned by session token operations when the
	// simultaneous-session cap is 0.
	ErrSessionTokensDisabled = errors.New("session tokens disabled")
	// ErrBearerDisabled is returned by bearer operations when no signing
	// configuration is present.
	ErrBearerDisabled = errors.New("bearer credentials disabled")
	// ErrEngineNotReady is returned when the engine or one of its required
	// dependencies is missing.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// mapStoreError translates repository sentinels into engine sentinels so
// callers never need to import the account package to classify failures.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, account.ErrConflict):
		return ErrConflict
	case errors.Is(err, account.ErrNotFound):
		return ErrAccountNotFound
	default:
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
}

func mapNotifyError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrNotificationFailed, err)
}
