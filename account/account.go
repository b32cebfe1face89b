package account

import (
	"strings"
	"time"
)

// Account is the authenticable entity. Session tokens are ordered most-recent-last.
//
// Confirmation fields and recovery fields are mutated only by the Engine flows;
// RecoveryToken and RecoverySentAt are always set and cleared together.
type Account struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PendingEmail string `json:"pending_email,omitempty"`
	PasswordHash string `json:"password_hash,omitempty"`

	SessionTokens []string `json:"session_tokens,omitempty"`

	ConfirmationToken  string     `json:"confirmation_token,omitempty"`
	ConfirmationSentAt *time.Time `json:"confirmation_sent_at,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`

	RecoveryToken  string     `json:"recovery_token,omitempty"`
	RecoverySentAt *time.Time `json:"recovery_sent_at,omitempty"`

	// Version is the optimistic-lock counter. Repositories reject a Save whose
	// Version does not match the stored one and bump it on success.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate a working copy without
// touching the original until persistence succeeds.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	if a.SessionTokens != nil {
		out.SessionTokens = append([]string(nil), a.SessionTokens...)
	}
	out.ConfirmationSentAt = cloneTime(a.ConfirmationSentAt)
	out.ConfirmedAt = cloneTime(a.ConfirmedAt)
	out.RecoverySentAt = cloneTime(a.RecoverySentAt)
	return &out
}

// IsConfirmed reports whether ConfirmedAt is set.
func (a *Account) IsConfirmed() bool {
	return a != nil && a.ConfirmedAt != nil
}

// HasPassword reports whether a credential hash has been stored.
func (a *Account) HasPassword() bool {
	return a != nil && a.PasswordHash != ""
}

// LastSessionToken returns the most recently issued session token, or "".
func (a *Account) LastSessionToken() string {
	if a == nil || len(a.SessionTokens) == 0 {
		return ""
	}
	return a.SessionTokens[len(a.SessionTokens)-1]
}

// ClearRecovery drops the recovery token pair.
func (a *Account) ClearRecovery() {
	a.RecoveryToken = ""
	a.RecoverySentAt = nil
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SameInstant compares two optional timestamps.
func SameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// TimePtr returns a pointer to a UTC copy of t.
func TimePtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
