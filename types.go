package jwtAuth

import (
	"context"

	"github.com/MrEthical07/jwtAuth/account"
)

// Result reports field-level validation failures of a mutating operation.
// An empty Errors set means the operation was accepted; infrastructure
// failures are returned as the accompanying error instead.
type Result struct {
	Errors account.Errors
}

// OK reports whether no field errors were recorded.
func (r Result) OK() bool {
	return r.Errors.Empty()
}

// LoginResult is returned by Engine.Login. Bearer is empty when JWT signing
// is disabled; SessionToken is empty in stateless mode.
type LoginResult struct {
	Account      *account.Account
	SessionToken string
	Bearer       string
}

// CredentialUpdate changes the secret and optionally the email in one write.
// CurrentSecret is only checked when the account already has a password.
type CredentialUpdate struct {
	CurrentSecret string
	NewSecret     string
	Email         *string
}

// AccountUpdate is a non-credential update. A nil Email leaves it unchanged.
type AccountUpdate struct {
	Email *string
}

// NotificationKind names the message a Notifier is asked to deliver.
type NotificationKind string

const (
	NotificationConfirmationInstructions NotificationKind = "confirmation_instructions"
	NotificationRecoveryInstructions     NotificationKind = "recovery_instructions"
	NotificationCredentialChanged        NotificationKind = "credential_changed"
	NotificationEmailChanged             NotificationKind = "email_changed"
)

// Notification is handed to a Notifier after the triggering state change was
// persisted. Account is a snapshot; mutating it has no effect on the engine.
//
// Recipient is the address the message must go to: the pending address for
// confirmation instructions during an email change, the current address
// otherwise. Token is the confirmation or recovery token, empty for
// credential-changed and email-changed notices.
type Notification struct {
	Kind      NotificationKind
	Account   *account.Account
	Recipient string
	Token     string
}

// Notifier delivers out-of-band messages. Implementations must not block for
// long; a returned error surfaces as ErrNotificationFailed with the state
// change already persisted.
type Notifier interface {
	NotifyConfirmationInstructions(ctx context.Context, n Notification) error
	NotifyRecoveryInstructions(ctx context.Context, n Notification) error
	NotifyCredentialChanged(ctx context.Context, n Notification) error
	NotifyEmailChanged(ctx context.Context, n Notification) error
}

// NoOpNotifier accepts every notification and delivers nothing.
type NoOpNotifier struct{}

func (NoOpNotifier) NotifyConfirmationInstructions(context.Context, Notification) error {
	return nil
}

func (NoOpNotifier) NotifyRecoveryInstructions(context.Context, Notification) error {
	return nil
}

func (NoOpNotifier) NotifyCredentialChanged(context.Context, Notification) error {
	return nil
}

func (NoOpNotifier) NotifyEmailChanged(context.Context, Notification) error {
	return nil
}

func confirmationNotification(acc *account.Account) Notification {
	recipient := acc.Email
	if acc.PendingEmail != "" {
		recipient = acc.PendingEmail
	}
	return Notification{
		Kind:      NotificationConfirmationInstructions,
		Account:   acc,
		Recipient: recipient,
		Token:     acc.ConfirmationToken,
	}
}

func recoveryNotification(acc *account.Account) Notification {
	return Notification{
		Kind:      NotificationRecoveryInstructions,
		Account:   acc,
		Recipient: acc.Email,
		Token:     acc.RecoveryToken,
	}
}

func credentialChangedNotification(acc *account.Account) Notification {
	return Notification{
		Kind:      NotificationCredentialChanged,
		Account:   acc,
		Recipient: acc.Email,
	}
}

func emailChangedNotification(acc *account.Account) Notification {
	return Notification{
		Kind:      NotificationEmailChanged,
		Account:   acc,
		Recipient: acc.Email,
	}
}
