package notify

import (
	"context"
	"errors"

	jwtAuth "github.com/MrEthical07/jwtAuth"
)

// Multi delivers to every notifier in order. All notifiers are attempted; the
// returned error joins every failure.
type Multi []jwtAuth.Notifier

func (m Multi) NotifyConfirmationInstructions(ctx context.Context, n jwtAuth.Notification) error {
	return m.each(func(x jwtAuth.Notifier) error { return x.NotifyConfirmationInstructions(ctx, n) })
}

func (m Multi) NotifyRecoveryInstructions(ctx context.Context, n jwtAuth.Notification) error {
	return m.each(func(x jwtAuth.Notifier) error { return x.NotifyRecoveryInstructions(ctx, n) })
}

func (m Multi) NotifyCredentialChanged(ctx context.Context, n jwtAuth.Notification) error {
	return m.each(func(x jwtAuth.Notifier) error { return x.NotifyCredentialChanged(ctx, n) })
}

func (m Multi) NotifyEmailChanged(ctx context.Context, n jwtAuth.Notification) error {
	return m.each(func(x jwtAuth.Notifier) error { return x.NotifyEmailChanged(ctx, n) })
}

func (m Multi) each(fn func(jwtAuth.Notifier) error) error {
	var errs []error
	for _, x := range m {
		if x == nil {
			continue
		}
		if err := fn(x); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ jwtAuth.Notifier = (*KafkaNotifier)(nil)
	_ jwtAuth.Notifier = (*LogNotifier)(nil)
	_ jwtAuth.Notifier = Multi(nil)
)
