package notify

import (
	"context"

	jwtAuth "github.com/MrEthical07/jwtAuth"
	"go.uber.org/zap"
)

// LogNotifier writes every notification, link included, to a zap logger.
// Meant for local development where no broker runs.
type LogNotifier struct {
	logger *zap.Logger
	links  Links
}

func NewLogNotifier(logger *zap.Logger, links Links) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notify"), links: links}
}

func (l *LogNotifier) NotifyConfirmationInstructions(_ context.Context, n jwtAuth.Notification) error {
	return l.log(n)
}

func (l *LogNotifier) NotifyRecoveryInstructions(_ context.Context, n jwtAuth.Notification) error {
	return l.log(n)
}

func (l *LogNotifier) NotifyCredentialChanged(_ context.Context, n jwtAuth.Notification) error {
	return l.log(n)
}

func (l *LogNotifier) NotifyEmailChanged(_ context.Context, n jwtAuth.Notification) error {
	return l.log(n)
}

func (l *LogNotifier) log(n jwtAuth.Notification) error {
	link, err := l.links.For(n)
	if err != nil {
		return err
	}
	fields := []zap.Field{
		zap.String("kind", string(n.Kind)),
		zap.String("recipient", n.Recipient),
	}
	if n.Account != nil {
		fields = append(fields, zap.String("account_id", n.Account.ID))
	}
	if link != "" {
		fields = append(fields, zap.String("link", link))
	}
	l.logger.Info("notification", fields...)
	return nil
}
