package notify

import (
	"errors"
	"net/url"
	"strings"

	jwtAuth "github.com/MrEthical07/jwtAuth"
)

// ErrMissingLink is returned when a token-bearing notification has no base
// URL configured for its kind.
var ErrMissingLink = errors.New("notify: link base url not configured")

const (
	confirmationTokenParam = "confirmation_token"
	recoveryTokenParam     = "reset_password_token"
)

// Links holds the base URLs the recipient is sent to. The token is appended as
// a query parameter.
type Links struct {
	ConfirmationURL string `mapstructure:"confirmation_url"`
	RecoveryURL     string `mapstructure:"recovery_url"`
}

// For returns the link to embed in n, or "" for kinds that carry no token.
func (l Links) For(n jwtAuth.Notification) (string, error) {
	switch n.Kind {
	case jwtAuth.NotificationConfirmationInstructions:
		return withToken(l.ConfirmationURL, confirmationTokenParam, n.Token)
	case jwtAuth.NotificationRecoveryInstructions:
		return withToken(l.RecoveryURL, recoveryTokenParam, n.Token)
	default:
		return "", nil
	}
}

func withToken(base, param, token string) (string, error) {
	if base == "" {
		return "", ErrMissingLink
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + param + "=" + url.QueryEscape(token), nil
}
