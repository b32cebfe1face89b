package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwtAuth "github.com/MrEthical07/jwtAuth"
	"github.com/MrEthical07/jwtAuth/account"
)

// BearerResolver is the part of *jwtAuth.Engine the guards need.
type BearerResolver interface {
	AccountFromBearer(ctx context.Context, bearer string) (*account.Account, error)
}

type accountContextKey struct{}

// AccountFromContext returns the account resolved by Guard.
func AccountFromContext(ctx context.Context) (*account.Account, bool) {
	acc, ok := ctx.Value(accountContextKey{}).(*account.Account)
	return acc, ok && acc != nil
}

// Guard rejects requests without a bearer that resolves to an account.
// Repository failures answer 503 so clients do not discard a valid credential.
func Guard(resolver BearerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			acc, err := resolver.AccountFromBearer(r.Context(), token)
			if err != nil {
				http.Error(w, http.StatusText(statusFor(err)), statusFor(err))
				return
			}

			ctx := context.WithValue(r.Context(), accountContextKey{}, acc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, jwtAuth.ErrPersistenceFailed),
		errors.Is(err, jwtAuth.ErrEngineNotReady),
		errors.Is(err, jwtAuth.ErrBearerDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnauthorized
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
