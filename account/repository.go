package account

import "context"

// LookupField selects which attribute a Criteria matches on.
type LookupField int

const (
	ByID LookupField = iota
	ByEmail
	BySessionToken
	ByConfirmationToken
	ByRecoveryToken
)

func (f LookupField) String() string {
	switch f {
	case ByID:
		return "id"
	case ByEmail:
		return "email"
	case BySessionToken:
		return "session_token"
	case ByConfirmationToken:
		return "confirmation_token"
	case ByRecoveryToken:
		return "recovery_token"
	default:
		return "unknown"
	}
}

// Criteria is a single-attribute lookup. BySessionToken matches on membership
// in the account's session token sequence.
type Criteria struct {
	Field LookupField
	Value string
}

// Repository persists accounts. Implementations must store every field the
// Engine mutates atomically and enforce optimistic locking on Version:
//
//   - Create stores a new account, sets Version to 1, and returns ErrDuplicate
//     when the email is already taken.
//   - Save rejects a stale Version with ErrConflict, otherwise writes all
//     fields and increments acc.Version in place.
//   - Load, FindByID and FindBySessionToken return ErrNotFound on a miss.
type Repository interface {
	Create(ctx context.Context, acc *Account) error
	Save(ctx context.Context, acc *Account) error
	Load(ctx context.Context, criteria Criteria) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	FindBySessionToken(ctx context.Context, token string) (*Account, error)
}
