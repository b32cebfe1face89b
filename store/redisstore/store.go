package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/jwtAuth/account"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport and server failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

const defaultPrefix = "ja"

// Store is an account.Repository keeping each account as a JSON document
// plus one index key per lookup attribute (email, every session token, the
// confirmation token and the recovery token).
//
// Writes run inside WATCH/MULTI on the document key, so a concurrent write
// to the same account surfaces as account.ErrConflict rather than a lost
// update.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithPrefix sets the key namespace. Defaults to "ja".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithClock overrides the time source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		redis:  client,
		prefix: defaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) docKey(id string) string {
	return s.prefix + ":acct:" + id
}

func (s *Store) indexKey(field account.LookupField, value string) string {
	switch field {
	case account.ByEmail:
		return s.prefix + ":email:" + value
	case account.BySessionToken:
		return s.prefix + ":sess:" + value
	case account.ByConfirmationToken:
		return s.prefix + ":conf:" + value
	case account.ByRecoveryToken:
		return s.prefix + ":rec:" + value
	default:
		return ""
	}
}

// indexKeys lists every index key acc should own.
func (s *Store) indexKeys(acc *account.Account) map[string]struct{} {
	keys := make(map[string]struct{}, len(acc.SessionTokens)+3)
	if acc.Email != "" {
		keys[s.indexKey(account.ByEmail, acc.Email)] = struct{}{}
	}
	for _, tok := range acc.SessionTokens {
		if tok != "" {
			keys[s.indexKey(account.BySessionToken, tok)] = struct{}{}
		}
	}
	if acc.ConfirmationToken != "" {
		keys[s.indexKey(account.ByConfirmationToken, acc.ConfirmationToken)] = struct{}{}
	}
	if acc.RecoveryToken != "" {
		keys[s.indexKey(account.ByRecoveryToken, acc.RecoveryToken)] = struct{}{}
	}
	return keys
}

// Create stores a new account. The email index key doubles as the uniqueness
// guard.
func (s *Store) Create(ctx context.Context, acc *account.Account) error {
	if acc == nil || acc.ID == "" {
		return errors.New("redisstore: account id required")
	}

	docKey := s.docKey(acc.ID)
	emailKey := s.indexKey(account.ByEmail, acc.Email)

	now := s.now().UTC()
	next := acc.Clone()
	next.Version = 1
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now

	data, err := json.Marshal(next)
	if err != nil {
		return err
	}

	err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, docKey, emailKey).Result()
		if err != nil {
			return unavailable(err)
		}
		if n > 0 {
			return account.ErrDuplicate
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, docKey, data, 0)
			for key := range s.indexKeys(next) {
				pipe.Set(ctx, key, next.ID, 0)
			}
			return nil
		})
		return err
	}, docKey, emailKey)
	if err != nil {
		return s.txError(err)
	}

	*acc = *next
	return nil
}

// Save writes every field of acc when acc.Version matches the stored
// version, then bumps acc.Version.
func (s *Store) Save(ctx context.Context, acc *account.Account) error {
	if acc == nil || acc.ID == "" {
		return errors.New("redisstore: account id required")
	}

	docKey := s.docKey(acc.ID)
	emailKey := s.indexKey(account.ByEmail, acc.Email)

	next := acc.Clone()
	next.Version = acc.Version + 1
	next.UpdatedAt = s.now().UTC()

	data, err := json.Marshal(next)
	if err != nil {
		return err
	}

	err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, acc.ID)
		if err != nil {
			return err
		}
		if current.Version != acc.Version {
			return account.ErrConflict
		}

		if current.Email != next.Email {
			owner, err := tx.Get(ctx, emailKey).Result()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return unavailable(err)
			case owner != next.ID:
				return account.ErrDuplicate
			}
		}

		stale := s.indexKeys(current)
		fresh := s.indexKeys(next)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, docKey, data, 0)
			for key := range stale {
				if _, keep := fresh[key]; !keep {
					pipe.Del(ctx, key)
				}
			}
			for key := range fresh {
				pipe.Set(ctx, key, next.ID, 0)
			}
			return nil
		})
		return err
	}, docKey, emailKey)
	if err != nil {
		return s.txError(err)
	}

	*acc = *next
	return nil
}

// Load resolves criteria through its index key and re-checks the matched
// document, so an index entry left behind by a crashed writer never returns
// the wrong account.
func (s *Store) Load(ctx context.Context, criteria account.Criteria) (*account.Account, error) {
	if criteria.Value == "" {
		return nil, account.ErrNotFound
	}
	if criteria.Field == account.ByID {
		return s.read(ctx, s.redis, criteria.Value)
	}

	key := s.indexKey(criteria.Field, criteria.Value)
	if key == "" {
		return nil, fmt.Errorf("redisstore: unsupported lookup %s", criteria.Field)
	}

	id, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, account.ErrNotFound
		}
		return nil, unavailable(err)
	}

	acc, err := s.read(ctx, s.redis, id)
	if err != nil {
		return nil, err
	}
	if !matches(acc, criteria) {
		return nil, account.ErrNotFound
	}
	return acc, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*account.Account, error) {
	return s.Load(ctx, account.Criteria{Field: account.ByID, Value: id})
}

func (s *Store) FindBySessionToken(ctx context.Context, token string) (*account.Account, error) {
	return s.Load(ctx, account.Criteria{Field: account.BySessionToken, Value: token})
}

// getter is the read side shared by *redis.Tx and the client.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) read(ctx context.Context, c getter, id string) (*account.Account, error) {
	data, err := c.Get(ctx, s.docKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, account.ErrNotFound
		}
		return nil, unavailable(err)
	}

	var acc account.Account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("redisstore: decode account %s: %w", id, err)
	}
	return &acc, nil
}

func (s *Store) txError(err error) error {
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return account.ErrConflict
	case errors.Is(err, account.ErrConflict),
		errors.Is(err, account.ErrDuplicate),
		errors.Is(err, account.ErrNotFound),
		errors.Is(err, ErrRedisUnavailable):
		return err
	default:
		return unavailable(err)
	}
}

func matches(acc *account.Account, c account.Criteria) bool {
	switch c.Field {
	case account.ByID:
		return acc.ID == c.Value
	case account.ByEmail:
		return acc.Email == c.Value
	case account.BySessionToken:
		for _, tok := range acc.SessionTokens {
			if tok == c.Value {
				return true
			}
		}
		return false
	case account.ByConfirmationToken:
		return acc.ConfirmationToken == c.Value
	case account.ByRecoveryToken:
		return acc.RecoveryToken == c.Value
	default:
		return false
	}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}
