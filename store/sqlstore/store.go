package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/jwtAuth/account"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// ErrDatabase wraps driver and query failures.
var ErrDatabase = errors.New("sql store failure")

// Store is an account.Repository on a bun database. Session tokens live in a
// child table ordered by position; every write replaces the token rows in the
// same transaction as the account row.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New wraps an existing bun database. Call Migrate before first use when the
// schema is not managed elsewhere.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenSQLite opens dsn through the sqlite shim and migrates the schema.
// ":memory:" databases are pinned to one connection so every query sees the
// same tables.
func OpenSQLite(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrDatabase, err)
	}
	if strings.Contains(dsn, ":memory:") {
		sqldb.SetMaxOpenConns(1)
	}

	s := New(bun.NewDB(sqldb, sqlitedialect.New()), opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the tables and lookup indexes if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{(*accountRow)(nil), (*sessionTokenRow)(nil)}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("%w: create table: %v", ErrDatabase, err)
		}
	}

	indexes := []struct {
		model  any
		name   string
		column string
	}{
		{(*sessionTokenRow)(nil), "account_session_tokens_account_id_idx", "account_id"},
		{(*accountRow)(nil), "accounts_confirmation_token_idx", "confirmation_token"},
		{(*accountRow)(nil), "accounts_recovery_token_idx", "recovery_token"},
	}
	for _, idx := range indexes {
		_, err := s.db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("%w: create index %s: %v", ErrDatabase, idx.name, err)
		}
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, acc *account.Account) error {
	if acc == nil || acc.ID == "" {
		return errors.New("sqlstore: account id required")
	}

	now := s.now().UTC()
	next := acc.Clone()
	next.Version = 1
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := tx.NewSelect().
			Model((*accountRow)(nil)).
			Where("email = ? OR id = ?", next.Email, next.ID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if taken {
			return account.ErrDuplicate
		}

		if _, err := tx.NewInsert().Model(toRow(next)).Exec(ctx); err != nil {
			return err
		}
		return insertTokens(ctx, tx, next)
	})
	if err != nil {
		return dbError(err)
	}

	*acc = *next
	return nil
}

// Save updates the account row guarded by "version = ?" and rewrites its
// session token rows. Zero affected rows means another writer won.
func (s *Store) Save(ctx context.Context, acc *account.Account) error {
	if acc == nil || acc.ID == "" {
		return errors.New("sqlstore: account id required")
	}

	next := acc.Clone()
	next.Version = acc.Version + 1
	next.UpdatedAt = s.now().UTC()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := tx.NewSelect().
			Model((*accountRow)(nil)).
			Where("email = ?", next.Email).
			Where("id <> ?", next.ID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if taken {
			return account.ErrDuplicate
		}

		res, err := tx.NewUpdate().
			Model(toRow(next)).
			WherePK().
			Where("version = ?", acc.Version).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			exists, err := tx.NewSelect().Model((*accountRow)(nil)).Where("id = ?", next.ID).Exists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				return account.ErrNotFound
			}
			return account.ErrConflict
		}

		if _, err := tx.NewDelete().
			Model((*sessionTokenRow)(nil)).
			Where("account_id = ?", next.ID).
			Exec(ctx); err != nil {
			return err
		}
		return insertTokens(ctx, tx, next)
	})
	if err != nil {
		return dbError(err)
	}

	*acc = *next
	return nil
}

func (s *Store) Load(ctx context.Context, criteria account.Criteria) (*account.Account, error) {
	if criteria.Value == "" {
		return nil, account.ErrNotFound
	}

	var row accountRow
	q := s.db.NewSelect().Model(&row)
	switch criteria.Field {
	case account.ByID:
		q = q.Where("id = ?", criteria.Value)
	case account.ByEmail:
		q = q.Where("email = ?", criteria.Value)
	case account.ByConfirmationToken:
		q = q.Where("confirmation_token = ?", criteria.Value)
	case account.ByRecoveryToken:
		q = q.Where("recovery_token = ?", criteria.Value)
	case account.BySessionToken:
		sub := s.db.NewSelect().
			Model((*sessionTokenRow)(nil)).
			Column("account_id").
			Where("token = ?", criteria.Value)
		q = q.Where("id IN (?)", sub)
	default:
		return nil, fmt.Errorf("sqlstore: unsupported lookup %s", criteria.Field)
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		return nil, dbError(err)
	}
	return s.withTokens(ctx, s.db, &row)
}

func (s *Store) FindByID(ctx context.Context, id string) (*account.Account, error) {
	return s.Load(ctx, account.Criteria{Field: account.ByID, Value: id})
}

func (s *Store) FindBySessionToken(ctx context.Context, token string) (*account.Account, error) {
	return s.Load(ctx, account.Criteria{Field: account.BySessionToken, Value: token})
}

func (s *Store) withTokens(ctx context.Context, db bun.IDB, row *accountRow) (*account.Account, error) {
	var tokens []sessionTokenRow
	err := db.NewSelect().
		Model(&tokens).
		Where("account_id = ?", row.ID).
		Order("position ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, dbError(err)
	}
	return fromRows(row, tokens), nil
}

func insertTokens(ctx context.Context, tx bun.Tx, acc *account.Account) error {
	rows := tokenRows(acc)
	if len(rows) == 0 {
		return nil
	}
	_, err := tx.NewInsert().Model(&rows).Exec(ctx)
	return err
}

func dbError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return account.ErrNotFound
	case errors.Is(err, account.ErrNotFound),
		errors.Is(err, account.ErrConflict),
		errors.Is(err, account.ErrDuplicate):
		return err
	case isUniqueViolation(err, "accounts.email"):
		return account.ErrDuplicate
	default:
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
}

// isUniqueViolation matches the sqlite constraint message for column.
func isUniqueViolation(err error, column string) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
