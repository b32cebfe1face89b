package sqlstore

import (
	"time"

	"github.com/MrEthical07/jwtAuth/account"
	"github.com/uptrace/bun"
)

type accountRow struct {
	bun.BaseModel `bun:"table:accounts,alias:acct"`

	ID                 string     `bun:"id,pk"`
	Email              string     `bun:"email,notnull,unique"`
	PendingEmail       string     `bun:"pending_email"`
	PasswordHash       string     `bun:"password_hash"`
	ConfirmationToken  string     `bun:"confirmation_token"`
	ConfirmationSentAt *time.Time `bun:"confirmation_sent_at,nullzero"`
	ConfirmedAt        *time.Time `bun:"confirmed_at,nullzero"`
	RecoveryToken      string     `bun:"recovery_token"`
	RecoverySentAt     *time.Time `bun:"recovery_sent_at,nullzero"`
	Version            int64      `bun:"version,notnull"`
	CreatedAt          time.Time  `bun:"created_at,notnull"`
	UpdatedAt          time.Time  `bun:"updated_at,notnull"`
}

// sessionTokenRow keeps the ordered token window; Position 0 is the oldest.
type sessionTokenRow struct {
	bun.BaseModel `bun:"table:account_session_tokens,alias:ast"`

	Token     string `bun:"token,pk"`
	AccountID string `bun:"account_id,notnull"`
	Position  int    `bun:"position,notnull"`
}

func toRow(acc *account.Account) *accountRow {
	return &accountRow{
		ID:                 acc.ID,
		Email:              acc.Email,
		PendingEmail:       acc.PendingEmail,
		PasswordHash:       acc.PasswordHash,
		ConfirmationToken:  acc.ConfirmationToken,
		ConfirmationSentAt: acc.ConfirmationSentAt,
		ConfirmedAt:        acc.ConfirmedAt,
		RecoveryToken:      acc.RecoveryToken,
		RecoverySentAt:     acc.RecoverySentAt,
		Version:            acc.Version,
		CreatedAt:          acc.CreatedAt,
		UpdatedAt:          acc.UpdatedAt,
	}
}

func tokenRows(acc *account.Account) []sessionTokenRow {
	rows := make([]sessionTokenRow, 0, len(acc.SessionTokens))
	for i, tok := range acc.SessionTokens {
		rows = append(rows, sessionTokenRow{Token: tok, AccountID: acc.ID, Position: i})
	}
	return rows
}

func fromRows(row *accountRow, tokens []sessionTokenRow) *account.Account {
	acc := &account.Account{
		ID:                 row.ID,
		Email:              row.Email,
		PendingEmail:       row.PendingEmail,
		PasswordHash:       row.PasswordHash,
		ConfirmationToken:  row.ConfirmationToken,
		ConfirmationSentAt: utcPtr(row.ConfirmationSentAt),
		ConfirmedAt:        utcPtr(row.ConfirmedAt),
		RecoveryToken:      row.RecoveryToken,
		RecoverySentAt:     utcPtr(row.RecoverySentAt),
		Version:            row.Version,
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
	}
	if len(tokens) > 0 {
		acc.SessionTokens = make([]string, 0, len(tokens))
		for _, t := range tokens {
			acc.SessionTokens = append(acc.SessionTokens, t.Token)
		}
	}
	return acc
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return account.TimePtr(*t)
}
