package flows

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/MrEthical07/jwtAuth/account"
)

var errSaveFailed = errors.New("save failed")

type memStore struct {
	mu       sync.Mutex
	accounts map[string]*account.Account
	saves    int
	failNext error
}

func newMemStore(accs ...*account.Account) *memStore {
	s := &memStore{accounts: map[string]*account.Account{}}
	for _, a := range accs {
		s.accounts[a.ID] = a.Clone()
	}
	return s
}

func (s *memStore) Save(_ context.Context, acc *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	cur, ok := s.accounts[acc.ID]
	if ok && cur.Version != acc.Version {
		return account.ErrConflict
	}
	acc.Version++
	s.accounts[acc.ID] = acc.Clone()
	s.saves++
	return nil
}

func (s *memStore) find(match func(*account.Account) bool) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if match(a) {
			return a.Clone(), nil
		}
	}
	return nil, account.ErrNotFound
}

func (s *memStore) byID(_ context.Context, id string) (*account.Account, error) {
	return s.find(func(a *account.Account) bool { return a.ID == id })
}

func (s *memStore) byConfirmationToken(_ context.Context, token string) (*account.Account, error) {
	return s.find(func(a *account.Account) bool { return a.ConfirmationToken == token })
}

func (s *memStore) byRecoveryToken(_ context.Context, token string) (*account.Account, error) {
	return s.find(func(a *account.Account) bool { return a.RecoveryToken == token })
}

func (s *memStore) stored(id string) *account.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id].Clone()
}

type sequentialTokens struct {
	n int
}

func (s *sequentialTokens) next() string {
	s.n++
	return "tok-" + strconv.Itoa(s.n)
}

type recorder struct {
	calls []*account.Account
	err   error
}

func (r *recorder) notify(_ context.Context, acc *account.Account) error {
	r.calls = append(r.calls, acc)
	return r.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func plainVerify(secret, hash string) (bool, error) {
	return "hashed:"+secret == hash, nil
}

func plainHash(secret string) (string, error) {
	return "hashed:" + secret, nil
}

func confirmedAccount() *account.Account {
	return &account.Account{
		ID:           "acc-1",
		Email:        "old@example.com",
		PasswordHash: "hashed:current",
		ConfirmedAt:  account.TimePtr(testNow.Add(-48 * time.Hour)),
		Version:      1,
	}
}

func unconfirmedAccount() *account.Account {
	return &account.Account{
		ID:           "acc-2",
		Email:        "new@example.com",
		PasswordHash: "hashed:current",
		Version:      1,
	}
}
