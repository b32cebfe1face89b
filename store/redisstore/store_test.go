package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/jwtAuth/account"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreTest(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return New(rdb, WithPrefix("t")), mr
}

func testAccount() *account.Account {
	return &account.Account{
		ID:            "acc-1",
		Email:         "user@example.com",
		PasswordHash:  "hash",
		SessionTokens: []string{"s1"},
	}
}

func TestCreateAndLoad(t *testing.T) {
	store, _ := newStoreTest(t)
	ctx := context.Background()
	acc := testAccount()

	if err := store.Create(ctx, acc); err != nil {
		t.Fatalf("create: %v", err)
	}
	if acc.Version != 1 || acc.CreatedAt.IsZero() {
		t.Fatalf("expected version 1 and timestamps, got %+v", acc)
	}

	byEmail, err := store.Load(ctx, account.Criteria{Field: account.ByEmail, Value: "user@example.com"})
	if err != nil || byEmail.ID != acc.ID {
		t.Fatalf("load by email: %v %+v", err, byEmail)
	}
	bySession, err := store.FindBySessionToken(ctx, "s1")
	if err != nil || bySession.ID != acc.ID {
		t.Fatalf("find by session token: %v", err)
	}
	if _, err := store.FindByID(ctx, "nope"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	store, _ := newStoreTest(t)
	ctx := context.Background()

	if err := store.Create(ctx, testAccount()); err != nil {
		t.Fatalf("create: %v", err)
	}
	other := testAccount()
	other.ID = "acc-2"
	if err := store.Create(ctx, other); !errors.Is(err, account.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestSaveRewritesIndexes(t *testing.T) {
	store, mr := newStoreTest(t)
	ctx := context.Background()
	acc := testAccount()
	if err := store.Create(ctx, acc); err != nil {
		t.Fatalf("create: %v", err)
	}

	acc.SessionTokens = []string{"s2"}
	acc.ConfirmationToken = "c1"
	acc.ConfirmationSentAt = account.TimePtr(time.Now())
	if err := store.Save(ctx, acc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if acc.Version != 2 {
		t.Fatalf("expected version bump, got %d", acc.Version)
	}

	if mr.Exists("t:sess:s1") {
		t.Fatal("evicted session token index must be removed")
	}
	if _, err := store.FindBySessionToken(ctx, "s1"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("evicted token must not resolve, got %v", err)
	}
	got, err := store.Load(ctx, account.Criteria{Field: account.ByConfirmationToken, Value: "c1"})
	if err != nil || got.ConfirmationSentAt == nil {
		t.Fatalf("load by confirmation token: %v %+v", err, got)
	}

	acc.ConfirmationToken = ""
	acc.ConfirmationSentAt = nil
	if err := store.Save(ctx, acc); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if mr.Exists("t:conf:c1") {
		t.Fatal("cleared confirmation token index must be removed")
	}
}

func TestSaveStaleVersionConflicts(t *testing.T) {
	store, _ := newStoreTest(t)
	ctx := context.Background()
	acc := testAccount()
	if err := store.Create(ctx, acc); err != nil {
		t.Fatalf("create: %v", err)
	}

	stale := acc.Clone()
	acc.SessionTokens = append(acc.SessionTokens, "s2")
	if err := store.Save(ctx, acc); err != nil {
		t.Fatalf("save: %v", err)
	}

	stale.SessionTokens = []string{"other"}
	if err := store.Save(ctx, stale); !errors.Is(err, account.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if stale.Version != 1 {
		t.Fatal("a rejected save must not bump the caller's version")
	}
}

func TestSaveEmailChangeRespectsUniqueness(t *testing.T) {
	store, mr := newStoreTest(t)
	ctx := context.Background()
	first := testAccount()
	second := testAccount()
	second.ID = "acc-2"
	second.Email = "second@example.com"
	second.SessionTokens = nil
	for _, a := range []*account.Account{first, second} {
		if err := store.Create(ctx, a); err != nil {
			t.Fatalf("create %s: %v", a.ID, err)
		}
	}

	second.Email = first.Email
	if err := store.Save(ctx, second); !errors.Is(err, account.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	second.Email = "renamed@example.com"
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if mr.Exists("t:email:second@example.com") {
		t.Fatal("old email index must be released")
	}
}

func TestLoadIgnoresDanglingIndex(t *testing.T) {
	store, mr := newStoreTest(t)
	ctx := context.Background()
	acc := testAccount()
	if err := store.Create(ctx, acc); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := mr.Set("t:rec:ghost", acc.ID); err != nil {
		t.Fatalf("seed dangling index: %v", err)
	}
	if _, err := store.Load(ctx, account.Criteria{Field: account.ByRecoveryToken, Value: "ghost"}); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("dangling index must not resolve, got %v", err)
	}
}

func TestRedisUnavailable(t *testing.T) {
	store, mr := newStoreTest(t)
	mr.Close()

	_, err := store.FindByID(context.Background(), "acc-1")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
