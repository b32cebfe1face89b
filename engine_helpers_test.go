package jwtAuth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/jwtAuth/account"
	"github.com/MrEthical07/jwtAuth/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingNotifier keeps every notification and fails the kinds listed in
// fail.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	fail map[NotificationKind]error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{fail: map[NotificationKind]error{}}
}

func (r *recordingNotifier) record(n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.fail[n.Kind]
}

func (r *recordingNotifier) NotifyConfirmationInstructions(_ context.Context, n Notification) error {
	return r.record(n)
}

func (r *recordingNotifier) NotifyRecoveryInstructions(_ context.Context, n Notification) error {
	return r.record(n)
}

func (r *recordingNotifier) NotifyCredentialChanged(_ context.Context, n Notification) error {
	return r.record(n)
}

func (r *recordingNotifier) NotifyEmailChanged(_ context.Context, n Notification) error {
	return r.record(n)
}

func (r *recordingNotifier) failOn(kind NotificationKind) {
	r.mu.Lock()
	r.fail[kind] = errors.New("smtp down")
	r.mu.Unlock()
}

func (r *recordingNotifier) ofKind(kind NotificationKind) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.sent {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type testHarness struct {
	engine   *Engine
	store    *redisstore.Store
	notifier *recordingNotifier
	clock    *testClock
	redis    *miniredis.Miniredis
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Algorithm = "bcrypt"
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true
	return cfg
}

func newHarness(t testing.TB, mutate func(*Config)) *testHarness {
	t.Helper()
	return newHarnessWithSink(t, mutate, nil)
}

// newHarnessWithSink also routes audit events to sink. Audit stays disabled
// unless mutate enables it.
func newHarnessWithSink(t testing.TB, mutate func(*Config), sink AuditSink) *testHarness {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	clock := newTestClock()
	store := redisstore.New(rdb, redisstore.WithClock(clock.Now))
	notifier := newRecordingNotifier()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	builder := New().
		WithConfig(cfg)
	if sink != nil {
		builder = builder.WithAuditSink(sink)
	}
	engine, err := builder.
		WithRepository(store).
		WithNotifier(notifier).
		WithLogger(zaptest.NewLogger(t)).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testHarness{
		engine:   engine,
		store:    store,
		notifier: notifier,
		clock:    clock,
		redis:    mr,
	}
}

// register creates an account with secret and fails the test on any error.
func (h *testHarness) register(t testing.TB, email, secret string) *account.Account {
	t.Helper()
	acc := &account.Account{Email: email}
	res, err := h.engine.Register(context.Background(), acc, secret)
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	if !res.OK() {
		t.Fatalf("register %s: unexpected field errors %v", email, res.Errors)
	}
	return acc
}

// registerConfirmed registers and confirms through the emailed token.
func (h *testHarness) registerConfirmed(t testing.TB, email, secret string) *account.Account {
	t.Helper()
	acc := h.register(t, email, secret)
	confirmed, res, err := h.engine.ConfirmByToken(context.Background(), acc.ConfirmationToken)
	if err != nil || !res.OK() {
		t.Fatalf("confirm %s: err=%v errs=%v", email, err, res.Errors)
	}
	return confirmed
}

func (h *testHarness) reload(t testing.TB, id string) *account.Account {
	t.Helper()
	acc, err := h.store.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload %s: %v", id, err)
	}
	return acc
}

func strPtr(s string) *string { return &s }
