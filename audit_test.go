package jwtAuth

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func auditEnabled(c *Config) {
	c.Audit.Enabled = true
	c.Audit.BufferSize = 64
	c.Audit.DropIfFull = false
}

// drain collects events until want have arrived or the deadline passes.
func drain(sink *ChannelSink, want int) []AuditEvent {
	events := make([]AuditEvent, 0, want)
	timeout := time.After(2 * time.Second)
	for len(events) < want {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		case <-timeout:
			return events
		}
	}
	return events
}

func findEvent(events []AuditEvent, eventType string, success bool) (AuditEvent, bool) {
	for _, ev := range events {
		if ev.EventType == eventType && ev.Success == success {
			return ev, true
		}
	}
	return AuditEvent{}, false
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	h := newHarnessWithSink(t, nil, sink)

	h.register(t, "quiet@example.com", "pw")
	if _, err := h.engine.Login(context.Background(), "quiet@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	h.engine.Close()

	if got := sink.Count(); got != 0 {
		t.Fatalf("expected no sink calls with audit disabled, got %d", got)
	}
}

func TestAuditEventsCarryContextFields(t *testing.T) {
	sink := NewChannelSink(64)
	h := newHarnessWithSink(t, auditEnabled, sink)

	acc := h.register(t, "audited@example.com", "pw")
	ctx := WithClientIP(WithRequestID(context.Background(), "req-42"), "203.0.113.7")
	if _, err := h.engine.Login(ctx, "audited@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := h.engine.Login(ctx, "audited@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	// register, confirmation_sent, login_success, session_issued, login_failure
	events := drain(sink, 5)

	if _, ok := findEvent(events, auditEventAccountRegister, true); !ok {
		t.Fatalf("expected account_register event, got %+v", events)
	}
	if _, ok := findEvent(events, auditEventConfirmationSent, true); !ok {
		t.Fatalf("expected confirmation_sent event, got %+v", events)
	}

	success, ok := findEvent(events, auditEventLoginSuccess, true)
	if !ok {
		t.Fatalf("expected login_success event, got %+v", events)
	}
	if success.AccountID != acc.ID || success.RequestID != "req-42" || success.IP != "203.0.113.7" {
		t.Fatalf("unexpected login_success fields %+v", success)
	}
	if !success.Timestamp.Equal(h.clock.Now()) {
		t.Fatalf("expected timestamp from engine clock, got %v", success.Timestamp)
	}

	failure, ok := findEvent(events, auditEventLoginFailure, false)
	if !ok {
		t.Fatalf("expected login_failure event, got %+v", events)
	}
	if failure.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("expected classified error code, got %q", failure.Error)
	}

	issued, ok := findEvent(events, auditEventSessionIssued, true)
	if !ok || issued.Metadata["active"] != "1" {
		t.Fatalf("expected session_issued with active=1, got %+v", issued)
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	sink := NewChannelSink(64)
	h := newHarnessWithSink(t, func(c *Config) {
		auditEnabled(c)
		c.Recovery.RequireConfirmation = false
	}, sink)

	const secret = "correct-password-123"
	acc := h.register(t, "secret@example.com", secret)
	login, err := h.engine.Login(context.Background(), acc.Email, secret)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res, err := h.engine.SendRecoveryInstructions(context.Background(), login.Account); err != nil || !res.OK() {
		t.Fatalf("send recovery: err=%v errs=%v", err, res.Errors)
	}
	recoveryToken := login.Account.RecoveryToken
	if _, res, err := h.engine.ResetCredential(context.Background(), recoveryToken, "next-secret"); err != nil || !res.OK() {
		t.Fatalf("reset: err=%v errs=%v", err, res.Errors)
	}
	h.engine.Close()

	needles := []string{
		secret,
		"next-secret",
		login.SessionToken,
		acc.ConfirmationToken,
		recoveryToken,
		acc.PasswordHash,
	}

	var events []AuditEvent
	for ev := range drainClosed(sink) {
		events = append(events, ev)
	}
	if len(events) == 0 {
		t.Fatal("expected audit events")
	}

	for _, ev := range events {
		for _, needle := range needles {
			if needle == "" {
				continue
			}
			if strings.Contains(ev.Error, needle) {
				t.Fatalf("secret leaked in audit error of %s", ev.EventType)
			}
			for k, v := range ev.Metadata {
				if strings.Contains(k, needle) || strings.Contains(v, needle) {
					t.Fatalf("secret leaked in audit metadata of %s", ev.EventType)
				}
			}
		}
	}
}

// drainClosed yields whatever the sink has buffered without waiting.
func drainClosed(sink *ChannelSink) <-chan AuditEvent {
	out := make(chan AuditEvent, cap(sink.events))
	for {
		select {
		case ev := <-sink.Events():
			out <- ev
		default:
			close(out)
			return out
		}
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventRecoveryReset,
		AccountID: "acc-1",
		Success:   true,
	})
	sink.Emit(context.Background(), AuditEvent{EventType: auditEventLoginFailure})

	if !buf.Contains(`"event_type":"recovery_reset"`) {
		t.Fatal("expected JSON line to contain event type")
	}
	if !buf.Contains(`"account_id":"acc-1"`) {
		t.Fatal("expected JSON line to contain account id")
	}
	if got := buf.Lines(); got != 2 {
		t.Fatalf("expected one line per event, got %d", got)
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	sink := &countingSink{}
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, sink)

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	if got := sink.Count(); got != 1 {
		t.Fatalf("expected buffered event drained on close and later events ignored, got %d", got)
	}
}

func TestAuditErrorCodeClassification(t *testing.T) {
	cases := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrInvalidPayload, auditErrInvalidPayload},
		{ErrAccountNotFound, auditErrAccountNotFound},
		{ErrConflict, auditErrConflict},
		{ErrBearerDisabled, auditErrSessionsDisabled},
		{mapNotifyError(errors.New("smtp")), auditErrNotification},
		{mapStoreError(errors.New("dial")), auditErrUnavailable},
		{errors.New("boom"), auditErrInternal},
	}
	for _, tc := range cases {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Contains(v string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(b.buf.String(), v)
}

func (b *syncBuffer) Lines() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), "\n")
}

func TestAuditDispatcherRedactsMetadata(t *testing.T) {
	sink := NewChannelSink(4)
	dispatcher := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4}, sink)

	metadata := map[string]string{
		"recovery_token": "tok-abc",
		"new_password":   "hunter2",
		"pending_email":  "someone@example.com",
		"reason":         "blank",
	}
	dispatcher.Emit(context.Background(), AuditEvent{EventType: auditEventEmailChange, Metadata: metadata})
	dispatcher.Close()

	ev := <-sink.Events()
	if _, ok := ev.Metadata["recovery_token"]; ok {
		t.Fatal("token keys must be dropped")
	}
	if _, ok := ev.Metadata["new_password"]; ok {
		t.Fatal("password keys must be dropped")
	}
	if got := ev.Metadata["pending_email"]; got != "s***@example.com" {
		t.Fatalf("expected masked address, got %q", got)
	}
	if ev.Metadata["reason"] != "blank" {
		t.Fatalf("plain values must pass through, got %+v", ev.Metadata)
	}
	if metadata["recovery_token"] != "tok-abc" {
		t.Fatal("caller's metadata map must not be modified")
	}
}

func TestAuditEventsCarryFlow(t *testing.T) {
	sink := NewChannelSink(64)
	h := newHarnessWithSink(t, auditEnabled, sink)

	h.register(t, "flows@example.com", "pw")
	if _, err := h.engine.Login(context.Background(), "flows@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	events := drain(sink, 4)

	want := map[string]Flow{
		auditEventAccountRegister:  FlowAccount,
		auditEventConfirmationSent: FlowConfirmation,
		auditEventLoginSuccess:     FlowLogin,
		auditEventSessionIssued:    FlowSession,
	}
	for _, ev := range events {
		if f, ok := want[ev.EventType]; ok && ev.Flow != f {
			t.Fatalf("event %s: flow %q, want %q", ev.EventType, ev.Flow, f)
		}
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), events)
	}
}

func TestFlowFilterSink(t *testing.T) {
	inner := &countingSink{}
	sink := NewFlowFilterSink(inner, FlowRecovery)

	sink.Emit(context.Background(), AuditEvent{EventType: auditEventRecoveryReset, Flow: FlowRecovery})
	sink.Emit(context.Background(), AuditEvent{EventType: auditEventLoginSuccess, Flow: FlowLogin})
	sink.Emit(context.Background(), AuditEvent{EventType: "unclassified"})

	if got := inner.Count(); got != 1 {
		t.Fatalf("expected only the recovery event forwarded, got %d", got)
	}
}

func TestEveryAuditEventHasFlow(t *testing.T) {
	for _, ev := range []string{
		auditEventAccountRegister, auditEventLoginSuccess, auditEventLoginFailure,
		auditEventSessionIssued, auditEventSessionRevoked, auditEventSessionRevokedAll,
		auditEventPayloadRejected, auditEventConfirmationSent, auditEventConfirmationConfirm,
		auditEventAccountUpdate, auditEventCredentialChange, auditEventEmailChange,
		auditEventRecoveryRequest, auditEventRecoveryReset,
	} {
		if auditEventFlow(ev) == "" {
			t.Fatalf("audit event %s has no flow", ev)
		}
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id.Flow() == "" {
			t.Fatalf("metric %d has no flow", id)
		}
	}
}
