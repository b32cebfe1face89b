package jwtAuth

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"
)

// AuditEvent is one security-relevant outcome of an engine operation.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Flow      Flow              `json:"flow,omitempty"`
	AccountID string            `json:"account_id,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// sensitiveMetadataKeys name material that must never reach a sink, whatever
// the caller put in the metadata map.
var sensitiveMetadataKeys = []string{"token", "secret", "password", "hash"}

// redactMetadata drops keys naming token or credential material and masks
// email addresses in the remaining values. The input map is not modified.
func redactMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return in
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if isSensitiveKey(k) {
			continue
		}
		if strings.Contains(v, "@") {
			v = maskEmail(v)
		}
		out[k] = v
	}
	return out
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveMetadataKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// FlowFilterSink forwards only the events of the listed flows, for consumers
// that watch a single lifecycle such as recovery.
type FlowFilterSink struct {
	next  AuditSink
	flows map[Flow]struct{}
}

func NewFlowFilterSink(next AuditSink, flows ...Flow) *FlowFilterSink {
	set := make(map[Flow]struct{}, len(flows))
	for _, f := range flows {
		set[f] = struct{}{}
	}
	return &FlowFilterSink{next: next, flows: set}
}

func (s *FlowFilterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.next == nil {
		return
	}
	if _, ok := s.flows[event.Flow]; ok {
		s.next.Emit(ctx, event)
	}
}

// ChannelSink forwards events to a buffered channel for in-process consumers.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}
