// Package jwtAuth provides a storage-agnostic token-lifecycle authentication engine:
// opaque session tokens with a bounded simultaneous-session window, password
// credential verification and rotation, email confirmation with pending email
// changes, and password recovery.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build]. Concurrent writes
// to the same account are serialized by the optimistic lock every [account.Repository]
// implements.
//
// # Architecture boundaries
//
// jwtAuth is the public surface. It exposes [Engine], [Builder], [Config], [Notifier] and
// value types ([Result], [LoginResult], [MetricsSnapshot]). Flow orchestration lives under
// internal/flows and is never exported; storage lives behind [account.Repository]
// (store/redisstore, store/sqlstore); delivery lives behind [Notifier] (notify).
//
// Mutating operations return ([Result], error). Result.Errors carries field-level
// validation failures; a non-nil error is an infrastructure outcome such as
// [ErrPersistenceFailed] or [ErrNotificationFailed]. Nothing is partially persisted:
// each operation works on a copy of the account and writes it back only after the
// repository accepted the save.
//
// # What this package must NOT do
//
//   - Render or send email itself. Messages leave through [Notifier] only.
//   - Route HTTP requests or read cookies and headers.
//   - Import any sub-package that re-imports jwtAuth (no import cycles).
package jwtAuth
