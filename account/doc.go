// Package account defines the authenticable Account record, the structured
// field-error set returned by account operations, and the Repository contract
// that persistence backends implement.
//
// # Architecture boundaries
//
// This package is a leaf: it owns the data model and the storage contract only.
// Token issuance, confirmation and recovery policy live in the Engine and in
// internal/flows. Concrete repositories live under store/.
//
// # What this package must NOT do
//
//   - Import jwtAuth, session, or any store implementation.
//   - Hash, verify, or hold plaintext secrets.
//   - Perform I/O.
package account
