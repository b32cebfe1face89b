// Package session implements the bounded session-token window and the serialized
// identity payload derived from it.
//
// # Token window
//
// Every account carries an ordered sequence of opaque session tokens, most
// recent last. The configured cap selects a [Mode]: 0 disables tokens entirely
// (payloads carry the account id), 1 keeps a single active token, and N>1 keeps
// a sliding window of the N most recent tokens. All functions are pure and
// never modify their input slices.
//
// # Architecture boundaries
//
// This package owns the token-set arithmetic and the payload wire shape only.
// Persisting the updated sequence and serializing the same account from two
// requests at once are the Repository's concern.
//
// # What this package must NOT do
//
//   - Import jwtAuth, account, or any store implementation.
//   - Generate tokens (callers pass the new token in).
//   - Perform I/O.
package session
