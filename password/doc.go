// Package password implements credential hashing and verification.
//
// Two algorithms are available behind the [Hasher] interface: argon2id
// (default, PHC string format) and bcrypt. Both compare in constant time.
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// caller can re-hash on the next successful authentication.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Credential policy (which
// secrets are required when) is enforced by the Engine flows.
//
// # What this package must NOT do
//
//   - Store or retrieve credentials. Callers supply plaintext and receive hashes.
//   - Import any other jwtAuth package.
//   - Log plaintext secrets or hash parameters at runtime.
package password
