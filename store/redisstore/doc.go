// Package redisstore implements account.Repository on Redis.
//
// Each account is one JSON document under "<prefix>:acct:<id>". Lookups by
// email, session token, confirmation token and recovery token go through
// index keys holding the account id; index keys are rewritten in the same
// MULTI as the document.
//
// # What this package must NOT do
//
//   - Interpret account state. Validation and lifecycle rules live in the engine.
//   - Expire documents. Token expiry is computed from timestamps, not TTLs.
package redisstore
