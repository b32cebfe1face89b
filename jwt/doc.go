// Package jwt signs and verifies bearer credentials that carry the session
// payload ({"auth_token": ...} or {"id": ...}) as JWT claims.
//
// Ed25519 and HS256 are supported. Parsing pins the algorithm, checks issuer,
// audience and expiry with an optional leeway, and supports key rotation via a
// kid-indexed verify key set.
package jwt
