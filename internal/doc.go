// Package internal contains helpers private to jwtAuth.
//
// NewToken is the token generator used for session, confirmation and recovery
// tokens. The flows sub-package holds the orchestration behind every Engine
// operation.
package internal
