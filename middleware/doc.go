// Package middleware adapts Engine bearer resolution to net/http.
//
// # Guards
//
//   - [Guard] resolves the Authorization bearer to an account and stores it in
//     the request context.
//   - [RequireConfirmed] rejects requests whose resolved account has not
//     confirmed its email. It must run behind Guard.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Routes,
// controllers and response bodies belong to the host application.
//
// # What this package must NOT do
//
//   - Parse or create bearer credentials directly (delegates to Engine).
//   - Touch the repository.
package middleware
