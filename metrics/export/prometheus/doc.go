// Package prometheus exposes engine metrics through a client_golang
// Collector.
//
// Counter names are jwtauth_*_total; the single histogram is
// jwtauth_resolve_latency_seconds. Register the Collector with any registry,
// or mount Handler for a standalone /metrics endpoint.
package prometheus
