// Package otel binds engine metrics to OpenTelemetry observable instruments.
//
// Each counter becomes an Int64ObservableCounter; the resolve latency
// histogram becomes one cumulative Int64ObservableGauge per bucket plus a
// count gauge. The caller owns the MeterProvider.
package otel
