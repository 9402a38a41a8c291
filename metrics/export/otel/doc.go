// Package otel binds woosession counters and histograms to OpenTelemetry instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per metric family. Cart
// operations are reported on woosession_cart_operations_total with an operation
// attribute and rejections on woosession_session_rejected_total with a reason
// attribute. The latency histogram is exposed as a bucket gauge keyed by le plus a
// count gauge. A single callback reads [woosession.Engine.MetricsSnapshot] on each
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
