// Package prometheus renders woosession metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] accepts a [woosession.Engine] and exposes an [http.Handler]
// for a /metrics route. Cart operations share woosession_cart_operations_total
// labelled by operation; token rejections share woosession_session_rejected_total
// labelled by reason. The latency histogram is woosession_cart_operation_duration_seconds
// and is only rendered when latency histograms are enabled.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
