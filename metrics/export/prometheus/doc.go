// Package prometheus renders mvauth metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts an [mvauth.Engine] and exposes an
// [net/http.Handler] that renders every mvauth counter and histogram.
// Counter names are prefixed mvauth_*_total; the single histogram is
// mvauth_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the
//     Handler.
//   - Mutate engine state.
package prometheus
