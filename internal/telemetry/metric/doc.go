// Package metric provides Prometheus metrics for kkmgate.
//
//   - prometheus.go: the Registry and its gateway metrics
//   - collector.go: gauges sampled from live components at scrape time
//   - expose.go: text exposition for the metrics route
//
// The gateway has no net/http server, so metrics are rendered by the
// gateway's own "metrics" route rather than promhttp.
package metric
