// Package observability provides the service's prometheus metrics and
// OpenTelemetry tracing.
//
// Every Collector owns its registry, so tests can create as many as they
// like. The HTTP middleware records request counts and latencies by chi route
// pattern and opens a server span per request.
package observability
