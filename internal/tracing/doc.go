// Package tracing keeps the registry's request counters: totals, success
// and failure counts, and the cumulative duration of traced requests.
package tracing
