// Package metrics documents the Prometheus metrics exposed by the exporter.
// Metrics are defined via promauto in their owning packages to keep them
// next to the code that drives them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the Prometheus registry used by the exporter. All metrics are
// registered automatically via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Reference
//
// Request metrics (pkg/client):
//   - tickers_requests_total{status} (Counter): page requests by HTTP status
//   - tickers_request_duration_seconds (Histogram): page request duration
//   - tickers_errors_total{class} (Counter): fetch errors by class
//
// Retry metrics (pkg/client):
//   - tickers_retries_total{error_class} (Counter): backoff retries by class
//   - tickers_retry_backoff_seconds{error_class} (Histogram): backoff waits
//   - tickers_retry_exhausted_total{error_class} (Counter): exhausted budgets
//   - tickers_rate_limit_waits_total (Counter): 429 cooldown waits
//
// Pacing metrics (pkg/ratelimit):
//   - tickers_pacing_waits_total (Counter): inter-request pacing waits
//
// Pagination metrics (pkg/paginate):
//   - tickers_pages_fetched_total (Counter): pages fetched
//   - tickers_records_accumulated_total (Counter): records accumulated
//
// Sink metrics (pkg/csvsink):
//   - tickers_csv_rows_written_total (Counter): CSV data rows written
//
// Cache metrics (pkg/cache):
//   - tickers_cache_hits_total (Counter): page cache hits
//   - tickers_cache_misses_total (Counter): page cache misses
//   - tickers_cache_errors_total{operation} (Counter): cache operation errors
