// Package observability exposes the replicator's prometheus metrics over
// HTTP for scraping.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupPrometheus registers the /metrics endpoint on mux. Metrics are
// registered with the default registry by the packages that own them.
func SetupPrometheus(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
