package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IssuanceAttempts counts finished certificate issuance attempts by
// provider and result (issued/failed).
var IssuanceAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ssl_issuance_attempts_total",
		Help: "Total number of finished SSL issuance attempts",
	},
	[]string{"provider", "result"},
)

// NewServer creates an HTTP server serving /metrics (Prometheus) and /healthz.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}
