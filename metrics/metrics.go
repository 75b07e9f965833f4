// Package metrics holds the Prometheus collectors of the registry and the
// server that exposes them.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruteri/holder-address-registry/common"
)

const namespace = common.PackageName

var (
	// Registrations counts registration attempts by result
	// (success, invalid_address, invalid_primary, not_eligible, conflict, store_error).
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Registration attempts by result",
	}, []string{"result"})

	// Exports counts export requests by result (success, unauthorized, store_error).
	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exports_total",
		Help:      "Export requests by result",
	}, []string{"result"})

	// ArchiveFailures counts export snapshots that could not be archived.
	ArchiveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "export_archive_failures_total",
		Help:      "Export snapshots that failed to archive",
	})

	// OwnershipChecks counts ownership gate evaluations by result (eligible, not_eligible).
	OwnershipChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ownership_checks_total",
		Help:      "Ownership gate evaluations by result",
	}, []string{"result"})

	// OwnershipContractErrors counts per-contract balance queries that failed and were treated as zero.
	OwnershipContractErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ownership_contract_errors_total",
		Help:      "Failed balanceOf queries treated as zero balance",
	})
)

// MetricsServer serves /metrics on its own listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server listening on addr. The server is not started.
func New(addr string) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// ListenAndServe blocks until the server stops.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
