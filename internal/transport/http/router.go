// Package httptransport assembles the HTTP surface. It should delegate to
// domain services without embedding business logic so transport concerns
// remain isolated.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	contractorhandler "paygate/internal/contractor/handler"
	documenthandler "paygate/internal/document/handler"
	invoicehandler "paygate/internal/invoice/handler"
	"paygate/internal/sweep"
	"paygate/internal/verifylink"
	"paygate/pkg/platform/httputil"
	"paygate/pkg/platform/middleware/requestid"
	"paygate/pkg/platform/middleware/requesttime"
)

// Registrar mounts a handler's routes on the router.
type Registrar interface {
	Register(r chi.Router)
}

// SweepRunner triggers one full compliance sweep on demand.
type SweepRunner interface {
	Run(ctx context.Context) (sweep.Report, error)
}

// Deps carries everything the router mounts.
type Deps struct {
	Contractors *contractorhandler.Handler
	Documents   *documenthandler.Handler
	Invoices    *invoicehandler.Handler
	VerifyLinks *verifylink.Handler
	Sweeper     SweepRunner
	Registry    prometheus.Gatherer
	Logger      *slog.Logger
}

// NewRouter wires all endpoints behind the shared middleware stack.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	for _, registrar := range []Registrar{d.Contractors, d.Documents, d.Invoices, d.VerifyLinks} {
		registrar.Register(r)
	}

	r.Post("/admin/sweep", handleSweep(d.Sweeper, d.Logger))

	return r
}

// handleSweep handles POST /admin/sweep, the manual counterpart of the
// daily ticker. The sweep is idempotent, so an extra run is always safe.
func handleSweep(runner SweepRunner, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		report, err := runner.Run(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "manual sweep failed", "error", err)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, report)
	}
}
