// Package handler exposes the ledger over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/infra/observability"
	"github.com/boddenberg/interest-ledger-go/internal/port"
	"github.com/boddenberg/interest-ledger-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// A nil auth leaves rule writes open; a nil idem disables idempotency keys.
func NewRouter(
	svc *service.LedgerService,
	auth *service.OperatorAuth,
	idem port.Cache[port.StoredResponse],
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	var idempotent func(http.Handler) http.Handler
	if idem != nil {
		idempotent = IdempotencyMiddleware(idem, metrics, logger)
	}
	writes := func(h http.HandlerFunc) http.Handler {
		if idempotent == nil {
			return h
		}
		return idempotent(h)
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Transactions
		// =============================================
		r.Method(http.MethodPost, "/accounts/{accountId}/transactions", writes(postTransactionHandler(svc, logger)))
		r.Get("/accounts/{accountId}/transactions", listTransactionsHandler(svc, logger))

		// =============================================
		// 2. Statements
		// =============================================
		r.Get("/accounts/{accountId}/statements/{period}", statementHandler(svc, logger))

		// =============================================
		// 3. Interest rules
		// =============================================
		r.Get("/interest-rules", listRulesHandler(svc))
		r.Group(func(r chi.Router) {
			if auth != nil {
				r.Use(OperatorAuthMiddleware(auth, logger))
			}
			r.Method(http.MethodPost, "/interest-rules", writes(postRuleHandler(svc, logger)))
		})

		// =============================================
		// 4. Metrics
		// =============================================
		r.Get("/metrics/ledger", ledgerMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(svc *service.LedgerService) http.HandlerFunc {
	started := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status":         "healthy",
			"uptime_seconds": int64(time.Since(started).Seconds()),
			"checked_at":     time.Now().UTC().Format(time.RFC3339),
		}
		if svc != nil {
			resp["accounts"] = svc.AccountCount()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func ledgerMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
