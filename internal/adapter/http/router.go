package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veilflow/veilflow/internal/adapter/http/handler"
	"github.com/veilflow/veilflow/internal/adapter/http/middleware"
	"github.com/veilflow/veilflow/internal/infrastructure/metrics"
	"github.com/veilflow/veilflow/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	EntityHandler    *handler.EntityHandler
	AccountHandler   *handler.AccountHandler
	TransferHandler  *handler.TransferHandler
	WorkflowHandler  *handler.WorkflowHandler
	ExecutionHandler *handler.ExecutionHandler
	AuditHandler     *handler.AuditHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	Metrics          *metrics.Metrics
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health and observability endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Entities
		r.Route("/entities", func(r chi.Router) {
			r.Post("/", cfg.EntityHandler.Create)
			r.Get("/", cfg.EntityHandler.List)
			r.Get("/{id}", cfg.EntityHandler.Get)
			r.Delete("/{id}", cfg.EntityHandler.Delete)
			r.Get("/{id}/accounts", cfg.EntityHandler.ListAccounts)
		})

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Put("/{id}/active", cfg.AccountHandler.SetActive)
			r.Get("/{id}/transactions", cfg.AccountHandler.ListTransactions)
		})

		// Ledger
		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", cfg.TransferHandler.Create)
		})
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/import", cfg.TransferHandler.Import)
			r.Get("/{id}", cfg.TransferHandler.GetTransaction)
		})
		r.Get("/ledger/consistency", cfg.TransferHandler.Consistency)

		// Workflows
		r.Route("/workflows", func(r chi.Router) {
			r.Post("/", cfg.WorkflowHandler.Create)
			r.Get("/", cfg.WorkflowHandler.List)
			r.Get("/{id}", cfg.WorkflowHandler.Get)
			r.Get("/{id}/graph", cfg.WorkflowHandler.GetGraph)
			r.Put("/{id}/graph", cfg.WorkflowHandler.UpdateGraph)
			r.Post("/{id}/activate", cfg.WorkflowHandler.Activate)
			r.Post("/{id}/pause", cfg.WorkflowHandler.Pause)
			r.Post("/{id}/archive", cfg.WorkflowHandler.Archive)
			r.Post("/{id}/trigger", cfg.ExecutionHandler.Trigger)
			r.Get("/{id}/executions", cfg.ExecutionHandler.ListByWorkflow)
		})

		// Executions
		r.Route("/executions", func(r chi.Router) {
			r.Get("/{id}", cfg.ExecutionHandler.Get)
			r.Get("/{id}/outcomes", cfg.ExecutionHandler.Outcomes)
			r.Get("/{id}/transactions", cfg.ExecutionHandler.Transactions)
			r.Post("/{id}/cancel", cfg.ExecutionHandler.Cancel)
			r.Post("/{id}/resume", cfg.ExecutionHandler.Resume)
		})

		// Audit trail
		r.Get("/audit", cfg.AuditHandler.List)
	})

	return r
}
