// Package handler exposes the ledger over a JSON HTTP API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/lester-loyalty/internal/domain/agent"
	"github.com/xenking/lester-loyalty/internal/domain/auth"
	"github.com/xenking/lester-loyalty/internal/domain/ledger"
	"github.com/xenking/lester-loyalty/internal/domain/reward"
)

// Handler serves the /api routes.
type Handler struct {
	ledger   *ledger.Service
	agents   *agent.Service
	rewards  *reward.Service
	security *Security
	validate *validator.Validate
	metrics  *ledgerMetrics
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	meterProvider metric.MeterProvider,
	ledgerService *ledger.Service,
	agentService *agent.Service,
	rewardService *reward.Service,
	security *Security,
) (*Handler, error) {
	m, err := newLedgerMetrics(meterProvider)
	if err != nil {
		return nil, errors.Wrap(err, "create metrics")
	}
	return &Handler{
		ledger:   ledgerService,
		agents:   agentService,
		rewards:  rewardService,
		security: security,
		validate: newValidator(),
		metrics:  m,
	}, nil
}

// Routes builds the router. mws run inside the router, after route matching
// state is available to RoutePattern.
func (h *Handler) Routes(mws ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(mws...)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Code: http.StatusNotFound, Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Code: http.StatusMethodNotAllowed, Message: "method not allowed"})
	})

	admin := RequireRole(auth.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.security.Authenticate)

		r.Route("/orders", func(r chi.Router) {
			r.With(RequireRole(auth.RoleAgent)).Post("/", h.submitOrder)
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
			r.With(admin).Post("/{id}/approve", h.approveOrder)
			r.With(admin).Post("/{id}/reject", h.rejectOrder)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.rankCustomers)
			r.Get("/{id}", h.getCustomer)
			r.Get("/{id}/rewards", h.customerRewards)
			r.With(admin).Post("/", h.registerCustomer)
			r.With(admin).Put("/{id}", h.updateCustomer)
			r.With(admin).Delete("/{id}", h.deleteCustomer)
		})

		r.With(admin).Get("/settings", h.getSettings)
		r.With(admin).Put("/settings", h.updateSettings)
		r.With(admin).Post("/levels/recalculate", h.recalculateLevels)

		r.Route("/agents", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", h.listAgents)
			r.Post("/", h.createAgent)
			r.Get("/{id}", h.getAgent)
			r.Put("/{id}", h.updateAgent)
			r.Delete("/{id}", h.deleteAgent)
		})

		r.Route("/rewards", func(r chi.Router) {
			r.Get("/", h.listRewards)
			r.With(admin).Post("/", h.createReward)
			r.With(admin).Put("/{id}", h.updateReward)
			r.With(admin).Delete("/{id}", h.deleteReward)
		})
	})

	return r
}

// RoutePattern returns the chi route pattern matched for r.
func RoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
