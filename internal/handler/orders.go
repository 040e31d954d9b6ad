package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/lester-loyalty/internal/domain/auth"
	"github.com/xenking/lester-loyalty/internal/domain/ledger"
)

type documentsRequest struct {
	Payment       string `json:"payment" validate:"required"`
	OriginalOrder string `json:"originalOrder" validate:"required"`
}

type submitOrderRequest struct {
	CustomerID string           `json:"customerId" validate:"required"`
	Folio      string           `json:"folio" validate:"max=64"`
	Date       string           `json:"date" validate:"max=32"`
	Amount     decimal.Decimal  `json:"amount"`
	Documents  documentsRequest `json:"documents"`
	Notes      string           `json:"notes" validate:"max=2000"`
}

type rejectOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) submitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, _ := auth.FromContext(r.Context())

	o, err := h.ledger.Submit(r.Context(), ledger.SubmitRequest{
		CustomerID: req.CustomerID,
		AgentID:    p.ID,
		Folio:      req.Folio,
		Date:       req.Date,
		Amount:     req.Amount,
		Documents: ledger.Documents{
			Payment:       req.Documents.Payment,
			OriginalOrder: req.Documents.OriginalOrder,
		},
		Notes: req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.metrics.submitted.Add(r.Context(), 1)
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("ledger.order.id", o.ID),
		attribute.String("ledger.customer.id", o.CustomerID),
	)
	writeJSON(w, http.StatusCreated, o)
}

// listOrders returns every order to admins and only their own to agents.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var f ledger.OrderFilter
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := ledger.ParseStatus(s)
		if err != nil {
			writeError(w, r, &ledger.ValidationError{Field: "status", Reason: err.Error()})
			return
		}
		f.Status = status
	}
	if p, _ := auth.FromContext(r.Context()); !p.IsAdmin() {
		f.AgentID = p.ID
	}

	orders, err := h.ledger.Orders(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	o, err := h.ledger.Order(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Agents cannot tell other agents' orders apart from missing ones.
	if p, _ := auth.FromContext(r.Context()); !p.IsAdmin() && o.AgentID != p.ID {
		writeError(w, r, &ledger.NotFoundError{Kind: "order", ID: id})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) approveOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, _ := auth.FromContext(r.Context())
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("ledger.order.id", id))

	res, err := h.ledger.Approve(r.Context(), id, p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	points, _ := res.Order.Awarded()
	h.metrics.decision(r.Context(), "approved")
	h.metrics.awarded.Add(r.Context(), points)
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("ledger.customer.id", res.Customer.ID),
		attribute.Int64("ledger.points.awarded", points),
	)
	writeJSON(w, http.StatusOK, struct {
		Order    ledger.Order    `json:"order"`
		Customer ledger.Customer `json:"customer"`
	}{Order: res.Order, Customer: res.Customer})
}

func (h *Handler) rejectOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req rejectOrderRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, _ := auth.FromContext(r.Context())
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("ledger.order.id", id))

	o, err := h.ledger.Reject(r.Context(), id, req.Reason, p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.metrics.decision(r.Context(), "rejected")
	writeJSON(w, http.StatusOK, o)
}
