package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/lester-loyalty/internal/domain/ledger"
)

type customerRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Location    string `json:"location" validate:"max=200"`
	ClientType  string `json:"clientType" validate:"max=100"`
	AgentName   string `json:"agentName" validate:"max=200"`
	AccountType string `json:"accountType" validate:"max=100"`
}

func (c customerRequest) profile() ledger.Profile {
	return ledger.Profile{
		Name:        c.Name,
		Location:    c.Location,
		ClientType:  c.ClientType,
		AgentName:   c.AgentName,
		AccountType: c.AccountType,
	}
}

func (h *Handler) rankCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customers, err := h.ledger.Ranking(r.Context(), ledger.RankingFilter{
		Level: q.Get("level"),
		Agent: q.Get("agent"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.ledger.Customer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) customerRewards(w http.ResponseWriter, r *http.Request) {
	c, err := h.ledger.Customer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	rewards, err := h.rewards.Available(r.Context(), c.Points)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *Handler) registerCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.ledger.Register(r.Context(), req.profile())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.ledger.UpdateProfile(r.Context(), chi.URLParam(r, "id"), req.profile())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteCustomer(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
