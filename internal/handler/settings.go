package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/lester-loyalty/internal/domain/ledger"
)

// settingsBody is both the GET response and the PUT request. Threshold and
// ratio rules are enforced by the ledger so they surface as 422.
type settingsBody struct {
	Levels     []ledger.Threshold `json:"levels"`
	PointRatio decimal.Decimal    `json:"pointRatio"`
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.ledger.Settings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsBody{Levels: s.Levels, PointRatio: s.Config.PointRatio})
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsBody
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	err := h.ledger.UpdateSettings(r.Context(), ledger.Settings{
		Levels: req.Levels,
		Config: ledger.Config{PointRatio: req.PointRatio},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.getSettings(w, r)
}

func (h *Handler) recalculateLevels(w http.ResponseWriter, r *http.Request) {
	customers, err := h.ledger.Recalculate(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}
