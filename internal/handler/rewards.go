package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/lester-loyalty/internal/domain/reward"
)

type rewardRequest struct {
	PointsRequired int64  `json:"pointsRequired" validate:"gte=0"`
	Description    string `json:"description" validate:"required,max=500"`
	IsActive       bool   `json:"isActive"`
}

func (rr rewardRequest) input() reward.Input {
	return reward.Input{PointsRequired: rr.PointsRequired, Description: rr.Description, IsActive: rr.IsActive}
}

func (h *Handler) listRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *Handler) createReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rw, err := h.rewards.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rw)
}

func (h *Handler) updateReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rw, err := h.rewards.Update(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rw)
}

func (h *Handler) deleteReward(w http.ResponseWriter, r *http.Request) {
	if err := h.rewards.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
