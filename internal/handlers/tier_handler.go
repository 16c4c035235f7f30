package handlers

import (
	"encoding/json"
	"net/http"

	"medrefBack/internal/models"
	"medrefBack/internal/services"
)

type TierHandler struct {
	Ledger *services.LedgerService
}

func (h *TierHandler) GetTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.Ledger.TierTable(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tiers)
}

// ReplaceTiers swaps the whole table. The new rates apply forward; settled
// referrals keep their figures until an explicit recompute.
func (h *TierHandler) ReplaceTiers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tiers []models.CommissionTier `json:"tiers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.Ledger.ReplaceTierTable(r.Context(), req.Tiers); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecomputeMonth re-prices a settled month at its final rate. Administrative.
func (h *TierHandler) RecomputeMonth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID int    `json:"agent_id"`
		Month   string `json:"month"` // YYYY-MM
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AgentID <= 0 || len(req.Month) != 7 {
		http.Error(w, "agent_id and month (YYYY-MM) are required", http.StatusBadRequest)
		return
	}
	updated, delta, err := h.Ledger.RecomputeMonth(r.Context(), req.AgentID, req.Month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updated_referrals": updated,
		"balance_delta":     delta,
	})
}
