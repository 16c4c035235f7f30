package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"medrefBack/internal/models"
	"medrefBack/internal/services"
)

type ReferralHandler struct {
	Service *services.ReferralService
}

func (h *ReferralHandler) CreateReferral(w http.ResponseWriter, r *http.Request) {
	var ref models.Referral
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	created, err := h.Service.Submit(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ReferralHandler) ListByAgent(w http.ResponseWriter, r *http.Request) {
	agentID, err := strconv.Atoi(r.URL.Query().Get(":agent_id"))
	if err != nil {
		http.Error(w, "invalid agent_id", http.StatusBadRequest)
		return
	}
	referrals, err := h.Service.ListByAgent(r.Context(), agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, referrals)
}

// OverrideStatus is the call-center move along the referral funnel.
func (h *ReferralHandler) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		Status models.ReferralStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.Service.OverrideStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
