package handlers

import (
	"encoding/json"
	"net/http"

	"medrefBack/internal/models"
	"medrefBack/internal/services"
)

type ReconciliationHandler struct {
	Service *services.ReconciliationService
}

// Preview matches an uploaded clinic batch without side effects. The clinic
// operator confirms matched rows before committing them.
func (h *ReconciliationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClinicID int                   `json:"clinic_id"`
		Rows     []models.CandidateRow `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClinicID <= 0 {
		http.Error(w, "clinic_id is required", http.StatusBadRequest)
		return
	}
	preview, err := h.Service.Preview(r.Context(), req.ClinicID, req.Rows)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *ReconciliationHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []models.CommitItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Items) == 0 {
		http.Error(w, "no items to commit", http.StatusBadRequest)
		return
	}
	result, err := h.Service.Commit(r.Context(), req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
