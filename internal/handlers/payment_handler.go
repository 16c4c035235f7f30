package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"medrefBack/internal/models"
	"medrefBack/internal/services"
	"medrefBack/internal/settlement/payout"
)

type PaymentHandler struct {
	Ledger         *services.LedgerService
	Payments       *services.PaymentService
	ProviderSecret string
}

type paymentView struct {
	models.Payment
	DisplayStatus string `json:"display_status"`
}

func (h *PaymentHandler) view(p models.Payment) paymentView {
	return paymentView{Payment: p, DisplayStatus: h.Payments.DisplayStatus(p)}
}

// RequestPayment opens a payout against the agent's available balance.
func (h *PaymentHandler) RequestPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID int                `json:"agent_id"`
		Gross   int64              `json:"gross"`
		Route   models.PayoutRoute `json:"route,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	payment, err := h.Ledger.RequestPayment(r.Context(), req.AgentID, req.Gross, req.Route)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.view(payment))
}

func (h *PaymentHandler) ListByAgent(w http.ResponseWriter, r *http.Request) {
	agentID, err := strconv.Atoi(r.URL.Query().Get(":agent_id"))
	if err != nil {
		http.Error(w, "invalid agent_id", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	payments, err := h.Payments.ListByAgent(r.Context(), agentID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, h.view(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *PaymentHandler) GenerateAct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	act, err := h.Payments.GenerateAct(r.Context(), id, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, act)
}

func (h *PaymentHandler) SendForSigning(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.Payments.SendForSigning(r.Context(), id, time.Now()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PaymentHandler) Sign(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.Payments.Sign(r.Context(), id, req.Code, time.Now()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmReceipt passes a self-employed payment through signing on an
// uploaded NPD receipt instead of an OTP code.
func (h *PaymentHandler) ConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.Payments.ConfirmReceipt(r.Context(), id, time.Now()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PaymentHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentIDs []int `json:"payment_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	results := h.Payments.MarkReady(r.Context(), req.PaymentIDs)
	writeJSON(w, http.StatusOK, results)
}

func (h *PaymentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []models.CompletionItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	results := h.Payments.Complete(r.Context(), req.Items, time.Now())
	writeJSON(w, http.StatusOK, results)
}

func (h *PaymentHandler) Fail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.Payments.Fail(r.Context(), id, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProviderStatus receives the external provider's callback and stores the
// display overlay. The body is authenticated with the shared HMAC secret.
func (h *PaymentHandler) ProviderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if h.ProviderSecret != "" && !payout.VerifyHMAC(body, r.Header.Get("X-Signature"), h.ProviderSecret) {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}
	var req struct {
		JumpStatus int `json:"jump_status"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.Payments.SetProviderStatus(r.Context(), id, req.JumpStatus); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
