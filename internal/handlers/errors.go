package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"medrefBack/internal/models"
)

// writeError maps domain errors to HTTP responses. OTP failures are reported
// generically: the caller never learns whether the code was wrong, expired or
// exhausted.
func writeError(w http.ResponseWriter, err error) {
	var insufficient *models.InsufficientFundsError
	if errors.As(err, &insufficient) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"error":     "insufficient funds",
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
		return
	}
	var conflict *models.StateConflictError
	if errors.As(err, &conflict) {
		http.Error(w, conflict.Error(), http.StatusConflict)
		return
	}

	switch {
	case errors.Is(err, models.ErrAgentNotFound),
		errors.Is(err, models.ErrReferralNotFound),
		errors.Is(err, models.ErrPaymentNotFound),
		errors.Is(err, models.ErrActNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrUnknownTaxStatus),
		errors.Is(err, models.ErrBelowMinimum),
		errors.Is(err, models.ErrInvalidTierTable):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrAgentInactive),
		errors.Is(err, models.ErrNoVerifiedChannel):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, models.ErrOTPCooldown):
		http.Error(w, "код уже отправлен, повторите позже", http.StatusTooManyRequests)
	case errors.Is(err, models.ErrOTPNotFound),
		errors.Is(err, models.ErrOTPExpired),
		errors.Is(err, models.ErrOTPMismatch),
		errors.Is(err, models.ErrOTPExhausted):
		http.Error(w, "код не принят", http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
