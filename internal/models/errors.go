package models

import (
	"errors"
	"fmt"
)

var (
	ErrAgentNotFound    = errors.New("models: agent not found")
	ErrAgentInactive    = errors.New("models: agent is deactivated")
	ErrReferralNotFound = errors.New("models: referral not found")
	ErrPaymentNotFound  = errors.New("models: payment not found")
	ErrActNotFound      = errors.New("models: act not found")

	ErrUnknownTaxStatus  = errors.New("self-employment status is not declared")
	ErrBelowMinimum      = errors.New("payout amount is below the minimum threshold")
	ErrNoVerifiedChannel = errors.New("agent has no verified signing channel")

	ErrOTPNotFound  = errors.New("otp: session not found")
	ErrOTPExpired   = errors.New("otp: code expired")
	ErrOTPMismatch  = errors.New("otp: code mismatch")
	ErrOTPExhausted = errors.New("otp: attempt limit reached")
	ErrOTPCooldown  = errors.New("otp: resend cooldown is active")

	ErrInvalidTierTable = errors.New("commission tier table is invalid")
)

// InsufficientFundsError reports a payout request exceeding the available
// balance; the actual balance is returned to the caller (§7).
type InsufficientFundsError struct {
	Available int64
	Requested int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %d, available %d", e.Requested, e.Available)
}

// StateConflictError reports an operation against an entity whose state
// changed concurrently. Safe to retry after re-reading the current state.
type StateConflictError struct {
	Entity  string
	ID      int
	Current string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s %d is in state %q", e.Entity, e.ID, e.Current)
}
