package models

import "time"

// PaymentStatus values used by the payout state machine.
type PaymentStatus string

const (
	PaymentPending         PaymentStatus = "pending"
	PaymentActGenerated    PaymentStatus = "act_generated"
	PaymentSentForSigning  PaymentStatus = "sent_for_signing"
	PaymentSigned          PaymentStatus = "signed"
	PaymentReadyForPayment PaymentStatus = "ready_for_payment"
	PaymentCompleted       PaymentStatus = "completed"
	PaymentFailed          PaymentStatus = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

// PayoutRoute selects how a payment is carried to the agent.
type PayoutRoute string

const (
	RouteManual   PayoutRoute = "manual"   // act + OTP signing
	RouteProvider PayoutRoute = "provider" // external payment provider
)

// Payment is a payout request. Gross is debited from the agent's balance at
// request time (reservation). The tax snapshot (TaxStatus/Tax/Social/Net) is
// computed once at request time and never recomputed; recomputing tax later
// must not change a settled payment's figures.
type Payment struct {
	ID          int           `json:"id"`
	AgentID     int           `json:"agent_id"`
	Gross       int64         `json:"gross"`
	TaxStatus   TaxStatus     `json:"tax_status"`
	Tax         int64         `json:"tax"`
	Social      int64         `json:"social"`
	Net         int64         `json:"net"`
	Status      PaymentStatus `json:"status"`
	Route       PayoutRoute   `json:"route"`
	JumpStatus  int           `json:"jump_status,omitempty"` // provider overlay, 0 = none
	ActID       *int          `json:"act_id,omitempty"`
	PayoutRef   *string       `json:"payout_ref,omitempty"`
	FailReason  *string       `json:"fail_reason,omitempty"`
	RequestedAt time.Time     `json:"requested_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// CompletionItem is one payment in a batch completion request. PayoutRef may
// be empty for provider-routed payments; the provider assigns one.
type CompletionItem struct {
	PaymentID int    `json:"payment_id"`
	PayoutRef string `json:"payout_ref,omitempty"`
}

// BatchOpResult reports the fate of one payment in a batch operation.
type BatchOpResult struct {
	PaymentID int    `json:"payment_id"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}
