package models

import "time"

// Act certifies services rendered for one payment. Immutable once signed.
type Act struct {
	ID        int        `json:"id"`
	PaymentID int        `json:"payment_id"`
	Number    string     `json:"number"`
	Date      time.Time  `json:"date"`
	Total     int64      `json:"total"`
	OTPKey    string     `json:"-"` // signing session reference
	SignedAt  *time.Time `json:"signed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
