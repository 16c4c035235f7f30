package models

import "time"

// OTPSession is a short-lived signing code. The code itself is stored hashed;
// the session is deleted on first successful verification.
type OTPSession struct {
	CodeHash    []byte     `json:"code_hash"`
	Channel     OTPChannel `json:"channel"`
	Destination string     `json:"destination"`
	IssuedAt    time.Time  `json:"issued_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Attempts    int        `json:"attempts"`
}
