package models

import "time"

// TaxStatus is the agent's self-employment declaration used for payout withholding.
type TaxStatus string

const (
	TaxSelfEmployed TaxStatus = "self_employed"
	TaxIndividual   TaxStatus = "individual"
	TaxUnknown      TaxStatus = "unknown"
)

// OTPChannel is the verified channel used to deliver signing codes.
type OTPChannel string

const (
	ChannelEmail    OTPChannel = "email"
	ChannelTelegram OTPChannel = "telegram"
)

// Agent is a referring party (doctor/coordinator). Agents are never deleted,
// only deactivated. All money fields are kopecks.
type Agent struct {
	ID              int        `json:"id"`
	FullName        string     `json:"full_name"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	TaxStatus       TaxStatus  `json:"tax_status"`
	Balance         int64      `json:"balance"`
	LifetimeEarned  int64      `json:"lifetime_earned"`
	LifetimePaidOut int64      `json:"lifetime_paid_out"`
	BonusPoints     int64      `json:"bonus_points"`
	PaidReferrals   int        `json:"paid_referrals"`
	OTPChannel      OTPChannel `json:"otp_channel,omitempty"`
	OTPDestination  string     `json:"-"`
	FCMToken        string     `json:"-"`
	Active          bool       `json:"active"`
	CreatedAt       time.Time  `json:"created_at"`
}

// BalanceBreakdown is the dashboard aggregate for an agent.
type BalanceBreakdown struct {
	AgentID         int   `json:"agent_id"`
	Available       int64 `json:"available"`
	Reserved        int64 `json:"reserved"`
	LifetimeEarned  int64 `json:"lifetime_earned"`
	LifetimePaidOut int64 `json:"lifetime_paid_out"`
	BonusPoints     int64 `json:"bonus_points"`
	PaidReferrals   int   `json:"paid_referrals"`
	MonthRevenue    int64 `json:"month_revenue"`
}
