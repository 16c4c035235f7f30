package models

// CommissionTier is one step of the global commission table: referrals settled
// while the agent's month revenue is at or above MinRevenue earn RateBps.
// Rates are basis points (700 = 7%), amounts kopecks.
type CommissionTier struct {
	MinRevenue int64 `json:"min_revenue"`
	RateBps    int64 `json:"rate_bps"`
}
