package tier

import (
	"fmt"

	"medrefBack/internal/models"
)

// The tier table is global and admin-configured: an ordered list of
// (minimum monthly revenue, commission rate) steps. The resolved rate applies
// forward within the month; already-settled referrals are only recomputed by
// an explicit administrative action.

var (
	ErrEmptyTable      = fmt.Errorf("tier: table is empty: %w", models.ErrInvalidTierTable)
	ErrNoZeroThreshold = fmt.Errorf("tier: first tier must have a zero threshold: %w", models.ErrInvalidTierTable)
)

// Validate checks an ordered tier table: the default tier has threshold 0,
// thresholds strictly ascend, rates stay within (0, 10000] basis points.
func Validate(tiers []models.CommissionTier) error {
	if len(tiers) == 0 {
		return ErrEmptyTable
	}
	if tiers[0].MinRevenue != 0 {
		return ErrNoZeroThreshold
	}
	for i, tr := range tiers {
		if tr.RateBps <= 0 || tr.RateBps > 10000 {
			return fmt.Errorf("tier: rate %d bps out of range at index %d: %w", tr.RateBps, i, models.ErrInvalidTierTable)
		}
		if i > 0 && tr.MinRevenue <= tiers[i-1].MinRevenue {
			return fmt.Errorf("tier: thresholds must strictly ascend at index %d: %w", i, models.ErrInvalidTierTable)
		}
	}
	return nil
}

// Resolve returns the rate whose threshold is the highest one at or below the
// accumulated monthly revenue. The table must have been validated.
func Resolve(tiers []models.CommissionTier, monthRevenue int64) int64 {
	rate := tiers[0].RateBps
	for _, tr := range tiers {
		if monthRevenue >= tr.MinRevenue {
			rate = tr.RateBps
		}
	}
	return rate
}

// Commission computes round-half-up(amount * rate), all integer kopecks.
func Commission(amount, rateBps int64) int64 {
	return (amount*rateBps + 5000) / 10000
}
