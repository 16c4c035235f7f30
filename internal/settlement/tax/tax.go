package tax

import (
	"errors"

	"medrefBack/internal/models"
)

// Breakdown is the withholding result for one gross payout amount, kopecks.
// NPDEstimate is informational only: self-employed agents pay their own 6%
// turnover tax outside the platform, nothing is withheld.
type Breakdown struct {
	Gross       int64 `json:"gross"`
	Tax         int64 `json:"tax"`
	Social      int64 `json:"social"`
	Net         int64 `json:"net"`
	NPDEstimate int64 `json:"npd_estimate,omitempty"`
}

const (
	incomeTaxPercent = 13
	socialPercent    = 30
	npdPercent       = 6
)

var ErrNegativeGross = errors.New("tax: gross amount is negative")

// Compute applies jurisdiction withholding to a gross amount. Withheld parts
// are floored so the platform never under-withholds. An undeclared status is
// a precondition failure, not a default.
func Compute(gross int64, status models.TaxStatus) (Breakdown, error) {
	if gross < 0 {
		return Breakdown{}, ErrNegativeGross
	}
	switch status {
	case models.TaxSelfEmployed:
		return Breakdown{
			Gross:       gross,
			Net:         gross,
			NPDEstimate: gross * npdPercent / 100,
		}, nil
	case models.TaxIndividual:
		t := gross * incomeTaxPercent / 100
		s := gross * socialPercent / 100
		return Breakdown{
			Gross:  gross,
			Tax:    t,
			Social: s,
			Net:    gross - t - s,
		}, nil
	default:
		return Breakdown{}, models.ErrUnknownTaxStatus
	}
}
