package payout

import (
	"context"

	"medrefBack/internal/models"
)

// Router is the payout capability selected for a payment at creation time.
// The internal state machine always governs what actions are offered; the
// router only carries the transfer and contributes the display status.
type Router interface {
	Route() models.PayoutRoute
	// Initiate is invoked when the payment reaches ready_for_payment and
	// returns an external reference when the route carries the transfer.
	Initiate(ctx context.Context, p models.Payment) (string, error)
	DisplayStatus(p models.Payment) string
}

// Manual routes payouts through act generation, OTP signing and an
// administrator-recorded transfer.
type Manual struct{}

func (Manual) Route() models.PayoutRoute { return models.RouteManual }

func (Manual) Initiate(context.Context, models.Payment) (string, error) { return "", nil }

func (Manual) DisplayStatus(p models.Payment) string { return StatusLabel(p.Status) }

var statusLabels = map[models.PaymentStatus]string{
	models.PaymentPending:         "в обработке",
	models.PaymentActGenerated:    "акт сформирован",
	models.PaymentSentForSigning:  "отправлен на подпись",
	models.PaymentSigned:          "акт подписан",
	models.PaymentReadyForPayment: "ожидает выплаты",
	models.PaymentCompleted:       "выплачен",
	models.PaymentFailed:          "отклонён",
}

// StatusLabel is the human-readable label of an internal payment status.
func StatusLabel(s models.PaymentStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

var jumpLabels = map[int]string{
	1: "создан",
	2: "в очереди",
	3: "обрабатывается",
	4: "передан в банк",
	5: "принят банком",
	6: "выплачен",
	7: "отклонён провайдером",
	8: "возвращён",
}

// JumpLabel maps the provider status overlay (1-8) to its label.
func JumpLabel(n int) (string, bool) {
	label, ok := jumpLabels[n]
	return label, ok
}
