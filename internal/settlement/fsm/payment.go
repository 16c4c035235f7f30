package fsm

import (
	"context"
	"database/sql"
	"errors"

	"medrefBack/internal/models"
)

var ErrInvalidTransition = errors.New("fsm: invalid status transition")

var paymentTransitions = map[models.PaymentStatus]map[models.PaymentStatus]struct{}{
	models.PaymentPending: {
		models.PaymentActGenerated: {},
		models.PaymentFailed:       {},
	},
	models.PaymentActGenerated: {
		models.PaymentSentForSigning: {},
		models.PaymentSigned:         {}, // self-employed receipt path
		models.PaymentFailed:         {},
	},
	models.PaymentSentForSigning: {
		models.PaymentSigned: {},
		models.PaymentFailed: {},
	},
	models.PaymentSigned: {
		models.PaymentReadyForPayment: {},
		models.PaymentFailed:          {},
	},
	models.PaymentReadyForPayment: {
		models.PaymentCompleted: {},
		models.PaymentFailed:    {},
	},
	models.PaymentCompleted: {},
	models.PaymentFailed:    {},
}

// CanTransition returns whether a payment can move from one status to another.
func CanTransition(from, to models.PaymentStatus) bool {
	if from == to {
		return true
	}
	allowed, ok := paymentTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// Apply updates a payment status using optimistic validation: the row is only
// touched while it is still in the expected source status.
func Apply(ctx context.Context, tx *sql.Tx, paymentID int, from, to models.PaymentStatus) error {
	if !CanTransition(from, to) {
		return ErrInvalidTransition
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, paymentID, from)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
