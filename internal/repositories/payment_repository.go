package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medrefBack/internal/models"
	"medrefBack/internal/settlement/fsm"
	"medrefBack/internal/settlement/tax"
)

type PaymentRepository struct {
	DB *sql.DB
}

const paymentColumns = `id, agent_id, gross, tax_status, tax, social, net, status, route,
	jump_status, act_id, payout_ref, fail_reason, requested_at, completed_at, updated_at`

// CreateWithDebit reserves the gross amount and creates the pending payment
// as one atomic unit: the agent row is locked, so two concurrent requests can
// never jointly overdraw the balance.
func (r *PaymentRepository) CreateWithDebit(ctx context.Context, agentID int, gross int64, snapshot tax.Breakdown, status models.TaxStatus, route models.PayoutRoute) (models.Payment, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Payment{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		balance int64
		active  bool
	)
	err = tx.QueryRowContext(ctx, `SELECT balance, active FROM agents WHERE id = $1 FOR UPDATE`, agentID).
		Scan(&balance, &active)
	if errors.Is(err, sql.ErrNoRows) {
		err = models.ErrAgentNotFound
		return models.Payment{}, err
	}
	if err != nil {
		return models.Payment{}, err
	}
	if !active {
		err = models.ErrAgentInactive
		return models.Payment{}, err
	}
	if balance < gross {
		err = &models.InsufficientFundsError{Available: balance, Requested: gross}
		return models.Payment{}, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE agents SET balance = balance - $1 WHERE id = $2`, gross, agentID); err != nil {
		return models.Payment{}, err
	}

	p := models.Payment{
		AgentID:   agentID,
		Gross:     gross,
		TaxStatus: status,
		Tax:       snapshot.Tax,
		Social:    snapshot.Social,
		Net:       snapshot.Net,
		Status:    models.PaymentPending,
		Route:     route,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO payments (agent_id, gross, tax_status, tax, social, net, status, route)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, requested_at, updated_at`,
		agentID, gross, status, snapshot.Tax, snapshot.Social, snapshot.Net,
		models.PaymentPending, route).
		Scan(&p.ID, &p.RequestedAt, &p.UpdatedAt)
	if err != nil {
		return models.Payment{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Payment{}, err
	}
	return p, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int) (models.Payment, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row.Scan)
}

func (r *PaymentRepository) ListByAgent(ctx context.Context, agentID, limit, offset int) ([]models.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE agent_id = $1
		 ORDER BY requested_at DESC LIMIT $2 OFFSET $3`,
		agentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// GenerateAct creates the act and advances the payment, or returns the
// existing act when called again for the same payment.
func (r *PaymentRepository) GenerateAct(ctx context.Context, paymentID int, now time.Time) (models.Act, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Act{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		status models.PaymentStatus
		gross  int64
		actID  sql.NullInt64
	)
	err = tx.QueryRowContext(ctx, `SELECT status, gross, act_id FROM payments WHERE id = $1 FOR UPDATE`, paymentID).
		Scan(&status, &gross, &actID)
	if errors.Is(err, sql.ErrNoRows) {
		err = models.ErrPaymentNotFound
		return models.Act{}, err
	}
	if err != nil {
		return models.Act{}, err
	}

	if actID.Valid {
		act, aerr := actByIDTx(ctx, tx, int(actID.Int64))
		if aerr != nil {
			err = aerr
			return models.Act{}, err
		}
		err = tx.Commit()
		return act, err
	}
	if status != models.PaymentPending {
		err = &models.StateConflictError{Entity: "payment", ID: paymentID, Current: string(status)}
		return models.Act{}, err
	}

	act := models.Act{
		PaymentID: paymentID,
		Number:    fmt.Sprintf("ACT-%s-%06d", now.UTC().Format("200601"), paymentID),
		Date:      now.UTC(),
		Total:     gross,
		OTPKey:    uuid.NewString(),
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO acts (payment_id, number, act_date, total, otp_key)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		act.PaymentID, act.Number, act.Date, act.Total, act.OTPKey).
		Scan(&act.ID, &act.CreatedAt)
	if err != nil {
		return models.Act{}, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE payments SET act_id = $1 WHERE id = $2`, act.ID, paymentID); err != nil {
		return models.Act{}, err
	}
	if err = fsm.Apply(ctx, tx, paymentID, models.PaymentPending, models.PaymentActGenerated); err != nil {
		return models.Act{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Act{}, err
	}
	return act, nil
}

func (r *PaymentRepository) ActByPayment(ctx context.Context, paymentID int) (models.Act, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT id, payment_id, number, act_date, total, otp_key, signed_at, created_at
		 FROM acts WHERE payment_id = $1`, paymentID)
	return scanAct(row)
}

// Transition applies one optimistic status move.
func (r *PaymentRepository) Transition(ctx context.Context, paymentID int, from, to models.PaymentStatus) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fsm.Apply(ctx, tx, paymentID, from, to); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = r.conflict(ctx, paymentID)
		}
		return err
	}
	err = tx.Commit()
	return err
}

// MarkSigned advances the payment and stamps the act in one transaction.
func (r *PaymentRepository) MarkSigned(ctx context.Context, paymentID int, from models.PaymentStatus, now time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fsm.Apply(ctx, tx, paymentID, from, models.PaymentSigned); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = r.conflict(ctx, paymentID)
		}
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE acts SET signed_at = $1 WHERE payment_id = $2`, now.UTC(), paymentID); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// Complete finalizes a payment: payout reference, completion timestamp and
// the agent's lifetime paid-out counter move together. Irreversible.
func (r *PaymentRepository) Complete(ctx context.Context, paymentID int, payoutRef string, now time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		agentID int
		gross   int64
	)
	err = tx.QueryRowContext(ctx,
		`UPDATE payments SET status = $1, payout_ref = $2, completed_at = $3, updated_at = NOW()
		 WHERE id = $4 AND status = $5
		 RETURNING agent_id, gross`,
		models.PaymentCompleted, payoutRef, now.UTC(), paymentID, models.PaymentReadyForPayment).
		Scan(&agentID, &gross)
	if errors.Is(err, sql.ErrNoRows) {
		err = r.conflict(ctx, paymentID)
		return err
	}
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE agents SET lifetime_paid_out = lifetime_paid_out + $1 WHERE id = $2`, gross, agentID); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// MarkFailed records the reason and releases the funds reservation back to
// the agent. The conditional update makes the release exactly-once: repeated
// failure signals find the payment already failed and change nothing.
func (r *PaymentRepository) MarkFailed(ctx context.Context, paymentID int, reason string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		agentID int
		gross   int64
	)
	err = tx.QueryRowContext(ctx,
		`UPDATE payments SET status = $1, fail_reason = $2, updated_at = NOW()
		 WHERE id = $3 AND status NOT IN ('completed', 'failed')
		 RETURNING agent_id, gross`,
		models.PaymentFailed, reason, paymentID).
		Scan(&agentID, &gross)
	if errors.Is(err, sql.ErrNoRows) {
		err = r.conflict(ctx, paymentID)
		return err
	}
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE agents SET balance = balance + $1 WHERE id = $2`, gross, agentID); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// SetJumpStatus records the external provider's status overlay.
func (r *PaymentRepository) SetJumpStatus(ctx context.Context, paymentID, jumpStatus int) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE payments SET jump_status = $1, updated_at = NOW() WHERE id = $2`, jumpStatus, paymentID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepository) conflict(ctx context.Context, paymentID int) error {
	p, err := r.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	return &models.StateConflictError{Entity: "payment", ID: paymentID, Current: string(p.Status)}
}

func scanPayment(scan func(dest ...any) error) (models.Payment, error) {
	var p models.Payment
	var jump sql.NullInt64
	var actID sql.NullInt64
	var payoutRef, failReason sql.NullString
	var completedAt sql.NullTime
	err := scan(&p.ID, &p.AgentID, &p.Gross, &p.TaxStatus, &p.Tax, &p.Social, &p.Net,
		&p.Status, &p.Route, &jump, &actID, &payoutRef, &failReason,
		&p.RequestedAt, &completedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payment{}, models.ErrPaymentNotFound
	}
	if err != nil {
		return models.Payment{}, err
	}
	p.JumpStatus = int(jump.Int64)
	if actID.Valid {
		v := int(actID.Int64)
		p.ActID = &v
	}
	if payoutRef.Valid {
		p.PayoutRef = &payoutRef.String
	}
	if failReason.Valid {
		p.FailReason = &failReason.String
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return p, nil
}

func actByIDTx(ctx context.Context, tx *sql.Tx, id int) (models.Act, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, payment_id, number, act_date, total, otp_key, signed_at, created_at
		 FROM acts WHERE id = $1`, id)
	return scanAct(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAct(row rowScanner) (models.Act, error) {
	var act models.Act
	var signedAt sql.NullTime
	err := row.Scan(&act.ID, &act.PaymentID, &act.Number, &act.Date, &act.Total,
		&act.OTPKey, &signedAt, &act.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Act{}, models.ErrActNotFound
		}
		return models.Act{}, err
	}
	if signedAt.Valid {
		act.SignedAt = &signedAt.Time
	}
	return act, nil
}
