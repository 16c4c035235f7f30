package repositories

import (
	"context"
	"database/sql"
	"errors"

	"medrefBack/internal/models"
	"medrefBack/internal/settlement/tier"
)

// BonusRule grants bonus points every N settled referrals.
type BonusRule struct {
	EveryN int
	Points int64
}

// LedgerRepository owns the money-moving transactions: settling a treatment
// onto a referral and the administrative month recompute. Every method is a
// single database transaction — a treatment applied without a balance credit
// would be a correctness violation.
type LedgerRepository struct {
	DB    *sql.DB
	Bonus BonusRule
}

var openStatuses = []models.ReferralStatus{
	models.ReferralNew, models.ReferralInProgress, models.ReferralContacted, models.ReferralScheduled,
}

func isOpen(s models.ReferralStatus) bool {
	for _, st := range openStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// ApplyTreatment settles one matched row. It re-checks the referral's version
// stamp (optimistic concurrency), marks the referral visited, accumulates the
// agent's month revenue, resolves the commission rate on the accumulated
// value and credits the agent — all in one transaction. Re-applying identical
// values to an already-visited referral is a no-op, not an error.
func (r *LedgerRepository) ApplyTreatment(ctx context.Context, item models.CommitItem, tiers []models.CommissionTier) (models.ApplyResult, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.ApplyResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		agentID    int
		status     models.ReferralStatus
		version    int
		prevAmount sql.NullInt64
		prevVisit  sql.NullTime
	)
	err = tx.QueryRowContext(ctx,
		`SELECT agent_id, status, version, treatment_amount, visit_date FROM referrals WHERE id = $1 FOR UPDATE`,
		item.ReferralID).Scan(&agentID, &status, &version, &prevAmount, &prevVisit)
	if errors.Is(err, sql.ErrNoRows) {
		err = models.ErrReferralNotFound
		return models.ApplyResult{}, err
	}
	if err != nil {
		return models.ApplyResult{}, err
	}

	if status == models.ReferralVisited {
		// Idempotency per (referral, visit date, amount): the same confirmed
		// row may be committed twice without double-crediting.
		if prevAmount.Valid && prevAmount.Int64 == item.Amount &&
			prevVisit.Valid && prevVisit.Time.Equal(item.VisitDate) {
			err = tx.Commit()
			return models.ApplyResult{AlreadyApplied: true}, err
		}
		err = &models.StateConflictError{Entity: "referral", ID: item.ReferralID, Current: string(status)}
		return models.ApplyResult{}, err
	}
	if !isOpen(status) || version != item.Version {
		err = &models.StateConflictError{Entity: "referral", ID: item.ReferralID, Current: string(status)}
		return models.ApplyResult{}, err
	}

	var (
		paidReferrals int
		active        bool
	)
	err = tx.QueryRowContext(ctx,
		`SELECT paid_referrals, active FROM agents WHERE id = $1 FOR UPDATE`, agentID).
		Scan(&paidReferrals, &active)
	if errors.Is(err, sql.ErrNoRows) {
		err = models.ErrAgentNotFound
		return models.ApplyResult{}, err
	}
	if err != nil {
		return models.ApplyResult{}, err
	}

	month := MonthKey(item.VisitDate)
	var monthRevenue int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO agent_month_revenue (agent_id, month, revenue) VALUES ($1, $2, $3)
		 ON CONFLICT (agent_id, month) DO UPDATE SET revenue = agent_month_revenue.revenue + EXCLUDED.revenue
		 RETURNING revenue`,
		agentID, month, item.Amount).Scan(&monthRevenue)
	if err != nil {
		return models.ApplyResult{}, err
	}

	rate := tier.Resolve(tiers, monthRevenue)
	commission := tier.Commission(item.Amount, rate)

	_, err = tx.ExecContext(ctx,
		`UPDATE referrals SET status = $1, treatment_amount = $2, commission_amount = $3,
			booked_clinic_id = $4, visit_date = $5, version = version + 1, updated_at = NOW()
		 WHERE id = $6`,
		models.ReferralVisited, item.Amount, commission, item.ClinicID, item.VisitDate, item.ReferralID)
	if err != nil {
		return models.ApplyResult{}, err
	}

	paidReferrals++
	var bonus int64
	if r.Bonus.EveryN > 0 && paidReferrals%r.Bonus.EveryN == 0 {
		bonus = r.Bonus.Points
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE agents SET balance = balance + $1, lifetime_earned = lifetime_earned + $1,
			paid_referrals = $2, bonus_points = bonus_points + $3
		 WHERE id = $4`,
		commission, paidReferrals, bonus, agentID)
	if err != nil {
		return models.ApplyResult{}, err
	}

	// Same-identity leftovers become duplicates alongside the settlement.
	for _, dupID := range item.DuplicateIDs {
		if _, err = tx.ExecContext(ctx,
			`UPDATE referrals SET status = $1, version = version + 1, updated_at = NOW()
			 WHERE id = $2 AND status IN ('new', 'in_progress', 'contacted', 'scheduled')`,
			models.ReferralDuplicate, dupID); err != nil {
			return models.ApplyResult{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.ApplyResult{}, err
	}
	return models.ApplyResult{AgentID: agentID, Commission: commission, MonthRevenue: monthRevenue}, nil
}

// RecomputeMonth is the explicit administrative recompute: it re-resolves the
// month-final commission rate and re-prices every referral settled within the
// month, applying the balance delta to the agent.
func (r *LedgerRepository) RecomputeMonth(ctx context.Context, agentID int, month string, tiers []models.CommissionTier) (int, int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var active bool
	err = tx.QueryRowContext(ctx, `SELECT active FROM agents WHERE id = $1 FOR UPDATE`, agentID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		err = models.ErrAgentNotFound
		return 0, 0, err
	}
	if err != nil {
		return 0, 0, err
	}

	var monthRevenue int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(revenue, 0) FROM agent_month_revenue WHERE agent_id = $1 AND month = $2`,
		agentID, month).Scan(&monthRevenue)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.Commit()
		return 0, 0, err
	}
	if err != nil {
		return 0, 0, err
	}
	rate := tier.Resolve(tiers, monthRevenue)

	rows, err := tx.QueryContext(ctx,
		`SELECT id, treatment_amount, commission_amount FROM referrals
		 WHERE agent_id = $1 AND status = 'visited' AND to_char(visit_date, 'YYYY-MM') = $2
		 FOR UPDATE`,
		agentID, month)
	if err != nil {
		return 0, 0, err
	}

	type reprice struct {
		id            int
		newCommission int64
	}
	var (
		updates []reprice
		delta   int64
	)
	for rows.Next() {
		var id int
		var amount, commission int64
		if err = rows.Scan(&id, &amount, &commission); err != nil {
			rows.Close()
			return 0, 0, err
		}
		recomputed := tier.Commission(amount, rate)
		if recomputed != commission {
			updates = append(updates, reprice{id: id, newCommission: recomputed})
			delta += recomputed - commission
		}
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return 0, 0, err
	}

	for _, up := range updates {
		if _, err = tx.ExecContext(ctx,
			`UPDATE referrals SET commission_amount = $1, version = version + 1, updated_at = NOW() WHERE id = $2`,
			up.newCommission, up.id); err != nil {
			return 0, 0, err
		}
	}
	if delta != 0 {
		if _, err = tx.ExecContext(ctx,
			`UPDATE agents SET balance = balance + $1, lifetime_earned = lifetime_earned + $1 WHERE id = $2`,
			delta, agentID); err != nil {
			return 0, 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, err
	}
	return len(updates), delta, nil
}
