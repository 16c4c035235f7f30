package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"medrefBack/internal/models"
)

type AgentRepository struct {
	DB *sql.DB
}

const agentColumns = `id, full_name, email, phone, tax_status, balance, lifetime_earned,
	lifetime_paid_out, bonus_points, paid_referrals, otp_channel, otp_destination,
	fcm_token, active, created_at`

func scanAgent(row *sql.Row) (models.Agent, error) {
	var a models.Agent
	var email, phone, channel, destination, fcmToken sql.NullString
	err := row.Scan(&a.ID, &a.FullName, &email, &phone, &a.TaxStatus, &a.Balance,
		&a.LifetimeEarned, &a.LifetimePaidOut, &a.BonusPoints, &a.PaidReferrals,
		&channel, &destination, &fcmToken, &a.Active, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Agent{}, models.ErrAgentNotFound
	}
	if err != nil {
		return models.Agent{}, err
	}
	a.Email = email.String
	a.Phone = phone.String
	a.OTPChannel = models.OTPChannel(channel.String)
	a.OTPDestination = destination.String
	a.FCMToken = fcmToken.String
	return a, nil
}

func (r *AgentRepository) Create(ctx context.Context, a models.Agent) (models.Agent, error) {
	if a.TaxStatus == "" {
		a.TaxStatus = models.TaxUnknown
	}
	const q = `INSERT INTO agents (full_name, email, phone, tax_status, otp_channel, otp_destination, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING id, created_at`
	err := r.DB.QueryRowContext(ctx, q, a.FullName, a.Email, a.Phone, a.TaxStatus,
		string(a.OTPChannel), a.OTPDestination).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return models.Agent{}, err
	}
	a.Active = true
	return a, nil
}

func (r *AgentRepository) GetByID(ctx context.Context, id int) (models.Agent, error) {
	return scanAgent(r.DB.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id))
}

// Deactivate disables the agent. Agents are never deleted.
func (r *AgentRepository) Deactivate(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE agents SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrAgentNotFound
	}
	return nil
}

func (r *AgentRepository) SetTaxStatus(ctx context.Context, id int, status models.TaxStatus) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE agents SET tax_status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrAgentNotFound
	}
	return nil
}

func (r *AgentRepository) SetFCMToken(ctx context.Context, id int, token string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE agents SET fcm_token = $1 WHERE id = $2`, token, id)
	return err
}

func (r *AgentRepository) SetOTPChannel(ctx context.Context, id int, channel models.OTPChannel, destination string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE agents SET otp_channel = $1, otp_destination = $2 WHERE id = $3`,
		string(channel), destination, id)
	return err
}

// BalanceBreakdown aggregates the dashboard numbers for one agent: current
// balance, the sum reserved by in-flight payments and month-to-date revenue.
func (r *AgentRepository) BalanceBreakdown(ctx context.Context, id int, month string) (models.BalanceBreakdown, error) {
	agent, err := r.GetByID(ctx, id)
	if err != nil {
		return models.BalanceBreakdown{}, err
	}

	var reserved int64
	err = r.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(gross), 0) FROM payments WHERE agent_id = $1 AND status NOT IN ('completed', 'failed')`,
		id).Scan(&reserved)
	if err != nil {
		return models.BalanceBreakdown{}, err
	}

	revenue, err := r.MonthRevenue(ctx, id, month)
	if err != nil {
		return models.BalanceBreakdown{}, err
	}

	return models.BalanceBreakdown{
		AgentID:         agent.ID,
		Available:       agent.Balance,
		Reserved:        reserved,
		LifetimeEarned:  agent.LifetimeEarned,
		LifetimePaidOut: agent.LifetimePaidOut,
		BonusPoints:     agent.BonusPoints,
		PaidReferrals:   agent.PaidReferrals,
		MonthRevenue:    revenue,
	}, nil
}

// MonthRevenue returns the accumulated treatment revenue for a YYYY-MM month.
func (r *AgentRepository) MonthRevenue(ctx context.Context, id int, month string) (int64, error) {
	var revenue int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT COALESCE(revenue, 0) FROM agent_month_revenue WHERE agent_id = $1 AND month = $2`,
		id, month).Scan(&revenue)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return revenue, err
}

// MonthKey formats the calendar-month accumulator key.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
