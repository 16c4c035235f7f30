package services

import (
	"context"
	"time"

	"medrefBack/internal/models"
	"medrefBack/internal/repositories"
	"medrefBack/internal/settlement/tax"
)

// AgentStore is the slice of the agent repository the ledger needs.
type AgentStore interface {
	GetByID(ctx context.Context, id int) (models.Agent, error)
	BalanceBreakdown(ctx context.Context, id int, month string) (models.BalanceBreakdown, error)
}

// PaymentCreator reserves funds and opens a payment.
type PaymentCreator interface {
	CreateWithDebit(ctx context.Context, agentID int, gross int64, snapshot tax.Breakdown, status models.TaxStatus, route models.PayoutRoute) (models.Payment, error)
}

// MonthRecomputer re-prices a settled month at its final rate.
type MonthRecomputer interface {
	RecomputeMonth(ctx context.Context, agentID int, month string, tiers []models.CommissionTier) (int, int64, error)
}

// TierAdmin extends TierSource with the replace operation.
type TierAdmin interface {
	TierSource
	Replace(ctx context.Context, tiers []models.CommissionTier) error
}

type LedgerService struct {
	Agents    AgentStore
	Payments  PaymentCreator
	Ledger    MonthRecomputer
	Tiers     TierAdmin
	MinPayout int64
}

// RequestPayment opens a payout. The tax snapshot is computed here, once,
// from the status the agent has declared at this moment; later status changes
// never touch an existing payment.
func (s *LedgerService) RequestPayment(ctx context.Context, agentID int, gross int64, route models.PayoutRoute) (models.Payment, error) {
	if gross < s.MinPayout {
		return models.Payment{}, models.ErrBelowMinimum
	}

	agent, err := s.Agents.GetByID(ctx, agentID)
	if err != nil {
		return models.Payment{}, err
	}
	if !agent.Active {
		return models.Payment{}, models.ErrAgentInactive
	}

	snapshot, err := tax.Compute(gross, agent.TaxStatus)
	if err != nil {
		return models.Payment{}, err
	}
	if route == "" {
		route = models.RouteManual
	}
	return s.Payments.CreateWithDebit(ctx, agentID, gross, snapshot, agent.TaxStatus, route)
}

func (s *LedgerService) BalanceBreakdown(ctx context.Context, agentID int, now time.Time) (models.BalanceBreakdown, error) {
	return s.Agents.BalanceBreakdown(ctx, agentID, repositories.MonthKey(now))
}

// RecomputeMonth re-resolves the month-final rate and applies the delta.
// Administrative, explicit; never triggered by tier table changes themselves.
func (s *LedgerService) RecomputeMonth(ctx context.Context, agentID int, month string) (int, int64, error) {
	tiers, err := s.Tiers.GetAll(ctx)
	if err != nil {
		return 0, 0, err
	}
	return s.Ledger.RecomputeMonth(ctx, agentID, month, tiers)
}

func (s *LedgerService) TierTable(ctx context.Context) ([]models.CommissionTier, error) {
	return s.Tiers.GetAll(ctx)
}

func (s *LedgerService) ReplaceTierTable(ctx context.Context, tiers []models.CommissionTier) error {
	return s.Tiers.Replace(ctx, tiers)
}
