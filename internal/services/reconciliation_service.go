package services

import (
	"context"
	"log"

	"github.com/google/uuid"

	"medrefBack/internal/models"
	"medrefBack/internal/settlement/match"
	"medrefBack/internal/settlement/tier"
)

// ReferralPool serves the open-referral pool for a clinic.
type ReferralPool interface {
	PoolForClinic(ctx context.Context, clinicID int) ([]models.Referral, error)
}

// TreatmentLedger settles confirmed treatments.
type TreatmentLedger interface {
	ApplyTreatment(ctx context.Context, item models.CommitItem, tiers []models.CommissionTier) (models.ApplyResult, error)
}

// TierSource supplies the current commission tier table.
type TierSource interface {
	GetAll(ctx context.Context) ([]models.CommissionTier, error)
}

// BatchArchiver stores a committed batch for audit.
type BatchArchiver interface {
	ArchiveBatch(ctx context.Context, batchID string, result models.CommitResult) error
}

// Notifier pushes settlement and payout events to agents. Implementations
// must not block the caller.
type Notifier interface {
	ReferralSettled(agentID, referralID int, commission int64)
	PaymentStatusChanged(p models.Payment)
}

type ReconciliationService struct {
	Referrals ReferralPool
	Ledger    TreatmentLedger
	Tiers     TierSource
	Archiver  BatchArchiver
	Notifier  Notifier
	ErrorLog  *log.Logger
}

// Preview matches a clinic upload against the open pool. No side effects.
func (s *ReconciliationService) Preview(ctx context.Context, clinicID int, rows []models.CandidateRow) (models.ReconciliationPreview, error) {
	pool, err := s.Referrals.PoolForClinic(ctx, clinicID)
	if err != nil {
		return models.ReconciliationPreview{}, err
	}
	return match.Preview(clinicID, rows, pool), nil
}

// Commit settles confirmed preview items one by one. A conflicting item is
// reported in its row result and never aborts the rest of the batch.
func (s *ReconciliationService) Commit(ctx context.Context, items []models.CommitItem) (models.CommitResult, error) {
	tiers, err := s.Tiers.GetAll(ctx)
	if err != nil {
		return models.CommitResult{}, err
	}
	if err := tier.Validate(tiers); err != nil {
		return models.CommitResult{}, err
	}

	result := models.CommitResult{
		BatchID: uuid.NewString(),
		Rows:    make([]models.CommitRowResult, 0, len(items)),
	}
	for _, item := range items {
		row := models.CommitRowResult{ReferralID: item.ReferralID}
		applied, err := s.Ledger.ApplyTreatment(ctx, item, tiers)
		switch {
		case err != nil:
			row.Error = err.Error()
		case applied.AlreadyApplied:
			row.AlreadyApplied = true
		default:
			row.Applied = true
			row.Commission = applied.Commission
			result.UpdatedCount++
			if s.Notifier != nil {
				s.Notifier.ReferralSettled(applied.AgentID, item.ReferralID, applied.Commission)
			}
		}
		result.Rows = append(result.Rows, row)
	}

	if s.Archiver != nil {
		if err := s.Archiver.ArchiveBatch(ctx, result.BatchID, result); err != nil {
			s.ErrorLog.Printf("archive batch %s: %v", result.BatchID, err)
		}
	}
	return result, nil
}
