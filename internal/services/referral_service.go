package services

import (
	"context"
	"errors"
	"strings"

	"medrefBack/internal/models"
	"medrefBack/internal/repositories"
)

type ReferralService struct {
	Repo   *repositories.ReferralRepository
	Agents *repositories.AgentRepository
}

var errEmptyPatient = errors.New("patient name is required")

// Submit creates a referral. Patient identity is immutable after creation:
// reconciliation matches against exactly what was submitted here.
func (s *ReferralService) Submit(ctx context.Context, ref models.Referral) (models.Referral, error) {
	ref.PatientName = strings.TrimSpace(ref.PatientName)
	if ref.PatientName == "" {
		return models.Referral{}, errEmptyPatient
	}

	agent, err := s.Agents.GetByID(ctx, ref.AgentID)
	if err != nil {
		return models.Referral{}, err
	}
	if !agent.Active {
		return models.Referral{}, models.ErrAgentInactive
	}

	ref.Status = models.ReferralNew
	return s.Repo.Create(ctx, ref)
}

func (s *ReferralService) GetByID(ctx context.Context, id int) (models.Referral, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *ReferralService) ListByAgent(ctx context.Context, agentID int) ([]models.Referral, error) {
	return s.Repo.ListByAgent(ctx, agentID)
}

// OverrideStatus is the manual call-center move. The transition table still
// applies; settlement-only moves (visited) go through reconciliation commit.
func (s *ReferralService) OverrideStatus(ctx context.Context, id int, to models.ReferralStatus) error {
	if to == models.ReferralVisited {
		return &models.StateConflictError{Entity: "referral", ID: id, Current: "visited is set by reconciliation commit only"}
	}
	return s.Repo.UpdateStatus(ctx, id, to)
}
