package services

import (
	"context"
	"strings"

	"medrefBack/internal/models"
	"medrefBack/internal/repositories"
)

type AgentService struct {
	Repo *repositories.AgentRepository
}

func (s *AgentService) Register(ctx context.Context, a models.Agent) (models.Agent, error) {
	a.FullName = strings.TrimSpace(a.FullName)
	if a.TaxStatus == "" {
		a.TaxStatus = models.TaxUnknown
	}
	a.Active = true
	return s.Repo.Create(ctx, a)
}

func (s *AgentService) GetByID(ctx context.Context, id int) (models.Agent, error) {
	return s.Repo.GetByID(ctx, id)
}

// Deactivate retires the agent. Rows are never deleted; settled history must
// survive the agent leaving.
func (s *AgentService) Deactivate(ctx context.Context, id int) error {
	return s.Repo.Deactivate(ctx, id)
}

func (s *AgentService) DeclareTaxStatus(ctx context.Context, id int, status models.TaxStatus) error {
	switch status {
	case models.TaxSelfEmployed, models.TaxIndividual:
	default:
		return models.ErrUnknownTaxStatus
	}
	return s.Repo.SetTaxStatus(ctx, id, status)
}

func (s *AgentService) SetFCMToken(ctx context.Context, id int, token string) error {
	return s.Repo.SetFCMToken(ctx, id, token)
}

func (s *AgentService) SetOTPChannel(ctx context.Context, id int, channel models.OTPChannel, destination string) error {
	switch channel {
	case models.ChannelEmail, models.ChannelTelegram:
	default:
		return models.ErrNoVerifiedChannel
	}
	return s.Repo.SetOTPChannel(ctx, id, channel, destination)
}
