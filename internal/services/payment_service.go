package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"medrefBack/internal/models"
	"medrefBack/internal/settlement/payout"
)

// PaymentStore is the slice of the payment repository the lifecycle needs.
type PaymentStore interface {
	GetByID(ctx context.Context, id int) (models.Payment, error)
	ListByAgent(ctx context.Context, agentID, limit, offset int) ([]models.Payment, error)
	GenerateAct(ctx context.Context, paymentID int, now time.Time) (models.Act, error)
	ActByPayment(ctx context.Context, paymentID int) (models.Act, error)
	Transition(ctx context.Context, paymentID int, from, to models.PaymentStatus) error
	MarkSigned(ctx context.Context, paymentID int, from models.PaymentStatus, now time.Time) error
	Complete(ctx context.Context, paymentID int, payoutRef string, now time.Time) error
	MarkFailed(ctx context.Context, paymentID int, reason string) error
	SetJumpStatus(ctx context.Context, paymentID, jumpStatus int) error
}

// AgentDirectory resolves the agent behind a payment.
type AgentDirectory interface {
	GetByID(ctx context.Context, id int) (models.Agent, error)
}

// SigningProtocol is the OTP capability used by the signing flow.
type SigningProtocol interface {
	Issue(ctx context.Context, key string, channel models.OTPChannel, destination string, now time.Time) error
	Verify(ctx context.Context, key, code string, now time.Time) error
}

type PaymentService struct {
	Payments PaymentStore
	Agents   AgentDirectory
	OTP      SigningProtocol
	Routers  map[models.PayoutRoute]payout.Router
	Notifier Notifier
	ErrorLog *log.Logger
}

func (s *PaymentService) GetByID(ctx context.Context, id int) (models.Payment, error) {
	return s.Payments.GetByID(ctx, id)
}

func (s *PaymentService) ListByAgent(ctx context.Context, agentID, limit, offset int) ([]models.Payment, error) {
	return s.Payments.ListByAgent(ctx, agentID, limit, offset)
}

// GenerateAct is idempotent: a repeated call returns the existing act.
func (s *PaymentService) GenerateAct(ctx context.Context, paymentID int, now time.Time) (models.Act, error) {
	return s.Payments.GenerateAct(ctx, paymentID, now)
}

// SendForSigning issues (or re-issues) the signing code over the agent's
// verified channel and moves the payment to sent_for_signing. Re-sending
// while already sent is allowed; the protocol enforces the resend cooldown.
func (s *PaymentService) SendForSigning(ctx context.Context, paymentID int, now time.Time) error {
	p, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if p.Status != models.PaymentActGenerated && p.Status != models.PaymentSentForSigning {
		return &models.StateConflictError{Entity: "payment", ID: paymentID, Current: string(p.Status)}
	}

	agent, err := s.Agents.GetByID(ctx, p.AgentID)
	if err != nil {
		return err
	}
	if agent.OTPChannel == "" || agent.OTPDestination == "" {
		return models.ErrNoVerifiedChannel
	}

	act, err := s.Payments.ActByPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if err := s.OTP.Issue(ctx, act.OTPKey, agent.OTPChannel, agent.OTPDestination, now); err != nil {
		return err
	}
	if err := s.Payments.Transition(ctx, paymentID, p.Status, models.PaymentSentForSigning); err != nil {
		return err
	}
	s.notify(p, models.PaymentSentForSigning)
	return nil
}

// Sign verifies the code and advances the payment. The code is single-use:
// a successful verification consumes the session.
func (s *PaymentService) Sign(ctx context.Context, paymentID int, code string, now time.Time) error {
	p, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if p.Status != models.PaymentSentForSigning {
		return &models.StateConflictError{Entity: "payment", ID: paymentID, Current: string(p.Status)}
	}

	act, err := s.Payments.ActByPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if err := s.OTP.Verify(ctx, act.OTPKey, code, now); err != nil {
		return err
	}
	if err := s.Payments.MarkSigned(ctx, paymentID, models.PaymentSentForSigning, now); err != nil {
		return err
	}
	s.notify(p, models.PaymentSigned)
	return nil
}

// ConfirmReceipt is the self-employed path: an uploaded NPD receipt stands in
// for the OTP signature and passes the act straight to signed.
func (s *PaymentService) ConfirmReceipt(ctx context.Context, paymentID int, now time.Time) error {
	p, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if p.TaxStatus != models.TaxSelfEmployed {
		return fmt.Errorf("payment %d: receipt path is for self-employed agents only", paymentID)
	}
	if p.Status != models.PaymentActGenerated {
		return &models.StateConflictError{Entity: "payment", ID: paymentID, Current: string(p.Status)}
	}
	if err := s.Payments.MarkSigned(ctx, paymentID, models.PaymentActGenerated, now); err != nil {
		return err
	}
	s.notify(p, models.PaymentSigned)
	return nil
}

// MarkReady confirms a batch of signed payments for payout. Failures are
// per-payment; the batch never aborts.
func (s *PaymentService) MarkReady(ctx context.Context, ids []int) []models.BatchOpResult {
	results := make([]models.BatchOpResult, 0, len(ids))
	for _, id := range ids {
		res := models.BatchOpResult{PaymentID: id, OK: true}
		if err := s.Payments.Transition(ctx, id, models.PaymentSigned, models.PaymentReadyForPayment); err != nil {
			res.OK = false
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

// Complete finalizes a batch. Provider-routed payments without an explicit
// reference are initiated with the provider first.
func (s *PaymentService) Complete(ctx context.Context, items []models.CompletionItem, now time.Time) []models.BatchOpResult {
	results := make([]models.BatchOpResult, 0, len(items))
	for _, item := range items {
		results = append(results, s.completeOne(ctx, item, now))
	}
	return results
}

func (s *PaymentService) completeOne(ctx context.Context, item models.CompletionItem, now time.Time) models.BatchOpResult {
	res := models.BatchOpResult{PaymentID: item.PaymentID}

	p, err := s.Payments.GetByID(ctx, item.PaymentID)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if p.Status != models.PaymentReadyForPayment {
		res.Error = (&models.StateConflictError{Entity: "payment", ID: p.ID, Current: string(p.Status)}).Error()
		return res
	}

	ref := item.PayoutRef
	if ref == "" {
		router, ok := s.Routers[p.Route]
		if !ok {
			res.Error = fmt.Sprintf("no payout router for route %q", p.Route)
			return res
		}
		ref, err = router.Initiate(ctx, p)
		if err != nil {
			res.Error = err.Error()
			return res
		}
	}

	if err := s.Payments.Complete(ctx, p.ID, ref, now); err != nil {
		res.Error = err.Error()
		return res
	}
	res.OK = true
	s.notify(p, models.PaymentCompleted)
	return res
}

// Fail moves the payment to failed and releases the reservation. The refund
// happens at most once even if the failure signal arrives repeatedly.
func (s *PaymentService) Fail(ctx context.Context, paymentID int, reason string) error {
	p, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if err := s.Payments.MarkFailed(ctx, paymentID, reason); err != nil {
		return err
	}
	s.notify(p, models.PaymentFailed)
	return nil
}

// SetProviderStatus records the provider overlay. It shadows the displayed
// status but never drives the state machine.
func (s *PaymentService) SetProviderStatus(ctx context.Context, paymentID, jumpStatus int) error {
	if _, ok := payout.JumpLabel(jumpStatus); !ok {
		return fmt.Errorf("unknown provider status %d", jumpStatus)
	}
	return s.Payments.SetJumpStatus(ctx, paymentID, jumpStatus)
}

// DisplayStatus resolves the human-facing status through the payment's route.
func (s *PaymentService) DisplayStatus(p models.Payment) string {
	if router, ok := s.Routers[p.Route]; ok {
		return router.DisplayStatus(p)
	}
	return payout.StatusLabel(p.Status)
}

func (s *PaymentService) notify(p models.Payment, to models.PaymentStatus) {
	if s.Notifier == nil {
		return
	}
	p.Status = to
	s.Notifier.PaymentStatusChanged(p)
}
