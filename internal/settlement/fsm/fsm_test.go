package fsm

import (
	"testing"

	"medrefBack/internal/models"
)

func TestPaymentCanTransition(t *testing.T) {
	if !CanTransition(models.PaymentPending, models.PaymentActGenerated) {
		t.Fatal("expected pending -> act_generated to be allowed")
	}
	if !CanTransition(models.PaymentActGenerated, models.PaymentSentForSigning) {
		t.Fatal("expected act_generated -> sent_for_signing to be allowed")
	}
	if !CanTransition(models.PaymentActGenerated, models.PaymentSigned) {
		t.Fatal("expected act_generated -> signed (receipt path) to be allowed")
	}
	if !CanTransition(models.PaymentSentForSigning, models.PaymentSigned) {
		t.Fatal("expected sent_for_signing -> signed to be allowed")
	}
	if !CanTransition(models.PaymentSigned, models.PaymentReadyForPayment) {
		t.Fatal("expected signed -> ready_for_payment to be allowed")
	}
	if !CanTransition(models.PaymentReadyForPayment, models.PaymentCompleted) {
		t.Fatal("expected ready_for_payment -> completed to be allowed")
	}
	if CanTransition(models.PaymentPending, models.PaymentCompleted) {
		t.Fatal("unexpected pending -> completed allowed")
	}
	if CanTransition(models.PaymentPending, models.PaymentSigned) {
		t.Fatal("unexpected pending -> signed allowed")
	}
}

func TestPaymentFailedReachableFromNonTerminal(t *testing.T) {
	nonTerminal := []models.PaymentStatus{
		models.PaymentPending,
		models.PaymentActGenerated,
		models.PaymentSentForSigning,
		models.PaymentSigned,
		models.PaymentReadyForPayment,
	}
	for _, from := range nonTerminal {
		if !CanTransition(from, models.PaymentFailed) {
			t.Fatalf("expected %s -> failed to be allowed", from)
		}
	}
	if CanTransition(models.PaymentCompleted, models.PaymentFailed) {
		t.Fatal("completed is terminal, failed must be unreachable")
	}
	if CanTransition(models.PaymentFailed, models.PaymentPending) {
		t.Fatal("failed is terminal")
	}
}

func TestReferralCanTransition(t *testing.T) {
	if !CanTransitionReferral(models.ReferralNew, models.ReferralVisited) {
		t.Fatal("expected new -> visited to be allowed")
	}
	if !CanTransitionReferral(models.ReferralScheduled, models.ReferralVisited) {
		t.Fatal("expected scheduled -> visited to be allowed")
	}
	if !CanTransitionReferral(models.ReferralNew, models.ReferralDuplicate) {
		t.Fatal("expected new -> duplicate to be allowed")
	}
	if CanTransitionReferral(models.ReferralVisited, models.ReferralCancelled) {
		t.Fatal("visited is terminal")
	}
	if CanTransitionReferral(models.ReferralDuplicate, models.ReferralVisited) {
		t.Fatal("duplicate is terminal")
	}
	if CanTransitionReferral(models.ReferralScheduled, models.ReferralInProgress) {
		t.Fatal("unexpected backward transition allowed")
	}
}
