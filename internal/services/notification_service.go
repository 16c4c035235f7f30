package services

import (
	"context"
	"log"

	"firebase.google.com/go/messaging"

	"medrefBack/internal/models"
	"medrefBack/internal/settlement/payout"
)

// StatusBroadcaster fans a status event out to connected dashboards.
type StatusBroadcaster interface {
	Broadcast(agentID int, event any)
}

// TokenSource resolves the agent's push token.
type TokenSource interface {
	GetByID(ctx context.Context, id int) (models.Agent, error)
}

// NotificationService delivers FCM pushes and websocket events. All delivery
// is fire-and-forget: a failed push is logged and never surfaces to the
// operation that triggered it.
type NotificationService struct {
	FCM      *messaging.Client // nil disables push
	Agents   TokenSource
	Hub      StatusBroadcaster
	ErrorLog *log.Logger
}

type statusEvent struct {
	Kind       string `json:"kind"`
	ReferralID int    `json:"referral_id,omitempty"`
	PaymentID  int    `json:"payment_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Commission int64  `json:"commission,omitempty"`
}

func (s *NotificationService) ReferralSettled(agentID, referralID int, commission int64) {
	if s.Hub != nil {
		s.Hub.Broadcast(agentID, statusEvent{
			Kind:       "referral_settled",
			ReferralID: referralID,
			Commission: commission,
		})
	}
	go s.push(agentID, "Визит подтверждён", "Комиссия зачислена на баланс")
}

func (s *NotificationService) PaymentStatusChanged(p models.Payment) {
	if s.Hub != nil {
		s.Hub.Broadcast(p.AgentID, statusEvent{
			Kind:      "payment_status",
			PaymentID: p.ID,
			Status:    string(p.Status),
		})
	}
	go s.push(p.AgentID, "Статус выплаты изменился", payout.StatusLabel(p.Status))
}

func (s *NotificationService) push(agentID int, title, body string) {
	if s.FCM == nil {
		return
	}
	ctx := context.Background()
	agent, err := s.Agents.GetByID(ctx, agentID)
	if err != nil || agent.FCMToken == "" {
		return
	}
	msg := &messaging.Message{
		Token: agent.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	}
	if _, err := s.FCM.Send(ctx, msg); err != nil {
		s.ErrorLog.Printf("fcm push to agent %d: %v", agentID, err)
	}
}
