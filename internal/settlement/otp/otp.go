package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"medrefBack/internal/models"
)

// Sender delivers a code over the named channel. Delivery is an external
// collaborator's concern; a failed send never rolls back session creation.
type Sender interface {
	Send(ctx context.Context, channel models.OTPChannel, destination, code string) error
}

type Config struct {
	TTL            time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
}

// Protocol issues and verifies short-lived signing codes. Codes are stored
// bcrypt-hashed and consumed on first successful verification.
type Protocol struct {
	store    Store
	sender   Sender
	cfg      Config
	errorLog *log.Logger
}

func NewProtocol(store Store, sender Sender, cfg Config, errorLog *log.Logger) *Protocol {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.ResendCooldown <= 0 {
		cfg.ResendCooldown = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Protocol{store: store, sender: sender, cfg: cfg, errorLog: errorLog}
}

// Issue creates a 6-digit code for the session key and hands it to the sender.
// Issuing a new code invalidates any prior unconsumed one; re-issuing inside
// the cooldown window is rejected.
func (p *Protocol) Issue(ctx context.Context, key string, channel models.OTPChannel, destination string, now time.Time) error {
	existing, err := p.store.Get(ctx, key)
	if err == nil && now.Before(existing.ExpiresAt) && now.Sub(existing.IssuedAt) < p.cfg.ResendCooldown {
		return models.ErrOTPCooldown
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	session := models.OTPSession{
		CodeHash:    hash,
		Channel:     channel,
		Destination: destination,
		IssuedAt:    now,
		ExpiresAt:   now.Add(p.cfg.TTL),
	}
	if err := p.store.Save(ctx, key, session, p.cfg.TTL); err != nil {
		return err
	}

	if p.sender != nil {
		if err := p.sender.Send(ctx, channel, destination, code); err != nil {
			// The agent can request a resend; the session stays valid.
			if p.errorLog != nil {
				p.errorLog.Printf("otp: delivery via %s failed: %v", channel, err)
			}
		}
	}
	return nil
}

// Verify succeeds exactly once per session. Mismatches leave the session in
// place for retries until the attempt cap invalidates it.
func (p *Protocol) Verify(ctx context.Context, key, code string, now time.Time) error {
	session, err := p.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if now.After(session.ExpiresAt) {
		return models.ErrOTPExpired
	}
	if err := bcrypt.CompareHashAndPassword(session.CodeHash, []byte(code)); err != nil {
		session.Attempts++
		if session.Attempts >= p.cfg.MaxAttempts {
			_, _ = p.store.Delete(ctx, key)
			return models.ErrOTPExhausted
		}
		if err := p.store.Save(ctx, key, session, session.ExpiresAt.Sub(now)); err != nil {
			return err
		}
		return models.ErrOTPMismatch
	}

	consumed, err := p.store.Delete(ctx, key)
	if err != nil {
		return err
	}
	if !consumed {
		// Someone else verified first; a code is never valid twice.
		return models.ErrOTPNotFound
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
