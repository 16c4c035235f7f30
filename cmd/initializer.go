package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"firebase.google.com/go/messaging"

	"medrefBack/internal/config"
	"medrefBack/internal/handlers"
	"medrefBack/internal/models"
	"medrefBack/internal/repositories"
	"medrefBack/internal/services"
	"medrefBack/internal/settlement/otp"
	"medrefBack/internal/settlement/payout"
	"medrefBack/utils"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger

	tokens    *utils.Manager
	statusHub *StatusHub
	otpStore  otp.Store

	agentHandler          *handlers.AgentHandler
	referralHandler       *handlers.ReferralHandler
	reconciliationHandler *handlers.ReconciliationHandler
	tierHandler           *handlers.TierHandler
	paymentHandler        *handlers.PaymentHandler
}

func initializeApp(cfg config.Config, deps appDeps) *application {
	agentRepo := repositories.AgentRepository{DB: deps.db}
	referralRepo := repositories.ReferralRepository{DB: deps.db}
	paymentRepo := repositories.PaymentRepository{DB: deps.db}
	tierRepo := repositories.TierRepository{DB: deps.db}
	ledgerRepo := repositories.LedgerRepository{
		DB: deps.db,
		Bonus: repositories.BonusRule{
			EveryN: cfg.Settlement.BonusEvery,
			Points: cfg.Settlement.BonusPts,
		},
	}

	statusHub := NewStatusHub()
	notifier := &services.NotificationService{
		FCM:      deps.fcm,
		Agents:   &agentRepo,
		Hub:      statusHub,
		ErrorLog: deps.errorLog,
	}

	sender := &services.ChannelSender{
		Telegram: &services.TelegramSender{BotToken: cfg.Telegram.BotToken},
		Email: &services.EmailSender{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     cfg.SMTP.From,
		},
	}
	protocol := otp.NewProtocol(deps.otpStore, sender, otp.Config{
		TTL:            time.Duration(cfg.OTP.TTLSeconds) * time.Second,
		ResendCooldown: time.Duration(cfg.OTP.ResendCooldownSeconds) * time.Second,
		MaxAttempts:    cfg.OTP.MaxAttempts,
	}, deps.errorLog)

	jumpClient := payout.NewClient(
		&http.Client{Timeout: httpClientTimeout},
		cfg.Jump.BaseURL,
		cfg.Jump.MerchantID,
		os.Getenv("JUMP_SECRET"),
		cfg.Jump.Callback,
	)
	routers := map[models.PayoutRoute]payout.Router{
		models.RouteManual:   payout.Manual{},
		models.RouteProvider: payout.NewJump(jumpClient),
	}

	agentService := &services.AgentService{Repo: &agentRepo}
	referralService := &services.ReferralService{Repo: &referralRepo, Agents: &agentRepo}
	ledgerService := &services.LedgerService{
		Agents:    &agentRepo,
		Payments:  &paymentRepo,
		Ledger:    &ledgerRepo,
		Tiers:     &tierRepo,
		MinPayout: cfg.Settlement.MinPayout,
	}
	reconciliationService := &services.ReconciliationService{
		Referrals: &referralRepo,
		Ledger:    &ledgerRepo,
		Tiers:     &tierRepo,
		Archiver:  utils.NewS3Archive(cfg.S3.Bucket, cfg.S3.Folder, cfg.S3.Region, cfg.S3.Endpoint),
		Notifier:  notifier,
		ErrorLog:  deps.errorLog,
	}
	paymentService := &services.PaymentService{
		Payments: &paymentRepo,
		Agents:   &agentRepo,
		OTP:      protocol,
		Routers:  routers,
		Notifier: notifier,
		ErrorLog: deps.errorLog,
	}

	return &application{
		errorLog:  deps.errorLog,
		infoLog:   deps.infoLog,
		tokens:    deps.tokens,
		statusHub: statusHub,
		otpStore:  deps.otpStore,
		agentHandler: &handlers.AgentHandler{
			Service: agentService,
			Ledger:  ledgerService,
		},
		referralHandler: &handlers.ReferralHandler{Service: referralService},
		reconciliationHandler: &handlers.ReconciliationHandler{
			Service: reconciliationService,
		},
		tierHandler: &handlers.TierHandler{Ledger: ledgerService},
		paymentHandler: &handlers.PaymentHandler{
			Ledger:         ledgerService,
			Payments:       paymentService,
			ProviderSecret: os.Getenv("JUMP_SECRET"),
		},
	}
}

const httpClientTimeout = 15 * time.Second

type appDeps struct {
	db       *sql.DB
	fcm      *messaging.Client
	otpStore otp.Store
	tokens   *utils.Manager
	errorLog *log.Logger
	infoLog  *log.Logger
}
