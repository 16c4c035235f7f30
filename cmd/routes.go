package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders, makeResponseJSON)
	agentAuth := standardMiddleware.Append(app.JWTMiddlewareWithRole("agent"))
	adminAuth := standardMiddleware.Append(app.JWTMiddlewareWithRole("admin"))
	clinicAuth := standardMiddleware.Append(app.JWTMiddlewareWithRole("clinic"))

	mux := pat.New()

	// Agents
	mux.Post("/agent", adminAuth.ThenFunc(app.agentHandler.CreateAgent))
	mux.Get("/agent/:id", agentAuth.ThenFunc(app.agentHandler.GetAgent))
	mux.Put("/agent/:id/tax_status", agentAuth.ThenFunc(app.agentHandler.SetTaxStatus))
	mux.Put("/agent/:id/otp_channel", agentAuth.ThenFunc(app.agentHandler.SetOTPChannel))
	mux.Put("/agent/:id/fcm_token", agentAuth.ThenFunc(app.agentHandler.SetFCMToken))
	mux.Post("/agent/:id/deactivate", adminAuth.ThenFunc(app.agentHandler.Deactivate))

	// Referrals
	mux.Post("/referral", agentAuth.ThenFunc(app.referralHandler.CreateReferral))
	mux.Get("/referral/agent/:agent_id", agentAuth.ThenFunc(app.referralHandler.ListByAgent))
	mux.Put("/referral/:id/status", adminAuth.ThenFunc(app.referralHandler.OverrideStatus))

	// Reconciliation
	mux.Post("/reconciliation/preview", clinicAuth.ThenFunc(app.reconciliationHandler.Preview))
	mux.Post("/reconciliation/commit", adminAuth.ThenFunc(app.reconciliationHandler.Commit))

	// Commission tiers
	mux.Get("/tiers", agentAuth.ThenFunc(app.tierHandler.GetTiers))
	mux.Put("/tiers", adminAuth.ThenFunc(app.tierHandler.ReplaceTiers))
	mux.Post("/ledger/recompute", adminAuth.ThenFunc(app.tierHandler.RecomputeMonth))

	// Payments
	mux.Post("/payment", agentAuth.ThenFunc(app.paymentHandler.RequestPayment))
	mux.Get("/payments/agent/:agent_id", agentAuth.ThenFunc(app.paymentHandler.ListByAgent))
	mux.Post("/payment/:id/act", agentAuth.ThenFunc(app.paymentHandler.GenerateAct))
	mux.Post("/payment/:id/send_for_signing", agentAuth.ThenFunc(app.paymentHandler.SendForSigning))
	mux.Post("/payment/:id/sign", agentAuth.ThenFunc(app.paymentHandler.Sign))
	mux.Post("/payment/:id/receipt", agentAuth.ThenFunc(app.paymentHandler.ConfirmReceipt))
	mux.Post("/payments/mark_ready", adminAuth.ThenFunc(app.paymentHandler.MarkReady))
	mux.Post("/payments/complete", adminAuth.ThenFunc(app.paymentHandler.Complete))
	mux.Post("/payment/:id/fail", adminAuth.ThenFunc(app.paymentHandler.Fail))
	mux.Post("/payment/:id/provider_status", standardMiddleware.ThenFunc(app.paymentHandler.ProviderStatus))

	// Dashboard status stream
	mux.Get("/ws/:agent_id", http.HandlerFunc(app.serveWS))

	return mux
}
