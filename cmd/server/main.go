package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"hubadmin/config"
	"hubadmin/internal/checkout"
	"hubadmin/internal/database"
	"hubadmin/internal/handler"
	"hubadmin/internal/middleware"
	"hubadmin/internal/repository"
	"hubadmin/internal/router"
	"hubadmin/internal/session"
	"hubadmin/internal/ws"
	"hubadmin/pkg/campushub"
	"hubadmin/pkg/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	paymentRepo := repository.NewPaymentAttemptRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	if n, err := paymentRepo.MarkInterrupted(); err != nil {
		log.Printf("[PAYMENT] marking interrupted attempts: %v", err)
	} else if n > 0 {
		log.Printf("[PAYMENT] %d attempt(s) from a previous run marked interrupted", n)
	}

	hub := ws.NewHub()
	store := session.NewStore(session.Options{
		UpstreamURL:     cfg.Upstream.BaseURL,
		UpstreamTimeout: cfg.Upstream.Timeout,
		Payment: checkout.Config{
			PollInterval: cfg.Payment.PollInterval,
			MaxPolls:     cfg.Payment.MaxPolls,
			DismissAfter: cfg.Payment.DismissAfter,
			FixedAmount:  cfg.Payment.FixedAmount,
		},
		IdleTimeout: cfg.Session.IdleTimeout,
		Provider:    providerFor(cfg.Payment),
		OnPayment:   handler.NewPaymentRecorder(paymentRepo, auditRepo, hub),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go store.Run(ctx, cfg.Session.SweepInterval)

	engine := router.Setup(cfg, router.Deps{
		Store:    store,
		Hub:      hub,
		Payments: paymentRepo,
		Audit:    auditRepo,
		Admin:    repository.NewAdminRepository(db),
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      middleware.CSRF(engine, cfg.IsProduction()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s (upstream %s, payments via %s)", cfg.Server.Port, cfg.Upstream.BaseURL, cfg.Payment.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	store.Close()
	fmt.Println("server stopped")
}

func providerFor(cfg config.PaymentConfig) func(*campushub.Client) payment.Provider {
	if cfg.Provider == "stub" {
		log.Printf("[PAYMENT] using stub gateway (settles after %d polls)", cfg.StubSettleAfter)
		return func(*campushub.Client) payment.Provider { return payment.NewStubProvider(cfg.StubSettleAfter) }
	}
	return func(c *campushub.Client) payment.Provider { return payment.NewCampusHubProvider(c) }
}
