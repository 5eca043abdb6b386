package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/bistro-api/internal/http/handlers"
	"github.com/diagnosis/bistro-api/internal/http/middleware"
	"github.com/diagnosis/bistro-api/internal/notify"
	"github.com/diagnosis/bistro-api/internal/platform/mailer"
	"github.com/diagnosis/bistro-api/internal/platform/payment"
	"github.com/diagnosis/bistro-api/internal/repo/postgres"
	redisrepo "github.com/diagnosis/bistro-api/internal/repo/redis"
	"github.com/diagnosis/bistro-api/internal/service"
	"github.com/diagnosis/bistro-api/pkg/auth"
	"github.com/diagnosis/bistro-api/pkg/config"
	"github.com/diagnosis/bistro-api/pkg/database"
	"github.com/diagnosis/bistro-api/pkg/events"
	"github.com/diagnosis/bistro-api/pkg/logger"
	"github.com/diagnosis/bistro-api/pkg/metrics"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and event consumers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(cfg.Database.URL); err != nil {
			return err
		}
	}

	rdb, err := redisrepo.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	bus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		return err
	}
	defer bus.Close()
	if err := bus.EnableStream(events.CartCleanupStream, events.CartCleanupRequested); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	gateway, err := payment.New(cfg.Payment)
	if err != nil {
		return err
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	usersRepo := postgres.NewUsersRepo(pool)
	cartsRepo := postgres.NewCartsRepo(pool)
	paymentsRepo := postgres.NewPaymentsRepo(pool)

	paymentSvc := service.NewPaymentService(paymentsRepo, cartsRepo, gateway, bus, collector, cfg.Payment.Currency)

	if err := service.NewCartCleanupWorker(cartsRepo, collector).Start(ctx, bus); err != nil {
		return fmt.Errorf("subscribe cart cleanup: %w", err)
	}
	mail := mailer.New(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	if err := notify.NewReceiptNotifier(mail).Start(ctx, bus); err != nil {
		return fmt.Errorf("subscribe receipts: %w", err)
	}

	rl := middleware.NewRateLimiter(middleware.RateLimitConfig{
		PerMinute: cfg.RateLimit.PerMinute,
		Burst:     cfg.RateLimit.Burst,
	})
	defer rl.Stop()

	router := handlers.NewRouter(handlers.Deps{
		Tokens:         tokens,
		Guards:         middleware.NewGuards(tokens, usersRepo, collector),
		Users:          usersRepo,
		Menu:           postgres.NewMenuRepo(pool),
		Reviews:        postgres.NewReviewsRepo(pool),
		Carts:          cartsRepo,
		Payments:       paymentSvc,
		Idempotency:    redisrepo.NewIdempotencyRepo(rdb),
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		RateLimiter:    rl,
		DB:             pool,
		Metrics:        collector,
		Gatherer:       reg,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting bistro-api", "port", cfg.Server.Port, "payment_provider", cfg.Payment.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down bistro-api...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownWait)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("bistro-api stopped with error", "error", err)
		return err
	}
	logger.Info("bistro-api stopped")
	return nil
}
