// Package main is the entry point for the PayBridge API server.
//
// It loads configuration, connects to Postgres, builds the vendor clients
// (Telegram Bot API, Stripe REST API), assembles the webhook processing
// pipeline, and serves HTTP until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"paybridge/internal/api/handlers"
	"paybridge/internal/config"
	"paybridge/internal/core"
	"paybridge/internal/db"
	"paybridge/internal/external"
	"paybridge/internal/payments"
	"paybridge/internal/reconcile"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting paybridge",
		"environment", cfg.Environment,
		"service", cfg.Service,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	users := db.NewUserRepository(pool)

	telegram := external.NewTelegramClient(
		&http.Client{Timeout: cfg.Telegram.Timeout},
		external.TelegramClientConfig{
			BotToken: cfg.Telegram.BotToken.Unmask(),
			Logger:   logger,
		},
	)

	billing := external.NewStripeClient(
		&http.Client{Timeout: 20 * time.Second},
		external.StripeClientConfig{
			SecretKey: cfg.Billing.StripeSecretKey.Unmask(),
			PriceID:   cfg.Billing.StripePriceID,
			Logger:    logger,
		},
	)

	verifier := newVerifier(cfg.Billing.VerifierMode)

	engine := reconcile.NewEngine(users, logger)
	notifier := reconcile.NewNotifier(telegram, users, cfg.Telegram.AdminID, logger)

	webhookHandler := handlers.NewStripeWebhookHandler(
		verifier,
		payments.NewClassifier(),
		payments.NewResolver(logger),
		engine,
		notifier,
		cfg.Billing.StripeWebhookSecret.Unmask(),
		logger,
	)
	checkoutHandler := handlers.NewCheckoutHandler(billing, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.RouteRegistrars = append(srv.RouteRegistrars,
		webhookHandler.RegisterRoutes,
		checkoutHandler.RegisterRoutes,
	)
	srv.MountRoutes()

	return serveHTTP(ctx, cfg, logger, srv.Handler())
}

// serveHTTP runs the HTTP server until the context is cancelled, then drains
// in-flight requests within the configured shutdown timeout. Stripe retries
// failed deliveries, so a clean drain matters more than a fast exit.
func serveHTTP(ctx context.Context, cfg *config.Config, logger *slog.Logger, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, draining connections")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

// newLogger builds the process-wide structured logger. Output is JSON on
// stdout so the log collector can parse it without extra configuration.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// newVerifier selects the webhook signature verifier implementation.
func newVerifier(mode string) payments.WebhookVerifier {
	if mode == "sdk" {
		return payments.NewSDKVerifier()
	}
	return payments.NewNativeVerifier()
}
