package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whisperline/internal/audit"
	"whisperline/internal/auth"
	"whisperline/internal/calls"
	"whisperline/internal/config"
	"whisperline/internal/httpapi"
	"whisperline/internal/jobs"
	"whisperline/internal/ledger"
	"whisperline/internal/media"
	"whisperline/internal/payments"
	"whisperline/internal/payouts"
	"whisperline/internal/users"
	"whisperline/pkg/logger"
	"whisperline/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local development convenience; absence of the file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Services
	ledgerSvc := ledger.NewService(db)
	userSvc := users.NewService(users.NewPostgresRepo(db), cfg.Billing.SignupBonusCoins)
	callSvc := calls.NewService(
		calls.NewPostgresRepo(db),
		userSvc,
		calls.NewRedisRingingLimiter(rdb),
	)
	paymentSvc := payments.NewService(payments.NewPostgresRepo(db), cfg.Stripe, cfg.Billing)
	payoutSvc := payouts.NewService(payouts.NewPostgresRepo(db), cfg.Billing)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	issuer := media.NewIssuer(cfg.Media)

	// Background maintenance
	runner := jobs.NewRunner(callSvc, payoutSvc, calls.DefaultRetention, log)
	runner.Start(rootCtx)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(httpapi.MetricsMiddleware())

	h := httpapi.Handlers{
		Auth:     authManager,
		Users:    userSvc,
		Calls:    callSvc,
		Ledger:   ledgerSvc,
		Payments: paymentSvc,
		Media:    issuer,
		Audit:    auditSvc,
	}
	webhook := payments.WebhookHandler{
		Service:       paymentSvc,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	}

	registerRoutes(r, h, webhook, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	runner.Wait()

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
