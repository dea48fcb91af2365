package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/clientloop/dispatch-engine/internal/api"
	"github.com/clientloop/dispatch-engine/internal/channel"
	"github.com/clientloop/dispatch-engine/internal/config"
	"github.com/clientloop/dispatch-engine/internal/pkg/distlock"
	"github.com/clientloop/dispatch-engine/internal/pkg/logger"
	"github.com/clientloop/dispatch-engine/internal/pkg/ratelimit"
	"github.com/clientloop/dispatch-engine/internal/repository/postgres"
	"github.com/clientloop/dispatch-engine/internal/service/audience"
	"github.com/clientloop/dispatch-engine/internal/service/dispatch"
	"github.com/clientloop/dispatch-engine/internal/worker"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const leaseTTL = 10 * time.Minute

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger.SetLevel(parseLogLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.RedactPII)
	logger.Info("starting dispatch engine")

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = db.PingContext(pingCtx)
	pingCancel()
	if err != nil {
		logger.Error("ping database", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Redis is optional; without it leases fall back to Postgres advisory
	// locks and rate limiting stays process-local.
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("parse redis url", "error", err.Error())
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		pingCtx, pingCancel = context.WithTimeout(context.Background(), 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			logger.Error("ping redis", "error", err.Error())
			os.Exit(1)
		}
		defer redisClient.Close()
		logger.Info("connected to redis")
	} else {
		logger.Info("redis not configured, using postgres advisory locks")
	}

	// Repositories
	campaignRepo := postgres.NewCampaignRepo(db)
	customerRepo := postgres.NewCustomerRepo(db)
	subscriptionRepo := postgres.NewSubscriptionRepo(db)
	runRepo := postgres.NewRunRepo(db)
	tenantRepo := postgres.NewTenantRepo(db)

	// Channel transports
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	sesTransport, err := channel.NewSESTransport(rootCtx, cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region, tenantRepo)
	if err != nil {
		logger.Error("init ses transport", "error", err.Error())
		os.Exit(1)
	}
	chatTransport := channel.NewGatewayTransport(cfg.ChatGateway.BaseURL, cfg.ChatGateway.Timeout())

	emailSender := channel.NewEmailSender(sesTransport)
	chatSender := channel.NewChatSender(chatTransport)

	// Send pacing
	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient, "dispatch", cfg.Dispatch.RateLimitPerSecond)
	} else {
		limiter = ratelimit.NewIntervalLimiter(cfg.Dispatch.SendInterval())
	}

	leases := distlock.NewFactory(redisClient, db, leaseTTL)
	resolver := audience.NewResolver(customerRepo)
	engine := dispatch.NewEngine(campaignRepo, runRepo, resolver, emailSender, chatSender, limiter, nil)

	// Workers
	campaignScheduler := worker.NewCampaignScheduler(campaignRepo, engine, leases, cfg.Dispatch.SweepInterval(), nil)
	if err := campaignScheduler.Start(); err != nil {
		logger.Error("start campaign scheduler", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("campaign scheduler started", "sweep_interval", cfg.Dispatch.SweepInterval().String())

	renderer, err := worker.NewReminderRenderer(cfg.Reminders.Subject, cfg.Reminders.BodyTemplate)
	if err != nil {
		logger.Error("parse reminder template", "error", err.Error())
		os.Exit(1)
	}
	reminderScheduler := worker.NewReminderScheduler(
		subscriptionRepo, emailSender, runRepo, leases, renderer,
		cfg.Reminders.WarningDays, cfg.Reminders.RunHour, nil,
	)
	if err := reminderScheduler.Start(); err != nil {
		logger.Error("start reminder scheduler", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("reminder scheduler started",
		"warning_days", cfg.Reminders.WarningDays,
		"run_hour", cfg.Reminders.RunHour,
	)

	// HTTP server
	handlers := api.NewHandlers(engine, leases)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.SetupRoutes(handlers),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "error", err.Error())
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err.Error())
	}

	campaignScheduler.Stop()
	reminderScheduler.Stop()

	logger.Info("dispatch engine stopped")
}

func parseLogLevel(s string) logger.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logger.DEBUG
	case "warn", "warning":
		return logger.WARN
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}
