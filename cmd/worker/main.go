package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/meterline/billing/internal/config"
	"github.com/meterline/billing/internal/notifier"
	"github.com/meterline/billing/internal/repository"
	"github.com/meterline/billing/internal/services"
	"github.com/meterline/billing/pkg/logger"
	"github.com/meterline/billing/pkg/pg"
	"github.com/meterline/billing/pkg/prom"
	"github.com/meterline/billing/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	endpoints := []notifier.EndpointConfig{
		{Name: "primary", URL: config.Get().NotifyPrimaryUrl},
	}
	if config.Get().NotifyBackupUrl != "" {
		endpoints = append(endpoints, notifier.EndpointConfig{Name: "backup", URL: config.Get().NotifyBackupUrl})
	}
	cfg := &notifier.Config{
		Endpoints:               endpoints,
		Timeout:                 time.Second * 5,
		MaxRetries:              3,
		RetryDelay:              time.Millisecond * 100,
		MaxConns:                100,
		ReadBufferSize:          1024 * 4,
		WriteBufferSize:         1024 * 4,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
	}
	client, err := notifier.NewClient(cfg)
	if err != nil {
		logger.Error("failed to create webhook client", "error", err)
		return
	}

	// Initialize idempotency service
	idempotencyConfig := notifier.DefaultIdempotencyConfig()
	idempotencyService := notifier.NewIdempotencyService(redisAdap, idempotencyConfig)

	service, err := notifier.NewService(redisAdap)
	if err != nil {
		logger.Error("failed to create the notifier", "error", err)
		return
	}
	service.RegisterProcessor(notifier.NewWebhookProcessor(client, idempotencyService))

	// repositories and services backing the overdue sweep
	meterRepo := repository.NewMeterRepository(db)
	utilityRepo := repository.NewUtilityTypeRepository(db)
	tariffRepo := repository.NewTariffRepository(db)
	readingRepo := repository.NewReadingRepository(db)
	billRepo := repository.NewBillRepository(db)
	billingService := services.NewBillingService(readingRepo, billRepo, meterRepo, tariffRepo, utilityRepo, nil)

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	go func() {
		err := service.Start()
		if err != nil {
			logger.Error("failed to start notifier", "error", err)
		}
	}()

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	go runOverdueSweeper(sweepCtx, billingService)

	select {
	case <-c:
		cancelSweep()
		service.Stop()
	}
}

// runOverdueSweeper periodically flips unpaid bills past their due date to
// overdue. The status is derived at read time too; the sweep persists it.
func runOverdueSweeper(ctx context.Context, billing *services.BillingService) {
	interval := config.Get().OverdueSweepInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// run once at startup so a restarted worker catches up immediately
	sweep(ctx, billing)

	for {
		select {
		case <-ticker.C:
			sweep(ctx, billing)
		case <-ctx.Done():
			return
		}
	}
}

func sweep(ctx context.Context, billing *services.BillingService) {
	n, err := billing.MarkOverdueBills(ctx)
	if err != nil {
		logger.Error("overdue sweep failed", "error", err)
		return
	}
	logger.Info("overdue sweep finished", "marked", n)
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
