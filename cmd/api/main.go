package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/go-recovery-api/internal/application/recovery"
	"github.com/go-recovery-api/internal/config"
	"github.com/go-recovery-api/internal/infrastructure/dynamo"
	"github.com/go-recovery-api/internal/infrastructure/memory"
	"github.com/go-recovery-api/internal/infrastructure/notify"
	redisinfra "github.com/go-recovery-api/internal/infrastructure/redis"
	"github.com/go-recovery-api/internal/infrastructure/smtp"
	"github.com/go-recovery-api/internal/infrastructure/sns"
	transporthttp "github.com/go-recovery-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	passcodeRepo := dynamo.NewPasscodeRepo(dynamoClient, cfg.DynamoTables.Passcodes)
	accountRepo := dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts)

	// Issuance throttling: Redis when configured, in-process otherwise.
	var limiter recovery.IssueLimiter
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		limiter = redisinfra.NewIssueLimiter(rdb, cfg.IssueWindow, 1)
	} else {
		log.Println("WARN: REDIS_ADDR not set, issuance throttling is per-instance only")
		limiter = memory.NewIssueLimiter(cfg.IssueWindow, 1)
	}

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	deps := &transporthttp.Deps{
		PasscodeRepo: passcodeRepo,
		AccountRepo:  accountRepo,
		Notifier:     notify.New(mailer, smsSender),
		IssueLimiter: limiter,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// Expired-record sweep runs until shutdown.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go recovery.NewSweeper(passcodeRepo, cfg.SweepInterval).Run(sweepCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
