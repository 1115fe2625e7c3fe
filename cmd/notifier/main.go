// cmd/notifier/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"vhm-notifier/internal/audit"
	"vhm-notifier/internal/common/auth"
	"vhm-notifier/internal/common/aws"
	"vhm-notifier/internal/common/config"
	"vhm-notifier/internal/common/database"
	"vhm-notifier/internal/common/logger"
	"vhm-notifier/internal/notify/channel"
	"vhm-notifier/internal/notify/dispatcher"
	"vhm-notifier/internal/notify/template"
	"vhm-notifier/internal/scanner"
	"vhm-notifier/internal/store"
	httpapi "vhm-notifier/internal/transport/http"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification dispatch engine...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Record store (postgres) with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Postgres initialization")
	if err != nil {
		zapLog.Fatal("postgres unavailable", zap.Error(err))
	}
	defer pg.Close()

	// --- Contact cache (redis) with retry ---
	var rds *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rds, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rds.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis initialization")
	if err != nil {
		zapLog.Fatal("redis unavailable", zap.Error(err))
	}
	defer rds.Close()

	// --- Audit index (elasticsearch), optional ---
	var indexer *audit.Indexer
	if cfg.Database.Elasticsearch.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			return err
		}, 5, 2*time.Second, zapLog, "Elasticsearch initialization")
		if err != nil {
			// Indexing is best-effort; the engine runs without it.
			zapLog.Warn("elasticsearch unavailable, audit indexing disabled", zap.Error(err))
		} else {
			indexer = audit.NewIndexer(es.Client, cfg.Database.Elasticsearch.Index, cfg.Audit.IndexTimeout, log)
		}
	}

	// --- Channel transports ---
	var bot *tele.Bot
	if cfg.Telegram.Token != "" {
		bot, err = tele.NewBot(tele.Settings{Token: cfg.Telegram.Token})
		if err != nil {
			zapLog.Fatal("telegram bot initialization failed", zap.Error(err))
		}
	} else {
		zapLog.Warn("telegram token not set, telegram channel disabled")
	}

	var sesClient *aws.SESClient
	if cfg.Email.Enabled {
		sesClient, err = aws.NewSESClient(ctx, cfg.Email.AWSRegion)
		if err != nil {
			zapLog.Fatal("ses client initialization failed", zap.Error(err))
		}
	}

	// --- Assemble the engine ---
	st := store.NewPostgres(pg.DB)

	registry := template.NewRegistry()
	if cfg.App.TemplatesFile != "" {
		if err := registry.LoadFile(cfg.App.TemplatesFile); err != nil {
			zapLog.Fatal("template file load failed", zap.Error(err))
		}
	}

	resolver := channel.NewAddressResolver(st, rds.Client, cfg.Database.Redis.CacheTTL, log)

	var telegramAPI channel.TelegramAPI
	if bot != nil {
		telegramAPI = bot
	}
	var sesAPI channel.SESAPI
	if sesClient != nil {
		sesAPI = sesClient
	}
	senders := []channel.Sender{
		channel.NewTelegramSender(telegramAPI, cfg.Telegram.SendTimeout),
		channel.NewEmailSender(sesAPI, cfg.Email.FromEmail),
		channel.NewSMSSender(),
	}

	var auditIndexer dispatcher.AuditIndexer
	if indexer != nil {
		auditIndexer = indexer
	}
	disp := dispatcher.New(registry, senders, resolver, st, auditIndexer, log)

	taskgen := scanner.NewTaskGenerator(st, log)
	scan := scanner.New(st, disp, taskgen, cfg.Scanner, log)
	if cfg.Scanner.Enabled {
		scan.Start()
		defer scan.Stop()
	} else {
		zapLog.Warn("scheduled scanner disabled by config")
	}

	// --- HTTP API ---
	authProvider := auth.NewProvider(cfg.Auth)
	api := httpapi.NewServer(disp, scan, st, st, authProvider, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.Router(cfg.Server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLog.Info("http server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Shutdown complete")
}
