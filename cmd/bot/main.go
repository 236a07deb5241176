package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/booklinehq/bookline/cmd/mainconfig"
	"github.com/booklinehq/bookline/internal/api/router"
	"github.com/booklinehq/bookline/internal/automation"
	"github.com/booklinehq/bookline/internal/booking"
	"github.com/booklinehq/bookline/internal/catalog"
	appconfig "github.com/booklinehq/bookline/internal/config"
	"github.com/booklinehq/bookline/internal/conversation"
	"github.com/booklinehq/bookline/internal/observability/metrics"
	"github.com/booklinehq/bookline/internal/session"
	"github.com/booklinehq/bookline/internal/telegram"
	"github.com/booklinehq/bookline/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting bookline bot",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	botMetrics := metrics.NewBotMetrics(nil)

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	sessions := session.NewRedisStore(redisClient)

	capability := automation.NewRodCapability(cfg.DevtoolsWSURL, logger)
	driver := booking.NewDriver(capability, cfg.BookingPageURL, logger,
		booking.WithScrapeWait(cfg.ScrapeWaitTimeout),
		booking.WithSubmitWait(cfg.SubmitWaitTimeout),
		booking.WithSettleDelay(cfg.SubmitSettleDelay),
		booking.WithScreenshotDir(cfg.ScreenshotDir),
		booking.WithDriverMetrics(botMetrics),
	)

	snapshots := catalog.NewSnapshotStore(cfg.CatalogCachePath)
	cache := catalog.NewCache(driver, snapshots, cfg.CatalogCacheTTL, logger,
		catalog.WithCacheMetrics(botMetrics),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The in-memory queue keeps everything in one process; SQS splits the
	// submission workers into the booking-worker binary.
	var (
		publisher *booking.Publisher
		worker    *booking.Worker
	)
	if cfg.UseMemoryQueue {
		queue := booking.NewMemoryQueue(64)
		publisher = booking.NewPublisher(queue, logger)
		worker = booking.NewWorker(driver, queue, logger, booking.WithWorkerCount(cfg.WorkerCount))
		worker.Start(ctx)
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		queue := booking.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.BookingQueueURL)
		publisher = booking.NewPublisher(queue, logger)
	}

	tgClient := telegram.NewClient(cfg.TelegramBotToken, logger,
		telegram.WithBaseURL(cfg.TelegramAPIBaseURL),
		telegram.WithSendMetrics(botMetrics),
	)
	dialogue := conversation.NewService(sessions, cache, driver, publisher, tgClient, logger)
	webhook := telegram.NewWebhookHandler(dialogue, logger,
		telegram.WithSecretToken(cfg.TelegramWebhookSecret),
		telegram.WithCallbackAnswerer(tgClient),
		telegram.WithUpdateMetrics(botMetrics),
	)

	if cfg.TelegramWebhookURL != "" {
		hookCtx, hookCancel := context.WithTimeout(ctx, 15*time.Second)
		if err := tgClient.SetWebhook(hookCtx, cfg.TelegramWebhookURL, cfg.TelegramWebhookSecret); err != nil {
			logger.Error("failed to register webhook", "error", err)
		}
		hookCancel()
	}

	r := router.New(&router.Config{
		Logger:         logger,
		WebhookHandler: webhook,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	cancel()
	if worker != nil {
		waitCh := make(chan struct{})
		go func() {
			worker.Wait()
			close(waitCh)
		}()
		select {
		case <-waitCh:
			logger.Info("booking workers stopped")
		case <-shutdownCtx.Done():
			logger.Error("booking worker shutdown timed out", "error", shutdownCtx.Err())
		}
	}

	logger.Info("server stopped")
}
