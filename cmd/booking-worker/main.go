package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/booklinehq/bookline/cmd/mainconfig"
	"github.com/booklinehq/bookline/internal/automation"
	"github.com/booklinehq/bookline/internal/booking"
	appconfig "github.com/booklinehq/bookline/internal/config"
	"github.com/booklinehq/bookline/internal/observability/metrics"
	"github.com/booklinehq/bookline/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking worker", "env", cfg.Env)

	awsConfig, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	queue := booking.NewSQSQueue(sqs.NewFromConfig(awsConfig), cfg.BookingQueueURL)

	capability := automation.NewRodCapability(cfg.DevtoolsWSURL, logger)
	driver := booking.NewDriver(capability, cfg.BookingPageURL, logger,
		booking.WithScrapeWait(cfg.ScrapeWaitTimeout),
		booking.WithSubmitWait(cfg.SubmitWaitTimeout),
		booking.WithSettleDelay(cfg.SubmitSettleDelay),
		booking.WithScreenshotDir(cfg.ScreenshotDir),
		booking.WithDriverMetrics(metrics.NewBotMetrics(nil)),
	)

	worker := booking.NewWorker(driver, queue, logger,
		booking.WithWorkerCount(cfg.WorkerCount),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down booking worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("booking worker stopped")
	case <-doneCtx.Done():
		logger.Error("booking worker shutdown timed out", "error", doneCtx.Err())
	}
}
