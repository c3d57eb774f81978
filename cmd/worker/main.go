// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carterperez-dev/printshop/internal/config"
	"github.com/carterperez-dev/printshop/internal/core"
	"github.com/carterperez-dev/printshop/internal/notify"
)

const (
	brokerRetries    = 10
	brokerRetryDelay = 3 * time.Second
	consumerTag      = "printshop-notify"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	metricsAddr := flag.String("metrics-addr", ":9101", "listen address for /metrics, empty to disable")
	flag.Parse()

	if err := run(*configPath, *metricsAddr); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

func run(configPath, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := core.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App, "worker")
	if err != nil {
		logger.Warn("failed to initialize telemetry", "error", err)
	}

	conn, err := notify.Dial(cfg.AMQP.URL, brokerRetries, brokerRetryDelay)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck // process is exiting

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open broker channel: %w", err)
	}

	concurrency := max(cfg.AMQP.Concurrency, 1)
	if err := ch.Qos(concurrency, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}
	if err := notify.Declare(ch, cfg.AMQP); err != nil {
		return err
	}

	deliveries, err := ch.Consume(cfg.AMQP.Queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", cfg.AMQP.Queue, err)
	}

	var metricsSrv *http.Server
	if metricsAddr != "" && cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsSrv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
	}

	worker := notify.NewWorker(notify.NewMailer(cfg.SMTP), logger)
	consumer := notify.NewConsumer(worker.HandleOrderEvent, concurrency, logger)

	logger.Info("notification worker started",
		"queue", cfg.AMQP.Queue,
		"concurrency", concurrency,
		"smtp_host", cfg.SMTP.Host,
	)

	runErr := consumer.Run(ctx, deliveries)

	if err := ch.Cancel(consumerTag, false); err != nil {
		logger.Warn("cancel consumer", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown error", "error", err)
		}
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("notification worker stopped")
	return nil
}
