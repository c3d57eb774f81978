// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/carterperez-dev/printshop/internal/admin"
	"github.com/carterperez-dev/printshop/internal/auth"
	"github.com/carterperez-dev/printshop/internal/config"
	"github.com/carterperez-dev/printshop/internal/core"
	"github.com/carterperez-dev/printshop/internal/health"
	"github.com/carterperez-dev/printshop/internal/middleware"
	"github.com/carterperez-dev/printshop/internal/migrations"
	"github.com/carterperez-dev/printshop/internal/notify"
	"github.com/carterperez-dev/printshop/internal/order"
	"github.com/carterperez-dev/printshop/internal/payment"
	"github.com/carterperez-dev/printshop/internal/printjob"
	"github.com/carterperez-dev/printshop/internal/product"
	"github.com/carterperez-dev/printshop/internal/report"
	"github.com/carterperez-dev/printshop/internal/server"
	"github.com/carterperez-dev/printshop/internal/storage"
	"github.com/carterperez-dev/printshop/internal/user"
)

const (
	drainDelay = 5 * time.Second

	brokerRetries    = 5
	brokerRetryDelay = 2 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	generateKeys := flag.Bool("generate-keys", false, "write a new ES256 key pair to the configured paths and exit")
	flag.Parse()

	if err := run(*configPath, *generateKeys); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string, generateKeys bool) error {
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

	if generateKeys {
		if err := auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath); err != nil {
			return err
		}
		logger.Info("key pair written",
			"private", cfg.JWT.PrivateKeyPath,
			"public", cfg.JWT.PublicKeyPath,
		)
		return nil
	}

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App, "api")
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.MigrateOnStart {
		if err := migrations.Run(db.DB.DB); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	blobs, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.KeyID(),
	)

	conn, err := notify.Dial(cfg.AMQP.URL, brokerRetries, brokerRetryDelay)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open broker channel: %w", err)
	}
	if err := notify.Declare(ch, cfg.AMQP); err != nil {
		return err
	}
	logger.Info("broker connected",
		"exchange", cfg.AMQP.Exchange,
		"queue", cfg.AMQP.Queue,
	)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo, logger)
	userHandler := user.NewHandler(userSvc)

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(authRepo, jwtManager, userSvc, redis, logger)
	authHandler := auth.NewHandler(authSvc)
	userSvc.SetSessionRevoker(authSvc)

	productSvc := product.NewService(product.NewRepository(db.DB), logger)
	productHandler := product.NewHandler(productSvc)

	printJobSvc := printjob.NewService(printjob.NewRepository(db.DB), blobs, logger)
	printJobHandler := printjob.NewHandler(printJobSvc, cfg.Upload.MaxBytes)

	orderSvc := order.NewService(
		order.NewStore(db.DB),
		blobs,
		notify.NewPublisher(ch, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey),
		order.Options{
			StrictTransitions: cfg.Orders.StrictTransitions,
			VerifyPrintPrices: cfg.Orders.VerifyPrintPrices,
		},
		logger,
	)
	orderHandler := order.NewHandler(orderSvc, cfg.Upload.MaxBytes)

	paymentSvc := payment.NewService(
		payment.NewRepository(db.DB),
		orderSvc,
		payment.NewCheckoutClient(cfg.Payment),
		logger,
	)
	paymentHandler := payment.NewHandler(paymentSvc)

	reportSvc := report.NewService(
		report.NewRepository(db.DB),
		cfg.Report.TopN,
		cfg.Report.Location(),
		logger,
	)
	reportHandler := report.NewHandler(reportSvc)

	brokerCheck := health.CheckerFunc(func(context.Context) error {
		if conn.IsClosed() {
			return errors.New("broker connection closed")
		}
		return nil
	})

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
		health.Dependency{Name: "storage", Checker: blobs, Optional: true},
		health.Dependency{Name: "broker", Checker: brokerCheck, Optional: true},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats: db.Stats,
		DBPing:  db.Ping,
		Queue:   inspectQueue(conn, cfg.AMQP.Queue),
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	if cfg.Metrics.Enabled {
		router.Use(middleware.Metrics)
	}
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Window,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.JWKSHandler())
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	authenticator := middleware.Authenticator(authSvc)
	loginLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.PerMinute(5, 5),
		Prefix:   "login",
		FailOpen: true,
	}).Handler

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator, loginLimiter)
		userHandler.RegisterRoutes(r, authenticator)
		productHandler.RegisterRoutes(r, authenticator)
		printJobHandler.RegisterRoutes(r, authenticator)
		orderHandler.RegisterRoutes(r, authenticator, paymentHandler.OrderRoutes)
		paymentHandler.RegisterRoutes(r, authenticator)
		reportHandler.RegisterRoutes(r, authenticator)
		adminHandler.RegisterRoutes(r, authenticator, middleware.RequireAdmin)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := ch.Close(); err != nil {
		logger.Error("broker channel close error", "error", err)
	}
	if err := conn.Close(); err != nil {
		logger.Error("broker close error", "error", err)
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// inspectQueue opens a throwaway channel per call: a failed passive declare
// closes the channel it ran on, and the publisher's channel must survive.
func inspectQueue(conn *amqp.Connection, queue string) admin.QueueInspector {
	return func(context.Context) (admin.QueueStats, error) {
		ch, err := conn.Channel()
		if err != nil {
			return admin.QueueStats{}, fmt.Errorf("open broker channel: %w", err)
		}
		defer ch.Close() //nolint:errcheck // channel is discarded

		q, err := ch.QueueInspect(queue)
		if err != nil {
			return admin.QueueStats{}, fmt.Errorf("inspect queue: %w", err)
		}
		return admin.QueueStats{Name: q.Name, Messages: q.Messages, Consumers: q.Consumers}, nil
	}
}
