package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/amyusif/madpc-notify/internal/config"
	"github.com/amyusif/madpc-notify/internal/directory"
	"github.com/amyusif/madpc-notify/internal/handler"
	"github.com/amyusif/madpc-notify/internal/infra/postgresql"
	"github.com/amyusif/madpc-notify/internal/infra/postgresql/migrations"
	infraredis "github.com/amyusif/madpc-notify/internal/infra/redis"
	"github.com/amyusif/madpc-notify/internal/observability"
	"github.com/amyusif/madpc-notify/internal/provider"
	"github.com/amyusif/madpc-notify/internal/ratelimit"
	"github.com/amyusif/madpc-notify/internal/repository"
	"github.com/amyusif/madpc-notify/internal/service"
	"github.com/amyusif/madpc-notify/internal/transport"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}

	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close() //nolint:errcheck

	providers, err := buildProviders(cfg, logger)
	if err != nil {
		return err
	}

	var ledger repository.LedgerRepository
	if cfg.LedgerEnabled {
		ledger = repository.NewGormLedgerRepo(db)
	} else {
		logger.Warn("delivery ledger disabled, dispatches will not be auditable")
	}

	var limiter ratelimit.RateLimiter
	if cfg.RateLimitPerSec > 0 {
		throttle, err := infraredis.NewChannelThrottle(redisClient, cfg.RateLimitPerSec)
		if err != nil {
			return fmt.Errorf("init rate limiter: %w", err)
		}
		limiter = throttle
	}

	resolver, err := directory.NewRecipientResolver(directory.NewGormContactDirectory(db), logger)
	if err != nil {
		return fmt.Errorf("init recipient resolver: %w", err)
	}

	dispatchService, err := service.NewDispatchService(resolver, providers, ledger, limiter, logger)
	if err != nil {
		return fmt.Errorf("init dispatch service: %w", err)
	}

	metrics := observability.NewMetrics()
	dispatchService.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		AppName:      "madpc-notify",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	if err := handler.RegisterDispatchRoutes(app, dispatchService); err != nil {
		return fmt.Errorf("register dispatch routes: %w", err)
	}
	handler.RegisterHealthRoutes(app, db, redisClient)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()

	logger.Info("api listening",
		zap.Int("port", cfg.APIPort),
		zap.Bool("ledger", cfg.LedgerEnabled),
		zap.String("smsVendor", cfg.SMSProvider),
		zap.Bool("email", cfg.EmailConfigured()),
	)

	select {
	case sig := <-shutdown:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	return nil
}

// buildProviders wires one provider per channel. Email stays unwired when
// its credentials are absent; dispatches naming the email channel then fail
// fast with a misconfiguration error instead of losing sends. SMS always
// resolves, falling back to the simulated vendor.
func buildProviders(cfg *config.Config, logger *zap.Logger) ([]provider.ChannelProvider, error) {
	providers := make([]provider.ChannelProvider, 0, 2)

	if cfg.EmailConfigured() {
		email, err := provider.NewEmailProvider(cfg.EmailAPIURL, cfg.EmailFrom, cfg.EmailAPIKey)
		if err != nil {
			return nil, fmt.Errorf("init email provider: %w", err)
		}
		providers = append(providers, email)
	} else {
		logger.Warn("email provider not configured, EMAIL channel unavailable")
	}

	sms, err := provider.NewSMSProvider(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init sms provider: %w", err)
	}
	providers = append(providers, sms)

	return providers, nil
}
