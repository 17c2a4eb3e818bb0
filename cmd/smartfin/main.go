package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"smartfin/internal/amqp"
	"smartfin/internal/api"
	"smartfin/internal/backend"
	"smartfin/internal/cache"
	"smartfin/internal/cli"
	apphttp "smartfin/internal/http"
	"smartfin/internal/log"
	"smartfin/internal/services"
	"smartfin/internal/session"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err, "error_type", log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).CreateSessionStore(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize session store",
			log.FieldError, err,
			"backend", backendConfig.Type.String())
		os.Exit(1)
	}

	cacheManager := cache.NewManager(logger)
	cacheManager.Register("sessions", result.Cleaner)
	cacheManager.StartCleanup(10 * time.Minute)

	sessions := session.NewManager(result.Store, session.Options{
		Secret: []byte(cfg.SessionSecret),
		MaxAge: cfg.SessionMaxAge,
		Secure: cfg.CookieSecure,
	}, logger)

	client := api.New(cfg.APIBaseURL, api.WithTimeout(cfg.APITimeout), api.WithLogger(logger))

	// Activity publishing is optional; pages work without a broker.
	var (
		publisher  services.Publisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, activity messages disabled",
				log.FieldError, err,
				"exchange", cfg.AMQPExchange)
		} else {
			publisher = amqpClient
			logger.Info("Publishing activity messages", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv := apphttp.NewServer(cfg.Addr(), apphttp.Deps{
		Sessions: sessions,
		Auth:     services.NewAuthService(client),
		Ledger:   services.NewLedgerService(client, publisher, logger),
		API:      client,
		Logger:   logger,
	})
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", log.FieldError, err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Failed to close session store", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting smartfin server",
		"port", cfg.Port,
		"api", cfg.APIBaseURL,
		"session_backend", cfg.SessionBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
