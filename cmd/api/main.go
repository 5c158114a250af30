// Package main is the entrypoint for the Letterbox API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/letterbox/letterbox/internal/cache"
	"github.com/letterbox/letterbox/internal/config"
	"github.com/letterbox/letterbox/internal/email"
	"github.com/letterbox/letterbox/internal/handler"
	"github.com/letterbox/letterbox/internal/metrics"
	"github.com/letterbox/letterbox/internal/repository"
	"github.com/letterbox/letterbox/internal/server"
	"github.com/letterbox/letterbox/internal/service"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("letterbox exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := initLogger(cfg)

	if cfg.RunMigrations {
		if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return fmt.Errorf("run migrations: %s", sanitizeError(err, cfg.DatabaseURL))
		}
		logger.Info("database migrations applied")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return fmt.Errorf("connect database")
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		repo.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return fmt.Errorf("connect redis")
	}
	logger.Info("connected to Redis")

	mailer, err := email.NewClient(email.Config{
		BaseURL: cfg.EmailBaseURL,
		Sender:  cfg.EmailSender,
		Token:   cfg.EmailToken,
		Timeout: cfg.EmailTimeout,
	}, logger)
	if err != nil {
		repo.Close()
		_ = cacheClient.Close()
		return fmt.Errorf("email client: %w", err)
	}

	trustedProxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		repo.Close()
		_ = cacheClient.Close()
		return err
	}

	recorder := metrics.NewPrometheus(prometheus.DefaultRegisterer)
	validator := service.NewValidator()

	subscriptions := service.NewSubscriptionService(repo, mailer, validator, service.SubscriptionConfig{
		BaseURL:      cfg.ConfirmationBaseURL(),
		StoreTimeout: cfg.StoreTimeout,
	}, recorder, logger)

	newsletters := service.NewNewsletterService(repo, repo, mailer, validator, service.NewsletterConfig{
		HashSecret:   cfg.HashSecret,
		StoreTimeout: cfg.StoreTimeout,
	}, recorder, logger)

	router := setupRouter(routerDeps{
		root:          handler.New(version, logger),
		health:        handler.NewHealthHandler(0, logger, handler.Dependency{Name: "postgres", Checker: repo}, handler.Dependency{Name: "redis", Checker: cacheClient}),
		subscriptions: handler.NewSubscriptionHandler(subscriptions, logger),
		newsletters:   handler.NewNewsletterHandler(newsletters, logger),
		metrics:       handler.NewMetricsHandler(prometheus.DefaultGatherer),
		limiter:       cacheClient,
		recorder:      recorder,

		trustedProxies: trustedProxies,
	}, cfg, logger)

	srv := server.New(router, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.AppPort),
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Registered first, closed last.
	srv.OnShutdown("postgres", func(ctx context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(ctx context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
		"version", version,
	)

	return srv.Run(ctx)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "letterbox")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
