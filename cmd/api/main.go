package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/contactbook-backend/api/routes"
	"github.com/angelmondragon/contactbook-backend/internal/auth"
	"github.com/angelmondragon/contactbook-backend/internal/contacts"
	"github.com/angelmondragon/contactbook-backend/internal/users"
	"github.com/angelmondragon/contactbook-backend/pkg/config"
	"github.com/angelmondragon/contactbook-backend/pkg/db"
	"github.com/angelmondragon/contactbook-backend/pkg/instance"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/angelmondragon/contactbook-backend/pkg/mailer"
	"github.com/angelmondragon/contactbook-backend/pkg/metrics"
	"github.com/angelmondragon/contactbook-backend/pkg/migrate"
	"github.com/angelmondragon/contactbook-backend/pkg/pubsub"
	"github.com/angelmondragon/contactbook-backend/pkg/redis"
	"github.com/angelmondragon/contactbook-backend/pkg/security"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i].Close())
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	closers = append(closers, dbClient)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("run dev migrations: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return fmt.Errorf("bootstrap redis: %w", err)
		}
		closers = append(closers, redisClient)
	} else {
		logg.Warn(ctx, "redis not configured, auth rate limiting disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mail, mailClosers, err := newMailer(ctx, cfg, logg, metrics.NewMailerMetrics(registry))
	if err != nil {
		return err
	}
	closers = append(closers, mailClosers...)

	userRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:  userRepo,
		Hasher:    security.NewHasher(cfg.Password),
		Mailer:    mail,
		Logger:    logg,
		JWTConfig: cfg.JWT,
		OTPConfig: cfg.OTP,
		BaseURL:   cfg.App.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("create auth service: %w", err)
	}

	contactService, err := contacts.NewService(contacts.ServiceParams{
		Repo:    contacts.NewRepository(dbClient.DB()),
		DB:      dbClient,
		Owners:  userRepo,
		MaxRows: cfg.Import.MaxRows,
	})
	if err != nil {
		return fmt.Errorf("create contacts service: %w", err)
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			metrics.NewHTTPMetrics(registry),
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			authService,
			contactService,
		),
	}

	serveErr := make(chan error, 1)
	go func() {
		logCtx := logg.WithFields(ctx, map[string]any{
			"env":      cfg.App.Env,
			"addr":     addr,
			"driver":   dbClient.Driver(),
			"instance": instance.GetID(),
		})
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(context.Background(), "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	return nil
}

// newMailer builds the configured mailer along with whatever must be closed
// after the server stops.
func newMailer(ctx context.Context, cfg *config.Config, logg *logger.Logger, m *metrics.MailerMetrics) (mailer.Mailer, []io.Closer, error) {
	switch cfg.Mailer.NormalizedDriver() {
	case config.MailerDriverPubSub:
		client, err := pubsub.NewClient(ctx, cfg.GCP, []string{cfg.Mailer.Topic}, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap pubsub: %w", err)
		}
		pub, err := mailer.NewPubSubMailer(client.Publisher(cfg.Mailer.Topic), cfg.Mailer.From, logg, m)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("create pubsub mailer: %w", err)
		}
		// the publisher flushes before its client goes away
		return pub, []io.Closer{client, pub}, nil
	default:
		return mailer.NewLogMailer(logg, cfg.Mailer.From, m), nil, nil
	}
}
