// Package app wires configuration into a running set of services shared by
// the API server and the cron runner.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	httpapi "asset-rental-backend/internal/api/http"
	"asset-rental-backend/internal/config"
	"asset-rental-backend/internal/events"
	"asset-rental-backend/internal/logger"
	"asset-rental-backend/internal/payment"
	"asset-rental-backend/internal/pricing"
	"asset-rental-backend/internal/repository"
	"asset-rental-backend/internal/repository/memory"
	"asset-rental-backend/internal/repository/postgres"
	"asset-rental-backend/internal/service"
)

// Backend is an entity store that also serves reports and health probes.
type Backend interface {
	repository.Store
	Reports() repository.ReportRepository
	Ping(ctx context.Context) error
}

type App struct {
	Store    Backend
	Services httpapi.Services

	closers []func() error
}

// New builds every dependency named in cfg. Optional integrations that are
// not configured are left out and logged; the lifecycle still works without
// them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	store, err := a.openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.Store = store

	favorites := service.NewFavoriteService(store)
	channels, err := notificationChannels(ctx, cfg.Notifier)
	if err != nil {
		a.Close()
		return nil, err
	}
	dispatcher := service.NewNotificationDispatcher(store.Repos().Notifications, channels)
	effects := service.NewSideEffects(favorites, dispatcher)

	publisher, err := a.publisher(ctx, cfg.Events, effects)
	if err != nil {
		a.Close()
		return nil, err
	}

	var gateway service.PaymentGateway
	if cfg.Payment.Mock || cfg.Payment.MercadoPagoAccessToken != "" {
		mp, err := payment.NewMercadoPagoGateway(cfg.Payment.MercadoPagoAccessToken, cfg.Payment.NotificationURL, cfg.Payment.Mock)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize payment gateway: %w", err)
		}
		gateway = mp
	} else {
		logger.Warn("Payment gateway not configured; checkout and webhooks are disabled")
	}

	var predictor service.PricePredictor
	if cfg.Pricing.PredictorURL != "" {
		predictor = pricing.NewHTTPPredictor(cfg.Pricing.PredictorURL, cfg.Pricing.Timeout)
	} else {
		logger.Warn("Price predictor not configured; price suggestions are disabled")
	}

	a.Services = httpapi.Services{
		Rentals: service.NewRentalService(store, publisher, service.RentalOptions{
			AllowPastStart:   cfg.Rental.AllowPastStart,
			ConflictRetries:  cfg.Rental.ConflictRetries,
			ReminderLeadDays: cfg.Rental.ReminderLeadDays,
		}),
		Payments: service.NewPaymentService(store, publisher, gateway, service.PaymentOptions{
			Currency:        cfg.Payment.Currency,
			ConflictRetries: cfg.Rental.ConflictRetries,
		}),
		Favorites:     favorites,
		Notifications: service.NewNotificationService(store.Repos().Notifications),
		Assets:        service.NewAssetService(store, favorites, predictor),
		Reports:       service.NewReportService(store.Reports(), store.Repos().Transactions, nil),
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.DatabaseConfig) (Backend, error) {
	if cfg.Driver == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	}

	logger.Info("Connecting to database...", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	dsn := (&config.Config{Database: cfg}).GetDatabaseConnectionString()
	db, err := postgres.Open(ctx, dsn, cfg.MaxOpenConns, cfg.MaxIdleConns)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	logger.Info("Database connection established")

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			a.Close()
			return nil, err
		}
	}
	return postgres.NewStore(db), nil
}

func (a *App) publisher(ctx context.Context, cfg config.EventsConfig, h events.Handler) (events.Publisher, error) {
	switch cfg.Mode {
	case "queue":
		q := events.NewQueue(h, cfg.Workers, cfg.BufferSize, cfg.MaxRetries, cfg.RetryDelay)
		q.Start(context.WithoutCancel(ctx))
		a.closers = append(a.closers, func() error { q.Close(); return nil })
		return q, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		q := events.NewRedisQueue(client, cfg.RedisKey, h, cfg.MaxRetries, cfg.RetryDelay)
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		done := make(chan struct{})
		go func() {
			defer close(done)
			q.Run(runCtx)
		}()
		a.closers = append(a.closers, func() error {
			cancel()
			<-done
			return client.Close()
		})
		return q, nil

	default:
		return events.NewInline(h), nil
	}
}

func notificationChannels(ctx context.Context, cfg config.NotifierConfig) (service.NotificationChannels, error) {
	channels := service.NotificationChannels{AdminEmail: cfg.AdminEmail}
	if cfg.FirebaseCredentialsFile != "" {
		push, err := service.NewFirebasePushSender(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			return channels, fmt.Errorf("failed to initialize push notifications: %w", err)
		}
		channels.Push = push
	}
	if cfg.SendGridAPIKey != "" {
		channels.Email = service.NewSendGridEmailSender(cfg.SendGridAPIKey, cfg.FromEmail, cfg.FromName)
	}
	return channels, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
