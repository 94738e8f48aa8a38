// Package app composes stores, services and handlers from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apphandler "scholarops/internal/application/handler"
	appmetrics "scholarops/internal/application/metrics"
	appservice "scholarops/internal/application/service"
	appstore "scholarops/internal/application/store"
	endhandler "scholarops/internal/endorsement/handler"
	endmetrics "scholarops/internal/endorsement/metrics"
	endservice "scholarops/internal/endorsement/service"
	httpapi "scholarops/internal/http"
	ivhandler "scholarops/internal/interview/handler"
	"scholarops/internal/interview/lock"
	ivmetrics "scholarops/internal/interview/metrics"
	ivservice "scholarops/internal/interview/service"
	ivstore "scholarops/internal/interview/store"
	"scholarops/internal/notification"
	"scholarops/internal/notification/kafka"
	"scholarops/internal/platform/config"
	platformmetrics "scholarops/internal/platform/metrics"
	"scholarops/internal/platform/postgres"
	platformredis "scholarops/internal/platform/redis"
	"scholarops/pkg/platform/audit"
	auditpublisher "scholarops/pkg/platform/audit/publisher"
	auditmemory "scholarops/pkg/platform/audit/store/memory"
	auditpostgres "scholarops/pkg/platform/audit/store/postgres"
	"scholarops/pkg/platform/tx"
)

// App is the assembled service.
type App struct {
	Router    http.Handler
	Lifecycle *appservice.Lifecycle
	Scheduler *ivservice.Scheduler
	Processor *endservice.Processor

	closers []func(context.Context) error
}

type stores struct {
	apps         appservice.Store
	evals        appservice.EvaluationStore
	slots        ivservice.SlotStore
	interviewers ivservice.InterviewerStore
	audit        audit.Store
	runner       tx.Runner
}

// Build wires the service. Postgres, Redis and Kafka are used when configured;
// otherwise in-memory stores, the in-process lock and a no-op notifier stand in.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{}
	checks := map[string]httpapi.HealthCheck{}

	s, db, err := openStores(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if db != nil {
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		checks["postgres"] = db.PingContext
		logger.InfoContext(ctx, "using postgres stores")
	} else {
		logger.WarnContext(ctx, "DATABASE_URL not set, using in-memory stores")
	}

	locker, err := a.buildLocker(ctx, cfg, checks)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	notifier, err := a.buildNotifier(ctx, cfg.Kafka, logger)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	m := platformmetrics.New()
	auditPublisher := auditpublisher.New(s.audit, auditpublisher.WithLogger(logger))

	lifecycle, err := appservice.New(s.apps, s.evals,
		appservice.WithLogger(logger),
		appservice.WithMetrics(appmetrics.New(m.Registry)),
		appservice.WithAuditPublisher(auditPublisher),
		appservice.WithTx(s.runner),
		appservice.WithNotifier(notifier),
	)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	scheduler, err := ivservice.New(s.slots, s.interviewers, lifecycle,
		ivservice.WithLogger(logger),
		ivservice.WithMetrics(ivmetrics.New(m.Registry)),
		ivservice.WithAuditPublisher(auditPublisher),
		ivservice.WithTx(s.runner),
		ivservice.WithLocker(locker),
		ivservice.WithNotifier(notifier),
	)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	processor, err := endservice.New(lifecycle,
		endservice.WithLogger(logger),
		endservice.WithMetrics(endmetrics.New(m.Registry)),
		endservice.WithConcurrency(cfg.Server.EndorsementConcurrency),
	)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.Lifecycle, a.Scheduler, a.Processor = lifecycle, scheduler, processor
	a.Router = httpapi.NewRouter(logger, m, checks,
		apphandler.New(lifecycle, logger),
		ivhandler.New(scheduler, logger),
		endhandler.New(processor, logger),
	)
	return a, nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStores(ctx context.Context, cfg config.DatabaseConfig) (stores, *sql.DB, error) {
	if cfg.URL == "" {
		return stores{
			apps:         appstore.NewInMemory(),
			evals:        appstore.NewInMemoryEvaluations(),
			slots:        ivstore.NewInMemorySlots(),
			interviewers: ivstore.NewInMemoryInterviewers(),
			audit:        auditmemory.NewInMemoryStore(),
			runner:       tx.NewInMemoryRunner(),
		}, nil, nil
	}
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return stores{}, nil, err
	}
	return stores{
		apps:         appstore.NewPostgres(db),
		evals:        appstore.NewPostgresEvaluations(db),
		slots:        ivstore.NewPostgresSlots(db),
		interviewers: ivstore.NewPostgresInterviewers(db),
		audit:        auditpostgres.New(db),
		runner:       tx.NewSQLRunner(db),
	}, db, nil
}

func (a *App) buildLocker(ctx context.Context, cfg config.Config, checks map[string]httpapi.HealthCheck) (lock.Locker, error) {
	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if client == nil {
		return lock.NewSharded(lock.WithTimeout(cfg.Server.LockTimeout)), nil
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	checks["redis"] = client.Health
	return lock.NewRedis(client.Client,
		lock.WithLeaseTTL(cfg.Redis.LeaseTTL),
		lock.WithRedisTimeout(cfg.Server.LockTimeout),
	), nil
}

func (a *App) buildNotifier(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (notification.Notifier, error) {
	if len(cfg.Brokers) == 0 {
		return notification.Noop{}, nil
	}
	publisher, err := kafka.New(kafka.Config{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		ClientID: cfg.ClientID,
	}, kafka.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, publisher.Close)
	if err := publisher.EnsureTopic(ctx, 3, 1); err != nil {
		logger.WarnContext(ctx, "could not ensure notification topic", "error", err)
	}
	return publisher, nil
}
