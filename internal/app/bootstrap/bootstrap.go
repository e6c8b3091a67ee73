package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	caseservice "eleitoral/contexts/adjudication/case-service"
	"eleitoral/contexts/adjudication/case-service/adapters/calendar"
	casepostgres "eleitoral/contexts/adjudication/case-service/adapters/postgres"
	caseprometheus "eleitoral/contexts/adjudication/case-service/adapters/prometheus"
	caseworkers "eleitoral/contexts/adjudication/case-service/application/workers"
	"eleitoral/contexts/adjudication/case-service/domain/entities"
	caseports "eleitoral/contexts/adjudication/case-service/ports"
	tallyservice "eleitoral/contexts/tabulation/tally-service"
	tallypostgres "eleitoral/contexts/tabulation/tally-service/adapters/postgres"
	tallyprometheus "eleitoral/contexts/tabulation/tally-service/adapters/prometheus"
	tallyworkers "eleitoral/contexts/tabulation/tally-service/application/workers"
	tallyports "eleitoral/contexts/tabulation/tally-service/ports"
	"eleitoral/internal/platform/config"
	"eleitoral/internal/platform/db"
	"eleitoral/internal/platform/httpserver"
	"eleitoral/internal/platform/messaging"
	"eleitoral/internal/platform/metrics"
	"eleitoral/internal/platform/outbox"
	"eleitoral/internal/platform/tracing"
	"eleitoral/internal/shared/deadline"
	"eleitoral/internal/shared/sequence"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const idempotencyTTL = 7 * 24 * time.Hour

// Runtime holds both context modules wired to one store, bus and telemetry
// stack.
type Runtime struct {
	Config   config.Config
	Cases    caseservice.Module
	Tally    tallyservice.Module
	Bus      *messaging.Kafka
	Registry *prometheus.Registry
	Tracing  *tracing.Provider

	database *db.Postgres
	redis    *redis.Client
	logger   *slog.Logger
}

type APIApp struct {
	runtime *Runtime
	server  *httpserver.Server
	// workers run inside the API process when the store is process-local.
	workers *WorkerApp
	logger  *slog.Logger
}

type WorkerApp struct {
	runtime      *Runtime
	caseRelay    outbox.Relay
	tallyRelay   outbox.Relay
	sweeper      caseworkers.AppealWindowSweeper
	consumer     tallyworkers.CaseConcludedConsumer
	relayEnabled bool
	sweepEnabled bool
	pollInterval time.Duration
	ownsRuntime  bool
	logger       *slog.Logger
}

func BuildAPI(cfg config.Config, logger *slog.Logger) (*APIApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", cfg.ServiceName, "process", "api")

	rt, err := BuildRuntime(cfg, logger)
	if err != nil {
		return nil, err
	}

	server := httpserver.New(
		rt.Cases,
		rt.Tally,
		logger,
		normalizeAddr(cfg.HTTPPort),
		httpserver.WithMetrics(metrics.Handler(rt.Registry)),
		httpserver.WithTracer(rt.Tracing.Tracer()),
	)
	app := &APIApp{runtime: rt, server: server, logger: logger}
	if cfg.Store == config.StoreMemory {
		app.workers = newWorkerApp(rt, logger, false)
	}
	return app, nil
}

func BuildWorker(cfg config.Config, logger *slog.Logger) (*WorkerApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", cfg.ServiceName, "process", "worker")

	rt, err := BuildRuntime(cfg, logger)
	if err != nil {
		return nil, err
	}
	return newWorkerApp(rt, logger, true), nil
}

// BuildRuntime opens the configured store, migrates it, loads reference data
// and wires both modules.
func BuildRuntime(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	statute, calc, err := statuteFromConfig(cfg.Statute)
	if err != nil {
		return nil, err
	}

	provider, err := tracing.New(tracing.Config{ServiceName: cfg.ServiceName, Stdout: cfg.TraceStdout})
	if err != nil {
		return nil, err
	}
	bus, err := messaging.NewKafka(nil, cfg.EventBusBuffer, logger)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:   cfg,
		Bus:      bus,
		Registry: metrics.NewRegistry(),
		Tracing:  provider,
		logger:   logger,
	}

	caseSequences := caseports.SequenceIssuer(sequence.NewMemory())
	tallySequences := tallyports.SequenceIssuer(sequence.NewMemory())
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			_ = rt.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		rt.redis = client
		caseSequences = sequence.NewRedis(client, cfg.ServiceName+":case-seq")
		tallySequences = sequence.NewRedis(client, cfg.ServiceName+":tally-seq")
	}

	caseMetrics := caseprometheus.New(rt.Registry)
	tallyMetrics := tallyprometheus.New(rt.Registry)

	var references referenceWriter
	switch cfg.Store {
	case config.StoreMemory:
		rt.Cases = caseservice.NewInMemoryModule(statute, nil, logger)
		rt.Cases = withCaseSupport(rt.Cases, calc, caseSequences, caseMetrics)
		references = memoryReferences{store: rt.Cases.Store}

		rt.Tally = tallyservice.NewInMemoryModule(rt.Cases.Queries, bus, nil, logger)
		rt.Tally = withTallySupport(rt.Tally, tallySequences, tallyMetrics)
	case config.StorePostgres, config.StoreSQLite:
		if cfg.Store == config.StorePostgres {
			rt.database, err = db.Connect(cfg.PostgresDSN)
		} else {
			rt.database, err = db.OpenSQLite(cfg.SQLitePath)
		}
		if err != nil {
			_ = rt.Close()
			return nil, err
		}

		caseRepo := casepostgres.NewRepository(rt.database.DB, logger)
		tallyRepo := tallypostgres.NewRepository(rt.database.DB, logger)
		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err = errors.Join(caseRepo.Migrate(migrateCtx), tallyRepo.Migrate(migrateCtx))
		cancel()
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("migrate %s store: %w", cfg.Store, err)
		}

		rt.Cases = caseservice.NewModule(caseservice.Dependencies{
			Cases:          caseRepo,
			UnitOfWork:     caseRepo,
			Parties:        caseRepo,
			Committee:      caseRepo,
			Deadlines:      calc,
			Sequences:      caseSequences,
			Idempotency:    caseRepo,
			Audit:          caseRepo,
			Outbox:         caseRepo,
			Metrics:        caseMetrics,
			Clock:          casepostgres.SystemClock{},
			IDGen:          casepostgres.UUIDGenerator{},
			Statute:        statute,
			IdempotencyTTL: idempotencyTTL,
			Logger:         logger,
		})
		references = caseRepo

		rt.Tally = tallyservice.NewModule(tallyservice.Dependencies{
			Slates:     tallyRepo,
			Ballots:    tallyRepo,
			Sections:   tallyRepo,
			Scopes:     tallyRepo,
			Snapshots:  tallyRepo,
			Seals:      tallyRepo,
			Disputes:   rt.Cases.Queries,
			Sequences:  tallySequences,
			Audit:      tallyRepo,
			Metrics:    tallyMetrics,
			Outbox:     tallyRepo,
			Dedup:      tallyRepo,
			Subscriber: bus,
			Clock:      tallypostgres.SystemClock{},
			IDGen:      tallypostgres.UUIDGenerator{},
			Logger:     logger,
		})
	default:
		_ = rt.Close()
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if path := strings.TrimSpace(cfg.ReferenceFile); path != "" {
		loadCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := LoadReferenceFile(loadCtx, path, references)
		cancel()
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
	}

	logger.Info("runtime wired",
		"event", "bootstrap_runtime_wired",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"store", cfg.Store,
		"redis_sequences", rt.redis != nil,
	)
	return rt, nil
}

// withCaseSupport swaps the in-memory defaults for the configured calendar,
// sequence issuer and metrics while keeping the memory store.
func withCaseSupport(module caseservice.Module, calc calendar.Calculator, sequences caseports.SequenceIssuer, caseMetrics caseports.Metrics) caseservice.Module {
	store := module.Store
	rewired := caseservice.NewModule(caseservice.Dependencies{
		Cases:          store,
		UnitOfWork:     store,
		Parties:        store,
		Committee:      store,
		Deadlines:      calc,
		Sequences:      sequences,
		Idempotency:    store,
		Audit:          store,
		Outbox:         store,
		Metrics:        caseMetrics,
		Clock:          store,
		IDGen:          store,
		Statute:        module.UseCase.Statute,
		IdempotencyTTL: idempotencyTTL,
		Logger:         module.Logger,
	})
	rewired.Store = store
	return rewired
}

func withTallySupport(module tallyservice.Module, sequences tallyports.SequenceIssuer, tallyMetrics tallyports.Metrics) tallyservice.Module {
	store := module.Store
	rewired := tallyservice.NewModule(tallyservice.Dependencies{
		Slates:     store,
		Ballots:    store,
		Sections:   store,
		Scopes:     store,
		Snapshots:  store,
		Seals:      store,
		Disputes:   module.UseCase.Disputes,
		Sequences:  sequences,
		Audit:      store,
		Metrics:    tallyMetrics,
		Outbox:     store,
		Dedup:      store,
		Subscriber: module.Consumer.Subscriber,
		Clock:      store,
		IDGen:      store,
		Logger:     module.Logger,
	})
	rewired.Store = store
	return rewired
}

func statuteFromConfig(cfg config.Statute) (entities.Statute, calendar.Calculator, error) {
	holidays, err := deadline.ParseHolidays(cfg.Holidays)
	if err != nil {
		return entities.Statute{}, calendar.Calculator{}, fmt.Errorf("parse statute holidays: %w", err)
	}
	statute := entities.Statute{
		DefenseDays:           cfg.DefenseDays,
		EvidenceDays:          cfg.EvidenceDays,
		AllegationDays:        cfg.AllegationDays,
		CounterAllegationDays: cfg.CounterAllegationDays,
		AppealDays:            cfg.AppealDays,
		Mode:                  entities.CalendarMode(cfg.CalendarMode),
		QuorumFraction:        cfg.QuorumFraction,
		MaxTier:               cfg.MaxTier,
	}
	return statute.Normalize(), calendar.New(holidays), nil
}

func newWorkerApp(rt *Runtime, logger *slog.Logger, ownsRuntime bool) *WorkerApp {
	cfg := rt.Config
	consumer := rt.Tally.Consumer
	consumer.ConsumerGroup = "tally-service-case-cg"
	consumer.DedupTTL = idempotencyTTL
	consumer.Disabled = !cfg.EnableCaseConcludedConsumer
	consumer.Logger = logger

	sweeper := rt.Cases.Sweeper
	sweeper.Logger = logger

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	caseRelay := rt.Cases.OutboxRelay(rt.Bus)
	caseRelay.Logger = logger
	tallyRelay := rt.Tally.OutboxRelay(rt.Bus)
	tallyRelay.Logger = logger
	return &WorkerApp{
		runtime:      rt,
		caseRelay:    caseRelay,
		tallyRelay:   tallyRelay,
		sweeper:      sweeper,
		consumer:     consumer,
		relayEnabled: cfg.EnableOutboxRelay,
		sweepEnabled: cfg.EnableAppealWindowSweeper,
		pollInterval: pollInterval,
		ownsRuntime:  ownsRuntime,
		logger:       logger,
	}
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"in_process_workers", a.workers != nil,
	)
	if a.workers == nil {
		return a.server.Start(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	workerErr := make(chan error, 1)
	go func() {
		workerErr <- a.workers.Run(ctx)
	}()
	serverErr := a.server.Start(ctx)
	cancel()
	return errors.Join(serverErr, <-workerErr)
}

func (a *APIApp) Runtime() *Runtime {
	return a.runtime
}

func (a *APIApp) Close() error {
	return a.runtime.Close()
}

// Run starts the consumer, then relays and sweeps on every tick until ctx is
// done. A failed cycle is logged and retried on the next tick.
func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.consumer.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"relay_enabled", w.relayEnabled,
		"sweeper_enabled", w.sweepEnabled,
	)

	for {
		if err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("worker cycle failed",
				"event", "bootstrap_worker_cycle_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			w.runtime.Bus.Wait()
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce runs one sweep and relay cycle. Sweeping first lets the events of
// cases it closes leave in the same cycle.
func (w *WorkerApp) RunOnce(ctx context.Context) error {
	var errs []error
	if w.sweepEnabled {
		errs = append(errs, w.sweeper.RunOnce(ctx))
	}
	if w.relayEnabled {
		errs = append(errs, w.caseRelay.RunOnce(ctx), w.tallyRelay.RunOnce(ctx))
	}
	return errors.Join(errs...)
}

func (w *WorkerApp) Runtime() *Runtime {
	return w.runtime
}

func (w *WorkerApp) Close() error {
	if !w.ownsRuntime {
		return nil
	}
	return w.runtime.Close()
}

func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	errs = append(errs, r.Tracing.Shutdown(shutdownCtx))
	if r.redis != nil {
		errs = append(errs, r.redis.Close())
	}
	if r.database != nil {
		errs = append(errs, r.database.Close())
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
