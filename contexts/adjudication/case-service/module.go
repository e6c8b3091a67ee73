package caseservice

import (
	"log/slog"
	"time"

	"eleitoral/contexts/adjudication/case-service/adapters/calendar"
	httpadapter "eleitoral/contexts/adjudication/case-service/adapters/http"
	"eleitoral/contexts/adjudication/case-service/adapters/memory"
	"eleitoral/contexts/adjudication/case-service/application/commands"
	"eleitoral/contexts/adjudication/case-service/application/queries"
	"eleitoral/contexts/adjudication/case-service/application/workers"
	"eleitoral/contexts/adjudication/case-service/domain/entities"
	"eleitoral/contexts/adjudication/case-service/ports"
	"eleitoral/internal/shared/sequence"
)

type Module struct {
	Handler httpadapter.Handler
	UseCase commands.CaseUseCase
	Queries queries.CaseQueries
	Outbox  ports.OutboxRepository
	Sweeper workers.AppealWindowSweeper
	Store   *memory.Store
	Logger  *slog.Logger
}

type Dependencies struct {
	Cases          ports.CaseReader
	UnitOfWork     ports.UnitOfWork
	Parties        ports.PartyRegistry
	Committee      ports.Committee
	Deadlines      ports.DeadlineCalculator
	Sequences      ports.SequenceIssuer
	Idempotency    ports.IdempotencyStore
	Audit          ports.AuditTrail
	Outbox         ports.OutboxRepository
	Metrics        ports.Metrics
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Statute        entities.Statute
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	useCase := commands.CaseUseCase{
		Cases:          deps.Cases,
		UnitOfWork:     deps.UnitOfWork,
		Parties:        deps.Parties,
		Committee:      deps.Committee,
		Deadlines:      deps.Deadlines,
		Sequences:      deps.Sequences,
		Idempotency:    deps.Idempotency,
		Audit:          deps.Audit,
		Metrics:        deps.Metrics,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		Statute:        deps.Statute,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	caseQueries := queries.CaseQueries{Cases: deps.Cases}
	return Module{
		Handler: httpadapter.Handler{
			Cases:   useCase,
			Queries: caseQueries,
			Logger:  deps.Logger,
		},
		UseCase: useCase,
		Queries: caseQueries,
		Outbox:  deps.Outbox,
		Sweeper: workers.AppealWindowSweeper{
			Cases:   deps.Cases,
			UseCase: useCase,
			Clock:   deps.Clock,
			Logger:  deps.Logger,
		},
		Logger: deps.Logger,
	}
}

// NewInMemoryModule wires every port to one memory store. The clock may be
// nil to use wall time.
func NewInMemoryModule(statute entities.Statute, clock ports.Clock, logger *slog.Logger) Module {
	store := memory.NewStore()
	if clock == nil {
		clock = store
	}
	module := NewModule(Dependencies{
		Cases:          store,
		UnitOfWork:     store,
		Parties:        store,
		Committee:      store,
		Deadlines:      calendar.New(nil),
		Sequences:      sequence.NewMemory(),
		Idempotency:    store,
		Audit:          store,
		Outbox:         store,
		Clock:          clock,
		IDGen:          store,
		Statute:        statute,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
