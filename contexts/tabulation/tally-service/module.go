package tallyservice

import (
	"log/slog"

	"eleitoral/contexts/tabulation/tally-service/adapters/hashing"
	httpadapter "eleitoral/contexts/tabulation/tally-service/adapters/http"
	"eleitoral/contexts/tabulation/tally-service/adapters/memory"
	"eleitoral/contexts/tabulation/tally-service/application/commands"
	"eleitoral/contexts/tabulation/tally-service/application/queries"
	"eleitoral/contexts/tabulation/tally-service/application/workers"
	"eleitoral/contexts/tabulation/tally-service/ports"
	"eleitoral/internal/shared/sequence"
)

type Module struct {
	Handler  httpadapter.Handler
	UseCase  commands.TallyUseCase
	Queries  queries.TallyQueries
	Outbox   ports.OutboxRepository
	Consumer workers.CaseConcludedConsumer
	Store    *memory.Store
	Logger   *slog.Logger
}

type Dependencies struct {
	Slates     ports.SlateRegistry
	Ballots    ports.BallotStore
	Sections   ports.SectionStore
	Scopes     ports.ScopeStore
	Snapshots  ports.SnapshotStore
	Seals      ports.SealStore
	Disputes   ports.DisputeQuery
	Hasher     ports.Hasher
	Sequences  ports.SequenceIssuer
	Audit      ports.AuditTrail
	Metrics    ports.Metrics
	Outbox     ports.OutboxRepository
	Dedup      ports.EventDedupStore
	Subscriber ports.EventSubscriber
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	hasher := deps.Hasher
	if hasher == nil {
		hasher = hashing.ChainHasher{}
	}
	useCase := commands.TallyUseCase{
		Slates:    deps.Slates,
		Ballots:   deps.Ballots,
		Sections:  deps.Sections,
		Scopes:    deps.Scopes,
		Snapshots: deps.Snapshots,
		Seals:     deps.Seals,
		Disputes:  deps.Disputes,
		Hasher:    hasher,
		Sequences: deps.Sequences,
		Audit:     deps.Audit,
		Metrics:   deps.Metrics,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	tallyQueries := queries.TallyQueries{
		Slates:    deps.Slates,
		Ballots:   deps.Ballots,
		Sections:  deps.Sections,
		Scopes:    deps.Scopes,
		Snapshots: deps.Snapshots,
		Seals:     deps.Seals,
		Clock:     deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Tally:   useCase,
			Queries: tallyQueries,
			Logger:  deps.Logger,
		},
		UseCase: useCase,
		Queries: tallyQueries,
		Outbox:  deps.Outbox,
		Consumer: workers.CaseConcludedConsumer{
			Subscriber: deps.Subscriber,
			Dedup:      deps.Dedup,
			Slates:     deps.Slates,
			UseCase:    useCase,
			Clock:      deps.Clock,
			Logger:     deps.Logger,
		},
		Logger: deps.Logger,
	}
}

// NewInMemoryModule wires every store port to one memory store. Disputes and
// the subscriber stay optional; a nil clock means wall time.
func NewInMemoryModule(disputes ports.DisputeQuery, subscriber ports.EventSubscriber, clock ports.Clock, logger *slog.Logger) Module {
	store := memory.NewStore()
	if clock == nil {
		clock = store
	}
	module := NewModule(Dependencies{
		Slates:     store,
		Ballots:    store,
		Sections:   store,
		Scopes:     store,
		Snapshots:  store,
		Seals:      store,
		Disputes:   disputes,
		Hasher:     hashing.ChainHasher{},
		Sequences:  sequence.NewMemory(),
		Audit:      store,
		Outbox:     store,
		Dedup:      store,
		Subscriber: subscriber,
		Clock:      clock,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
