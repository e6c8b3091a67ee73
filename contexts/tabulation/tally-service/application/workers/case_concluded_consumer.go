package workers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "eleitoral/contexts/tabulation/tally-service/application"
	"eleitoral/contexts/tabulation/tally-service/application/commands"
	domainerrors "eleitoral/contexts/tabulation/tally-service/domain/errors"
	"eleitoral/contexts/tabulation/tally-service/ports"
	contractsv1 "eleitoral/contracts/gen/events/v1"
)

const (
	caseConcludedTopic = contractsv1.TopicCaseConcluded
	defaultCaseCG      = "tally-service-case-cg"
)

// CaseConcludedConsumer applies the sanction of a concluded case to every
// scope of the election where the sanctioned slate runs.
type CaseConcludedConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Slates        ports.SlateRegistry
	UseCase       commands.TallyUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Disabled      bool
	Logger        *slog.Logger
}

func (c CaseConcludedConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("case concluded consumer disabled by feature flag",
			"event", "tally_case_consumer_disabled",
			"module", "tabulation/tally-service",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultCaseCG
	}
	if err := c.Subscriber.Subscribe(ctx, caseConcludedTopic, group, c.handleCaseConcluded); err != nil {
		logger.Error("case concluded consumer subscribe failed",
			"event", "tally_case_consumer_subscribe_failed",
			"module", "tabulation/tally-service",
			"layer", "worker",
			"topic", caseConcludedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("case concluded consumer subscription active",
		"event", "tally_case_consumer_started",
		"module", "tabulation/tally-service",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c CaseConcludedConsumer) handleCaseConcluded(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if alreadyProcessed, err := c.reserveEvent(ctx, event); err != nil {
		return err
	} else if alreadyProcessed {
		logger.Debug("case.concluded replay skipped",
			"event", "tally_case_concluded_replayed",
			"module", "tabulation/tally-service",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}
	if err := c.applySanction(ctx, event); err != nil {
		c.releaseEvent(ctx, event)
		return err
	}
	return nil
}

func (c CaseConcludedConsumer) applySanction(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	payload, err := event.DecodeCaseConcluded()
	if err != nil {
		logger.Error("case.concluded payload decode failed",
			"event", "tally_case_concluded_decode_failed",
			"module", "tabulation/tally-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	slateID := strings.TrimSpace(payload.SlateID)
	electionID := strings.TrimSpace(payload.ElectionID)
	if slateID == "" || electionID == "" ||
		(payload.Sanction != contractsv1.SanctionNullifySlateVotes && payload.Sanction != contractsv1.SanctionDisqualifySlate) {
		logger.Debug("case.concluded carries no slate sanction",
			"event", "tally_case_concluded_ignored",
			"module", "tabulation/tally-service",
			"layer", "worker",
			"event_id", event.EventID,
			"case_id", payload.CaseID,
			"sanction", payload.Sanction,
		)
		return nil
	}

	scopes, err := c.Slates.FindSlateScopes(ctx, electionID, slateID)
	if err != nil {
		return err
	}
	caseRef := strings.TrimSpace(payload.FinalCaseID)
	if caseRef == "" {
		caseRef = strings.TrimSpace(payload.CaseID)
	}
	for _, scope := range scopes {
		result, err := c.UseCase.DisqualifySlate(ctx, commands.DisqualifySlateCommand{
			Scope:     scope,
			SlateID:   slateID,
			CaseRef:   caseRef,
			Authority: "system:case-concluded-consumer",
			Reason:    "case " + caseRef + " concluded with sanction " + payload.Sanction,
		})
		if errors.Is(err, domainerrors.ErrAlreadyFinal) {
			logger.Warn("sanction arrived after homologation",
				"event", "tally_case_concluded_after_seal",
				"module", "tabulation/tally-service",
				"layer", "worker",
				"event_id", event.EventID,
				"scope", scope.Key(),
				"slate_id", slateID,
			)
			continue
		}
		if err != nil {
			logger.Error("case.concluded sanction failed",
				"event", "tally_case_concluded_sanction_failed",
				"module", "tabulation/tally-service",
				"layer", "worker",
				"event_id", event.EventID,
				"scope", scope.Key(),
				"slate_id", slateID,
				"error", err.Error(),
			)
			return err
		}
		logger.Info("case.concluded consumed",
			"event", "tally_case_concluded_consumed",
			"module", "tabulation/tally-service",
			"layer", "worker",
			"event_id", event.EventID,
			"scope", scope.Key(),
			"slate_id", slateID,
			"annulled_ballots", len(result.Annulments),
			"replayed", result.Replayed,
		)
	}
	return nil
}

func (c CaseConcludedConsumer) reserveEvent(ctx context.Context, event ports.EventEnvelope) (bool, error) {
	logger := application.ResolveLogger(c.Logger)
	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), c.now().Add(c.dedupTTL()))
	if err != nil {
		logger.Error("case event dedupe failed",
			"event", "tally_case_event_dedupe_failed",
			"module", "tabulation/tally-service",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
		return false, err
	}
	return alreadyProcessed, nil
}

// releaseEvent lets a redelivery retry the sanction. The use case is
// idempotent, so scopes already disqualified replay.
func (c CaseConcludedConsumer) releaseEvent(ctx context.Context, event ports.EventEnvelope) {
	if err := c.Dedup.ReleaseEvent(ctx, event.EventID); err != nil {
		application.ResolveLogger(c.Logger).Error("case event release failed",
			"event", "tally_case_event_release_failed",
			"module", "tabulation/tally-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
	}
}

func (c CaseConcludedConsumer) now() time.Time {
	if c.Clock == nil {
		return time.Now().UTC()
	}
	return c.Clock.Now().UTC()
}

func (c CaseConcludedConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}
