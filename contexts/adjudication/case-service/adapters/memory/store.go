package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"eleitoral/contexts/adjudication/case-service/domain/entities"
	domainerrors "eleitoral/contexts/adjudication/case-service/domain/errors"
	"eleitoral/contexts/adjudication/case-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	sequence  int64
	published bool
}

type Store struct {
	mu sync.RWMutex

	cases          map[string]entities.Case
	changes        map[string][]entities.StatusChange
	windows        map[string][]entities.DeadlineWindow
	submissions    map[string][]entities.Submission
	judgments      map[string]entities.Judgment
	judgmentByCase map[string]string
	votes          map[string][]entities.CommitteeVote
	appeals        map[string]entities.Appeal
	idempotency    map[string]ports.IdempotencyRecord
	outbox         map[string]outboxRecord
	outboxSeq      int64
	audit          []entities.AuditEntry

	standing map[string]map[string]bool
	targets  map[string]bool
	rosters  map[string][]entities.RosterMember

	locksMu   sync.Mutex
	caseLocks map[string]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		cases:          make(map[string]entities.Case),
		changes:        make(map[string][]entities.StatusChange),
		windows:        make(map[string][]entities.DeadlineWindow),
		submissions:    make(map[string][]entities.Submission),
		judgments:      make(map[string]entities.Judgment),
		judgmentByCase: make(map[string]string),
		votes:          make(map[string][]entities.CommitteeVote),
		appeals:        make(map[string]entities.Appeal),
		idempotency:    make(map[string]ports.IdempotencyRecord),
		outbox:         make(map[string]outboxRecord),
		standing:       make(map[string]map[string]bool),
		targets:        make(map[string]bool),
		rosters:        make(map[string][]entities.RosterMember),
		caseLocks:      make(map[string]*sync.Mutex),
	}
}

// SetStanding registers a party allowed to file and appeal in an election.
func (s *Store) SetStanding(electionID string, partyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	electionID = strings.TrimSpace(electionID)
	if s.standing[electionID] == nil {
		s.standing[electionID] = make(map[string]bool)
	}
	s.standing[electionID][strings.TrimSpace(partyID)] = true
}

func (s *Store) SetTarget(target entities.Subject, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[targetKey(target)] = active
}

func (s *Store) SetRoster(electionID string, tier int, members []entities.RosterMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rosters[rosterKey(electionID, tier)] = append([]entities.RosterMember(nil), members...)
}

func (s *Store) HasStanding(_ context.Context, partyID string, electionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.standing[strings.TrimSpace(electionID)][strings.TrimSpace(partyID)], nil
}

// IsTargetActive answers from registered targets. Slates and members must be
// registered; a case target must exist; other subjects are active unless
// registered inactive.
func (s *Store) IsTargetActive(_ context.Context, target entities.Subject) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if active, ok := s.targets[targetKey(target)]; ok {
		return active, nil
	}
	switch target.Kind {
	case entities.SubjectKindSlate, entities.SubjectKindMember:
		return false, nil
	case entities.SubjectKindCase:
		_, ok := s.cases[strings.TrimSpace(target.ID)]
		return ok, nil
	default:
		return true, nil
	}
}

func (s *Store) Roster(_ context.Context, electionID string, tier int) ([]entities.RosterMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.RosterMember(nil), s.rosters[rosterKey(electionID, tier)]...), nil
}

func (s *Store) GetCase(_ context.Context, caseID string) (entities.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.cases[strings.TrimSpace(caseID)]
	if !ok {
		return entities.Case{}, domainerrors.ErrCaseNotFound
	}
	return item, nil
}

func (s *Store) ListCases(_ context.Context, filter ports.CaseFilter) ([]entities.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make(map[entities.CaseStatus]struct{}, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses[status] = struct{}{}
	}
	items := make([]entities.Case, 0, len(s.cases))
	for _, item := range s.cases {
		if filter.ElectionID != "" && item.Target.ElectionID != filter.ElectionID {
			continue
		}
		if filter.OpenOnly && !item.Open() {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := statuses[item.Status]; !ok {
				continue
			}
		}
		if !filter.AppealLapsedBefore.IsZero() && !s.appealLapsed(item.CaseID, filter.AppealLapsedBefore) {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].FiledAt.Equal(items[j].FiledAt) {
			return items[i].ProtocolNumber < items[j].ProtocolNumber
		}
		return items[i].FiledAt.Before(items[j].FiledAt)
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *Store) appealLapsed(caseID string, before time.Time) bool {
	judgmentID, ok := s.judgmentByCase[caseID]
	if !ok {
		return false
	}
	judgment := s.judgments[judgmentID]
	return judgment.Published() && judgment.AppealDeadline != nil && judgment.AppealDeadline.Before(before)
}

func (s *Store) ListStatusChanges(_ context.Context, caseID string) ([]entities.StatusChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.StatusChange(nil), s.changes[strings.TrimSpace(caseID)]...), nil
}

func (s *Store) ListDeadlineWindows(_ context.Context, caseID string) ([]entities.DeadlineWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.DeadlineWindow(nil), s.windows[strings.TrimSpace(caseID)]...), nil
}

func (s *Store) ListSubmissions(_ context.Context, caseID string) ([]entities.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Submission(nil), s.submissions[strings.TrimSpace(caseID)]...), nil
}

func (s *Store) GetJudgment(_ context.Context, judgmentID string) (entities.Judgment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	judgment, ok := s.judgments[strings.TrimSpace(judgmentID)]
	if !ok {
		return entities.Judgment{}, domainerrors.ErrJudgmentNotFound
	}
	return judgment, nil
}

func (s *Store) GetJudgmentByCase(_ context.Context, caseID string) (entities.Judgment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	judgmentID, ok := s.judgmentByCase[strings.TrimSpace(caseID)]
	if !ok {
		return entities.Judgment{}, false, nil
	}
	return s.judgments[judgmentID], true, nil
}

func (s *Store) ListVotes(_ context.Context, judgmentID string) ([]entities.CommitteeVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.CommitteeVote(nil), s.votes[strings.TrimSpace(judgmentID)]...), nil
}

// AuditEntries returns rejected operations in the order they were recorded.
func (s *Store) AuditEntries() []entities.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.AuditEntry(nil), s.audit...)
}

func (s *Store) RecordRejection(_ context.Context, entry entities.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSpace(key)
	record, exists := s.idempotency[key]
	if !exists {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.After(now.UTC()) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(record.Key)
	existing, exists := s.idempotency[key]
	if exists {
		if existing.RequestHash != record.RequestHash || existing.CaseID != record.CaseID {
			return domainerrors.ErrIdempotencyConflict
		}
		return nil
	}
	s.idempotency[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: strings.TrimSpace(record.RequestHash),
		CaseID:      strings.TrimSpace(record.CaseID),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if !row.published {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].sequence < rows[j].sequence
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// appendOutboxLocked requires s.mu held for writing.
func (s *Store) appendOutboxLocked(envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outboxSeq++
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
		sequence: s.outboxSeq,
	}
	return nil
}

func (s *Store) caseLock(caseID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.caseLocks[caseID]
	if !ok {
		lock = &sync.Mutex{}
		s.caseLocks[caseID] = lock
	}
	return lock
}

func targetKey(target entities.Subject) string {
	return string(target.Kind) + ":" + strings.TrimSpace(target.ID)
}

func rosterKey(electionID string, tier int) string {
	return fmt.Sprintf("%s#%d", strings.TrimSpace(electionID), tier)
}

var (
	_ ports.CaseReader       = (*Store)(nil)
	_ ports.UnitOfWork       = (*Store)(nil)
	_ ports.PartyRegistry    = (*Store)(nil)
	_ ports.Committee        = (*Store)(nil)
	_ ports.IdempotencyStore = (*Store)(nil)
	_ ports.OutboxRepository = (*Store)(nil)
	_ ports.AuditTrail       = (*Store)(nil)
	_ ports.Clock            = (*Store)(nil)
	_ ports.IDGenerator      = (*Store)(nil)
)
