package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	domainerrors "eleitoral/contexts/tabulation/tally-service/domain/errors"
	"eleitoral/contexts/tabulation/tally-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	sequence  int64
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store keeps every tally record behind one lock, so each write is a single
// atomic check-and-set against the scope state.
type Store struct {
	mu sync.RWMutex

	scopes      map[string]entities.ScopeState
	slates      map[string]map[string]entities.Slate
	sections    map[string]map[string]entities.Section
	reports     map[string][]entities.SectionReport
	ballots     map[string]entities.Ballot
	scopeBallot map[string][]string
	hashes      map[string]string
	annulments  map[string]entities.Annulment
	scopeAnnul  map[string][]string
	reinstated  map[string]entities.Reinstatement
	scopeReinst map[string][]string
	snapshots   map[string]entities.TallySnapshot
	chains      map[string][]string
	seals       map[string]entities.Seal
	outbox      map[string]outboxRecord
	outboxSeq   int64
	eventDedup  map[string]dedupRecord
	audit       []entities.AuditEntry
}

func NewStore() *Store {
	return &Store{
		scopes:      make(map[string]entities.ScopeState),
		slates:      make(map[string]map[string]entities.Slate),
		sections:    make(map[string]map[string]entities.Section),
		reports:     make(map[string][]entities.SectionReport),
		ballots:     make(map[string]entities.Ballot),
		scopeBallot: make(map[string][]string),
		hashes:      make(map[string]string),
		annulments:  make(map[string]entities.Annulment),
		scopeAnnul:  make(map[string][]string),
		reinstated:  make(map[string]entities.Reinstatement),
		scopeReinst: make(map[string][]string),
		snapshots:   make(map[string]entities.TallySnapshot),
		chains:      make(map[string][]string),
		seals:       make(map[string]entities.Seal),
		outbox:      make(map[string]outboxRecord),
		eventDedup:  make(map[string]dedupRecord),
	}
}

func (s *Store) SaveSlate(_ context.Context, slate entities.Slate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slate.Scope.Key()
	if err := s.openLocked(key); err != nil {
		return err
	}
	if s.slates[key] == nil {
		s.slates[key] = make(map[string]entities.Slate)
	}
	if _, exists := s.slates[key][slate.SlateID]; exists {
		return domainerrors.ErrConflict
	}
	s.slates[key][slate.SlateID] = slate
	return nil
}

func (s *Store) GetSlate(_ context.Context, scope entities.Scope, slateID string) (entities.Slate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slate, ok := s.slates[scope.Key()][strings.TrimSpace(slateID)]
	if !ok {
		return entities.Slate{}, domainerrors.ErrSlateNotFound
	}
	return slate, nil
}

func (s *Store) ListSlates(_ context.Context, scope entities.Scope) ([]entities.Slate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Slate, 0, len(s.slates[scope.Key()]))
	for _, slate := range s.slates[scope.Key()] {
		items = append(items, slate)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Number != items[j].Number {
			return items[i].Number < items[j].Number
		}
		return items[i].SlateID < items[j].SlateID
	})
	return items, nil
}

func (s *Store) FindSlateScopes(_ context.Context, electionID string, slateID string) ([]entities.Scope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	electionID = strings.TrimSpace(electionID)
	slateID = strings.TrimSpace(slateID)
	items := make([]entities.Scope, 0)
	for _, slates := range s.slates {
		slate, ok := slates[slateID]
		if ok && slate.Scope.ElectionID == electionID {
			items = append(items, slate.Scope)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key() < items[j].Key() })
	return items, nil
}

func (s *Store) DisqualifySlate(
	_ context.Context,
	scope entities.Scope,
	slateID string,
	template entities.Annulment,
	event ports.EventEnvelope,
) (entities.Slate, []entities.Annulment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scope.Key()
	if _, sealed := s.seals[key]; sealed {
		return entities.Slate{}, nil, domainerrors.ErrAlreadyFinal
	}
	slate, ok := s.slates[key][strings.TrimSpace(slateID)]
	if !ok {
		return entities.Slate{}, nil, domainerrors.ErrSlateNotFound
	}
	if slate.Disqualified {
		return slate, nil, nil
	}
	at := template.RecordedAt.UTC()
	slate.Disqualified = true
	slate.DisqualifiedAt = &at
	slate.CaseRef = template.CaseRef

	annulled := make([]entities.Annulment, 0)
	for _, ballotID := range s.scopeBallot[key] {
		ballot := s.ballots[ballotID]
		if ballot.Category != entities.BallotCategoryValid || ballot.SlateID != slate.SlateID {
			continue
		}
		if _, done := s.annulments[ballotID]; done {
			continue
		}
		annulment := template
		annulment.AnnulmentID = uuid.NewString()
		annulment.BallotID = ballotID
		annulment.Scope = ballot.Scope
		annulled = append(annulled, annulment)
	}
	if err := s.appendOutboxLocked(event); err != nil {
		return entities.Slate{}, nil, err
	}
	s.slates[key][slate.SlateID] = slate
	for _, annulment := range annulled {
		s.annulments[annulment.BallotID] = annulment
		s.scopeAnnul[key] = append(s.scopeAnnul[key], annulment.BallotID)
	}
	return slate, annulled, nil
}

func (s *Store) InsertBallot(_ context.Context, ballot entities.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ballot.Scope.Key()
	if err := s.openLocked(key); err != nil {
		return err
	}
	if ballot.Category == entities.BallotCategoryValid {
		slate, ok := s.slates[key][ballot.SlateID]
		if !ok {
			return domainerrors.ErrSlateNotFound
		}
		if slate.Disqualified {
			return domainerrors.ErrIneligible
		}
	}
	hashKey := key + "|" + ballot.SectionID + "|" + ballot.Hash
	if _, seen := s.hashes[hashKey]; seen {
		return domainerrors.ErrDuplicateBallot
	}
	if _, exists := s.ballots[ballot.BallotID]; exists {
		return domainerrors.ErrConflict
	}
	s.hashes[hashKey] = ballot.BallotID
	s.ballots[ballot.BallotID] = ballot
	s.scopeBallot[key] = append(s.scopeBallot[key], ballot.BallotID)
	return nil
}

func (s *Store) GetBallot(_ context.Context, ballotID string) (entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballot, ok := s.ballots[strings.TrimSpace(ballotID)]
	if !ok {
		return entities.Ballot{}, domainerrors.ErrBallotNotFound
	}
	return ballot, nil
}

func (s *Store) ListBallots(_ context.Context, scope entities.Scope) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.scopeBallot[scope.Key()]
	items := make([]entities.Ballot, 0, len(ids))
	for _, id := range ids {
		items = append(items, s.ballots[id])
	}
	return items, nil
}

func (s *Store) AppendAnnulment(_ context.Context, annulment entities.Annulment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ballot, ok := s.ballots[annulment.BallotID]
	if !ok {
		return domainerrors.ErrBallotNotFound
	}
	key := ballot.Scope.Key()
	if _, sealed := s.seals[key]; sealed {
		return domainerrors.ErrAlreadyFinal
	}
	if _, done := s.annulments[ballot.BallotID]; done {
		return domainerrors.ErrAlreadyAnnulled
	}
	s.annulments[ballot.BallotID] = annulment
	s.scopeAnnul[key] = append(s.scopeAnnul[key], ballot.BallotID)
	return nil
}

func (s *Store) ListAnnulments(_ context.Context, scope entities.Scope) ([]entities.Annulment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.scopeAnnul[scope.Key()]
	items := make([]entities.Annulment, 0, len(ids))
	for _, id := range ids {
		items = append(items, s.annulments[id])
	}
	return items, nil
}

func (s *Store) AppendReinstatement(_ context.Context, reinstatement entities.Reinstatement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ballot, ok := s.ballots[reinstatement.BallotID]
	if !ok {
		return domainerrors.ErrBallotNotFound
	}
	key := ballot.Scope.Key()
	if _, sealed := s.seals[key]; sealed {
		return domainerrors.ErrAlreadyFinal
	}
	annulment, annulled := s.annulments[ballot.BallotID]
	if !annulled || annulment.AnnulmentID != reinstatement.AnnulmentID {
		return domainerrors.ErrNotAnnulled
	}
	if _, done := s.reinstated[ballot.BallotID]; done {
		return domainerrors.ErrAlreadyReinstated
	}
	if ballot.Category == entities.BallotCategoryValid {
		if slate, found := s.slates[key][ballot.SlateID]; found && slate.Disqualified {
			return domainerrors.ErrIneligible
		}
	}
	s.reinstated[ballot.BallotID] = reinstatement
	s.scopeReinst[key] = append(s.scopeReinst[key], ballot.BallotID)
	return nil
}

func (s *Store) ListReinstatements(_ context.Context, scope entities.Scope) ([]entities.Reinstatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.scopeReinst[scope.Key()]
	items := make([]entities.Reinstatement, 0, len(ids))
	for _, id := range ids {
		items = append(items, s.reinstated[id])
	}
	return items, nil
}

func (s *Store) SaveSection(_ context.Context, section entities.Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := section.Scope.Key()
	if err := s.openLocked(key); err != nil {
		return err
	}
	if s.sections[key] == nil {
		s.sections[key] = make(map[string]entities.Section)
	}
	if _, exists := s.sections[key][section.SectionID]; exists {
		return domainerrors.ErrConflict
	}
	s.sections[key][section.SectionID] = section
	return nil
}

func (s *Store) GetSection(_ context.Context, scope entities.Scope, sectionID string) (entities.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	section, ok := s.sections[scope.Key()][strings.TrimSpace(sectionID)]
	if !ok {
		return entities.Section{}, domainerrors.ErrSectionNotFound
	}
	return section, nil
}

func (s *Store) ListSections(_ context.Context, scope entities.Scope) ([]entities.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Section, 0, len(s.sections[scope.Key()]))
	for _, section := range s.sections[scope.Key()] {
		items = append(items, section)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SectionID < items[j].SectionID })
	return items, nil
}

func (s *Store) AppendSectionReport(_ context.Context, report entities.SectionReport) (entities.SectionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := report.Scope.Key()
	if err := s.openLocked(key); err != nil {
		return entities.SectionReport{}, err
	}
	revision := 0
	for _, existing := range s.reports[key] {
		if existing.SectionID == report.SectionID && existing.Revision > revision {
			revision = existing.Revision
		}
	}
	report.Revision = revision + 1
	counts := make(map[string]int, len(report.SlateCounts))
	for slateID, count := range report.SlateCounts {
		counts[slateID] = count
	}
	report.SlateCounts = counts
	s.reports[key] = append(s.reports[key], report)
	return report, nil
}

func (s *Store) ListSectionReports(_ context.Context, scope entities.Scope) ([]entities.SectionReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.SectionReport(nil), s.reports[scope.Key()]...), nil
}

func (s *Store) GetScopeState(_ context.Context, scope entities.Scope) (entities.ScopeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked(scope), nil
}

func (s *Store) FreezeScope(_ context.Context, scope entities.Scope, at time.Time) (entities.ScopeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.stateLocked(scope)
	if state.Frozen {
		return state, nil
	}
	frozenAt := at.UTC()
	state.Frozen = true
	state.FrozenAt = &frozenAt
	s.scopes[scope.Key()] = state
	return state, nil
}

func (s *Store) AppendSnapshot(_ context.Context, snapshot entities.TallySnapshot, event ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapshot.Scope.Key()
	if _, sealed := s.seals[key]; sealed {
		return domainerrors.ErrAlreadyFinal
	}
	chain := s.chains[key]
	previousHash := ""
	sequence := 0
	if len(chain) > 0 {
		latest := s.snapshots[chain[len(chain)-1]]
		previousHash = latest.Hash
		sequence = latest.Sequence
	}
	if snapshot.PreviousHash != previousHash || snapshot.Sequence != sequence+1 {
		return domainerrors.ErrChainConflict
	}
	if err := s.appendOutboxLocked(event); err != nil {
		return err
	}
	s.snapshots[snapshot.SnapshotID] = snapshot
	s.chains[key] = append(chain, snapshot.SnapshotID)
	return nil
}

func (s *Store) GetSnapshot(_ context.Context, snapshotID string) (entities.TallySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[strings.TrimSpace(snapshotID)]
	if !ok {
		return entities.TallySnapshot{}, domainerrors.ErrSnapshotNotFound
	}
	return snapshot, nil
}

func (s *Store) LatestSnapshot(_ context.Context, scope entities.Scope) (entities.TallySnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.chains[scope.Key()]
	if len(chain) == 0 {
		return entities.TallySnapshot{}, false, nil
	}
	return s.snapshots[chain[len(chain)-1]], true, nil
}

func (s *Store) ListSnapshots(_ context.Context, scope entities.Scope) ([]entities.TallySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.chains[scope.Key()]
	items := make([]entities.TallySnapshot, 0, len(chain))
	for _, id := range chain {
		items = append(items, s.snapshots[id])
	}
	return items, nil
}

// ReplaceSnapshot overwrites a stored snapshot in place. It exists so chain
// verification can be exercised against a tampered record.
func (s *Store) ReplaceSnapshot(snapshot entities.TallySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[snapshot.SnapshotID]; ok {
		s.snapshots[snapshot.SnapshotID] = snapshot
	}
}

func (s *Store) SaveSeal(_ context.Context, seal entities.Seal, event ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := seal.Scope.Key()
	if _, sealed := s.seals[key]; sealed {
		return domainerrors.ErrAlreadyFinal
	}
	if err := s.appendOutboxLocked(event); err != nil {
		return err
	}
	s.seals[key] = seal
	return nil
}

func (s *Store) GetSeal(_ context.Context, scope entities.Scope) (entities.Seal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seal, ok := s.seals[scope.Key()]
	return seal, ok, nil
}

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

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	if existing, ok := s.eventDedup[key]; ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt) {
			delete(s.eventDedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}
	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) ReleaseEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.eventDedup, strings.TrimSpace(eventID))
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
	sort.Slice(rows, func(i, j int) bool { return rows[i].sequence < rows[j].sequence })
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
	outboxID = strings.TrimSpace(outboxID)
	row, ok := s.outbox[outboxID]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// openLocked refuses writes to a frozen or sealed scope. Requires s.mu.
func (s *Store) openLocked(key string) error {
	if _, sealed := s.seals[key]; sealed {
		return domainerrors.ErrAlreadyFinal
	}
	if s.scopes[key].Frozen {
		return domainerrors.ErrScopeFrozen
	}
	return nil
}

func (s *Store) stateLocked(scope entities.Scope) entities.ScopeState {
	state, ok := s.scopes[scope.Key()]
	if !ok {
		state = entities.ScopeState{Scope: scope}
	}
	_, state.Sealed = s.seals[scope.Key()]
	return state
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
	s.outboxSeq++
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    envelope.OccurredAt.UTC(),
		},
		sequence: s.outboxSeq,
	}
	return nil
}

var (
	_ ports.SlateRegistry    = (*Store)(nil)
	_ ports.BallotStore      = (*Store)(nil)
	_ ports.SectionStore     = (*Store)(nil)
	_ ports.ScopeStore       = (*Store)(nil)
	_ ports.SnapshotStore    = (*Store)(nil)
	_ ports.SealStore        = (*Store)(nil)
	_ ports.AuditTrail       = (*Store)(nil)
	_ ports.EventDedupStore  = (*Store)(nil)
	_ ports.OutboxRepository = (*Store)(nil)
	_ ports.Clock            = (*Store)(nil)
	_ ports.IDGenerator      = (*Store)(nil)
)
