package entities

import "time"

// SlateRow is one slate's line in a snapshot.
type SlateRow struct {
	SlateID           string  `json:"slate_id"`
	Votes             int     `json:"votes"`
	PercentValid      float64 `json:"percent_valid"`
	PercentConsidered float64 `json:"percent_considered"`
	Position          int     `json:"position"`
	Eligible          bool    `json:"eligible"`
}

// Totals is the hashed part of a snapshot. Field order does not matter for
// the hash, which is taken over the canonical JSON form.
type Totals struct {
	ScopeKey         string     `json:"scope"`
	Rows             []SlateRow `json:"rows"`
	Valid            int        `json:"valid"`
	Blank            int        `json:"blank"`
	Null             int        `json:"null"`
	Annulled         int        `json:"annulled"`
	Considered       int        `json:"considered"`
	SectionsExpected int        `json:"sections_expected"`
	SectionsReported int        `json:"sections_reported"`
}

// Reconciles checks valid + blank + null + annulled == considered and that
// the slate rows add up to the valid total.
func (t Totals) Reconciles() bool {
	if t.Valid+t.Blank+t.Null+t.Annulled != t.Considered {
		return false
	}
	sum := 0
	for _, row := range t.Rows {
		sum += row.Votes
	}
	return sum == t.Valid
}

func (t Totals) AllSectionsReported() bool {
	return t.SectionsReported >= t.SectionsExpected
}

// Row returns the line of a slate.
func (t Totals) Row(slateID string) (SlateRow, bool) {
	for _, row := range t.Rows {
		if row.SlateID == slateID {
			return row, true
		}
	}
	return SlateRow{}, false
}

type TallySnapshot struct {
	SnapshotID   string
	Scope        Scope
	Sequence     int
	AsOf         time.Time
	Final        bool
	Totals       Totals
	PreviousHash string
	Hash         string
	GeneratedAt  time.Time
}

// ChainHasher computes H(previousHash ‖ totals).
type ChainHasher func(previousHash string, totals Totals) (string, error)

// ChainReport is the result of replaying a scope's hash chain.
type ChainReport struct {
	Checked        int
	Intact         bool
	BrokenSnapshot string
	BrokenSequence int
}

// VerifyChain replays the hashes of snapshots ordered by sequence. It stops at
// the first snapshot whose stored link or hash does not match the recomputed
// one; every later snapshot depends on it.
func VerifyChain(snapshots []TallySnapshot, hash ChainHasher) (ChainReport, error) {
	report := ChainReport{Intact: true}
	previous := ""
	for _, snapshot := range snapshots {
		report.Checked++
		expected, err := hash(previous, snapshot.Totals)
		if err != nil {
			return ChainReport{}, err
		}
		if snapshot.PreviousHash != previous || snapshot.Hash != expected {
			report.Intact = false
			report.BrokenSnapshot = snapshot.SnapshotID
			report.BrokenSequence = snapshot.Sequence
			return report, nil
		}
		previous = snapshot.Hash
	}
	return report, nil
}
