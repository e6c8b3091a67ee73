package entities

import (
	"sort"
	"strings"
	"time"
)

type Slate struct {
	Scope          Scope
	SlateID        string
	Number         int
	Name           string
	Disqualified   bool
	DisqualifiedAt *time.Time
	CaseRef        string
}

// EligibleAt reports whether valid votes for the slate still count at the
// given cut.
func (s Slate) EligibleAt(at time.Time) bool {
	if !s.Disqualified || s.DisqualifiedAt == nil {
		return !s.Disqualified
	}
	return at.Before(*s.DisqualifiedAt)
}

// Section is a polling section expected to report for a scope.
type Section struct {
	Scope        Scope
	SectionID    string
	Name         string
	RegisteredAt time.Time
}

// SectionReport carries counts recorded by hand for paper voting, plus the
// flag that the section finished reporting. Reports are appended; the latest
// revision of a section wins.
type SectionReport struct {
	ReportID    string
	Scope       Scope
	SectionID   string
	Revision    int
	SlateCounts map[string]int
	Blank       int
	Null        int
	Complete    bool
	ReportedBy  string
	ReportedAt  time.Time
}

// Total is the number of paper ballots the report adds.
func (r SectionReport) Total() int {
	total := r.Blank + r.Null
	for _, count := range r.SlateCounts {
		total += count
	}
	return total
}

func (r SectionReport) Valid() bool {
	if strings.TrimSpace(r.SectionID) == "" || r.Blank < 0 || r.Null < 0 {
		return false
	}
	for slateID, count := range r.SlateCounts {
		if strings.TrimSpace(slateID) == "" || count < 0 {
			return false
		}
	}
	return true
}

// LatestReports keeps the highest revision per section that was recorded at
// or before the cut, ordered by section id.
func LatestReports(reports []SectionReport, asOf time.Time) []SectionReport {
	latest := make(map[string]SectionReport, len(reports))
	for _, report := range reports {
		if report.ReportedAt.After(asOf) {
			continue
		}
		current, ok := latest[report.SectionID]
		if !ok || report.Revision > current.Revision {
			latest[report.SectionID] = report
		}
	}
	items := make([]SectionReport, 0, len(latest))
	for _, report := range latest {
		items = append(items, report)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SectionID < items[j].SectionID })
	return items
}

// Seal is the homologation record of a final snapshot. One per scope.
type Seal struct {
	SealID     string
	Scope      Scope
	SnapshotID string
	Hash       string
	Authority  string
	SealedAt   time.Time
}
