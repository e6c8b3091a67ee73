package entities

import "strings"

type SubjectKind string

const (
	SubjectKindNone        SubjectKind = "none"
	SubjectKindSlate       SubjectKind = "slate"
	SubjectKindMember      SubjectKind = "member"
	SubjectKindTallyRecord SubjectKind = "tally_record"
	SubjectKindDocument    SubjectKind = "document"
	SubjectKindCase        SubjectKind = "case"
)

// Subject is what a case is about. SlateID carries the slate a member or
// document belongs to so disputes can be matched against a tally scope.
type Subject struct {
	Kind       SubjectKind
	ID         string
	ElectionID string
	SlateID    string
}

func (s Subject) Valid() bool {
	switch s.Kind {
	case SubjectKindNone:
		return strings.TrimSpace(s.ID) == ""
	case SubjectKindSlate, SubjectKindMember, SubjectKindTallyRecord, SubjectKindDocument, SubjectKindCase:
		return strings.TrimSpace(s.ID) != "" && strings.TrimSpace(s.ElectionID) != ""
	default:
		return false
	}
}

// Slate returns the slate the subject resolves to, if any.
func (s Subject) Slate() string {
	if s.Kind == SubjectKindSlate {
		return strings.TrimSpace(s.ID)
	}
	return strings.TrimSpace(s.SlateID)
}

// TouchesTally reports whether an open case on this subject blocks a final
// tally over the given slates of the election.
func (s Subject) TouchesTally(electionID string, slateIDs []string) bool {
	if strings.TrimSpace(s.ElectionID) != strings.TrimSpace(electionID) {
		return false
	}
	if s.Kind == SubjectKindTallyRecord {
		return true
	}
	slate := s.Slate()
	if slate == "" {
		return false
	}
	for _, id := range slateIDs {
		if strings.TrimSpace(id) == slate {
			return true
		}
	}
	return false
}
