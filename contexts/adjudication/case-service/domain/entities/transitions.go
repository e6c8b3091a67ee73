package entities

import "sort"

var caseTransitions = map[CaseStatus][]CaseStatus{
	CaseStatusFiled:                    {CaseStatusAdmissibilityReview},
	CaseStatusAdmissibilityReview:      {CaseStatusAdmitted, CaseStatusRejected},
	CaseStatusAdmitted:                 {CaseStatusDefensePeriod},
	CaseStatusDefensePeriod:            {CaseStatusEvidencePeriod},
	CaseStatusEvidencePeriod:           {CaseStatusUnderJudgment},
	CaseStatusUnderJudgment:            {CaseStatusJudged},
	CaseStatusJudged:                   {CaseStatusAppealPending, CaseStatusClosed},
	CaseStatusAppealPending:            {CaseStatusAppealedToSecondInstance},
	CaseStatusAppealedToSecondInstance: {CaseStatusClosed},
}

func (s CaseStatus) Valid() bool {
	if s == CaseStatusRejected || s == CaseStatusClosed {
		return true
	}
	_, ok := caseTransitions[s]
	return ok
}

func (s CaseStatus) Terminal() bool {
	return s == CaseStatusRejected || s == CaseStatusClosed
}

func CanTransition(from CaseStatus, to CaseStatus) bool {
	for _, next := range caseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the legal successors of a status in a stable order.
func NextStatuses(from CaseStatus) []CaseStatus {
	items := append([]CaseStatus(nil), caseTransitions[from]...)
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return items
}

// ValidateHistory checks that a history, in order, starts at filed and
// walks only legal edges with each record picking up where the last ended.
func ValidateHistory(history []StatusChange) bool {
	if len(history) == 0 {
		return true
	}
	if history[0].FromStatus != "" || history[0].ToStatus != CaseStatusFiled {
		return false
	}
	current := CaseStatusFiled
	for _, change := range history[1:] {
		if change.FromStatus != current || !CanTransition(change.FromStatus, change.ToStatus) {
			return false
		}
		current = change.ToStatus
	}
	return true
}
