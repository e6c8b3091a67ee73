package errors

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid tally input")
	ErrSlateNotFound       = errors.New("slate not found")
	ErrSectionNotFound     = errors.New("section not found")
	ErrBallotNotFound      = errors.New("ballot not found")
	ErrSnapshotNotFound    = errors.New("snapshot not found")
	ErrIneligible          = errors.New("slate is not eligible")
	ErrDuplicateBallot     = errors.New("ballot already accepted in this section")
	ErrAlreadyAnnulled     = errors.New("ballot already annulled")
	ErrNotAnnulled         = errors.New("ballot is not annulled")
	ErrAlreadyReinstated   = errors.New("annulment already reversed")
	ErrScopeFrozen         = errors.New("scope is frozen for final computation")
	ErrSectionsPending     = errors.New("expected sections have not all reported")
	ErrOpenDisputeExists   = errors.New("an open case targets the scope")
	ErrAlreadyFinal        = errors.New("scope already sealed")
	ErrNotFinal            = errors.New("snapshot is not final")
	ErrStaleSnapshot       = errors.New("snapshot is not the latest of its scope")
	ErrChainConflict       = errors.New("snapshot chain moved during computation")
	ErrConflict            = errors.New("tally conflict")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
)
