package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput           = errors.New("invalid case input")
	ErrCaseNotFound           = errors.New("case not found")
	ErrJudgmentNotFound       = errors.New("judgment not found")
	ErrInvalidTransition      = errors.New("invalid case status transition")
	ErrInvalidParty           = errors.New("party lacks standing or target is not active")
	ErrWindowExpired          = errors.New("statutory window expired")
	ErrWindowOpen             = errors.New("statutory window is still open")
	ErrDuplicateVote          = errors.New("committee member already voted")
	ErrQuorumNotMet           = errors.New("quorum not met")
	ErrJudgmentClosed         = errors.New("judgment is closed")
	ErrJudgmentNotPublished   = errors.New("judgment is not published")
	ErrAlreadyAppealed        = errors.New("judgment already appealed")
	ErrIneligible             = errors.New("member is not eligible for this case")
	ErrConflict               = errors.New("case conflict")
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	ErrIdempotencyConflict    = errors.New("idempotency key conflict")

	// ErrNoDeadlineWindow is an InvalidTransition: the case is not in a stage
	// that accepts the submission kind.
	ErrNoDeadlineWindow = fmt.Errorf("%w: no deadline window open for submission kind", ErrInvalidTransition)
)
