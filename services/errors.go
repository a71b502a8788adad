package services

import "errors"

// Sentinel errors shared across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation errors: rejected synchronously, before any write.
	ErrValidationFailed        = errors.New("validation failed")
	ErrInvalidPlacements       = errors.New("placements are invalid")
	ErrPlacementMissing        = errors.New("every participant needs exactly one placement")
	ErrPlacementNotPositive    = errors.New("placements must be positive integers")
	ErrPlacementGap            = errors.New("placements must follow standard competition ranking with no gaps")
	ErrDrawNotAllowed          = errors.New("draws are not supported for 1v1 matches")
	ErrProposerNotParticipant  = errors.New("proposer is not a participant of this match")
	ErrNotParticipant          = errors.New("player is not a participant of this match")
	ErrFormatNotSupported      = errors.New("event does not support this match format")
	ErrPlayerCountOutOfBounds  = errors.New("participant count is outside the event's bounds")
	ErrDuplicateParticipant    = errors.New("duplicate participant")
	ErrInvalidConfirmation     = errors.New("confirmation status must be confirmed or rejected")
	ErrScoreNotFinite          = errors.New("submitted score must be a finite number")

	// State errors: rejected without mutation, retry after correcting state.
	ErrMatchNotPending        = errors.New("match is not awaiting a result proposal")
	ErrMatchNotAwaiting       = errors.New("match is not awaiting confirmation")
	ErrMatchNotCompleted      = errors.New("match is not completed")
	ErrMatchTerminal          = errors.New("match is in a terminal status")
	ErrActiveProposalExists   = errors.New("an active result proposal already exists")
	ErrNoActiveProposal       = errors.New("no active result proposal exists for this match")
	ErrAlreadyResponded       = errors.New("participant has already responded to this proposal")
	ErrConfirmationsIncomplete = errors.New("not every participant has confirmed the result")
	ErrMatchAlreadyUndone     = errors.New("match has already been undone")
	ErrResetInProgress        = errors.New("another reset is already in progress for this scope")

	// Operational errors.
	ErrArchiveFailed      = errors.New("failed to archive standings before reset")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
