package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jacoblam121/tournament-arc/models"
	"github.com/jacoblam121/tournament-arc/repositories"
)

// sweepBatchSize caps how many expired proposals one sweep pass
// terminates, so a backlog never stalls the scheduler tick.
const sweepBatchSize = 100

// ConfirmationService runs the peer ratification protocol: a proposed
// result holds a match in awaiting_confirmation until every participant
// confirms, any participant rejects, or the proposal expires.
type ConfirmationService struct {
	runner           TxRunner
	matchRepo        repositories.MatchRepository
	participantRepo  repositories.ParticipantRepository
	proposalRepo     repositories.ProposalRepository
	confirmationRepo repositories.ConfirmationRepository
	matches          *MatchService
	proposalTTL      time.Duration
	logger           *slog.Logger
}

func NewConfirmationService(
	runner TxRunner,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.ParticipantRepository,
	proposalRepo repositories.ProposalRepository,
	confirmationRepo repositories.ConfirmationRepository,
	matches *MatchService,
	proposalTTL time.Duration,
	logger *slog.Logger,
) *ConfirmationService {
	return &ConfirmationService{
		runner:           runner,
		matchRepo:        matchRepo,
		participantRepo:  participantRepo,
		proposalRepo:     proposalRepo,
		confirmationRepo: confirmationRepo,
		matches:          matches,
		proposalTTL:      proposalTTL,
		logger:           logger,
	}
}

// ProposeResults records a participant's claimed placements and opens
// the confirmation round. The proposer's own confirmation is recorded
// as confirmed immediately; everyone else starts pending.
func (s *ConfirmationService) ProposeResults(ctx context.Context, matchID, proposerID int, placements map[int]int) (*models.MatchResultProposal, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	participants, err := s.participantRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	proposerIsParticipant := false
	for _, p := range participants {
		if p.PlayerID == proposerID {
			proposerIsParticipant = true
		}
	}
	if !proposerIsParticipant {
		return nil, ErrProposerNotParticipant
	}
	if err := ValidatePlacements(placements, participants, match.Format); err != nil {
		return nil, err
	}
	if oneVsOneDraw(match.Format, placements) {
		return nil, ErrDrawNotAllowed
	}

	proposal := &models.MatchResultProposal{
		MatchID:    matchID,
		ProposerID: proposerID,
		Placements: placements,
		Active:     true,
		ExpiresAt:  time.Now().Add(s.proposalTTL),
	}
	err = s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.matchRepo.UpdateStatus(ctx, tx, matchID,
			[]models.MatchStatus{models.MatchStatusPending, models.MatchStatusActive},
			models.MatchStatusAwaitingConfirmation); err != nil {
			return err
		}
		if err := s.proposalRepo.Create(ctx, tx, proposal); err != nil {
			return err
		}
		confirmations := make([]*models.MatchConfirmation, len(participants))
		for i, p := range participants {
			status := models.ConfirmationPending
			if p.PlayerID == proposerID {
				status = models.ConfirmationConfirmed
			}
			confirmations[i] = &models.MatchConfirmation{
				MatchID:  matchID,
				PlayerID: p.PlayerID,
				Status:   status,
			}
		}
		return s.confirmationRepo.CreateBatch(ctx, tx, confirmations)
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrActiveProposalExists):
			return nil, ErrActiveProposalExists
		case errors.Is(err, repositories.ErrMatchWrongStatus):
			return nil, s.matches.mapStatusErr(ctx, matchID, err)
		}
		return nil, err
	}

	s.logger.Info("result proposed",
		slog.Int("match_id", matchID),
		slog.Int("proposer_id", proposerID),
		slog.Time("expires_at", proposal.ExpiresAt),
	)
	s.matches.notifyEvent(match.EventID, map[string]interface{}{
		"type":     "RESULT_PROPOSED",
		"match_id": matchID,
	})

	// A 1v1 proposal only awaits the single opponent; larger formats
	// wait the same way, so nothing else to do here.
	return proposal, nil
}

// RecordConfirmation stores one participant's response. A rejection
// voids the proposal and returns the match to pending; the final
// confirmation completes the match and applies ratings.
func (s *ConfirmationService) RecordConfirmation(ctx context.Context, matchID, playerID int, status models.ConfirmationStatus) error {
	if status != models.ConfirmationConfirmed && status != models.ConfirmationRejected {
		return ErrInvalidConfirmation
	}

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrNotFound
		}
		return err
	}
	if match.Status != models.MatchStatusAwaitingConfirmation {
		return ErrMatchNotAwaiting
	}
	participants, err := s.participantRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return err
	}
	isParticipant := false
	for _, p := range participants {
		if p.PlayerID == playerID {
			isParticipant = true
			break
		}
	}
	if !isParticipant {
		return ErrNotParticipant
	}

	err = s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.confirmationRepo.UpdateStatusIfPending(ctx, tx, matchID, playerID, status); err != nil {
			return err
		}
		if status == models.ConfirmationRejected {
			return s.voidProposal(ctx, tx, matchID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrConfirmationNotPending) {
			return ErrAlreadyResponded
		}
		return err
	}

	if status == models.ConfirmationRejected {
		s.logger.Info("result rejected",
			slog.Int("match_id", matchID),
			slog.Int("player_id", playerID),
		)
		s.matches.notifyEvent(match.EventID, map[string]interface{}{
			"type":     "RESULT_REJECTED",
			"match_id": matchID,
		})
		return nil
	}

	confirmations, err := s.confirmationRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return err
	}
	for _, c := range confirmations {
		if c.Status != models.ConfirmationConfirmed {
			return nil // still waiting on someone
		}
	}
	return s.FinalizeConfirmedResults(ctx, matchID)
}

// voidProposal discards the active proposal and its confirmations and
// returns the match to pending, inside the caller's transaction.
func (s *ConfirmationService) voidProposal(ctx context.Context, tx repositories.SQLExecutor, matchID int) error {
	if err := s.confirmationRepo.DeleteByMatch(ctx, tx, matchID); err != nil {
		return err
	}
	if err := s.proposalRepo.DeleteByMatch(ctx, tx, matchID); err != nil {
		return err
	}
	return s.matchRepo.UpdateStatus(ctx, tx, matchID,
		[]models.MatchStatus{models.MatchStatusAwaitingConfirmation},
		models.MatchStatusPending)
}

// FinalizeConfirmedResults applies the proposed placements once every
// confirmation is in. The pending-status recheck inside the transaction
// means two racing finalize calls produce exactly one application: the
// loser fails the status compare-and-swap and backs off.
func (s *ConfirmationService) FinalizeConfirmedResults(ctx context.Context, matchID int) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrNotFound
		}
		return err
	}
	proposal, err := s.proposalRepo.GetActiveByMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrProposalNotFound) {
			return ErrNoActiveProposal
		}
		return err
	}
	confirmations, err := s.confirmationRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return err
	}
	for _, c := range confirmations {
		if c.Status != models.ConfirmationConfirmed {
			return ErrConfirmationsIncomplete
		}
	}

	err = s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.matchRepo.UpdateStatus(ctx, tx, matchID,
			[]models.MatchStatus{models.MatchStatusAwaitingConfirmation},
			models.MatchStatusCompleted); err != nil {
			return err
		}
		if err := s.proposalRepo.Deactivate(ctx, tx, proposal.ID); err != nil {
			return err
		}
		return s.matches.applyResults(ctx, tx, match, proposal.Placements)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchWrongStatus) {
			// Lost the finalize race; the winner already applied.
			return nil
		}
		return err
	}

	s.logger.Info("match finalized",
		slog.Int("match_id", matchID),
		slog.Int("event_id", match.EventID),
	)
	s.matches.notifyEvent(match.EventID, map[string]interface{}{
		"type":     "MATCH_COMPLETED",
		"match_id": matchID,
	})
	s.matches.notifyEvent(match.EventID, map[string]interface{}{
		"type":     "RATINGS_UPDATED",
		"event_id": match.EventID,
	})
	return nil
}

// TerminateProposal administratively voids the active proposal and
// returns the match to pending without applying anything.
func (s *ConfirmationService) TerminateProposal(ctx context.Context, matchID int) error {
	if _, err := s.proposalRepo.GetActiveByMatch(ctx, matchID); err != nil {
		if errors.Is(err, repositories.ErrProposalNotFound) {
			return ErrNoActiveProposal
		}
		return err
	}
	err := s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		return s.voidProposal(ctx, tx, matchID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchWrongStatus) {
			return ErrMatchNotAwaiting
		}
		return err
	}
	s.logger.Info("proposal terminated", slog.Int("match_id", matchID))
	return nil
}

// SweepExpired voids every proposal past its expiry, one match per
// transaction, and reports how many were swept. Wired to the scheduler
// tick; individual failures are logged and skipped so one bad row never
// blocks the rest of the batch.
func (s *ConfirmationService) SweepExpired(ctx context.Context) (int, error) {
	matchIDs, err := s.proposalRepo.ListExpiredMatchIDs(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, matchID := range matchIDs {
		err := s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
			return s.voidProposal(ctx, tx, matchID)
		})
		if err != nil {
			// Likely finalized or rejected between listing and sweeping.
			if errors.Is(err, repositories.ErrMatchWrongStatus) {
				continue
			}
			s.logger.Error("failed to sweep expired proposal",
				slog.Int("match_id", matchID),
				slog.String("error", err.Error()),
			)
			continue
		}
		swept++
	}
	if swept > 0 {
		s.logger.Info("expired proposals swept", slog.Int("count", swept))
	}
	return swept, nil
}
