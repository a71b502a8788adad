package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jacoblam121/tournament-arc/models"
	"github.com/jacoblam121/tournament-arc/repositories"
)

// UndoPreview describes what an undo would restore, per participant.
type UndoPreview struct {
	MatchID      int                `json:"match_id"`
	AlreadyDone  bool               `json:"already_done"`
	Restorations []UndoRestoration  `json:"restorations"`
}

type UndoRestoration struct {
	PlayerID       int `json:"player_id"`
	ScoringElo     int `json:"scoring_elo"`
	ScoringRestore int `json:"scoring_restore"`
	RawDelta       int `json:"raw_delta"`
	PointsDelta    int `json:"points_delta"`
}

// UndoService reverses a completed match by restoring the rating
// snapshots captured at completion. It never replays matches completed
// afterwards; their deltas stand as played.
type UndoService struct {
	runner      TxRunner
	matchRepo   repositories.MatchRepository
	partRepo    repositories.ParticipantRepository
	statsRepo   repositories.StatsRepository
	historyRepo repositories.HistoryRepository
	ratings     *RatingService
	notifier    Notifier
	logger      *slog.Logger
}

func NewUndoService(
	runner TxRunner,
	matchRepo repositories.MatchRepository,
	partRepo repositories.ParticipantRepository,
	statsRepo repositories.StatsRepository,
	historyRepo repositories.HistoryRepository,
	ratings *RatingService,
	notifier Notifier,
	logger *slog.Logger,
) *UndoService {
	return &UndoService{
		runner:      runner,
		matchRepo:   matchRepo,
		partRepo:    partRepo,
		statsRepo:   statsRepo,
		historyRepo: historyRepo,
		ratings:     ratings,
		notifier:    notifier,
		logger:      logger,
	}
}

// loadUndoTarget validates that the match is completed and not yet
// undone, returning the match and its participants.
func (s *UndoService) loadUndoTarget(ctx context.Context, matchID int) (*models.Match, []*models.MatchParticipant, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if match.Status != models.MatchStatusCompleted {
		return nil, nil, ErrMatchNotCompleted
	}
	if _, err := s.historyRepo.GetUndoByMatch(ctx, matchID); err == nil {
		return nil, nil, ErrMatchAlreadyUndone
	} else if !errors.Is(err, repositories.ErrUndoNotFound) {
		return nil, nil, err
	}
	participants, err := s.partRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	return match, participants, nil
}

// PreviewUndo reports what UndoMatch would restore without writing
// anything.
func (s *UndoService) PreviewUndo(ctx context.Context, matchID int) (*UndoPreview, error) {
	_, participants, err := s.loadUndoTarget(ctx, matchID)
	if err != nil {
		if errors.Is(err, ErrMatchAlreadyUndone) {
			return &UndoPreview{MatchID: matchID, AlreadyDone: true}, nil
		}
		return nil, err
	}
	preview := &UndoPreview{MatchID: matchID}
	for _, p := range participants {
		if p.EloBefore == nil || p.EloChange == nil {
			continue
		}
		restoration := UndoRestoration{
			PlayerID:       p.PlayerID,
			ScoringRestore: *p.EloBefore,
			RawDelta:       -*p.EloChange,
		}
		if p.EloAfter != nil {
			restoration.ScoringElo = *p.EloAfter
		}
		if p.PointsAwarded != nil {
			restoration.PointsDelta = -*p.PointsAwarded
		}
		preview.Restorations = append(preview.Restorations, restoration)
	}
	return preview, nil
}

// UndoMatch reverses a completed match's rating effects. Each
// participant's scoring rating returns to its pre-match snapshot, the
// raw rating subtracts the applied delta, and awarded points are taken
// back. Reversal history rows carry a zero K-factor so audits can tell
// them from competitive changes. One undo per match, ever.
func (s *UndoService) UndoMatch(ctx context.Context, matchID, adminID int, reason string) error {
	match, participants, err := s.loadUndoTarget(ctx, matchID)
	if err != nil {
		return err
	}

	err = s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		// Inserting the undo row first makes the uniqueness constraint
		// the race arbiter: a concurrent undo of the same match fails
		// here before any rating moves.
		undo := &models.MatchUndo{
			MatchID: matchID,
			AdminID: adminID,
			Reason:  reason,
		}
		if err := s.historyRepo.CreateUndo(ctx, tx, undo); err != nil {
			if errors.Is(err, repositories.ErrMatchAlreadyUndone) {
				return ErrMatchAlreadyUndone
			}
			return err
		}

		for _, p := range participants {
			if p.EloBefore == nil || p.EloChange == nil {
				return fmt.Errorf("match %d participant %d has no rating snapshot", matchID, p.PlayerID)
			}
			stats, err := s.statsRepo.Get(ctx, tx, p.PlayerID, match.EventID)
			if err != nil {
				return err
			}

			oldScoring := stats.ScoringElo
			restoredScoring := *p.EloBefore
			restoredRaw := stats.RawElo - *p.EloChange
			if err := s.statsRepo.SetElo(ctx, tx, p.PlayerID, match.EventID, restoredRaw, restoredScoring); err != nil {
				return err
			}
			if p.PointsAwarded != nil && *p.PointsAwarded != 0 {
				if err := s.statsRepo.AdjustPoints(ctx, tx, p.PlayerID, match.EventID, -*p.PointsAwarded); err != nil {
					return err
				}
			}

			reversal := &models.EloHistory{
				PlayerID: p.PlayerID,
				EventID:  intPtr(match.EventID),
				MatchID:  intPtr(matchID),
				OldElo:   oldScoring,
				NewElo:   restoredScoring,
				Change:   restoredScoring - oldScoring,
				KFactor:  0,
				Reason:   strPtr(reason),
			}
			if err := s.historyRepo.Insert(ctx, tx, reversal); err != nil {
				return err
			}

			if _, err := s.ratings.RecomputePlayer(ctx, tx, p.PlayerID); err != nil {
				return err
			}
		}

		note := fmt.Sprintf("undone by admin %d: %s", adminID, reason)
		return s.matchRepo.SetAdminNote(ctx, tx, matchID, note)
	})
	if err != nil {
		return err
	}

	s.logger.Info("match undone",
		slog.Int("match_id", matchID),
		slog.Int("admin_id", adminID),
		slog.String("reason", reason),
	)
	if s.notifier != nil {
		s.notifier.BroadcastToEvent(match.EventID, map[string]interface{}{
			"type":     "MATCH_UNDONE",
			"match_id": matchID,
		})
		s.notifier.BroadcastToEvent(match.EventID, map[string]interface{}{
			"type":     "RATINGS_UPDATED",
			"event_id": match.EventID,
		})
	}
	return nil
}
