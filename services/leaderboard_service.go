package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/jacoblam121/tournament-arc/models"
	"github.com/jacoblam121/tournament-arc/rankings"
	"github.com/jacoblam121/tournament-arc/repositories"
)

// zScoreEloScale converts a standard-score distance from the event mean
// into rating points: one standard deviation is worth 200.
const zScoreEloScale = 200.0

// StandingsArchiver persists a snapshot of an event's standings to
// durable storage before a destructive reset. Implemented by the R2
// uploader; returns the stored object key.
type StandingsArchiver interface {
	ArchiveStandings(ctx context.Context, event *models.Event, rows []*models.PlayerEventStats) (string, error)
}

// ScoreSubmission reports what a score submission did.
type ScoreSubmission struct {
	PlayerID     int     `json:"player_id"`
	EventID      int     `json:"event_id"`
	Score        float64 `json:"score"`
	PersonalBest bool    `json:"personal_best"`
	RawElo       int     `json:"raw_elo"`
	ScoringElo   int     `json:"scoring_elo"`
}

// LeaderboardService handles score-based events: submissions ranked
// against the field's running distribution rather than head-to-head.
type LeaderboardService struct {
	runner        TxRunner
	eventRepo     repositories.EventRepository
	statsRepo     repositories.StatsRepository
	ratings       *RatingService
	locker        repositories.ScopeLocker
	archiver      StandingsArchiver
	startingElo   int
	retryAttempts int
	notifier      Notifier
	logger        *slog.Logger
}

func NewLeaderboardService(
	runner TxRunner,
	eventRepo repositories.EventRepository,
	statsRepo repositories.StatsRepository,
	ratings *RatingService,
	locker repositories.ScopeLocker,
	archiver StandingsArchiver,
	startingElo int,
	retryAttempts int,
	notifier Notifier,
	logger *slog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		runner:        runner,
		eventRepo:     eventRepo,
		statsRepo:     statsRepo,
		ratings:       ratings,
		locker:        locker,
		archiver:      archiver,
		startingElo:   startingElo,
		retryAttempts: retryAttempts,
		notifier:      notifier,
		logger:        logger,
	}
}

// isImprovement applies the event's score direction. A first submission
// always improves.
func isImprovement(direction models.ScoreDirection, score float64, best *float64) bool {
	if best == nil {
		return true
	}
	if direction == models.ScoreDirectionLow {
		return score < *best
	}
	return score > *best
}

// eloFromZScore maps a standard score to a rating anchored at the
// starting rating, floored there as well: an average performance rates
// exactly the floor, and below-average never drops under it.
func (s *LeaderboardService) eloFromZScore(z float64) int {
	elo := s.startingElo + int(math.Round(z*zScoreEloScale))
	if elo < s.startingElo {
		return s.startingElo
	}
	return elo
}

// SubmitScore records a score submission. Only personal bests change
// state: the event's running mean and variance swap the old best for
// the new one, and the player's event rating is re-derived from the
// new best's standard score. The event row is locked for the duration
// so concurrent submissions serialize; serialization failures retry
// with backoff.
func (s *LeaderboardService) SubmitScore(ctx context.Context, eventID, playerID int, score float64) (*ScoreSubmission, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, ErrScoreNotFinite
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var submission *ScoreSubmission
	err := runWithRetry(ctx, s.retryAttempts, func() error {
		return s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
			event, err := s.eventRepo.GetForUpdate(ctx, tx, eventID)
			if err != nil {
				return err
			}
			if !event.SupportsFormat(models.FormatLeaderboard) {
				return ErrFormatNotSupported
			}
			stats, err := s.statsRepo.GetOrCreate(ctx, tx, playerID, eventID, s.startingElo)
			if err != nil {
				return err
			}

			submission = &ScoreSubmission{
				PlayerID:   playerID,
				EventID:    eventID,
				Score:      score,
				RawElo:     stats.RawElo,
				ScoringElo: stats.ScoringElo,
			}
			if !isImprovement(event.ScoreDirection, score, stats.PersonalBest) {
				return nil
			}
			submission.PersonalBest = true

			running := rankings.RunningStats{
				Count: event.ScoreCount,
				Mean:  event.ScoreMean,
				M2:    event.ScoreM2,
			}
			if stats.PersonalBest != nil {
				if err := running.Downdate(*stats.PersonalBest); err != nil {
					return fmt.Errorf("downdate score stats for event %d: %w", eventID, err)
				}
			}
			running.Update(score)

			elo := s.eloFromZScore(running.ZScore(score))
			submission.RawElo = elo
			submission.ScoringElo = elo

			if err := s.eventRepo.UpdateScoreStats(ctx, tx, eventID, running.Count, running.Mean, running.M2); err != nil {
				return err
			}
			if err := s.statsRepo.UpdatePersonalBest(ctx, tx, playerID, eventID, score, elo, elo); err != nil {
				return err
			}
			_, err = s.ratings.RecomputePlayer(ctx, tx, playerID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	if submission.PersonalBest {
		s.logger.Info("personal best recorded",
			slog.Int("event_id", eventID),
			slog.Int("player_id", playerID),
			slog.Float64("score", score),
			slog.Int("elo", submission.ScoringElo),
		)
		s.notifyEvent(eventID, map[string]interface{}{
			"type":      "PERSONAL_BEST",
			"event_id":  eventID,
			"player_id": playerID,
		})
	}
	return submission, nil
}

func (s *LeaderboardService) notifyEvent(eventID int, message interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastToEvent(eventID, message)
}

// Standings returns the event's stats rows ordered by rating.
func (s *LeaderboardService) Standings(ctx context.Context, eventID int) ([]*models.PlayerEventStats, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.statsRepo.ListByEvent(ctx, nil, eventID)
}

// ResetEvent wipes one event's scores and ratings back to the starting
// state. Standings are archived to object storage first; if the archive
// fails the reset does not happen. Mutual exclusion comes from a scoped
// advisory lock, so a concurrent reset of the same event is rejected.
func (s *LeaderboardService) ResetEvent(ctx context.Context, eventID int) error {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return ErrNotFound
		}
		return err
	}

	rows, err := s.statsRepo.ListByEvent(ctx, nil, eventID)
	if err != nil {
		return err
	}
	if err := s.archiveStandings(ctx, event, rows); err != nil {
		return err
	}

	playerIDs := make([]int, len(rows))
	for i, row := range rows {
		playerIDs[i] = row.PlayerID
	}

	err = s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		scope := fmt.Sprintf("reset:leaderboard:event:%d", eventID)
		acquired, err := s.locker.TryLockScope(ctx, tx, scope)
		if err != nil {
			return err
		}
		if !acquired {
			return ErrResetInProgress
		}
		if err := s.eventRepo.ResetScoreStats(ctx, tx, &eventID); err != nil {
			return err
		}
		if err := s.statsRepo.ResetByEvent(ctx, tx, eventID, s.startingElo); err != nil {
			return err
		}
		for _, playerID := range playerIDs {
			if _, err := s.ratings.RecomputePlayer(ctx, tx, playerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("leaderboard event reset",
		slog.Int("event_id", eventID),
		slog.Int("players", len(playerIDs)),
	)
	s.notifyEvent(eventID, map[string]interface{}{
		"type":     "RATINGS_UPDATED",
		"event_id": eventID,
	})
	return nil
}

// ResetAllEvents resets every leaderboard-capable event, archiving each
// one's standings first. Any archive failure aborts the whole reset
// before data changes.
func (s *LeaderboardService) ResetAllEvents(ctx context.Context) error {
	events, err := s.eventRepo.List(ctx)
	if err != nil {
		return err
	}
	targets := make([]*models.Event, 0, len(events))
	for _, event := range events {
		if event.SupportsFormat(models.FormatLeaderboard) {
			targets = append(targets, event)
		}
	}

	rowsByEvent := make(map[int][]*models.PlayerEventStats, len(targets))
	for _, event := range targets {
		rows, err := s.statsRepo.ListByEvent(ctx, nil, event.ID)
		if err != nil {
			return err
		}
		if err := s.archiveStandings(ctx, event, rows); err != nil {
			return err
		}
		rowsByEvent[event.ID] = rows
	}

	err = s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		acquired, err := s.locker.TryLockScope(ctx, tx, "reset:leaderboard:global")
		if err != nil {
			return err
		}
		if !acquired {
			return ErrResetInProgress
		}
		for _, event := range targets {
			eventID := event.ID
			if err := s.eventRepo.ResetScoreStats(ctx, tx, &eventID); err != nil {
				return err
			}
			if err := s.statsRepo.ResetByEvent(ctx, tx, eventID, s.startingElo); err != nil {
				return err
			}
		}
		seen := make(map[int]bool)
		for _, rows := range rowsByEvent {
			for _, row := range rows {
				if seen[row.PlayerID] {
					continue
				}
				seen[row.PlayerID] = true
				if _, err := s.ratings.RecomputePlayer(ctx, tx, row.PlayerID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("all leaderboard events reset", slog.Int("events", len(targets)))
	return nil
}

// archiveStandings snapshots the standings before destruction. An empty
// leaderboard has nothing worth archiving and is skipped; a configured
// archiver that fails blocks the reset.
func (s *LeaderboardService) archiveStandings(ctx context.Context, event *models.Event, rows []*models.PlayerEventStats) error {
	if s.archiver == nil || len(rows) == 0 {
		return nil
	}
	key, err := s.archiver.ArchiveStandings(ctx, event, rows)
	if err != nil {
		s.logger.Error("standings archive failed",
			slog.Int("event_id", event.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", ErrArchiveFailed, err)
	}
	s.logger.Info("standings archived",
		slog.Int("event_id", event.ID),
		slog.String("key", key),
	)
	return nil
}
