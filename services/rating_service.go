package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jacoblam121/tournament-arc/models"
	"github.com/jacoblam121/tournament-arc/rankings"
	"github.com/jacoblam121/tournament-arc/repositories"
	"golang.org/x/sync/errgroup"
)

const recomputeConcurrency = 8

// AggregateSnapshot is the result of one hierarchy recomputation for a
// player.
type AggregateSnapshot struct {
	ClusterScoring map[int]int
	ClusterRaw     map[int]int
	OverallRaw     int
	OverallScoring int
	FinalScore     int
}

// RatingService owns the event → cluster → overall roll-up. It is the
// only writer of the player aggregate rating fields; both stages are
// pure functions of persisted per-event stats and safe to rerun.
type RatingService struct {
	runner      TxRunner
	playerRepo  repositories.PlayerRepository
	statsRepo   repositories.StatsRepository
	locker      repositories.ScopeLocker
	rcfg        rankings.Config
	startingElo int
	cache       *rankings.Cache
	logger      *slog.Logger
}

func NewRatingService(
	runner TxRunner,
	playerRepo repositories.PlayerRepository,
	statsRepo repositories.StatsRepository,
	locker repositories.ScopeLocker,
	rcfg rankings.Config,
	startingElo int,
	cache *rankings.Cache,
	logger *slog.Logger,
) *RatingService {
	return &RatingService{
		runner:      runner,
		playerRepo:  playerRepo,
		statsRepo:   statsRepo,
		locker:      locker,
		rcfg:        rcfg,
		startingElo: startingElo,
		cache:       cache,
		logger:      logger,
	}
}

// clusterGroups splits a player's stats rows by cluster.
func clusterGroups(stats []*models.PlayerEventStats) map[int][]*models.PlayerEventStats {
	groups := make(map[int][]*models.PlayerEventStats)
	for _, s := range stats {
		groups[s.ClusterID] = append(groups[s.ClusterID], s)
	}
	return groups
}

// snapshotFromStats computes the full aggregate snapshot from one read
// of the player's stats rows.
func (s *RatingService) snapshotFromStats(stats []*models.PlayerEventStats) *AggregateSnapshot {
	snapshot := &AggregateSnapshot{
		ClusterScoring: make(map[int]int),
		ClusterRaw:     make(map[int]int),
	}

	totalPoints := 0
	for _, st := range stats {
		totalPoints += st.Points
	}

	scoringByCluster := make([]int, 0)
	rawByCluster := make([]int, 0)
	for clusterID, group := range clusterGroups(stats) {
		scoringElos := make([]int, 0, len(group))
		rawElos := make([]int, 0, len(group))
		for _, st := range group {
			scoringElos = append(scoringElos, st.ScoringElo)
			// Qualification piggybacks on the scoring value: a raw rating
			// only counts once the event has actually been played.
			if st.ScoringElo != s.rcfg.FloorRating {
				rawElos = append(rawElos, st.RawElo)
			}
		}
		clusterScoring := s.rcfg.ClusterRating(scoringElos)
		snapshot.ClusterScoring[clusterID] = clusterScoring
		clusterRaw := s.rcfg.WeightedClusterRating(rawElos)
		snapshot.ClusterRaw[clusterID] = clusterRaw

		if clusterScoring != s.rcfg.FloorRating {
			scoringByCluster = append(scoringByCluster, clusterScoring)
			rawByCluster = append(rawByCluster, clusterRaw)
		}
	}

	snapshot.OverallScoring = s.rcfg.OverallRating(scoringByCluster)
	snapshot.OverallRaw = s.rcfg.OverallRating(rawByCluster)
	snapshot.FinalScore = snapshot.OverallScoring + totalPoints
	return snapshot
}

// Snapshot computes the player's aggregate ratings without writing them.
// Pass the transaction as exec when uncommitted stats writes must be
// visible; nil reads committed state.
func (s *RatingService) Snapshot(ctx context.Context, exec repositories.SQLExecutor, playerID int) (*AggregateSnapshot, error) {
	stats, err := s.statsRepo.ListByPlayer(ctx, exec, playerID)
	if err != nil {
		return nil, err
	}
	return s.snapshotFromStats(stats), nil
}

// RecomputePlayer recomputes and persists the player's aggregates within
// the caller's transaction. Idempotent: recomputing twice writes the
// same values.
func (s *RatingService) RecomputePlayer(ctx context.Context, exec repositories.SQLExecutor, playerID int) (*AggregateSnapshot, error) {
	snapshot, err := s.Snapshot(ctx, exec, playerID)
	if err != nil {
		return nil, err
	}
	if err := s.playerRepo.UpdateAggregates(ctx, exec, playerID, snapshot.OverallRaw, snapshot.OverallScoring, snapshot.FinalScore); err != nil {
		return nil, err
	}

	s.cache.InvalidatePlayer(playerID)
	for clusterID, rating := range snapshot.ClusterScoring {
		s.cache.SetClusterRating(playerID, clusterID, rating)
	}
	s.cache.SetOverall(playerID, snapshot.OverallScoring)
	return snapshot, nil
}

// ClusterRating returns the player's current rating within one cluster,
// served from the cache when fresh.
func (s *RatingService) ClusterRating(ctx context.Context, playerID, clusterID int) (int, error) {
	if rating, ok := s.cache.GetClusterRating(playerID, clusterID); ok {
		return rating, nil
	}
	snapshot, err := s.Snapshot(ctx, nil, playerID)
	if err != nil {
		return 0, err
	}
	rating, ok := snapshot.ClusterScoring[clusterID]
	if !ok {
		rating = s.rcfg.FloorRating
	}
	s.cache.SetClusterRating(playerID, clusterID, rating)
	return rating, nil
}

// ResetPlayerElo resets a player's per-event ratings (one event, or all
// when eventID is nil) back to the starting rating and recomputes the
// aggregates.
func (s *RatingService) ResetPlayerElo(ctx context.Context, playerID int, eventID *int) error {
	err := s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.statsRepo.ResetByPlayer(ctx, tx, playerID, eventID, s.startingElo); err != nil {
			return err
		}
		_, err := s.RecomputePlayer(ctx, tx, playerID)
		return err
	})
	if err != nil {
		return err
	}
	s.logger.Info("player elo reset", slog.Int("player_id", playerID))
	return nil
}

// ResetAllElo resets every rating in the system under the global reset
// scope lock, then recomputes every player's aggregates. A concurrent
// reset attempt is rejected outright, never queued.
func (s *RatingService) ResetAllElo(ctx context.Context) error {
	err := s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		acquired, err := s.locker.TryLockScope(ctx, tx, "reset:elo:global")
		if err != nil {
			return err
		}
		if !acquired {
			return ErrResetInProgress
		}
		return s.statsRepo.ResetAll(ctx, tx, s.startingElo)
	})
	if err != nil {
		return err
	}
	s.cache.InvalidateAll()

	playerIDs, err := s.playerRepo.ListIDs(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recomputeConcurrency)
	for _, playerID := range playerIDs {
		playerID := playerID
		g.Go(func() error {
			return s.runner.RunInTx(gctx, func(tx repositories.SQLExecutor) error {
				_, err := s.RecomputePlayer(gctx, tx, playerID)
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("recompute after global reset: %w", err)
	}

	s.logger.Info("global elo reset complete", slog.Int("players", len(playerIDs)))
	return nil
}
