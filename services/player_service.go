package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jacoblam121/tournament-arc/models"
	"github.com/jacoblam121/tournament-arc/repositories"
)

const defaultHistoryLimit = 50

// PlayerProfile bundles a player with their per-event stats and the
// computed rating hierarchy.
type PlayerProfile struct {
	Player     *models.Player             `json:"player"`
	EventStats []*models.PlayerEventStats `json:"event_stats"`
	Ratings    *AggregateSnapshot         `json:"ratings"`
}

type PlayerService struct {
	runner      TxRunner
	playerRepo  repositories.PlayerRepository
	statsRepo   repositories.StatsRepository
	historyRepo repositories.HistoryRepository
	ratings     *RatingService
	logger      *slog.Logger
}

func NewPlayerService(
	runner TxRunner,
	playerRepo repositories.PlayerRepository,
	statsRepo repositories.StatsRepository,
	historyRepo repositories.HistoryRepository,
	ratings *RatingService,
	logger *slog.Logger,
) *PlayerService {
	return &PlayerService{
		runner:      runner,
		playerRepo:  playerRepo,
		statsRepo:   statsRepo,
		historyRepo: historyRepo,
		ratings:     ratings,
		logger:      logger,
	}
}

// RegisterPlayer creates a player keyed by their external chat-platform
// id. Registering an already known external id returns the existing
// player instead of failing, so bridged platforms can re-register
// safely.
func (s *PlayerService) RegisterPlayer(ctx context.Context, externalID, displayName string) (*models.Player, bool, error) {
	externalID = strings.TrimSpace(externalID)
	displayName = strings.TrimSpace(displayName)
	if externalID == "" || displayName == "" {
		return nil, false, ErrValidationFailed
	}

	player := &models.Player{
		ExternalID:  externalID,
		DisplayName: displayName,
	}
	err := s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		return s.playerRepo.Create(ctx, tx, player)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerExternalIDUsed) {
			existing, lookupErr := s.playerRepo.GetByExternalID(ctx, externalID)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	s.logger.Info("player registered",
		slog.Int("player_id", player.ID),
		slog.String("external_id", externalID),
	)
	return player, true, nil
}

// GetProfile returns the player with event stats and the live rating
// snapshot.
func (s *PlayerService) GetProfile(ctx context.Context, playerID int) (*PlayerProfile, error) {
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	stats, err := s.statsRepo.ListByPlayer(ctx, nil, playerID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.ratings.Snapshot(ctx, nil, playerID)
	if err != nil {
		return nil, err
	}
	return &PlayerProfile{
		Player:     player,
		EventStats: stats,
		Ratings:    snapshot,
	}, nil
}

// GetHistory returns the player's most recent rating changes, newest
// first.
func (s *PlayerService) GetHistory(ctx context.Context, playerID, limit int) ([]*models.EloHistory, error) {
	if _, err := s.playerRepo.GetByID(ctx, playerID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.historyRepo.ListByPlayer(ctx, playerID, limit)
}
