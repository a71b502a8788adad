package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jacoblam121/tournament-arc/models"
	"github.com/jacoblam121/tournament-arc/repositories"
)

var knownFormats = map[string]bool{
	string(models.FormatOneVsOne):    true,
	string(models.FormatFFA):         true,
	string(models.FormatTeam):        true,
	string(models.FormatLeaderboard): true,
}

// EventService manages clusters and the events inside them.
type EventService struct {
	runner      TxRunner
	clusterRepo repositories.ClusterRepository
	eventRepo   repositories.EventRepository
	logger      *slog.Logger
}

func NewEventService(
	runner TxRunner,
	clusterRepo repositories.ClusterRepository,
	eventRepo repositories.EventRepository,
	logger *slog.Logger,
) *EventService {
	return &EventService{
		runner:      runner,
		clusterRepo: clusterRepo,
		eventRepo:   eventRepo,
		logger:      logger,
	}
}

func (s *EventService) CreateCluster(ctx context.Context, name string) (*models.Cluster, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: cluster name is required", ErrValidationFailed)
	}
	cluster := &models.Cluster{Name: name}
	err := s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		return s.clusterRepo.Create(ctx, tx, cluster)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("cluster created", slog.Int("cluster_id", cluster.ID), slog.String("name", name))
	return cluster, nil
}

func (s *EventService) ListClusters(ctx context.Context) ([]*models.Cluster, error) {
	return s.clusterRepo.List(ctx)
}

type CreateEventInput struct {
	ClusterID        int                   `json:"cluster_id"`
	Name             string                `json:"name"`
	SupportedFormats []string              `json:"supported_formats"`
	MinPlayers       int                   `json:"min_players"`
	MaxPlayers       int                   `json:"max_players"`
	ScoreDirection   models.ScoreDirection `json:"score_direction"`
}

func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*models.Event, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, fmt.Errorf("%w: event name is required", ErrValidationFailed)
	}
	if len(input.SupportedFormats) == 0 {
		return nil, fmt.Errorf("%w: at least one supported format is required", ErrValidationFailed)
	}
	for _, format := range input.SupportedFormats {
		if !knownFormats[format] {
			return nil, fmt.Errorf("%w: unknown format %q", ErrValidationFailed, format)
		}
	}
	if input.MinPlayers < 0 || (input.MaxPlayers > 0 && input.MaxPlayers < input.MinPlayers) {
		return nil, fmt.Errorf("%w: invalid player bounds", ErrValidationFailed)
	}
	if input.ScoreDirection == "" {
		input.ScoreDirection = models.ScoreDirectionHigh
	}
	if input.ScoreDirection != models.ScoreDirectionHigh && input.ScoreDirection != models.ScoreDirectionLow {
		return nil, fmt.Errorf("%w: score direction must be high or low", ErrValidationFailed)
	}
	if _, err := s.clusterRepo.GetByID(ctx, input.ClusterID); err != nil {
		if errors.Is(err, repositories.ErrClusterNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	event := &models.Event{
		ClusterID:        input.ClusterID,
		Name:             input.Name,
		SupportedFormats: input.SupportedFormats,
		MinPlayers:       input.MinPlayers,
		MaxPlayers:       input.MaxPlayers,
		ScoreDirection:   input.ScoreDirection,
	}
	err := s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		return s.eventRepo.Create(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("event created",
		slog.Int("event_id", event.ID),
		slog.Int("cluster_id", event.ClusterID),
		slog.String("name", event.Name),
	)
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, eventID int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

func (s *EventService) ListEvents(ctx context.Context, clusterID *int) ([]*models.Event, error) {
	if clusterID != nil {
		return s.eventRepo.ListByCluster(ctx, *clusterID)
	}
	return s.eventRepo.List(ctx)
}
