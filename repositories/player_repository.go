package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jacoblam121/tournament-arc/models"
)

var (
	ErrPlayerNotFound       = errors.New("player not found")
	ErrPlayerExternalIDUsed = errors.New("external id is already registered")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByID(ctx context.Context, id int) (*models.Player, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Player, error)
	ListIDs(ctx context.Context) ([]int, error)
	UpdateAggregates(ctx context.Context, exec SQLExecutor, playerID, overallRaw, overallScoring, finalScore int) error
	AddRecord(ctx context.Context, exec SQLExecutor, playerID, wins, losses, draws int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	query := `
		INSERT INTO players (external_id, display_name, overall_raw_elo, overall_scoring_elo, final_score)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		player.ExternalID,
		player.DisplayName,
		player.OverallRawElo,
		player.OverallScoringElo,
		player.FinalScore,
	).Scan(&player.ID, &player.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "players_external_id_key") {
			return ErrPlayerExternalIDUsed
		}
		return fmt.Errorf("failed to insert player: %w", err)
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	return r.scanOne(ctx, `WHERE id = $1`, id)
}

func (r *postgresPlayerRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Player, error) {
	return r.scanOne(ctx, `WHERE external_id = $1`, externalID)
}

func (r *postgresPlayerRepository) scanOne(ctx context.Context, where string, arg interface{}) (*models.Player, error) {
	query := `
		SELECT id, external_id, display_name, overall_raw_elo, overall_scoring_elo, final_score,
		       wins, losses, draws, created_at
		FROM players ` + where

	player := &models.Player{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&player.ID,
		&player.ExternalID,
		&player.DisplayName,
		&player.OverallRawElo,
		&player.OverallScoringElo,
		&player.FinalScore,
		&player.Wins,
		&player.Losses,
		&player.Draws,
		&player.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	return player, nil
}

func (r *postgresPlayerRepository) ListIDs(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query player ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan player id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during player id iteration: %w", err)
	}
	return ids, nil
}

func (r *postgresPlayerRepository) UpdateAggregates(ctx context.Context, exec SQLExecutor, playerID, overallRaw, overallScoring, finalScore int) error {
	query := `
		UPDATE players
		SET overall_raw_elo = $1, overall_scoring_elo = $2, final_score = $3
		WHERE id = $4`

	result, err := exec.ExecContext(ctx, query, overallRaw, overallScoring, finalScore, playerID)
	if err != nil {
		return fmt.Errorf("failed to update aggregates for player %d: %w", playerID, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) AddRecord(ctx context.Context, exec SQLExecutor, playerID, wins, losses, draws int) error {
	query := `
		UPDATE players
		SET wins = wins + $1, losses = losses + $2, draws = draws + $3
		WHERE id = $4`

	result, err := exec.ExecContext(ctx, query, wins, losses, draws, playerID)
	if err != nil {
		return fmt.Errorf("failed to update record for player %d: %w", playerID, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}
