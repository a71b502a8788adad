package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jacoblam121/tournament-arc/models"
)

var ErrStatsNotFound = errors.New("player event stats not found")

type StatsRepository interface {
	// GetOrCreate returns the per (player, event) rating row, creating it
	// at the starting rating on first contact.
	GetOrCreate(ctx context.Context, exec SQLExecutor, playerID, eventID, startingElo int) (*models.PlayerEventStats, error)
	// Read methods accept a nil exec to read through the repository's
	// own handle, or a *sql.Tx so in-transaction writes are visible.
	Get(ctx context.Context, exec SQLExecutor, playerID, eventID int) (*models.PlayerEventStats, error)
	// ListByPlayer returns every stats row for the player with ClusterID
	// populated from the owning event.
	ListByPlayer(ctx context.Context, exec SQLExecutor, playerID int) ([]*models.PlayerEventStats, error)
	ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]*models.PlayerEventStats, error)
	ApplyMatchResult(ctx context.Context, exec SQLExecutor, playerID, eventID, rawElo, scoringElo, points, wins, losses, draws int) error
	SetElo(ctx context.Context, exec SQLExecutor, playerID, eventID, rawElo, scoringElo int) error
	// AdjustPoints adds delta (possibly negative) to the accumulated
	// points column.
	AdjustPoints(ctx context.Context, exec SQLExecutor, playerID, eventID, delta int) error
	UpdatePersonalBest(ctx context.Context, exec SQLExecutor, playerID, eventID int, best float64, rawElo, scoringElo int) error
	ResetByEvent(ctx context.Context, exec SQLExecutor, eventID, startingElo int) error
	ResetByPlayer(ctx context.Context, exec SQLExecutor, playerID int, eventID *int, startingElo int) error
	ResetAll(ctx context.Context, exec SQLExecutor, startingElo int) error
}

type postgresStatsRepository struct {
	db *sql.DB
}

func NewPostgresStatsRepository(db *sql.DB) StatsRepository {
	return &postgresStatsRepository{db: db}
}

const statsColumns = `s.id, s.player_id, s.event_id, s.raw_elo, s.scoring_elo, s.matches_played,
	s.wins, s.losses, s.draws, s.points, s.personal_best, s.updated_at`

func (r *postgresStatsRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, playerID, eventID, startingElo int) (*models.PlayerEventStats, error) {
	query := `
		INSERT INTO player_event_stats (player_id, event_id, raw_elo, scoring_elo)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (player_id, event_id) DO UPDATE SET player_id = EXCLUDED.player_id
		RETURNING id, player_id, event_id, raw_elo, scoring_elo, matches_played,
		          wins, losses, draws, points, personal_best, updated_at`

	stats := &models.PlayerEventStats{}
	err := exec.QueryRowContext(ctx, query, playerID, eventID, startingElo).Scan(
		&stats.ID,
		&stats.PlayerID,
		&stats.EventID,
		&stats.RawElo,
		&stats.ScoringElo,
		&stats.MatchesPlayed,
		&stats.Wins,
		&stats.Losses,
		&stats.Draws,
		&stats.Points,
		&stats.PersonalBest,
		&stats.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create stats for player %d event %d: %w", playerID, eventID, err)
	}
	return stats, nil
}

func (r *postgresStatsRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStatsRepository) Get(ctx context.Context, exec SQLExecutor, playerID, eventID int) (*models.PlayerEventStats, error) {
	query := `
		SELECT ` + statsColumns + `
		FROM player_event_stats s
		WHERE s.player_id = $1 AND s.event_id = $2`

	stats := &models.PlayerEventStats{}
	err := r.executor(exec).QueryRowContext(ctx, query, playerID, eventID).Scan(
		&stats.ID,
		&stats.PlayerID,
		&stats.EventID,
		&stats.RawElo,
		&stats.ScoringElo,
		&stats.MatchesPlayed,
		&stats.Wins,
		&stats.Losses,
		&stats.Draws,
		&stats.Points,
		&stats.PersonalBest,
		&stats.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatsNotFound
		}
		return nil, fmt.Errorf("failed to scan stats for player %d event %d: %w", playerID, eventID, err)
	}
	return stats, nil
}

func (r *postgresStatsRepository) ListByPlayer(ctx context.Context, exec SQLExecutor, playerID int) ([]*models.PlayerEventStats, error) {
	query := `
		SELECT ` + statsColumns + `, e.cluster_id
		FROM player_event_stats s
		JOIN events e ON e.id = s.event_id
		WHERE s.player_id = $1
		ORDER BY s.event_id`
	return r.list(ctx, exec, query, true, playerID)
}

func (r *postgresStatsRepository) ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]*models.PlayerEventStats, error) {
	query := `
		SELECT ` + statsColumns + `
		FROM player_event_stats s
		WHERE s.event_id = $1
		ORDER BY s.scoring_elo DESC, s.player_id`
	return r.list(ctx, exec, query, false, eventID)
}

func (r *postgresStatsRepository) list(ctx context.Context, exec SQLExecutor, query string, withCluster bool, args ...interface{}) ([]*models.PlayerEventStats, error) {
	rows, err := r.executor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	out := make([]*models.PlayerEventStats, 0)
	for rows.Next() {
		stats := &models.PlayerEventStats{}
		dest := []interface{}{
			&stats.ID,
			&stats.PlayerID,
			&stats.EventID,
			&stats.RawElo,
			&stats.ScoringElo,
			&stats.MatchesPlayed,
			&stats.Wins,
			&stats.Losses,
			&stats.Draws,
			&stats.Points,
			&stats.PersonalBest,
			&stats.UpdatedAt,
		}
		if withCluster {
			dest = append(dest, &stats.ClusterID)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		out = append(out, stats)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during stats rows iteration: %w", err)
	}
	return out, nil
}

func (r *postgresStatsRepository) ApplyMatchResult(ctx context.Context, exec SQLExecutor, playerID, eventID, rawElo, scoringElo, points, wins, losses, draws int) error {
	query := `
		UPDATE player_event_stats
		SET raw_elo = $1, scoring_elo = $2, points = points + $3,
		    matches_played = matches_played + 1,
		    wins = wins + $4, losses = losses + $5, draws = draws + $6,
		    updated_at = now()
		WHERE player_id = $7 AND event_id = $8`

	result, err := exec.ExecContext(ctx, query, rawElo, scoringElo, points, wins, losses, draws, playerID, eventID)
	if err != nil {
		return fmt.Errorf("failed to apply match result for player %d event %d: %w", playerID, eventID, err)
	}
	return checkAffectedRows(result, ErrStatsNotFound)
}

func (r *postgresStatsRepository) SetElo(ctx context.Context, exec SQLExecutor, playerID, eventID, rawElo, scoringElo int) error {
	query := `
		UPDATE player_event_stats
		SET raw_elo = $1, scoring_elo = $2, updated_at = now()
		WHERE player_id = $3 AND event_id = $4`

	result, err := exec.ExecContext(ctx, query, rawElo, scoringElo, playerID, eventID)
	if err != nil {
		return fmt.Errorf("failed to set elo for player %d event %d: %w", playerID, eventID, err)
	}
	return checkAffectedRows(result, ErrStatsNotFound)
}

func (r *postgresStatsRepository) AdjustPoints(ctx context.Context, exec SQLExecutor, playerID, eventID, delta int) error {
	query := `
		UPDATE player_event_stats
		SET points = points + $1, updated_at = now()
		WHERE player_id = $2 AND event_id = $3`

	result, err := exec.ExecContext(ctx, query, delta, playerID, eventID)
	if err != nil {
		return fmt.Errorf("failed to adjust points for player %d event %d: %w", playerID, eventID, err)
	}
	return checkAffectedRows(result, ErrStatsNotFound)
}

func (r *postgresStatsRepository) UpdatePersonalBest(ctx context.Context, exec SQLExecutor, playerID, eventID int, best float64, rawElo, scoringElo int) error {
	query := `
		UPDATE player_event_stats
		SET personal_best = $1, raw_elo = $2, scoring_elo = $3, updated_at = now()
		WHERE player_id = $4 AND event_id = $5`

	result, err := exec.ExecContext(ctx, query, best, rawElo, scoringElo, playerID, eventID)
	if err != nil {
		return fmt.Errorf("failed to update personal best for player %d event %d: %w", playerID, eventID, err)
	}
	return checkAffectedRows(result, ErrStatsNotFound)
}

func (r *postgresStatsRepository) ResetByEvent(ctx context.Context, exec SQLExecutor, eventID, startingElo int) error {
	query := `
		UPDATE player_event_stats
		SET raw_elo = $1, scoring_elo = $1, matches_played = 0,
		    wins = 0, losses = 0, draws = 0, points = 0, personal_best = NULL, updated_at = now()
		WHERE event_id = $2`
	if _, err := exec.ExecContext(ctx, query, startingElo, eventID); err != nil {
		return fmt.Errorf("failed to reset stats for event %d: %w", eventID, err)
	}
	return nil
}

func (r *postgresStatsRepository) ResetByPlayer(ctx context.Context, exec SQLExecutor, playerID int, eventID *int, startingElo int) error {
	query := `
		UPDATE player_event_stats
		SET raw_elo = $1, scoring_elo = $1, matches_played = 0,
		    wins = 0, losses = 0, draws = 0, points = 0, personal_best = NULL, updated_at = now()
		WHERE player_id = $2`
	args := []interface{}{startingElo, playerID}
	if eventID != nil {
		query += ` AND event_id = $3`
		args = append(args, *eventID)
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to reset stats for player %d: %w", playerID, err)
	}
	return nil
}

func (r *postgresStatsRepository) ResetAll(ctx context.Context, exec SQLExecutor, startingElo int) error {
	query := `
		UPDATE player_event_stats
		SET raw_elo = $1, scoring_elo = $1, matches_played = 0,
		    wins = 0, losses = 0, draws = 0, points = 0, personal_best = NULL, updated_at = now()`
	if _, err := exec.ExecContext(ctx, query, startingElo); err != nil {
		return fmt.Errorf("failed to reset all stats: %w", err)
	}
	return nil
}
