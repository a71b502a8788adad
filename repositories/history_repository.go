package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jacoblam121/tournament-arc/models"
)

var (
	ErrUndoNotFound      = errors.New("undo record not found")
	ErrMatchAlreadyUndone = errors.New("match has already been undone")
)

// HistoryRepository appends to the immutable rating audit trail and owns
// the per-match undo records. History rows are never updated.
type HistoryRepository interface {
	Insert(ctx context.Context, exec SQLExecutor, h *models.EloHistory) error
	ListByMatch(ctx context.Context, matchID int) ([]*models.EloHistory, error)
	ListByPlayer(ctx context.Context, playerID, limit int) ([]*models.EloHistory, error)
	CreateUndo(ctx context.Context, exec SQLExecutor, undo *models.MatchUndo) error
	GetUndoByMatch(ctx context.Context, matchID int) (*models.MatchUndo, error)
}

type postgresHistoryRepository struct {
	db *sql.DB
}

func NewPostgresHistoryRepository(db *sql.DB) HistoryRepository {
	return &postgresHistoryRepository{db: db}
}

func (r *postgresHistoryRepository) Insert(ctx context.Context, exec SQLExecutor, h *models.EloHistory) error {
	query := `
		INSERT INTO elo_history (player_id, event_id, match_id, opponent_id, old_elo, new_elo, change, k_factor, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		h.PlayerID,
		h.EventID,
		h.MatchID,
		h.OpponentID,
		h.OldElo,
		h.NewElo,
		h.Change,
		h.KFactor,
		h.Reason,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert elo history for player %d: %w", h.PlayerID, err)
	}
	return nil
}

func (r *postgresHistoryRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.EloHistory, error) {
	query := `
		SELECT id, player_id, event_id, match_id, opponent_id, old_elo, new_elo, change, k_factor, reason, created_at
		FROM elo_history
		WHERE match_id = $1
		ORDER BY id`
	return r.list(ctx, query, matchID)
}

func (r *postgresHistoryRepository) ListByPlayer(ctx context.Context, playerID, limit int) ([]*models.EloHistory, error) {
	query := `
		SELECT id, player_id, event_id, match_id, opponent_id, old_elo, new_elo, change, k_factor, reason, created_at
		FROM elo_history
		WHERE player_id = $1
		ORDER BY id DESC
		LIMIT $2`
	return r.list(ctx, query, playerID, limit)
}

func (r *postgresHistoryRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.EloHistory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query elo history: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.EloHistory, 0)
	for rows.Next() {
		h := &models.EloHistory{}
		if err := rows.Scan(
			&h.ID,
			&h.PlayerID,
			&h.EventID,
			&h.MatchID,
			&h.OpponentID,
			&h.OldElo,
			&h.NewElo,
			&h.Change,
			&h.KFactor,
			&h.Reason,
			&h.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan elo history row: %w", err)
		}
		entries = append(entries, h)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during elo history iteration: %w", err)
	}
	return entries, nil
}

func (r *postgresHistoryRepository) CreateUndo(ctx context.Context, exec SQLExecutor, undo *models.MatchUndo) error {
	query := `
		INSERT INTO match_undos (match_id, admin_id, reason)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query, undo.MatchID, undo.AdminID, undo.Reason).Scan(&undo.ID, &undo.CreatedAt)
	if err != nil {
		// Unique constraint on match_id: one undo per match, ever.
		if isUniqueViolation(err, "match_undos_match_id_key") {
			return ErrMatchAlreadyUndone
		}
		return fmt.Errorf("failed to insert undo record for match %d: %w", undo.MatchID, err)
	}
	return nil
}

func (r *postgresHistoryRepository) GetUndoByMatch(ctx context.Context, matchID int) (*models.MatchUndo, error) {
	query := `SELECT id, match_id, admin_id, reason, created_at FROM match_undos WHERE match_id = $1`

	undo := &models.MatchUndo{}
	err := r.db.QueryRowContext(ctx, query, matchID).Scan(&undo.ID, &undo.MatchID, &undo.AdminID, &undo.Reason, &undo.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUndoNotFound
		}
		return nil, fmt.Errorf("failed to scan undo record for match %d: %w", matchID, err)
	}
	return undo, nil
}
