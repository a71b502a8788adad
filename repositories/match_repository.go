package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jacoblam121/tournament-arc/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchWrongStatus  = errors.New("match is not in a status allowing this operation")
	ErrMatchEventInvalid = errors.New("match event conflict or invalid")
	ErrChallengeBridged  = errors.New("a match already exists for this challenge")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	GetByChallengeID(ctx context.Context, challengeID int64) (*models.Match, error)
	// UpdateStatus transitions the match conditionally: the write only
	// lands if the current status is one of from. Zero affected rows
	// surface as ErrMatchWrongStatus.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from []models.MatchStatus, to models.MatchStatus) error
	SetAdminNote(ctx context.Context, exec SQLExecutor, id int, note string) error
	Delete(ctx context.Context, id int) error
	// DeleteBatchByStatus removes up to limit matches in the given
	// statuses and reports how many went. Callers chunk destructive
	// clears into repeated calls so each batch is its own transaction.
	DeleteBatchByStatus(ctx context.Context, statuses []models.MatchStatus, limit int) (int64, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, event_id, format, status, challenge_id, admin_note, created_at, started_at, completed_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches (event_id, format, status, challenge_id, admin_note, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		match.EventID,
		match.Format,
		match.Status,
		match.ChallengeID,
		match.AdminNote,
		match.StartedAt,
	).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Constraint {
			case "matches_event_id_fkey":
				return ErrMatchEventInvalid
			case "matches_challenge_id_key":
				return ErrChallengeBridged
			}
		}
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	return scanMatch(row)
}

func (r *postgresMatchRepository) GetByChallengeID(ctx context.Context, challengeID int64) (*models.Match, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE challenge_id = $1`, challengeID)
	return scanMatch(row)
}

func scanMatch(row *sql.Row) (*models.Match, error) {
	match := &models.Match{}
	err := row.Scan(
		&match.ID,
		&match.EventID,
		&match.Format,
		&match.Status,
		&match.ChallengeID,
		&match.AdminNote,
		&match.CreatedAt,
		&match.StartedAt,
		&match.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	return match, nil
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from []models.MatchStatus, to models.MatchStatus) error {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	query := `
		UPDATE matches
		SET status = $1,
		    started_at = CASE WHEN $1 = 'active' AND started_at IS NULL THEN now() ELSE started_at END,
		    completed_at = CASE WHEN $1 = 'completed' THEN now() ELSE completed_at END
		WHERE id = $2 AND status = ANY($3)`

	result, err := exec.ExecContext(ctx, query, to, id, pq.Array(fromStrs))
	if err != nil {
		return fmt.Errorf("failed to update status for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchWrongStatus)
}

func (r *postgresMatchRepository) SetAdminNote(ctx context.Context, exec SQLExecutor, id int, note string) error {
	result, err := exec.ExecContext(ctx, `UPDATE matches SET admin_note = $1 WHERE id = $2`, note, id)
	if err != nil {
		return fmt.Errorf("failed to set admin note for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteBatchByStatus(ctx context.Context, statuses []models.MatchStatus, limit int) (int64, error) {
	statusStrs := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrs[i] = string(s)
	}

	query := `
		DELETE FROM matches
		WHERE id IN (SELECT id FROM matches WHERE status = ANY($1) ORDER BY id LIMIT $2)`

	result, err := r.db.ExecContext(ctx, query, pq.Array(statusStrs), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete match batch: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return deleted, nil
}
