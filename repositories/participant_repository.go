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
	ErrParticipantNotFound  = errors.New("match participant not found")
	ErrParticipantConflict  = errors.New("player is already a participant of this match")
	ErrParticipantPlayerBad = errors.New("participant player conflict or invalid")
)

type ParticipantRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, participants []*models.MatchParticipant) error
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchParticipant, error)
	// UpdateResult writes the placement and the rating snapshot captured
	// at match completion.
	UpdateResult(ctx context.Context, exec SQLExecutor, p *models.MatchParticipant) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) CreateBatch(ctx context.Context, exec SQLExecutor, participants []*models.MatchParticipant) error {
	query := `
		INSERT INTO match_participants (match_id, player_id, team_id)
		VALUES ($1, $2, $3)
		RETURNING id`

	for _, p := range participants {
		err := exec.QueryRowContext(ctx, query, p.MatchID, p.PlayerID, p.TeamID).Scan(&p.ID)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) {
				switch pqErr.Constraint {
				case "match_participants_match_id_player_id_key":
					return ErrParticipantConflict
				case "match_participants_player_id_fkey":
					return ErrParticipantPlayerBad
				}
			}
			return fmt.Errorf("failed to insert participant (match %d, player %d): %w", p.MatchID, p.PlayerID, err)
		}
	}
	return nil
}

func (r *postgresParticipantRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchParticipant, error) {
	query := `
		SELECT id, match_id, player_id, team_id, placement,
		       elo_before, elo_after, elo_change, points_awarded,
		       cluster_elo_before, cluster_elo_after
		FROM match_participants
		WHERE match_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for match %d: %w", matchID, err)
	}
	defer rows.Close()

	participants := make([]*models.MatchParticipant, 0)
	for rows.Next() {
		p := &models.MatchParticipant{}
		if err := rows.Scan(
			&p.ID,
			&p.MatchID,
			&p.PlayerID,
			&p.TeamID,
			&p.Placement,
			&p.EloBefore,
			&p.EloAfter,
			&p.EloChange,
			&p.PointsAwarded,
			&p.ClusterEloBefore,
			&p.ClusterEloAfter,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participant rows iteration: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) UpdateResult(ctx context.Context, exec SQLExecutor, p *models.MatchParticipant) error {
	query := `
		UPDATE match_participants
		SET placement = $1, elo_before = $2, elo_after = $3, elo_change = $4,
		    points_awarded = $5, cluster_elo_before = $6, cluster_elo_after = $7
		WHERE id = $8`

	result, err := exec.ExecContext(ctx, query,
		p.Placement,
		p.EloBefore,
		p.EloAfter,
		p.EloChange,
		p.PointsAwarded,
		p.ClusterEloBefore,
		p.ClusterEloAfter,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update result for participant %d: %w", p.ID, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}
