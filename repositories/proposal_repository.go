package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jacoblam121/tournament-arc/models"
)

var (
	ErrProposalNotFound       = errors.New("result proposal not found")
	ErrActiveProposalExists   = errors.New("an active result proposal already exists for this match")
	ErrConfirmationNotFound   = errors.New("confirmation not found")
	ErrConfirmationNotPending = errors.New("confirmation is no longer pending")
)

type ProposalRepository interface {
	Create(ctx context.Context, exec SQLExecutor, proposal *models.MatchResultProposal) error
	GetActiveByMatch(ctx context.Context, matchID int) (*models.MatchResultProposal, error)
	Deactivate(ctx context.Context, exec SQLExecutor, id int64) error
	DeleteByMatch(ctx context.Context, exec SQLExecutor, matchID int) error
	// ListExpiredMatchIDs returns matches whose active proposal is past
	// its expiry, for the background sweep.
	ListExpiredMatchIDs(ctx context.Context, cutoff time.Time, limit int) ([]int, error)
}

type ConfirmationRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, confirmations []*models.MatchConfirmation) error
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchConfirmation, error)
	// UpdateStatusIfPending is the compare-and-swap guarding the
	// confirmation race: the write lands only while the row is still
	// pending, so exactly one of two concurrent responses wins.
	UpdateStatusIfPending(ctx context.Context, exec SQLExecutor, matchID, playerID int, to models.ConfirmationStatus) error
	DeleteByMatch(ctx context.Context, exec SQLExecutor, matchID int) error
}

type postgresProposalRepository struct {
	db *sql.DB
}

func NewPostgresProposalRepository(db *sql.DB) ProposalRepository {
	return &postgresProposalRepository{db: db}
}

// placementsToJSON serializes the player → placement map with string
// keys, the only map key form JSON allows.
func placementsToJSON(placements map[int]int) ([]byte, error) {
	out := make(map[string]int, len(placements))
	for playerID, placement := range placements {
		out[strconv.Itoa(playerID)] = placement
	}
	return json.Marshal(out)
}

func placementsFromJSON(raw []byte) (map[int]int, error) {
	decoded := make(map[string]int)
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode placements: %w", err)
	}
	out := make(map[int]int, len(decoded))
	for key, placement := range decoded {
		playerID, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("failed to decode placements key %q: %w", key, err)
		}
		out[playerID] = placement
	}
	return out, nil
}

func (r *postgresProposalRepository) Create(ctx context.Context, exec SQLExecutor, proposal *models.MatchResultProposal) error {
	raw, err := placementsToJSON(proposal.Placements)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO match_result_proposals (match_id, proposer_id, placements, active, expires_at)
		VALUES ($1, $2, $3, TRUE, $4)
		RETURNING id, created_at`

	err = exec.QueryRowContext(ctx, query,
		proposal.MatchID,
		proposal.ProposerID,
		raw,
		proposal.ExpiresAt,
	).Scan(&proposal.ID, &proposal.CreatedAt)
	if err != nil {
		// Partial unique index: one active proposal per match.
		if isUniqueViolation(err, "match_result_proposals_one_active_idx") {
			return ErrActiveProposalExists
		}
		return fmt.Errorf("failed to insert proposal for match %d: %w", proposal.MatchID, err)
	}
	proposal.Active = true
	return nil
}

func (r *postgresProposalRepository) GetActiveByMatch(ctx context.Context, matchID int) (*models.MatchResultProposal, error) {
	query := `
		SELECT id, match_id, proposer_id, placements, active, expires_at, created_at
		FROM match_result_proposals
		WHERE match_id = $1 AND active = TRUE`

	proposal := &models.MatchResultProposal{}
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, matchID).Scan(
		&proposal.ID,
		&proposal.MatchID,
		&proposal.ProposerID,
		&raw,
		&proposal.Active,
		&proposal.ExpiresAt,
		&proposal.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to scan proposal for match %d: %w", matchID, err)
	}
	if proposal.Placements, err = placementsFromJSON(raw); err != nil {
		return nil, err
	}
	return proposal, nil
}

func (r *postgresProposalRepository) Deactivate(ctx context.Context, exec SQLExecutor, id int64) error {
	result, err := exec.ExecContext(ctx, `UPDATE match_result_proposals SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate proposal %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrProposalNotFound)
}

func (r *postgresProposalRepository) DeleteByMatch(ctx context.Context, exec SQLExecutor, matchID int) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM match_result_proposals WHERE match_id = $1 AND active = TRUE`, matchID); err != nil {
		return fmt.Errorf("failed to delete proposals for match %d: %w", matchID, err)
	}
	return nil
}

func (r *postgresProposalRepository) ListExpiredMatchIDs(ctx context.Context, cutoff time.Time, limit int) ([]int, error) {
	query := `
		SELECT match_id FROM match_result_proposals
		WHERE active = TRUE AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired proposals: %w", err)
	}
	defer rows.Close()

	matchIDs := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expired proposal row: %w", err)
		}
		matchIDs = append(matchIDs, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during expired proposal iteration: %w", err)
	}
	return matchIDs, nil
}

type postgresConfirmationRepository struct {
	db *sql.DB
}

func NewPostgresConfirmationRepository(db *sql.DB) ConfirmationRepository {
	return &postgresConfirmationRepository{db: db}
}

func (r *postgresConfirmationRepository) CreateBatch(ctx context.Context, exec SQLExecutor, confirmations []*models.MatchConfirmation) error {
	query := `
		INSERT INTO match_confirmations (match_id, player_id, status, responded_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	for _, c := range confirmations {
		err := exec.QueryRowContext(ctx, query, c.MatchID, c.PlayerID, c.Status, c.RespondedAt).Scan(&c.ID, &c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert confirmation (match %d, player %d): %w", c.MatchID, c.PlayerID, err)
		}
	}
	return nil
}

func (r *postgresConfirmationRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchConfirmation, error) {
	query := `
		SELECT id, match_id, player_id, status, responded_at, created_at
		FROM match_confirmations
		WHERE match_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query confirmations for match %d: %w", matchID, err)
	}
	defer rows.Close()

	confirmations := make([]*models.MatchConfirmation, 0)
	for rows.Next() {
		c := &models.MatchConfirmation{}
		if err := rows.Scan(&c.ID, &c.MatchID, &c.PlayerID, &c.Status, &c.RespondedAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan confirmation row: %w", err)
		}
		confirmations = append(confirmations, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during confirmation rows iteration: %w", err)
	}
	return confirmations, nil
}

func (r *postgresConfirmationRepository) UpdateStatusIfPending(ctx context.Context, exec SQLExecutor, matchID, playerID int, to models.ConfirmationStatus) error {
	query := `
		UPDATE match_confirmations
		SET status = $1, responded_at = now()
		WHERE match_id = $2 AND player_id = $3 AND status = 'pending'`

	result, err := exec.ExecContext(ctx, query, to, matchID, playerID)
	if err != nil {
		return fmt.Errorf("failed to update confirmation (match %d, player %d): %w", matchID, playerID, err)
	}
	return checkAffectedRows(result, ErrConfirmationNotPending)
}

func (r *postgresConfirmationRepository) DeleteByMatch(ctx context.Context, exec SQLExecutor, matchID int) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM match_confirmations WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("failed to delete confirmations for match %d: %w", matchID, err)
	}
	return nil
}
