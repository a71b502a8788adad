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
	ErrClusterNotFound = errors.New("cluster not found")
	ErrEventNotFound   = errors.New("event not found")
)

type ClusterRepository interface {
	Create(ctx context.Context, exec SQLExecutor, cluster *models.Cluster) error
	GetByID(ctx context.Context, id int) (*models.Cluster, error)
	List(ctx context.Context) ([]*models.Cluster, error)
}

type EventRepository interface {
	Create(ctx context.Context, exec SQLExecutor, event *models.Event) error
	GetByID(ctx context.Context, id int) (*models.Event, error)
	ListByCluster(ctx context.Context, clusterID int) ([]*models.Event, error)
	List(ctx context.Context) ([]*models.Event, error)
	// GetForUpdate takes a row-level lock on the event for the duration
	// of the transaction, serializing concurrent score submissions.
	GetForUpdate(ctx context.Context, tx SQLExecutor, id int) (*models.Event, error)
	UpdateScoreStats(ctx context.Context, exec SQLExecutor, id int, count int64, mean, m2 float64) error
	ResetScoreStats(ctx context.Context, exec SQLExecutor, eventID *int) error
}

type postgresClusterRepository struct {
	db *sql.DB
}

func NewPostgresClusterRepository(db *sql.DB) ClusterRepository {
	return &postgresClusterRepository{db: db}
}

func (r *postgresClusterRepository) Create(ctx context.Context, exec SQLExecutor, cluster *models.Cluster) error {
	query := `INSERT INTO clusters (name) VALUES ($1) RETURNING id, created_at`
	if err := exec.QueryRowContext(ctx, query, cluster.Name).Scan(&cluster.ID, &cluster.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert cluster: %w", err)
	}
	return nil
}

func (r *postgresClusterRepository) GetByID(ctx context.Context, id int) (*models.Cluster, error) {
	cluster := &models.Cluster{}
	query := `SELECT id, name, created_at FROM clusters WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&cluster.ID, &cluster.Name, &cluster.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClusterNotFound
		}
		return nil, fmt.Errorf("failed to scan cluster %d: %w", id, err)
	}
	return cluster, nil
}

func (r *postgresClusterRepository) List(ctx context.Context) ([]*models.Cluster, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM clusters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clusters: %w", err)
	}
	defer rows.Close()

	clusters := make([]*models.Cluster, 0)
	for rows.Next() {
		cluster := &models.Cluster{}
		if err := rows.Scan(&cluster.ID, &cluster.Name, &cluster.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cluster row: %w", err)
		}
		clusters = append(clusters, cluster)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during cluster rows iteration: %w", err)
	}
	return clusters, nil
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

const eventColumns = `id, cluster_id, name, supported_formats, min_players, max_players,
	score_direction, score_count, score_mean, score_m2, created_at`

func (r *postgresEventRepository) Create(ctx context.Context, exec SQLExecutor, event *models.Event) error {
	query := `
		INSERT INTO events (cluster_id, name, supported_formats, min_players, max_players, score_direction)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		event.ClusterID,
		event.Name,
		pq.Array(event.SupportedFormats),
		event.MinPlayers,
		event.MaxPlayers,
		event.ScoreDirection,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "events_cluster_id_fkey" {
			return ErrClusterNotFound
		}
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	return scanEvent(row)
}

func (r *postgresEventRepository) GetForUpdate(ctx context.Context, tx SQLExecutor, id int) (*models.Event, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
	return scanEvent(row)
}

func scanEvent(row *sql.Row) (*models.Event, error) {
	event := &models.Event{}
	var formats pq.StringArray
	err := row.Scan(
		&event.ID,
		&event.ClusterID,
		&event.Name,
		&formats,
		&event.MinPlayers,
		&event.MaxPlayers,
		&event.ScoreDirection,
		&event.ScoreCount,
		&event.ScoreMean,
		&event.ScoreM2,
		&event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	event.SupportedFormats = formats
	return event, nil
}

func (r *postgresEventRepository) ListByCluster(ctx context.Context, clusterID int) ([]*models.Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events WHERE cluster_id = $1 ORDER BY id`, clusterID)
}

func (r *postgresEventRepository) List(ctx context.Context) ([]*models.Event, error) {
	return r.list(ctx, `SELECT ` + eventColumns + ` FROM events ORDER BY id`)
}

func (r *postgresEventRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		event := &models.Event{}
		var formats pq.StringArray
		if err := rows.Scan(
			&event.ID,
			&event.ClusterID,
			&event.Name,
			&formats,
			&event.MinPlayers,
			&event.MaxPlayers,
			&event.ScoreDirection,
			&event.ScoreCount,
			&event.ScoreMean,
			&event.ScoreM2,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		event.SupportedFormats = formats
		events = append(events, event)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during event rows iteration: %w", err)
	}
	return events, nil
}

func (r *postgresEventRepository) UpdateScoreStats(ctx context.Context, exec SQLExecutor, id int, count int64, mean, m2 float64) error {
	query := `UPDATE events SET score_count = $1, score_mean = $2, score_m2 = $3 WHERE id = $4`
	result, err := exec.ExecContext(ctx, query, count, mean, m2, id)
	if err != nil {
		return fmt.Errorf("failed to update score stats for event %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) ResetScoreStats(ctx context.Context, exec SQLExecutor, eventID *int) error {
	if eventID != nil {
		query := `UPDATE events SET score_count = 0, score_mean = 0, score_m2 = 0 WHERE id = $1`
		result, err := exec.ExecContext(ctx, query, *eventID)
		if err != nil {
			return fmt.Errorf("failed to reset score stats for event %d: %w", *eventID, err)
		}
		return checkAffectedRows(result, ErrEventNotFound)
	}
	if _, err := exec.ExecContext(ctx, `UPDATE events SET score_count = 0, score_mean = 0, score_m2 = 0`); err != nil {
		return fmt.Errorf("failed to reset score stats: %w", err)
	}
	return nil
}
