package repository

import (
	"context"
	"fmt"
	"time"

	"digest-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type sourceRepository struct {
	pool *pgxpool.Pool
}

func NewSourceRepository(pool *pgxpool.Pool) domain.SourceRepository {
	return &sourceRepository{pool: pool}
}

func (r *sourceRepository) ListActive(ctx context.Context, userID uuid.UUID) ([]domain.Source, error) {
	query := `
		SELECT id, user_id, kind, name, url, active, last_fetched_at, last_error
		FROM sources
		WHERE user_id = $1 AND active = TRUE
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var s domain.Source
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Kind,
			&s.Name,
			&s.URL,
			&s.Active,
			&s.LastFetchedAt,
			&s.LastError,
		); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}
	return sources, nil
}

func (r *sourceRepository) ListUserIDsWithActiveSources(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT user_id FROM sources WHERE active = TRUE`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with active sources: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user ids: %w", err)
	}
	return ids, nil
}

func (r *sourceRepository) RecordFetchOutcome(ctx context.Context, sourceID uuid.UUID, fetchedAt time.Time, fetchErr *string) error {
	query := `
		UPDATE sources
		SET last_fetched_at = $1, last_error = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := r.pool.Exec(ctx, query, fetchedAt, fetchErr, time.Now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to record fetch outcome: %w", err)
	}
	return nil
}
