package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"digest-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dispatchRepository struct {
	pool *pgxpool.Pool
}

func NewDispatchRepository(pool *pgxpool.Pool) domain.DispatchRepository {
	return &dispatchRepository{pool: pool}
}

// ClaimMarker is the at-most-once guard for one (user, period). The primary
// key conflict makes concurrent claims resolve to exactly one winner.
func (r *dispatchRepository) ClaimMarker(ctx context.Context, userID uuid.UUID, periodKey string, at time.Time) (bool, error) {
	query := `
		INSERT INTO dispatch_markers (user_id, period_key, claimed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, period_key) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query, userID, periodKey, at)
	if err != nil {
		return false, fmt.Errorf("failed to claim dispatch marker: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *dispatchRepository) ReleaseMarker(ctx context.Context, userID uuid.UUID, periodKey string) error {
	query := `DELETE FROM dispatch_markers WHERE user_id = $1 AND period_key = $2`
	_, err := r.pool.Exec(ctx, query, userID, periodKey)
	if err != nil {
		return fmt.Errorf("failed to release dispatch marker: %w", err)
	}
	return nil
}

func (r *dispatchRepository) GetConfig(ctx context.Context, userID uuid.UUID) (*domain.DeliveryConfig, error) {
	query := `
		SELECT user_id, recipient, enabled, local_time, days_mask, timezone
		FROM delivery_configs
		WHERE user_id = $1
	`
	var cfg domain.DeliveryConfig
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&cfg.UserID, &cfg.Recipient, &cfg.Enabled, &cfg.LocalTime, &cfg.DaysMask, &cfg.Timezone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get delivery config: %w", err)
	}
	return &cfg, nil
}

// ListEnabledConfigs reads settings fresh so pauses and timezone changes take
// effect by the next sweep without a restart.
func (r *dispatchRepository) ListEnabledConfigs(ctx context.Context) ([]domain.DeliveryConfig, error) {
	query := `
		SELECT user_id, recipient, enabled, local_time, days_mask, timezone
		FROM delivery_configs
		WHERE enabled = TRUE
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery configs: %w", err)
	}
	defer rows.Close()

	var configs []domain.DeliveryConfig
	for rows.Next() {
		var cfg domain.DeliveryConfig
		if err := rows.Scan(
			&cfg.UserID,
			&cfg.Recipient,
			&cfg.Enabled,
			&cfg.LocalTime,
			&cfg.DaysMask,
			&cfg.Timezone,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery config: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delivery configs: %w", err)
	}
	return configs, nil
}
