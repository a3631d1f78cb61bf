package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"digest-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type styleRepository struct {
	pool *pgxpool.Pool
}

func NewStyleRepository(pool *pgxpool.Pool) domain.StyleRepository {
	return &styleRepository{pool: pool}
}

func (r *styleRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.StyleProfile, error) {
	query := `
		SELECT id, user_id, sample_text, descriptor, is_primary, analyzed_at
		FROM style_profiles
		WHERE user_id = $1
		ORDER BY analyzed_at ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list style profiles: %w", err)
	}
	defer rows.Close()

	var profiles []domain.StyleProfile
	for rows.Next() {
		profile, err := scanStyleProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate style profiles: %w", err)
	}
	return profiles, nil
}

func (r *styleRepository) GetPrimary(ctx context.Context, userID uuid.UUID) (*domain.StyleProfile, error) {
	query := `
		SELECT id, user_id, sample_text, descriptor, is_primary, analyzed_at
		FROM style_profiles
		WHERE user_id = $1 AND is_primary = TRUE
		LIMIT 1
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get primary style profile: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read primary style profile: %w", err)
		}
		return nil, nil
	}
	return scanStyleProfile(rows)
}

// scanStyleProfile reads one row. Descriptors are stored as loosely-typed
// jsonb written by the analyzer; MigrateDescriptor pins them to the current
// schema on the way out.
func scanStyleProfile(rows pgx.Rows) (*domain.StyleProfile, error) {
	var (
		profile        domain.StyleProfile
		descriptorJSON []byte
	)
	if err := rows.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.SampleText,
		&descriptorJSON,
		&profile.IsPrimary,
		&profile.AnalyzedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan style profile: %w", err)
	}

	var raw map[string]any
	if len(descriptorJSON) > 0 {
		if err := json.Unmarshal(descriptorJSON, &raw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal style descriptor: %w", err)
		}
	}
	profile.Descriptor = domain.MigrateDescriptor(raw)
	return &profile, nil
}
