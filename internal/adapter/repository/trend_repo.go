package repository

import (
	"context"
	"fmt"
	"time"

	"digest-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type trendRepository struct {
	pool *pgxpool.Pool
}

func NewTrendRepository(pool *pgxpool.Pool) domain.TrendRepository {
	return &trendRepository{pool: pool}
}

func (r *trendRepository) getExecutor(ctx context.Context) dbExecutor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// ReplaceForUser deletes the user's trend set and bulk-inserts the new one.
// Callers run this inside a transaction so readers never observe a half
// replaced set.
func (r *trendRepository) ReplaceForUser(ctx context.Context, userID uuid.UUID, trends []domain.Trend) error {
	exec := r.getExecutor(ctx)

	if _, err := exec.Exec(ctx, `DELETE FROM trends WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete prior trends: %w", err)
	}
	if len(trends) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(trends))
	for i, t := range trends {
		rows[i] = []interface{}{
			t.ID,
			t.UserID,
			t.Keyword,
			t.MentionCount,
			t.PopularityScore,
			t.Velocity,
			t.CompositeScore,
			t.DetectedAt,
			t.RelatedItemIDs,
		}
	}

	_, err := exec.CopyFrom(ctx,
		pgx.Identifier{"trends"},
		[]string{"id", "user_id", "keyword", "mention_count", "popularity_score", "velocity", "composite_score", "detected_at", "related_item_ids"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert trends: %w", err)
	}
	return nil
}

func (r *trendRepository) TopForUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Trend, error) {
	query := `
		SELECT id, user_id, keyword, mention_count, popularity_score, velocity, composite_score, detected_at, related_item_ids
		FROM trends
		WHERE user_id = $1
		ORDER BY composite_score DESC, mention_count DESC, keyword ASC
		LIMIT $2
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top trends: %w", err)
	}
	defer rows.Close()

	var trends []domain.Trend
	for rows.Next() {
		var t domain.Trend
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Keyword,
			&t.MentionCount,
			&t.PopularityScore,
			&t.Velocity,
			&t.CompositeScore,
			&t.DetectedAt,
			&t.RelatedItemIDs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trend: %w", err)
		}
		trends = append(trends, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trends: %w", err)
	}
	return trends, nil
}

func (r *trendRepository) ListUserIDsWithContent(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT user_id
		FROM content_items
		WHERE fetched_at >= $1
	`
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with content: %w", err)
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
