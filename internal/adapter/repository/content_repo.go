package repository

import (
	"context"
	"fmt"
	"time"

	"digest-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contentRepository struct {
	pool *pgxpool.Pool
}

func NewContentRepository(pool *pgxpool.Pool) domain.ContentRepository {
	return &contentRepository{pool: pool}
}

type dbExecutor interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *contentRepository) getExecutor(ctx context.Context) dbExecutor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Insert relies on the (user_id, url) unique constraint for deduplication.
// Losing to an existing row is the expected path for already-seen URLs.
func (r *contentRepository) Insert(ctx context.Context, item *domain.ContentItem) (bool, error) {
	query := `
		INSERT INTO content_items (id, source_id, user_id, url, title, body, author, published_at, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, url) DO NOTHING
	`
	tag, err := r.getExecutor(ctx).Exec(ctx, query,
		item.ID,
		item.SourceID,
		item.UserID,
		item.URL,
		item.Title,
		item.Body,
		item.Author,
		item.PublishedAt,
		item.FetchedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert content item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *contentRepository) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.ContentItem, error) {
	query := `
		SELECT id, source_id, user_id, url, title, body, author, published_at, fetched_at
		FROM content_items
		WHERE user_id = $1 AND fetched_at >= $2
		ORDER BY published_at DESC
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list content since %s: %w", since.Format(time.RFC3339), err)
	}
	defer rows.Close()
	return scanContentItems(rows)
}

func (r *contentRepository) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ContentItem, error) {
	query := `
		SELECT id, source_id, user_id, url, title, body, author, published_at, fetched_at
		FROM content_items
		WHERE user_id = $1
		ORDER BY published_at DESC
		LIMIT $2
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent content: %w", err)
	}
	defer rows.Close()
	return scanContentItems(rows)
}

func scanContentItems(rows pgx.Rows) ([]domain.ContentItem, error) {
	var items []domain.ContentItem
	for rows.Next() {
		var item domain.ContentItem
		if err := rows.Scan(
			&item.ID,
			&item.SourceID,
			&item.UserID,
			&item.URL,
			&item.Title,
			&item.Body,
			&item.Author,
			&item.PublishedAt,
			&item.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan content item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate content items: %w", err)
	}
	return items, nil
}
