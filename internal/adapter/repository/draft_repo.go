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

type draftRepository struct {
	pool *pgxpool.Pool
}

func NewDraftRepository(pool *pgxpool.Pool) domain.DraftRepository {
	return &draftRepository{pool: pool}
}

func (r *draftRepository) getExecutor(ctx context.Context) dbExecutor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const draftColumns = `id, user_id, period_key, subject, body_html, body_text, inputs_hash, status, is_current, generation_meta, created_at`

func (r *draftRepository) GetCurrent(ctx context.Context, userID uuid.UUID, periodKey string) (*domain.Draft, error) {
	query := `
		SELECT ` + draftColumns + `
		FROM drafts
		WHERE user_id = $1 AND period_key = $2 AND is_current = TRUE
		LIMIT 1
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, userID, periodKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get current draft: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read current draft: %w", err)
		}
		return nil, nil
	}
	return scanDraft(rows)
}

// InsertCurrent leans on the partial unique index over (user_id, period_key)
// WHERE is_current. A concurrent generation that got there first wins; this
// insert becomes a no-op and the winner is read back.
func (r *draftRepository) InsertCurrent(ctx context.Context, draft *domain.Draft) (*domain.Draft, error) {
	metaJSON, err := json.Marshal(draft.Meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation meta: %w", err)
	}

	query := `
		INSERT INTO drafts (id, user_id, period_key, subject, body_html, body_text, inputs_hash, status, is_current, generation_meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $10)
		ON CONFLICT (user_id, period_key) WHERE is_current DO NOTHING
	`
	tag, err := r.getExecutor(ctx).Exec(ctx, query,
		draft.ID,
		draft.UserID,
		draft.PeriodKey,
		draft.Subject,
		draft.BodyHTML,
		draft.BodyText,
		draft.InputsHash,
		draft.Status,
		metaJSON,
		draft.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert draft: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return draft, nil
	}

	winner, err := r.GetCurrent(ctx, draft.UserID, draft.PeriodKey)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, fmt.Errorf("draft insert lost the race but no current draft exists for period %s", draft.PeriodKey)
	}
	return winner, nil
}

func (r *draftRepository) SupersedeCurrent(ctx context.Context, userID uuid.UUID, periodKey string) error {
	query := `
		UPDATE drafts
		SET is_current = FALSE, status = $1
		WHERE user_id = $2 AND period_key = $3 AND is_current = TRUE
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query, domain.DraftStatusArchived, userID, periodKey)
	if err != nil {
		return fmt.Errorf("failed to supersede current draft: %w", err)
	}
	return nil
}

func (r *draftRepository) MarkDispatched(ctx context.Context, draftID uuid.UUID) error {
	query := `
		UPDATE drafts
		SET status = $1
		WHERE id = $2 AND status = $3
	`
	tag, err := r.getExecutor(ctx).Exec(ctx, query, domain.DraftStatusDispatched, draftID, domain.DraftStatusReady)
	if err != nil {
		return fmt.Errorf("failed to mark draft dispatched: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: draft %s not in ready state", domain.ErrDraftNotFound, draftID)
	}
	return nil
}

func (r *draftRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Draft, error) {
	query := `
		SELECT ` + draftColumns + `
		FROM drafts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []domain.Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, *draft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drafts: %w", err)
	}
	return drafts, nil
}

func scanDraft(rows pgx.Rows) (*domain.Draft, error) {
	var (
		draft    domain.Draft
		metaJSON []byte
	)
	if err := rows.Scan(
		&draft.ID,
		&draft.UserID,
		&draft.PeriodKey,
		&draft.Subject,
		&draft.BodyHTML,
		&draft.BodyText,
		&draft.InputsHash,
		&draft.Status,
		&draft.Current,
		&metaJSON,
		&draft.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan draft: %w", err)
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &draft.Meta); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generation meta: %w", err)
		}
	}
	return &draft, nil
}
