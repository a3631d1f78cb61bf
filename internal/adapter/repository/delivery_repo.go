package repository

import (
	"context"
	"fmt"
	"time"

	"digest-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type deliveryRepository struct {
	pool *pgxpool.Pool
}

func NewDeliveryRepository(pool *pgxpool.Pool) domain.DeliveryRepository {
	return &deliveryRepository{pool: pool}
}

func (r *deliveryRepository) Create(ctx context.Context, record *domain.DeliveryRecord) error {
	query := `
		INSERT INTO deliveries (id, draft_id, user_id, recipient, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.DraftID,
		record.UserID,
		record.Recipient,
		record.Status,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create delivery record: %w", err)
	}
	return nil
}

func (r *deliveryRepository) MarkSent(ctx context.Context, recordID uuid.UUID, messageID string, sentAt time.Time) error {
	query := `
		UPDATE deliveries
		SET status = $1, provider_message_id = $2, sent_at = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`
	tag, err := r.pool.Exec(ctx, query,
		domain.DeliveryStatusSent, messageID, sentAt, time.Now(), recordID, domain.DeliveryStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark delivery sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: delivery %s not pending", domain.ErrDeliveryNotFound, recordID)
	}
	return nil
}

func (r *deliveryRepository) MarkFailed(ctx context.Context, recordID uuid.UUID, errMsg string) error {
	query := `
		UPDATE deliveries
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	_, err := r.pool.Exec(ctx, query,
		domain.DeliveryStatusFailed, errMsg, time.Now(), recordID, domain.DeliveryStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark delivery failed: %w", err)
	}
	return nil
}

// allowedPriorStatuses enumerates the states a record may be in for the
// target transition, mirroring DeliveryStatus.CanAdvanceTo. Keeping the
// predicate in the WHERE clause makes the update atomic under concurrent
// webhook deliveries.
func allowedPriorStatuses(target domain.DeliveryStatus) []domain.DeliveryStatus {
	switch target {
	case domain.DeliveryStatusSent:
		return []domain.DeliveryStatus{domain.DeliveryStatusPending}
	case domain.DeliveryStatusDelivered:
		return []domain.DeliveryStatus{domain.DeliveryStatusSent}
	case domain.DeliveryStatusOpened:
		return []domain.DeliveryStatus{domain.DeliveryStatusSent, domain.DeliveryStatusDelivered}
	case domain.DeliveryStatusClicked:
		return []domain.DeliveryStatus{domain.DeliveryStatusSent, domain.DeliveryStatusDelivered, domain.DeliveryStatusOpened}
	case domain.DeliveryStatusBounced, domain.DeliveryStatusComplained:
		return []domain.DeliveryStatus{domain.DeliveryStatusSent, domain.DeliveryStatusDelivered}
	case domain.DeliveryStatusFailed:
		return []domain.DeliveryStatus{domain.DeliveryStatusPending}
	default:
		return nil
	}
}

func timestampColumn(target domain.DeliveryStatus) string {
	switch target {
	case domain.DeliveryStatusDelivered:
		return "delivered_at"
	case domain.DeliveryStatusOpened:
		return "opened_at"
	case domain.DeliveryStatusClicked:
		return "clicked_at"
	default:
		return ""
	}
}

func (r *deliveryRepository) AdvanceStatus(ctx context.Context, providerMessageID string, status domain.DeliveryStatus, at time.Time) (bool, error) {
	allowed := allowedPriorStatuses(status)
	if len(allowed) == 0 {
		return false, nil
	}

	query := `
		UPDATE deliveries
		SET status = $1, updated_at = $2
		WHERE provider_message_id = $3 AND status = ANY($4)
	`
	if col := timestampColumn(status); col != "" {
		query = fmt.Sprintf(`
			UPDATE deliveries
			SET status = $1, updated_at = $2, %s = $5
			WHERE provider_message_id = $3 AND status = ANY($4)
		`, col)
	}

	args := []interface{}{status, time.Now(), providerMessageID, allowed}
	if timestampColumn(status) != "" {
		args = append(args, at)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to advance delivery status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *deliveryRepository) HasTerminalForPeriod(ctx context.Context, userID uuid.UUID, periodKey string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM deliveries d
			JOIN drafts dr ON dr.id = d.draft_id
			WHERE d.user_id = $1 AND dr.period_key = $2 AND d.status <> $3
		)
	`
	var exists bool
	err := r.pool.QueryRow(ctx, query, userID, periodKey, domain.DeliveryStatusFailed).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check period deliveries: %w", err)
	}
	return exists, nil
}

func (r *deliveryRepository) StatsByUser(ctx context.Context, userID uuid.UUID) (*domain.DeliveryStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status <> $2),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status IN ($3, $4, $5)),
			COUNT(*) FILTER (WHERE status IN ($4, $5)),
			COUNT(*) FILTER (WHERE status = $5),
			COUNT(*) FILTER (WHERE status = $6)
		FROM deliveries
		WHERE user_id = $1
	`
	stats := &domain.DeliveryStats{}
	err := r.pool.QueryRow(ctx, query,
		userID,
		domain.DeliveryStatusFailed,
		domain.DeliveryStatusDelivered,
		domain.DeliveryStatusOpened,
		domain.DeliveryStatusClicked,
		domain.DeliveryStatusBounced,
	).Scan(
		&stats.TotalSends,
		&stats.FailedSends,
		&stats.DeliveredCount,
		&stats.OpenedCount,
		&stats.ClickedCount,
		&stats.BouncedCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery stats: %w", err)
	}

	if stats.DeliveredCount > 0 {
		stats.OpenRate = float64(stats.OpenedCount) / float64(stats.DeliveredCount)
		stats.ClickRate = float64(stats.ClickedCount) / float64(stats.DeliveredCount)
	}
	return stats, nil
}
