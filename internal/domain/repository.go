package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ContentRepository persists deduplicated content items.
type ContentRepository interface {
	// Insert stores the item unless (user_id, url) already exists.
	// Returns false with a nil error when the item was a duplicate.
	Insert(ctx context.Context, item *ContentItem) (bool, error)

	// ListSince returns a user's items fetched at or after since,
	// newest first.
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]ContentItem, error)

	// ListRecent returns up to limit of the user's newest items.
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]ContentItem, error)
}

// SourceRepository reads source configuration and records fetch outcomes.
// Source CRUD itself lives outside the orchestration core.
type SourceRepository interface {
	ListActive(ctx context.Context, userID uuid.UUID) ([]Source, error)

	// ListUserIDsWithActiveSources returns every user an ingest pass
	// should cover.
	ListUserIDsWithActiveSources(ctx context.Context) ([]uuid.UUID, error)

	// RecordFetchOutcome updates last_fetched_at and last_error for a source.
	RecordFetchOutcome(ctx context.Context, sourceID uuid.UUID, fetchedAt time.Time, fetchErr *string) error
}

// TrendRepository persists scored trend sets.
type TrendRepository interface {
	// ReplaceForUser swaps the user's entire trend set atomically.
	ReplaceForUser(ctx context.Context, userID uuid.UUID, trends []Trend) error

	// TopForUser returns the user's highest-scoring trends, newest
	// detection first.
	TopForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Trend, error)

	// ListUserIDsWithContent returns users with content fetched at or
	// after since, bounding a detection pass to the configured window.
	ListUserIDsWithContent(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

// StyleRepository reads analyzed style profiles.
type StyleRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]StyleProfile, error)
	GetPrimary(ctx context.Context, userID uuid.UUID) (*StyleProfile, error)
}

// DraftRepository persists digest drafts with the idempotency-key constraint.
type DraftRepository interface {
	// GetCurrent returns the current draft for (user, period), or nil.
	GetCurrent(ctx context.Context, userID uuid.UUID, periodKey string) (*Draft, error)

	// InsertCurrent inserts draft as current for its period. When another
	// current draft already exists for (user, period) the insert loses the
	// race, no row is written, and the existing winner is returned instead.
	InsertCurrent(ctx context.Context, draft *Draft) (*Draft, error)

	// SupersedeCurrent archives the current draft for (user, period), if any.
	SupersedeCurrent(ctx context.Context, userID uuid.UUID, periodKey string) error

	// MarkDispatched moves a ready draft to dispatched.
	MarkDispatched(ctx context.Context, draftID uuid.UUID) error

	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Draft, error)
}

// DeliveryRepository persists delivery records with atomic conditional
// status updates.
type DeliveryRepository interface {
	Create(ctx context.Context, record *DeliveryRecord) error

	// MarkSent transitions pending→sent and stores the provider message ID.
	MarkSent(ctx context.Context, recordID uuid.UUID, messageID string, sentAt time.Time) error

	// MarkFailed transitions pending→failed with the provider error.
	MarkFailed(ctx context.Context, recordID uuid.UUID, errMsg string) error

	// AdvanceStatus applies a forward-only transition keyed by provider
	// message ID as a single conditional write. Returns false with nil
	// error when no record matched or the record was already at or past
	// the target state (an idempotent no-op, not an error).
	AdvanceStatus(ctx context.Context, providerMessageID string, status DeliveryStatus, at time.Time) (bool, error)

	// HasTerminalForPeriod reports whether the user already has a
	// non-failed delivery record for the period's draft.
	HasTerminalForPeriod(ctx context.Context, userID uuid.UUID, periodKey string) (bool, error)

	StatsByUser(ctx context.Context, userID uuid.UUID) (*DeliveryStats, error)
}

// DispatchRepository owns the per-user, per-period dispatch markers and the
// fresh read of delivery settings each sweep.
type DispatchRepository interface {
	// ClaimMarker atomically claims (user, period). Returns false when the
	// marker already exists, i.e. another sweep got there first.
	ClaimMarker(ctx context.Context, userID uuid.UUID, periodKey string, at time.Time) (bool, error)

	// ReleaseMarker removes a claim so the next sweep may retry, used only
	// when the send failed before reaching the provider.
	ReleaseMarker(ctx context.Context, userID uuid.UUID, periodKey string) error

	// ListEnabledConfigs reads every enabled user's delivery settings.
	ListEnabledConfigs(ctx context.Context) ([]DeliveryConfig, error)

	// GetConfig returns one user's delivery settings, or nil without
	// error when the user has none.
	GetConfig(ctx context.Context, userID uuid.UUID) (*DeliveryConfig, error)
}

// TransactionManager runs a function within a database transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
