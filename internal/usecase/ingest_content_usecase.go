package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"digest-orchestrator/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultFetchTimeout = 30 * time.Second

// BodySanitizer strips markup and unsafe content from a fetched item body.
type BodySanitizer interface {
	Sanitize(html string) string
}

// IngestContentUsecase pulls raw items from a user's active sources,
// normalizes and deduplicates them, and persists the new ones.
type IngestContentUsecase interface {
	Execute(ctx context.Context, userID uuid.UUID) (*domain.IngestResult, error)
	ExecuteAll(ctx context.Context) (*IngestAllResult, error)
}

// IngestAllResult aggregates one ingest pass across every user.
type IngestAllResult struct {
	UsersProcessed int `json:"users_processed"`
	NewItems       int `json:"new_items"`
	UsersFailed    int `json:"users_failed"`
}

type ingestContentUsecase struct {
	sourceRepo   domain.SourceRepository
	contentRepo  domain.ContentRepository
	adapters     map[domain.SourceKind]domain.SourceAdapter
	sanitizer    BodySanitizer
	fetchTimeout time.Duration
	concurrency  int
	logger       *slog.Logger
}

// NewIngestContentUsecase creates the ingest usecase. Adapters are keyed by
// source kind; sources whose kind has no adapter are reported as failures,
// not skipped silently.
func NewIngestContentUsecase(
	sourceRepo domain.SourceRepository,
	contentRepo domain.ContentRepository,
	adapters map[domain.SourceKind]domain.SourceAdapter,
	sanitizer BodySanitizer,
	fetchTimeout time.Duration,
	concurrency int,
	logger *slog.Logger,
) IngestContentUsecase {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &ingestContentUsecase{
		sourceRepo:   sourceRepo,
		contentRepo:  contentRepo,
		adapters:     adapters,
		sanitizer:    sanitizer,
		fetchTimeout: fetchTimeout,
		concurrency:  concurrency,
		logger:       logger,
	}
}

// Execute ingests all active sources of one user. One failing source never
// aborts ingestion for the others; failures are collected into the result.
func (u *ingestContentUsecase) Execute(ctx context.Context, userID uuid.UUID) (*domain.IngestResult, error) {
	sources, err := u.sourceRepo.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sources: %w", err)
	}

	result := &domain.IngestResult{}
	for _, source := range sources {
		newItems, skipped, srcErr := u.ingestSource(ctx, source)
		result.NewItems += newItems
		result.SkippedDuplicates += skipped

		now := time.Now()
		var errMsg *string
		if srcErr != nil {
			msg := srcErr.Error()
			errMsg = &msg
			result.SourceErrors = append(result.SourceErrors, domain.SourceError{
				SourceID: source.ID,
				Name:     source.Name,
				Message:  msg,
			})
			u.logger.Warn("source_fetch_failed",
				slog.String("source_id", source.ID.String()),
				slog.String("kind", string(source.Kind)),
				slog.String("error", msg))
		}
		if err := u.sourceRepo.RecordFetchOutcome(ctx, source.ID, now, errMsg); err != nil {
			u.logger.Error("failed to record fetch outcome",
				slog.String("source_id", source.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	u.logger.Info("ingest_completed",
		slog.String("user_id", userID.String()),
		slog.Int("new_items", result.NewItems),
		slog.Int("skipped_duplicates", result.SkippedDuplicates),
		slog.Int("source_errors", len(result.SourceErrors)))
	return result, nil
}

func (u *ingestContentUsecase) ingestSource(ctx context.Context, source domain.Source) (newItems, skipped int, err error) {
	adapter, ok := u.adapters[source.Kind]
	if !ok {
		return 0, 0, fmt.Errorf("no adapter registered for source kind %q", source.Kind)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, u.fetchTimeout)
	defer cancel()

	items, err := adapter.FetchRecent(fetchCtx, source)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch failed: %w", err)
	}

	now := time.Now()
	for _, raw := range items {
		normalized, err := domain.NormalizeURL(raw.URL)
		if err != nil {
			u.logger.Debug("skipping item with unusable url",
				slog.String("url", raw.URL),
				slog.String("error", err.Error()))
			continue
		}

		body := raw.Body
		if u.sanitizer != nil {
			body = u.sanitizer.Sanitize(body)
		}

		inserted, err := u.contentRepo.Insert(ctx, &domain.ContentItem{
			ID:          uuid.New(),
			SourceID:    source.ID,
			UserID:      source.UserID,
			URL:         normalized,
			Title:       raw.Title,
			Body:        body,
			Author:      raw.Author,
			PublishedAt: raw.PublishedAt,
			FetchedAt:   now,
		})
		if err != nil {
			return newItems, skipped, fmt.Errorf("failed to insert item: %w", err)
		}
		if inserted {
			newItems++
		} else {
			skipped++
		}
	}
	return newItems, skipped, nil
}

// ExecuteAll runs one ingest pass for every user with active sources, with
// bounded parallelism. Per-user failures are counted, never propagated.
func (u *ingestContentUsecase) ExecuteAll(ctx context.Context) (*IngestAllResult, error) {
	userIDs, err := u.sourceRepo.ListUserIDsWithActiveSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with active sources: %w", err)
	}

	var (
		g, gctx = errgroup.WithContext(ctx)
		results = make([]*domain.IngestResult, len(userIDs))
		failed  = make([]bool, len(userIDs))
	)
	g.SetLimit(u.concurrency)
	for i, userID := range userIDs {
		g.Go(func() error {
			res, err := u.Execute(gctx, userID)
			if err != nil {
				failed[i] = true
				u.logger.Error("ingest_user_failed",
					slog.String("user_id", userID.String()),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	all := &IngestAllResult{UsersProcessed: len(userIDs)}
	for i, res := range results {
		if failed[i] {
			all.UsersFailed++
			continue
		}
		if res != nil {
			all.NewItems += res.NewItems
		}
	}

	u.logger.Info("ingest_all_completed",
		slog.Int("users", all.UsersProcessed),
		slog.Int("new_items", all.NewItems),
		slog.Int("users_failed", all.UsersFailed))
	return all, nil
}
