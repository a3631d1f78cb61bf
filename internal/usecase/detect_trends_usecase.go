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

const (
	defaultDetectionWindow = 7 * 24 * time.Hour
	defaultMinMentions     = 2
	defaultTopTrends       = 3
	velocityRecentWindow   = 3 * 24 * time.Hour
)

// DetectTrendsUsecase runs one trend detection pass: extract keyword
// candidates from the recent content window, enrich them with external
// popularity, score, and replace the user's stored trend set.
type DetectTrendsUsecase interface {
	Execute(ctx context.Context, userID uuid.UUID) ([]domain.Trend, error)
	ExecuteAll(ctx context.Context) (int, error)
}

type detectTrendsUsecase struct {
	contentRepo domain.ContentRepository
	trendRepo   domain.TrendRepository
	popularity  domain.PopularityProvider
	txManager   domain.TransactionManager
	window      time.Duration
	minMentions int
	topN        int
	concurrency int
	logger      *slog.Logger
}

func NewDetectTrendsUsecase(
	contentRepo domain.ContentRepository,
	trendRepo domain.TrendRepository,
	popularity domain.PopularityProvider,
	txManager domain.TransactionManager,
	window time.Duration,
	logger *slog.Logger,
) DetectTrendsUsecase {
	if window <= 0 {
		window = defaultDetectionWindow
	}
	return &detectTrendsUsecase{
		contentRepo: contentRepo,
		trendRepo:   trendRepo,
		popularity:  popularity,
		txManager:   txManager,
		window:      window,
		minMentions: defaultMinMentions,
		topN:        defaultTopTrends,
		concurrency: 4,
		logger:      logger,
	}
}

// Execute detects trends for one user and returns the top scored ones.
// A popularity provider outage degrades the run (popularity scored as 0)
// instead of failing it.
func (u *detectTrendsUsecase) Execute(ctx context.Context, userID uuid.UUID) ([]domain.Trend, error) {
	now := time.Now()
	items, err := u.contentRepo.ListSince(ctx, userID, now.Add(-u.window))
	if err != nil {
		return nil, fmt.Errorf("failed to list recent content: %w", err)
	}

	candidates := domain.CollectCandidates(items, u.minMentions)
	if len(candidates) == 0 {
		u.logger.Info("trend_detection_empty",
			slog.String("user_id", userID.String()),
			slog.Int("items", len(items)))
		if err := u.trendRepo.ReplaceForUser(ctx, userID, nil); err != nil {
			return nil, fmt.Errorf("failed to clear trends: %w", err)
		}
		return nil, nil
	}

	popularity := u.fetchPopularity(ctx, userID, candidates)

	itemTimes := make(map[uuid.UUID]time.Time, len(items))
	for _, item := range items {
		itemTimes[item.ID] = item.PublishedAt
	}
	recentCutoff := now.Add(-velocityRecentWindow)

	scoredInput := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		var recent, prior int
		for _, id := range c.ItemIDs {
			if itemTimes[id].Before(recentCutoff) {
				prior++
			} else {
				recent++
			}
		}
		scoredInput = append(scoredInput, domain.ScoredCandidate{
			KeywordCandidate: c,
			PopularityScore:  popularity[c.Keyword],
			Velocity:         domain.Velocity(recent, prior),
		})
	}

	scored := domain.ScoreCandidates(scoredInput)
	trends := make([]domain.Trend, 0, len(scored))
	for _, s := range scored {
		trends = append(trends, domain.Trend{
			ID:              uuid.New(),
			UserID:          userID,
			Keyword:         s.Keyword,
			MentionCount:    s.Mentions,
			PopularityScore: s.PopularityScore,
			Velocity:        s.Velocity,
			CompositeScore:  s.CompositeScore,
			DetectedAt:      now,
			RelatedItemIDs:  s.ItemIDs,
		})
	}

	err = u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		return u.trendRepo.ReplaceForUser(ctx, userID, trends)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace trends: %w", err)
	}

	u.logger.Info("trend_detection_completed",
		slog.String("user_id", userID.String()),
		slog.Int("items", len(items)),
		slog.Int("candidates", len(candidates)),
		slog.Int("trends", len(trends)))

	if len(trends) > u.topN {
		trends = trends[:u.topN]
	}
	return trends, nil
}

func (u *detectTrendsUsecase) fetchPopularity(ctx context.Context, userID uuid.UUID, candidates []domain.KeywordCandidate) map[string]float64 {
	keywords := make([]string, 0, len(candidates))
	for _, c := range candidates {
		keywords = append(keywords, c.Keyword)
	}
	scores, err := u.popularity.Scores(ctx, keywords)
	if err != nil {
		u.logger.Warn("popularity_provider_unavailable",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return map[string]float64{}
	}
	return scores
}

// ExecuteAll runs detection for every user with content in the window and
// returns how many users were processed successfully.
func (u *detectTrendsUsecase) ExecuteAll(ctx context.Context) (int, error) {
	userIDs, err := u.trendRepo.ListUserIDsWithContent(ctx, time.Now().Add(-u.window))
	if err != nil {
		return 0, fmt.Errorf("failed to list users with content: %w", err)
	}

	var (
		g, gctx = errgroup.WithContext(ctx)
		ok      = make([]bool, len(userIDs))
	)
	g.SetLimit(u.concurrency)
	for i, userID := range userIDs {
		g.Go(func() error {
			if _, err := u.Execute(gctx, userID); err != nil {
				u.logger.Error("trend_detection_user_failed",
					slog.String("user_id", userID.String()),
					slog.String("error", err.Error()))
				return nil
			}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	processed := 0
	for _, v := range ok {
		if v {
			processed++
		}
	}
	u.logger.Info("trend_detection_all_completed",
		slog.Int("users", len(userIDs)),
		slog.Int("processed", processed))
	return processed, nil
}
