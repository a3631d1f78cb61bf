package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"digest-orchestrator/internal/domain"

	"github.com/google/uuid"
)

const (
	defaultGenerationTimeout = 60 * time.Second
	defaultMaxTokens         = 2000
	fallbackModelName        = "template"
)

// GenerateDraftUsecase produces at most one current digest draft per user and
// period. Repeating a request with unchanged inputs returns the existing
// draft; regeneration happens only when forced.
type GenerateDraftUsecase interface {
	Execute(ctx context.Context, userID uuid.UUID, localDate time.Time, opts domain.GenerateOptions) (*domain.Draft, error)
}

type generateDraftUsecase struct {
	trendRepo   domain.TrendRepository
	contentRepo domain.ContentRepository
	draftRepo   domain.DraftRepository
	styleUC     AggregateStyleUsecase
	llm         domain.LLMClient
	txManager   domain.TransactionManager
	genTimeout  time.Duration
	maxTokens   int
	logger      *slog.Logger
}

func NewGenerateDraftUsecase(
	trendRepo domain.TrendRepository,
	contentRepo domain.ContentRepository,
	draftRepo domain.DraftRepository,
	styleUC AggregateStyleUsecase,
	llm domain.LLMClient,
	txManager domain.TransactionManager,
	genTimeout time.Duration,
	maxTokens int,
	logger *slog.Logger,
) GenerateDraftUsecase {
	if genTimeout <= 0 {
		genTimeout = defaultGenerationTimeout
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &generateDraftUsecase{
		trendRepo:   trendRepo,
		contentRepo: contentRepo,
		draftRepo:   draftRepo,
		styleUC:     styleUC,
		llm:         llm,
		txManager:   txManager,
		genTimeout:  genTimeout,
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

func (u *generateDraftUsecase) Execute(ctx context.Context, userID uuid.UUID, localDate time.Time, opts domain.GenerateOptions) (*domain.Draft, error) {
	if opts.MaxTrends <= 0 {
		opts.MaxTrends = defaultTopTrends
	}
	periodKey := domain.PeriodKey(userID, localDate)

	var trends []domain.Trend
	if opts.IncludeTrends {
		var err error
		trends, err = u.trendRepo.TopForUser(ctx, userID, opts.MaxTrends)
		if err != nil {
			return nil, fmt.Errorf("failed to load trends: %w", err)
		}
	}

	style, styleProfileID, err := u.styleUC.Execute(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve style: %w", err)
	}

	trendIDs := make([]uuid.UUID, len(trends))
	trendKeywords := make([]string, len(trends))
	for i, tr := range trends {
		trendIDs[i] = tr.ID
		trendKeywords[i] = tr.Keyword
	}
	inputsHash := domain.GenerationInputsHash(trendIDs, style.Version, opts)

	existing, err := u.draftRepo.GetCurrent(ctx, userID, periodKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load current draft: %w", err)
	}
	if existing != nil && !opts.ForceRegenerate {
		u.logger.Info("draft_generation_skipped",
			slog.String("user_id", userID.String()),
			slog.String("period_key", periodKey),
			slog.Bool("inputs_changed", existing.InputsHash != inputsHash))
		return existing, nil
	}

	items, err := u.contentRepo.ListRecent(ctx, userID, maxContentItemsInPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent content: %w", err)
	}

	started := time.Now()
	digest, mode, model := u.generate(ctx, trends, items, style, localDate)
	meta := domain.GenerationMeta{
		Model:            model,
		Mode:             mode,
		DurationSeconds:  time.Since(started).Seconds(),
		TrendsUsed:       trendKeywords,
		ContentItemsUsed: len(items),
		StyleProfileID:   styleProfileID,
	}

	draft := &domain.Draft{
		ID:         uuid.New(),
		UserID:     userID,
		PeriodKey:  periodKey,
		Subject:    digest.Subject,
		BodyHTML:   digest.BodyHTML,
		BodyText:   digest.BodyText,
		InputsHash: inputsHash,
		Status:     domain.DraftStatusReady,
		Current:    true,
		Meta:       meta,
		CreatedAt:  time.Now(),
	}

	var stored *domain.Draft
	if opts.ForceRegenerate {
		err = u.txManager.RunInTx(ctx, func(ctx context.Context) error {
			if err := u.draftRepo.SupersedeCurrent(ctx, userID, periodKey); err != nil {
				return err
			}
			stored, err = u.draftRepo.InsertCurrent(ctx, draft)
			return err
		})
	} else {
		// A concurrent generation may have inserted first; the repository
		// resolves the race by returning the winner.
		stored, err = u.draftRepo.InsertCurrent(ctx, draft)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store draft: %w", err)
	}

	u.logger.Info("draft_generated",
		slog.String("user_id", userID.String()),
		slog.String("period_key", periodKey),
		slog.String("mode", string(stored.Meta.Mode)),
		slog.Float64("duration_seconds", stored.Meta.DurationSeconds),
		slog.Int("trends_used", len(stored.Meta.TrendsUsed)))
	return stored, nil
}

// generate runs the provider once and falls back to the deterministic
// template on any failure. Generation never fails a scheduled dispatch.
func (u *generateDraftUsecase) generate(
	ctx context.Context,
	trends []domain.Trend,
	items []domain.ContentItem,
	style domain.StyleDescriptorV1,
	localDate time.Time,
) (*domain.GeneratedDigest, domain.GenerationMode, string) {
	prompt := buildDigestPrompt(trends, items, style, localDate)

	genCtx, cancel := context.WithTimeoutCause(ctx, u.genTimeout, domain.ErrGenerationTimeout)
	defer cancel()

	digest, err := u.llm.Generate(genCtx, prompt, u.maxTokens)
	if err != nil {
		u.logger.Warn("draft_generation_fallback",
			slog.String("error", err.Error()))
		return fallbackDigest(trends, items, localDate), domain.GenerationModeFallback, fallbackModelName
	}
	return digest, domain.GenerationModeLLM, u.llm.Model()
}
