package di

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"digest-orchestrator/internal/adapter/httpapi"
	"digest-orchestrator/internal/adapter/llmapi"
	"digest-orchestrator/internal/adapter/mailer"
	"digest-orchestrator/internal/adapter/repository"
	"digest-orchestrator/internal/adapter/sourcefeed"
	"digest-orchestrator/internal/adapter/trendsapi"
	"digest-orchestrator/internal/domain"
	"digest-orchestrator/internal/infra/config"
	"digest-orchestrator/internal/usecase"
	"digest-orchestrator/internal/worker"
)

// CronSpecsFromConfig maps configured cron expressions onto the scheduler's
// job slots.
func CronSpecsFromConfig(cfg *config.Config) worker.CronSpecs {
	return worker.CronSpecs{
		Ingest: cfg.IngestCron,
		Trends: cfg.TrendsCron,
		Sweep:  cfg.SweepCron,
	}
}

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Repositories
	ContentRepo  domain.ContentRepository
	SourceRepo   domain.SourceRepository
	TrendRepo    domain.TrendRepository
	DraftRepo    domain.DraftRepository
	DeliveryRepo domain.DeliveryRepository
	DispatchRepo domain.DispatchRepository

	// Usecases
	IngestUsecase    usecase.IngestContentUsecase
	TrendsUsecase    usecase.DetectTrendsUsecase
	DraftUsecase     usecase.GenerateDraftUsecase
	SendUsecase      usecase.SendDigestUsecase
	SweepUsecase     usecase.DispatchSweepUsecase
	ReconcileUsecase usecase.ReconcileEventUsecase

	// Entrypoints
	Handler   *httpapi.Handler
	Scheduler *worker.PipelineScheduler
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) *ApplicationComponents {
	// Repositories
	contentRepo := repository.NewContentRepository(pool)
	sourceRepo := repository.NewSourceRepository(pool)
	trendRepo := repository.NewTrendRepository(pool)
	styleRepo := repository.NewStyleRepository(pool)
	draftRepo := repository.NewDraftRepository(pool)
	deliveryRepo := repository.NewDeliveryRepository(pool)
	dispatchRepo := repository.NewDispatchRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	// External clients
	generator := llmapi.NewGeneratorClient(cfg.GeneratorURL, cfg.GeneratorModel, cfg.GenerationTimeout)
	popularity := trendsapi.NewPopularityClient(cfg.TrendsAPIURL, cfg.TrendsAPIKey, cfg.TrendsTimeout)
	emailClient := mailer.NewResendClient(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom, cfg.SendTimeout)

	// Source adapters
	adapters := map[domain.SourceKind]domain.SourceAdapter{
		domain.SourceKindRSS: sourcefeed.NewRSSAdapter(cfg.FeedUserAgent),
	}
	sanitizer := sourcefeed.NewHTMLSanitizer()

	// Usecases
	ingestUsecase := usecase.NewIngestContentUsecase(
		sourceRepo, contentRepo, adapters, sanitizer,
		cfg.FetchTimeout, cfg.FetchConcurrency, log,
	)
	trendsUsecase := usecase.NewDetectTrendsUsecase(
		contentRepo, trendRepo, popularity, txManager, cfg.DetectionWindow, log,
	)
	styleUsecase := usecase.NewAggregateStyleUsecase(styleRepo, log)
	draftUsecase := usecase.NewGenerateDraftUsecase(
		trendRepo, contentRepo, draftRepo, styleUsecase, generator, txManager,
		cfg.GenerationTimeout, cfg.GenerationTokens, log,
	)
	sendUsecase := usecase.NewSendDigestUsecase(
		deliveryRepo, draftRepo, emailClient, cfg.SendTimeout, log,
	)
	sweepUsecase := usecase.NewDispatchSweepUsecase(
		dispatchRepo, deliveryRepo, draftUsecase, sendUsecase,
		cfg.SweepInterval, cfg.SweepConcurrency, log,
	)
	reconcileUsecase := usecase.NewReconcileEventUsecase(
		deliveryRepo, []byte(cfg.WebhookSecret), log,
	)

	// Entrypoints
	handler := httpapi.NewHandler(
		ingestUsecase, trendsUsecase, draftUsecase, sweepUsecase, reconcileUsecase,
		trendRepo, draftRepo, deliveryRepo, dispatchRepo,
	)
	scheduler := worker.NewPipelineScheduler(ingestUsecase, trendsUsecase, sweepUsecase, log)

	return &ApplicationComponents{
		ContentRepo:      contentRepo,
		SourceRepo:       sourceRepo,
		TrendRepo:        trendRepo,
		DraftRepo:        draftRepo,
		DeliveryRepo:     deliveryRepo,
		DispatchRepo:     dispatchRepo,
		IngestUsecase:    ingestUsecase,
		TrendsUsecase:    trendsUsecase,
		DraftUsecase:     draftUsecase,
		SendUsecase:      sendUsecase,
		SweepUsecase:     sweepUsecase,
		ReconcileUsecase: reconcileUsecase,
		Handler:          handler,
		Scheduler:        scheduler,
	}
}
