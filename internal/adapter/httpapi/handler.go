package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"digest-orchestrator/internal/domain"
	"digest-orchestrator/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SignatureHeader carries the provider's HMAC over the raw webhook body.
const SignatureHeader = "Svix-Signature"

type Handler struct {
	ingestUC    usecase.IngestContentUsecase
	trendsUC    usecase.DetectTrendsUsecase
	draftUC     usecase.GenerateDraftUsecase
	sweepUC     usecase.DispatchSweepUsecase
	reconcileUC usecase.ReconcileEventUsecase
	trendRepo    domain.TrendRepository
	draftRepo    domain.DraftRepository
	deliveries   domain.DeliveryRepository
	dispatchRepo domain.DispatchRepository
}

func NewHandler(
	ingestUC usecase.IngestContentUsecase,
	trendsUC usecase.DetectTrendsUsecase,
	draftUC usecase.GenerateDraftUsecase,
	sweepUC usecase.DispatchSweepUsecase,
	reconcileUC usecase.ReconcileEventUsecase,
	trendRepo domain.TrendRepository,
	draftRepo domain.DraftRepository,
	deliveries domain.DeliveryRepository,
	dispatchRepo domain.DispatchRepository,
) *Handler {
	return &Handler{
		ingestUC:     ingestUC,
		trendsUC:     trendsUC,
		draftUC:      draftUC,
		sweepUC:      sweepUC,
		reconcileUC:  reconcileUC,
		trendRepo:    trendRepo,
		draftRepo:    draftRepo,
		deliveries:   deliveries,
		dispatchRepo: dispatchRepo,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/v1")
	v1.POST("/ingest/run", h.RunIngest)
	v1.POST("/trends/detect", h.DetectTrends)
	v1.GET("/trends", h.ListTrends)
	v1.POST("/drafts/generate", h.GenerateDraft)
	v1.GET("/drafts", h.ListDrafts)
	v1.POST("/dispatch/sweep", h.RunSweep)
	v1.GET("/deliveries/stats", h.DeliveryStats)

	e.POST("/webhooks/email-events", h.EmailEvents)
}

type userScopedRequest struct {
	UserID *uuid.UUID `json:"user_id"`
}

// Trigger one ingest pass, for one user or all of them
// (POST /v1/ingest/run)
func (h *Handler) RunIngest(ctx echo.Context) error {
	var req userScopedRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if req.UserID != nil {
		result, err := h.ingestUC.Execute(ctx.Request().Context(), *req.UserID)
		if err != nil {
			return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return ctx.JSON(http.StatusOK, result)
	}

	all, err := h.ingestUC.ExecuteAll(ctx.Request().Context())
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, all)
}

// Trigger a trend detection run
// (POST /v1/trends/detect)
func (h *Handler) DetectTrends(ctx echo.Context) error {
	var req userScopedRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if req.UserID != nil {
		trends, err := h.trendsUC.Execute(ctx.Request().Context(), *req.UserID)
		if err != nil {
			return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return ctx.JSON(http.StatusOK, map[string]interface{}{"trends": toTrendViews(trends)})
	}

	processed, err := h.trendsUC.ExecuteAll(ctx.Request().Context())
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, map[string]int{"users_processed": processed})
}

// Read the stored trend set
// (GET /v1/trends?user_id=&limit=)
func (h *Handler) ListTrends(ctx echo.Context) error {
	userID, err := uuid.Parse(ctx.QueryParam("user_id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
	}
	limit := intQueryParam(ctx, "limit", 10)

	trends, err := h.trendRepo.TopForUser(ctx.Request().Context(), userID, limit)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{"trends": toTrendViews(trends)})
}

type generateDraftRequest struct {
	UserID          uuid.UUID `json:"user_id"`
	PeriodDate      string    `json:"period_date"`
	ForceRegenerate bool      `json:"force_regenerate"`
	IncludeTrends   *bool     `json:"include_trends"`
	MaxTrends       int       `json:"max_trends"`
}

// Generate (or return) the draft for a period
// (POST /v1/drafts/generate)
func (h *Handler) GenerateDraft(ctx echo.Context) error {
	var req generateDraftRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.UserID == uuid.Nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing user_id"})
	}

	localDate := time.Now().UTC()
	if req.PeriodDate != "" {
		parsed, err := time.Parse("2006-01-02", req.PeriodDate)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid period_date, want YYYY-MM-DD"})
		}
		localDate = parsed
	} else {
		// Default to today in the user's delivery timezone so a manual
		// trigger targets the same period the sweep would dispatch.
		cfg, err := h.dispatchRepo.GetConfig(ctx.Request().Context(), req.UserID)
		if err != nil {
			return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		if cfg != nil {
			if loc, locErr := time.LoadLocation(cfg.Timezone); locErr == nil {
				localDate = time.Now().In(loc)
			}
		}
	}

	opts := domain.GenerateOptions{
		ForceRegenerate: req.ForceRegenerate,
		IncludeTrends:   true,
		MaxTrends:       req.MaxTrends,
	}
	if req.IncludeTrends != nil {
		opts.IncludeTrends = *req.IncludeTrends
	}

	draft, err := h.draftUC.Execute(ctx.Request().Context(), req.UserID, localDate, opts)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, toDraftView(draft))
}

// List a user's drafts, newest first
// (GET /v1/drafts?user_id=&limit=)
func (h *Handler) ListDrafts(ctx echo.Context) error {
	userID, err := uuid.Parse(ctx.QueryParam("user_id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
	}
	limit := intQueryParam(ctx, "limit", 20)

	drafts, err := h.draftRepo.ListByUser(ctx.Request().Context(), userID, limit)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	views := make([]draftView, 0, len(drafts))
	for i := range drafts {
		views = append(views, *toDraftView(&drafts[i]))
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{"drafts": views})
}

// Run one dispatch sweep tick immediately
// (POST /v1/dispatch/sweep)
func (h *Handler) RunSweep(ctx echo.Context) error {
	report, err := h.sweepUC.Tick(ctx.Request().Context(), time.Now())
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, report)
}

// Delivery engagement summary
// (GET /v1/deliveries/stats?user_id=)
func (h *Handler) DeliveryStats(ctx echo.Context) error {
	userID, err := uuid.Parse(ctx.QueryParam("user_id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
	}

	stats, err := h.deliveries.StatsByUser(ctx.Request().Context(), userID)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, stats)
}

// Email provider webhook sink
// (POST /webhooks/email-events)
func (h *Handler) EmailEvents(ctx echo.Context) error {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
	}

	result, err := h.reconcileUC.Execute(ctx.Request().Context(), payload, ctx.Request().Header.Get(SignatureHeader))
	if err != nil {
		if errors.Is(err, domain.ErrSignatureInvalid) {
			return ctx.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		}
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, result)
}

func intQueryParam(ctx echo.Context, name string, fallback int) int {
	v, err := strconv.Atoi(ctx.QueryParam(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
