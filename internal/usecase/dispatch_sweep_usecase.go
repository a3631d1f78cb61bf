package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"digest-orchestrator/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultSweepInterval = time.Hour

// SweepReport summarizes one dispatch sweep tick.
type SweepReport struct {
	SweptAt      time.Time      `json:"swept_at"`
	ConfigsSeen  int            `json:"configs_seen"`
	Due          int            `json:"due"`
	Dispatched   int            `json:"dispatched"`
	AlreadyDone  int            `json:"already_done"`
	MarkerLost   int            `json:"marker_lost"`
	Failures     []SweepFailure `json:"failures,omitempty"`
	FailureCount int            `json:"failure_count"`
}

// SweepFailure is one user whose dispatch did not complete this tick.
type SweepFailure struct {
	UserID  uuid.UUID `json:"user_id"`
	Message string    `json:"message"`
}

// DispatchSweepUsecase runs the hourly dispatch sweep. Each tick reads every
// enabled delivery config fresh, decides per user whether the tick covers
// their local send time, and dispatches at most once per user and period.
type DispatchSweepUsecase interface {
	Tick(ctx context.Context, now time.Time) (*SweepReport, error)
}

type dispatchSweepUsecase struct {
	dispatchRepo domain.DispatchRepository
	deliveryRepo domain.DeliveryRepository
	draftGen     GenerateDraftUsecase
	sender       SendDigestUsecase
	interval     time.Duration
	concurrency  int
	logger       *slog.Logger
}

func NewDispatchSweepUsecase(
	dispatchRepo domain.DispatchRepository,
	deliveryRepo domain.DeliveryRepository,
	draftGen GenerateDraftUsecase,
	sender SendDigestUsecase,
	interval time.Duration,
	concurrency int,
	logger *slog.Logger,
) DispatchSweepUsecase {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &dispatchSweepUsecase{
		dispatchRepo: dispatchRepo,
		deliveryRepo: deliveryRepo,
		draftGen:     draftGen,
		sender:       sender,
		interval:     interval,
		concurrency:  concurrency,
		logger:       logger,
	}
}

func (u *dispatchSweepUsecase) Tick(ctx context.Context, now time.Time) (*SweepReport, error) {
	now = now.UTC()
	configs, err := u.dispatchRepo.ListEnabledConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery configs: %w", err)
	}

	report := &SweepReport{SweptAt: now, ConfigsSeen: len(configs)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for _, cfg := range configs {
		g.Go(func() error {
			outcome, err := u.processConfig(gctx, cfg, now)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeNotDue:
			case outcomeDispatched:
				report.Due++
				report.Dispatched++
			case outcomeAlreadyDone:
				report.Due++
				report.AlreadyDone++
			case outcomeMarkerLost:
				report.Due++
				report.MarkerLost++
			case outcomeFailed:
				report.Due++
				report.Failures = append(report.Failures, SweepFailure{
					UserID:  cfg.UserID,
					Message: err.Error(),
				})
			}
			return nil
		})
	}
	_ = g.Wait()
	report.FailureCount = len(report.Failures)

	u.logger.Info("dispatch_sweep_completed",
		slog.Time("swept_at", now),
		slog.Int("configs", report.ConfigsSeen),
		slog.Int("due", report.Due),
		slog.Int("dispatched", report.Dispatched),
		slog.Int("already_done", report.AlreadyDone),
		slog.Int("marker_lost", report.MarkerLost),
		slog.Int("failures", report.FailureCount))
	return report, nil
}

type sweepOutcome int

const (
	outcomeNotDue sweepOutcome = iota
	outcomeDispatched
	outcomeAlreadyDone
	outcomeMarkerLost
	outcomeFailed
)

func (u *dispatchSweepUsecase) processConfig(ctx context.Context, cfg domain.DeliveryConfig, now time.Time) (sweepOutcome, error) {
	localNow, due, err := cfg.DueAt(now, u.interval)
	if err != nil {
		// Broken timezone or local time in one config must not stall the
		// sweep for everyone else.
		u.logger.Warn("delivery_config_invalid",
			slog.String("user_id", cfg.UserID.String()),
			slog.String("error", err.Error()))
		return outcomeFailed, err
	}
	if !due {
		return outcomeNotDue, nil
	}

	periodKey := domain.PeriodKey(cfg.UserID, localNow)

	done, err := u.deliveryRepo.HasTerminalForPeriod(ctx, cfg.UserID, periodKey)
	if err != nil {
		return outcomeFailed, fmt.Errorf("failed to check period deliveries: %w", err)
	}
	if done {
		return outcomeAlreadyDone, nil
	}

	// Claim before sending. If the claim is lost, another sweep owns this
	// period; if we crash after claiming, the period stays claimed and is
	// never double-sent.
	claimed, err := u.dispatchRepo.ClaimMarker(ctx, cfg.UserID, periodKey, now)
	if err != nil {
		return outcomeFailed, fmt.Errorf("failed to claim dispatch marker: %w", err)
	}
	if !claimed {
		return outcomeMarkerLost, nil
	}

	draft, err := u.draftGen.Execute(ctx, cfg.UserID, localNow, domain.GenerateOptions{IncludeTrends: true})
	if err != nil {
		u.releaseMarker(ctx, cfg.UserID, periodKey)
		return outcomeFailed, fmt.Errorf("failed to generate draft: %w", err)
	}

	if _, err := u.sender.Execute(ctx, draft, cfg.Recipient); err != nil {
		// The provider rejected the send, so nothing went out. Release the
		// claim and let the next covering sweep retry.
		u.releaseMarker(ctx, cfg.UserID, periodKey)
		return outcomeFailed, err
	}
	return outcomeDispatched, nil
}

func (u *dispatchSweepUsecase) releaseMarker(ctx context.Context, userID uuid.UUID, periodKey string) {
	if err := u.dispatchRepo.ReleaseMarker(ctx, userID, periodKey); err != nil {
		u.logger.Error("failed to release dispatch marker",
			slog.String("user_id", userID.String()),
			slog.String("period_key", periodKey),
			slog.String("error", err.Error()))
	}
}
