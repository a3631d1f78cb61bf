package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"digest-orchestrator/internal/usecase"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 10 * time.Minute

// CronSpecs carries the five-field cron expressions (UTC) for the recurring
// pipeline jobs.
type CronSpecs struct {
	Ingest string
	Trends string
	Sweep  string
}

// PipelineScheduler drives the recurring pipeline: content ingestion, trend
// detection, draft pre-generation, and the hourly dispatch sweep. One run per
// job at a time; an overrunning job skips its next slot instead of stacking.
type PipelineScheduler struct {
	ingestUC usecase.IngestContentUsecase
	trendsUC usecase.DetectTrendsUsecase
	sweepUC  usecase.DispatchSweepUsecase
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewPipelineScheduler(
	ingestUC usecase.IngestContentUsecase,
	trendsUC usecase.DetectTrendsUsecase,
	sweepUC usecase.DispatchSweepUsecase,
	logger *slog.Logger,
) *PipelineScheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &PipelineScheduler{
		ingestUC: ingestUC,
		trendsUC: trendsUC,
		sweepUC:  sweepUC,
		cron:     c,
		logger:   logger,
	}
}

// Register wires the recurring jobs. Draft generation has no standalone job:
// the sweep generates drafts on demand so content is as fresh as possible at
// send time, and a failed pre-generation could never block a dispatch.
func (s *PipelineScheduler) Register(specs CronSpecs) error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{"ingest", specs.Ingest, s.runIngest},
		{"trends", specs.Trends, s.runTrends},
		{"sweep", specs.Sweep, s.runSweep},
	}

	for _, job := range jobs {
		run := job.run
		name := job.name
		_, err := s.cron.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			s.logger.Info("scheduled_job_started", slog.String("job", name))
			run(ctx)
		})
		if err != nil {
			return fmt.Errorf("failed to register %s job (%q): %w", name, job.spec, err)
		}
	}
	return nil
}

func (s *PipelineScheduler) Start() {
	s.logger.Info("starting pipeline scheduler")
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *PipelineScheduler) Stop() {
	s.logger.Info("stopping pipeline scheduler")
	<-s.cron.Stop().Done()
}

func (s *PipelineScheduler) runIngest(ctx context.Context) {
	result, err := s.ingestUC.ExecuteAll(ctx)
	if err != nil {
		s.logger.Error("scheduled ingest failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("scheduled_ingest_finished",
		slog.Int("users", result.UsersProcessed),
		slog.Int("new_items", result.NewItems))
}

func (s *PipelineScheduler) runTrends(ctx context.Context) {
	processed, err := s.trendsUC.ExecuteAll(ctx)
	if err != nil {
		s.logger.Error("scheduled trend detection failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("scheduled_trends_finished", slog.Int("users_processed", processed))
}

func (s *PipelineScheduler) runSweep(ctx context.Context) {
	report, err := s.sweepUC.Tick(ctx, time.Now())
	if err != nil {
		s.logger.Error("scheduled sweep failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("scheduled_sweep_finished",
		slog.Int("due", report.Due),
		slog.Int("dispatched", report.Dispatched),
		slog.Int("failures", report.FailureCount))
}
