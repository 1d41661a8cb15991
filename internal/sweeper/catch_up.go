package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-mint-indexer/internal/engine"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
)

const CATCH_UP_JOB_NAME = "mint-catch-up"

// catchUpSweeper closes gaps left by live deliveries the node never sent, by periodically
// replaying the blocks since the latest applied mint
type catchUpSweeper struct {
	target   CatchUpper
	interval time.Duration

	running   atomic.Bool
	stopOnce  sync.Once
	stopChan  chan struct{}
	stoppedCh chan struct{}
	runs      atomic.Uint64
}

// NewCatchUpSweeper creates a sweeper calling target.CatchUp every interval
func NewCatchUpSweeper(target CatchUpper, interval time.Duration) Sweeper {
	return &catchUpSweeper{
		target:    target,
		interval:  interval,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *catchUpSweeper) Name() string {
	return "catch-up-sweeper"
}

// Start schedules the catch-up job and blocks until the context is canceled or Stop is called
func (s *catchUpSweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("invalid sweep interval %s", s.interval)
	}
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer close(s.stoppedCh)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.sweep(ctx) }),
		gocron.WithName(CATCH_UP_JOB_NAME),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to schedule %s: %w", CATCH_UP_JOB_NAME, err)
	}

	logger.InfoCtx(ctx, "Starting catch-up sweeper", zap.Duration("interval", s.interval))
	scheduler.Start()

	select {
	case <-ctx.Done():
		logger.InfoCtx(ctx, "Catch-up sweeper stopping due to context cancellation")
	case <-s.stopChan:
		logger.InfoCtx(ctx, "Catch-up sweeper stop requested")
	}

	// Shutdown waits for a running sweep
	if err := scheduler.Shutdown(); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to shutdown scheduler: %w", err))
	}
	return nil
}

func (s *catchUpSweeper) sweep(ctx context.Context) {
	run := s.runs.Add(1)

	applied, err := s.target.CatchUp(ctx)
	switch {
	case err == nil:
		if applied > 0 {
			logger.WarnCtx(ctx, "Catch-up sweep applied missed mints",
				zap.Int("applied", applied),
				zap.Uint64("run", run))
			return
		}
		logger.DebugCtx(ctx, "Catch-up sweep found nothing missing", zap.Uint64("run", run))
	case errors.Is(err, engine.ErrNotLive):
		logger.DebugCtx(ctx, "Skipping catch-up sweep, engine is not live", zap.Uint64("run", run))
	case errors.Is(err, context.Canceled):
	default:
		logger.ErrorCtx(ctx, fmt.Errorf("catch-up sweep failed: %w", err), zap.Uint64("run", run))
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *catchUpSweeper) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}
	s.stopOnce.Do(func() { close(s.stopChan) })

	select {
	case <-s.stoppedCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for %s to stop: %w", s.Name(), ctx.Err())
	}
}
