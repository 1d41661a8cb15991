package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
)

const (
	DEFAULT_SHARDS     = 8
	DEFAULT_QUEUE_SIZE = 1024
)

// DispatcherConfig holds the configuration for the keyed dispatcher
type DispatcherConfig struct {
	// Shards is the number of single-worker pools; events are routed by tokenId % Shards
	Shards int
	// QueueSize bounds the pending events per shard. Submit blocks when a shard is full.
	QueueSize int
	// RetryInitialInterval and RetryMaxInterval shape the per-event backoff on store errors
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	// EventRetryMaxElapsed caps the retries of one event, 0 retries until Stop
	EventRetryMaxElapsed time.Duration
}

// Outcome is the completion of one submitted event
type Outcome struct {
	Event  domain.MintEvent
	Result Result
	// Err is the last error when Result is ResultFailed
	Err error
}

// DispatcherStats counts completed submissions
type DispatcherStats struct {
	Applied        uint64
	AlreadyApplied uint64
	Failed         uint64
}

// Dispatcher runs the pipeline on a set of single-worker pools keyed by token id, so events for the
// same token are applied one at a time, in submission order, while different tokens run in parallel.
type Dispatcher struct {
	pipeline Pipeline
	shards   []pond.ResultPool[Outcome]
	config   DispatcherConfig

	// retryCtx stops backoff between attempts on Stop; attempts themselves are detached
	retryCtx    context.Context
	cancelRetry context.CancelFunc
	applyCtx    context.Context

	applied        atomic.Uint64
	alreadyApplied atomic.Uint64
	failed         atomic.Uint64
}

// NewDispatcher creates the keyed dispatcher. ctx carries logging scope only: cancelling it does not
// abort in-flight applications.
func NewDispatcher(ctx context.Context, pipeline Pipeline, cfg DispatcherConfig) *Dispatcher {
	if cfg.Shards <= 0 {
		cfg.Shards = DEFAULT_SHARDS
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DEFAULT_QUEUE_SIZE
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 500 * time.Millisecond
	}
	if cfg.RetryMaxInterval <= 0 {
		cfg.RetryMaxInterval = 30 * time.Second
	}

	shards := make([]pond.ResultPool[Outcome], cfg.Shards)
	for i := range shards {
		shards[i] = pond.NewResultPool[Outcome](1, pond.WithQueueSize(cfg.QueueSize))
	}

	retryCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &Dispatcher{
		pipeline:    pipeline,
		shards:      shards,
		config:      cfg,
		retryCtx:    retryCtx,
		cancelRetry: cancel,
		applyCtx:    context.WithoutCancel(ctx),
	}
}

// Submit queues the event on its shard and returns a handle to its completion
func (d *Dispatcher) Submit(event domain.MintEvent) pond.Result[Outcome] {
	shard := d.shards[event.TokenID%uint64(len(d.shards))] //nolint:gosec,G115
	return shard.Submit(func() Outcome {
		return d.apply(event)
	})
}

// Apply submits the event and waits for it to complete
func (d *Dispatcher) Apply(event domain.MintEvent) Outcome {
	outcome, err := d.Submit(event).Wait()
	if err != nil {
		// The pool was stopped before the task ran
		return Outcome{Event: event, Result: ResultFailed, Err: err}
	}
	return outcome
}

// ApplyContext is Apply that stops waiting when ctx is done. The event keeps its place in the shard
// and is still applied; only the caller gives up on the outcome.
func (d *Dispatcher) ApplyContext(ctx context.Context, event domain.MintEvent) Outcome {
	task := d.Submit(event)
	select {
	case <-task.Done():
	case <-ctx.Done():
		return Outcome{Event: event, Result: ResultFailed, Err: ctx.Err()}
	}

	outcome, err := task.Wait()
	if err != nil {
		return Outcome{Event: event, Result: ResultFailed, Err: err}
	}
	return outcome
}

func (d *Dispatcher) apply(event domain.MintEvent) Outcome {
	fields := []zap.Field{
		zap.Uint64("token_id", event.TokenID),
		zap.String("tx_hash", event.TransactionHash),
	}

	var result Result
	operation := func() error {
		r, err := d.pipeline.Apply(d.applyCtx, event)
		result = r
		if err == nil {
			return nil
		}
		// A rejected record fails the same way on every attempt and would hold up its shard
		if errors.Is(err, domain.ErrStore) && !errors.Is(err, domain.ErrRecordRejected) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.config.RetryInitialInterval
	b.MaxInterval = d.config.RetryMaxInterval
	b.MaxElapsedTime = d.config.EventRetryMaxElapsed
	b.RandomizationFactor = 0.5

	var attempt int
	notify := func(err error, next time.Duration) {
		attempt++
		logger.WarnCtx(d.applyCtx, "Failed to apply mint, retrying",
			append(fields, zap.Error(err), zap.Int("attempt", attempt), zap.Duration("next_retry_in", next))...)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(b, d.retryCtx), notify)
	if err != nil {
		d.failed.Add(1)
		logger.ErrorCtx(d.applyCtx, err, append(fields, zap.Int("attempts", attempt+1))...)
		return Outcome{Event: event, Result: ResultFailed, Err: err}
	}

	switch result {
	case ResultApplied:
		d.applied.Add(1)
	case ResultAlreadyApplied:
		d.alreadyApplied.Add(1)
	}
	return Outcome{Event: event, Result: result}
}

// Stats returns the counters of completed submissions
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Applied:        d.applied.Load(),
		AlreadyApplied: d.alreadyApplied.Load(),
		Failed:         d.failed.Load(),
	}
}

// Pending returns the number of queued events across shards
func (d *Dispatcher) Pending() uint64 {
	var waiting uint64
	for _, shard := range d.shards {
		waiting += shard.WaitingTasks()
	}
	return waiting
}

// Stop cancels pending retries and waits for queued events to drain
func (d *Dispatcher) Stop() {
	d.cancelRetry()
	for _, shard := range d.shards {
		shard.StopAndWait()
	}
	logger.InfoCtx(d.applyCtx, "Dispatcher stopped",
		zap.Uint64("applied", d.applied.Load()),
		zap.Uint64("already_applied", d.alreadyApplied.Load()),
		zap.Uint64("failed", d.failed.Load()))
}
