package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-mint-indexer/internal/adapter"
	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/ingest"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
	"github.com/feral-file/ff-mint-indexer/internal/messaging"
	"github.com/feral-file/ff-mint-indexer/internal/store"
)

const (
	DEFAULT_BACKFILL_TIMEOUT           = 10 * time.Minute
	DEFAULT_RECONNECT_INITIAL_INTERVAL = time.Second
	DEFAULT_RECONNECT_MAX_INTERVAL     = time.Minute
	STATE_CHANGES_BUFFER               = 32
)

var (
	// ErrNotLive is returned by CatchUp when the engine is not serving live events
	ErrNotLive = errors.New("engine is not live")
	// ErrStopped is returned by Start once the engine has been stopped
	ErrStopped = errors.New("engine stopped")
)

// Config holds the configuration for the synchronization engine
type Config struct {
	ChainID  domain.Chain
	Backfill BackfillConfig
	// BackfillTimeout supersedes a backfill that runs too long; the engine goes live regardless.
	// Failed attempts are retried from the scan cursor until it expires.
	BackfillTimeout time.Duration
	// MaxBufferedEvents caps the live events held during a backfill
	MaxBufferedEvents int
	// ReconnectInitialInterval and ReconnectMaxInterval shape the unbounded reconnect backoff
	ReconnectInitialInterval time.Duration
	ReconnectMaxInterval     time.Duration
}

// Stats is a snapshot of the engine counters
type Stats struct {
	State          State
	SessionID      string
	Applied        uint64
	AlreadyApplied uint64
	Failed         uint64
	Dropped        uint64
	Pending        uint64
	Buffered       int
	Overflowed     uint64
	Reconnects     uint64
	Backfills      uint64
	LastBackfillAt time.Time
}

// Engine owns the synchronization lifecycle: store readiness, backfill, then the live feed,
// reconnecting with a catch-up backfill whenever the feed is lost
type Engine struct {
	source     messaging.MintSource
	store      store.Store
	dispatcher *ingest.Dispatcher
	backfiller *Backfiller
	listener   *Listener
	clock      adapter.Clock
	config     Config

	mu             sync.RWMutex
	state          State
	sessionID      string
	lastBackfillAt time.Time
	changes        chan StateChange
	changesClosed  bool

	// backfillMu keeps a sweeper catch-up from overlapping a session backfill
	backfillMu sync.Mutex

	dropped    atomic.Uint64
	reconnects atomic.Uint64
	backfills  atomic.Uint64

	// recoveredOverflow is the listener overflow count already covered by a catch-up
	recoveredOverflow uint64

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewEngine creates the engine. The dispatcher is owned by the engine from here on and is
// drained by Stop.
func NewEngine(source messaging.MintSource, st store.Store, dispatcher *ingest.Dispatcher, clock adapter.Clock, cfg Config) *Engine {
	if cfg.BackfillTimeout <= 0 {
		cfg.BackfillTimeout = DEFAULT_BACKFILL_TIMEOUT
	}
	if cfg.ReconnectInitialInterval <= 0 {
		cfg.ReconnectInitialInterval = DEFAULT_RECONNECT_INITIAL_INTERVAL
	}
	if cfg.ReconnectMaxInterval <= 0 {
		cfg.ReconnectMaxInterval = DEFAULT_RECONNECT_MAX_INTERVAL
	}

	e := &Engine{
		source:     source,
		store:      st,
		dispatcher: dispatcher,
		clock:      clock,
		config:     cfg,
		state:      StateDisconnected,
		changes:    make(chan StateChange, STATE_CHANGES_BUFFER),
		done:       make(chan struct{}),
	}
	e.backfiller = NewBackfiller(source, dispatcher, cfg.Backfill, &e.dropped)
	e.listener = NewListener(context.Background(), dispatcher, &e.dropped, cfg.MaxBufferedEvents)
	return e
}

// Start checks the projection store and runs the engine in the background until Stop
func (e *Engine) Start(ctx context.Context) error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()

	if e.stopped {
		return ErrStopped
	}
	if e.started {
		return errors.New("engine already started")
	}

	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("projection store not ready: %w", err)
	}

	fields := []zap.Field{
		zap.String("chain", string(e.config.ChainID)),
		zap.Uint64("lookback_blocks", e.backfiller.config.LookbackBlocks),
		zap.Duration("backfill_timeout", e.config.BackfillTimeout),
	}
	if latest, ok, err := e.store.LatestAppliedBlock(ctx); err != nil {
		logger.WarnCtx(ctx, "Failed to read latest applied block", zap.Error(err))
	} else if ok {
		fields = append(fields, zap.Uint64("latest_applied_block", latest))
	}
	logger.InfoCtx(ctx, "Starting mint sync engine", fields...)

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.started = true

	go e.run(runCtx)
	return nil
}

// Stop cancels the subscription and any in-flight range query, then waits for queued events
// to be applied. It is safe to call more than once; a stopped engine cannot be restarted.
func (e *Engine) Stop() {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()

	if e.stopped {
		return
	}
	e.stopped = true

	if e.started {
		e.cancel()
		<-e.done
	}
	e.dispatcher.Stop()
	e.setState(StateDisconnected)

	e.mu.Lock()
	e.changesClosed = true
	close(e.changes)
	e.mu.Unlock()

	logger.Info("Mint sync engine stopped")
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// StateChanges delivers transitions. Changes are dropped when the reader falls behind;
// the channel is closed by Stop.
func (e *Engine) StateChanges() <-chan StateChange {
	return e.changes
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	state, sessionID, lastBackfillAt := e.state, e.sessionID, e.lastBackfillAt
	e.mu.RUnlock()

	ds := e.dispatcher.Stats()
	return Stats{
		State:          state,
		SessionID:      sessionID,
		Applied:        ds.Applied,
		AlreadyApplied: ds.AlreadyApplied,
		Failed:         ds.Failed,
		Dropped:        e.dropped.Load(),
		Pending:        e.dispatcher.Pending(),
		Buffered:       e.listener.Buffered(),
		Overflowed:     e.listener.Overflowed(),
		Reconnects:     e.reconnects.Load(),
		Backfills:      e.backfills.Load(),
		LastBackfillAt: lastBackfillAt,
	}
}

// CatchUp re-runs a bounded backfill over [scan cursor, head] while live
func (e *Engine) CatchUp(ctx context.Context) (int, error) {
	if e.State() != StateLive {
		return 0, ErrNotLive
	}
	return e.runBackfill(ctx)
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.config.ReconnectInitialInterval
	b.MaxInterval = e.config.ReconnectMaxInterval
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0.5
	b.Reset()

	for {
		wasLive, err := e.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if wasLive {
			b.Reset()
		}

		wait := b.NextBackOff()
		e.reconnects.Add(1)
		e.setState(StateReconnecting)
		logger.WarnCtx(ctx, "Mint event feed lost, reconnecting",
			zap.Error(err),
			zap.Duration("retry_in", wait),
			zap.Uint64("reconnects", e.reconnects.Load()))

		select {
		case <-ctx.Done():
			return
		case <-e.clock.After(wait):
		}
	}
}

// session runs one connection: subscribe, backfill, drain, then serve live events until the
// subscription fails. It reports whether LIVE was reached.
func (e *Engine) session(ctx context.Context) (bool, error) {
	sessionID := ulid.MustNewDefault(e.clock.Now()).String()
	e.mu.Lock()
	e.sessionID = sessionID
	e.mu.Unlock()
	e.setState(StateConnecting)

	sessCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// Buffer before subscribing so nothing delivered during the backfill is applied out of order
	e.listener.Buffer()
	defer e.listener.Drain()

	sub, err := e.source.SubscribeMintEvents(sessCtx, e.listener.Handle)
	if err != nil {
		return false, err
	}
	defer sub.Unsubscribe()

	// A feed lost mid-backfill ends the session without waiting for the backfill
	go func() {
		select {
		case <-sessCtx.Done():
		case err, ok := <-sub.Err():
			if !ok || err == nil {
				err = &domain.SubscriptionError{Err: errors.New("subscription closed")}
			}
			cancel(err)
		}
	}()

	e.setState(StateBackfilling)

	_, _ = e.runBackfill(sessCtx)
	if sessCtx.Err() != nil {
		return false, context.Cause(sessCtx)
	}

	e.listener.Drain()
	e.setState(StateLive)

	// Live events dropped by a full buffer lie past the cursor
	if overflowed := e.listener.Overflowed(); overflowed > e.recoveredOverflow {
		e.recoveredOverflow = overflowed
		logger.WarnCtx(sessCtx, "Live buffer overflowed during backfill, catching up",
			zap.Uint64("overflowed", overflowed))
		_, _ = e.runBackfill(sessCtx)
	}

	<-sessCtx.Done()
	return true, context.Cause(sessCtx)
}

// runBackfill scans from the cursor to the head, or over the lookback window before the first
// backfill. Failed attempts are retried from the cursor until BackfillTimeout supersedes them;
// whatever is left is picked up by the next catch-up.
func (e *Engine) runBackfill(ctx context.Context) (int, error) {
	e.backfillMu.Lock()
	defer e.backfillMu.Unlock()

	bctx, cancel := context.WithTimeout(ctx, e.config.BackfillTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.config.ReconnectInitialInterval
	b.MaxInterval = e.config.ReconnectMaxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	e.backfills.Add(1)
	applied := 0
	err := backoff.RetryNotify(func() error {
		n, err := e.backfiller.Backfill(bctx, e.backfiller.Cursor())
		applied += n
		if err != nil && bctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, bctx), func(err error, wait time.Duration) {
		fields := []zap.Field{zap.Error(err), zap.Duration("retry_in", wait)}
		if cursor := e.backfiller.Cursor(); cursor != nil {
			fields = append(fields, zap.Uint64("from_block", *cursor))
		}
		logger.WarnCtx(ctx, "Backfill failed, resuming from last scanned block", fields...)
	})

	e.mu.Lock()
	e.lastBackfillAt = e.clock.Now()
	e.mu.Unlock()

	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		fields := []zap.Field{
			zap.Duration("timeout", e.config.BackfillTimeout),
			zap.Int("applied", applied),
		}
		if cursor := e.backfiller.Cursor(); cursor != nil {
			fields = append(fields, zap.Uint64("resume_from_block", *cursor))
		}
		logger.WarnCtx(ctx, "Backfill superseded after timeout", fields...)
	case ctx.Err() != nil:
		// shutting down or reconnecting
	default:
		logger.ErrorCtx(ctx, fmt.Errorf("backfill failed: %w", err), zap.Int("applied", applied))
	}
	return applied, err
}

func (e *Engine) setState(to State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	from := e.state
	e.state = to
	if from == to {
		return
	}

	logger.Info("Engine state changed",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("session_id", e.sessionID))

	if e.changesClosed {
		return
	}
	select {
	case e.changes <- StateChange{From: from, To: to, SessionID: e.sessionID}:
	default:
	}
}
