package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/ingest"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
	"github.com/feral-file/ff-mint-indexer/internal/normalizer"
)

const DEFAULT_MAX_BUFFERED_EVENTS = 10000

// Listener normalizes live deliveries and hands them to the dispatcher. While a backfill runs it
// buffers them instead, so the backfill is not raced by its own tail.
type Listener struct {
	ctx         context.Context
	dispatcher  *ingest.Dispatcher
	dropped     *atomic.Uint64
	maxBuffered int
	overflowed  atomic.Uint64

	mu        sync.Mutex
	buffering bool
	buffer    []domain.MintEvent
}

// NewListener creates a live listener. ctx scopes its log entries. At most maxBuffered events
// are held during a backfill; later ones are dropped and counted as overflow.
func NewListener(ctx context.Context, dispatcher *ingest.Dispatcher, dropped *atomic.Uint64, maxBuffered int) *Listener {
	if dropped == nil {
		dropped = new(atomic.Uint64)
	}
	if maxBuffered <= 0 {
		maxBuffered = DEFAULT_MAX_BUFFERED_EVENTS
	}
	return &Listener{
		ctx:         ctx,
		dispatcher:  dispatcher,
		dropped:     dropped,
		maxBuffered: maxBuffered,
	}
}

// Handle is the subscription callback
func (l *Listener) Handle(raw domain.RawEvent) {
	event, err := normalizer.Normalize(raw)
	if err != nil {
		l.dropped.Add(1)
		logger.WarnCtx(l.ctx, "Dropping malformed live mint event",
			zap.Error(err),
			zap.Uint64("block_number", raw.BlockNumber()))
		return
	}

	l.mu.Lock()
	if l.buffering {
		defer l.mu.Unlock()
		if len(l.buffer) >= l.maxBuffered {
			l.overflowed.Add(1)
			logger.WarnCtx(l.ctx, "Live buffer full, dropping mint until catch-up",
				zap.Uint64("token_id", event.TokenID),
				zap.Uint64("block_number", event.BlockNumber),
				zap.Int("max_buffered", l.maxBuffered))
			return
		}
		l.buffer = append(l.buffer, event)
		return
	}
	l.mu.Unlock()

	logger.DebugCtx(l.ctx, "Live mint received",
		zap.Uint64("token_id", event.TokenID),
		zap.Uint64("block_number", event.BlockNumber))
	l.dispatcher.Submit(event)
}

// Buffer starts holding live events until Drain
func (l *Listener) Buffer() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buffering = true
	l.buffer = nil
}

// Drain submits the buffered events in arrival order and switches to direct submission.
// Events delivered while draining join the buffer and are flushed before it switches over.
func (l *Listener) Drain() int {
	drained := 0
	for {
		l.mu.Lock()
		batch := l.buffer
		l.buffer = nil
		if len(batch) == 0 {
			l.buffering = false
			l.mu.Unlock()
			break
		}
		l.mu.Unlock()

		for _, event := range batch {
			l.dispatcher.Submit(event)
		}
		drained += len(batch)
	}

	if drained > 0 {
		logger.InfoCtx(l.ctx, "Drained live events buffered during backfill", zap.Int("count", drained))
	}
	return drained
}

// Buffered returns the number of events held back
func (l *Listener) Buffered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buffer)
}

// Overflowed returns the number of live events dropped because the buffer was full
func (l *Listener) Overflowed() uint64 {
	return l.overflowed.Load()
}
