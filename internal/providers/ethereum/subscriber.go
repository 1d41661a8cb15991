package ethereum

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
	"github.com/feral-file/ff-mint-indexer/internal/messaging"
)

// subscription delivers at most one error and is closed exactly once
type subscription struct {
	errCh    chan error
	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once
	teardown func()
}

func newSubscription(teardown func()) *subscription {
	return &subscription{
		errCh:    make(chan error, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		teardown: teardown,
	}
}

func (s *subscription) Err() <-chan error {
	return s.errCh
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		if s.teardown != nil {
			s.teardown()
		}
		<-s.stopped
		close(s.errCh)
	})
}

func (s *subscription) fail(err error) {
	select {
	case s.errCh <- &domain.SubscriptionError{Err: err}:
	default:
	}
}

// SubscribeMintEvents subscribes to NFTMinted logs of the contract. Endpoints without push
// notifications are served by polling the head every PollInterval.
func (s *mintSource) SubscribeMintEvents(ctx context.Context, handler messaging.EventHandler) (messaging.Subscription, error) {
	logs := make(chan types.Log)
	sub, err := s.client.SubscribeFilterLogs(ctx, s.filterQuery(), logs)
	if errors.Is(err, rpc.ErrNotificationsUnsupported) {
		logger.InfoCtx(ctx, "Endpoint does not support subscriptions, polling for mint logs",
			zap.Duration("interval", s.cfg.PollInterval))
		return s.subscribePolling(ctx, handler)
	}
	if err != nil {
		return nil, &domain.SubscriptionError{Err: fmt.Errorf("failed to subscribe to filter logs: %w", err)}
	}

	result := newSubscription(sub.Unsubscribe)
	go func() {
		defer close(result.stopped)
		for {
			select {
			case <-result.done:
				return
			case <-ctx.Done():
				result.fail(ctx.Err())
				return
			case err, ok := <-sub.Err():
				if !ok {
					// closed by our own Unsubscribe
					<-result.done
					return
				}
				result.fail(err)
				return
			case vLog := <-logs:
				if vLog.Removed {
					logger.WarnCtx(ctx, "Ignoring removed mint log",
						zap.String("txHash", vLog.TxHash.Hex()),
						zap.Uint64("blockNumber", vLog.BlockNumber))
					continue
				}
				s.head.Observe(vLog.BlockNumber)
				handler(toLive(vLog))
			}
		}
	}()

	return result, nil
}

func (s *mintSource) subscribePolling(ctx context.Context, handler messaging.EventHandler) (messaging.Subscription, error) {
	current, err := s.head.GetLatestBlock(ctx)
	if err != nil {
		return nil, &domain.SubscriptionError{Err: fmt.Errorf("failed to read chain head: %w", err)}
	}

	result := newSubscription(nil)
	go func() {
		defer close(result.stopped)
		next := current + 1
		for {
			select {
			case <-result.done:
				return
			case <-ctx.Done():
				result.fail(ctx.Err())
				return
			case <-s.clock.After(s.cfg.PollInterval):
			}

			latest, err := s.head.GetLatestBlock(ctx)
			if err != nil {
				result.fail(err)
				return
			}
			if latest < next {
				continue
			}

			logs, err := s.queryLogs(ctx, next, latest)
			if err != nil {
				result.fail(err)
				return
			}
			for _, vLog := range logs {
				handler(toLive(vLog))
			}
			next = latest + 1
		}
	}()

	return result, nil
}
