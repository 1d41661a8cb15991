package ratelimit_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-mint-indexer/internal/logger"
	"github.com/feral-file/ff-mint-indexer/internal/mocks"
	"github.com/feral-file/ff-mint-indexer/internal/ratelimit"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// testLimiterMocks contains all the mocks needed for testing the limiter
type testLimiterMocks struct {
	ctrl             *gomock.Controller
	redisClient      *mocks.MockRedisClient
	redisRateLimiter *mocks.MockRedisRateLimiter
	clock            *mocks.MockClock
}

func setupTestLimiter(t *testing.T) (ratelimit.Limiter, *testLimiterMocks) {
	ctrl := gomock.NewController(t)
	tm := &testLimiterMocks{
		ctrl:             ctrl,
		redisClient:      mocks.NewMockRedisClient(ctrl),
		redisRateLimiter: mocks.NewMockRedisRateLimiter(ctrl),
		clock:            mocks.NewMockClock(ctrl),
	}
	tm.redisClient.EXPECT().NewRateLimiter().Return(tm.redisRateLimiter)

	limiter, err := ratelimit.NewDistributedLimiter(tm.redisClient, tm.clock, ratelimit.Config{
		Name:              "metadata",
		RequestsPerSecond: 100,
	})
	require.NoError(t, err)
	return limiter, tm
}

func readyChan() <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func TestDistributedLimiter_Allowed(t *testing.T) {
	limiter, tm := setupTestLimiter(t)

	tm.redisRateLimiter.EXPECT().
		Allow(gomock.Any(), "mint-indexer:limiter:metadata", redis_rate.Limit{Rate: 100, Burst: 100, Period: time.Second}).
		Return(&redis_rate.Result{Allowed: 1, Remaining: 99}, nil)

	assert.NoError(t, limiter.Wait(context.Background()))
}

func TestDistributedLimiter_WaitsForRetryAfter(t *testing.T) {
	limiter, tm := setupTestLimiter(t)

	gomock.InOrder(
		tm.redisRateLimiter.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&redis_rate.Result{Allowed: 0, RetryAfter: 40 * time.Millisecond}, nil),
		tm.clock.EXPECT().After(gomock.Any()).
			DoAndReturn(func(d time.Duration) <-chan time.Time {
				// jitter keeps the wait within 50-150% of retryAfter
				assert.GreaterOrEqual(t, d, 20*time.Millisecond)
				assert.LessOrEqual(t, d, 60*time.Millisecond)
				return readyChan()
			}),
		tm.redisRateLimiter.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&redis_rate.Result{Allowed: 1}, nil),
	)

	assert.NoError(t, limiter.Wait(context.Background()))
}

func TestDistributedLimiter_FallsBackToLocal(t *testing.T) {
	limiter, tm := setupTestLimiter(t)
	failedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	gomock.InOrder(
		tm.redisRateLimiter.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("connection refused")),
		tm.clock.EXPECT().Now().Return(failedAt),
		// within the probe interval the local bucket serves requests without asking redis
		tm.clock.EXPECT().Since(failedAt).Return(time.Duration(0)),
		tm.clock.EXPECT().Since(failedAt).Return(time.Second),
		// once the probe interval passed redis is tried again
		tm.clock.EXPECT().Since(failedAt).Return(ratelimit.DEFAULT_PROBE_INTERVAL),
		tm.redisRateLimiter.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&redis_rate.Result{Allowed: 1}, nil),
	)

	ctx := context.Background()
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))
}

func TestDistributedLimiter_ContextCanceled(t *testing.T) {
	limiter, tm := setupTestLimiter(t)

	ctx, cancel := context.WithCancel(context.Background())
	tm.redisRateLimiter.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&redis_rate.Result{Allowed: 0, RetryAfter: time.Hour}, nil)
	tm.clock.EXPECT().After(gomock.Any()).
		DoAndReturn(func(time.Duration) <-chan time.Time {
			cancel()
			return make(chan time.Time)
		})

	assert.ErrorIs(t, limiter.Wait(ctx), context.Canceled)
}

func TestNewDistributedLimiter_InvalidConfig(t *testing.T) {
	ctrl := gomock.NewController(t)

	tests := []struct {
		name string
		cfg  ratelimit.Config
	}{
		{name: "missing name", cfg: ratelimit.Config{RequestsPerSecond: 1}},
		{name: "zero rate", cfg: ratelimit.Config{Name: "metadata"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ratelimit.NewDistributedLimiter(mocks.NewMockRedisClient(ctrl), mocks.NewMockClock(ctrl), tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewLocalLimiter(t *testing.T) {
	ctx := context.Background()

	unlimited := ratelimit.NewLocalLimiter(0, 0)
	for i := 0; i < 1000; i++ {
		require.NoError(t, unlimited.Wait(ctx))
	}

	limited := ratelimit.NewLocalLimiter(1, 1)
	require.NoError(t, limited.Wait(ctx))

	// the bucket is empty, so the next token is a second away
	shortCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.Error(t, limited.Wait(shortCtx))
}
