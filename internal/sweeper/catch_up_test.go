package sweeper_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-mint-indexer/internal/engine"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
	"github.com/feral-file/ff-mint-indexer/internal/mocks"
	"github.com/feral-file/ff-mint-indexer/internal/sweeper"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func runSweeper(t *testing.T, s sweeper.Sweeper) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background()) }()
	return errCh
}

func TestCatchUpSweeper_RunsPeriodically(t *testing.T) {
	ctrl := gomock.NewController(t)
	target := mocks.NewMockCatchUpper(ctrl)

	calls := make(chan struct{}, 16)
	gomock.InOrder(
		target.EXPECT().CatchUp(gomock.Any()).Return(0, engine.ErrNotLive),
		target.EXPECT().CatchUp(gomock.Any()).Return(2, nil),
		target.EXPECT().CatchUp(gomock.Any()).
			DoAndReturn(func(context.Context) (int, error) {
				calls <- struct{}{}
				return 0, errors.New("rpc unavailable")
			}),
		target.EXPECT().CatchUp(gomock.Any()).
			DoAndReturn(func(context.Context) (int, error) {
				calls <- struct{}{}
				return 0, nil
			}).
			AnyTimes(),
	)

	s := sweeper.NewCatchUpSweeper(target, 10*time.Millisecond)
	assert.Equal(t, "catch-up-sweeper", s.Name())
	errCh := runSweeper(t, s)

	// an error in one run does not stop the schedule
	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(5 * time.Second):
			t.Fatal("catch-up not scheduled")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, <-errCh)

	// stopping twice is harmless
	assert.NoError(t, s.Stop(ctx))
}

func TestCatchUpSweeper_StopsWithContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	target := mocks.NewMockCatchUpper(ctrl)
	target.EXPECT().CatchUp(gomock.Any()).Return(0, nil).AnyTimes()

	s := sweeper.NewCatchUpSweeper(target, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestCatchUpSweeper_InvalidInterval(t *testing.T) {
	s := sweeper.NewCatchUpSweeper(mocks.NewMockCatchUpper(gomock.NewController(t)), 0)
	assert.ErrorContains(t, s.Start(context.Background()), "invalid sweep interval")
}

func TestCatchUpSweeper_StopBeforeStart(t *testing.T) {
	s := sweeper.NewCatchUpSweeper(mocks.NewMockCatchUpper(gomock.NewController(t)), time.Second)
	assert.NoError(t, s.Stop(context.Background()))
}
