package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"pgstay/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSweeper struct {
	mock.Mock
}

func (m *mockSweeper) ExpireStale(ctx context.Context, ttl time.Duration) (int64, error) {
	args := m.Called(ctx, ttl)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSweeper) ReprocessFailed(ctx context.Context, maxAttempts, limit int) (int, error) {
	args := m.Called(ctx, maxAttempts, limit)
	return args.Int(0), args.Error(1)
}

func TestRunOnceRunsBothSweeps(t *testing.T) {
	sw := &mockSweeper{}
	sw.On("ExpireStale", mock.Anything, 30*time.Minute).Return(int64(2), nil)
	sw.On("ReprocessFailed", mock.Anything, 5, 100).Return(1, nil)

	s := New(sw, "*/5 * * * *", 30*time.Minute, logger.Component(logger.Discard(), "scheduler"))
	res := s.RunOnce(context.Background())

	assert.Equal(t, Result{Expired: 2, Reprocessed: 1}, res)
	sw.AssertExpectations(t)
}

func TestRunOnceKeepsGoingAfterError(t *testing.T) {
	sw := &mockSweeper{}
	sw.On("ExpireStale", mock.Anything, mock.Anything).Return(int64(0), errors.New("db locked"))
	sw.On("ReprocessFailed", mock.Anything, 5, 100).Return(3, nil)

	s := New(sw, "0 */5 * * * *", time.Minute, logger.Component(logger.Discard(), "scheduler"))
	res := s.RunOnce(context.Background())

	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 3, res.Reprocessed)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := New(&mockSweeper{}, "every five minutes", time.Minute, logger.Component(logger.Discard(), "scheduler"))
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := New(&mockSweeper{}, "0 0 3 * * *", time.Minute, logger.Component(logger.Discard(), "scheduler"))
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	s.Stop()
	s.Stop()
}
