package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSweeper struct {
	mock.Mock
}

func (m *mockSweeper) Sweep(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockExpirer struct {
	mock.Mock
}

func (m *mockExpirer) ExpireProMemberships(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func TestSchedulerRegistersJobs(t *testing.T) {
	s, err := New(slog.Default(), new(mockSweeper), new(mockExpirer))
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)
}

func TestJobsCallDependencies(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sweeper := new(mockSweeper)
	sweeper.On("Sweep", mock.Anything).Return(int64(3), nil).Once()
	expirer := new(mockExpirer)
	expirer.On("ExpireProMemberships", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(0), errors.New("db down")).Once()

	s, err := New(logger, sweeper, expirer)
	require.NoError(t, err)
	for _, e := range s.cron.Entries() {
		e.Job.Run()
	}

	sweeper.AssertExpectations(t)
	expirer.AssertExpectations(t)
	assert.Contains(t, buf.String(), "job=sweep_sessions affected=3")
	assert.Contains(t, buf.String(), "job=expire_pro error=\"db down\"")
}

func TestStopWaitsForScheduler(t *testing.T) {
	s, err := New(slog.Default(), new(mockSweeper), new(mockExpirer))
	require.NoError(t, err)
	s.Start()
	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
