package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SafeDeal/internal/database/databasetest"
	"SafeDeal/internal/models"
	"SafeDeal/internal/services"
)

type countingSweeper struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
	ran   chan struct{}
}

func (s *countingSweeper) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, now)
	if len(s.calls) == 3 {
		close(s.ran)
	}
	return 0, s.err
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db unavailable"), ran: make(chan struct{})}
	job := NewExpirySweeper(sweeper, nil, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		job.Run(ctx)
	}()

	select {
	case <-sweeper.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not run three times")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}

func TestRunOnceUsesClock(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sweeper := &countingSweeper{ran: make(chan struct{})}
	job := NewExpirySweeper(sweeper, func() time.Time { return at }, time.Minute)

	_, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, sweeper.calls, 1)
	assert.True(t, sweeper.calls[0].Equal(at))
}

func TestRunOnceClosesExpiredRequests(t *testing.T) {
	db := databasetest.Open(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	clock := func() time.Time { return now }
	requests := services.NewBuyerRequestService(db, clock, time.Hour)

	req, err := requests.Create(context.Background(), "buyer-1", services.CreateBuyerRequestInput{
		Category:  "design",
		Title:     "Logo",
		BudgetMin: decimal.NewFromInt(10),
		BudgetMax: decimal.NewFromInt(20),
	})
	require.NoError(t, err)

	job := NewExpirySweeper(requests, clock, time.Minute)
	closed, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, closed)

	now = start.Add(2 * time.Hour)
	closed, err = job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)

	stored, err := requests.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BuyerRequestClosed, stored.Status)

	closed, err = job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, closed)
}
