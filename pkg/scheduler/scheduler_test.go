package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/19722009abc/HelpyBot/pkg/entities"
)

type fakeSweeper struct {
	mu    sync.Mutex
	calls []time.Time
}

func (f *fakeSweeper) Sweep(_ context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	return 2, nil
}

type fakeSettler struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSettler) Settle(context.Context, time.Time) (*entities.RaffleDraw, error) {
	f.calls.Add(1)
	return nil, f.err
}

type fakeShop struct {
	calls atomic.Int32
}

func (f *fakeShop) DailyShop(context.Context, time.Time) ([]*entities.DailyOffer, error) {
	f.calls.Add(1)
	return nil, nil
}

type fakeIndices struct {
	rotated atomic.Int32
	pruned  atomic.Int32
}

func (f *fakeIndices) RotateIndices(context.Context, time.Time) error {
	f.rotated.Add(1)
	return nil
}

func (f *fakeIndices) PruneOldIndices(context.Context, time.Time) error {
	f.pruned.Add(1)
	return nil
}

func TestTasksRunOnStartupAndOnTick(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	s.AddTask("counter", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
}

func TestTaskErrorsDoNotStopTheLoop(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	s.AddTask("failing", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	})

	s.Start(context.Background())
	defer s.Stop()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	s.AddTask("once", time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start(context.Background())
	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()
	assert.Equal(t, int32(1), runs.Load())
}

func TestAddMaintenanceTasks(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	sweeper := &fakeSweeper{}
	settler := &fakeSettler{err: errors.New("storage down")}
	shop := &fakeShop{}

	s := NewScheduler()
	AddMaintenanceTasks(s, Maintenance{
		Sessions: sweeper,
		Raffle:   settler,
		Shop:     shop,
		Interval: time.Hour,
		Clock:    func() time.Time { return now },
	})
	assert.Equal(t, []string{"session_sweep", "raffle_settle", "daily_shop"}, s.Tasks())

	s.Start(context.Background())
	assert.Eventually(t, func() bool {
		return settler.calls.Load() == 1 && shop.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)
	s.Stop()

	sweeper.mu.Lock()
	defer sweeper.mu.Unlock()
	require.Len(t, sweeper.calls, 1)
	assert.Equal(t, now, sweeper.calls[0])
}

func TestAddMaintenanceTasksSkipsNilJobs(t *testing.T) {
	s := NewScheduler()
	AddMaintenanceTasks(s, Maintenance{Shop: &fakeShop{}})
	assert.Equal(t, []string{"daily_shop"}, s.Tasks())
}

func TestAddIndexTasks(t *testing.T) {
	indices := &fakeIndices{}
	s := NewScheduler()
	AddIndexTasks(s, indices, 0, time.Now)
	assert.Equal(t, []string{"index_rotation", "index_pruning"}, s.Tasks())

	s.Start(context.Background())
	assert.Eventually(t, func() bool {
		return indices.rotated.Load() == 1 && indices.pruned.Load() == 1
	}, time.Second, 5*time.Millisecond)
	s.Stop()
}
