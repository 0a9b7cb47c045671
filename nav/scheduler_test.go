package nav

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/milk9111/gridpatrol/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newScheduler(t *testing.T, e *Engine) *Scheduler {
	t.Helper()
	s, err := NewScheduler(e, WithLogger(quietLogger()))
	require.NoError(t, err)
	return s
}

type collector struct {
	mu      sync.Mutex
	results []PathResult
}

func (c *collector) callback(res PathResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, res)
}

func (c *collector) snapshot() []PathResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]PathResult(nil), c.results...)
}

func TestNewSchedulerRejectsNilEngine(t *testing.T) {
	_, err := NewScheduler(nil)
	assert.ErrorIs(t, err, ErrNilEngine)
}

func TestSchedulerSubmitDoesNotRunSearches(t *testing.T) {
	g := openGrid(t, 4, 4)
	s := newScheduler(t, newEngine(t, g))
	c := &collector{}

	for slot := 0; slot < 3; slot++ {
		req := request(g, grid.Position{}, grid.Position{Col: 3, Row: slot}, grid.None)
		req.Slot = slot
		req.Callback = c.callback
		s.Submit(req)
	}

	assert.Equal(t, 3, s.Pending())
	assert.Zero(t, s.Completed())
	assert.Zero(t, s.Deliver())
	assert.Empty(t, c.snapshot(), "callbacks only run from Deliver")
}

func TestSchedulerProcessAndDeliverInOrder(t *testing.T) {
	g := openGrid(t, 4, 4)
	s := newScheduler(t, newEngine(t, g))
	c := &collector{}

	for slot := 0; slot < 4; slot++ {
		req := request(g, grid.Position{}, grid.Position{Col: 3, Row: slot}, grid.None)
		req.Slot = slot
		req.Seq = uint64(slot + 1)
		req.Callback = c.callback
		s.Submit(req)
	}

	assert.Equal(t, 2, s.Process(2))
	assert.Equal(t, 2, s.Pending())
	assert.Equal(t, 2, s.Completed())
	assert.Empty(t, c.snapshot())

	assert.Equal(t, 2, s.Process(0))
	assert.Zero(t, s.Pending())
	assert.Equal(t, 4, s.Deliver())
	assert.Zero(t, s.Completed())

	got := c.snapshot()
	require.Len(t, got, 4)
	for i, res := range got {
		assert.Equal(t, i, res.Slot)
		assert.Equal(t, uint64(i+1), res.Seq)
		assert.True(t, res.Success)
	}
}

func TestSchedulerEngineErrorStillDeliversOnce(t *testing.T) {
	s := newScheduler(t, &Engine{})
	c := &collector{}

	s.Submit(PathRequest{Slot: 2, Seq: 7, Callback: c.callback})
	require.Equal(t, 1, s.Process(0))
	require.Equal(t, 1, s.Deliver())
	require.Zero(t, s.Deliver())

	got := c.snapshot()
	require.Len(t, got, 1)
	assert.False(t, got[0].Success)
	assert.Equal(t, 2, got[0].Slot)
	assert.Equal(t, uint64(7), got[0].Seq)
}

func TestSchedulerCallbackMaySubmit(t *testing.T) {
	g := openGrid(t, 3, 3)
	s := newScheduler(t, newEngine(t, g))

	calls := 0
	var cb Callback
	cb = func(res PathResult) {
		calls++
		if res.Seq < 3 {
			req := request(g, grid.Position{}, grid.Position{Col: 2, Row: 2}, grid.None)
			req.Seq = res.Seq + 1
			req.Callback = cb
			s.Submit(req)
		}
	}
	req := request(g, grid.Position{}, grid.Position{Col: 2, Row: 2}, grid.None)
	req.Seq = 1
	req.Callback = cb
	s.Submit(req)

	for i := 0; i < 5; i++ {
		s.Process(0)
		s.Deliver()
	}
	assert.Equal(t, 3, calls)
}

func TestSchedulerRunWorker(t *testing.T) {
	g := openGrid(t, 6, 6)
	s := newScheduler(t, newEngine(t, g))
	c := &collector{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	const n = 20
	for i := 0; i < n; i++ {
		req := request(g, grid.Position{}, grid.Position{Col: i % 6, Row: 5}, grid.None)
		req.Seq = uint64(i)
		req.Callback = c.callback
		s.Submit(req)
	}

	require.Eventually(t, func() bool {
		s.Deliver()
		return len(c.snapshot()) == n
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Zero(t, s.Pending())
}

func TestSchedulerRunStopsBetweenBatches(t *testing.T) {
	g := openGrid(t, 4, 4)
	s, err := NewScheduler(newEngine(t, g), WithLogger(quietLogger()), WithBatch(1))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		s.Submit(request(g, grid.Position{}, grid.Position{Col: 3, Row: 3}, grid.None))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Equal(t, 5, s.Pending(), "a cancelled worker runs nothing")
}
