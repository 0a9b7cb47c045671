package nav

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zyedidia/generic/queue"
)

var ErrNilEngine = errors.New("nav: nil engine")

// Scheduler accepts path requests without blocking the caller and hands
// results back through each request's callback. Searches run one at a time,
// either on a worker goroutine (Run) or cooperatively between ticks
// (Process). Callbacks only ever run inside Deliver, on the caller's
// goroutine.
type Scheduler struct {
	engine *Engine
	logger *slog.Logger

	mu             sync.Mutex
	pending        *queue.Queue[PathRequest]
	pendingCount   int
	completed      *queue.Queue[PathResult]
	completedCount int

	search sync.Mutex
	wake   chan struct{}
	batch  int
}

type SchedulerOption func(*Scheduler)

func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBatch caps how many searches the Run worker performs before checking
// for cancellation again. Zero drains the queue each time.
func WithBatch(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n >= 0 {
			s.batch = n
		}
	}
}

func NewScheduler(engine *Engine, opts ...SchedulerOption) (*Scheduler, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}
	s := &Scheduler{
		engine:    engine,
		logger:    slog.Default(),
		pending:   queue.New[PathRequest](),
		completed: queue.New[PathResult](),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit queues req and returns immediately.
func (s *Scheduler) Submit(req PathRequest) {
	s.mu.Lock()
	s.pending.Enqueue(req)
	s.pendingCount++
	depth := s.pendingCount
	s.mu.Unlock()

	pathQueueDepth.Set(float64(depth))
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending is the number of requests waiting for a search.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingCount
}

// Completed is the number of results waiting for Deliver.
func (s *Scheduler) Completed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedCount
}

// Process runs up to max queued searches on the calling goroutine; max <= 0
// drains the queue. It returns the number of searches run.
func (s *Scheduler) Process(max int) int {
	ran := 0
	for max <= 0 || ran < max {
		req, ok := s.next()
		if !ok {
			break
		}
		s.finish(s.run(req))
		ran++
	}
	return ran
}

// Run drains requests on the calling goroutine until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if n := s.Process(s.batch); s.batch > 0 && n == s.batch {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		}
	}
}

// Deliver invokes callbacks for every finished search in completion order
// and returns how many were delivered.
func (s *Scheduler) Deliver() int {
	s.mu.Lock()
	results := make([]PathResult, 0, s.completedCount)
	for !s.completed.Empty() {
		results = append(results, s.completed.Dequeue())
	}
	s.completedCount = 0
	s.mu.Unlock()

	for _, res := range results {
		res.deliver()
	}
	return len(results)
}

func (s *Scheduler) next() (PathRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.Empty() {
		return PathRequest{}, false
	}
	req := s.pending.Dequeue()
	s.pendingCount--
	pathQueueDepth.Set(float64(s.pendingCount))
	return req, true
}

// run searches req. Engine errors still produce a failed result so every
// request gets exactly one answer.
func (s *Scheduler) run(req PathRequest) PathResult {
	s.search.Lock()
	defer s.search.Unlock()

	began := time.Now()
	res, err := s.engine.FindPath(req)
	pathSearchDuration.Observe(time.Since(began).Seconds())
	pathExpandedCells.Observe(float64(res.Expanded))
	pathRequestsTotal.WithLabelValues(resultLabel(res, err)).Inc()

	if err != nil {
		s.logger.Error("nav: search failed", "slot", req.Slot, "seq", req.Seq, "err", err)
		res = failedResult(req)
	} else {
		s.logger.Debug("nav: search done",
			"slot", req.Slot, "seq", req.Seq, "success", res.Success,
			"cells", len(res.Cells), "expanded", res.Expanded)
	}
	return res
}

func (s *Scheduler) finish(res PathResult) {
	s.mu.Lock()
	s.completed.Enqueue(res)
	s.completedCount++
	s.mu.Unlock()
}
