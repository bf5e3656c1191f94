// Package schedule enforces a hard ceiling on concurrent classification work.
//
// Tasks queue in arrival order and dispatch as worker slots free up.
// Duplicate submissions for a fingerprint that is already queued or in flight
// coalesce onto the same pending result instead of issuing new work.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/earlyspark/scrollguard/internal/classify"
)

// DefaultCeiling is the reference concurrency limit.
const DefaultCeiling = 3

// Task is one unit of queued classification work.
type Task struct {
	Fingerprint string
	Text        string
	Context     classify.Context
	AppID       string
	SubmittedAt time.Time
}

// Callback receives the verdict for a fingerprint once classification ends.
// Callbacks run on worker goroutines; callers marshal onto their own path.
type Callback func(fingerprint string, v classify.Verdict)

// ClassifyFunc performs the actual classification. It must always return a
// verdict; degraded results are expressed as verdicts, not errors.
type ClassifyFunc func(ctx context.Context, task Task) classify.Verdict

type entry struct {
	task      Task
	callbacks []Callback
}

// Scheduler runs a fixed pool of classification workers over a FIFO queue.
type Scheduler struct {
	classify ClassifyFunc
	ceiling  int

	mu      sync.Mutex
	cond    *sync.Cond
	pending []*entry          // not yet dispatched, oldest first
	byFP    map[string]*entry // queued or in-flight, keyed by fingerprint

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped bool
}

// New creates a scheduler with the given ceiling. Non-positive ceilings fall
// back to DefaultCeiling.
func New(ceiling int, fn ClassifyFunc) *Scheduler {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	s := &Scheduler{
		classify: fn,
		ceiling:  ceiling,
		byFP:     make(map[string]*entry),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start spawns the worker pool. Only the first call succeeds.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	for i := 0; i < s.ceiling; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return nil
}

// Stop shuts the pool down and waits for in-flight work to finish.
// Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.cond.Broadcast()
	s.wg.Wait()
}

// Submit queues a task. If a task with the same fingerprint is already queued
// or in flight, cb attaches to its pending result and no new work is issued.
func (s *Scheduler) Submit(task Task, cb Callback) {
	if task.Fingerprint == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	if e, ok := s.byFP[task.Fingerprint]; ok {
		if cb != nil {
			e.callbacks = append(e.callbacks, cb)
		}
		return
	}

	e := &entry{task: task}
	if cb != nil {
		e.callbacks = append(e.callbacks, cb)
	}
	s.byFP[task.Fingerprint] = e
	s.pending = append(s.pending, e)
	s.cond.Signal()
}

// DropQueued removes all not-yet-dispatched tasks for an app without invoking
// classification. In-flight tasks run to completion; the caller discards their
// results. Returns the number of tasks dropped.
func (s *Scheduler) DropQueued(appID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.pending[:0]
	dropped := 0
	for _, e := range s.pending {
		if e.task.AppID == appID {
			delete(s.byFP, e.task.Fingerprint)
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	s.pending = kept
	return dropped
}

// QueueLen reports the number of tasks waiting for a worker slot.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if s.stopped {
			s.mu.Unlock()
			return
		}
		e := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		v := s.run(e.task)

		s.mu.Lock()
		delete(s.byFP, e.task.Fingerprint)
		callbacks := e.callbacks
		s.mu.Unlock()

		for _, cb := range callbacks {
			cb(e.task.Fingerprint, v)
		}
	}
}

// run invokes the classifier, shielding the worker from panics: one failure
// must never block the pipeline, so a panicking call yields a degraded
// default-safe verdict and the slot frees immediately.
func (s *Scheduler) run(task Task) (v classify.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			v = classify.Verdict{
				Productive: true,
				Confidence: 0,
				Rationale:  classify.RationaleOracleError,
			}
		}
	}()
	return s.classify(s.ctx, task)
}
