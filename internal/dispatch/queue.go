// Package dispatch serialises mutation batches on their way to the note
// store. The store has no transactions across calls, so only one batch
// runs at a time, and each batch is bounded by a timeout.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pbaille/kanban/internal/board"
)

// DefaultTimeout bounds a job when the queue is built with no timeout
const DefaultTimeout = 5 * time.Second

var (
	ErrTimeout = errors.New("dispatch timed out")
	ErrAborted = errors.New("dispatch aborted")
	ErrClosed  = errors.New("dispatch queue closed")
)

// Func is a unit of work run by the queue
type Func func(ctx context.Context) error

// BatchApplier executes a batch of mutations against a store
type BatchApplier interface {
	ApplyBatch(ctx context.Context, muts []board.Mutation) error
}

type job struct {
	ctx    context.Context
	fn     Func
	result chan error
}

// Queue runs jobs one at a time in FIFO order
type Queue struct {
	timeout time.Duration
	log     *log.Logger

	mu      sync.Mutex
	pending []*job
	closed  bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// New starts a queue whose jobs fail with ErrTimeout after timeout
func New(timeout time.Duration, logger *log.Logger) *Queue {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	q := &Queue{
		timeout: timeout,
		log:     logger,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	q.wg.Add(1)
	go q.loop()
	return q
}

// Enqueue adds fn to the queue and waits for its result. The error is
// fn's own, ErrTimeout, ErrAborted, or the context error when ctx ends
// first.
func (q *Queue) Enqueue(ctx context.Context, fn Func) error {
	j := &job{ctx: ctx, fn: fn, result: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.pending = append(q.pending, j)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply enqueues one synthesized batch for a
func (q *Queue) Apply(ctx context.Context, a BatchApplier, muts []board.Mutation) error {
	if len(muts) == 0 {
		return nil
	}
	_, err := q.Run(ctx, a, func(context.Context) ([]board.Mutation, error) {
		return muts, nil
	})
	return err
}

// BuildFunc synthesizes a batch from the store state it reads
type BuildFunc func(ctx context.Context) ([]board.Mutation, error)

// Run enqueues a job that calls build and applies the batch it returns to
// a. Reading the store and writing the batch happen in the same job, so no
// other batch can land in between. A build error is returned as is and
// nothing is applied.
func (q *Queue) Run(ctx context.Context, a BatchApplier, build BuildFunc) ([]board.Mutation, error) {
	var (
		mu    sync.Mutex
		batch []board.Mutation
	)
	start := time.Now()
	err := q.Enqueue(ctx, func(ctx context.Context) error {
		muts, err := build(ctx)
		if err != nil || len(muts) == 0 {
			return err
		}
		mu.Lock()
		batch = muts
		mu.Unlock()
		return a.ApplyBatch(ctx, muts)
	})

	// the job may still be running after a timeout
	mu.Lock()
	muts := batch
	mu.Unlock()

	if len(muts) == 0 {
		return nil, err
	}
	recordBatch(len(muts), err, time.Since(start))
	if err != nil {
		q.log.WithError(err).WithField("mutations", len(muts)).Error("batch failed")
		return nil, err
	}
	q.log.WithField("mutations", len(muts)).Info("batch applied")
	return muts, nil
}

// Pending returns the number of jobs waiting to run
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Abort fails every waiting job with ErrAborted. The running job, if
// any, is left to finish.
func (q *Queue) Abort() {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, j := range pending {
		j.result <- ErrAborted
	}
	if len(pending) > 0 {
		q.log.WithField("jobs", len(pending)).Warn("aborted pending jobs")
	}
}

// Close aborts waiting jobs, waits for the running one and stops the queue
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.Abort()
	close(q.done)
	q.wg.Wait()
}

func (q *Queue) loop() {
	defer q.wg.Done()
	for {
		j := q.next()
		if j == nil {
			select {
			case <-q.wake:
				continue
			case <-q.done:
				return
			}
		}
		j.result <- q.run(j)
	}
}

func (q *Queue) next() *job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	j := q.pending[0]
	q.pending = q.pending[1:]
	return j
}

func (q *Queue) run(j *job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(j.ctx, q.timeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- j.fn(ctx)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && j.ctx.Err() == nil {
			q.log.WithField("timeout", q.timeout).Warn("job timed out")
			return ErrTimeout
		}
		return ctx.Err()
	}
}
