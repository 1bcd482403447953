// Package tasks runs background document processing and result normalization
// jobs on an in-process worker pool with per-kind retry policies.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Kind identifies a category of background work.
type Kind string

const (
	KindProcessDocument Kind = "process_document"
	KindNormalizeResult Kind = "normalize_result"
)

// Handler executes one task. The id is the entity the task operates on.
type Handler func(ctx context.Context, id uuid.UUID) error

// RetryPolicy controls how a failed task is retried. The delay before retry
// n is BaseDelay doubled n times.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Default retry policies. Document processing calls an external extraction
// service, so it retries longer than normalization, which only touches the
// local database.
var (
	ProcessDocumentPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: 60 * time.Second}
	NormalizeResultPolicy = RetryPolicy{MaxRetries: 2, BaseDelay: 30 * time.Second}
)

type task struct {
	kind    Kind
	id      uuid.UUID
	attempt int
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency sets the number of workers.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithQueueSize sets the pending task buffer size.
func WithQueueSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// Runner dispatches queued tasks to registered handlers.
type Runner struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
	policies map[Kind]RetryPolicy

	concurrency int
	queueSize   int
	queue       chan task
	log         zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(log zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		handlers:    make(map[Kind]Handler),
		policies:    make(map[Kind]RetryPolicy),
		concurrency: 4,
		queueSize:   1024,
		log:         log,
	}
	for _, o := range opts {
		o(r)
	}
	r.queue = make(chan task, r.queueSize)
	return r
}

// Register binds a handler and retry policy to a task kind. It must be called
// before Start.
func (r *Runner) Register(kind Kind, h Handler, policy RetryPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
	r.policies[kind] = policy
}

// Start launches the worker pool. Workers stop when ctx is cancelled or Stop
// is called.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	for i := 0; i < r.concurrency; i++ {
		r.wg.Add(1)
		go r.worker(ctx)
	}
	r.log.Info().Int("concurrency", r.concurrency).Msg("task runner started")
}

// Stop cancels the workers and waits for in-flight tasks to finish. Retries
// scheduled for the future are dropped.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.log.Info().Msg("task runner stopped")
}

// Enqueue schedules a task for execution. It never blocks; when the queue is
// full the task is dropped and logged.
func (r *Runner) Enqueue(kind Kind, id uuid.UUID) {
	r.enqueue(task{kind: kind, id: id})
}

func (r *Runner) enqueue(t task) {
	select {
	case r.queue <- t:
	default:
		r.log.Error().Str("kind", string(t.kind)).Str("id", t.id.String()).Msg("task queue full, dropping task")
	}
}

func (r *Runner) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.queue:
			r.run(ctx, t)
		}
	}
}

func (r *Runner) run(ctx context.Context, t task) {
	r.mu.RLock()
	h, ok := r.handlers[t.kind]
	policy := r.policies[t.kind]
	r.mu.RUnlock()
	if !ok {
		r.log.Error().Str("kind", string(t.kind)).Msg("no handler registered for task kind")
		return
	}

	err := h(ctx, t.id)
	if err == nil {
		return
	}
	if ctx.Err() != nil {
		return
	}

	if t.attempt >= policy.MaxRetries {
		r.log.Error().Err(err).
			Str("kind", string(t.kind)).
			Str("id", t.id.String()).
			Int("attempts", t.attempt+1).
			Msg("task failed, giving up")
		return
	}

	delay := policy.BaseDelay << t.attempt
	r.log.Warn().Err(err).
		Str("kind", string(t.kind)).
		Str("id", t.id.String()).
		Int("attempt", t.attempt+1).
		Dur("retry_in", delay).
		Msg("task failed, scheduling retry")

	next := task{kind: t.kind, id: t.id, attempt: t.attempt + 1}
	time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		r.enqueue(next)
	})
}
