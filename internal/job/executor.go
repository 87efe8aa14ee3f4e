package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/evdata/evdata/internal/common"
	"github.com/evdata/evdata/internal/logger"
	"github.com/evdata/evdata/internal/metrics"
)

// TaskFunc is the body of a named task. Args are the values given to Submit.
type TaskFunc func(ctx context.Context, args ...any) (any, error)

const (
	DefaultWorkers    = 2
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5 * time.Second
	DefaultQueueSize  = 256
)

type Option func(*Executor)

func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMaxRetries sets how many times a failed task runs again before it
// is marked failure.
func WithMaxRetries(n int) Option {
	return func(e *Executor) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(e *Executor) {
		if d >= 0 {
			e.retryDelay = d
		}
	}
}

func WithQueueSize(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// Executor runs registered tasks on a pool of worker goroutines. Submit only
// records the job and enqueues its id; workers write every state change to
// the store, which is what Status reads.
type Executor struct {
	store      JobStore
	workers    int
	maxRetries int
	retryDelay time.Duration
	queueSize  int

	mu      sync.Mutex
	tasks   map[string]TaskFunc
	running map[string]context.CancelFunc
	queued  map[string]struct{}
	timers  map[string]*time.Timer
	started bool

	queue  chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *logrus.Entry
}

func NewExecutor(store JobStore, opts ...Option) *Executor {
	e := &Executor{
		store:      store,
		workers:    DefaultWorkers,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		queueSize:  DefaultQueueSize,
		tasks:      make(map[string]TaskFunc),
		running:    make(map[string]context.CancelFunc),
		queued:     make(map[string]struct{}),
		timers:     make(map[string]*time.Timer),
		log:        logger.Component("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.queue = make(chan string, e.queueSize)
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

// Register binds a task name to its body. Registering a name twice replaces it.
func (e *Executor) Register(name string, fn TaskFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks[name] = fn
}

func (e *Executor) task(name string) (TaskFunc, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn, ok := e.tasks[name]
	return fn, ok
}

// Store exposes the result store for listing and stats.
func (e *Executor) Store() JobStore {
	return e.store
}

// Start launches the workers. Jobs a previous executor left pending,
// retrying or running in the same store are queued again. Calling it again
// is a no-op.
func (e *Executor) Start() {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{"workers": e.workers, "max_retries": e.maxRetries, "retry_delay": e.retryDelay}).Info("starting executor")
	backlog, err := e.unfinished()
	if err != nil {
		e.log.WithError(err).Error("scan unfinished tasks")
	}
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	if len(backlog) > 0 {
		e.log.WithField("tasks", len(backlog)).Info("resuming unfinished tasks")
		e.wg.Add(1)
		go e.requeue(backlog)
	}
}

// Stop cancels running tasks and waits for the workers to exit. Jobs still
// queued or waiting for a retry are marked failure.
func (e *Executor) Stop() {
	e.log.Info("stopping executor")
	e.cancel()

	var left []string
	e.mu.Lock()
	for id, t := range e.timers {
		if t.Stop() {
			left = append(left, id)
			e.wg.Done()
		}
		delete(e.timers, id)
	}
	e.mu.Unlock()

	e.wg.Wait()

	for drained := false; !drained; {
		select {
		case id := <-e.queue:
			left = append(left, id)
		default:
			drained = true
		}
	}
	for _, id := range left {
		e.abandon(id)
	}
}

// Submit records a pending job and enqueues it without waiting for it to run.
func (e *Executor) Submit(name string, args ...any) (string, error) {
	if _, ok := e.task(name); !ok {
		return "", common.InvalidArgumentf("unknown task %q", name)
	}
	if e.ctx.Err() != nil {
		return "", fmt.Errorf("executor stopped")
	}

	j := New(name, args, e.maxRetries)
	if err := e.store.Add(j); err != nil {
		return "", fmt.Errorf("add task: %w", err)
	}
	metrics.TasksSubmitted.WithLabelValues(name).Inc()

	e.mark(j.ID)
	select {
	case e.queue <- j.ID:
	default:
		e.unmark(j.ID)
		_, _ = e.finish(j.ID, StatusFailure, nil, "task queue full")
		return "", fmt.Errorf("task queue full (%d)", e.queueSize)
	}

	e.log.WithFields(logrus.Fields{"task_id": j.ID, "task": name}).Info("task submitted")
	return j.ID, nil
}

// Status returns the current snapshot of a job.
func (e *Executor) Status(id string) (*Job, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return e.store.Get(id)
}

// Revoke moves a job that has not finished to revoked and cancels its
// attempt if one is running.
func (e *Executor) Revoke(id string) (*Job, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	j, err := e.store.Update(id, func(j *Job) error {
		if j.Status.Terminal() {
			return common.InvalidArgumentf("task %s already %s", j.ID, j.Status)
		}
		j.Status = StatusRevoked
		now := time.Now().UTC()
		j.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if cancel, ok := e.running[id]; ok {
		cancel()
	}
	e.mu.Unlock()

	metrics.TasksFinished.WithLabelValues(j.Task, string(StatusRevoked)).Inc()
	e.log.WithFields(logrus.Fields{"task_id": id, "task": j.Task}).Info("task revoked")
	return j, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.InvalidArgumentf("invalid task id %q", id)
	}
	return nil
}
