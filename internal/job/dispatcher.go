package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/evdata/evdata/internal/metrics"
)

// errSkip aborts a store update for a job that already reached a terminal state.
var errSkip = errors.New("task already finished")

func (e *Executor) worker(n int) {
	defer e.wg.Done()
	log := e.log.WithField("worker", n)
	log.Debug("worker started")

	for {
		select {
		case <-e.ctx.Done():
			log.Debug("worker exiting")
			return
		case id := <-e.queue:
			e.unmark(id)
			if e.ctx.Err() != nil {
				e.abandon(id)
				continue
			}
			e.run(id)
		}
	}
}

// enqueue puts a job id on the queue, waiting for room unless the executor
// is stopping. It reports whether the id was queued.
func (e *Executor) enqueue(id string) bool {
	e.mark(id)
	select {
	case e.queue <- id:
		return true
	case <-e.ctx.Done():
		e.unmark(id)
		return false
	}
}

func (e *Executor) mark(id string) {
	e.mu.Lock()
	e.queued[id] = struct{}{}
	e.mu.Unlock()
}

func (e *Executor) unmark(id string) {
	e.mu.Lock()
	delete(e.queued, id)
	e.mu.Unlock()
}

// unfinished returns the ids of jobs in the store that have not reached a
// terminal state and are not already queued here, oldest first.
func (e *Executor) unfinished() ([]string, error) {
	jobs, _, err := e.store.List(0, 0, "")
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	var ids []string
	for i := len(jobs) - 1; i >= 0; i-- {
		j := jobs[i]
		if j.Status.Terminal() {
			continue
		}
		if _, ok := e.queued[j.ID]; ok {
			continue
		}
		if j.Status == StatusRunning {
			e.log.WithFields(logrus.Fields{"task_id": j.ID, "task": j.Task}).Warn("task was running when its executor went away, running it again")
		}
		ids = append(ids, j.ID)
	}
	return ids, nil
}

// requeue feeds recovered jobs to the workers. Whatever cannot be queued
// before Stop is abandoned.
func (e *Executor) requeue(ids []string) {
	defer e.wg.Done()
	for i, id := range ids {
		if !e.enqueue(id) {
			for _, rest := range ids[i:] {
				e.abandon(rest)
			}
			return
		}
	}
}

// abandon fails a job that was accepted but will not run.
func (e *Executor) abandon(id string) {
	if _, err := e.finish(id, StatusFailure, nil, "executor stopped before task ran"); err == nil {
		e.log.WithField("task_id", id).Warn("task abandoned at shutdown")
	}
}

// scheduleRetry queues id again after the retry delay. Stop cancels
// pending timers.
func (e *Executor) scheduleRetry(id string) {
	e.mu.Lock()
	if e.ctx.Err() != nil {
		e.mu.Unlock()
		e.abandon(id)
		return
	}
	defer e.mu.Unlock()
	e.wg.Add(1)
	e.timers[id] = time.AfterFunc(e.retryDelay, func() {
		defer e.wg.Done()
		e.mu.Lock()
		delete(e.timers, id)
		e.mu.Unlock()
		if !e.enqueue(id) {
			e.abandon(id)
		}
	})
}

// run executes one attempt of a job and records its outcome.
func (e *Executor) run(id string) {
	j, err := e.store.Update(id, func(j *Job) error {
		if j.Status.Terminal() {
			return errSkip
		}
		j.Status = StatusRunning
		if j.StartedAt == nil {
			now := time.Now().UTC()
			j.StartedAt = &now
		}
		return nil
	})
	if errors.Is(err, errSkip) {
		return
	}
	if err != nil {
		e.log.WithError(err).WithField("task_id", id).Error("mark task running")
		return
	}

	log := e.log.WithFields(logrus.Fields{"task_id": id, "task": j.Task, "attempt": j.Retries + 1})
	fn, ok := e.task(j.Task)
	if !ok {
		_, _ = e.finish(id, StatusFailure, nil, fmt.Sprintf("unknown task %q", j.Task))
		return
	}

	ctx, cancel := context.WithCancel(e.ctx)
	e.mu.Lock()
	e.running[id] = cancel
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.running, id)
		e.mu.Unlock()
		cancel()
	}()

	log.Info("task started")
	start := time.Now()
	result, runErr := invoke(ctx, fn, j.Args)
	metrics.TaskDuration.WithLabelValues(j.Task).Observe(time.Since(start).Seconds())

	if runErr == nil {
		if _, err := e.finish(id, StatusSuccess, result, ""); err == nil {
			log.WithField("duration", time.Since(start)).Info("task succeeded")
		}
		return
	}

	if e.ctx.Err() != nil {
		_, _ = e.finish(id, StatusFailure, nil, "executor stopped: "+runErr.Error())
		log.WithError(runErr).Warn("task interrupted by shutdown")
		return
	}

	e.retryOrFail(id, runErr, log)
}

func (e *Executor) retryOrFail(id string, runErr error, log *logrus.Entry) {
	j, err := e.store.Update(id, func(j *Job) error {
		if j.Status.Terminal() {
			return errSkip
		}
		j.Error = runErr.Error()
		if j.Retries < j.MaxRetries {
			j.Retries++
			j.Status = StatusRetrying
			return nil
		}
		j.Status = StatusFailure
		now := time.Now().UTC()
		j.CompletedAt = &now
		return nil
	})
	if errors.Is(err, errSkip) {
		log.WithError(runErr).Info("task attempt ended after revoke")
		return
	}
	if err != nil {
		log.WithError(err).Error("record task failure")
		return
	}

	if j.Status == StatusFailure {
		metrics.TasksFinished.WithLabelValues(j.Task, string(StatusFailure)).Inc()
		log.WithError(runErr).Error("task failed, retries exhausted")
		return
	}

	metrics.TaskRetries.WithLabelValues(j.Task).Inc()
	log.WithError(runErr).WithField("retry_in", e.retryDelay).Warn("task failed, retrying")
	e.scheduleRetry(id)
}

// finish moves a job to a terminal state unless it is already in one.
func (e *Executor) finish(id string, status Status, result any, errMsg string) (*Job, error) {
	j, err := e.store.Update(id, func(j *Job) error {
		if j.Status.Terminal() {
			return errSkip
		}
		j.Status = status
		j.Result = result
		j.Error = errMsg
		now := time.Now().UTC()
		j.CompletedAt = &now
		return nil
	})
	if err != nil {
		if !errors.Is(err, errSkip) {
			e.log.WithError(err).WithField("task_id", id).Error("record task result")
		}
		return nil, err
	}
	metrics.TasksFinished.WithLabelValues(j.Task, string(status)).Inc()
	return j, nil
}

func invoke(ctx context.Context, fn TaskFunc, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx, args...)
}
