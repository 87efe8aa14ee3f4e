package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evdata/evdata/internal/common"
)

func newTestExecutor(t *testing.T, opts ...Option) *Executor {
	t.Helper()
	opts = append([]Option{WithRetryDelay(10 * time.Millisecond)}, opts...)
	e := NewExecutor(NewStore(), opts...)
	t.Cleanup(e.Stop)
	return e
}

// waitStatus polls the executor until the job reaches want.
func waitStatus(t *testing.T, e *Executor, id string, want func(Status) bool) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := e.Status(id)
		require.NoError(t, err)
		if want(j.Status) {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	j, _ := e.Status(id)
	t.Fatalf("task %s stuck in %s", id, j.Status)
	return nil
}

func waitFor(t *testing.T, e *Executor, id string) *Job {
	t.Helper()
	return waitStatus(t, e, id, Status.Terminal)
}

func is(s Status) func(Status) bool {
	return func(got Status) bool { return got == s }
}

func TestExecutor_Lifecycle(t *testing.T) {
	e := newTestExecutor(t)
	release := make(chan struct{})
	var runs atomic.Int32
	e.Register("echo", func(ctx context.Context, args ...any) (any, error) {
		runs.Add(1)
		<-release
		return args[0], nil
	})

	id, err := e.Submit("echo", "hello")
	require.NoError(t, err)

	j, err := e.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, j.Status, "pending before start")

	e.Start()
	waitStatus(t, e, id, is(StatusRunning))

	close(release)
	j = waitFor(t, e, id)
	require.Equal(t, StatusSuccess, j.Status, j.Error)
	assert.Equal(t, "hello", j.Result)
	assert.NotNil(t, j.StartedAt)
	assert.NotNil(t, j.CompletedAt)
	assert.Equal(t, int32(1), runs.Load(), "a job queued before Start runs once")
}

func TestExecutor_RetriesThenFails(t *testing.T) {
	e := newTestExecutor(t, WithMaxRetries(3))
	var attempts atomic.Int32
	e.Register("flaky", func(ctx context.Context, args ...any) (any, error) {
		attempts.Add(1)
		return nil, common.NoDataf("no data for brand")
	})
	e.Start()

	id, err := e.Submit("flaky")
	require.NoError(t, err)

	j := waitFor(t, e, id)
	require.Equal(t, StatusFailure, j.Status)
	assert.Equal(t, 3, j.Retries)
	assert.Equal(t, int32(4), attempts.Load())
	assert.Contains(t, j.Error, "no data")
}

func TestExecutor_RetryThenSuccess(t *testing.T) {
	e := newTestExecutor(t)
	var attempts atomic.Int32
	e.Register("second-time", func(ctx context.Context, args ...any) (any, error) {
		if attempts.Add(1) == 1 {
			return nil, errors.New("transient")
		}
		return 42, nil
	})
	e.Start()

	id, err := e.Submit("second-time")
	require.NoError(t, err)

	j := waitFor(t, e, id)
	require.Equal(t, StatusSuccess, j.Status)
	assert.Equal(t, 1, j.Retries)
	assert.Equal(t, 42, j.Result)
}

func TestExecutor_PanicBecomesFailure(t *testing.T) {
	e := newTestExecutor(t, WithMaxRetries(0))
	e.Register("panics", func(ctx context.Context, args ...any) (any, error) {
		panic("kaboom")
	})
	e.Start()

	id, err := e.Submit("panics")
	require.NoError(t, err)

	j := waitFor(t, e, id)
	assert.Equal(t, StatusFailure, j.Status)
	assert.Zero(t, j.Retries)
	assert.Contains(t, j.Error, "kaboom")
}

func TestExecutor_Revoke(t *testing.T) {
	e := newTestExecutor(t)
	started := make(chan struct{})
	e.Register("slow", func(ctx context.Context, args ...any) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	e.Start()

	id, err := e.Submit("slow")
	require.NoError(t, err)
	<-started

	j, err := e.Revoke(id)
	require.NoError(t, err)
	assert.Equal(t, StatusRevoked, j.Status)

	// The cancelled attempt must not overwrite the terminal state.
	time.Sleep(50 * time.Millisecond)
	j, _ = e.Status(id)
	assert.Equal(t, StatusRevoked, j.Status)
	assert.Zero(t, j.Retries)

	_, err = e.Revoke(id)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestExecutor_RevokePendingNeverRuns(t *testing.T) {
	e := newTestExecutor(t)
	var ran atomic.Bool
	e.Register("noop", func(ctx context.Context, args ...any) (any, error) {
		ran.Store(true)
		return nil, nil
	})

	id, err := e.Submit("noop")
	require.NoError(t, err)
	_, err = e.Revoke(id)
	require.NoError(t, err)
	e.Start()
	time.Sleep(50 * time.Millisecond)

	assert.False(t, ran.Load(), "revoked task ran")
	j, _ := e.Status(id)
	assert.Equal(t, StatusRevoked, j.Status)
}

func TestExecutor_SubmitUnknownTask(t *testing.T) {
	e := newTestExecutor(t)
	_, err := e.Submit("missing")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestExecutor_StatusValidation(t *testing.T) {
	e := newTestExecutor(t)

	_, err := e.Status("not-a-uuid")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = e.Status("6f1c1b0e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestExecutor_QueueFull(t *testing.T) {
	e := newTestExecutor(t, WithQueueSize(1))
	e.Register("noop", func(ctx context.Context, args ...any) (any, error) { return nil, nil })

	_, err := e.Submit("noop")
	require.NoError(t, err)
	_, err = e.Submit("noop")
	assert.Error(t, err, "queue full")

	counts, err := Stats(e.Store())
	require.NoError(t, err)
	assert.Equal(t, 1, counts[StatusFailure])
	assert.Equal(t, 1, counts[StatusPending])
}

func TestExecutor_StopFinishesEveryJob(t *testing.T) {
	e := newTestExecutor(t, WithWorkers(1), WithRetryDelay(time.Hour))
	started := make(chan struct{}, 4)
	e.Register("block", func(ctx context.Context, args ...any) (any, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	})
	e.Register("flaky", func(ctx context.Context, args ...any) (any, error) {
		return nil, errors.New("transient")
	})
	e.Start()

	retrying, err := e.Submit("flaky")
	require.NoError(t, err)
	waitStatus(t, e, retrying, is(StatusRetrying))

	running, err := e.Submit("block")
	require.NoError(t, err)
	<-started
	queued, err := e.Submit("block")
	require.NoError(t, err)

	e.Stop()

	for _, id := range []string{retrying, running, queued} {
		j, err := e.Status(id)
		require.NoError(t, err)
		assert.Equal(t, StatusFailure, j.Status, id)
		assert.Contains(t, j.Error, "executor stopped", id)
		assert.NotNil(t, j.CompletedAt, id)
	}

	_, err = e.Submit("block")
	assert.Error(t, err, "submit after stop")
}

func TestExecutor_ResumesUnfinishedAfterRestart(t *testing.T) {
	dir := t.TempDir()

	// Leave jobs behind as a process killed mid-flight would.
	store, err := NewSQLStore(dir)
	require.NoError(t, err)
	left := map[string]Status{}
	for arg, status := range map[string]Status{
		"queued":   StatusPending,
		"retrying": StatusRetrying,
		"running":  StatusRunning,
	} {
		j := New("echo", []any{arg}, 3)
		require.NoError(t, store.Add(j))
		_, err := store.Update(j.ID, func(j *Job) error {
			j.Status = status
			return nil
		})
		require.NoError(t, err)
		left[j.ID] = status
	}
	done := New("echo", []any{"done"}, 3)
	require.NoError(t, store.Add(done))
	_, err = store.Update(done.ID, func(j *Job) error {
		j.Status = StatusSuccess
		j.Result = "earlier result"
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewSQLStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	e := NewExecutor(store, WithWorkers(1), WithQueueSize(1), WithRetryDelay(10*time.Millisecond))
	t.Cleanup(e.Stop)
	var runs atomic.Int32
	e.Register("echo", func(ctx context.Context, args ...any) (any, error) {
		runs.Add(1)
		return args[0], nil
	})
	e.Start()

	for id, was := range left {
		j := waitFor(t, e, id)
		assert.Equal(t, StatusSuccess, j.Status, "job left %s", was)
		assert.Equal(t, j.Args[0], j.Result)
	}

	j, err := e.Status(done.ID)
	require.NoError(t, err)
	assert.Equal(t, "earlier result", j.Result, "finished jobs are not rerun")
	assert.Equal(t, int32(3), runs.Load())
}
