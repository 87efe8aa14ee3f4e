package ws

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evdata/evdata/internal/job"
)

func newTestServer(t *testing.T, e *job.Executor) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/ws/tasks/{id}", NewServer(e, 5*time.Millisecond).HandleTask)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestTaskURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8000/ws/tasks/abc", TaskURL("http://localhost:8000/", "abc"))
	assert.Equal(t, "wss://ev.example.com/ws/tasks/abc", TaskURL("https://ev.example.com", "abc"))
	assert.Equal(t, "ws://h/ws/tasks/abc", TaskURL("ws://h", "abc"))
}

func TestWatch_StreamsUntilTerminal(t *testing.T) {
	e := job.NewExecutor(job.NewStore(), job.WithRetryDelay(20*time.Millisecond), job.WithMaxRetries(1))
	t.Cleanup(e.Stop)
	attempts := 0
	e.Register("twice", func(ctx context.Context, args ...any) (any, error) {
		attempts++
		time.Sleep(30 * time.Millisecond)
		if attempts == 1 {
			return nil, context.DeadlineExceeded
		}
		return "done", nil
	})
	e.Start()
	srv := newTestServer(t, e)

	id, err := e.Submit("twice")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var states []job.Status
	final, err := Watch(ctx, TaskURL(srv.URL, id), func(j *job.Job) {
		states = append(states, j.Status)
	})
	require.NoError(t, err)
	assert.Equal(t, job.StatusSuccess, final.Status)
	assert.Equal(t, "done", final.Result)
	assert.Equal(t, 1, final.Retries)
	assert.Contains(t, states, job.StatusRetrying)
	assert.Equal(t, job.StatusSuccess, states[len(states)-1])
}

func TestWatch_UnknownTask(t *testing.T) {
	e := job.NewExecutor(job.NewStore())
	t.Cleanup(e.Stop)
	srv := newTestServer(t, e)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Watch(ctx, TaskURL(srv.URL, "not-a-uuid"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid task id")
}
