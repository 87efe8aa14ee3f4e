package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/evdata/evdata/internal/job"
	"github.com/evdata/evdata/internal/logger"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	writeTimeout        = 5 * time.Second
)

// StatusSource looks up job snapshots. *job.Executor satisfies it.
type StatusSource interface {
	Status(id string) (*job.Job, error)
}

// Server streams a task's state to websocket clients by polling the result
// store, the same store the HTTP status endpoint reads.
type Server struct {
	src      StatusSource
	interval time.Duration
	log      *logrus.Entry
}

func NewServer(src StatusSource, interval time.Duration) *Server {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Server{src: src, interval: interval, log: logger.Component("ws")}
}

// HandleTask serves /ws/tasks/{id}. A status message is sent on connect and
// whenever the state or retry count changes; the connection is closed
// normally once the task is terminal.
func (s *Server) HandleTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.WithError(err).Warn("websocket accept")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected exit")

	log := s.log.WithField("task_id", id)
	// Nothing is expected from the client; CloseRead handles its control frames.
	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var last *job.Job
	for {
		j, err := s.src.Status(id)
		if err != nil {
			_ = write(ctx, conn, ErrorMessage{Type: "error", TaskID: id, Error: err.Error()})
			conn.Close(websocket.StatusPolicyViolation, "unknown task")
			return
		}

		if changed(last, j) {
			if err := write(ctx, conn, StatusMessage{Type: "status", Task: j}); err != nil {
				log.WithError(err).Debug("client gone")
				return
			}
			last = j
		}
		if j.Status.Terminal() {
			conn.Close(websocket.StatusNormalClosure, string(j.Status))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func changed(prev, cur *job.Job) bool {
	return prev == nil || prev.Status != cur.Status || prev.Retries != cur.Retries
}

func write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
