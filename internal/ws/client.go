package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"nhooyr.io/websocket"

	"github.com/evdata/evdata/internal/job"
	"github.com/evdata/evdata/internal/logger"
)

// TaskURL builds the websocket URL of a task from an http(s) base URL.
func TaskURL(base, id string) string {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/tasks/" + id
}

// Watch follows a task's status stream, calling fn for every update, and
// returns the terminal snapshot.
func Watch(ctx context.Context, url string, fn func(*job.Job)) (*job.Job, error) {
	log := logger.Component("watch")
	log.Debugf("Connecting to %s...", url)

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "goodbye")

	var last *job.Job
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure && last != nil && last.Status.Terminal() {
				return last, nil
			}
			return last, fmt.Errorf("read: %w", err)
		}

		var base BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			log.WithError(err).Warn("invalid message")
			continue
		}

		switch base.Type {
		case "status":
			var msg StatusMessage
			if err := json.Unmarshal(data, &msg); err != nil || msg.Task == nil {
				log.WithError(err).Warn("invalid status message")
				continue
			}
			last = msg.Task
			if fn != nil {
				fn(last)
			}
			if last.Status.Terminal() {
				return last, nil
			}

		case "error":
			var msg ErrorMessage
			_ = json.Unmarshal(data, &msg)
			return nil, errors.New(msg.Error)

		default:
			log.Warnf("Unknown message type: %s", base.Type)
		}
	}
}
