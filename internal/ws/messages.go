package ws

import "github.com/evdata/evdata/internal/job"

type BaseMessage struct {
	Type string `json:"type"`
}

// Server → client

type StatusMessage struct {
	Type string   `json:"type"`
	Task *job.Job `json:"task"`
}

type ErrorMessage struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}
