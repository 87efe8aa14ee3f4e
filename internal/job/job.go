package job

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evdata/evdata/internal/common"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusSuccess  Status = "success"
	StatusFailure  Status = "failure"
	StatusRevoked  Status = "revoked"
	StatusRetrying Status = "retrying"
)

// Statuses lists every state in lifecycle order.
var Statuses = []Status{StatusPending, StatusRunning, StatusRetrying, StatusSuccess, StatusFailure, StatusRevoked}

// Terminal reports whether a job in this state can still change.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure || s == StatusRevoked
}

// Valid reports whether s is a known state.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

type Job struct {
	ID          string     `json:"id"`
	Task        string     `json:"task"`
	Args        []any      `json:"args,omitempty"`
	Status      Status     `json:"status"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	Retries     int        `json:"retries"`
	MaxRetries  int        `json:"max_retries"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func New(task string, args []any, maxRetries int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:         uuid.NewString(),
		Task:       task,
		Args:       args,
		Status:     StatusPending,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (j *Job) clone() *Job {
	cp := *j
	if j.Args != nil {
		cp.Args = append([]any(nil), j.Args...)
	}
	return &cp
}

// Store keeps jobs in memory for the lifetime of the process.
type Store struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string // submission order
}

func NewStore() *Store {
	return &Store{
		jobs:  make(map[string]*Job),
		order: make([]string, 0),
	}
}

func (s *Store) Add(j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; ok {
		return common.InvalidArgumentf("task %s already exists", j.ID)
	}
	s.jobs[j.ID] = j.clone()
	s.order = append(s.order, j.ID)
	return nil
}

func (s *Store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, common.NotFoundf("task not found: %s", id)
	}
	return j.clone(), nil
}

func (s *Store) Update(id string, fn func(*Job) error) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, common.NotFoundf("task not found: %s", id)
	}
	next := j.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()
	s.jobs[id] = next
	return next.clone(), nil
}

func (s *Store) List(limit, offset int, status string) ([]*Job, int, error) {
	s.mu.RLock()
	var all []*Job
	for _, id := range s.order {
		j := s.jobs[id]
		if status == "" || string(j.Status) == status {
			all = append(all, j.clone())
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(all)
	page, total := paginate(all, limit, offset)
	return page, total, nil
}

func (s *Store) Close() error {
	return nil
}

func sortNewestFirst(jobs []*Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}

func paginate(jobs []*Job, limit, offset int) ([]*Job, int) {
	total := len(jobs)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*Job{}, total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return jobs[offset:end], total
}
