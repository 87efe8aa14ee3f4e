package job

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"

	"github.com/evdata/evdata/internal/common"
)

// SQLStore keeps jobs in a SQLite table. Status and creation time are
// columns for filtering and ordering; the full job is a JSON document.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens (or creates) tasks.db under dataDir.
func NewSQLStore(dataDir string) (*SQLStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, "tasks.db"))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers; SQLite allows a single writer anyway.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	q := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		task TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		data BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_status_created ON tasks(status, created_at);
	`
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

func (s *SQLStore) Add(j *Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO tasks(id, task, status, created_at, data) VALUES(?,?,?,?,?)`,
		j.ID, j.Task, string(j.Status), j.CreatedAt.UnixNano(), data)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(id string) (*Job, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM tasks WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("task not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return decodeJob(data)
}

func (s *SQLStore) Update(id string, fn func(*Job) error) (*Job, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var data []byte
	err = tx.QueryRow(`SELECT data FROM tasks WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("task not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	j, err := decodeJob(data)
	if err != nil {
		return nil, err
	}
	if err := fn(j); err != nil {
		return nil, err
	}
	j.UpdatedAt = time.Now().UTC()

	if data, err = json.Marshal(j); err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	if _, err := tx.Exec(`UPDATE tasks SET status = ?, data = ? WHERE id = ?`, string(j.Status), data, id); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return j, nil
}

func (s *SQLStore) List(limit, offset int, status string) ([]*Job, int, error) {
	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE (? = '' OR status = ?)`, status, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(`SELECT data FROM tasks WHERE (? = '' OR status = ?) ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		status, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	jobs := []*Job{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		j, err := decodeJob(data)
		if err != nil {
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func decodeJob(data []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &j, nil
}
