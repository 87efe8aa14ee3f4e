package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/evdata/evdata/internal/db"
)

const (
	SystemNamespace = "evdata/"
	keyPrefix       = "tasks/"
)

// PersistentStore keeps jobs as JSON values in badger so results survive
// restarts of the process.
type PersistentStore struct {
	dbStore *db.Store
}

func NewPersistentStore(dbStore *db.Store) *PersistentStore {
	return &PersistentStore{dbStore: dbStore}
}

func (s *PersistentStore) Add(j *Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := s.dbStore.Set(SystemNamespace, keyPrefix+j.ID, data); err != nil {
		return fmt.Errorf("store task: %w", err)
	}
	return nil
}

func (s *PersistentStore) Get(id string) (*Job, error) {
	data, err := s.dbStore.Get(SystemNamespace, keyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &j, nil
}

func (s *PersistentStore) Update(id string, fn func(*Job) error) (*Job, error) {
	var updated Job
	err := s.dbStore.Update(SystemNamespace, keyPrefix+id, func(data []byte) ([]byte, error) {
		var j Job
		if err := json.Unmarshal(data, &j); err != nil {
			return nil, fmt.Errorf("unmarshal task: %w", err)
		}
		if err := fn(&j); err != nil {
			return nil, err
		}
		j.UpdatedAt = time.Now().UTC()
		updated = j
		return json.Marshal(&j)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *PersistentStore) List(limit, offset int, status string) ([]*Job, int, error) {
	var all []*Job
	err := s.dbStore.Scan(SystemNamespace, keyPrefix, func(_ string, value []byte) error {
		var j Job
		if err := json.Unmarshal(value, &j); err != nil {
			return nil // skip unreadable entries
		}
		if status == "" || string(j.Status) == status {
			all = append(all, &j)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	sortNewestFirst(all)
	page, total := paginate(all, limit, offset)
	return page, total, nil
}

func (s *PersistentStore) Close() error {
	return s.dbStore.Close()
}
