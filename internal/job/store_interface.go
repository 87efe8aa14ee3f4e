package job

// JobStore is the result store shared by the executor and status readers.
// Get returns a snapshot; Update applies fn atomically to a copy and stores it
// unless fn returns an error.
type JobStore interface {
	Add(j *Job) error
	Get(id string) (*Job, error)
	Update(id string, fn func(*Job) error) (*Job, error)
	List(limit, offset int, status string) ([]*Job, int, error)
	Close() error
}

// Stats counts jobs per state.
func Stats(s JobStore) (map[Status]int, error) {
	jobs, _, err := s.List(0, 0, "")
	if err != nil {
		return nil, err
	}
	counts := make(map[Status]int, len(Statuses))
	for _, st := range Statuses {
		counts[st] = 0
	}
	for _, j := range jobs {
		counts[j.Status]++
	}
	return counts, nil
}
