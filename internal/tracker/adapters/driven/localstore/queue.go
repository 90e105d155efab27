package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"freight-tracker/internal/tracker/core/domain/model"
)

// QueueStore is the offline location queue: a JSON array file, appended on
// failed sends and cleared after a successful bulk flush. Read-modify-write
// is serialized in-process; the background task is the only writer in
// practice.
type QueueStore struct {
	path string

	mu sync.Mutex
}

func OpenQueue(path string) *QueueStore {
	return &QueueStore{path: path}
}

func (q *QueueStore) Append(ctx context.Context, payload model.LocationUpdatePayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load()
	if err != nil {
		return err
	}
	entries = append(entries, payload)
	return q.save(entries)
}

func (q *QueueStore) Load(ctx context.Context) ([]model.LocationUpdatePayload, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

func (q *QueueStore) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	err := os.Remove(q.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing queue: %w", err)
	}
	return nil
}

func (q *QueueStore) load() ([]model.LocationUpdatePayload, error) {
	data, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading queue: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []model.LocationUpdatePayload
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing queue: %w", err)
	}
	return entries, nil
}

func (q *QueueStore) save(entries []model.LocationUpdatePayload) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding queue: %w", err)
	}
	if err := os.WriteFile(q.path, data, storeFileMode); err != nil {
		return fmt.Errorf("writing queue: %w", err)
	}
	return nil
}
