package admin

import (
	"context"
	"sync"

	"github.com/jonathan/govjob-alerts/internal/types"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu         sync.RWMutex
	categories map[string]types.JobCategory
	jobs       map[string]types.Job
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		categories: make(map[string]types.JobCategory),
		jobs:       make(map[string]types.Job),
	}
}

func (m *MemoryStore) ListCategories(context.Context) ([]types.JobCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.JobCategory, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	jobs := make([]types.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	return types.CountJobs(out, jobs), nil
}

func (m *MemoryStore) GetCategory(_ context.Context, id string) (*types.JobCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, nil
	}
	c.TotalJobs = 0
	for _, j := range m.jobs {
		if j.Category == id {
			c.TotalJobs++
		}
	}
	return &c, nil
}

func (m *MemoryStore) InsertCategory(_ context.Context, c *types.JobCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[c.ID]; ok {
		return ErrCategoryExists
	}
	m.categories[c.ID] = *c
	return nil
}

func (m *MemoryStore) UpdateCategory(_ context.Context, c *types.JobCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[c.ID]; !ok {
		return ErrNotFound
	}
	m.categories[c.ID] = *c
	return nil
}

func (m *MemoryStore) DeleteCategory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.categories, id)
	return nil
}

func (m *MemoryStore) CountJobsInCategory(_ context.Context, categoryID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, j := range m.jobs {
		if j.Category == categoryID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ListJobs(context.Context) ([]types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (m *MemoryStore) GetJob(_ context.Context, id string) (*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (m *MemoryStore) InsertJob(_ context.Context, j *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = *j
	return nil
}

func (m *MemoryStore) UpdateJob(_ context.Context, j *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[j.ID]; !ok {
		return ErrNotFound
	}
	m.jobs[j.ID] = *j
	return nil
}

func (m *MemoryStore) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}
