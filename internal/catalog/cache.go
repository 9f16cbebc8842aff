// Package catalog is the device-side read-through cache of the remote job and
// category collections. Searches and filters run over memory only; category
// job counts are always recomputed from the cached jobs.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/result"
	"github.com/jonathan/govjob-alerts/internal/types"
)

// Remote is the authoritative job and category store.
type Remote interface {
	// Jobs returns the full job collection.
	Jobs(ctx context.Context) ([]types.Job, error)
	// Job returns one job, or nil when it does not exist.
	Job(ctx context.Context, id string) (*types.Job, error)
	// Categories returns the full category collection.
	Categories(ctx context.Context) ([]types.JobCategory, error)
}

// ErrNoRemote is returned by operations that need a remote when none is set.
var ErrNoRemote = errors.New("no remote catalog configured")

// Cache holds the in-memory job and category lists.
type Cache struct {
	remote Remote
	logger *zap.Logger
	now    func() time.Time

	mu         sync.RWMutex
	jobs       []types.Job
	categories []types.JobCategory
	refreshed  time.Time
}

// NewCache creates an empty cache seeded with the built-in categories.
func NewCache(remote Remote, logger *zap.Logger) *Cache {
	return &Cache{
		remote:     remote,
		logger:     logging.OrNop(logger).Named("catalog"),
		now:        time.Now,
		jobs:       []types.Job{},
		categories: types.DefaultCategories(),
	}
}

// Refresh replaces the job list with the full remote result. On failure the
// list is cleared rather than left stale.
func (c *Cache) Refresh(ctx context.Context) result.Result[int] {
	res := result.Guard(c.logger, "refresh jobs", func() ([]types.Job, error) {
		if c.remote == nil {
			return nil, ErrNoRemote
		}
		return c.remote.Jobs(ctx)
	})

	jobs := res.Value
	if !res.OK() || jobs == nil {
		jobs = []types.Job{}
	}

	c.mu.Lock()
	c.jobs = jobs
	c.refreshed = c.now()
	c.mu.Unlock()

	if !res.OK() {
		return result.Fail[int](res.Err())
	}
	c.logger.Debug("jobs refreshed", zap.Int("count", len(jobs)))
	return result.OK(len(jobs))
}

// RefreshCategories replaces the category list. On failure the built-in
// list is restored.
func (c *Cache) RefreshCategories(ctx context.Context) result.Result[int] {
	res := result.Guard(c.logger, "refresh categories", func() ([]types.JobCategory, error) {
		if c.remote == nil {
			return nil, ErrNoRemote
		}
		return c.remote.Categories(ctx)
	})

	categories := res.Value
	if !res.OK() {
		categories = types.DefaultCategories()
	}

	c.mu.Lock()
	c.categories = categories
	c.mu.Unlock()

	if !res.OK() {
		return result.Fail[int](res.Err())
	}
	return result.OK(len(categories))
}

// LastRefresh returns when Refresh last ran, or the zero time.
func (c *Cache) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshed
}

// Jobs returns a copy of the cached jobs with derived fields filled.
func (c *Cache) Jobs() []types.Job {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot(c.jobs)
}

func (c *Cache) snapshot(jobs []types.Job) []types.Job {
	out := make([]types.Job, len(jobs))
	copy(out, jobs)
	types.DeriveAll(out, c.now())
	return out
}

// Categories returns a copy of the cached categories with job counts
// recomputed from the cached jobs.
func (c *Cache) Categories() []types.JobCategory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.JobCategory, len(c.categories))
	copy(out, c.categories)
	return types.CountJobs(out, c.jobs)
}

// FindJob looks a job up in the cache.
func (c *Cache) FindJob(id string) (types.Job, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, job := range c.jobs {
		if job.ID == id {
			job.Derive(c.now())
			return job, true
		}
	}
	return types.Job{}, false
}

// FetchJob reads a single job from the remote store. It returns nil when the
// job does not exist.
func (c *Cache) FetchJob(ctx context.Context, id string) (*types.Job, error) {
	if c.remote == nil {
		return nil, ErrNoRemote
	}
	job, err := c.remote.Job(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	job.Derive(c.now())
	return job, nil
}

// Search matches query case-insensitively against title, organization,
// description and tags. An empty query returns every job.
func (c *Cache) Search(query string) []types.Job {
	q := strings.ToLower(strings.TrimSpace(query))

	c.mu.RLock()
	defer c.mu.RUnlock()
	if q == "" {
		return c.snapshot(c.jobs)
	}

	var matched []types.Job
	for _, job := range c.jobs {
		if matches(job, q) {
			matched = append(matched, job)
		}
	}
	return c.snapshot(matched)
}

func matches(job types.Job, q string) bool {
	if strings.Contains(strings.ToLower(job.Title), q) ||
		strings.Contains(strings.ToLower(job.Organization), q) ||
		strings.Contains(strings.ToLower(job.Description), q) {
		return true
	}
	for _, tag := range job.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// ByCategory returns the cached jobs in a category.
func (c *Cache) ByCategory(categoryID string) []types.Job {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matched []types.Job
	for _, job := range c.jobs {
		if job.Category == categoryID {
			matched = append(matched, job)
		}
	}
	return c.snapshot(matched)
}

// Latest returns up to n jobs, newest first. n <= 0 returns all of them.
func (c *Cache) Latest(n int) []types.Job {
	jobs := c.Jobs()
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if n > 0 && len(jobs) > n {
		jobs = jobs[:n]
	}
	return jobs
}

// CategoryByName resolves a category from a link or display name. It matches
// ids and names case-insensitively and treats '-' and '_' as equal.
func (c *Cache) CategoryByName(name string) (types.JobCategory, bool) {
	want := normalizeName(name)
	if want == "" {
		return types.JobCategory{}, false
	}
	for _, cat := range c.Categories() {
		if normalizeName(cat.ID) == want || normalizeName(cat.Name) == want {
			return cat, true
		}
	}
	return types.JobCategory{}, false
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

// DisplayName returns the cached category name for id, or id itself.
func (c *Cache) DisplayName(id string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cat := range c.categories {
		if cat.ID == id {
			return cat.Name
		}
	}
	return id
}

// SavedJobs resolves saved entries against the cache in saved order,
// skipping ids that are no longer present.
func (c *Cache) SavedJobs(saved []types.SavedJob) []types.Job {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byID := make(map[string]types.Job, len(c.jobs))
	for _, job := range c.jobs {
		byID[job.ID] = job
	}

	out := make([]types.Job, 0, len(saved))
	for _, s := range saved {
		if job, ok := byID[s.JobID]; ok {
			out = append(out, job)
		}
	}
	return c.snapshot(out)
}
