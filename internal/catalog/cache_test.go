package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/types"
)

type fakeRemote struct {
	mu         sync.Mutex
	jobs       []types.Job
	categories []types.JobCategory
	jobsErr    error
	catsErr    error
	calls      int
}

func (f *fakeRemote) Jobs(context.Context) ([]types.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.jobsErr != nil {
		return nil, f.jobsErr
	}
	return append([]types.Job(nil), f.jobs...), nil
}

func (f *fakeRemote) Job(_ context.Context, id string) (*types.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.jobsErr != nil {
		return nil, f.jobsErr
	}
	for _, j := range f.jobs {
		if j.ID == id {
			job := j
			return &job, nil
		}
	}
	return nil, nil
}

func (f *fakeRemote) Categories(context.Context) ([]types.JobCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.catsErr != nil {
		return nil, f.catsErr
	}
	return append([]types.JobCategory(nil), f.categories...), nil
}

var fixedNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func sampleJobs() []types.Job {
	return []types.Job{
		{ID: "1", Title: "Probationary Officer", Organization: "State Bank", Category: "banking", Tags: []string{"graduate"}, CreatedAt: fixedNow.Add(-24 * time.Hour)},
		{ID: "2", Title: "Loco Pilot", Organization: "Indian Railways", Category: "railway", Description: "Assistant loco pilot", CreatedAt: fixedNow.Add(-10 * 24 * time.Hour)},
		{ID: "3", Title: "Clerk", Organization: "Regional Bank", Category: "banking", Tags: []string{"10+2", "Clerical"}, CreatedAt: fixedNow.Add(-2 * time.Hour)},
	}
}

func newTestCache(remote Remote) *Cache {
	c := NewCache(remote, zap.NewNop())
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestCache_RefreshReplacesJobs(t *testing.T) {
	remote := &fakeRemote{jobs: sampleJobs()}
	c := newTestCache(remote)

	res := c.Refresh(context.Background())
	require.True(t, res.OK())
	assert.Equal(t, 3, res.Value)
	assert.Len(t, c.Jobs(), 3)
	assert.Equal(t, fixedNow, c.LastRefresh())
}

func TestCache_RefreshFailureEmptiesCache(t *testing.T) {
	remote := &fakeRemote{jobs: sampleJobs()}
	c := newTestCache(remote)
	require.True(t, c.Refresh(context.Background()).OK())
	require.Len(t, c.Jobs(), 3)

	remote.jobsErr = errors.New("network down")
	res := c.Refresh(context.Background())

	assert.False(t, res.OK())
	jobs := c.Jobs()
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
	for _, cat := range c.Categories() {
		assert.Zero(t, cat.TotalJobs, cat.ID)
	}
}

func TestCache_RefreshWithoutRemote(t *testing.T) {
	c := newTestCache(nil)
	res := c.Refresh(context.Background())
	assert.ErrorIs(t, res.Err(), ErrNoRemote)
	assert.Empty(t, c.Jobs())
}

func TestCache_CategoriesCountFromJobs(t *testing.T) {
	remote := &fakeRemote{
		jobs: sampleJobs(),
		categories: []types.JobCategory{
			{ID: "banking", Name: "Banking", TotalJobs: 99},
			{ID: "railway", Name: "Railway", TotalJobs: 99},
			{ID: "ssc", Name: "SSC"},
		},
	}
	c := newTestCache(remote)
	require.True(t, c.RefreshCategories(context.Background()).OK())
	require.True(t, c.Refresh(context.Background()).OK())

	counts := map[string]int{}
	for _, cat := range c.Categories() {
		counts[cat.ID] = cat.TotalJobs
	}
	assert.Equal(t, map[string]int{"banking": 2, "railway": 1, "ssc": 0}, counts)
}

func TestCache_RefreshCategoriesFallsBackToDefaults(t *testing.T) {
	remote := &fakeRemote{categories: []types.JobCategory{{ID: "only", Name: "Only"}}}
	c := newTestCache(remote)
	require.True(t, c.RefreshCategories(context.Background()).OK())
	require.Len(t, c.Categories(), 1)

	remote.catsErr = errors.New("timeout")
	assert.False(t, c.RefreshCategories(context.Background()).OK())
	assert.Len(t, c.Categories(), len(types.DefaultCategories()))
}

func TestCache_DerivesIsNew(t *testing.T) {
	c := newTestCache(&fakeRemote{jobs: sampleJobs()})
	require.True(t, c.Refresh(context.Background()).OK())

	isNew := map[string]bool{}
	for _, j := range c.Jobs() {
		isNew[j.ID] = j.IsNew
	}
	assert.Equal(t, map[string]bool{"1": true, "2": false, "3": true}, isNew)
}

func TestCache_SearchAndFilters(t *testing.T) {
	c := newTestCache(&fakeRemote{jobs: sampleJobs()})
	require.True(t, c.Refresh(context.Background()).OK())

	ids := func(jobs []types.Job) []string {
		out := []string{}
		for _, j := range jobs {
			out = append(out, j.ID)
		}
		return out
	}

	assert.Equal(t, []string{"1", "3"}, ids(c.Search("bank")))
	assert.Equal(t, []string{"2"}, ids(c.Search("LOCO")))
	assert.Equal(t, []string{"3"}, ids(c.Search("clerical")))
	assert.Len(t, c.Search("  "), 3)
	assert.Empty(t, c.Search("astronaut"))

	assert.Equal(t, []string{"1", "3"}, ids(c.ByCategory("banking")))
	assert.Empty(t, c.ByCategory("police"))

	assert.Equal(t, []string{"3", "1"}, ids(c.Latest(2)))
	assert.Equal(t, []string{"3", "1", "2"}, ids(c.Latest(0)))
}

func TestCache_FindAndFetchJob(t *testing.T) {
	remote := &fakeRemote{jobs: sampleJobs()}
	c := newTestCache(remote)

	_, ok := c.FindJob("1")
	assert.False(t, ok)

	job, err := c.FetchJob(context.Background(), "1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.True(t, job.IsNew)

	missing, err := c.FetchJob(context.Background(), "404")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.True(t, c.Refresh(context.Background()).OK())
	found, ok := c.FindJob("2")
	assert.True(t, ok)
	assert.Equal(t, "Loco Pilot", found.Title)
}

func TestCache_CategoryByName(t *testing.T) {
	c := newTestCache(nil)

	cat, ok := c.CategoryByName("State-Govt")
	require.True(t, ok)
	assert.Equal(t, "state_govt", cat.ID)

	cat, ok = c.CategoryByName("railway")
	require.True(t, ok)
	assert.Equal(t, "Railway", cat.Name)

	_, ok = c.CategoryByName("astronomy")
	assert.False(t, ok)
	_, ok = c.CategoryByName("")
	assert.False(t, ok)

	assert.Equal(t, "Banking", c.DisplayName("banking"))
	assert.Equal(t, "unknown", c.DisplayName("unknown"))
}

func TestCache_SavedJobsSkipsStale(t *testing.T) {
	c := newTestCache(&fakeRemote{jobs: sampleJobs()})
	require.True(t, c.Refresh(context.Background()).OK())

	saved := []types.SavedJob{
		{JobID: "3", SavedAt: fixedNow},
		{JobID: "deleted", SavedAt: fixedNow},
		{JobID: "1", SavedAt: fixedNow},
	}
	jobs := c.SavedJobs(saved)
	require.Len(t, jobs, 2)
	assert.Equal(t, "3", jobs[0].ID)
	assert.Equal(t, "1", jobs[1].ID)
}

func TestCache_JobsReturnsCopy(t *testing.T) {
	c := newTestCache(&fakeRemote{jobs: sampleJobs()})
	require.True(t, c.Refresh(context.Background()).OK())

	jobs := c.Jobs()
	jobs[0].Title = "mutated"
	assert.NotEqual(t, "mutated", c.Jobs()[0].Title)
}
