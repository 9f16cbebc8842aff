package admin

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/govjob-alerts/internal/types"
)

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []types.Job
	err  error
}

func (p *recordingPublisher) PublishJobCreated(_ context.Context, job types.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return p.err
}

func validCategory(id string) CategoryForm {
	return CategoryForm{ID: id, Name: "Railway", Icon: "🚂", Description: "Railway jobs", Color: "#FF5722"}
}

func validJob(category string) JobForm {
	return JobForm{
		Title:                "Group D",
		Organization:         "RRB",
		Category:             category,
		Description:          "Track maintainer posts",
		Qualification:        "10th pass",
		AgeLimit:             "18-33",
		TotalVacancies:       32000,
		JobType:              types.JobTypePermanent,
		ApplicationStartDate: "2025-01-10",
		ApplicationEndDate:   "2025-02-10",
		ApplicationFee:       "500",
		Location:             "All India",
		ApplyURL:             "https://rrb.example.gov/apply",
		Tags:                 "railway, group d, ,railway",
	}
}

func newTestService(t *testing.T) (*Service, *MemoryStore, *recordingPublisher) {
	t.Helper()
	store := NewMemoryStore()
	pub := &recordingPublisher{}
	return New(store, pub, nil), store, pub
}

func TestCreateCategory(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	form := validCategory(" railway ")
	form.Name = "  Railway  "
	c, err := svc.CreateCategory(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, "railway", c.ID)
	assert.Equal(t, "Railway", c.Name)

	_, err = svc.CreateCategory(ctx, validCategory("railway"))
	assert.ErrorIs(t, err, ErrCategoryExists)
}

func TestCreateCategory_Validation(t *testing.T) {
	tests := []struct {
		name string
		form CategoryForm
		want string
	}{
		{
			name: "missing id",
			form: CategoryForm{Name: "A", Icon: "x", Description: "d", Color: "#000000"},
			want: "Category ID is required",
		},
		{
			name: "uppercase id",
			form: CategoryForm{ID: "Bank", Name: "A", Icon: "x", Description: "d", Color: "#000000"},
			want: "Category ID must contain only lowercase letters, numbers, underscores, and dashes",
		},
		{
			name: "short color",
			form: CategoryForm{ID: "bank", Name: "A", Icon: "x", Description: "d", Color: "#fff"},
			want: "Category color must be a valid hex color (e.g., #ff0000)",
		},
		{
			name: "missing name",
			form: CategoryForm{ID: "bank", Icon: "x", Description: "d", Color: "#abcdef"},
			want: "Category name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t)
			_, err := svc.CreateCategory(context.Background(), tt.form)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Problems, tt.want)
		})
	}
}

func TestUpdateCategory(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateCategory(ctx, validCategory("railway"))
	require.NoError(t, err)

	name, blank := " Indian Railway ", "  "
	c, err := svc.UpdateCategory(ctx, "railway", CategoryUpdate{Name: &name, Icon: &blank})
	require.NoError(t, err)
	assert.Equal(t, "railway", c.ID)
	assert.Equal(t, "Indian Railway", c.Name)
	assert.Equal(t, "🚂", c.Icon)

	bad := "red"
	_, err = svc.UpdateCategory(ctx, "railway", CategoryUpdate{Color: &bad})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.UpdateCategory(ctx, "missing", CategoryUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCategory_Guarded(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateCategory(ctx, validCategory("railway"))
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, validCategory("ssc"))
	require.NoError(t, err)

	job, err := svc.CreateJob(ctx, validJob("railway"))
	require.NoError(t, err)

	err = svc.DeleteCategory(ctx, "railway")
	var inUse *CategoryInUseError
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, 1, inUse.JobCount)
	assert.Equal(t, "cannot delete category 'railway' because it has 1 job(s) assigned to it", err.Error())

	require.NoError(t, svc.DeleteCategory(ctx, "ssc"))
	categories, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "railway", categories[0].ID)
	assert.Equal(t, 1, categories[0].TotalJobs)

	require.NoError(t, svc.DeleteJob(ctx, job.ID))
	require.NoError(t, svc.DeleteCategory(ctx, "railway"))
	assert.ErrorIs(t, svc.DeleteCategory(ctx, "railway"), ErrNotFound)
}

func TestGetCategory_CountsJobs(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateCategory(ctx, validCategory("railway"))
	require.NoError(t, err)
	_, err = svc.CreateJob(ctx, validJob("railway"))
	require.NoError(t, err)
	_, err = svc.CreateJob(ctx, validJob("railway"))
	require.NoError(t, err)

	c, err := svc.GetCategory(ctx, "railway")
	require.NoError(t, err)
	assert.Equal(t, 2, c.TotalJobs)

	again, err := svc.GetCategory(ctx, "railway")
	require.NoError(t, err)
	assert.Equal(t, 2, again.TotalJobs)
}

func TestCreateJob(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateCategory(ctx, validCategory("railway"))
	require.NoError(t, err)

	job, err := svc.CreateJob(ctx, validJob("railway"))
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, []string{"railway", "group d"}, job.Tags)
	assert.True(t, job.IsNew)
	require.NotNil(t, job.ApplicationEnd)
	assert.Nil(t, job.ExamDate)
	assert.Nil(t, job.Salary)

	require.Len(t, pub.jobs, 1)
	assert.Equal(t, job.ID, pub.jobs[0].ID)
}

func TestCreateJob_PublishFailureDoesNotFail(t *testing.T) {
	svc, store, pub := newTestService(t)
	pub.err = errors.New("bus down")
	ctx := context.Background()
	_, err := svc.CreateCategory(ctx, validCategory("railway"))
	require.NoError(t, err)

	job, err := svc.CreateJob(ctx, validJob("railway"))
	require.NoError(t, err)

	stored, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestCreateJob_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(f *JobForm)
		want   string
	}{
		{name: "missing title", modify: func(f *JobForm) { f.Title = "" }, want: "Job title is required"},
		{name: "negative vacancies", modify: func(f *JobForm) { f.TotalVacancies = -1 }, want: "Total vacancies cannot be negative"},
		{name: "bad job type", modify: func(f *JobForm) { f.JobType = "seasonal" }, want: "Job type must be permanent, temporary or contractual"},
		{name: "bad url", modify: func(f *JobForm) { f.ApplyURL = "not a url" }, want: "Apply URL must be a valid URL"},
		{name: "bad start date", modify: func(f *JobForm) { f.ApplicationStartDate = "tomorrow" }, want: "Start date must be a valid date"},
		{name: "end before start", modify: func(f *JobForm) { f.ApplicationEndDate = "2024-12-31" }, want: "End date cannot be before the start date"},
		{name: "unknown category", modify: func(f *JobForm) { f.Category = "psu" }, want: "Category 'psu' does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, pub := newTestService(t)
			ctx := context.Background()
			_, err := svc.CreateCategory(ctx, validCategory("railway"))
			require.NoError(t, err)

			form := validJob("railway")
			tt.modify(&form)
			_, err = svc.CreateJob(ctx, form)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Problems, tt.want)
			assert.Empty(t, pub.jobs)
		})
	}
}

func TestUpdateJob(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateCategory(ctx, validCategory("railway"))
	require.NoError(t, err)
	created, err := svc.CreateJob(ctx, validJob("railway"))
	require.NoError(t, err)

	form := validJob("railway")
	form.Title = "Group D (revised)"
	form.ApplicationEndDate = ""
	updated, err := svc.UpdateJob(ctx, created.ID, form)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Group D (revised)", updated.Title)
	assert.Nil(t, updated.ApplicationEnd)
	assert.Len(t, pub.jobs, 1)

	_, err = svc.UpdateJob(ctx, "missing", form)
	assert.ErrorIs(t, err, ErrNotFound)
}
