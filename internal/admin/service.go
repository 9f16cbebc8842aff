// Package admin implements the admin panel's contract with the job store:
// validated create, update and delete of categories and jobs, with deletion
// of a category refused while jobs still reference it.
package admin

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/types"
)

// Store is the authoritative job and category store. Getters return nil
// with a nil error when the record does not exist. ListCategories fills
// TotalJobs from the job set.
type Store interface {
	ListCategories(ctx context.Context) ([]types.JobCategory, error)
	GetCategory(ctx context.Context, id string) (*types.JobCategory, error)
	InsertCategory(ctx context.Context, c *types.JobCategory) error
	UpdateCategory(ctx context.Context, c *types.JobCategory) error
	DeleteCategory(ctx context.Context, id string) error
	CountJobsInCategory(ctx context.Context, categoryID string) (int, error)

	ListJobs(ctx context.Context) ([]types.Job, error)
	GetJob(ctx context.Context, id string) (*types.Job, error)
	InsertJob(ctx context.Context, j *types.Job) error
	UpdateJob(ctx context.Context, j *types.Job) error
	DeleteJob(ctx context.Context, id string) error
}

// Publisher announces newly created jobs.
type Publisher interface {
	PublishJobCreated(ctx context.Context, job types.Job) error
}

// Service validates admin input and applies it to the Store.
type Service struct {
	store    Store
	events   Publisher
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a Service. events may be nil.
func New(store Store, events Publisher, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		events:   events,
		validate: newValidator(),
		logger:   logging.OrNop(logger).Named("admin"),
		now:      time.Now,
	}
}

// ListCategories returns all categories ordered by name with job counts.
func (s *Service) ListCategories(ctx context.Context) ([]types.JobCategory, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	sort.SliceStable(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

// GetCategory returns one category or ErrNotFound.
func (s *Service) GetCategory(ctx context.Context, id string) (*types.JobCategory, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// CreateCategory validates the form and inserts a new category.
func (s *Service) CreateCategory(ctx context.Context, form CategoryForm) (*types.JobCategory, error) {
	if problems := check(s.validate, &form); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	c := &types.JobCategory{
		ID:          strings.TrimSpace(form.ID),
		Name:        strings.TrimSpace(form.Name),
		Icon:        strings.TrimSpace(form.Icon),
		Description: strings.TrimSpace(form.Description),
		Color:       strings.TrimSpace(form.Color),
	}

	existing, err := s.store.GetCategory(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check category: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("category with ID '%s': %w", c.ID, ErrCategoryExists)
	}

	if err := s.store.InsertCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	s.logger.Info("category created", zap.String("category", c.ID))
	return c, nil
}

// UpdateCategory applies the non-blank fields of upd. The id never changes.
func (s *Service) UpdateCategory(ctx context.Context, id string, upd CategoryUpdate) (*types.JobCategory, error) {
	if problems := check(s.validate, &upd); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string) {
		if src != nil && strings.TrimSpace(*src) != "" {
			*dst = strings.TrimSpace(*src)
		}
	}
	apply(&c.Name, upd.Name)
	apply(&c.Icon, upd.Icon)
	apply(&c.Description, upd.Description)
	apply(&c.Color, upd.Color)

	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return c, nil
}

// DeleteCategory removes a category that no job references.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}

	count, err := s.store.CountJobsInCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count jobs: %w", err)
	}
	if count > 0 {
		return &CategoryInUseError{CategoryID: id, JobCount: count}
	}

	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	s.logger.Info("category deleted", zap.String("category", id))
	return nil
}

// ListJobs returns all jobs, newest first.
func (s *Service) ListJobs(ctx context.Context) ([]types.Job, error) {
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	types.DeriveAll(jobs, s.now())
	return jobs, nil
}

// GetJob returns one job or ErrNotFound.
func (s *Service) GetJob(ctx context.Context, id string) (*types.Job, error) {
	j, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if j == nil {
		return nil, ErrNotFound
	}
	j.Derive(s.now())
	return j, nil
}

// buildJob validates a form and checks that its category exists.
func (s *Service) buildJob(ctx context.Context, form JobForm) (*types.Job, error) {
	if problems := check(s.validate, &form); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	job, problems := form.toJob()
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	c, err := s.store.GetCategory(ctx, job.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to check category: %w", err)
	}
	if c == nil {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("Category '%s' does not exist", job.Category)}}
	}
	return job, nil
}

// CreateJob validates and stores a new job, then announces it. A failed
// announcement is logged and does not fail the create.
func (s *Service) CreateJob(ctx context.Context, form JobForm) (*types.Job, error) {
	job, err := s.buildJob(ctx, form)
	if err != nil {
		return nil, err
	}
	job.ID = uuid.NewString()
	job.CreatedAt = s.now().UTC()

	if err := s.store.InsertJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	job.Derive(s.now())
	s.logger.Info("job created", zap.String("job_id", job.ID), zap.String("category", job.Category))

	if s.events != nil {
		if err := s.events.PublishJobCreated(ctx, *job); err != nil {
			s.logger.Error("failed to publish job created", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return job, nil
}

// UpdateJob replaces the editable fields of a job. The id and creation time
// are kept.
func (s *Service) UpdateJob(ctx context.Context, id string, form JobForm) (*types.Job, error) {
	existing, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	job, err := s.buildJob(ctx, form)
	if err != nil {
		return nil, err
	}
	job.ID = existing.ID
	job.CreatedAt = existing.CreatedAt

	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	job.Derive(s.now())
	return job, nil
}

// DeleteJob removes a job.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	if _, err := s.GetJob(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteJob(ctx, id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}
