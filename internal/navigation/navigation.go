// Package navigation resolves in-app destinations for links and notification
// taps and hands them to the UI navigator.
package navigation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/result"
	"github.com/jonathan/govjob-alerts/internal/types"
)

// Screen names a top-level destination.
type Screen string

// Screens
const (
	ScreenOnboarding   Screen = "Onboarding"
	ScreenMain         Screen = "MainTabs"
	ScreenJobDetail    Screen = "JobDetail"
	ScreenCategoryJobs Screen = "CategoryJobs"
)

// Default readiness retry policy.
const (
	DefaultReadyAttempts = 10
	DefaultReadyDelay    = 500 * time.Millisecond
)

// ErrNotReady is returned when the navigator never became ready.
var ErrNotReady = errors.New("navigator not ready")

// Route is a resolved destination.
type Route struct {
	Screen   Screen
	Job      *types.Job
	Category *types.JobCategory
}

// Navigator is the UI navigation container.
type Navigator interface {
	Ready() bool
	Navigate(ctx context.Context, route Route) error
}

// JobSource resolves jobs and categories for routing.
type JobSource interface {
	FindJob(id string) (types.Job, bool)
	FetchJob(ctx context.Context, id string) (*types.Job, error)
	CategoryByName(name string) (types.JobCategory, bool)
	Refresh(ctx context.Context) result.Result[int]
}

// OnboardingState reports whether the user finished onboarding.
type OnboardingState interface {
	Onboarded() bool
}

// Options tunes the readiness retry.
type Options struct {
	ReadyAttempts int
	ReadyDelay    time.Duration
}

// Service routes to screens, falling back to the default screen whenever a
// destination cannot be resolved.
type Service struct {
	nav        Navigator
	jobs       JobSource
	onboarding OnboardingState
	logger     *zap.Logger
	attempts   int
	delay      time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a navigation Service.
func New(nav Navigator, jobs JobSource, onboarding OnboardingState, opts Options, logger *zap.Logger) *Service {
	if opts.ReadyAttempts <= 0 {
		opts.ReadyAttempts = DefaultReadyAttempts
	}
	if opts.ReadyDelay <= 0 {
		opts.ReadyDelay = DefaultReadyDelay
	}
	return &Service{
		nav:        nav,
		jobs:       jobs,
		onboarding: onboarding,
		logger:     logging.OrNop(logger).Named("navigation"),
		attempts:   opts.ReadyAttempts,
		delay:      opts.ReadyDelay,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether the navigator can accept routes now.
func (s *Service) Ready() bool {
	return s.nav != nil && s.nav.Ready()
}

// WaitReady polls the navigator up to the configured number of attempts
// with a fixed delay between them.
func (s *Service) WaitReady(ctx context.Context) error {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if s.Ready() {
			return nil
		}
		if attempt == s.attempts {
			break
		}
		s.logger.Debug("navigator not ready, retrying", zap.Int("attempt", attempt))
		if err := s.sleep(ctx, s.delay); err != nil {
			return err
		}
	}
	s.logger.Error("navigator never became ready, giving up", zap.Int("attempts", s.attempts))
	return ErrNotReady
}

// Navigate sends route to the navigator. The main screen is swapped for
// onboarding while onboarding is incomplete.
func (s *Service) Navigate(ctx context.Context, route Route) error {
	if !s.Ready() {
		s.logger.Warn("navigation requested before navigator was ready", zap.String("screen", string(route.Screen)))
		return ErrNotReady
	}
	if route.Screen == ScreenMain && !s.onboarded() {
		route = Route{Screen: ScreenOnboarding}
	}
	return s.nav.Navigate(ctx, route)
}

func (s *Service) onboarded() bool {
	return s.onboarding != nil && s.onboarding.Onboarded()
}

// DefaultRoute is the main screen after onboarding, onboarding before it.
func (s *Service) DefaultRoute() Route {
	if s.onboarded() {
		return Route{Screen: ScreenMain}
	}
	return Route{Screen: ScreenOnboarding}
}

// Default navigates to DefaultRoute.
func (s *Service) Default(ctx context.Context) Route {
	route := s.DefaultRoute()
	result.Do(s.logger, "navigate to default", func() error {
		return s.Navigate(ctx, route)
	})
	return route
}

// OpenJob navigates to a job, looking it up in the cache first and then in
// the remote store. A job found nowhere routes to the default screen.
func (s *Service) OpenJob(ctx context.Context, jobID, categoryID string) Route {
	if jobID == "" || s.jobs == nil {
		return s.Default(ctx)
	}

	if job, ok := s.jobs.FindJob(jobID); ok {
		return s.openResolved(ctx, &job)
	}

	fetched := result.Guard(s.logger, "fetch job", func() (*types.Job, error) {
		return s.jobs.FetchJob(ctx, jobID)
	})
	if !fetched.OK() || fetched.Value == nil {
		s.logger.Info("job not found, using default screen",
			zap.String("job_id", jobID), zap.String("category", categoryID))
		return s.Default(ctx)
	}

	route := s.openResolved(ctx, fetched.Value)
	s.jobs.Refresh(ctx)
	return route
}

func (s *Service) openResolved(ctx context.Context, job *types.Job) Route {
	route := Route{Screen: ScreenJobDetail, Job: job}
	res := result.Do(s.logger, "navigate to job", func() error {
		return s.Navigate(ctx, route)
	})
	if !res.OK() {
		return s.Default(ctx)
	}
	return route
}

// OpenCategory navigates to a category's job list. Names that do not resolve
// route to the default screen.
func (s *Service) OpenCategory(ctx context.Context, name string) Route {
	if s.jobs == nil {
		return s.Default(ctx)
	}
	cat, ok := s.jobs.CategoryByName(name)
	if !ok {
		s.logger.Info("unknown category, using default screen", zap.String("category", name))
		return s.Default(ctx)
	}

	route := Route{Screen: ScreenCategoryJobs, Category: &cat}
	res := result.Do(s.logger, "navigate to category", func() error {
		return s.Navigate(ctx, route)
	})
	if !res.OK() {
		return s.Default(ctx)
	}
	return route
}
