// Package prefs is the local preference store: user settings, saved jobs and
// notification subscriptions persisted across launches as one namespaced blob.
package prefs

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/kv"
	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/result"
	"github.com/jonathan/govjob-alerts/internal/types"
)

// StorageKey is the namespace of the persisted blob.
const StorageKey = "govt-job-app-storage"

// persisted is exactly what survives a restart. Everything else is rebuilt
// from the network.
type persisted struct {
	UserPreferences types.UserPreferences `json:"userPreferences"`
	SavedJobs       []types.SavedJob      `json:"savedJobs"`
	Theme           types.Theme           `json:"theme"`
}

// Store holds user state in memory and writes it through to a kv.Store.
// Mutations are whole-object merges; the last write wins.
type Store struct {
	mu     sync.RWMutex
	state  persisted
	kv     kv.Store
	logger *zap.Logger
	now    func() time.Time

	// writeMu serializes persistence so the newest state is written last.
	writeMu sync.Mutex
}

// New creates a store with default preferences. Call Load to restore state.
func New(backend kv.Store, logger *zap.Logger) *Store {
	return &Store{
		state: persisted{
			UserPreferences: types.DefaultPreferences(),
			SavedJobs:       []types.SavedJob{},
			Theme:           types.ThemeLight,
		},
		kv:     backend,
		logger: logging.OrNop(logger).Named("prefs"),
		now:    time.Now,
	}
}

// Load restores persisted state. A missing blob keeps the defaults.
func (s *Store) Load(ctx context.Context) error {
	var p persisted
	found, err := kv.GetJSON(ctx, s.kv, StorageKey, &p)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}
	if !found {
		return nil
	}

	defaults := types.DefaultPreferences()
	if p.UserPreferences.Theme == "" {
		p.UserPreferences.Theme = defaults.Theme
	}
	if p.UserPreferences.PreferredLanguage == "" {
		p.UserPreferences.PreferredLanguage = defaults.PreferredLanguage
	}
	if p.UserPreferences.NotificationCategories == nil {
		p.UserPreferences.NotificationCategories = []string{}
	}
	if p.UserPreferences.InterestedCategories == nil {
		p.UserPreferences.InterestedCategories = []string{}
	}
	if p.SavedJobs == nil {
		p.SavedJobs = []types.SavedJob{}
	}
	if p.Theme == "" {
		p.Theme = p.UserPreferences.Theme
	}

	s.mu.Lock()
	s.state = p
	s.mu.Unlock()
	return nil
}

// mutate applies fn under the lock and persists the result. Persistence
// failures are logged; in-memory state stays authoritative for the session.
func (s *Store) mutate(ctx context.Context, fn func(p *persisted)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.RLock()
	snapshot := s.snapshotLocked()
	s.mu.RUnlock()

	result.Do(s.logger, "persist preferences", func() error {
		return kv.SetJSON(ctx, s.kv, StorageKey, snapshot)
	})
}

func (s *Store) snapshotLocked() persisted {
	return persisted{
		UserPreferences: s.state.UserPreferences.Clone(),
		SavedJobs:       slices.Clone(s.state.SavedJobs),
		Theme:           s.state.Theme,
	}
}

// Preferences returns a copy of the current preferences.
func (s *Store) Preferences() types.UserPreferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UserPreferences.Clone()
}

// Update merges changes into the preferences.
func (s *Store) Update(ctx context.Context, fn func(p *types.UserPreferences)) {
	s.mutate(ctx, func(p *persisted) {
		fn(&p.UserPreferences)
	})
}

// Onboarded reports whether onboarding has been completed.
func (s *Store) Onboarded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UserPreferences.HasCompletedOnboarding
}

// SetOnboardingComplete marks onboarding done.
func (s *Store) SetOnboardingComplete(ctx context.Context) {
	s.Update(ctx, func(p *types.UserPreferences) {
		p.HasCompletedOnboarding = true
	})
}

// ResetOnboarding restores default preferences but keeps the theme.
func (s *Store) ResetOnboarding(ctx context.Context) {
	s.mutate(ctx, func(p *persisted) {
		theme := p.UserPreferences.Theme
		p.UserPreferences = types.DefaultPreferences()
		p.UserPreferences.Theme = theme
	})
}

// Theme returns the active theme.
func (s *Store) Theme() types.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Theme
}

// SetTheme switches the theme in both places it is recorded.
func (s *Store) SetTheme(ctx context.Context, theme types.Theme) {
	s.mutate(ctx, func(p *persisted) {
		p.Theme = theme
		p.UserPreferences.Theme = theme
	})
}

// SetInterestedCategories replaces the interest list.
func (s *Store) SetInterestedCategories(ctx context.Context, ids []string) {
	s.Update(ctx, func(p *types.UserPreferences) {
		p.InterestedCategories = slices.Clone(ids)
	})
}

// Reset clears all persisted state.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.state = persisted{
		UserPreferences: types.DefaultPreferences(),
		SavedJobs:       []types.SavedJob{},
		Theme:           types.ThemeLight,
	}
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.kv.Delete(ctx, StorageKey)
}
