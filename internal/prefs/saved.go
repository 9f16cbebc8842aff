package prefs

import (
	"context"
	"slices"

	"github.com/jonathan/govjob-alerts/internal/types"
)

// SavedJobs returns saved jobs in the order they were saved.
func (s *Store) SavedJobs() []types.SavedJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.SavedJobs)
}

// IsSaved reports whether jobID is bookmarked.
func (s *Store) IsSaved(jobID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.ContainsFunc(s.state.SavedJobs, func(sj types.SavedJob) bool {
		return sj.JobID == jobID
	})
}

// AddSaved bookmarks jobID. Saving again moves it to the end with a fresh timestamp.
func (s *Store) AddSaved(ctx context.Context, jobID string) {
	now := s.now()
	s.mutate(ctx, func(p *persisted) {
		p.SavedJobs = slices.DeleteFunc(p.SavedJobs, func(sj types.SavedJob) bool {
			return sj.JobID == jobID
		})
		p.SavedJobs = append(p.SavedJobs, types.SavedJob{JobID: jobID, SavedAt: now})
	})
}

// RemoveSaved drops the bookmark for jobID.
func (s *Store) RemoveSaved(ctx context.Context, jobID string) {
	s.mutate(ctx, func(p *persisted) {
		p.SavedJobs = slices.DeleteFunc(p.SavedJobs, func(sj types.SavedJob) bool {
			return sj.JobID == jobID
		})
	})
}
