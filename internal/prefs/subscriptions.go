package prefs

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/result"
)

// Pending is an optimistic subscription that has been applied locally but
// not yet confirmed by the push service.
type Pending struct {
	CategoryID string
}

// NotificationCategories returns the subscribed category ids.
func (s *Store) NotificationCategories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.UserPreferences.NotificationCategories)
}

// BeginSubscribe adds categoryID to the notification list immediately.
func (s *Store) BeginSubscribe(ctx context.Context, categoryID string) Pending {
	pending := Pending{CategoryID: categoryID}
	s.mutate(ctx, func(p *persisted) {
		list := p.UserPreferences.NotificationCategories
		list = slices.DeleteFunc(list, func(id string) bool { return id == categoryID })
		p.UserPreferences.NotificationCategories = append(list, categoryID)
	})
	return pending
}

// Settle commits a pending subscription when outcome succeeded and rolls it
// back otherwise. A rollback always removes the category, including one that
// was subscribed before. It reports whether the subscription was committed.
func Settle[T any](ctx context.Context, s *Store, pending Pending, outcome result.Result[T]) bool {
	if outcome.OK() {
		s.logger.Debug("subscription committed", zap.String("category", pending.CategoryID))
		return true
	}

	s.logger.Warn("subscription failed, reverting",
		zap.String("category", pending.CategoryID), zap.Error(outcome.Err()))
	s.removeNotificationCategory(ctx, pending.CategoryID)
	return false
}

// CommitSubscriptions records the outcome of a batch subscribe: every
// requested id is replaced by the subset that succeeded.
func (s *Store) CommitSubscriptions(ctx context.Context, requested, succeeded []string) {
	if len(succeeded) == 0 {
		return
	}
	s.mutate(ctx, func(p *persisted) {
		list := slices.DeleteFunc(p.UserPreferences.NotificationCategories, func(id string) bool {
			return slices.Contains(requested, id)
		})
		p.UserPreferences.NotificationCategories = append(list, succeeded...)
	})
}

// RemoveNotificationCategory drops categoryID from the notification list.
func (s *Store) RemoveNotificationCategory(ctx context.Context, categoryID string) {
	s.removeNotificationCategory(ctx, categoryID)
}

func (s *Store) removeNotificationCategory(ctx context.Context, categoryID string) {
	s.mutate(ctx, func(p *persisted) {
		p.UserPreferences.NotificationCategories = slices.DeleteFunc(
			p.UserPreferences.NotificationCategories,
			func(id string) bool { return id == categoryID },
		)
	})
}
