package types

import (
	"slices"
	"time"
)

// Theme is the UI color scheme.
type Theme string

// Theme values
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// NotificationToggles switches individual notification kinds on or off.
type NotificationToggles struct {
	NewJobs              bool `json:"new_jobs"`
	ApplicationReminders bool `json:"application_reminders"`
	ExamAlerts           bool `json:"exam_alerts"`
}

// UserPreferences is the persisted user settings object.
type UserPreferences struct {
	HasCompletedOnboarding bool                `json:"has_completed_onboarding"`
	Theme                  Theme               `json:"theme"`
	Name                   string              `json:"name,omitempty"`
	PreferredLanguage      string              `json:"preferred_language"`
	InterestedCategories   []string            `json:"interested_categories"`
	NotificationCategories []string            `json:"notification_categories"`
	Notifications          NotificationToggles `json:"notifications"`
}

// DefaultPreferences returns the preferences created on first launch.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Theme:                  ThemeLight,
		PreferredLanguage:      "en",
		InterestedCategories:   []string{},
		NotificationCategories: []string{},
		Notifications: NotificationToggles{
			NewJobs:              true,
			ApplicationReminders: true,
			ExamAlerts:           true,
		},
	}
}

// Clone returns a deep copy.
func (p UserPreferences) Clone() UserPreferences {
	p.InterestedCategories = slices.Clone(p.InterestedCategories)
	p.NotificationCategories = slices.Clone(p.NotificationCategories)
	return p
}

// SubscribedTo reports whether categoryID is in the notification list.
func (p UserPreferences) SubscribedTo(categoryID string) bool {
	return slices.Contains(p.NotificationCategories, categoryID)
}

// SavedJob records a job bookmarked by the user.
type SavedJob struct {
	JobID   string    `json:"job_id"`
	SavedAt time.Time `json:"saved_at"`
}
