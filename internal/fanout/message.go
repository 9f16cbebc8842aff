// Package fanout turns newly created jobs into topic push messages and sends
// them through the managed push service.
package fanout

import (
	"strings"

	"github.com/jonathan/govjob-alerts/internal/notify"
	"github.com/jonathan/govjob-alerts/internal/types"
)

// Platform presentation defaults for new-job pushes.
const (
	AndroidPriorityHigh = "HIGH"
	AndroidIcon         = "ic_notification"
	AndroidColor        = "#2196F3"
	DefaultSound        = "default"
	APNsCategoryNewJob  = "NEW_JOB"
)

var displayNames = map[string]string{
	"defence":    "Defence",
	"railway":    "Railway",
	"banking":    "Banking",
	"ssc":        "SSC",
	"upsc":       "UPSC",
	"state-govt": "State Government",
	"police":     "Police",
	"teaching":   "Teaching",
}

// DisplayName returns the human name for a category id. Unknown ids are
// upper-cased.
func DisplayName(categoryID string) string {
	if name, ok := displayNames[categoryID]; ok {
		return name
	}
	return strings.ToUpper(categoryID)
}

// AndroidOptions are the Android-specific delivery options.
type AndroidOptions struct {
	Priority string
	Icon     string
	Color    string
	Sound    string
}

// APNsOptions are the iOS-specific delivery options.
type APNsOptions struct {
	Sound    string
	Badge    int
	Category string
}

// Message is a push message plus platform options.
type Message struct {
	types.PushMessage
	Android *AndroidOptions
	APNs    *APNsOptions
}

// WithTopic returns a copy of m addressed to topic.
func (m Message) WithTopic(topic string) Message {
	m.Topic = topic
	return m
}

// BuildJobMessage builds the category-topic push for a new job.
func BuildJobMessage(job types.Job) Message {
	n := &types.PushNotification{
		Title: "🚀 New " + DisplayName(job.Category) + " Job Available!",
		Body:  job.Title + " - " + job.Organization,
	}
	if job.NotificationImageURL != nil && strings.TrimSpace(*job.NotificationImageURL) != "" {
		n.Image = strings.TrimSpace(*job.NotificationImageURL)
	}

	return Message{
		PushMessage: types.PushMessage{
			Topic:        notify.TopicFor(job.Category),
			Notification: n,
			Data: map[string]string{
				types.DataJobID:        job.ID,
				types.DataCategory:     job.Category,
				types.DataTitle:        job.Title,
				types.DataOrganization: job.Organization,
				types.DataType:         types.PushTypeNewJob,
			},
		},
		Android: &AndroidOptions{
			Priority: AndroidPriorityHigh,
			Icon:     AndroidIcon,
			Color:    AndroidColor,
			Sound:    DefaultSound,
		},
		APNs: &APNsOptions{
			Sound:    DefaultSound,
			Badge:    1,
			Category: APNsCategoryNewJob,
		},
	}
}
