package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/govjob-alerts/internal/events"
	"github.com/jonathan/govjob-alerts/internal/types"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []Message
	fail map[string]error
}

func (f *fakeSender) Send(_ context.Context, msg Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[msg.Topic]; err != nil {
		return "", err
	}
	f.sent = append(f.sent, msg)
	return "projects/p/messages/" + msg.Topic, nil
}

func (f *fakeSender) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Topic)
	}
	return out
}

func sampleJob() types.Job {
	return types.Job{ID: "job-1", Title: "Clerk", Organization: "SBI", Category: "banking"}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"defence":    "Defence",
		"state-govt": "State Government",
		"upsc":       "UPSC",
		"psu":        "PSU",
		"state_govt": "STATE_GOVT",
	}
	for id, want := range tests {
		assert.Equal(t, want, DisplayName(id), id)
	}
}

func TestBuildJobMessage(t *testing.T) {
	job := sampleJob()
	image := " https://cdn.example.com/sbi.png "
	job.NotificationImageURL = &image

	msg := BuildJobMessage(job)
	assert.Equal(t, "jobs-banking", msg.Topic)
	assert.Equal(t, "🚀 New Banking Job Available!", msg.Notification.Title)
	assert.Equal(t, "Clerk - SBI", msg.Notification.Body)
	assert.Equal(t, "https://cdn.example.com/sbi.png", msg.Notification.Image)
	assert.Equal(t, map[string]string{
		"jobId":        "job-1",
		"category":     "banking",
		"title":        "Clerk",
		"organization": "SBI",
		"type":         "new_job",
	}, msg.Data)
	assert.Equal(t, AndroidPriorityHigh, msg.Android.Priority)
	assert.Equal(t, 1, msg.APNs.Badge)

	blank := "  "
	job.NotificationImageURL = &blank
	assert.Empty(t, BuildJobMessage(job).Notification.Image)
}

func TestNotifyJobCreated(t *testing.T) {
	sender := &fakeSender{}
	svc, err := NewService(sender, nil)
	require.NoError(t, err)

	id, err := svc.NotifyJobCreated(context.Background(), sampleJob())
	require.NoError(t, err)
	assert.Equal(t, "projects/p/messages/jobs-banking", id)
	assert.Equal(t, []string{"jobs-banking", "all-jobs"}, sender.topics())
	assert.Equal(t, sender.sent[0].Data, sender.sent[1].Data)
}

func TestNotifyJobCreated_Failures(t *testing.T) {
	t.Run("general topic failure is swallowed", func(t *testing.T) {
		sender := &fakeSender{fail: map[string]error{"all-jobs": errors.New("topic missing")}}
		svc, err := NewService(sender, nil)
		require.NoError(t, err)

		_, err = svc.NotifyJobCreated(context.Background(), sampleJob())
		require.NoError(t, err)
		assert.Equal(t, []string{"jobs-banking"}, sender.topics())
	})

	t.Run("category failure is returned", func(t *testing.T) {
		sender := &fakeSender{fail: map[string]error{"jobs-banking": errors.New("quota")}}
		svc, err := NewService(sender, nil)
		require.NoError(t, err)

		assert.Error(t, svc.HandleJobCreated(context.Background(), events.JobCreated{Job: sampleJob()}))
		assert.Empty(t, sender.topics())
	})

	t.Run("invalid job is rejected before sending", func(t *testing.T) {
		sender := &fakeSender{}
		svc, err := NewService(sender, nil)
		require.NoError(t, err)

		job := sampleJob()
		job.Category = "Bad Category"
		_, err = svc.NotifyJobCreated(context.Background(), job)
		assert.Error(t, err)
		assert.Empty(t, sender.topics())
	})
}

func TestSendTest(t *testing.T) {
	sender := &fakeSender{}
	svc, err := NewService(sender, nil)
	require.NoError(t, err)

	_, err = svc.SendTest(context.Background(), types.TestNotificationRequest{Topic: "all-jobs", Title: "Hi"})
	assert.Error(t, err)

	id, err := svc.SendTest(context.Background(), types.TestNotificationRequest{Topic: "all-jobs", Title: "Hi", Body: "There"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.Len(t, sender.sent, 1)
	assert.Nil(t, sender.sent[0].Android)
	assert.Nil(t, sender.sent[0].Data)
}
