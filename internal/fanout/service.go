package fanout

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/events"
	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/metrics"
	"github.com/jonathan/govjob-alerts/internal/notify"
	"github.com/jonathan/govjob-alerts/internal/schemas"
	"github.com/jonathan/govjob-alerts/internal/types"
)

// Topic kinds used as metric labels.
const (
	kindCategory = "category"
	kindGeneral  = "general"
	kindTest     = "test"
)

// Service sends new-job pushes to the category topic and then to the
// general topic.
type Service struct {
	sender   Sender
	messages *schemas.Validator
	jobs     *schemas.Validator
	logger   *zap.Logger
}

// NewService creates a Service.
func NewService(sender Sender, logger *zap.Logger) (*Service, error) {
	messages, err := schemas.PushMessageValidator()
	if err != nil {
		return nil, err
	}
	jobs, err := schemas.JobEventValidator()
	if err != nil {
		return nil, err
	}
	return &Service{
		sender:   sender,
		messages: messages,
		jobs:     jobs,
		logger:   logging.OrNop(logger).Named("fanout"),
	}, nil
}

// HandleJobCreated is an events.JobCreatedHandler.
func (s *Service) HandleJobCreated(ctx context.Context, ev events.JobCreated) error {
	_, err := s.NotifyJobCreated(ctx, ev.Job)
	return err
}

// NotifyJobCreated sends the push for job and returns the category send's
// message id. A failed general-topic send is logged only.
func (s *Service) NotifyJobCreated(ctx context.Context, job types.Job) (string, error) {
	if err := s.jobs.Validate(job); err != nil {
		return "", fmt.Errorf("invalid job %s: %w", job.ID, err)
	}

	msg := BuildJobMessage(job)
	if err := s.messages.Validate(msg.PushMessage); err != nil {
		return "", fmt.Errorf("invalid push for job %s: %w", job.ID, err)
	}

	id, err := s.send(ctx, kindCategory, msg)
	if err != nil {
		return "", err
	}
	s.logger.Info("job push sent",
		zap.String("job_id", job.ID), zap.String("topic", msg.Topic), zap.String("message_id", id))

	general := msg.WithTopic(notify.GeneralTopic)
	if _, err := s.send(ctx, kindGeneral, general); err != nil {
		s.logger.Warn("general topic push failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	return id, nil
}

// SendTest sends an arbitrary notification to a topic.
func (s *Service) SendTest(ctx context.Context, req types.TestNotificationRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("missing required fields: %w", err)
	}
	msg := Message{PushMessage: types.PushMessage{
		Topic:        req.Topic,
		Notification: &types.PushNotification{Title: req.Title, Body: req.Body},
	}}
	return s.send(ctx, kindTest, msg)
}

func (s *Service) send(ctx context.Context, kind string, msg Message) (string, error) {
	id, err := s.sender.Send(ctx, msg)
	if err != nil {
		metrics.PushesSent.WithLabelValues(kind, "error").Inc()
		return "", err
	}
	metrics.PushesSent.WithLabelValues(kind, "ok").Inc()
	return id, nil
}
