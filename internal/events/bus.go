// Package events carries job lifecycle events between the admin API and the
// push fan-out worker over NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/types"
)

// SubjectJobCreated carries one JobCreated per new job.
const SubjectJobCreated = "jobs.created"

// DefaultQueueGroup load-balances fan-out workers so each job is sent once.
const DefaultQueueGroup = "fanout"

// JobCreated is the payload published when a job is stored.
type JobCreated struct {
	Job         types.Job `json:"job"`
	PublishedAt time.Time `json:"published_at"`
}

// JobCreatedHandler processes one event.
type JobCreatedHandler func(ctx context.Context, ev JobCreated) error

type conn interface {
	Publish(subject string, data []byte) error
	QueueSubscribe(subject, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
	Drain() error
}

// Bus publishes and consumes job events.
type Bus struct {
	conn   conn
	logger *zap.Logger
}

// Connect dials NATS at url.
func Connect(url string, logger *zap.Logger) (*Bus, error) {
	b := &Bus{logger: logging.OrNop(logger).Named("events")}

	nc, err := nats.Connect(
		url,
		nats.Name("govjob-alerts"),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(b.reconnectHandler),
		nats.DisconnectErrHandler(b.disconnectHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	b.conn = nc
	return b, nil
}

func (b *Bus) reconnectHandler(nc *nats.Conn) {
	b.logger.Info("reconnected", zap.String("url", nc.ConnectedUrl()))
}

func (b *Bus) disconnectHandler(_ *nats.Conn, err error) {
	b.logger.Warn("disconnected", zap.Error(err))
}

// PublishJobCreated announces a stored job.
func (b *Bus) PublishJobCreated(_ context.Context, job types.Job) error {
	data, err := json.Marshal(JobCreated{Job: job, PublishedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode job event: %w", err)
	}
	if err := b.conn.Publish(SubjectJobCreated, data); err != nil {
		return fmt.Errorf("failed to publish job event: %w", err)
	}
	b.logger.Debug("job event published", zap.String("job_id", job.ID))
	return nil
}

// SubscribeJobCreated delivers each event to handler within queue group
// queue. Undecodable messages and handler errors are logged and dropped.
func (b *Bus) SubscribeJobCreated(ctx context.Context, queue string, handler JobCreatedHandler) (*nats.Subscription, error) {
	if queue == "" {
		queue = DefaultQueueGroup
	}
	sub, err := b.conn.QueueSubscribe(SubjectJobCreated, queue, b.dispatch(ctx, handler))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", SubjectJobCreated, err)
	}
	return sub, nil
}

func (b *Bus) dispatch(ctx context.Context, handler JobCreatedHandler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var ev JobCreated
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			b.logger.Error("invalid job event", zap.Error(err))
			return
		}
		if ev.Job.ID == "" {
			b.logger.Warn("job event without id")
			return
		}
		if err := handler(ctx, ev); err != nil {
			b.logger.Error("job event handler failed", zap.String("job_id", ev.Job.ID), zap.Error(err))
		}
	}
}

// Close drains pending messages and closes the connection.
func (b *Bus) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Drain()
}
