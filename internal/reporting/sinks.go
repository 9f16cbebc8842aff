package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/logging"
)

// DefaultAnalyticsQueue is the AMQP queue analytics events are published to.
const DefaultAnalyticsQueue = "analytics_events"

const publishTimeout = 5 * time.Second

// publisher is the subset of *amqp.Channel used by AMQPSink.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink publishes analytics events as JSON to a durable RabbitMQ queue.
type AMQPSink struct {
	conn    *amqp.Connection
	channel publisher
	queue   string
	appID   string
}

// DialAMQP connects to RabbitMQ and declares the analytics queue.
func DialAMQP(url, queue, appID string) (*AMQPSink, error) {
	if queue == "" {
		queue = DefaultAnalyticsQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &AMQPSink{conn: conn, channel: ch, queue: q.Name, appID: appID}, nil
}

// Send implements Sink.
func (s *AMQPSink) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = s.channel.PublishWithContext(ctx,
		"",      // exchange
		s.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			AppId:        s.appID,
			Type:         ev.Name,
			Timestamp:    ev.At,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", ev.Name, err)
	}
	return nil
}

// Close closes the channel and connection.
func (s *AMQPSink) Close() error {
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// HTTPSink posts marketing events to an HTTP collector.
type HTTPSink struct {
	endpoint string
	appID    string
	client   *http.Client
}

// NewHTTPSink creates a marketing sink posting to endpoint.
func NewHTTPSink(endpoint, appID string, client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSink{endpoint: endpoint, appID: appID, client: client}
}

type marketingPayload struct {
	AppID  string            `json:"app_id,omitempty"`
	Kind   string            `json:"kind"`
	Event  string            `json:"event"`
	Params map[string]string `json:"params,omitempty"`
	At     time.Time         `json:"at"`
}

// Send implements Sink.
func (s *HTTPSink) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(marketingPayload{
		AppID:  s.appID,
		Kind:   ev.Kind,
		Event:  ev.Name,
		Params: ev.Params,
		At:     ev.At,
	})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post %s: %w", ev.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("marketing endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSink writes events to a logger. It stands in for a sink that is not
// configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink under the given name.
func NewLogSink(logger *zap.Logger, name string) *LogSink {
	return &LogSink{logger: logging.OrNop(logger).Named(name)}
}

// Send implements Sink.
func (s *LogSink) Send(_ context.Context, ev Event) error {
	fields := make([]zap.Field, 0, len(ev.Params)+2)
	fields = append(fields, zap.String("kind", ev.Kind), zap.String("event", ev.Name))
	for k, v := range ev.Params {
		fields = append(fields, zap.String(k, v))
	}
	s.logger.Info("report", fields...)
	return nil
}
