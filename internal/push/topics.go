// Package push talks to the managed push service on behalf of one device:
// topic membership for its registration token, and local notifications.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"

	"github.com/jonathan/govjob-alerts/internal/logging"
)

// MessagingScope is the OAuth scope for topic management.
const MessagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// DefaultIIDEndpoint is the instance ID service root.
const DefaultIIDEndpoint = "https://iid.googleapis.com"

// TopicError describes a rejected topic operation.
type TopicError struct {
	Topic   string
	Op      string
	Status  int
	Message string
}

func (e *TopicError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s failed: HTTP %d: %s", e.Op, e.Topic, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Op, e.Topic, e.Message)
}

// TopicClient adds and removes registration tokens from topics through the
// instance ID batch API.
type TopicClient struct {
	client   *http.Client
	endpoint string
}

// NewTopicClient builds an authenticated client. opts are passed to the
// Google transport, e.g. option.WithCredentialsFile.
func NewTopicClient(ctx context.Context, opts ...option.ClientOption) (*TopicClient, error) {
	opts = append([]option.ClientOption{option.WithScopes(MessagingScope)}, opts...)
	client, _, err := htransport.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create push transport: %w", err)
	}
	return &TopicClient{client: client, endpoint: DefaultIIDEndpoint}, nil
}

// NewTopicClientWithHTTP uses an already authenticated HTTP client.
func NewTopicClientWithHTTP(client *http.Client, endpoint string) *TopicClient {
	if endpoint == "" {
		endpoint = DefaultIIDEndpoint
	}
	return &TopicClient{client: client, endpoint: strings.TrimRight(endpoint, "/")}
}

type batchRequest struct {
	To                 string   `json:"to"`
	RegistrationTokens []string `json:"registration_tokens"`
}

type batchResponse struct {
	Results []struct {
		Error string `json:"error,omitempty"`
	} `json:"results"`
}

// Subscribe adds token to topic.
func (c *TopicClient) Subscribe(ctx context.Context, token, topic string) error {
	return c.batch(ctx, "batchAdd", token, topic)
}

// Unsubscribe removes token from topic.
func (c *TopicClient) Unsubscribe(ctx context.Context, token, topic string) error {
	return c.batch(ctx, "batchRemove", token, topic)
}

func (c *TopicClient) batch(ctx context.Context, op, token, topic string) error {
	body, err := json.Marshal(batchRequest{To: "/topics/" + topic, RegistrationTokens: []string{token}})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/iid/v1:"+op, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access_token_auth", "true")

	resp, err := c.client.Do(req)
	if err != nil {
		return &TopicError{Topic: topic, Op: op, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode != http.StatusOK {
		return &TopicError{Topic: topic, Op: op, Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	var parsed batchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return &TopicError{Topic: topic, Op: op, Status: resp.StatusCode, Message: "invalid response body"}
	}
	for _, r := range parsed.Results {
		if r.Error != "" {
			return &TopicError{Topic: topic, Op: op, Message: r.Error}
		}
	}
	return nil
}

// LogTopics records topic membership locally and logs each change. It
// stands in for TopicClient when no push credentials are configured.
type LogTopics struct {
	logger *zap.Logger

	mu      sync.Mutex
	members map[string]map[string]bool // topic -> tokens
}

// NewLogTopics creates an empty LogTopics.
func NewLogTopics(logger *zap.Logger) *LogTopics {
	return &LogTopics{logger: logging.OrNop(logger).Named("topics"), members: make(map[string]map[string]bool)}
}

// Subscribe implements TopicManager.
func (t *LogTopics) Subscribe(_ context.Context, token, topic string) error {
	t.mu.Lock()
	if t.members[topic] == nil {
		t.members[topic] = make(map[string]bool)
	}
	t.members[topic][token] = true
	t.mu.Unlock()
	t.logger.Info("subscribed", zap.String("topic", topic))
	return nil
}

// Unsubscribe implements TopicManager.
func (t *LogTopics) Unsubscribe(_ context.Context, token, topic string) error {
	t.mu.Lock()
	delete(t.members[topic], token)
	t.mu.Unlock()
	t.logger.Info("unsubscribed", zap.String("topic", topic))
	return nil
}

// Subscribed reports whether token is a member of topic.
func (t *LogTopics) Subscribed(token, topic string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.members[topic][token]
}
