package push

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/notify"
	"github.com/jonathan/govjob-alerts/internal/types"
)

// ErrNoToken is returned when the device has no registration token.
var ErrNoToken = errors.New("device has no push token")

// TopicManager manages topic membership for a registration token.
type TopicManager interface {
	Subscribe(ctx context.Context, token, topic string) error
	Unsubscribe(ctx context.Context, token, topic string) error
}

// Device adapts a registration token and a TopicManager to the messaging
// interface used by the notification manager. Incoming messages are
// injected with Deliver and Open.
type Device struct {
	allowed bool
	token   string
	topics  TopicManager
	initial *types.PushMessage
	logger  *zap.Logger

	mu         sync.RWMutex
	foreground notify.Handler
	open       notify.Handler
}

// DeviceConfig configures a Device.
type DeviceConfig struct {
	// NotificationsAllowed is the answer to the permission prompt.
	NotificationsAllowed bool
	Token                string
	// Initial is the notification that launched the app, if any.
	Initial *types.PushMessage
}

// NewDevice creates a Device.
func NewDevice(cfg DeviceConfig, topics TopicManager, logger *zap.Logger) *Device {
	return &Device{
		allowed: cfg.NotificationsAllowed,
		token:   cfg.Token,
		topics:  topics,
		initial: cfg.Initial,
		logger:  logging.OrNop(logger).Named("device"),
	}
}

// RequestPermission implements notify.Messaging.
func (d *Device) RequestPermission(context.Context) (bool, error) {
	return d.allowed, nil
}

// Token implements notify.Messaging.
func (d *Device) Token(context.Context) (string, error) {
	if d.token == "" {
		return "", ErrNoToken
	}
	return d.token, nil
}

// SubscribeToTopic implements notify.Messaging.
func (d *Device) SubscribeToTopic(ctx context.Context, topic string) error {
	if d.topics == nil {
		return errors.New("no topic manager configured")
	}
	return d.topics.Subscribe(ctx, d.token, topic)
}

// UnsubscribeFromTopic implements notify.Messaging.
func (d *Device) UnsubscribeFromTopic(ctx context.Context, topic string) error {
	if d.topics == nil {
		return errors.New("no topic manager configured")
	}
	return d.topics.Unsubscribe(ctx, d.token, topic)
}

// SetHandlers implements notify.Messaging.
func (d *Device) SetHandlers(foreground, open notify.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.foreground = foreground
	d.open = open
}

// InitialNotification implements notify.Messaging.
func (d *Device) InitialNotification(context.Context) (*types.PushMessage, error) {
	return d.initial, nil
}

// Deliver hands a foreground message to the installed handler. It reports
// false when no handler is installed.
func (d *Device) Deliver(ctx context.Context, msg types.PushMessage) bool {
	d.mu.RLock()
	h := d.foreground
	d.mu.RUnlock()
	if h == nil {
		d.logger.Warn("foreground message before handlers were installed")
		return false
	}
	h(ctx, msg)
	return true
}

// Open hands a tapped notification to the installed handler.
func (d *Device) Open(ctx context.Context, msg types.PushMessage) bool {
	d.mu.RLock()
	h := d.open
	d.mu.RUnlock()
	if h == nil {
		d.logger.Warn("notification open before handlers were installed")
		return false
	}
	h(ctx, msg)
	return true
}

// LogNotifier is a local notifier that writes notifications to the log.
type LogNotifier struct {
	logger *zap.Logger

	mu    sync.Mutex
	shown []types.LocalNotification
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logging.OrNop(logger).Named("local")}
}

// Show implements notify.LocalNotifier.
func (n *LogNotifier) Show(_ context.Context, ln types.LocalNotification) error {
	n.record(ln)
	n.logger.Info("notification shown", zap.String("title", ln.Title), zap.String("body", ln.Body))
	return nil
}

// Schedule implements notify.LocalNotifier.
func (n *LogNotifier) Schedule(_ context.Context, ln types.LocalNotification, delay time.Duration) error {
	n.record(ln)
	n.logger.Info("notification scheduled",
		zap.String("title", ln.Title), zap.String("body", ln.Body), zap.Duration("delay", delay))
	return nil
}

func (n *LogNotifier) record(ln types.LocalNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, ln)
}

// Notifications returns everything shown or scheduled so far.
func (n *LogNotifier) Notifications() []types.LocalNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.LocalNotification(nil), n.shown...)
}
