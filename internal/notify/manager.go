// Package notify maps category interests onto push topic subscriptions,
// filters duplicate foreground pushes and routes notification taps.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/metrics"
	"github.com/jonathan/govjob-alerts/internal/navigation"
	"github.com/jonathan/govjob-alerts/internal/prefs"
	"github.com/jonathan/govjob-alerts/internal/reporting"
	"github.com/jonathan/govjob-alerts/internal/result"
	"github.com/jonathan/govjob-alerts/internal/types"
)

// Topic naming
const (
	TopicPrefix  = "jobs-"
	GeneralTopic = "all-jobs"
)

// DefaultConfirmationDelay delays subscription confirmations.
const DefaultConfirmationDelay = 2 * time.Second

// Event names
const (
	EventNotificationOpened     = "notification_opened"
	MarketingNotificationOpened = "NotificationOpened"
)

var (
	// ErrUnavailable is returned by topic operations after permission was denied.
	ErrUnavailable = errors.New("notifications unavailable")
	// ErrNotInitialized is returned by topic operations before Initialize.
	ErrNotInitialized = errors.New("notifications not initialized")
)

// TopicFor maps a category id to its push topic.
func TopicFor(categoryID string) string {
	return TopicPrefix + categoryID
}

// State is the manager lifecycle state.
type State int

// States
const (
	StateUninitialized State = iota
	StatePermissionRequested
	StateReady
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StatePermissionRequested:
		return "permission_requested"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handler receives a push message.
type Handler func(ctx context.Context, msg types.PushMessage)

// Messaging is the managed push service as seen from the device.
type Messaging interface {
	RequestPermission(ctx context.Context) (bool, error)
	Token(ctx context.Context) (string, error)
	SubscribeToTopic(ctx context.Context, topic string) error
	UnsubscribeFromTopic(ctx context.Context, topic string) error
	// SetHandlers installs the foreground-message and notification-open handlers.
	SetHandlers(foreground, open Handler)
	// InitialNotification returns the notification that cold-started the app, if any.
	InitialNotification(ctx context.Context) (*types.PushMessage, error)
}

// LocalNotifier shows notifications from the device itself.
type LocalNotifier interface {
	Show(ctx context.Context, n types.LocalNotification) error
	Schedule(ctx context.Context, n types.LocalNotification, delay time.Duration) error
}

// TapRouter opens in-app destinations for tapped notifications.
type TapRouter interface {
	WaitReady(ctx context.Context) error
	OpenJob(ctx context.Context, jobID, categoryID string) navigation.Route
	Default(ctx context.Context) navigation.Route
}

// CategoryNamer maps category ids to display names.
type CategoryNamer interface {
	DisplayName(id string) string
}

// Options tunes the manager.
type Options struct {
	DedupWindow       time.Duration
	ConfirmationDelay time.Duration
}

// Outcome is the result of subscribing one category.
type Outcome struct {
	CategoryID string
	Result     result.Result[string]
}

// Manager is the notification subscription manager. Build one per process.
type Manager struct {
	messaging Messaging
	local     LocalNotifier
	prefs     *prefs.Store
	router    TapRouter
	reporter  reporting.Reporter
	names     CategoryNamer
	dedup     *Deduper
	logger    *zap.Logger

	confirmDelay time.Duration

	initMu sync.Mutex
	mu     sync.RWMutex
	state  State
	token  string

	bg sync.WaitGroup
}

// New creates a Manager in the Uninitialized state.
func New(messaging Messaging, local LocalNotifier, store *prefs.Store, router TapRouter,
	reporter reporting.Reporter, names CategoryNamer, opts Options, logger *zap.Logger) *Manager {
	if reporter == nil {
		reporter = reporting.Discard{}
	}
	if opts.ConfirmationDelay <= 0 {
		opts.ConfirmationDelay = DefaultConfirmationDelay
	}
	return &Manager{
		messaging:    messaging,
		local:        local,
		prefs:        store,
		router:       router,
		reporter:     reporter,
		names:        names,
		dedup:        NewDeduper(opts.DedupWindow),
		logger:       logging.OrNop(logger).Named("notify"),
		confirmDelay: opts.ConfirmationDelay,
	}
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Token returns the push identity, empty until Ready.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Initialize requests permission, obtains a push token and installs the
// message handlers. Denial leaves the manager Unavailable for the rest of
// the session. Later calls return the current state.
func (m *Manager) Initialize(ctx context.Context) State {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if s := m.State(); s != StateUninitialized {
		return s
	}
	if m.messaging == nil {
		m.setState(StateUnavailable)
		return StateUnavailable
	}

	m.setState(StatePermissionRequested)

	granted := result.Guard(m.logger, "request permission", func() (bool, error) {
		return m.messaging.RequestPermission(ctx)
	})
	if !granted.OK() || !granted.Value {
		m.logger.Warn("notification permission denied")
		m.setState(StateUnavailable)
		return StateUnavailable
	}

	token := result.Guard(m.logger, "get push token", func() (string, error) {
		tok, err := m.messaging.Token(ctx)
		if err == nil && tok == "" {
			err = errors.New("empty push token")
		}
		return tok, err
	})
	if !token.OK() {
		m.setState(StateUnavailable)
		return StateUnavailable
	}

	m.messaging.SetHandlers(
		func(ctx context.Context, msg types.PushMessage) { m.HandleForeground(ctx, msg) },
		m.HandleOpen,
	)

	m.mu.Lock()
	m.token = token.Value
	m.state = StateReady
	m.mu.Unlock()
	m.logger.Info("notifications ready")

	initial := result.Guard(m.logger, "initial notification", func() (*types.PushMessage, error) {
		return m.messaging.InitialNotification(ctx)
	})
	if initial.OK() && initial.Value != nil {
		msg := *initial.Value
		m.Go(func() { m.HandleOpen(context.WithoutCancel(ctx), msg) })
	}
	return StateReady
}

// Go runs fn in the background and tracks it for Wait.
func (m *Manager) Go(fn func()) {
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		fn()
	}()
}

// Wait blocks until background work started by the manager has finished.
func (m *Manager) Wait() {
	m.bg.Wait()
}

func (m *Manager) ready() error {
	switch m.State() {
	case StateReady:
		return nil
	case StateUnavailable:
		return ErrUnavailable
	default:
		return ErrNotInitialized
	}
}

func (m *Manager) topicCall(ctx context.Context, op, topic string, call func(context.Context, string) error) result.Result[string] {
	if err := m.ready(); err != nil {
		return result.Fail[string](err)
	}
	return result.Guard(m.logger.With(zap.String("topic", topic)), op, func() (string, error) {
		if err := call(ctx, topic); err != nil {
			return "", err
		}
		return topic, nil
	})
}

// Subscribe subscribes the device to a category topic.
func (m *Manager) Subscribe(ctx context.Context, categoryID string) result.Result[string] {
	return m.topicCall(ctx, "subscribe", TopicFor(categoryID), m.subscribe)
}

// Unsubscribe removes the device from a category topic.
func (m *Manager) Unsubscribe(ctx context.Context, categoryID string) result.Result[string] {
	return m.topicCall(ctx, "unsubscribe", TopicFor(categoryID), m.unsubscribe)
}

// SubscribeGeneral subscribes to the all-jobs topic.
func (m *Manager) SubscribeGeneral(ctx context.Context) result.Result[string] {
	return m.topicCall(ctx, "subscribe", GeneralTopic, m.subscribe)
}

// UnsubscribeGeneral leaves the all-jobs topic.
func (m *Manager) UnsubscribeGeneral(ctx context.Context) result.Result[string] {
	return m.topicCall(ctx, "unsubscribe", GeneralTopic, m.unsubscribe)
}

func (m *Manager) subscribe(ctx context.Context, topic string) error {
	return m.messaging.SubscribeToTopic(ctx, topic)
}

func (m *Manager) unsubscribe(ctx context.Context, topic string) error {
	return m.messaging.UnsubscribeFromTopic(ctx, topic)
}

// Follow adds a category to the notification list before subscribing and
// takes it back out if the subscription fails.
func (m *Manager) Follow(ctx context.Context, categoryID string) result.Result[string] {
	pending := m.prefs.BeginSubscribe(ctx, categoryID)
	res := m.Subscribe(ctx, categoryID)
	prefs.Settle(ctx, m.prefs, pending, res)
	return res
}

// Unfollow removes a category locally and unsubscribes in the background.
func (m *Manager) Unfollow(ctx context.Context, categoryID string) {
	m.prefs.RemoveNotificationCategory(ctx, categoryID)

	bgCtx := context.WithoutCancel(ctx)
	m.Go(func() {
		if res := m.Unsubscribe(bgCtx, categoryID); !res.OK() {
			m.logger.Warn("background unsubscribe failed", zap.String("category", categoryID), zap.Error(res.Err()))
		}
	})
}

// SubscribeMany subscribes every category concurrently and returns one
// outcome per id, in input order.
func (m *Manager) SubscribeMany(ctx context.Context, categoryIDs []string) []Outcome {
	outcomes := make([]Outcome, len(categoryIDs))

	var g errgroup.Group
	for i, id := range categoryIDs {
		g.Go(func() error {
			outcomes[i] = Outcome{CategoryID: id, Result: m.Subscribe(ctx, id)}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// FollowMany subscribes every category concurrently, commits the successful
// ones to preferences and schedules a single confirmation naming them.
func (m *Manager) FollowMany(ctx context.Context, categoryIDs []string) []Outcome {
	outcomes := m.SubscribeMany(ctx, categoryIDs)

	succeeded := Succeeded(outcomes)
	if len(succeeded) == 0 {
		m.logger.Warn("all subscriptions failed", zap.Strings("categories", categoryIDs))
		return outcomes
	}

	m.prefs.CommitSubscriptions(ctx, categoryIDs, succeeded)

	names := make([]string, 0, len(succeeded))
	for _, id := range succeeded {
		names = append(names, m.displayName(id))
	}
	m.schedule(ctx, types.LocalNotification{
		Title: "Job Alerts Enabled! ✅",
		Body:  "You'll get notifications for: " + strings.Join(names, ", "),
		Data:  map[string]string{"categories": strings.Join(succeeded, ","), "test": "true"},
	})
	return outcomes
}

// Succeeded returns the category ids whose subscription succeeded.
func Succeeded(outcomes []Outcome) []string {
	ids := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Result.OK() {
			ids = append(ids, o.CategoryID)
		}
	}
	return ids
}

// ResubscribeStored re-issues subscriptions for every category stored in
// preferences and drops the ones the push service rejects.
func (m *Manager) ResubscribeStored(ctx context.Context) []Outcome {
	stored := m.prefs.NotificationCategories()
	if len(stored) == 0 {
		return nil
	}

	outcomes := m.SubscribeMany(ctx, stored)
	for _, o := range outcomes {
		if !o.Result.OK() {
			m.prefs.RemoveNotificationCategory(ctx, o.CategoryID)
		}
	}
	m.logger.Info("stored subscriptions restored",
		zap.Int("requested", len(stored)), zap.Int("succeeded", len(Succeeded(outcomes))))
	return outcomes
}

func (m *Manager) displayName(id string) string {
	if m.names == nil {
		return id
	}
	if name := m.names.DisplayName(id); name != "" {
		return name
	}
	return id
}

// ScheduleConfirmation schedules the single-category confirmation.
func (m *Manager) ScheduleConfirmation(ctx context.Context, categoryName string) {
	m.schedule(ctx, types.LocalNotification{
		Title: categoryName + " Job Alerts Enabled! ✅",
		Body:  "You'll now receive notifications for new " + categoryName + " job postings. Stay updated!",
		Data:  map[string]string{types.DataCategory: categoryName, "test": "true"},
	})
}

func (m *Manager) schedule(ctx context.Context, n types.LocalNotification) {
	if m.local == nil {
		return
	}
	result.Do(m.logger, "schedule confirmation", func() error {
		return m.local.Schedule(ctx, n, m.confirmDelay)
	})
}

// HandleForeground shows a push received while the app is open unless the
// same job was shown within the dedup window. It reports whether the
// message was shown.
func (m *Manager) HandleForeground(ctx context.Context, msg types.PushMessage) bool {
	if !m.dedup.Accept(msg.JobID()) {
		metrics.DuplicatePushes.Inc()
		m.logger.Info("duplicate push dropped", zap.String("job_id", msg.JobID()))
		return false
	}

	if msg.Notification == nil {
		m.logger.Info("push without notification content", zap.String("job_id", msg.JobID()))
		return false
	}
	if m.local == nil {
		return false
	}

	title := msg.Notification.Title
	if title == "" {
		title = "New Job Alert"
	}
	res := result.Do(m.logger, "show notification", func() error {
		return m.local.Show(ctx, types.LocalNotification{
			Title: title,
			Body:  msg.Notification.Body,
			Data:  msg.Data,
		})
	})
	return res.OK()
}

// HandleOpen routes a tapped notification once navigation is ready. A
// message with both a job id and a category opens the job; anything else
// opens the default screen.
func (m *Manager) HandleOpen(ctx context.Context, msg types.PushMessage) {
	if m.router == nil {
		return
	}
	if err := m.router.WaitReady(ctx); err != nil {
		m.logger.Error("dropping notification tap", zap.String("job_id", msg.JobID()), zap.Error(err))
		return
	}

	jobID, category := msg.JobID(), msg.Category()
	params := map[string]string{"job_id": jobID, "category": category}
	m.reporter.Enqueue(reporting.TargetAnalytics, reporting.NewEvent(EventNotificationOpened, params))
	m.reporter.Enqueue(reporting.TargetMarketing, reporting.NewEvent(MarketingNotificationOpened, params))

	if jobID != "" && category != "" {
		m.router.OpenJob(ctx, jobID, category)
		return
	}
	m.router.Default(ctx)
}
