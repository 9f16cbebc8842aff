// Package app assembles the device runtime: one instance of each service,
// built explicitly, and the ordered boot sequence that starts them.
package app

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/attribution"
	"github.com/jonathan/govjob-alerts/internal/catalog"
	"github.com/jonathan/govjob-alerts/internal/config"
	"github.com/jonathan/govjob-alerts/internal/deeplink"
	"github.com/jonathan/govjob-alerts/internal/kv"
	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/navigation"
	"github.com/jonathan/govjob-alerts/internal/notify"
	"github.com/jonathan/govjob-alerts/internal/prefs"
	"github.com/jonathan/govjob-alerts/internal/reporting"
	"github.com/jonathan/govjob-alerts/internal/result"
)

// EventAppOpen is logged to analytics on every boot.
const EventAppOpen = "app_open"

// Boot step names, in execution order.
const (
	StepPreferences   = "load preferences"
	StepAnalytics     = "analytics init"
	StepMarketing     = "marketing init"
	StepAttribution   = "install attribution"
	StepInitialLink   = "initial link"
	StepNotifications = "notifications init"
	StepCatalog       = "catalog refresh"
)

// Components are the platform and backend boundaries a Runtime is built on.
// Nil Remote, Messaging, Local, Referrer or sinks degrade the matching
// feature instead of failing.
type Components struct {
	Store     kv.Store
	Remote    catalog.Remote
	Messaging notify.Messaging
	Local     notify.LocalNotifier
	Navigator navigation.Navigator
	Referrer  attribution.ReferrerSource
	Sinks     map[reporting.Target]reporting.Sink
	// Closers are closed after the store, e.g. sink connections.
	Closers []io.Closer
}

// Runtime holds the device services. Build it once per process with New or
// Open and pass it by reference.
type Runtime struct {
	Config        config.DeviceConfig
	Prefs         *prefs.Store
	Catalog       *catalog.Cache
	Refresher     *catalog.Refresher
	Reporting     *reporting.Queue
	Attribution   *attribution.Tracker
	Navigation    *navigation.Service
	Notifications *notify.Manager
	Links         *deeplink.Router

	store   kv.Store
	closers []io.Closer
	logger  *zap.Logger
	cancel  context.CancelFunc
}

// StepResult records how one boot step ended.
type StepResult struct {
	Step string
	Err  error
}

// New wires the services on top of c. cfg should already be merged with
// defaults.
func New(cfg config.DeviceConfig, c Components, logger *zap.Logger) *Runtime {
	logger = logging.OrNop(logger)

	store := c.Store
	if store == nil {
		store = kv.NewMemory()
	}

	queue := reporting.NewQueue(c.Sinks, reporting.DefaultQueueSize, logger)
	prefStore := prefs.New(store, logger)
	cache := catalog.NewCache(c.Remote, logger)
	nav := navigation.New(c.Navigator, cache, prefStore, navigation.Options{
		ReadyAttempts: cfg.TapRetryAttempts,
		ReadyDelay:    time.Duration(cfg.TapRetryDelay),
	}, logger)
	tracker := attribution.New(store, queue, c.Referrer, logger)

	return &Runtime{
		Config:      cfg,
		Prefs:       prefStore,
		Catalog:     cache,
		Refresher:   catalog.NewRefresher(cache, cfg.RefreshSpec, logger),
		Reporting:   queue,
		Attribution: tracker,
		Navigation:  nav,
		Notifications: notify.New(c.Messaging, c.Local, prefStore, nav, queue, cache, notify.Options{
			DedupWindow: time.Duration(cfg.DedupWindow),
		}, logger),
		Links:   deeplink.NewRouter(tracker, nav, logger),
		store:   store,
		closers: c.Closers,
		logger:  logger.Named("app"),
	}
}

// Boot runs the startup sequence in order. Every step runs even when an
// earlier one failed; failures are logged and reported in the result.
// initialLink is the URL that launched the app, or empty.
func (r *Runtime) Boot(ctx context.Context, initialLink string) []StepResult {
	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel

	steps := []struct {
		name string
		run  func() error
	}{
		{StepPreferences, func() error { return r.Prefs.Load(ctx) }},
		{StepAnalytics, func() error {
			r.Reporting.Start(bgCtx)
			r.Reporting.Enqueue(reporting.TargetAnalytics, reporting.NewEvent(EventAppOpen, map[string]string{
				"platform": r.Config.Platform,
			}))
			return nil
		}},
		{StepMarketing, func() error {
			r.Attribution.TrackDailyLaunch(ctx)
			return nil
		}},
		{StepAttribution, func() error {
			r.Attribution.TrackInstall(ctx)
			return nil
		}},
		{StepInitialLink, func() error {
			r.Links.HandleInitialLink(ctx, initialLink)
			return nil
		}},
		{StepNotifications, func() error {
			if state := r.Notifications.Initialize(ctx); state != notify.StateReady {
				return notify.ErrUnavailable
			}
			r.Notifications.ResubscribeStored(ctx)
			return nil
		}},
		{StepCatalog, func() error {
			cats := r.Catalog.RefreshCategories(ctx)
			jobs := r.Catalog.Refresh(ctx)
			if err := r.Refresher.Start(bgCtx); err != nil {
				return err
			}
			if !jobs.OK() {
				return jobs.Err()
			}
			return cats.Err()
		}},
	}

	results := make([]StepResult, 0, len(steps))
	for _, step := range steps {
		res := result.Do(r.logger, step.name, step.run)
		results = append(results, StepResult{Step: step.name, Err: res.Err()})
	}
	r.logger.Info("boot complete", zap.Int("failed_steps", countFailed(results)))
	return results
}

func countFailed(results []StepResult) int {
	n := 0
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Close stops the refresher, waits for background notification work,
// drains the reporting queue until ctx expires and closes storage.
func (r *Runtime) Close(ctx context.Context) {
	if r.cancel != nil {
		r.Refresher.Stop()
	}
	r.Notifications.Wait()
	r.Reporting.Close(ctx)
	if r.cancel != nil {
		r.cancel()
	}

	if err := r.store.Close(); err != nil {
		r.logger.Warn("failed to close state store", zap.Error(err))
	}
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			r.logger.Warn("failed to close component", zap.Error(err))
		}
	}
}
