package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/jonathan/govjob-alerts/internal/attribution"
	"github.com/jonathan/govjob-alerts/internal/catalog"
	"github.com/jonathan/govjob-alerts/internal/config"
	"github.com/jonathan/govjob-alerts/internal/kv"
	"github.com/jonathan/govjob-alerts/internal/navigation"
	"github.com/jonathan/govjob-alerts/internal/push"
	"github.com/jonathan/govjob-alerts/internal/reporting"
	"github.com/jonathan/govjob-alerts/internal/types"
)

// StateRedisPrefix namespaces device state keys in a shared Redis.
const StateRedisPrefix = "govjobs:device:"

// Device bundles a Runtime with the simulated push device that feeds it.
type Device struct {
	*Runtime
	Push  *push.Device
	Local *push.LogNotifier
}

// Open builds a Runtime from configuration. initial is the notification
// that launched the app, if any. Storage errors are fatal; every other
// backend falls back to a logging stand-in when it is not configured.
func Open(ctx context.Context, cfg config.DeviceConfig, nav navigation.Navigator, initial *types.PushMessage, logger *zap.Logger) (*Device, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var closers []io.Closer
	sinks, sinkClosers, err := openSinks(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	closers = append(closers, sinkClosers...)

	topics, err := openTopics(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}

	device := push.NewDevice(push.DeviceConfig{
		NotificationsAllowed: cfg.NotificationsAllowed,
		Token:                cfg.PushToken,
		Initial:              initial,
	}, topics, logger)
	local := push.NewLogNotifier(logger)

	var remote catalog.Remote
	if cfg.APIBaseURL != "" {
		remote = catalog.NewHTTPRemote(cfg.APIBaseURL, nil)
	}

	var referrer attribution.ReferrerSource
	if cfg.InstallReferrer != "" {
		raw := cfg.InstallReferrer
		referrer = attribution.ReferrerFunc(func(context.Context) (string, error) { return raw, nil })
	}

	rt := New(cfg, Components{
		Store:     store,
		Remote:    remote,
		Messaging: device,
		Local:     local,
		Navigator: nav,
		Referrer:  referrer,
		Sinks:     sinks,
		Closers:   closers,
	}, logger)
	return &Device{Runtime: rt, Push: device, Local: local}, nil
}

func openStore(ctx context.Context, cfg config.DeviceConfig) (kv.Store, error) {
	if cfg.StateRedisURL != "" {
		client, err := kv.NewRedisClient(ctx, cfg.StateRedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		return kv.NewRedis(client, StateRedisPrefix), nil
	}
	store, err := kv.OpenSQLite(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, nil
}

func openSinks(cfg config.DeviceConfig, logger *zap.Logger) (map[reporting.Target]reporting.Sink, []io.Closer, error) {
	sinks := map[reporting.Target]reporting.Sink{
		reporting.TargetAnalytics: reporting.NewLogSink(logger, "analytics"),
		reporting.TargetMarketing: reporting.NewLogSink(logger, "marketing"),
	}
	var closers []io.Closer

	if cfg.AnalyticsAMQPURL != "" {
		sink, err := reporting.DialAMQP(cfg.AnalyticsAMQPURL, cfg.AnalyticsQueue, cfg.MarketingAppID)
		if err != nil {
			return nil, nil, err
		}
		sinks[reporting.TargetAnalytics] = sink
		closers = append(closers, sink)
	}
	if cfg.MarketingEndpoint != "" {
		sinks[reporting.TargetMarketing] = reporting.NewHTTPSink(cfg.MarketingEndpoint, cfg.MarketingAppID, nil)
	}
	return sinks, closers, nil
}

func openTopics(ctx context.Context, cfg config.DeviceConfig, logger *zap.Logger) (push.TopicManager, error) {
	if cfg.PushCredentialsFile == "" {
		return push.NewLogTopics(logger), nil
	}
	client, err := push.NewTopicClient(ctx, option.WithCredentialsFile(cfg.PushCredentialsFile))
	if err != nil {
		return nil, err
	}
	return client, nil
}
