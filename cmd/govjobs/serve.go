package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/jonathan/govjob-alerts/internal/admin"
	"github.com/jonathan/govjob-alerts/internal/config"
	"github.com/jonathan/govjob-alerts/internal/db"
	"github.com/jonathan/govjob-alerts/internal/events"
	"github.com/jonathan/govjob-alerts/internal/fanout"
	"github.com/jonathan/govjob-alerts/internal/kv"
	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/server"
	"github.com/jonathan/govjob-alerts/internal/server/ratelimit"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the HTTP server for the admin panel and the public job catalog.

DATABASE_URL is required. REDIS_URL enables the catalog cache, NATS_URL
enables job-created events and FCM_PROJECT_ID enables test notifications.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Migrate(ctx); err != nil {
		return err
	}

	var publisher admin.Publisher
	if cfg.NATSURL != "" {
		bus, err := events.Connect(cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		defer func() { _ = bus.Close() }()
		publisher = bus
	} else {
		logger.Warn("NATS_URL not set, job-created events are disabled")
	}

	var cache *server.CatalogCache
	if cfg.RedisURL != "" {
		client, err := kv.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		cache = server.NewCatalogCache(client, cfg.CatalogCacheTTL, logger)
	}

	notifier, err := testNotifier(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{Port: cfg.Port}, server.Deps{
		Admin:    admin.New(database, publisher, logger),
		Auth:     server.NewAuthService(database, passwordConfig),
		Tokens:   server.NewJWTService(jwtConfig),
		Notifier: notifier,
		Cache:    cache,
		Health:   database,
		Limiter:  ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Logger:   logger,
	})
	return srv.Start()
}

// testNotifier returns a fan-out service for the test notification route
// when an FCM project is configured, and nil otherwise.
func testNotifier(ctx context.Context, cfg *config.ServerConfig, logger *zap.Logger) (server.TestNotifier, error) {
	if cfg.FCMProjectID == "" {
		return nil, nil
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	sender, err := fanout.NewFCMSender(ctx, cfg.FCMProjectID, opts...)
	if err != nil {
		return nil, err
	}
	svc, err := fanout.NewService(sender, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create fan-out service: %w", err)
	}
	return svc, nil
}
