package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/jonathan/govjob-alerts/internal/config"
	"github.com/jonathan/govjob-alerts/internal/events"
	"github.com/jonathan/govjob-alerts/internal/fanout"
	"github.com/jonathan/govjob-alerts/internal/logging"
)

var fanoutCmd = &cobra.Command{
	Use:   "fanout",
	Short: "Run the push fan-out worker",
	Long: `Consume job-created events from NATS and send one push to the job's
category topic and one to the general topic.

NATS_URL and FCM_PROJECT_ID are required.`,
	RunE: runFanout,
}

func init() {
	rootCmd.AddCommand(fanoutCmd)
}

func runFanout(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFanout()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	sender, err := fanout.NewFCMSender(ctx, cfg.FCMProjectID, opts...)
	if err != nil {
		return err
	}
	svc, err := fanout.NewService(sender, logger)
	if err != nil {
		return err
	}

	bus, err := events.Connect(cfg.NATSURL, logger)
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	if _, err := bus.SubscribeJobCreated(ctx, cfg.QueueGroup, svc.HandleJobCreated); err != nil {
		return err
	}

	metricsSrv := serveMetrics(cfg.MetricsAddr, logger)

	logger.Info("fan-out worker started",
		zap.String("queue_group", cfg.QueueGroup),
		zap.String("project", cfg.FCMProjectID),
	)
	<-ctx.Done()
	logger.Info("fan-out worker stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return metricsSrv.Shutdown(shutdownCtx)
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
