package catalog

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/logging"
)

// DefaultRefreshSpec refreshes the catalog every 30 minutes.
const DefaultRefreshSpec = "@every 30m"

// Refresher reloads a Cache on a cron schedule.
type Refresher struct {
	cron   *cron.Cron
	cache  *Cache
	spec   string
	logger *zap.Logger
}

// NewRefresher creates a refresher for cache. An empty spec uses DefaultRefreshSpec.
func NewRefresher(cache *Cache, spec string, logger *zap.Logger) *Refresher {
	if spec == "" {
		spec = DefaultRefreshSpec
	}
	return &Refresher{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		cache:  cache,
		spec:   spec,
		logger: logging.OrNop(logger).Named("refresher"),
	}
}

// Start registers the refresh job and starts the scheduler. The first run
// happens on the first tick; boot performs the initial refresh itself.
func (r *Refresher) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.spec, func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid refresh spec %q: %w", r.spec, err)
	}
	r.cron.Start()
	r.logger.Info("catalog refresher started", zap.String("spec", r.spec))
	return nil
}

// RunOnce refreshes categories and jobs. Failures are logged by the cache.
func (r *Refresher) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cats := r.cache.RefreshCategories(ctx)
	jobs := r.cache.Refresh(ctx)
	r.logger.Debug("catalog refresh complete",
		zap.Bool("categories_ok", cats.OK()), zap.Bool("jobs_ok", jobs.OK()), zap.Int("jobs", jobs.Value))
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("catalog refresher stopped")
}
