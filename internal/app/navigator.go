package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/navigation"
)

// LogNavigator is a headless navigator: always ready, it records and logs
// every route it is asked to show.
type LogNavigator struct {
	logger *zap.Logger

	mu     sync.Mutex
	routes []navigation.Route
}

// NewLogNavigator creates a LogNavigator.
func NewLogNavigator(logger *zap.Logger) *LogNavigator {
	return &LogNavigator{logger: logging.OrNop(logger).Named("navigator")}
}

// Ready implements navigation.Navigator.
func (n *LogNavigator) Ready() bool { return true }

// Navigate implements navigation.Navigator.
func (n *LogNavigator) Navigate(_ context.Context, route navigation.Route) error {
	n.mu.Lock()
	n.routes = append(n.routes, route)
	n.mu.Unlock()

	fields := []zap.Field{zap.String("screen", string(route.Screen))}
	if route.Job != nil {
		fields = append(fields, zap.String("job_id", route.Job.ID), zap.String("title", route.Job.Title))
	}
	if route.Category != nil {
		fields = append(fields, zap.String("category", route.Category.ID))
	}
	n.logger.Info("navigate", fields...)
	return nil
}

// Routes returns every route shown so far.
func (n *LogNavigator) Routes() []navigation.Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]navigation.Route(nil), n.routes...)
}
