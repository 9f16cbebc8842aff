// Package reporting delivers analytics and marketing events off the caller's
// path. Events are queued per sink and drained by background goroutines;
// a failing or slow sink never blocks the caller or the other sink.
package reporting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/metrics"
)

// Target names a reporting sink.
type Target string

// Targets
const (
	TargetAnalytics Target = "analytics"
	TargetMarketing Target = "marketing"
)

// Event kinds
const (
	KindEvent        = "event"
	KindUserProperty = "user_property"
)

// DefaultQueueSize is the per-target buffer used when none is configured.
const DefaultQueueSize = 256

// Event is one outbound reporting call.
type Event struct {
	Kind   string            `json:"kind"`
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
	At     time.Time         `json:"at"`
}

// NewEvent builds a KindEvent stamped with the current time.
func NewEvent(name string, params map[string]string) Event {
	return Event{Kind: KindEvent, Name: name, Params: params, At: time.Now()}
}

// UserProperty builds a KindUserProperty event.
func UserProperty(name, value string) Event {
	return Event{Kind: KindUserProperty, Name: name, Params: map[string]string{"value": value}, At: time.Now()}
}

// Sink delivers events to one reporting backend.
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

// Send implements Sink.
func (f SinkFunc) Send(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Reporter accepts events without blocking.
type Reporter interface {
	Enqueue(target Target, ev Event)
}

// Discard is a Reporter that drops everything.
type Discard struct{}

// Enqueue implements Reporter.
func (Discard) Enqueue(Target, Event) {}

type lane struct {
	target Target
	sink   Sink
	ch     chan Event
}

// Queue fans events out to per-target lanes.
type Queue struct {
	lanes       map[Target]*lane
	logger      *zap.Logger
	sendTimeout time.Duration

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewQueue creates a queue with one lane per configured sink. Targets
// without a sink are accepted and dropped.
func NewQueue(sinks map[Target]Sink, size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	q := &Queue{
		lanes:       make(map[Target]*lane, len(sinks)),
		logger:      logging.OrNop(logger).Named("reporting"),
		sendTimeout: 10 * time.Second,
	}
	for target, sink := range sinks {
		if sink == nil {
			continue
		}
		q.lanes[target] = &lane{target: target, sink: sink, ch: make(chan Event, size)}
	}
	return q
}

// Start launches one drain goroutine per lane. Calling Start twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(ctx)
	for _, l := range q.lanes {
		q.wg.Add(1)
		go q.drain(ctx, l)
	}
}

// Enqueue implements Reporter. A full lane drops the event and logs it.
func (q *Queue) Enqueue(target Target, ev Event) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop(target, ev, "closed")
		return
	}
	l, ok := q.lanes[target]
	if !ok {
		q.drop(target, ev, "no_sink")
		return
	}

	select {
	case l.ch <- ev:
	default:
		q.drop(target, ev, "queue_full")
	}
}

func (q *Queue) drop(target Target, ev Event, reason string) {
	metrics.ReportingDropped.WithLabelValues(string(target), reason).Inc()
	q.logger.Debug("reporting event dropped",
		zap.String("sink", string(target)), zap.String("event", ev.Name), zap.String("reason", reason))
}

func (q *Queue) drain(ctx context.Context, l *lane) {
	defer q.wg.Done()
	for {
		select {
		case ev, ok := <-l.ch:
			if !ok {
				return
			}
			q.deliver(ctx, l, ev)
		case <-ctx.Done():
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, l *lane, ev Event) {
	sendCtx, cancel := context.WithTimeout(ctx, q.sendTimeout)
	defer cancel()

	var err error
	func() {
		defer func() {
			if v := recover(); v != nil {
				err = fmt.Errorf("sink panicked: %v", v)
			}
		}()
		err = l.sink.Send(sendCtx, ev)
	}()

	if err != nil {
		metrics.ReportingDropped.WithLabelValues(string(l.target), "sink_error").Inc()
		q.logger.Warn("reporting sink failed",
			zap.String("sink", string(l.target)), zap.String("event", ev.Name), zap.Error(err))
	}
}

// Close stops accepting events and drains what is queued until ctx expires.
func (q *Queue) Close(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	started := q.started
	for _, l := range q.lanes {
		close(l.ch)
	}
	q.mu.Unlock()

	if !started {
		return
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		q.logger.Warn("reporting queue closed before drain completed")
	}
	q.cancel()
	<-done
}
