// Package notify fans committed parking events out to external sinks.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/metrics"
)

// Sink delivers one event to one destination.
type Sink interface {
	Name() string
	Publish(ctx context.Context, event domain.ParkingEvent) error
}

// Dispatcher publishes each event to every sink in turn. Sink failures are
// logged and counted, never returned.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
}

func NewDispatcher(timeout time.Duration, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, timeout: timeout}
}

func (d *Dispatcher) Add(sink Sink) {
	d.sinks = append(d.sinks, sink)
}

func (d *Dispatcher) Len() int {
	return len(d.sinks)
}

func (d *Dispatcher) Notify(ctx context.Context, event domain.ParkingEvent) {
	// Delivery outlives a cancelled request; the per-sink timeout still applies.
	base := context.WithoutCancel(ctx)
	for _, sink := range d.sinks {
		sinkCtx, cancel := context.WithTimeout(base, d.timeout)
		err := sink.Publish(sinkCtx, event)
		cancel()

		metrics.EventsPublished.WithLabelValues(sink.Name(), metrics.Outcome(err)).Inc()
		if err != nil {
			zap.L().Warn("parking event not delivered",
				zap.String("sink", sink.Name()),
				zap.String("event_id", event.EventID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err),
			)
		}
	}
}
