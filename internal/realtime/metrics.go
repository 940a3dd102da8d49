package realtime

import (
	"context"

	"github.com/ihor-metko/RSP-sub004/internal/telemetry"
)

// Metrics groups the broker's instrumentation. A nil *Metrics is valid
// and records nothing, so tests can pass nil.
type Metrics struct {
	activeConnections *telemetry.UpDownCounter
	eventsPublished   *telemetry.Counter
	framesDelivered   *telemetry.Counter
	framesDropped     *telemetry.Counter
}

// NewMetrics registers the broker metrics on the process meter
func NewMetrics() (*Metrics, error) {
	active, err := telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "realtime.connections.active",
		Description: "Currently open realtime connections",
		Unit:        "{connection}",
	})
	if err != nil {
		return nil, err
	}
	published, err := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "realtime.events.published",
		Description: "Events accepted for fan-out",
		Unit:        "{event}",
	})
	if err != nil {
		return nil, err
	}
	delivered, err := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "realtime.frames.delivered",
		Description: "Event frames delivered to subscribers",
		Unit:        "{frame}",
	})
	if err != nil {
		return nil, err
	}
	dropped, err := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "realtime.frames.dropped",
		Description: "Event frames dropped on slow or closing subscribers",
		Unit:        "{frame}",
	})
	if err != nil {
		return nil, err
	}
	return &Metrics{
		activeConnections: active,
		eventsPublished:   published,
		framesDelivered:   delivered,
		framesDropped:     dropped,
	}, nil
}

// ConnectionOpened records one new connection
func (m *Metrics) ConnectionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.activeConnections.Add(ctx, 1)
}

// ConnectionClosed records one closed connection
func (m *Metrics) ConnectionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.activeConnections.Add(ctx, -1)
}

// PublishReceived records one publish call
func (m *Metrics) PublishReceived(ctx context.Context) {
	if m == nil {
		return
	}
	m.eventsPublished.Inc(ctx)
}

// Delivered records successfully delivered frames
func (m *Metrics) Delivered(ctx context.Context, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.framesDelivered.Add(ctx, n)
}

// Dropped records one dropped frame
func (m *Metrics) Dropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.framesDropped.Inc(ctx)
}
