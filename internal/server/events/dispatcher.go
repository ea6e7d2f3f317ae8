package events

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	defaultBufferSize    = 1000
	defaultDeliveryLimit = 10 * time.Second
)

// Sink delivers events to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event Event) error
}

// Dispatcher fans events out to sinks on a single background worker.
// Emit never blocks; events are dropped when the buffer is full.
type Dispatcher struct {
	sinks     []Sink
	eventChan chan Event
	logger    *zap.Logger
	dropped   prometheus.Counter
	timeout   time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu      sync.RWMutex
	stopped bool
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithBufferSize overrides the event buffer capacity.
func WithBufferSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.eventChan = make(chan Event, n)
		}
	}
}

// WithDroppedCounter counts events dropped because the buffer was full.
func WithDroppedCounter(c prometheus.Counter) DispatcherOption {
	return func(d *Dispatcher) { d.dropped = c }
}

// WithDeliveryTimeout bounds each Sink.Deliver call.
func WithDeliveryTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// NewDispatcher creates a dispatcher. Call Start before emitting.
func NewDispatcher(logger *zap.Logger, sinks []Sink, opts ...DispatcherOption) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sinks:     sinks,
		eventChan: make(chan Event, defaultBufferSize),
		logger:    logger,
		timeout:   defaultDeliveryLimit,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start begins processing events
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.processEvents()
	d.logger.Info("event dispatcher started", zap.Int("sinks", len(d.sinks)))
}

// Stop drains buffered events and waits for the worker to exit.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		close(d.eventChan)
		d.mu.Unlock()

		d.wg.Wait()
		d.cancel()
		d.logger.Info("event dispatcher stopped")
	})
}

// Emit queues an event for delivery.
func (d *Dispatcher) Emit(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return
	}

	select {
	case d.eventChan <- event:
	default:
		if d.dropped != nil {
			d.dropped.Inc()
		}
		d.logger.Warn("event channel full, dropping event",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type))
	}
}

// Emitter returns Emit as an Emitter
func (d *Dispatcher) Emitter() Emitter {
	return d.Emit
}

func (d *Dispatcher) processEvents() {
	defer d.wg.Done()

	for event := range d.eventChan {
		for _, sink := range d.sinks {
			d.deliver(sink, event)
		}
	}
}

func (d *Dispatcher) deliver(sink Sink, event Event) {
	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	if err := sink.Deliver(ctx, event); err != nil {
		d.logger.Warn("event delivery failed",
			zap.String("sink", sink.Name()),
			zap.String("event_id", event.ID),
			zap.String("type", event.Type),
			zap.Error(err))
	}
}
