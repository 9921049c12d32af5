package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/dragonscale-assist/internal/logger"
)

const (
	defaultOutboxBacklog = 1024
	defaultDrainTimeout  = time.Second
)

// Outbox forwards events to a bus from a single goroutine, so Post never
// blocks and events reach the bus in the order they were posted. When the
// backlog is full the oldest pending event is dropped.
type Outbox struct {
	bus          EventBus
	logger       logger.Logger
	backlog      int
	drainTimeout time.Duration

	mu      sync.Mutex
	pending []Event
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	stop   chan struct{}
	done   chan struct{}
}

// OutboxOption configures an Outbox.
type OutboxOption func(*Outbox)

// WithBacklog caps the number of events waiting to be forwarded.
func WithBacklog(n int) OutboxOption {
	return func(o *Outbox) {
		if n > 0 {
			o.backlog = n
		}
	}
}

// WithDrainTimeout bounds how long Close keeps forwarding pending events.
func WithDrainTimeout(d time.Duration) OutboxOption {
	return func(o *Outbox) {
		if d > 0 {
			o.drainTimeout = d
		}
	}
}

// WithOutboxLogger sets the logger used for dropped events.
func WithOutboxLogger(l logger.Logger) OutboxOption {
	return func(o *Outbox) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOutbox starts forwarding to bus.
func NewOutbox(bus EventBus, opts ...OutboxOption) *Outbox {
	o := &Outbox{
		bus:          bus,
		logger:       logger.NopLogger{},
		backlog:      defaultOutboxBacklog,
		drainTimeout: defaultDrainTimeout,
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.ctx, o.cancel = context.WithCancel(context.Background())
	go o.forward()
	return o
}

// Post queues event for the bus and returns immediately.
func (o *Outbox) Post(event Event) {
	if event == nil {
		return
	}
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.logger.Debugf("dropped %s event: outbox closed", event.Type())
		return
	}
	if len(o.pending) >= o.backlog {
		o.logger.Warnf("dropped %s event: outbox backlog full", o.pending[0].Type())
		o.pending = o.pending[1:]
	}
	o.pending = append(o.pending, event)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// Publish is Post for callers that hold a Publisher. It never blocks and
// never fails.
func (o *Outbox) Publish(_ context.Context, event Event) error {
	o.Post(event)
	return nil
}

func (o *Outbox) take() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	batch := o.pending
	o.pending = nil
	return batch
}

func (o *Outbox) forward() {
	defer close(o.done)
	for {
		o.send(o.take())
		select {
		case <-o.wake:
		case <-o.stop:
			o.send(o.take())
			return
		}
	}
}

func (o *Outbox) send(batch []Event) {
	for i, event := range batch {
		if err := o.bus.Publish(o.ctx, event); err != nil {
			o.logger.Debugf("dropped %d events starting at %s: %v", len(batch)-i, event.Type(), err)
			return
		}
	}
}

// Close stops accepting events, forwards what is pending within the drain
// timeout and returns once the forwarding goroutine has exited. It does not
// close the bus.
func (o *Outbox) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		<-o.done
		return
	}
	o.closed = true
	o.mu.Unlock()

	close(o.stop)
	timer := time.AfterFunc(o.drainTimeout, o.cancel)
	<-o.done
	timer.Stop()
	o.cancel()
}
