// Package eventbus provides the in-process event bus used to observe the dispatcher.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/dragonscale-assist/internal/logger"
)

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = errors.New("event bus is closed")

// subscription is one registered handler. A nil types set matches every event.
type subscription struct {
	id      string
	seq     uint64
	types   map[EventType]struct{}
	handler EventHandler
}

func (s *subscription) matches(t EventType) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// delivery is a queued event together with its publisher's context. The
// context keeps the publisher's values but not its cancellation, so an event
// accepted by Publish is delivered even if the publisher has moved on.
type delivery struct {
	ctx   context.Context
	event Event
}

// ChannelEventBus fans events out to subscribers from a fixed set of workers
// reading one buffered queue.
type ChannelEventBus struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	seq    uint64
	closed bool

	queue chan delivery
	done  chan struct{}
	wg    sync.WaitGroup

	bufferSize    int
	workerCount   int
	maxRetries    int
	retryInterval time.Duration
	logger        logger.Logger
}

// ChannelEventBusOption configures a ChannelEventBus.
type ChannelEventBusOption func(*ChannelEventBus)

// WithBufferSize sets the queue capacity. Zero makes Publish wait for a worker.
func WithBufferSize(size int) ChannelEventBusOption {
	return func(eb *ChannelEventBus) {
		if size >= 0 {
			eb.bufferSize = size
		}
	}
}

// WithWorkerCount sets the number of delivery workers.
func WithWorkerCount(count int) ChannelEventBusOption {
	return func(eb *ChannelEventBus) {
		if count > 0 {
			eb.workerCount = count
		}
	}
}

// WithRetries sets how often a failing handler is retried and the pause between attempts.
func WithRetries(maxRetries int, retryInterval time.Duration) ChannelEventBusOption {
	return func(eb *ChannelEventBus) {
		eb.maxRetries = max(maxRetries, 0)
		eb.retryInterval = retryInterval
	}
}

// WithLogger sets the logger used for handler failures.
func WithLogger(l logger.Logger) ChannelEventBusOption {
	return func(eb *ChannelEventBus) {
		if l != nil {
			eb.logger = l
		}
	}
}

// NewChannelEventBus creates a bus and starts its workers.
func NewChannelEventBus(options ...ChannelEventBusOption) *ChannelEventBus {
	eb := &ChannelEventBus{
		subs:          make(map[string]*subscription),
		done:          make(chan struct{}),
		bufferSize:    100,
		workerCount:   5,
		maxRetries:    3,
		retryInterval: 100 * time.Millisecond,
		logger:        logger.NopLogger{},
	}
	for _, option := range options {
		option(eb)
	}

	eb.queue = make(chan delivery, eb.bufferSize)
	eb.wg.Add(eb.workerCount)
	for range eb.workerCount {
		go eb.work()
	}
	return eb
}

func (eb *ChannelEventBus) work() {
	defer eb.wg.Done()
	for {
		select {
		case <-eb.done:
			return
		case d := <-eb.queue:
			eb.deliver(d)
		}
	}
}

// handlersFor snapshots the matching handlers in subscription order, so
// handlers may subscribe or unsubscribe while being called.
func (eb *ChannelEventBus) handlersFor(t EventType) []*subscription {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	var out []*subscription
	for _, s := range eb.subs {
		if s.matches(t) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (eb *ChannelEventBus) deliver(d delivery) {
	for _, s := range eb.handlersFor(d.event.Type()) {
		attempts, err := eb.call(d.ctx, d.event, s.handler)
		if err != nil {
			eb.reportFailure(d.event, attempts, err)
		}
	}
}

// call runs handler until it succeeds or the retries are used up. Closing the
// bus abandons the remaining retries without reporting a failure.
func (eb *ChannelEventBus) call(ctx context.Context, event Event, handler EventHandler) (int, error) {
	attempt := 0
	for {
		attempt++
		err := handler(ctx, event)
		if err == nil {
			return attempt, nil
		}
		if attempt > eb.maxRetries {
			return attempt, err
		}
		select {
		case <-eb.done:
			return attempt, nil
		case <-time.After(eb.retryInterval):
		}
	}
}

// reportFailure logs a handler that never succeeded and queues an
// EventHandlerFailed event, except for failures of that event itself.
func (eb *ChannelEventBus) reportFailure(event Event, attempts int, err error) {
	eb.logger.Errorf("event handler failed (event_type: %s, attempts: %d): %v", event.Type(), attempts, err)
	if event.Type() == EventHandlerFailed {
		return
	}
	failure := NewEvent(EventHandlerFailed, HandlerFailurePayload{
		EventType: event.Type(),
		Attempts:  attempts,
		Error:     err.Error(),
	}, "eventbus", nil)
	// A worker must never block on its own queue.
	select {
	case eb.queue <- delivery{ctx: context.Background(), event: failure}:
	default:
		eb.logger.Warnf("dropping %s event: queue full", EventHandlerFailed)
	}
}

// Publish queues an event. It blocks while the queue is full, until ctx is done.
func (eb *ChannelEventBus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if eb.isClosed() {
		return ErrClosed
	}

	// The queue is never closed, so a send racing with Close is safe.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-eb.done:
		return ErrClosed
	case eb.queue <- delivery{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	}
}

func (eb *ChannelEventBus) isClosed() bool {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return eb.closed
}

// Subscribe registers a handler for the given event types.
func (eb *ChannelEventBus) Subscribe(eventTypes []EventType, handler EventHandler) (string, error) {
	if len(eventTypes) == 0 {
		return "", fmt.Errorf("at least one event type is required")
	}
	types := make(map[EventType]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = struct{}{}
	}
	return eb.add(types, handler)
}

// SubscribeAll registers a handler for every event type.
func (eb *ChannelEventBus) SubscribeAll(handler EventHandler) (string, error) {
	return eb.add(nil, handler)
}

func (eb *ChannelEventBus) add(types map[EventType]struct{}, handler EventHandler) (string, error) {
	if handler == nil {
		return "", fmt.Errorf("handler cannot be nil")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return "", ErrClosed
	}
	eb.seq++
	s := &subscription{id: uuid.New().String(), seq: eb.seq, types: types, handler: handler}
	eb.subs[s.id] = s
	return s.id, nil
}

// Unsubscribe removes a subscription. Unknown IDs are ignored.
func (eb *ChannelEventBus) Unsubscribe(subscriptionID string) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return ErrClosed
	}
	delete(eb.subs, subscriptionID)
	return nil
}

// Close stops the workers and waits for them. Calling it again is a no-op.
func (eb *ChannelEventBus) Close() error {
	eb.mu.Lock()
	if eb.closed {
		eb.mu.Unlock()
		return nil
	}
	eb.closed = true
	close(eb.done)
	eb.mu.Unlock()

	eb.wg.Wait()
	return nil
}
