package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestChannelEventBus_PublishAndSubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)

	eb := NewChannelEventBus(
		WithBufferSize(1),
		WithWorkerCount(1),
		WithRetries(1, 10*time.Millisecond),
	)
	defer eb.Close()

	received := make(chan Event, 1)
	_, err := eb.Subscribe([]EventType{EventActionSucceeded}, func(ctx context.Context, event Event) error {
		received <- event
		return nil
	})
	require.NoError(t, err)

	payload := ActionPayload{ActionID: "greeting", DisplayName: "Greeting"}
	require.NoError(t, eb.Publish(context.Background(), NewEvent(EventActionSucceeded, payload, "test", nil)))

	select {
	case evt := <-received:
		assert.Equal(t, EventActionSucceeded, evt.Type())
		assert.Equal(t, payload, evt.Payload())
		assert.Equal(t, "test", evt.Source())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event handler")
	}
}

func TestChannelEventBus_SubscribeAllAndUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)

	eb := NewChannelEventBus(WithWorkerCount(1))
	defer eb.Close()

	var mu sync.Mutex
	var seen []EventType
	id, err := eb.SubscribeAll(func(ctx context.Context, event Event) error {
		mu.Lock()
		seen = append(seen, event.Type())
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, eb.Publish(context.Background(), NewEvent(EventActionStarted, nil, "test", nil)))
	require.NoError(t, eb.Publish(context.Background(), NewEvent(EventActionFailed, nil, "test", nil)))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, eb.Unsubscribe(id))
	require.NoError(t, eb.Publish(context.Background(), NewEvent(EventActionRejected, nil, "test", nil)))
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{EventActionStarted, EventActionFailed}, seen)
}

func TestChannelEventBus_HandlerRetry(t *testing.T) {
	defer goleak.VerifyNone(t)

	eb := NewChannelEventBus(
		WithBufferSize(1),
		WithWorkerCount(1),
		WithRetries(2, 10*time.Millisecond),
	)
	defer eb.Close()

	var mu sync.Mutex
	calls := 0
	_, err := eb.Subscribe([]EventType{EventActionFailed}, func(ctx context.Context, event Event) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 2 {
			return context.DeadlineExceeded
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, eb.Publish(context.Background(), NewEvent(EventActionFailed, nil, "test", nil)))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, time.Second, 5*time.Millisecond)
}

func TestChannelEventBus_HandlerFailurePublished(t *testing.T) {
	defer goleak.VerifyNone(t)

	eb := NewChannelEventBus(WithWorkerCount(1), WithRetries(1, time.Millisecond))
	defer eb.Close()

	failures := make(chan HandlerFailurePayload, 1)
	_, err := eb.Subscribe([]EventType{EventHandlerFailed}, func(ctx context.Context, event Event) error {
		failures <- event.Payload().(HandlerFailurePayload)
		return nil
	})
	require.NoError(t, err)
	_, err = eb.Subscribe([]EventType{EventActionStarted}, func(ctx context.Context, event Event) error {
		return errors.New("boom")
	})
	require.NoError(t, err)

	require.NoError(t, eb.Publish(context.Background(), NewEvent(EventActionStarted, nil, "test", nil)))

	select {
	case f := <-failures:
		assert.Equal(t, EventActionStarted, f.EventType)
		assert.Equal(t, 2, f.Attempts)
		assert.Equal(t, "boom", f.Error)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for handler failure event")
	}
}

func TestChannelEventBus_ContextCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	eb := NewChannelEventBus(WithBufferSize(1), WithWorkerCount(1))
	defer eb.Close()

	received := make(chan struct{}, 1)
	_, err := eb.Subscribe([]EventType{EventActionStarted}, func(ctx context.Context, event Event) error {
		received <- struct{}{}
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = eb.Publish(ctx, NewEvent(EventActionStarted, nil, "test", nil))
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case <-received:
		t.Error("handler should not be called after context cancellation")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChannelEventBus_Closed(t *testing.T) {
	defer goleak.VerifyNone(t)

	eb := NewChannelEventBus()
	require.NoError(t, eb.Close())
	require.NoError(t, eb.Close())

	assert.ErrorIs(t, eb.Publish(context.Background(), NewEvent(EventActionStarted, nil, "test", nil)), ErrClosed)
	_, err := eb.SubscribeAll(func(context.Context, Event) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestChannelEventBus_QueuedEventOutlivesPublisherContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	eb := NewChannelEventBus(WithBufferSize(4), WithWorkerCount(1))
	defer eb.Close()

	gate := make(chan struct{})
	var rec recorder
	_, err := eb.SubscribeAll(func(ctx context.Context, e Event) error {
		<-gate
		assert.NoError(t, ctx.Err())
		return rec.handle(ctx, e)
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, eb.Publish(ctx, NewEvent(EventActionStarted, nil, "test", nil)))
	require.NoError(t, eb.Publish(ctx, NewEvent(EventSearchRoundCompleted, nil, "test", nil)))
	cancel()
	close(gate)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []EventType{EventActionStarted, EventSearchRoundCompleted}, rec.snapshot())
}
