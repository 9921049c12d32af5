package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu    sync.Mutex
	types []EventType
}

func (r *recorder) handle(_ context.Context, e Event) error {
	r.mu.Lock()
	r.types = append(r.types, e.Type())
	r.mu.Unlock()
	return nil
}

func (r *recorder) snapshot() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EventType(nil), r.types...)
}

func TestOutbox_PostDoesNotBlockAndKeepsOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	eb := NewChannelEventBus(WithBufferSize(0), WithWorkerCount(1))
	defer eb.Close()

	gate := make(chan struct{})
	var rec recorder
	_, err := eb.SubscribeAll(func(ctx context.Context, e Event) error {
		<-gate
		return rec.handle(ctx, e)
	})
	require.NoError(t, err)

	ob := NewOutbox(eb)
	posted := make(chan struct{})
	go func() {
		for _, typ := range []EventType{EventActionStarted, EventSearchRoundCompleted, EventActionSucceeded} {
			ob.Post(NewEvent(typ, nil, "test", nil))
		}
		close(posted)
	}()
	select {
	case <-posted:
	case <-time.After(time.Second):
		t.Fatal("Post blocked on a stalled subscriber")
	}

	close(gate)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []EventType{EventActionStarted, EventSearchRoundCompleted, EventActionSucceeded}, rec.snapshot())
	ob.Close()
}

func TestOutbox_BacklogDropsOldest(t *testing.T) {
	defer goleak.VerifyNone(t)

	eb := NewChannelEventBus(WithBufferSize(0), WithWorkerCount(1))
	defer eb.Close()

	gate := make(chan struct{})
	first := make(chan struct{})
	var once sync.Once
	var rec recorder
	_, err := eb.SubscribeAll(func(ctx context.Context, e Event) error {
		once.Do(func() { close(first) })
		<-gate
		return rec.handle(ctx, e)
	})
	require.NoError(t, err)

	ob := NewOutbox(eb, WithBacklog(2))
	ob.Post(NewEvent(EventActionStarted, nil, "test", nil))
	<-first

	// The forwarder may hold one more event in a blocked Publish; the
	// backlog behind it keeps only the newest two.
	require.Eventually(t, func() bool {
		ob.mu.Lock()
		defer ob.mu.Unlock()
		return len(ob.pending) == 0
	}, time.Second, time.Millisecond)
	ob.Post(NewEvent(EventActionRejected, nil, "test", nil))
	require.Eventually(t, func() bool {
		ob.mu.Lock()
		defer ob.mu.Unlock()
		return len(ob.pending) == 0
	}, time.Second, time.Millisecond)
	for _, typ := range []EventType{EventActionFailed, EventActionSucceeded, EventAsyncExecutionStarted} {
		ob.Post(NewEvent(typ, nil, "test", nil))
	}

	close(gate)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []EventType{
		EventActionStarted, EventActionRejected, EventActionSucceeded, EventAsyncExecutionStarted,
	}, rec.snapshot())
	ob.Close()
}

func TestOutbox_CloseIsBoundedByDrainTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	eb := NewChannelEventBus(WithBufferSize(0), WithWorkerCount(1))
	defer eb.Close()

	gate := make(chan struct{})
	defer close(gate)
	_, err := eb.SubscribeAll(func(context.Context, Event) error {
		<-gate
		return nil
	})
	require.NoError(t, err)

	ob := NewOutbox(eb, WithDrainTimeout(20*time.Millisecond))
	for i := 0; i < 3; i++ {
		ob.Post(NewEvent(EventActionStarted, nil, "test", nil))
	}

	closed := make(chan struct{})
	go func() {
		ob.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close waited on a stalled subscriber")
	}

	// Posting after Close is a no-op.
	ob.Post(NewEvent(EventActionSucceeded, nil, "test", nil))
	ob.Close()
}
