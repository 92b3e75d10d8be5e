package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/worker"
)

type fakeBus struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakeBus) Publish(ctx context.Context, event Event) error {
	return f.PublishBatch(ctx, []Event{event})
}

func (f *fakeBus) PublishBatch(ctx context.Context, events []Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeBus) snapshot() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

func TestNoopDiscardsEvents(t *testing.T) {
	var bus Noop
	assert.NoError(t, bus.Publish(context.Background(), NotificationEvent{}))
	assert.NoError(t, bus.PublishBatch(context.Background(), []Event{NotificationEvent{}}))
}

func TestNotifierPublishesAsynchronouslyWithoutBlockingCaller(t *testing.T) {
	bus := &fakeBus{}
	pool := worker.New(worker.Config{MaxWorkers: 2, MaxQueueSize: 10}, nil, zap.NewNop())
	defer pool.StopWait()

	n := NewNotifier(bus, pool, zap.NewNop())
	n.Notify(context.Background(), "entry stored")

	require.Eventually(t, func() bool { return len(bus.snapshot()) == 1 }, time.Second, time.Millisecond)
	events := bus.snapshot()
	assert.Equal(t, "memory.notification", events[0].EventType())
}

func TestNotifierTagsEventWithAgentIDFromContext(t *testing.T) {
	bus := &fakeBus{}
	pool := worker.New(worker.Config{MaxWorkers: 1, MaxQueueSize: 10}, nil, zap.NewNop())
	defer pool.StopWait()

	n := NewNotifier(bus, pool, zap.NewNop())
	ctx := WithAgentID(context.Background(), "agent-7")
	n.Notify(ctx, "redirected to remember")

	require.Eventually(t, func() bool { return len(bus.snapshot()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "agent-7", bus.snapshot()[0].AggregateID())
}

func TestNotifierDefaultsToSystemAgentIDWithoutContext(t *testing.T) {
	bus := &fakeBus{}
	pool := worker.New(worker.Config{MaxWorkers: 1, MaxQueueSize: 10}, nil, zap.NewNop())
	defer pool.StopWait()

	n := NewNotifier(bus, pool, zap.NewNop())
	n.Notify(context.Background(), "message")

	require.Eventually(t, func() bool { return len(bus.snapshot()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, NotificationSource, bus.snapshot()[0].AggregateID())
}
