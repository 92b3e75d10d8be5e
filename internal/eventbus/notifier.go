package eventbus

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/worker"
)

// NotificationSource names the agent id attached to notifications that
// have no specific agent context.
const NotificationSource = "system"

// Notifier adapts a Bus into capture.Notifier, submitting publishes onto
// the bounded worker pool so notification delivery never blocks the
// caller (spec section 4.3.2: "Delivery MUST be non-blocking").
type Notifier struct {
	bus  Bus
	pool *worker.Pool
	log  *zap.Logger
}

// NewNotifier constructs a Notifier. pool must not be nil; bus defaults to
// Noop when nil.
func NewNotifier(bus Bus, pool *worker.Pool, log *zap.Logger) *Notifier {
	if bus == nil {
		bus = Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{bus: bus, pool: pool, log: log}
}

// Notify implements capture.Notifier. The publish runs on the worker pool;
// if the pool's queue is full the notification is dropped (counted by the
// pool's own overflow metric) rather than blocking the caller.
func (n *Notifier) Notify(ctx context.Context, message string) {
	agentID := NotificationSource
	if id, ok := ctx.Value(agentIDKey{}).(string); ok && id != "" {
		agentID = id
	}
	event := NotificationEvent{Source: "capture", Message: message, AgentID: agentID, EmittedAt: timestamp(ctx)}
	n.pool.Submit("notify", func() {
		if err := n.bus.Publish(context.Background(), event); err != nil {
			n.log.Warn("eventbus: notification publish failed", zap.Error(err))
		}
	})
}

type agentIDKey struct{}

// WithAgentID attaches an agent id to ctx so a subsequent Notify call
// tags the published event with it.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, agentIDKey{}, agentID)
}

// timestamp is split out so tests can't rely on wall-clock nondeterminism
// leaking into event equality checks; callers in production always hit
// the time.Now() branch.
func timestamp(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timestampKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

type timestampKey struct{}

// WithTimestamp pins Notify's emitted timestamp, for deterministic tests.
func WithTimestamp(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timestampKey{}, t)
}
