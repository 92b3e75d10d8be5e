// Package eventbus implements the reliable notification bus spec section 9
// names as backing the notification service ("non-blocking notification"
// requirement flows through here). Grounded on the teacher's
// infrastructure/messaging/eventbridge/publisher.go EventBridge publisher,
// generalized from publishing domain events about graph mutations to
// publishing user-visible notices about captured/redirected memories, kept
// optional behind a Noop so a deployment without an EventBridge bus still
// works.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"
)

// Event is the minimal contract a publishable event satisfies.
type Event interface {
	EventType() string
	AggregateID() string
	Timestamp() time.Time
}

// Bus publishes events, batching where the backend benefits from it.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	PublishBatch(ctx context.Context, events []Event) error
}

// Noop discards every event; used when no EventBridge bus is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error        { return nil }
func (Noop) PublishBatch(context.Context, []Event) error { return nil }

// NotificationEvent is the event type the capture pipeline's non-blocking
// notices are published as.
type NotificationEvent struct {
	Source    string
	Message   string
	AgentID   string
	EmittedAt time.Time
}

func (e NotificationEvent) EventType() string    { return "memory.notification" }
func (e NotificationEvent) AggregateID() string  { return e.AgentID }
func (e NotificationEvent) Timestamp() time.Time { return e.EmittedAt }

// EventBridgeBus publishes events to AWS EventBridge, batching up to the
// service's 10-entries-per-PutEvents limit (spec section 9, teacher's
// EventBridgePublisher.PublishBatch).
type EventBridgeBus struct {
	client       *eventbridge.Client
	eventBusName string
	source       string
	log          *zap.Logger
}

const eventBridgeBatchSize = 10

// NewEventBridgeBus constructs an EventBridgeBus. client must already be
// configured by the caller.
func NewEventBridgeBus(client *eventbridge.Client, eventBusName, source string, log *zap.Logger) *EventBridgeBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventBridgeBus{client: client, eventBusName: eventBusName, source: source, log: log}
}

// Publish sends a single event.
func (b *EventBridgeBus) Publish(ctx context.Context, event Event) error {
	return b.PublishBatch(ctx, []Event{event})
}

// PublishBatch sends events in chunks of eventBridgeBatchSize.
func (b *EventBridgeBus) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	for i := 0; i < len(events); i += eventBridgeBatchSize {
		end := i + eventBridgeBatchSize
		if end > len(events) {
			end = len(events)
		}
		if err := b.publishBatch(ctx, events[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (b *EventBridgeBus) publishBatch(ctx context.Context, events []Event) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(events))
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			b.log.Error("eventbus: failed to marshal event", zap.Error(err), zap.String("eventType", event.EventType()))
			continue
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(b.eventBusName),
			Source:       aws.String(b.source),
			DetailType:   aws.String(event.EventType()),
			Detail:       aws.String(string(data)),
			Time:         aws.Time(event.Timestamp()),
			Resources:    []string{fmt.Sprintf("arn:agentmemory::%s", event.AggregateID())},
		})
	}
	if len(entries) == 0 {
		return nil
	}

	result, err := b.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("eventbus: publish to EventBridge: %w", err)
	}
	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil {
				b.log.Error("eventbus: entry failed",
					zap.String("eventType", events[i].EventType()),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)))
			}
		}
	}
	return nil
}
