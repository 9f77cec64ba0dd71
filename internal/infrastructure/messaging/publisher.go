// Package messaging publishes menu lifecycle events to other systems.
package messaging

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

// EventTypeMenuSaved is the detail type of MenuSaved events.
const EventTypeMenuSaved = "menu.saved"

// MenuSaved announces that a new menu document was written.
type MenuSaved struct {
	EventID    string    `json:"event_id"`
	SaveID     string    `json:"save_id"`
	Location   string    `json:"location"`
	Menus      []string  `json:"menus"`
	Items      int       `json:"items"`
	Bytes      int       `json:"bytes"`
	Backup     string    `json:"backup,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Version    int       `json:"version"`
}

// Publisher delivers MenuSaved events.
type Publisher interface {
	Publish(ctx context.Context, events ...MenuSaved) error
}

// EventBridgeAPI is the subset of the EventBridge client the publisher uses.
type EventBridgeAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgePublisher implements Publisher using AWS EventBridge
type EventBridgePublisher struct {
	client    EventBridgeAPI
	eventBus  string
	source    string
	batchSize int
	logger    *zap.Logger
}

// NewEventBridgePublisher creates a new EventBridge publisher
func NewEventBridgePublisher(client EventBridgeAPI, eventBus, source string, logger *zap.Logger) *EventBridgePublisher {
	if eventBus == "" {
		eventBus = "default"
	}
	if source == "" {
		source = "menueditor"
	}
	return &EventBridgePublisher{
		client:    client,
		eventBus:  eventBus,
		source:    source,
		batchSize: 10, // EventBridge has a limit of 10 entries per PutEvents call
		logger:    logger,
	}
}

// Publish publishes events to EventBridge
func (p *EventBridgePublisher) Publish(ctx context.Context, events ...MenuSaved) error {
	for i := 0; i < len(events); i += p.batchSize {
		end := i + p.batchSize
		if end > len(events) {
			end = len(events)
		}
		if err := p.publishBatch(ctx, events[i:end]); err != nil {
			return fmt.Errorf("failed to publish event batch: %w", err)
		}
	}
	return nil
}

func (p *EventBridgePublisher) publishBatch(ctx context.Context, events []MenuSaved) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(events))
	for _, event := range events {
		detail, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBus),
			Source:       aws.String(p.source),
			DetailType:   aws.String(EventTypeMenuSaved),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.OccurredAt),
			Resources:    []string{event.Location},
		})
	}

	output, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to put events: %w", err)
	}
	if output.FailedEntryCount > 0 {
		for i, entry := range output.Entries {
			if entry.ErrorCode != nil {
				p.logger.Error("EventBridge rejected event",
					zap.Int("index", i),
					zap.String("code", aws.ToString(entry.ErrorCode)),
					zap.String("message", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%d events failed to publish", output.FailedEntryCount)
	}

	p.logger.Debug("Events published", zap.Int("count", len(entries)), zap.String("bus", p.eventBus))
	return nil
}

// LogPublisher writes events to the log. It is the default when no event bus
// is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(_ context.Context, events ...MenuSaved) error {
	for _, e := range events {
		p.logger.Info("Menu saved",
			zap.String("event_id", e.EventID),
			zap.String("save_id", e.SaveID),
			zap.String("location", e.Location),
			zap.Strings("menus", e.Menus),
			zap.Int("items", e.Items),
			zap.String("backup", e.Backup),
		)
	}
	return nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, ...MenuSaved) error { return nil }
