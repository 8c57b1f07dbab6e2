// Package events publishes workflow transition events over watermill and dispatches them to local handlers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

// Topic carries every transition event.
const Topic = "workflow.events"

const (
	metadataEventType  = "event_type"
	metadataWorkflowID = "workflow_id"
)

// NewGoChannel creates the in-process pub/sub used when no external broker is configured.
func NewGoChannel(bufferSize int64, logger *slog.Logger) *gochannel.GoChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            bufferSize,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewSlogLogger(logger),
	)
}

// Publisher sends transition events to a watermill topic.
type Publisher struct {
	publisher message.Publisher
	topic     string
}

// NewPublisher creates a Publisher writing to Topic.
func NewPublisher(publisher message.Publisher) *Publisher {
	return &Publisher{publisher: publisher, topic: Topic}
}

// PublishTransition encodes the event as JSON and publishes it.
func (p *Publisher) PublishTransition(ctx context.Context, event model.TransitionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode transition event: %w", err)
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(metadataEventType, event.Type)
	msg.Metadata.Set(metadataWorkflowID, event.WorkflowID.String())

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s event for workflow %s: %w", event.Action, event.WorkflowID, err)
	}
	return nil
}

// Handler consumes one decoded transition event. Returning an error requests redelivery.
type Handler func(ctx context.Context, event model.TransitionEvent) error

// Listener subscribes to Topic and fans every event out to its handlers.
type Listener struct {
	subscriber message.Subscriber
	handlers   []Handler
	done       chan struct{}
}

// NewListener creates a Listener. Handlers run in order for each event.
func NewListener(subscriber message.Subscriber, handlers ...Handler) *Listener {
	return &Listener{subscriber: subscriber, handlers: handlers, done: make(chan struct{})}
}

// Start subscribes and consumes messages in a goroutine until ctx is canceled or the subscriber closes.
func (l *Listener) Start(ctx context.Context) error {
	messages, err := l.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", Topic, err)
	}

	go func() {
		defer close(l.done)
		for msg := range messages {
			l.dispatch(ctx, msg)
		}
		slog.Info("transition event listener stopped")
	}()
	return nil
}

// Done is closed once the consuming goroutine has exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

func (l *Listener) dispatch(ctx context.Context, msg *message.Message) {
	if msg.Metadata.Get(metadataEventType) != model.EventTypeTransition {
		msg.Ack()
		return
	}

	var event model.TransitionEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// undecodable payloads are acked and dropped
		slog.Error("dropping undecodable transition event", "messageID", msg.UUID, "error", err)
		msg.Ack()
		return
	}

	for _, handle := range l.handlers {
		if err := handle(ctx, event); err != nil {
			slog.Error("transition event handler failed",
				"messageID", msg.UUID,
				"workflowID", event.WorkflowID,
				"action", event.Action,
				"error", err)
			msg.Nack()
			return
		}
	}
	msg.Ack()
}

// LogHandler writes each event to the structured log.
func LogHandler(ctx context.Context, event model.TransitionEvent) error {
	slog.InfoContext(ctx, "workflow transition",
		"workflowID", event.WorkflowID,
		"action", event.Action,
		"from", event.FromStatus,
		"to", event.ToStatus,
		"actorID", event.ActorID,
		"version", event.Version)
	return nil
}
