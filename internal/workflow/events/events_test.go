package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

func sampleEvent() model.TransitionEvent {
	return model.TransitionEvent{
		Type:       model.EventTypeTransition,
		WorkflowID: uuid.New(),
		Action:     "advance_step",
		FromStatus: "in_progress",
		ToStatus:   "in_progress",
		ActorID:    "alice",
		Version:    5,
		OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestPublisher_DeliversToListener(t *testing.T) {
	pubSub := NewGoChannel(10, nil)
	t.Cleanup(func() { _ = pubSub.Close() })

	received := make(chan model.TransitionEvent, 1)
	listener := NewListener(pubSub, LogHandler, func(_ context.Context, event model.TransitionEvent) error {
		received <- event
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, listener.Start(ctx))

	event := sampleEvent()
	require.NoError(t, NewPublisher(pubSub).PublishTransition(ctx, event))

	select {
	case got := <-received:
		assert.Equal(t, event.WorkflowID, got.WorkflowID)
		assert.Equal(t, event.Action, got.Action)
		assert.Equal(t, event.Version, got.Version)
		assert.True(t, event.OccurredAt.Equal(got.OccurredAt))
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	cancel()
	select {
	case <-listener.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestPublisher_SetsMetadata(t *testing.T) {
	pubSub := NewGoChannel(10, nil)
	t.Cleanup(func() { _ = pubSub.Close() })

	ctx := context.Background()
	messages, err := pubSub.Subscribe(ctx, Topic)
	require.NoError(t, err)

	event := sampleEvent()
	require.NoError(t, NewPublisher(pubSub).PublishTransition(ctx, event))

	select {
	case msg := <-messages:
		assert.Equal(t, model.EventTypeTransition, msg.Metadata.Get(metadataEventType))
		assert.Equal(t, event.WorkflowID.String(), msg.Metadata.Get(metadataWorkflowID))
		assert.JSONEq(t, `{"type":"workflow.transition","workflowId":"`+event.WorkflowID.String()+
			`","action":"advance_step","fromStatus":"in_progress","toStatus":"in_progress","actorId":"alice",`+
			`"version":5,"occurredAt":"2026-03-01T09:00:00Z"}`, string(msg.Payload))
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("message was not published")
	}
}

func TestPublisher_ClosedPubSubFails(t *testing.T) {
	pubSub := NewGoChannel(10, nil)
	require.NoError(t, pubSub.Close())

	err := NewPublisher(pubSub).PublishTransition(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish advance_step event")
}

func TestListener_SkipsForeignAndUndecodableMessages(t *testing.T) {
	pubSub := NewGoChannel(10, nil)
	t.Cleanup(func() { _ = pubSub.Close() })

	var calls atomic.Int32
	received := make(chan struct{}, 3)
	listener := NewListener(pubSub, func(context.Context, model.TransitionEvent) error {
		calls.Add(1)
		received <- struct{}{}
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, listener.Start(ctx))

	foreign := message.NewMessage(watermill.NewULID(), []byte(`{}`))
	foreign.Metadata.Set(metadataEventType, "something.else")
	broken := message.NewMessage(watermill.NewULID(), []byte(`not json`))
	broken.Metadata.Set(metadataEventType, model.EventTypeTransition)
	require.NoError(t, pubSub.Publish(Topic, foreign, broken))

	require.NoError(t, NewPublisher(pubSub).PublishTransition(ctx, sampleEvent()))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("valid event was not delivered")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestListener_RedeliversOnHandlerError(t *testing.T) {
	pubSub := NewGoChannel(10, nil)
	t.Cleanup(func() { _ = pubSub.Close() })

	var attempts atomic.Int32
	delivered := make(chan struct{}, 1)
	listener := NewListener(pubSub, func(context.Context, model.TransitionEvent) error {
		if attempts.Add(1) == 1 {
			return errors.New("downstream busy")
		}
		delivered <- struct{}{}
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, listener.Start(ctx))

	require.NoError(t, NewPublisher(pubSub).PublishTransition(ctx, sampleEvent()))

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not redelivered")
	}
	assert.Equal(t, int32(2), attempts.Load())
}
