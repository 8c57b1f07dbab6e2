package model

import (
	"time"

	"github.com/google/uuid"
)

// EventTypeTransition is the type of every event published after a persisted workflow change.
const EventTypeTransition = "workflow.transition"

// TransitionEvent describes a committed change to a workflow.
type TransitionEvent struct {
	Type       string    `json:"type"`
	WorkflowID uuid.UUID `json:"workflowId"`
	Action     string    `json:"action"`
	FromStatus string    `json:"fromStatus,omitempty"`
	ToStatus   string    `json:"toStatus"`
	ActorID    string    `json:"actorId"`
	Version    int64     `json:"version"`
	OccurredAt time.Time `json:"occurredAt"`
}
