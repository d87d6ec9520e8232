package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// EventPublisher publishes compliance workflow events to NATS for
// consumption by the notifications and project-delivery services.
//
// Subject convention: compliance.<event_type>
// Event types: step_submitted, step_approved, step_rejected,
//              progress_changed, upload_unlocked
//
// All publish operations are non-fatal — errors are logged but never
// propagated, so event delivery failures never interrupt workflow operations.
type EventPublisher struct {
	nc  *nats.Conn
	log zerolog.Logger
}

// WorkflowEvent is the JSON schema published to NATS.
type WorkflowEvent struct {
	EventType     string                 `json:"event_type"`
	DeliverableID string                 `json:"deliverable_id"`
	StepID        string                 `json:"step_id,omitempty"`
	ActorRole     string                 `json:"actor_role,omitempty"`
	Progress      int                    `json:"progress"`
	OccurredAt    time.Time              `json:"occurred_at"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}

// NewEventPublisher creates a publisher backed by the given NATS connection.
// A nil connection disables publishing (useful when the bus is turned off).
func NewEventPublisher(nc *nats.Conn, log zerolog.Logger) *EventPublisher {
	return &EventPublisher{nc: nc, log: log}
}

// Publish emits a compliance workflow event. Subject: compliance.<eventType>
func (p *EventPublisher) Publish(eventType, deliverableID, stepID string, progress int, payload map[string]interface{}) {
	if p.nc == nil {
		return
	}

	event := &WorkflowEvent{
		EventType:     eventType,
		DeliverableID: deliverableID,
		StepID:        stepID,
		Progress:      progress,
		OccurredAt:    time.Now().UTC(),
		Payload:       payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("event: failed to marshal")
		return
	}

	subject := fmt.Sprintf("compliance.%s", eventType)
	if err := p.nc.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("deliverable_id", deliverableID).
			Msg("event: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("deliverable_id", deliverableID).
		Str("step_id", stepID).
		Msg("event: published")
}
