// Package notification forwards lifecycle and scheduling outcomes to the
// notification service. Delivery is fire-and-forget: Notify never fails the
// operation that triggered it.
package notification

import (
	"context"
	"time"
)

// Type names the outcome being announced.
type Type string

const (
	TypeApplicationStatusChanged Type = "application.status_changed"
	TypeApplicationEndorsed      Type = "application.endorsed"
	TypeInterviewScheduled       Type = "interview.scheduled"
	TypeInterviewCancelled       Type = "interview.cancelled"
	TypeInterviewRescheduled     Type = "interview.rescheduled"
)

// Event is the payload delivered to the notification service.
type Event struct {
	Type          Type      `json:"type"`
	ApplicationID string    `json:"application_id"`
	SlotID        string    `json:"slot_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier delivers events asynchronously.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

func (Noop) Notify(context.Context, Event) {}
