package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers decisions on an applicant's file: status transitions,
	// endorsements, approvals and rejections. Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers scheduling activity that can be aggregated.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. It is transport
// agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject is the aggregate the event is about (application or slot ID).
	Subject   string
	Action    string
	From      string
	To        string
	Reason    string
	RequestID string
	// ActorID is the staff member who performed the action.
	ActorID string
}

type AuditEvent string

const (
	// Lifecycle events
	EventApplicationCreated    AuditEvent = "application_created"
	EventApplicationTransition AuditEvent = "application_transition"
	EventApplicationEndorsed   AuditEvent = "application_endorsed"
	EventApplicationApproved   AuditEvent = "application_approved"
	EventApplicationRejected   AuditEvent = "application_rejected"

	// Scheduling events
	EventInterviewScheduled   AuditEvent = "interview_scheduled"
	EventInterviewCancelled   AuditEvent = "interview_cancelled"
	EventInterviewCompleted   AuditEvent = "interview_completed"
	EventInterviewRescheduled AuditEvent = "interview_rescheduled"
	EventSchedulingConflict   AuditEvent = "scheduling_conflict"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventApplicationCreated:    CategoryCompliance,
	EventApplicationTransition: CategoryCompliance,
	EventApplicationEndorsed:   CategoryCompliance,
	EventApplicationApproved:   CategoryCompliance,
	EventApplicationRejected:   CategoryCompliance,
	EventInterviewCompleted:    CategoryCompliance,

	EventInterviewScheduled:   CategoryOperations,
	EventInterviewCancelled:   CategoryOperations,
	EventInterviewRescheduled: CategoryOperations,
	EventSchedulingConflict:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
