package service

import (
	"context"
	"errors"

	"scholarops/internal/interview/models"
	"scholarops/internal/notification"
	dErrors "scholarops/pkg/domain-errors"
	"scholarops/pkg/platform/audit"
	"scholarops/pkg/requestcontext"
)

func (s *Scheduler) emit(ctx context.Context, event audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

// booked records a committed slot change: metrics, the audit log line and
// the fire-and-forget notification.
func (s *Scheduler) booked(ctx context.Context, slot *models.Slot, event audit.AuditEvent, typ notification.Type) {
	if s.metrics != nil {
		s.metrics.IncrementSlots(string(slot.Status))
	}
	s.logAudit(ctx, string(event),
		"slot_id", slot.ID,
		"application_id", slot.ApplicationID,
		"interviewer_id", slot.InterviewerID,
		"date", slot.DateString(),
		"interval", slot.Interval().String(),
		"status", slot.Status,
	)
	if typ == "" {
		return
	}
	s.notifier.Notify(ctx, notification.Event{
		Type:          typ,
		ApplicationID: slot.ApplicationID.String(),
		SlotID:        slot.ID.String(),
		Status:        string(slot.Status),
		Reason:        slot.CancelReason,
		RequestID:     requestcontext.RequestID(ctx),
		OccurredAt:    slot.UpdatedAt,
	})
}

// recordConflict audits a refused booking. It runs after the unit of work so
// the record survives the rollback of the booking attempt.
func (s *Scheduler) recordConflict(ctx context.Context, err error) {
	var ce *models.ConflictError
	if !errors.As(err, &ce) {
		return
	}
	if s.metrics != nil {
		s.metrics.AddConflicts(len(ce.Conflicts))
	}
	if emitErr := s.emit(ctx, audit.Event{
		Action:  string(audit.EventSchedulingConflict),
		Subject: ce.InterviewerID.String(),
		Reason:  ce.Error(),
	}); emitErr != nil {
		s.logger.ErrorContext(ctx, "failed to audit scheduling conflict", "error", emitErr)
	}
	s.logAudit(ctx, string(audit.EventSchedulingConflict),
		"interviewer_id", ce.InterviewerID,
		"date", ce.Date.Format(models.DateLayout),
		"conflicts", len(ce.Conflicts),
	)
}

func (s *Scheduler) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if actor := requestcontext.ActorID(ctx); actor != "" {
		attributes = append(attributes, "actor_id", actor)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
}

func (s *Scheduler) incrementBulk(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementBulkItem(outcome)
	}
}
