package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	appmodels "scholarops/internal/application/models"
	"scholarops/internal/interview/lock"
	"scholarops/internal/interview/models"
	"scholarops/internal/interview/scheduling"
	"scholarops/internal/notification"
	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
	"scholarops/pkg/platform/audit"
	"scholarops/pkg/platform/sentinel"
	"scholarops/pkg/requestcontext"
)

// Schedule books one interview. The application must be awaiting its
// interview, the interviewer must have a directory binding, and the interval
// must not overlap any scheduled slot of the interviewer's day. Nothing is
// written when any check fails.
func (s *Scheduler) Schedule(ctx context.Context, req ScheduleRequest) (*models.Slot, error) {
	ctx, span, start := s.startOp(ctx, "schedule",
		attribute.String("application_id", req.ApplicationID.String()),
		attribute.String("interviewer_id", req.InterviewerID.String()))
	slot, err := s.schedule(ctx, req)
	s.endOp(span, "schedule", start, err)
	if err != nil {
		s.recordConflict(ctx, err)
		return nil, err
	}
	s.booked(ctx, slot, audit.EventInterviewScheduled, notification.TypeInterviewScheduled)
	return slot, nil
}

func (s *Scheduler) schedule(ctx context.Context, req ScheduleRequest) (*models.Slot, error) {
	release, err := s.lock(ctx, lock.Key(req.InterviewerID, req.Date))
	if err != nil {
		return nil, err
	}
	defer release()

	var slot *models.Slot
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		slot, err = s.book(txCtx, req.spec())
		return err
	})
	if err != nil {
		return nil, err
	}
	return slot, nil
}

// book runs the booking checks in order and creates the slot. Callers hold
// the interviewer day's lock and a unit of work.
func (s *Scheduler) book(ctx context.Context, spec models.SlotSpec) (*models.Slot, error) {
	app, rebooking, err := s.checkApplication(ctx, spec.ApplicationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireInterviewer(ctx, spec.InterviewerID); err != nil {
		return nil, err
	}
	interval, err := models.NewInterval(spec.Start, spec.DurationMinutes)
	if err != nil {
		return nil, err
	}
	existing, err := s.slots.ListScheduled(ctx, spec.InterviewerID, spec.Date)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load interviewer calendar")
	}
	if conflicts := scheduling.FindConflicts(existing, interval); len(conflicts) > 0 {
		return nil, models.NewConflictError(spec.InterviewerID, models.DateOf(spec.Date), conflicts)
	}

	spec.ApplicantRef = app.StudentRef
	slot, err := models.NewSlot(id.NewSlotID(), spec, models.SlotScheduled, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "slot collides with a concurrent booking")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create interview slot")
	}
	if !rebooking {
		if _, err := s.lifecycle.ScheduleInterview(ctx, spec.ApplicationID); err != nil {
			return nil, err
		}
	}
	if err := s.emit(ctx, slotEvent(audit.EventInterviewScheduled, slot, "")); err != nil {
		return nil, err
	}
	return slot, nil
}

// checkApplication applies the lifecycle scheduling guard. An application
// already in interview_scheduled whose slot was cancelled may be booked
// again; rebooking reports that case so the lifecycle is not advanced twice.
func (s *Scheduler) checkApplication(ctx context.Context, appID id.ApplicationID) (*appmodels.Application, bool, error) {
	app, err := s.lifecycle.CheckSchedulable(ctx, appID)
	if err == nil {
		return app, false, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
		return nil, false, err
	}
	if s.lifecycle.CheckReschedulable(ctx, appID) != nil {
		return nil, false, err
	}
	if _, findErr := s.slots.FindScheduledByApplication(ctx, appID); !errors.Is(findErr, sentinel.ErrNotFound) {
		return nil, false, err
	}
	app, getErr := s.lifecycle.Get(ctx, appID)
	if getErr != nil {
		return nil, false, getErr
	}
	return app, true, nil
}

func (s *Scheduler) requireInterviewer(ctx context.Context, interviewerID id.InterviewerID) (*models.Interviewer, error) {
	interviewer, err := s.interviewers.FindByID(ctx, interviewerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "interviewer not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load interviewer")
	}
	if err := interviewer.RequireBinding(); err != nil {
		return nil, err
	}
	return interviewer, nil
}

// ScheduleBulk packs the applications into consecutive slots in input order.
// The whole packed sequence is checked against existing bookings first; any
// conflict rejects the batch before a single slot is written. After that each
// application is booked in its own unit of work and failures are reported per
// item.
func (s *Scheduler) ScheduleBulk(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	ctx, span, start := s.startOp(ctx, "schedule_bulk",
		attribute.String("interviewer_id", req.InterviewerID.String()),
		attribute.Int("applications", len(req.ApplicationIDs)))
	result, err := s.scheduleBulk(ctx, req)
	s.endOp(span, "schedule_bulk", start, err)
	if err != nil {
		s.recordConflict(ctx, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("scheduled", len(result.Scheduled)), attribute.Int("failed", len(result.Failed)))
	for _, slot := range result.Scheduled {
		s.booked(ctx, slot, audit.EventInterviewScheduled, notification.TypeInterviewScheduled)
	}
	return result, nil
}

func (s *Scheduler) scheduleBulk(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	candidates, err := packCandidates(req)
	if err != nil {
		return nil, err
	}

	release, err := s.lock(ctx, lock.Key(req.InterviewerID, req.Date))
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := s.slots.ListScheduled(ctx, req.InterviewerID, req.Date)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load interviewer calendar")
	}
	if conflicts := scheduling.FindBatchConflicts(existing, candidates); len(conflicts) > 0 {
		return nil, models.NewConflictError(req.InterviewerID, models.DateOf(req.Date), conflicts)
	}

	result := &BulkResult{Scheduled: []*models.Slot{}, Failed: []BulkFailure{}}
	for _, c := range candidates {
		spec := models.SlotSpec{
			ApplicationID:   c.ApplicationID,
			InterviewerID:   req.InterviewerID,
			Date:            req.Date,
			Start:           c.Interval.Start,
			DurationMinutes: req.DurationMinutes,
			MeetingLink:     req.MeetingLink,
		}
		var slot *models.Slot
		err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			var err error
			slot, err = s.book(txCtx, spec)
			return err
		})
		if err != nil {
			result.Failed = append(result.Failed, bulkFailure(c.ApplicationID, err))
			s.incrementBulk("failed")
			continue
		}
		result.Scheduled = append(result.Scheduled, slot)
		s.incrementBulk("scheduled")
	}
	return result, nil
}

// PlanBulk computes what ScheduleBulk would book without writing anything.
func (s *Scheduler) PlanBulk(ctx context.Context, req BulkRequest) (*BulkPlan, error) {
	ctx, span, start := s.startOp(ctx, "plan_bulk",
		attribute.String("interviewer_id", req.InterviewerID.String()))
	plan, err := s.planBulk(ctx, req)
	s.endOp(span, "plan_bulk", start, err)
	return plan, err
}

func (s *Scheduler) planBulk(ctx context.Context, req BulkRequest) (*BulkPlan, error) {
	candidates, err := packCandidates(req)
	if err != nil {
		return nil, err
	}
	apps, err := s.lifecycle.GetMany(ctx, req.ApplicationIDs)
	if err != nil {
		return nil, err
	}
	existing, err := s.slots.ListScheduled(ctx, req.InterviewerID, req.Date)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load interviewer calendar")
	}

	now := requestcontext.Now(ctx)
	plan := &BulkPlan{
		Slots:     make([]*models.Slot, 0, len(candidates)),
		Conflicts: scheduling.FindBatchConflicts(existing, candidates),
	}
	for _, c := range candidates {
		spec := models.SlotSpec{
			ApplicationID:   c.ApplicationID,
			InterviewerID:   req.InterviewerID,
			Date:            req.Date,
			Start:           c.Interval.Start,
			DurationMinutes: req.DurationMinutes,
			MeetingLink:     req.MeetingLink,
		}
		if app, ok := apps[c.ApplicationID]; ok {
			spec.ApplicantRef = app.StudentRef
		}
		slot, err := models.NewSlot(id.NewSlotID(), spec, models.SlotPending, now)
		if err != nil {
			return nil, err
		}
		plan.Slots = append(plan.Slots, slot)
	}
	if plan.Conflicts == nil {
		plan.Conflicts = []models.Conflict{}
	}
	return plan, nil
}

func packCandidates(req BulkRequest) ([]scheduling.Candidate, error) {
	if len(req.ApplicationIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "application_ids must not be empty")
	}
	seen := make(map[id.ApplicationID]struct{}, len(req.ApplicationIDs))
	for _, appID := range req.ApplicationIDs {
		if _, dup := seen[appID]; dup {
			return nil, dErrors.New(dErrors.CodeValidation, "duplicate application id "+appID.String())
		}
		seen[appID] = struct{}{}
	}
	intervals, err := scheduling.Pack(req.Start, req.DurationMinutes, req.GapMinutes, len(req.ApplicationIDs))
	if err != nil {
		return nil, err
	}
	candidates := make([]scheduling.Candidate, len(intervals))
	for i, interval := range intervals {
		candidates[i] = scheduling.Candidate{ApplicationID: req.ApplicationIDs[i], Interval: interval}
	}
	return candidates, nil
}

func bulkFailure(appID id.ApplicationID, err error) BulkFailure {
	code, ok := dErrors.CodeOf(err)
	if !ok {
		code = dErrors.CodeInternal
	}
	return BulkFailure{ApplicationID: appID, Code: string(code), Message: dErrors.MessageOf(err)}
}

// Cancel frees a scheduled slot. The application's status is left alone.
func (s *Scheduler) Cancel(ctx context.Context, slotID id.SlotID, reason string) (*models.Slot, error) {
	ctx, span, start := s.startOp(ctx, "cancel", attribute.String("slot_id", slotID.String()))
	slot, err := s.cancel(ctx, slotID, reason)
	s.endOp(span, "cancel", start, err)
	if err != nil {
		return nil, err
	}
	s.booked(ctx, slot, audit.EventInterviewCancelled, notification.TypeInterviewCancelled)
	return slot, nil
}

func (s *Scheduler) cancel(ctx context.Context, slotID id.SlotID, reason string) (*models.Slot, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.New(dErrors.CodeMissingReason, "cancellation reason is required")
	}
	now := requestcontext.Now(ctx)
	var slot *models.Slot
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		slot, err = s.slots.Execute(txCtx, slotID,
			func(sl *models.Slot) error { return sl.CanCancel(reason) },
			func(sl *models.Slot) { sl.ApplyCancel(reason, now) },
		)
		if err != nil {
			return translateSlotErr(err)
		}
		return s.emit(txCtx, slotEvent(audit.EventInterviewCancelled, slot, slot.CancelReason))
	})
	if err != nil {
		return nil, err
	}
	return slot, nil
}

// Complete closes a scheduled slot with its result and evaluation and moves
// the application to interview_completed, all in one unit of work.
func (s *Scheduler) Complete(ctx context.Context, slotID id.SlotID, result string, eval *appmodels.Evaluation) (*appmodels.Application, error) {
	ctx, span, start := s.startOp(ctx, "complete", attribute.String("slot_id", slotID.String()))
	app, slot, err := s.complete(ctx, slotID, result, eval)
	s.endOp(span, "complete", start, err)
	if err != nil {
		return nil, err
	}
	s.booked(ctx, slot, audit.EventInterviewCompleted, "")
	return app, nil
}

func (s *Scheduler) complete(ctx context.Context, slotID id.SlotID, result string, eval *appmodels.Evaluation) (*appmodels.Application, *models.Slot, error) {
	if eval == nil {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "evaluation is required")
	}
	if err := eval.Validate(); err != nil {
		return nil, nil, err
	}
	now := requestcontext.Now(ctx)

	var (
		app  *appmodels.Application
		slot *models.Slot
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.slots.FindByID(txCtx, slotID)
		if err != nil {
			return translateSlotErr(err)
		}
		if err := current.CanComplete(); err != nil {
			return err
		}
		eval.SlotID = current.ID
		app, err = s.lifecycle.CompleteInterview(txCtx, current.ApplicationID, eval)
		if err != nil {
			return err
		}
		slot, err = s.slots.Execute(txCtx, slotID,
			func(sl *models.Slot) error { return sl.CanComplete() },
			func(sl *models.Slot) { sl.ApplyComplete(result, now) },
		)
		if err != nil {
			return translateSlotErr(err)
		}
		return s.emit(txCtx, slotEvent(audit.EventInterviewCompleted, slot, string(eval.Recommendation)))
	})
	if err != nil {
		return nil, nil, err
	}
	return app, slot, nil
}

// Reschedule retires a scheduled slot as rescheduled and books its
// replacement. The replacement runs the full conflict check with the old slot
// excluded, so an interview can shift within its own time.
func (s *Scheduler) Reschedule(ctx context.Context, slotID id.SlotID, req RescheduleRequest) (*models.Slot, error) {
	ctx, span, start := s.startOp(ctx, "reschedule", attribute.String("slot_id", slotID.String()))
	slot, err := s.reschedule(ctx, slotID, req)
	s.endOp(span, "reschedule", start, err)
	if err != nil {
		s.recordConflict(ctx, err)
		return nil, err
	}
	s.booked(ctx, slot, audit.EventInterviewRescheduled, notification.TypeInterviewRescheduled)
	return slot, nil
}

func (s *Scheduler) reschedule(ctx context.Context, slotID id.SlotID, req RescheduleRequest) (*models.Slot, error) {
	old, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		return nil, translateSlotErr(err)
	}
	spec := models.SlotSpec{
		ApplicationID:   old.ApplicationID,
		ApplicantRef:    old.ApplicantRef,
		InterviewerID:   req.InterviewerID,
		Date:            req.Date,
		Start:           req.Start,
		DurationMinutes: req.DurationMinutes,
		MeetingLink:     req.MeetingLink,
	}
	if spec.InterviewerID.IsNil() {
		spec.InterviewerID = old.InterviewerID
	}
	if spec.DurationMinutes == 0 {
		spec.DurationMinutes = old.DurationMinutes
	}
	if spec.MeetingLink == "" {
		spec.MeetingLink = old.MeetingLink
	}

	release, err := s.lock(ctx,
		lock.Key(old.InterviewerID, old.Date),
		lock.Key(spec.InterviewerID, spec.Date))
	if err != nil {
		return nil, err
	}
	defer release()

	now := requestcontext.Now(ctx)
	var next *models.Slot
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.slots.FindByID(txCtx, slotID)
		if err != nil {
			return translateSlotErr(err)
		}
		if err := current.CanReschedule(); err != nil {
			return err
		}
		if err := s.lifecycle.CheckReschedulable(txCtx, current.ApplicationID); err != nil {
			return err
		}
		if _, err := s.requireInterviewer(txCtx, spec.InterviewerID); err != nil {
			return err
		}
		interval, err := models.NewInterval(spec.Start, spec.DurationMinutes)
		if err != nil {
			return err
		}
		existing, err := s.slots.ListScheduled(txCtx, spec.InterviewerID, spec.Date)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load interviewer calendar")
		}
		if conflicts := scheduling.FindConflicts(without(existing, slotID), interval); len(conflicts) > 0 {
			return models.NewConflictError(spec.InterviewerID, models.DateOf(spec.Date), conflicts)
		}

		next, err = models.NewSlot(id.NewSlotID(), spec, models.SlotScheduled, now)
		if err != nil {
			return err
		}
		retired, err := s.slots.Execute(txCtx, slotID,
			func(sl *models.Slot) error { return sl.CanReschedule() },
			func(sl *models.Slot) { sl.ApplyRescheduled(next.ID, now) },
		)
		if err != nil {
			return translateSlotErr(err)
		}
		if err := s.slots.Create(txCtx, next); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "slot collides with a concurrent booking")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create interview slot")
		}
		return s.emit(txCtx, audit.Event{
			Action:  string(audit.EventInterviewRescheduled),
			Subject: retired.ID.String(),
			From:    describeSlot(retired),
			To:      describeSlot(next),
		})
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func without(slots []*models.Slot, slotID id.SlotID) []*models.Slot {
	out := make([]*models.Slot, 0, len(slots))
	for _, slot := range slots {
		if slot.ID != slotID {
			out = append(out, slot)
		}
	}
	return out
}

// GetSlot returns one slot.
func (s *Scheduler) GetSlot(ctx context.Context, slotID id.SlotID) (*models.Slot, error) {
	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		return nil, translateSlotErr(err)
	}
	return slot, nil
}

// Agenda lists the interviewer's slots for a day in every status, ordered by start.
func (s *Scheduler) Agenda(ctx context.Context, interviewerID id.InterviewerID, date time.Time) ([]*models.Slot, error) {
	if _, err := s.interviewers.FindByID(ctx, interviewerID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "interviewer not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load interviewer")
	}
	slots, err := s.slots.ListByInterviewerDate(ctx, interviewerID, date)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agenda")
	}
	if slots == nil {
		slots = []*models.Slot{}
	}
	return slots, nil
}

// UpsertInterviewer syncs one staff directory entry.
func (s *Scheduler) UpsertInterviewer(ctx context.Context, interviewerID id.InterviewerID, displayName, externalUserRef string) (*models.Interviewer, error) {
	interviewer, err := models.NewInterviewer(interviewerID, displayName, externalUserRef, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	saved, err := s.interviewers.Upsert(ctx, interviewer)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save interviewer")
	}
	s.logAudit(ctx, "interviewer_synced",
		"interviewer_id", saved.ID,
		"bound", saved.ExternalUserRef != "",
	)
	return saved, nil
}

// translateSlotErr maps store sentinels to domain errors and passes domain errors through.
func translateSlotErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "interview slot not found")
	}
	if _, ok := dErrors.CodeOf(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "slot store failure")
}

func slotEvent(action audit.AuditEvent, slot *models.Slot, reason string) audit.Event {
	return audit.Event{
		Action:  string(action),
		Subject: slot.ID.String(),
		To:      string(slot.Status),
		Reason:  reason,
	}
}

func describeSlot(slot *models.Slot) string {
	return fmt.Sprintf("%s %s %s", slot.InterviewerID, slot.DateString(), slot.Interval())
}
