package models

import (
	"strings"
	"time"

	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
)

// SlotStatus is the state of an interview slot.
type SlotStatus string

const (
	// SlotPending marks a computed candidate that has not been booked.
	SlotPending     SlotStatus = "pending"
	SlotScheduled   SlotStatus = "scheduled"
	SlotCompleted   SlotStatus = "completed"
	SlotCancelled   SlotStatus = "cancelled"
	SlotRescheduled SlotStatus = "rescheduled"
)

// Slot is one interview booked for one applicant with one interviewer.
// Slots are never deleted; cancellation and rescheduling are statuses.
//
// Invariants:
//   - DurationMinutes > 0 and the interval ends by midnight
//   - Result is set only when Status == completed
//   - RescheduledTo is set only when Status == rescheduled
type Slot struct {
	ID              id.SlotID        `json:"id"`
	ApplicationID   id.ApplicationID `json:"application_id"`
	ApplicantRef    string           `json:"applicant_ref"`
	InterviewerID   id.InterviewerID `json:"interviewer_id"`
	Date            time.Time        `json:"-"`
	Start           ClockTime        `json:"start_time"`
	DurationMinutes int              `json:"duration_minutes"`
	Status          SlotStatus       `json:"status"`
	MeetingLink     string           `json:"meeting_link,omitempty"`
	Result          string           `json:"result,omitempty"`
	CancelReason    string           `json:"cancel_reason,omitempty"`
	RescheduledTo   *id.SlotID       `json:"rescheduled_to,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// SlotSpec is what a caller asks to book.
type SlotSpec struct {
	ApplicationID   id.ApplicationID
	ApplicantRef    string
	InterviewerID   id.InterviewerID
	Date            time.Time
	Start           ClockTime
	DurationMinutes int
	MeetingLink     string
}

// NewSlot builds a slot in the given status after validating its interval.
func NewSlot(slotID id.SlotID, spec SlotSpec, status SlotStatus, now time.Time) (*Slot, error) {
	if _, err := NewInterval(spec.Start, spec.DurationMinutes); err != nil {
		return nil, err
	}
	return &Slot{
		ID:              slotID,
		ApplicationID:   spec.ApplicationID,
		ApplicantRef:    spec.ApplicantRef,
		InterviewerID:   spec.InterviewerID,
		Date:            DateOf(spec.Date),
		Start:           spec.Start,
		DurationMinutes: spec.DurationMinutes,
		Status:          status,
		MeetingLink:     strings.TrimSpace(spec.MeetingLink),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// DateString renders the calendar date.
func (s *Slot) DateString() string {
	return s.Date.Format(DateLayout)
}

// End is the first minute after the interview.
func (s *Slot) End() ClockTime {
	return s.Start.Add(s.DurationMinutes)
}

func (s *Slot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End()}
}

// IsActive reports whether the slot currently holds interviewer time.
func (s *Slot) IsActive() bool {
	return s.Status == SlotScheduled
}

func (s *Slot) requireScheduled(action string) error {
	if s.Status != SlotScheduled {
		return dErrors.New(dErrors.CodeInvalidState,
			"cannot "+action+" interview in status "+string(s.Status))
	}
	return nil
}

// CanCancel requires a reason and a scheduled slot.
func (s *Slot) CanCancel(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeMissingReason, "cancellation reason is required")
	}
	return s.requireScheduled("cancel")
}

func (s *Slot) ApplyCancel(reason string, now time.Time) {
	s.Status = SlotCancelled
	s.CancelReason = strings.TrimSpace(reason)
	s.UpdatedAt = now
}

func (s *Slot) CanComplete() error {
	return s.requireScheduled("complete")
}

func (s *Slot) ApplyComplete(result string, now time.Time) {
	s.Status = SlotCompleted
	s.Result = strings.TrimSpace(result)
	s.UpdatedAt = now
}

func (s *Slot) CanReschedule() error {
	return s.requireScheduled("reschedule")
}

// ApplyRescheduled retires the slot in favour of next.
func (s *Slot) ApplyRescheduled(next id.SlotID, now time.Time) {
	s.Status = SlotRescheduled
	s.RescheduledTo = &next
	s.UpdatedAt = now
}

// Clone returns a copy safe to hand out of a store.
func (s *Slot) Clone() *Slot {
	c := *s
	if s.RescheduledTo != nil {
		next := *s.RescheduledTo
		c.RescheduledTo = &next
	}
	return &c
}

// SlotView is the wire shape of a slot, with the date and end rendered.
type SlotView struct {
	*Slot
	Date    string    `json:"date"`
	EndTime ClockTime `json:"end_time"`
}

func (s *Slot) View() SlotView {
	return SlotView{Slot: s, Date: s.DateString(), EndTime: s.End()}
}
