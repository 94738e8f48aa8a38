package models

import (
	"fmt"
	"strings"
	"time"

	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
)

// Conflict describes an existing booking that overlaps a requested interval.
type Conflict struct {
	SlotID        id.SlotID        `json:"slot_id"`
	ApplicationID id.ApplicationID `json:"application_id"`
	ApplicantRef  string           `json:"applicant_ref"`
	Existing      Interval         `json:"existing"`
	Requested     Interval         `json:"requested"`
	// RequestedFor is the application the requested interval was computed for.
	// Nil for single bookings.
	RequestedFor *id.ApplicationID `json:"requested_for,omitempty"`
}

// ConflictError reports all overlaps found for a booking or a bulk batch.
type ConflictError struct {
	InterviewerID id.InterviewerID
	Date          time.Time
	Conflicts     []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = fmt.Sprintf("%s overlaps %s (%s)", c.Requested, c.Existing, c.ApplicantRef)
	}
	return fmt.Sprintf("%d scheduling conflict(s) on %s: %s",
		len(e.Conflicts), e.Date.Format(DateLayout), strings.Join(parts, "; "))
}

// ErrorDetails exposes the conflicting bookings to HTTP clients.
func (e *ConflictError) ErrorDetails() map[string]any {
	return map[string]any{
		"interviewer_id": e.InterviewerID,
		"date":           e.Date.Format(DateLayout),
		"conflicts":      e.Conflicts,
	}
}

// NewConflictError builds the coded error for a refused booking.
func NewConflictError(interviewerID id.InterviewerID, date time.Time, conflicts []Conflict) error {
	ce := &ConflictError{InterviewerID: interviewerID, Date: date, Conflicts: conflicts}
	return dErrors.Wrap(ce, dErrors.CodeSchedulingConflict,
		fmt.Sprintf("interviewer already booked at %d requested time(s)", len(conflicts)))
}
