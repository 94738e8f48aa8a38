package models

import (
	"fmt"

	dErrors "scholarops/pkg/domain-errors"
)

// Status is the lifecycle state of a scholarship application.
type Status string

const (
	StatusDraft              Status = "draft"
	StatusSubmitted          Status = "submitted"
	StatusDocumentsReviewed  Status = "documents_reviewed"
	StatusInterviewScheduled Status = "interview_scheduled"
	StatusInterviewCompleted Status = "interview_completed"
	StatusEndorsedToSSC      Status = "endorsed_to_ssc"
	StatusApproved           Status = "approved"

	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"

	// Side-branches. Each remembers the stage it left from in ResumeStatus.
	StatusOnHold                       Status = "on_hold"
	StatusForCompliance                Status = "for_compliance"
	StatusComplianceDocumentsSubmitted Status = "compliance_documents_submitted"
)

// stageOrder ranks the forward stages. Side-branches and exits are unranked.
var stageOrder = map[Status]int{
	StatusDraft:              0,
	StatusSubmitted:          1,
	StatusDocumentsReviewed:  2,
	StatusInterviewScheduled: 3,
	StatusInterviewCompleted: 4,
	StatusEndorsedToSSC:      5,
	StatusApproved:           6,
}

var allStatuses = map[Status]bool{
	StatusDraft: true, StatusSubmitted: true, StatusDocumentsReviewed: true,
	StatusInterviewScheduled: true, StatusInterviewCompleted: true, StatusEndorsedToSSC: true,
	StatusApproved: true, StatusRejected: true, StatusWithdrawn: true, StatusOnHold: true,
	StatusForCompliance: true, StatusComplianceDocumentsSubmitted: true,
}

// ParseStatus validates external input.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !allStatuses[st] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown application status: "+s)
	}
	return st, nil
}

func (s Status) String() string { return string(s) }

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusWithdrawn
}

// IsSideBranch reports whether the application is parked on hold or in compliance.
func (s Status) IsSideBranch() bool {
	return s == StatusOnHold || s == StatusForCompliance || s == StatusComplianceDocumentsSubmitted
}

// IsInProgress reports whether s is a forward stage between submission and endorsement.
func (s Status) IsInProgress() bool {
	rank, ok := stageOrder[s]
	return ok && rank >= stageOrder[StatusSubmitted] && rank <= stageOrder[StatusEndorsedToSSC]
}

// Reached reports whether s is at or past stage on the forward path.
// Exits and side-branches never count as reaching a forward stage.
func (s Status) Reached(stage Status) bool {
	rank, ok := stageOrder[s]
	target, ok2 := stageOrder[stage]
	return ok && ok2 && rank >= target
}

// rejectable lists the stages a rejection may divert from.
var rejectable = map[Status]bool{
	StatusDocumentsReviewed:  true,
	StatusInterviewScheduled: true,
	StatusInterviewCompleted: true,
	StatusEndorsedToSSC:      true,
}

// withdrawable lists the stages an applicant may withdraw from.
var withdrawable = map[Status]bool{
	StatusSubmitted:         true,
	StatusDocumentsReviewed: true,
}

// TransitionError reports a lifecycle move that the current status does not allow.
type TransitionError struct {
	From      Status
	Attempted Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.Attempted)
}

// ErrorDetails exposes the transition to HTTP clients.
func (e *TransitionError) ErrorDetails() map[string]any {
	return map[string]any{"from": e.From, "attempted": e.Attempted}
}

// NewTransitionError builds the coded error returned for a disallowed move.
func NewTransitionError(from, attempted Status) error {
	te := &TransitionError{From: from, Attempted: attempted}
	return dErrors.Wrap(te, dErrors.CodeInvalidTransition,
		fmt.Sprintf("application cannot move from %s to %s", from, attempted))
}
