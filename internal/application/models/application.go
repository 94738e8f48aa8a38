package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
)

// Application is the aggregate root for one scholarship application.
//
// Invariants:
//   - Status moves forward one stage at a time along draft → … → approved
//   - rejected and withdrawn are terminal and entered at most once
//   - SubmittedAt, ReviewedAt and EndorsedAt are set exactly once, when the
//     matching stage is reached, and never decrease relative to each other
//   - RejectionReason is non-empty iff Status == rejected
//   - ResumeStatus is set iff Status is a side-branch
//   - amounts are non-negative; ApprovedAmount never exceeds RequestedAmount
//
// Every mutation goes through a CanX / ApplyX pair. Stores run both under the
// application's lock so the guard and the write see the same state.
type Application struct {
	ID             id.ApplicationID `json:"id"`
	Status         Status           `json:"status"`
	ResumeStatus   Status           `json:"resume_status,omitempty"`
	StudentRef     string           `json:"student_ref"`
	SchoolRef      string           `json:"school_ref,omitempty"`
	CategoryRef    string           `json:"category_ref,omitempty"`
	SubcategoryRef string           `json:"subcategory_ref,omitempty"`

	RequestedAmount decimal.Decimal  `json:"requested_amount"`
	ApprovedAmount  *decimal.Decimal `json:"approved_amount,omitempty"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	EndorsedAt  *time.Time `json:"endorsed_at,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`

	RejectionReason  string `json:"rejection_reason,omitempty"`
	HoldReason       string `json:"hold_reason,omitempty"`
	ComplianceNote   string `json:"compliance_note,omitempty"`
	EndorsementNotes string `json:"endorsement_notes,omitempty"`
	DecisionNotes    string `json:"decision_notes,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	changes []StatusChange
}

// StatusChange is one row of an application's transition history.
type StatusChange struct {
	ApplicationID id.ApplicationID `json:"application_id"`
	From          Status           `json:"from"`
	To            Status           `json:"to"`
	Reason        string           `json:"reason,omitempty"`
	ActorID       string           `json:"actor_id,omitempty"`
	ChangedAt     time.Time        `json:"changed_at"`
}

// NewDraft constructs an application in draft, as handed over by the intake system.
func NewDraft(appID id.ApplicationID, studentRef, schoolRef, categoryRef, subcategoryRef string, requested decimal.Decimal, now time.Time) (*Application, error) {
	studentRef = strings.TrimSpace(studentRef)
	if studentRef == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "student reference cannot be empty")
	}
	if requested.IsNegative() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "requested amount cannot be negative")
	}
	return &Application{
		ID:              appID,
		Status:          StatusDraft,
		StudentRef:      studentRef,
		SchoolRef:       strings.TrimSpace(schoolRef),
		CategoryRef:     strings.TrimSpace(categoryRef),
		SubcategoryRef:  strings.TrimSpace(subcategoryRef),
		RequestedAmount: requested,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Clone returns a deep copy without pending changes. Stores hand out clones so
// callers cannot mutate stored state outside Execute.
func (a *Application) Clone() *Application {
	c := *a
	c.changes = nil
	c.ApprovedAmount = cloneDecimal(a.ApprovedAmount)
	c.SubmittedAt = cloneTime(a.SubmittedAt)
	c.ReviewedAt = cloneTime(a.ReviewedAt)
	c.EndorsedAt = cloneTime(a.EndorsedAt)
	c.DecidedAt = cloneTime(a.DecidedAt)
	return &c
}

// DrainChanges returns and clears the transitions applied since load.
func (a *Application) DrainChanges() []StatusChange {
	changes := a.changes
	a.changes = nil
	return changes
}

func (a *Application) moveTo(to Status, reason string, now time.Time) {
	a.changes = append(a.changes, StatusChange{
		ApplicationID: a.ID,
		From:          a.Status,
		To:            to,
		Reason:        reason,
		ChangedAt:     now,
	})
	a.Status = to
	a.UpdatedAt = now
}

func (a *Application) require(allowed map[Status]bool, attempted Status) error {
	if !allowed[a.Status] {
		return NewTransitionError(a.Status, attempted)
	}
	return nil
}

func only(s Status) map[Status]bool { return map[Status]bool{s: true} }

// CanSubmit checks draft → submitted.
func (a *Application) CanSubmit() error {
	return a.require(only(StatusDraft), StatusSubmitted)
}

// ApplySubmission moves to submitted. Call CanSubmit first.
func (a *Application) ApplySubmission(now time.Time) {
	a.SubmittedAt = stamp(now)
	a.moveTo(StatusSubmitted, "", now)
}

// CanMarkDocumentsReviewed checks submitted → documents_reviewed.
func (a *Application) CanMarkDocumentsReviewed() error {
	return a.require(only(StatusSubmitted), StatusDocumentsReviewed)
}

// ApplyDocumentsReviewed moves to documents_reviewed.
func (a *Application) ApplyDocumentsReviewed(now time.Time) {
	a.ReviewedAt = stamp(now)
	a.moveTo(StatusDocumentsReviewed, "", now)
}

// CanScheduleInterview checks documents_reviewed → interview_scheduled.
func (a *Application) CanScheduleInterview() error {
	return a.require(only(StatusDocumentsReviewed), StatusInterviewScheduled)
}

// ApplyInterviewScheduled moves to interview_scheduled.
func (a *Application) ApplyInterviewScheduled(now time.Time) {
	a.moveTo(StatusInterviewScheduled, "", now)
}

// CanRescheduleInterview checks that the application is still waiting on its interview.
func (a *Application) CanRescheduleInterview() error {
	return a.require(only(StatusInterviewScheduled), StatusInterviewScheduled)
}

// CanCompleteInterview checks interview_scheduled → interview_completed.
func (a *Application) CanCompleteInterview() error {
	return a.require(only(StatusInterviewScheduled), StatusInterviewCompleted)
}

// ApplyInterviewCompleted moves to interview_completed. The evaluation's
// recommendation does not influence the status.
func (a *Application) ApplyInterviewCompleted(now time.Time) {
	a.moveTo(StatusInterviewCompleted, "", now)
}

// CanEndorse checks interview_completed → endorsed_to_ssc.
func (a *Application) CanEndorse() error {
	return a.require(only(StatusInterviewCompleted), StatusEndorsedToSSC)
}

// ApplyEndorsement moves to endorsed_to_ssc.
func (a *Application) ApplyEndorsement(notes string, now time.Time) {
	a.EndorsedAt = stamp(now)
	a.EndorsementNotes = strings.TrimSpace(notes)
	a.moveTo(StatusEndorsedToSSC, "", now)
}

// CanApprove checks endorsed_to_ssc → approved and the approved amount, when given.
func (a *Application) CanApprove(amount *decimal.Decimal) error {
	if err := a.require(only(StatusEndorsedToSSC), StatusApproved); err != nil {
		return err
	}
	if amount != nil {
		if amount.IsNegative() {
			return dErrors.New(dErrors.CodeValidation, "approved amount cannot be negative")
		}
		if amount.GreaterThan(a.RequestedAmount) {
			return dErrors.New(dErrors.CodeValidation, "approved amount cannot exceed requested amount")
		}
	}
	return nil
}

// ApplyApproval moves to approved. A nil amount approves the full request.
func (a *Application) ApplyApproval(notes string, amount *decimal.Decimal, now time.Time) {
	approved := a.RequestedAmount
	if amount != nil {
		approved = *amount
	}
	a.ApprovedAmount = &approved
	a.DecisionNotes = strings.TrimSpace(notes)
	a.DecidedAt = stamp(now)
	a.moveTo(StatusApproved, "", now)
}

// CanReject checks that a reason is present and that the application (or the
// stage a parked application will resume to) is between review and endorsement.
func (a *Application) CanReject(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeMissingReason, "rejection reason is required")
	}
	if a.Status.IsSideBranch() && rejectable[a.ResumeStatus] {
		return nil
	}
	return a.require(rejectable, StatusRejected)
}

// ApplyRejection moves to rejected.
func (a *Application) ApplyRejection(reason string, now time.Time) {
	reason = strings.TrimSpace(reason)
	a.RejectionReason = reason
	a.ResumeStatus = ""
	a.DecidedAt = stamp(now)
	a.moveTo(StatusRejected, reason, now)
}

// CanWithdraw checks submitted | documents_reviewed → withdrawn.
func (a *Application) CanWithdraw() error {
	return a.require(withdrawable, StatusWithdrawn)
}

// ApplyWithdrawal moves to withdrawn.
func (a *Application) ApplyWithdrawal(now time.Time) {
	a.moveTo(StatusWithdrawn, "", now)
}

// CanHold checks that the application is in progress and a reason is given.
func (a *Application) CanHold(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeMissingReason, "hold reason is required")
	}
	if !a.Status.IsInProgress() {
		return NewTransitionError(a.Status, StatusOnHold)
	}
	return nil
}

// ApplyHold parks the application, remembering the stage to resume.
func (a *Application) ApplyHold(reason string, now time.Time) {
	reason = strings.TrimSpace(reason)
	a.ResumeStatus = a.Status
	a.HoldReason = reason
	a.moveTo(StatusOnHold, reason, now)
}

// CanResume checks on_hold → origin stage.
func (a *Application) CanResume() error {
	if a.Status != StatusOnHold {
		return NewTransitionError(a.Status, a.resumeTarget())
	}
	return nil
}

// ApplyResume returns to the stage the hold was placed from.
func (a *Application) ApplyResume(now time.Time) {
	to := a.ResumeStatus
	a.ResumeStatus = ""
	a.HoldReason = ""
	a.moveTo(to, "", now)
}

// CanRequestCompliance checks that an in-progress application can be sent back
// for compliance documents.
func (a *Application) CanRequestCompliance(note string) error {
	if strings.TrimSpace(note) == "" {
		return dErrors.New(dErrors.CodeMissingReason, "compliance note is required")
	}
	if !a.Status.IsInProgress() {
		return NewTransitionError(a.Status, StatusForCompliance)
	}
	return nil
}

// ApplyComplianceRequest moves to for_compliance.
func (a *Application) ApplyComplianceRequest(note string, now time.Time) {
	note = strings.TrimSpace(note)
	a.ResumeStatus = a.Status
	a.ComplianceNote = note
	a.moveTo(StatusForCompliance, note, now)
}

// CanSubmitComplianceDocuments checks for_compliance → compliance_documents_submitted.
func (a *Application) CanSubmitComplianceDocuments() error {
	return a.require(only(StatusForCompliance), StatusComplianceDocumentsSubmitted)
}

// ApplyComplianceDocumentsSubmitted records that the applicant supplied the documents.
func (a *Application) ApplyComplianceDocumentsSubmitted(now time.Time) {
	a.moveTo(StatusComplianceDocumentsSubmitted, "", now)
}

// CanClearCompliance checks compliance_documents_submitted → origin stage.
func (a *Application) CanClearCompliance() error {
	if a.Status != StatusComplianceDocumentsSubmitted {
		return NewTransitionError(a.Status, a.resumeTarget())
	}
	return nil
}

// ApplyComplianceCleared returns to the stage compliance was requested from.
func (a *Application) ApplyComplianceCleared(now time.Time) {
	to := a.ResumeStatus
	a.ResumeStatus = ""
	a.ComplianceNote = ""
	a.moveTo(to, "", now)
}

func (a *Application) resumeTarget() Status {
	if a.ResumeStatus != "" {
		return a.ResumeStatus
	}
	return a.Status
}

func stamp(now time.Time) *time.Time {
	t := now
	return &t
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
