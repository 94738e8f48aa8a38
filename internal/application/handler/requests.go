package handler

import (
	"strings"

	"github.com/shopspring/decimal"

	dErrors "scholarops/pkg/domain-errors"
)

// CreateApplicationRequest is the intake payload for a draft application.
type CreateApplicationRequest struct {
	StudentRef      string          `json:"student_ref"`
	SchoolRef       string          `json:"school_ref"`
	CategoryRef     string          `json:"category_ref"`
	SubcategoryRef  string          `json:"subcategory_ref"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
}

func (r *CreateApplicationRequest) Validate() error {
	r.StudentRef = strings.TrimSpace(r.StudentRef)
	if r.StudentRef == "" {
		return dErrors.New(dErrors.CodeValidation, "student_ref is required")
	}
	if r.RequestedAmount.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "requested_amount cannot be negative")
	}
	return nil
}

// ReasonRequest carries the justification for reject and hold.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

func (r *ReasonRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeMissingReason, "reason is required")
	}
	return nil
}

// ComplianceRequest names the documents the applicant must supply.
type ComplianceRequest struct {
	Note string `json:"note"`
}

func (r *ComplianceRequest) Validate() error {
	r.Note = strings.TrimSpace(r.Note)
	if r.Note == "" {
		return dErrors.New(dErrors.CodeMissingReason, "note is required")
	}
	return nil
}

// ApproveRequest optionally overrides the approved amount.
type ApproveRequest struct {
	Notes          string           `json:"notes"`
	ApprovedAmount *decimal.Decimal `json:"approved_amount,omitempty"`
}

func (r *ApproveRequest) Validate() error {
	r.Notes = strings.TrimSpace(r.Notes)
	if r.ApprovedAmount != nil && r.ApprovedAmount.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "approved_amount cannot be negative")
	}
	return nil
}
