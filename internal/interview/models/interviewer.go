package models

import (
	"strings"
	"time"

	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
)

// Interviewer is a staff member synced from the staff directory.
type Interviewer struct {
	ID          id.InterviewerID `json:"id"`
	DisplayName string           `json:"display_name"`
	// ExternalUserRef binds the interviewer to a directory account. Slots cannot
	// be booked for an interviewer without one.
	ExternalUserRef string    `json:"external_user_ref,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewInterviewer validates directory data. An empty ExternalUserRef is
// accepted here and refused at booking time.
func NewInterviewer(interviewerID id.InterviewerID, displayName, externalUserRef string, now time.Time) (*Interviewer, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "display_name is required")
	}
	return &Interviewer{
		ID:              interviewerID,
		DisplayName:     displayName,
		ExternalUserRef: strings.TrimSpace(externalUserRef),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// RequireBinding fails with CodeMissingInterviewerBinding when the interviewer
// has no directory identity.
func (i *Interviewer) RequireBinding() error {
	if strings.TrimSpace(i.ExternalUserRef) == "" {
		return dErrors.New(dErrors.CodeMissingInterviewerBinding,
			"interviewer "+i.DisplayName+" has no external user reference")
	}
	return nil
}
