package domain

import (
	"github.com/google/uuid"

	dErrors "scholarops/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so the compiler rejects passing a slot ID
// where an application ID is expected.
type (
	ApplicationID uuid.UUID
	SlotID        uuid.UUID
	InterviewerID uuid.UUID
)

func (i ApplicationID) String() string { return uuid.UUID(i).String() }
func (i ApplicationID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }

func (i SlotID) String() string { return uuid.UUID(i).String() }
func (i SlotID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }

func (i InterviewerID) String() string { return uuid.UUID(i).String() }
func (i InterviewerID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }

// MarshalText lets typed IDs serialize as plain UUID strings in JSON.
func (i ApplicationID) MarshalText() ([]byte, error) { return uuid.UUID(i).MarshalText() }
func (i SlotID) MarshalText() ([]byte, error)        { return uuid.UUID(i).MarshalText() }
func (i InterviewerID) MarshalText() ([]byte, error) { return uuid.UUID(i).MarshalText() }

func (i *ApplicationID) UnmarshalText(b []byte) error { return unmarshalID((*uuid.UUID)(i), b) }
func (i *SlotID) UnmarshalText(b []byte) error        { return unmarshalID((*uuid.UUID)(i), b) }
func (i *InterviewerID) UnmarshalText(b []byte) error { return unmarshalID((*uuid.UUID)(i), b) }

// NewApplicationID, NewSlotID and NewInterviewerID mint random identifiers.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }
func NewSlotID() SlotID               { return SlotID(uuid.New()) }
func NewInterviewerID() InterviewerID { return InterviewerID(uuid.New()) }

// ParseApplicationID parses external input into an ApplicationID.
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s, "application_id")
	return ApplicationID(u), err
}

// ParseSlotID parses external input into a SlotID.
func ParseSlotID(s string) (SlotID, error) {
	u, err := parseUUID(s, "slot_id")
	return SlotID(u), err
}

// ParseInterviewerID parses external input into an InterviewerID.
func ParseInterviewerID(s string) (InterviewerID, error) {
	u, err := parseUUID(s, "interviewer_id")
	return InterviewerID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return u, nil
}

func unmarshalID(dst *uuid.UUID, b []byte) error {
	u, err := parseUUID(string(b), "id")
	if err != nil {
		return err
	}
	*dst = u
	return nil
}
