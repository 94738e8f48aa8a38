package handler

import (
	"strings"
	"time"

	appmodels "scholarops/internal/application/models"
	"scholarops/internal/interview/models"
	"scholarops/internal/interview/service"
	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
)

// maxBulkApplications bounds one bulk request.
const maxBulkApplications = 200

// ScheduleInterviewRequest books one interview.
type ScheduleInterviewRequest struct {
	ApplicationID   id.ApplicationID  `json:"application_id"`
	InterviewerID   id.InterviewerID  `json:"interviewer_id"`
	Date            string            `json:"date"`
	StartTime       *models.ClockTime `json:"start_time"`
	DurationMinutes int               `json:"duration_minutes"`
	MeetingLink     string            `json:"meeting_link"`

	date time.Time
}

func (r *ScheduleInterviewRequest) Validate() error {
	if r.ApplicationID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "application_id is required")
	}
	date, err := validateSlotFields(r.InterviewerID, r.Date, r.StartTime, r.DurationMinutes)
	if err != nil {
		return err
	}
	r.date = date
	r.MeetingLink = strings.TrimSpace(r.MeetingLink)
	return nil
}

func (r *ScheduleInterviewRequest) toService() service.ScheduleRequest {
	return service.ScheduleRequest{
		ApplicationID:   r.ApplicationID,
		InterviewerID:   r.InterviewerID,
		Date:            r.date,
		Start:           *r.StartTime,
		DurationMinutes: r.DurationMinutes,
		MeetingLink:     r.MeetingLink,
	}
}

// BulkScheduleRequest books consecutive interviews in the order given.
type BulkScheduleRequest struct {
	ApplicationIDs  []id.ApplicationID `json:"application_ids"`
	InterviewerID   id.InterviewerID   `json:"interviewer_id"`
	Date            string             `json:"date"`
	StartTime       *models.ClockTime  `json:"start_time"`
	DurationMinutes int                `json:"duration_minutes"`
	GapMinutes      int                `json:"gap_minutes"`
	MeetingLink     string             `json:"meeting_link"`

	date time.Time
}

func (r *BulkScheduleRequest) Validate() error {
	if len(r.ApplicationIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "application_ids must not be empty")
	}
	if len(r.ApplicationIDs) > maxBulkApplications {
		return dErrors.New(dErrors.CodeValidation, "too many application_ids")
	}
	for _, appID := range r.ApplicationIDs {
		if appID.IsNil() {
			return dErrors.New(dErrors.CodeInvalidInput, "application_ids cannot contain a nil id")
		}
	}
	if r.GapMinutes < 0 {
		return dErrors.New(dErrors.CodeValidation, "gap_minutes cannot be negative")
	}
	if r.GapMinutes > models.MinutesPerDay {
		return dErrors.New(dErrors.CodeValidation, "gap_minutes cannot exceed one day")
	}
	date, err := validateSlotFields(r.InterviewerID, r.Date, r.StartTime, r.DurationMinutes)
	if err != nil {
		return err
	}
	r.date = date
	r.MeetingLink = strings.TrimSpace(r.MeetingLink)
	return nil
}

func (r *BulkScheduleRequest) toService() service.BulkRequest {
	return service.BulkRequest{
		ApplicationIDs:  r.ApplicationIDs,
		InterviewerID:   r.InterviewerID,
		Date:            r.date,
		Start:           *r.StartTime,
		DurationMinutes: r.DurationMinutes,
		GapMinutes:      r.GapMinutes,
		MeetingLink:     r.MeetingLink,
	}
}

// RescheduleInterviewRequest moves an interview. interviewer_id and
// duration_minutes default to the current slot's.
type RescheduleInterviewRequest struct {
	InterviewerID   id.InterviewerID  `json:"interviewer_id"`
	Date            string            `json:"date"`
	StartTime       *models.ClockTime `json:"start_time"`
	DurationMinutes int               `json:"duration_minutes"`
	MeetingLink     string            `json:"meeting_link"`

	date time.Time
}

func (r *RescheduleInterviewRequest) Validate() error {
	date, err := models.ParseDate(r.Date)
	if err != nil {
		return err
	}
	if r.StartTime == nil {
		return dErrors.New(dErrors.CodeValidation, "start_time is required")
	}
	if r.DurationMinutes < 0 {
		return dErrors.New(dErrors.CodeValidation, "duration_minutes must be positive")
	}
	if r.DurationMinutes > models.MinutesPerDay {
		return dErrors.New(dErrors.CodeValidation, "duration_minutes cannot exceed one day")
	}
	r.date = date
	r.MeetingLink = strings.TrimSpace(r.MeetingLink)
	return nil
}

func (r *RescheduleInterviewRequest) toService() service.RescheduleRequest {
	return service.RescheduleRequest{
		InterviewerID:   r.InterviewerID,
		Date:            r.date,
		Start:           *r.StartTime,
		DurationMinutes: r.DurationMinutes,
		MeetingLink:     r.MeetingLink,
	}
}

// CancelInterviewRequest requires a reason.
type CancelInterviewRequest struct {
	Reason string `json:"reason"`
}

func (r *CancelInterviewRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeMissingReason, "reason is required")
	}
	return nil
}

// EvaluationPayload is the interviewer's scoring sheet.
type EvaluationPayload struct {
	AcademicMotivation    int                      `json:"academic_motivation"`
	Leadership            int                      `json:"leadership"`
	FinancialNeed         int                      `json:"financial_need"`
	Character             int                      `json:"character"`
	OverallRecommendation appmodels.Recommendation `json:"overall_recommendation"`
	Remarks               string                   `json:"remarks"`
}

// CompleteInterviewRequest closes an interview with its result and evaluation.
type CompleteInterviewRequest struct {
	Result     string             `json:"result"`
	Evaluation *EvaluationPayload `json:"evaluation"`
}

func (r *CompleteInterviewRequest) Validate() error {
	r.Result = strings.TrimSpace(r.Result)
	if r.Evaluation == nil {
		return dErrors.New(dErrors.CodeValidation, "evaluation is required")
	}
	return r.toEvaluation().Validate()
}

func (r *CompleteInterviewRequest) toEvaluation() *appmodels.Evaluation {
	return &appmodels.Evaluation{
		AcademicMotivation: r.Evaluation.AcademicMotivation,
		Leadership:         r.Evaluation.Leadership,
		FinancialNeed:      r.Evaluation.FinancialNeed,
		Character:          r.Evaluation.Character,
		Recommendation:     r.Evaluation.OverallRecommendation,
		Remarks:            r.Evaluation.Remarks,
	}
}

// UpsertInterviewerRequest carries staff directory data.
type UpsertInterviewerRequest struct {
	DisplayName     string `json:"display_name"`
	ExternalUserRef string `json:"external_user_ref"`
}

func (r *UpsertInterviewerRequest) Validate() error {
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	r.ExternalUserRef = strings.TrimSpace(r.ExternalUserRef)
	if r.DisplayName == "" {
		return dErrors.New(dErrors.CodeValidation, "display_name is required")
	}
	return nil
}

func validateSlotFields(interviewerID id.InterviewerID, rawDate string, start *models.ClockTime, duration int) (time.Time, error) {
	if interviewerID.IsNil() {
		return time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "interviewer_id is required")
	}
	date, err := models.ParseDate(rawDate)
	if err != nil {
		return time.Time{}, err
	}
	if start == nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "start_time is required")
	}
	if duration <= 0 {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "duration_minutes must be positive")
	}
	if duration > models.MinutesPerDay {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "duration_minutes cannot exceed one day")
	}
	return date, nil
}
