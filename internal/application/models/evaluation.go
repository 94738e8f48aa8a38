package models

import (
	"fmt"
	"strings"
	"time"

	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
)

// Recommendation is the interviewer's categorical outcome.
type Recommendation string

const (
	RecommendationRecommended    Recommendation = "recommended"
	RecommendationNeedsFollowup  Recommendation = "needs_followup"
	RecommendationNotRecommended Recommendation = "not_recommended"
)

func (r Recommendation) IsValid() bool {
	switch r {
	case RecommendationRecommended, RecommendationNeedsFollowup, RecommendationNotRecommended:
		return true
	}
	return false
}

const (
	MinScore = 1
	MaxScore = 5
)

// Evaluation is the interviewer's scored assessment, written once when the
// interview slot completes and never modified.
type Evaluation struct {
	SlotID             id.SlotID        `json:"slot_id"`
	ApplicationID      id.ApplicationID `json:"application_id"`
	AcademicMotivation int              `json:"academic_motivation"`
	Leadership         int              `json:"leadership"`
	FinancialNeed      int              `json:"financial_need"`
	Character          int              `json:"character"`
	Recommendation     Recommendation   `json:"overall_recommendation"`
	Remarks            string           `json:"remarks"`
	CreatedAt          time.Time        `json:"created_at"`
}

// Validate checks score bounds, the recommendation and remarks.
func (e *Evaluation) Validate() error {
	scores := []struct {
		name  string
		value int
	}{
		{"academic_motivation", e.AcademicMotivation},
		{"leadership", e.Leadership},
		{"financial_need", e.FinancialNeed},
		{"character", e.Character},
	}
	for _, sc := range scores {
		if sc.value < MinScore || sc.value > MaxScore {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("%s must be between %d and %d", sc.name, MinScore, MaxScore))
		}
	}
	if !e.Recommendation.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "overall_recommendation must be one of recommended, needs_followup, not_recommended")
	}
	e.Remarks = strings.TrimSpace(e.Remarks)
	if e.Remarks == "" {
		return dErrors.New(dErrors.CodeValidation, "remarks are required")
	}
	return nil
}

// Total sums the four sub-scores.
func (e *Evaluation) Total() int {
	return e.AcademicMotivation + e.Leadership + e.FinancialNeed + e.Character
}
