package models

import (
	"strings"

	appmodels "scholarops/internal/application/models"
	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
)

// FilterMode selects which interview recommendations a bulk endorsement
// advances.
type FilterMode string

const (
	// FilterReady endorses recommended applicants only.
	FilterReady FilterMode = "ready"
	// FilterConsideration endorses applicants marked needs_followup only.
	FilterConsideration FilterMode = "consideration"
	// FilterAll attempts every applicant regardless of recommendation.
	FilterAll FilterMode = "all"
)

func ParseFilterMode(s string) (FilterMode, error) {
	switch m := FilterMode(strings.TrimSpace(strings.ToLower(s))); m {
	case FilterReady, FilterConsideration, FilterAll:
		return m, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "filter_mode must be one of ready, consideration, all")
}

// Accepts reports whether an evaluation with recommendation r passes the filter.
func (m FilterMode) Accepts(r appmodels.Recommendation) bool {
	switch m {
	case FilterReady:
		return r == appmodels.RecommendationRecommended
	case FilterConsideration:
		return r == appmodels.RecommendationNeedsFollowup
	case FilterAll:
		return true
	}
	return false
}

// Outcome is the per-item result of a bulk endorsement.
type Outcome string

const (
	OutcomeEndorsed Outcome = "endorsed"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// ItemResult reports what happened to one application. Code and Message are
// set for skipped and failed items.
type ItemResult struct {
	ApplicationID id.ApplicationID `json:"application_id"`
	Outcome       Outcome          `json:"outcome"`
	Status        string           `json:"status,omitempty"`
	Code          string           `json:"code,omitempty"`
	Message       string           `json:"message,omitempty"`
}

// Result aggregates a batch in input order.
type Result struct {
	EndorsedCount  int          `json:"endorsed_count"`
	SkippedCount   int          `json:"skipped_count"`
	FailedCount    int          `json:"failed_count"`
	TotalProcessed int          `json:"total_processed"`
	Items          []ItemResult `json:"items"`
}

// NewResult tallies items. Items keep their positions.
func NewResult(items []ItemResult) *Result {
	r := &Result{Items: items, TotalProcessed: len(items)}
	for _, item := range items {
		switch item.Outcome {
		case OutcomeEndorsed:
			r.EndorsedCount++
		case OutcomeSkipped:
			r.SkippedCount++
		case OutcomeFailed:
			r.FailedCount++
		}
	}
	return r
}
