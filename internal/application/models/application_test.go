package models

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newDraft(t *testing.T) *Application {
	t.Helper()
	app, err := NewDraft(id.NewApplicationID(), "STU-1", "SCH-1", "CAT-1", "SUB-1", decimal.NewFromInt(20000), testNow)
	require.NoError(t, err)
	return app
}

// advance drives app forward along the happy path until it reaches target.
func advance(t *testing.T, app *Application, target Status) {
	t.Helper()
	steps := []struct {
		status Status
		can    func() error
		apply  func()
	}{
		{StatusSubmitted, app.CanSubmit, func() { app.ApplySubmission(testNow) }},
		{StatusDocumentsReviewed, app.CanMarkDocumentsReviewed, func() { app.ApplyDocumentsReviewed(testNow) }},
		{StatusInterviewScheduled, app.CanScheduleInterview, func() { app.ApplyInterviewScheduled(testNow) }},
		{StatusInterviewCompleted, app.CanCompleteInterview, func() { app.ApplyInterviewCompleted(testNow) }},
		{StatusEndorsedToSSC, app.CanEndorse, func() { app.ApplyEndorsement("", testNow) }},
	}
	for _, step := range steps {
		if app.Status == target {
			return
		}
		require.NoError(t, step.can())
		step.apply()
	}
	require.Equal(t, target, app.Status)
}

func requireTransitionError(t *testing.T, err error, from, attempted Status) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, from, te.From)
	assert.Equal(t, attempted, te.Attempted)
}

func TestNewDraft(t *testing.T) {
	t.Run("requires student reference", func(t *testing.T) {
		_, err := NewDraft(id.NewApplicationID(), "  ", "", "", "", decimal.Zero, testNow)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects negative requested amount", func(t *testing.T) {
		_, err := NewDraft(id.NewApplicationID(), "STU-1", "", "", "", decimal.NewFromInt(-1), testNow)
		require.Error(t, err)
	})

	t.Run("starts in draft with no stage timestamps", func(t *testing.T) {
		app := newDraft(t)
		assert.Equal(t, StatusDraft, app.Status)
		assert.Nil(t, app.SubmittedAt)
		assert.Nil(t, app.ReviewedAt)
		assert.Nil(t, app.EndorsedAt)
		assert.Empty(t, app.DrainChanges())
	})
}

func TestSubmitTwiceFails(t *testing.T) {
	app := newDraft(t)
	require.NoError(t, app.CanSubmit())
	app.ApplySubmission(testNow)

	requireTransitionError(t, app.CanSubmit(), StatusSubmitted, StatusSubmitted)
	require.NotNil(t, app.SubmittedAt)
	assert.Equal(t, testNow, *app.SubmittedAt)
}

func TestStageTimestamps(t *testing.T) {
	app := newDraft(t)
	submitted := testNow
	reviewed := testNow.Add(time.Hour)
	endorsed := testNow.Add(48 * time.Hour)

	app.ApplySubmission(submitted)
	app.ApplyDocumentsReviewed(reviewed)
	app.ApplyInterviewScheduled(reviewed)
	app.ApplyInterviewCompleted(endorsed)
	app.ApplyEndorsement("strong candidate", endorsed)

	require.NotNil(t, app.SubmittedAt)
	require.NotNil(t, app.ReviewedAt)
	require.NotNil(t, app.EndorsedAt)
	assert.False(t, app.ReviewedAt.Before(*app.SubmittedAt))
	assert.False(t, app.EndorsedAt.Before(*app.ReviewedAt))
	assert.Equal(t, "strong candidate", app.EndorsementNotes)
}

func TestGuardsRejectSkippedStages(t *testing.T) {
	app := newDraft(t)
	requireTransitionError(t, app.CanMarkDocumentsReviewed(), StatusDraft, StatusDocumentsReviewed)
	requireTransitionError(t, app.CanScheduleInterview(), StatusDraft, StatusInterviewScheduled)
	requireTransitionError(t, app.CanEndorse(), StatusDraft, StatusEndorsedToSSC)
	requireTransitionError(t, app.CanApprove(nil), StatusDraft, StatusApproved)
	requireTransitionError(t, app.CanWithdraw(), StatusDraft, StatusWithdrawn)
}

func TestApproval(t *testing.T) {
	t.Run("defaults to requested amount", func(t *testing.T) {
		app := newDraft(t)
		advance(t, app, StatusEndorsedToSSC)
		require.NoError(t, app.CanApprove(nil))
		app.ApplyApproval("approved in session 4", nil, testNow)

		assert.Equal(t, StatusApproved, app.Status)
		require.NotNil(t, app.ApprovedAmount)
		assert.True(t, app.ApprovedAmount.Equal(app.RequestedAmount))
		assert.NotNil(t, app.DecidedAt)
		assert.True(t, app.Status.IsTerminal())
	})

	t.Run("rejects amount above request", func(t *testing.T) {
		app := newDraft(t)
		advance(t, app, StatusEndorsedToSSC)
		over := decimal.NewFromInt(20001)
		err := app.CanApprove(&over)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts partial amount", func(t *testing.T) {
		app := newDraft(t)
		advance(t, app, StatusEndorsedToSSC)
		partial := decimal.RequireFromString("12500.50")
		require.NoError(t, app.CanApprove(&partial))
		app.ApplyApproval("", &partial, testNow)
		assert.True(t, app.ApprovedAmount.Equal(partial))
	})
}

func TestRejection(t *testing.T) {
	t.Run("requires reason before anything else", func(t *testing.T) {
		app := newDraft(t)
		err := app.CanReject("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingReason))
	})

	t.Run("allowed from review through endorsement", func(t *testing.T) {
		for _, stage := range []Status{StatusDocumentsReviewed, StatusInterviewScheduled, StatusInterviewCompleted, StatusEndorsedToSSC} {
			app := newDraft(t)
			advance(t, app, stage)
			require.NoError(t, app.CanReject("incomplete grades"), stage)
			app.ApplyRejection(" incomplete grades ", testNow)
			assert.Equal(t, StatusRejected, app.Status)
			assert.Equal(t, "incomplete grades", app.RejectionReason)
		}
	})

	t.Run("not allowed from draft or submitted", func(t *testing.T) {
		app := newDraft(t)
		requireTransitionError(t, app.CanReject("x"), StatusDraft, StatusRejected)
		advance(t, app, StatusSubmitted)
		requireTransitionError(t, app.CanReject("x"), StatusSubmitted, StatusRejected)
	})

	t.Run("rejected is terminal", func(t *testing.T) {
		app := newDraft(t)
		advance(t, app, StatusDocumentsReviewed)
		app.ApplyRejection("duplicate application", testNow)
		requireTransitionError(t, app.CanReject("again"), StatusRejected, StatusRejected)
		requireTransitionError(t, app.CanWithdraw(), StatusRejected, StatusWithdrawn)
		requireTransitionError(t, app.CanHold("x"), StatusRejected, StatusOnHold)
	})

	t.Run("allowed while parked when origin is rejectable", func(t *testing.T) {
		app := newDraft(t)
		advance(t, app, StatusInterviewCompleted)
		app.ApplyHold("awaiting registrar", testNow)
		require.NoError(t, app.CanReject("no response"))
		app.ApplyRejection("no response", testNow)
		assert.Equal(t, StatusRejected, app.Status)
		assert.Empty(t, app.ResumeStatus)
	})
}

func TestWithdrawal(t *testing.T) {
	app := newDraft(t)
	advance(t, app, StatusDocumentsReviewed)
	require.NoError(t, app.CanWithdraw())

	later := newDraft(t)
	advance(t, later, StatusInterviewScheduled)
	requireTransitionError(t, later.CanWithdraw(), StatusInterviewScheduled, StatusWithdrawn)
}

func TestSideBranches(t *testing.T) {
	t.Run("hold returns to origin", func(t *testing.T) {
		app := newDraft(t)
		advance(t, app, StatusInterviewScheduled)
		require.NoError(t, app.CanHold("medical leave"))
		app.ApplyHold("medical leave", testNow)
		assert.Equal(t, StatusOnHold, app.Status)
		assert.Equal(t, StatusInterviewScheduled, app.ResumeStatus)

		requireTransitionError(t, app.CanCompleteInterview(), StatusOnHold, StatusInterviewCompleted)

		require.NoError(t, app.CanResume())
		app.ApplyResume(testNow)
		assert.Equal(t, StatusInterviewScheduled, app.Status)
		assert.Empty(t, app.ResumeStatus)
		assert.Empty(t, app.HoldReason)
	})

	t.Run("hold requires reason and in-progress stage", func(t *testing.T) {
		app := newDraft(t)
		assert.True(t, dErrors.HasCode(app.CanHold(""), dErrors.CodeMissingReason))
		requireTransitionError(t, app.CanHold("x"), StatusDraft, StatusOnHold)
	})

	t.Run("compliance round trip", func(t *testing.T) {
		app := newDraft(t)
		advance(t, app, StatusDocumentsReviewed)
		require.NoError(t, app.CanRequestCompliance("missing barangay clearance"))
		app.ApplyComplianceRequest("missing barangay clearance", testNow)

		requireTransitionError(t, app.CanClearCompliance(), StatusForCompliance, StatusDocumentsReviewed)
		require.NoError(t, app.CanSubmitComplianceDocuments())
		app.ApplyComplianceDocumentsSubmitted(testNow)
		require.NoError(t, app.CanClearCompliance())
		app.ApplyComplianceCleared(testNow)

		assert.Equal(t, StatusDocumentsReviewed, app.Status)
		assert.Empty(t, app.ComplianceNote)
	})

	t.Run("resume outside hold fails", func(t *testing.T) {
		app := newDraft(t)
		advance(t, app, StatusSubmitted)
		requireTransitionError(t, app.CanResume(), StatusSubmitted, StatusSubmitted)
	})
}

func TestHistoryRecordsEveryTransition(t *testing.T) {
	app := newDraft(t)
	advance(t, app, StatusDocumentsReviewed)
	app.ApplyHold("waiting", testNow)

	changes := app.DrainChanges()
	require.Len(t, changes, 3)
	assert.Equal(t, StatusDraft, changes[0].From)
	assert.Equal(t, StatusSubmitted, changes[0].To)
	assert.Equal(t, StatusOnHold, changes[2].To)
	assert.Equal(t, "waiting", changes[2].Reason)
	assert.Empty(t, app.DrainChanges())
}

// TestOrderingInvariant drives random operation sequences and checks that the
// recorded history never skips a forward stage and exits at most once.
func TestOrderingInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	amount := decimal.NewFromInt(100)

	ops := []func(a *Application) bool{
		func(a *Application) bool { return try(a.CanSubmit(), func() { a.ApplySubmission(testNow) }) },
		func(a *Application) bool {
			return try(a.CanMarkDocumentsReviewed(), func() { a.ApplyDocumentsReviewed(testNow) })
		},
		func(a *Application) bool {
			return try(a.CanScheduleInterview(), func() { a.ApplyInterviewScheduled(testNow) })
		},
		func(a *Application) bool {
			return try(a.CanCompleteInterview(), func() { a.ApplyInterviewCompleted(testNow) })
		},
		func(a *Application) bool { return try(a.CanEndorse(), func() { a.ApplyEndorsement("", testNow) }) },
		func(a *Application) bool {
			return try(a.CanApprove(&amount), func() { a.ApplyApproval("", &amount, testNow) })
		},
		func(a *Application) bool { return try(a.CanReject("r"), func() { a.ApplyRejection("r", testNow) }) },
		func(a *Application) bool { return try(a.CanWithdraw(), func() { a.ApplyWithdrawal(testNow) }) },
		func(a *Application) bool { return try(a.CanHold("h"), func() { a.ApplyHold("h", testNow) }) },
		func(a *Application) bool { return try(a.CanResume(), func() { a.ApplyResume(testNow) }) },
		func(a *Application) bool {
			return try(a.CanRequestCompliance("c"), func() { a.ApplyComplianceRequest("c", testNow) })
		},
		func(a *Application) bool {
			return try(a.CanSubmitComplianceDocuments(), func() { a.ApplyComplianceDocumentsSubmitted(testNow) })
		},
		func(a *Application) bool {
			return try(a.CanClearCompliance(), func() { a.ApplyComplianceCleared(testNow) })
		},
	}

	for run := 0; run < 500; run++ {
		app := newDraft(t)
		for step := 0; step < 40; step++ {
			ops[rng.Intn(len(ops))](app)
		}

		lastForward := StatusDraft
		exited := false
		for _, c := range app.DrainChanges() {
			require.False(t, exited, "transition after exit: %s -> %s", c.From, c.To)
			switch {
			case c.To == StatusRejected || c.To == StatusWithdrawn:
				exited = true
			case c.To.IsSideBranch():
			case c.From.IsSideBranch():
				require.Equal(t, lastForward, c.To, "side-branch must return to its origin")
			default:
				require.Equal(t, stageOrder[lastForward]+1, stageOrder[c.To], "skipped stage: %s -> %s", lastForward, c.To)
				lastForward = c.To
			}
		}
	}
}

func try(err error, apply func()) bool {
	if err != nil {
		return false
	}
	apply()
	return true
}

func TestEvaluationValidate(t *testing.T) {
	valid := func() Evaluation {
		return Evaluation{
			AcademicMotivation: 4, Leadership: 3, FinancialNeed: 5, Character: 4,
			Recommendation: RecommendationRecommended, Remarks: "articulate",
		}
	}

	e := valid()
	require.NoError(t, e.Validate())
	assert.Equal(t, 16, e.Total())

	e = valid()
	e.Leadership = 6
	assert.True(t, dErrors.HasCode(e.Validate(), dErrors.CodeValidation))

	e = valid()
	e.Character = 0
	assert.Error(t, e.Validate())

	e = valid()
	e.Recommendation = "maybe"
	assert.Error(t, e.Validate())

	e = valid()
	e.Remarks = "  "
	assert.Error(t, e.Validate())
}
