package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarops/internal/platform/config"
	"scholarops/pkg/testutil"
)

func build(t *testing.T) *App {
	t.Helper()
	cfg := config.Config{Server: config.Server{EndorsementConcurrency: 2}}
	a, err := Build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close(context.Background())) })
	return a
}

func call(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, path, body)
	req.Header.Set("X-Actor-ID", "officer-1")
	return testutil.DoJSON(t, h, req)
}

func TestBuildInMemory(t *testing.T) {
	a := build(t)
	require.NotNil(t, a.Router)
	require.NotNil(t, a.Lifecycle)
	require.NotNil(t, a.Scheduler)
	require.NotNil(t, a.Processor)

	rec, body := call(t, a.Router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Empty(t, body["checks"])
}

func TestApplicationToEndorsement(t *testing.T) {
	a := build(t)
	h := a.Router

	ivID := uuid.NewString()
	rec, _ := call(t, h, http.MethodPut, "/interviewers/"+ivID, map[string]string{
		"display_name":      "Prof. Okafor",
		"external_user_ref": "staff-okafor",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	interviewed := func(studentRef, start, recommendation string) string {
		rec0, body := call(t, h, http.MethodPost, "/applications", map[string]any{
			"student_ref":      studentRef,
			"requested_amount": "12000",
		})
		require.Equal(t, http.StatusCreated, rec0.Code)
		appID := body["id"].(string)
		for _, step := range []string{"submit", "review"} {
			res, _ := call(t, h, http.MethodPost, "/applications/"+appID+"/"+step, nil)
			require.Equal(t, http.StatusOK, res.Code, step)
		}
		res, slot := call(t, h, http.MethodPost, "/interviews", map[string]any{
			"application_id":   appID,
			"interviewer_id":   ivID,
			"date":             "2030-09-14",
			"start_time":       start,
			"duration_minutes": 45,
		})
		require.Equal(t, http.StatusCreated, res.Code)
		res, _ = call(t, h, http.MethodPost, "/interviews/"+slot["id"].(string)+"/complete", map[string]any{
			"result": "attended",
			"evaluation": map[string]any{
				"academic_motivation":    4,
				"leadership":             4,
				"financial_need":         5,
				"character":              4,
				"overall_recommendation": recommendation,
				"remarks":                "panel notes",
			},
		})
		require.Equal(t, http.StatusOK, res.Code)
		return appID
	}

	recommended := interviewed("STU-10", "09:00", "recommended")
	followup := interviewed("STU-11", "10:00", "needs_followup")

	rec, body := call(t, h, http.MethodPost, "/endorsements/bulk", map[string]any{
		"application_ids": []string{recommended, followup},
		"filter_mode":     "ready",
		"notes":           "committee batch",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["endorsed_count"])
	assert.EqualValues(t, 1, body["skipped_count"])
	assert.EqualValues(t, 0, body["failed_count"])

	rec, body = call(t, h, http.MethodGet, "/applications/"+recommended, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "endorsed_to_ssc", body["status"])

	rec, body = call(t, h, http.MethodGet, "/applications/"+followup, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "interview_completed", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRec := httptest.NewRecorder()
	h.ServeHTTP(metricsRec, req)
	require.Equal(t, http.StatusOK, metricsRec.Code)
	assert.Contains(t, metricsRec.Body.String(), "scholarops_endorsement_items_total")
	assert.Contains(t, metricsRec.Body.String(), "scholarops_http_requests_total")
}
