//go:build integration

package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"scholarops/internal/app"
	"scholarops/internal/platform/config"
	auditpostgres "scholarops/pkg/platform/audit/store/postgres"
	"scholarops/pkg/testutil/containers"
)

type BackedAppSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	app      *app.App
}

func TestBackedAppSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(BackedAppSuite))
}

func (s *BackedAppSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	redis := mgr.GetRedis(s.T())
	redpanda := mgr.GetRedpanda(s.T())

	cfg := config.Config{
		Server: config.Server{
			LockTimeout:            2 * time.Second,
			EndorsementConcurrency: 4,
		},
		Database: config.DatabaseConfig{
			URL:             s.postgres.URL,
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Minute,
		},
		Redis: config.RedisConfig{
			URL:      redis.URL,
			PoolSize: 5,
			LeaseTTL: 10 * time.Second,
		},
		Kafka: config.KafkaConfig{
			Brokers:  []string{redpanda.Broker},
			Topic:    "notifications-" + uuid.NewString(),
			ClientID: "scholarops-it",
		},
	}
	a, err := app.Build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.app = a
}

func (s *BackedAppSuite) TearDownSuite() {
	if s.app != nil {
		s.NoError(s.app.Close(context.Background()))
	}
}

func (s *BackedAppSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background()))
}

func (s *BackedAppSuite) call(method, path string, body any) (int, map[string]any) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "officer-3")
	rec := httptest.NewRecorder()
	s.app.Router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec.Code, decoded
}

func (s *BackedAppSuite) reviewedApplication(studentRef string) string {
	code, body := s.call(http.MethodPost, "/applications", map[string]any{
		"student_ref":      studentRef,
		"requested_amount": "15000.50",
	})
	s.Require().Equal(http.StatusCreated, code)
	appID := body["id"].(string)
	for _, step := range []string{"submit", "review"} {
		code, _ = s.call(http.MethodPost, "/applications/"+appID+"/"+step, nil)
		s.Require().Equal(http.StatusOK, code, step)
	}
	return appID
}

func (s *BackedAppSuite) TestHealthReportsBackingServices() {
	code, body := s.call(http.MethodGet, "/health", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(map[string]any{"postgres": "ok", "redis": "ok"}, body["checks"])
}

func (s *BackedAppSuite) TestInterviewToEndorsement() {
	ivID := uuid.NewString()
	code, _ := s.call(http.MethodPut, "/interviewers/"+ivID, map[string]string{
		"display_name":      "Prof. Lim",
		"external_user_ref": "staff-lim",
	})
	s.Require().Equal(http.StatusOK, code)

	first := s.reviewedApplication("STU-100")
	second := s.reviewedApplication("STU-101")
	book := func(appID, start string) (int, map[string]any) {
		return s.call(http.MethodPost, "/interviews", map[string]any{
			"application_id":   appID,
			"interviewer_id":   ivID,
			"date":             "2030-07-01",
			"start_time":       start,
			"duration_minutes": 60,
		})
	}

	code, slot := book(first, "09:00")
	s.Require().Equal(http.StatusCreated, code)

	code, body := book(second, "09:15")
	s.Require().Equal(http.StatusConflict, code)
	s.Equal("scheduling_conflict", body["error"])

	code, moved := s.call(http.MethodPost, "/interviews/"+slot["id"].(string)+"/reschedule", map[string]any{
		"date":       "2030-07-01",
		"start_time": "14:00",
	})
	s.Require().Equal(http.StatusCreated, code)
	s.Equal("14:00", moved["start_time"])

	code, _ = book(second, "09:15")
	s.Require().Equal(http.StatusCreated, code, "the rescheduled window is free again")

	code, app := s.call(http.MethodPost, "/interviews/"+moved["id"].(string)+"/complete", map[string]any{
		"result": "attended",
		"evaluation": map[string]any{
			"academic_motivation":    5,
			"leadership":             4,
			"financial_need":         5,
			"character":              5,
			"overall_recommendation": "recommended",
			"remarks":                "clear goals",
		},
	})
	s.Require().Equal(http.StatusOK, code)
	s.Equal("interview_completed", app["status"])

	code, result := s.call(http.MethodPost, "/endorsements/bulk", map[string]any{
		"application_ids": []string{first, second},
		"filter_mode":     "ready",
	})
	s.Require().Equal(http.StatusOK, code)
	s.EqualValues(1, result["endorsed_count"])
	s.EqualValues(1, result["failed_count"], "second has no evaluation yet")

	code, history := s.call(http.MethodGet, "/applications/"+first+"/history", nil)
	s.Require().Equal(http.StatusOK, code)
	s.NotEmpty(history["history"])

	events, err := auditpostgres.New(s.postgres.DB).ListBySubject(context.Background(), first)
	s.Require().NoError(err)
	s.NotEmpty(events)
	for _, event := range events {
		s.Equal("officer-3", event.ActorID)
	}
}
