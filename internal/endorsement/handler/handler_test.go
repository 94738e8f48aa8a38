package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarops/internal/endorsement/models"
	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
)

type stubService struct {
	ids   []id.ApplicationID
	mode  models.FilterMode
	notes string
	err   error
}

func (s *stubService) BulkEndorse(_ context.Context, ids []id.ApplicationID, mode models.FilterMode, notes string) (*models.Result, error) {
	s.ids, s.mode, s.notes = ids, mode, notes
	if s.err != nil {
		return nil, s.err
	}
	items := make([]models.ItemResult, len(ids))
	for i, appID := range ids {
		items[i] = models.ItemResult{ApplicationID: appID, Outcome: models.OutcomeEndorsed, Status: "endorsed_to_ssc"}
	}
	return models.NewResult(items), nil
}

func post(t *testing.T, svc Service, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)

	req := httptest.NewRequest(http.MethodPost, "/endorsements/bulk", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func TestHandleBulkEndorse(t *testing.T) {
	first, second := uuid.NewString(), uuid.NewString()

	t.Run("returns per-item results", func(t *testing.T) {
		svc := &stubService{}
		rec, body := post(t, svc, `{"application_ids":["`+first+`","`+second+`"],"filter_mode":" Ready ","notes":" session 4 "}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.FilterReady, svc.mode)
		assert.Equal(t, "session 4", svc.notes)
		require.Len(t, svc.ids, 2)
		assert.Equal(t, first, svc.ids[0].String())

		assert.EqualValues(t, 2, body["endorsed_count"])
		assert.EqualValues(t, 2, body["total_processed"])
		items := body["items"].([]any)
		assert.Equal(t, second, items[1].(map[string]any)["application_id"])
	})

	t.Run("unknown filter mode", func(t *testing.T) {
		rec, body := post(t, &stubService{}, `{"application_ids":["`+first+`"],"filter_mode":"top"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_error", body["error"])
	})

	t.Run("empty batch", func(t *testing.T) {
		rec, body := post(t, &stubService{}, `{"application_ids":[],"filter_mode":"all"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_error", body["error"])
	})

	t.Run("malformed id", func(t *testing.T) {
		rec, body := post(t, &stubService{}, `{"application_ids":["nope"],"filter_mode":"all"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", body["error"])
	})

	t.Run("service error", func(t *testing.T) {
		svc := &stubService{err: dErrors.New(dErrors.CodeValidation, "duplicate application id")}
		rec, body := post(t, svc, `{"application_ids":["`+first+`","`+first+`"],"filter_mode":"all"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "duplicate application id", body["error_description"])
	})
}
