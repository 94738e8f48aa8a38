package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "scholarops/pkg/domain-errors"
)

type conflictDetail struct{}

func (conflictDetail) Error() string { return "overlap" }
func (conflictDetail) ErrorDetails() map[string]any {
	return map[string]any{"conflicts": []string{"09:00-09:30"}}
}

type sampleRequest struct {
	Reason string `json:"reason"`
}

func (r *sampleRequest) Validate() error {
	if strings.TrimSpace(r.Reason) == "" {
		return dErrors.New(dErrors.CodeMissingReason, "reason is required")
	}
	return nil
}

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("invalid transition maps to conflict", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInvalidTransition, "cannot submit from submitted"))

		if w.Code != http.StatusConflict {
			t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
		}
	})

	t.Run("detail errors extend the body", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Wrap(conflictDetail{}, dErrors.CodeSchedulingConflict, "slot overlaps"))

		var body map[string]any
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if _, ok := body["conflicts"]; !ok {
			t.Fatalf("expected conflicts in body, got %v", body)
		}
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("runs validation", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"  "}`))

		_, ok := DecodeAndPrepare[sampleRequest](w, r, nil, r.Context(), "")
		if ok {
			t.Fatalf("expected validation failure")
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":`))

		_, ok := DecodeAndPrepare[sampleRequest](w, r, nil, r.Context(), "")
		if ok || w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for malformed json, got %d", w.Code)
		}
	})

	t.Run("returns decoded request", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"duplicate"}`))

		req, ok := DecodeAndPrepare[sampleRequest](w, r, nil, r.Context(), "")
		if !ok || req.Reason != "duplicate" {
			t.Fatalf("expected decoded request, got %+v", req)
		}
	})
}
