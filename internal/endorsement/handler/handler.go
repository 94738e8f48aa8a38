package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"scholarops/internal/endorsement/models"
	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
	"scholarops/pkg/platform/httputil"
	"scholarops/pkg/requestcontext"
)

const maxBatch = 200

type Service interface {
	BulkEndorse(ctx context.Context, ids []id.ApplicationID, mode models.FilterMode, notes string) (*models.Result, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/endorsements/bulk", h.HandleBulkEndorse)
}

// BulkEndorseRequest forwards completed interviews to the selection committee.
type BulkEndorseRequest struct {
	ApplicationIDs []id.ApplicationID `json:"application_ids"`
	FilterMode     string             `json:"filter_mode"`
	Notes          string             `json:"notes"`

	mode models.FilterMode
}

func (r *BulkEndorseRequest) Validate() error {
	if len(r.ApplicationIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "application_ids must not be empty")
	}
	if len(r.ApplicationIDs) > maxBatch {
		return dErrors.New(dErrors.CodeValidation, "too many application_ids")
	}
	mode, err := models.ParseFilterMode(r.FilterMode)
	if err != nil {
		return err
	}
	r.mode = mode
	r.Notes = strings.TrimSpace(r.Notes)
	return nil
}

// HandleBulkEndorse handles POST /endorsements/bulk. Per-item failures are
// reported in the body with 200.
func (h *Handler) HandleBulkEndorse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[BulkEndorseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.service.BulkEndorse(ctx, req.ApplicationIDs, req.mode, req.Notes)
	if err != nil {
		h.logger.WarnContext(ctx, "bulk endorsement failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
