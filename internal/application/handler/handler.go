package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"scholarops/internal/application/models"
	"scholarops/internal/application/service"
	id "scholarops/pkg/domain"
	"scholarops/pkg/platform/httputil"
	"scholarops/pkg/requestcontext"
)

// Service defines the lifecycle operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, req service.CreateRequest) (*models.Application, error)
	Get(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	History(ctx context.Context, appID id.ApplicationID) ([]models.StatusChange, error)
	Submit(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	MarkDocumentsReviewed(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	Approve(ctx context.Context, appID id.ApplicationID, notes string, amount *decimal.Decimal) (*models.Application, error)
	Reject(ctx context.Context, appID id.ApplicationID, reason string) (*models.Application, error)
	Withdraw(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	Hold(ctx context.Context, appID id.ApplicationID, reason string) (*models.Application, error)
	Resume(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	RequestCompliance(ctx context.Context, appID id.ApplicationID, note string) (*models.Application, error)
	SubmitComplianceDocuments(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	ClearCompliance(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
}

// Handler wires application endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an application handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts application endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Get("/history", h.HandleHistory)
			r.Post("/submit", h.action("submit", h.service.Submit))
			r.Post("/review", h.action("review", h.service.MarkDocumentsReviewed))
			r.Post("/withdraw", h.action("withdraw", h.service.Withdraw))
			r.Post("/resume", h.action("resume", h.service.Resume))
			r.Post("/reject", h.HandleReject)
			r.Post("/approve", h.HandleApprove)
			r.Post("/hold", h.HandleHold)
			r.Post("/compliance", h.HandleRequestCompliance)
			r.Post("/compliance/submit", h.action("compliance_submit", h.service.SubmitComplianceDocuments))
			r.Post("/compliance/clear", h.action("compliance_clear", h.service.ClearCompliance))
		})
	})
}

// HandleCreate handles POST /applications.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateApplicationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	app, err := h.service.Create(ctx, service.CreateRequest{
		StudentRef:      req.StudentRef,
		SchoolRef:       req.SchoolRef,
		CategoryRef:     req.CategoryRef,
		SubcategoryRef:  req.SubcategoryRef,
		RequestedAmount: req.RequestedAmount,
	})
	if err != nil {
		h.fail(ctx, w, "create", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, app)
}

// HandleGet handles GET /applications/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	app, err := h.service.Get(ctx, appID)
	if err != nil {
		h.fail(ctx, w, "get", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// HandleHistory handles GET /applications/{id}/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	changes, err := h.service.History(ctx, appID)
	if err != nil {
		h.fail(ctx, w, "history", err)
		return
	}
	if changes == nil {
		changes = []models.StatusChange{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": changes})
}

// HandleReject handles POST /applications/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.respond(ctx, w, "reject", func() (*models.Application, error) {
		return h.service.Reject(ctx, appID, req.Reason)
	})
}

// HandleApprove handles POST /applications/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ApproveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.respond(ctx, w, "approve", func() (*models.Application, error) {
		return h.service.Approve(ctx, appID, req.Notes, req.ApprovedAmount)
	})
}

// HandleHold handles POST /applications/{id}/hold.
func (h *Handler) HandleHold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.respond(ctx, w, "hold", func() (*models.Application, error) {
		return h.service.Hold(ctx, appID, req.Reason)
	})
}

// HandleRequestCompliance handles POST /applications/{id}/compliance.
func (h *Handler) HandleRequestCompliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ComplianceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.respond(ctx, w, "request_compliance", func() (*models.Application, error) {
		return h.service.RequestCompliance(ctx, appID, req.Note)
	})
}

// action adapts a body-less transition to an HTTP handler.
func (h *Handler) action(name string, op func(context.Context, id.ApplicationID) (*models.Application, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		h.respond(ctx, w, name, func() (*models.Application, error) {
			return op(ctx, appID)
		})
	}
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, name string, op func() (*models.Application, error)) {
	start := time.Now()
	app, err := op()
	if err != nil {
		h.fail(ctx, w, name, err)
		return
	}
	h.logger.InfoContext(ctx, "application transition applied",
		"request_id", requestcontext.RequestID(ctx),
		"operation", name,
		"application_id", app.ID,
		"status", app.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, name string, err error) {
	h.logger.WarnContext(ctx, "application operation failed",
		"request_id", requestcontext.RequestID(ctx),
		"operation", name,
		"error", err,
	)
	httputil.WriteError(w, err)
}
