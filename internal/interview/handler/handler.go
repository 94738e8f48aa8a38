package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appmodels "scholarops/internal/application/models"
	"scholarops/internal/interview/models"
	"scholarops/internal/interview/service"
	id "scholarops/pkg/domain"
	"scholarops/pkg/platform/httputil"
	"scholarops/pkg/requestcontext"
)

// Service defines the scheduler operations exposed over HTTP.
type Service interface {
	Schedule(ctx context.Context, req service.ScheduleRequest) (*models.Slot, error)
	ScheduleBulk(ctx context.Context, req service.BulkRequest) (*service.BulkResult, error)
	PlanBulk(ctx context.Context, req service.BulkRequest) (*service.BulkPlan, error)
	Cancel(ctx context.Context, slotID id.SlotID, reason string) (*models.Slot, error)
	Complete(ctx context.Context, slotID id.SlotID, result string, eval *appmodels.Evaluation) (*appmodels.Application, error)
	Reschedule(ctx context.Context, slotID id.SlotID, req service.RescheduleRequest) (*models.Slot, error)
	GetSlot(ctx context.Context, slotID id.SlotID) (*models.Slot, error)
	Agenda(ctx context.Context, interviewerID id.InterviewerID, date time.Time) ([]*models.Slot, error)
	UpsertInterviewer(ctx context.Context, interviewerID id.InterviewerID, displayName, externalUserRef string) (*models.Interviewer, error)
}

// Handler wires interview and interviewer endpoints to the scheduler.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts interview endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/interviews", func(r chi.Router) {
		r.Post("/", h.HandleSchedule)
		r.Post("/bulk", h.HandleScheduleBulk)
		r.Post("/bulk/preview", h.HandlePlanBulk)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetSlot)
			r.Post("/cancel", h.HandleCancel)
			r.Post("/complete", h.HandleComplete)
			r.Post("/reschedule", h.HandleReschedule)
		})
	})
	r.Route("/interviewers/{id}", func(r chi.Router) {
		r.Put("/", h.HandleUpsertInterviewer)
		r.Get("/agenda", h.HandleAgenda)
	})
}

// HandleSchedule handles POST /interviews.
func (h *Handler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ScheduleInterviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	slot, err := h.service.Schedule(ctx, req.toService())
	if err != nil {
		h.fail(ctx, w, "schedule", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, slot.View())
}

// HandleScheduleBulk handles POST /interviews/bulk. A batch that passed
// conflict validation answers 200 even when some items failed.
func (h *Handler) HandleScheduleBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[BulkScheduleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	start := time.Now()
	result, err := h.service.ScheduleBulk(ctx, req.toService())
	if err != nil {
		h.fail(ctx, w, "schedule_bulk", err)
		return
	}
	h.logger.InfoContext(ctx, "bulk scheduling finished",
		"request_id", requestcontext.RequestID(ctx),
		"interviewer_id", req.InterviewerID,
		"scheduled", len(result.Scheduled),
		"failed", len(result.Failed),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"scheduled": views(result.Scheduled),
		"failed":    result.Failed,
	})
}

// HandlePlanBulk handles POST /interviews/bulk/preview.
func (h *Handler) HandlePlanBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[BulkScheduleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	plan, err := h.service.PlanBulk(ctx, req.toService())
	if err != nil {
		h.fail(ctx, w, "plan_bulk", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"slots":     views(plan.Slots),
		"conflicts": plan.Conflicts,
	})
}

// HandleGetSlot handles GET /interviews/{id}.
func (h *Handler) HandleGetSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slotID, err := id.ParseSlotID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	slot, err := h.service.GetSlot(ctx, slotID)
	if err != nil {
		h.fail(ctx, w, "get_slot", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, slot.View())
}

// HandleCancel handles POST /interviews/{id}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slotID, err := id.ParseSlotID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CancelInterviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	slot, err := h.service.Cancel(ctx, slotID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "cancel", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, slot.View())
}

// HandleComplete handles POST /interviews/{id}/complete and returns the application.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slotID, err := id.ParseSlotID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CompleteInterviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	app, err := h.service.Complete(ctx, slotID, req.Result, req.toEvaluation())
	if err != nil {
		h.fail(ctx, w, "complete", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// HandleReschedule handles POST /interviews/{id}/reschedule and returns the new slot.
func (h *Handler) HandleReschedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slotID, err := id.ParseSlotID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RescheduleInterviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	slot, err := h.service.Reschedule(ctx, slotID, req.toService())
	if err != nil {
		h.fail(ctx, w, "reschedule", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, slot.View())
}

// HandleUpsertInterviewer handles PUT /interviewers/{id}.
func (h *Handler) HandleUpsertInterviewer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	interviewerID, err := id.ParseInterviewerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpsertInterviewerRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	interviewer, err := h.service.UpsertInterviewer(ctx, interviewerID, req.DisplayName, req.ExternalUserRef)
	if err != nil {
		h.fail(ctx, w, "upsert_interviewer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, interviewer)
}

// HandleAgenda handles GET /interviewers/{id}/agenda?date=YYYY-MM-DD.
func (h *Handler) HandleAgenda(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	interviewerID, err := id.ParseInterviewerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	date, err := models.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	slots, err := h.service.Agenda(ctx, interviewerID, date)
	if err != nil {
		h.fail(ctx, w, "agenda", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"interviewer_id": interviewerID,
		"date":           date.Format(models.DateLayout),
		"slots":          views(slots),
	})
}

func views(slots []*models.Slot) []models.SlotView {
	out := make([]models.SlotView, len(slots))
	for i, slot := range slots {
		out[i] = slot.View()
	}
	return out
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, name string, err error) {
	h.logger.WarnContext(ctx, "interview operation failed",
		"request_id", requestcontext.RequestID(ctx),
		"operation", name,
		"error", err,
	)
	httputil.WriteError(w, err)
}
