package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appmetrics "scholarops/internal/application/metrics"
	"scholarops/internal/application/models"
	"scholarops/internal/notification"
	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
	"scholarops/pkg/platform/audit"
	"scholarops/pkg/platform/sentinel"
	"scholarops/pkg/platform/tx"
	"scholarops/pkg/requestcontext"
)

// Store persists applications. Execute holds the application's lock (mutex or
// FOR UPDATE) across validate and mutate.
type Store interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	FindByIDs(ctx context.Context, ids []id.ApplicationID) (map[id.ApplicationID]*models.Application, error)
	Execute(ctx context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error)
	History(ctx context.Context, appID id.ApplicationID) ([]models.StatusChange, error)
}

// EvaluationStore persists interview evaluations.
type EvaluationStore interface {
	Create(ctx context.Context, eval *models.Evaluation) error
	FindBySlot(ctx context.Context, slotID id.SlotID) (*models.Evaluation, error)
	FindLatestByApplications(ctx context.Context, ids []id.ApplicationID) (map[id.ApplicationID]*models.Evaluation, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Lifecycle validates and applies status transitions for applications.
type Lifecycle struct {
	apps           Store
	evals          EvaluationStore
	tx             tx.Runner
	logger         *slog.Logger
	metrics        *appmetrics.Metrics
	auditPublisher AuditPublisher
	notifier       notification.Notifier
	tracer         trace.Tracer
}

type Option func(*Lifecycle)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Lifecycle) {
		l.logger = logger
	}
}

func WithMetrics(m *appmetrics.Metrics) Option {
	return func(l *Lifecycle) {
		l.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(l *Lifecycle) {
		l.auditPublisher = publisher
	}
}

// WithTx sets the unit-of-work runner. Defaults to an in-memory runner.
func WithTx(runner tx.Runner) Option {
	return func(l *Lifecycle) {
		l.tx = runner
	}
}

func WithNotifier(n notification.Notifier) Option {
	return func(l *Lifecycle) {
		l.notifier = n
	}
}

// New constructs a Lifecycle.
func New(apps Store, evals EvaluationStore, opts ...Option) (*Lifecycle, error) {
	if apps == nil {
		return nil, errors.New("application store is required")
	}
	if evals == nil {
		return nil, errors.New("evaluation store is required")
	}
	l := &Lifecycle{
		apps:     apps,
		evals:    evals,
		logger:   slog.Default(),
		notifier: notification.Noop{},
		tracer:   otel.Tracer("scholarops/application"),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.tx == nil {
		l.tx = tx.NewInMemoryRunner()
	}
	return l, nil
}

// CreateRequest is the intake boundary for externally created drafts.
type CreateRequest struct {
	StudentRef      string
	SchoolRef       string
	CategoryRef     string
	SubcategoryRef  string
	RequestedAmount decimal.Decimal
}

// Create registers a new draft application.
func (l *Lifecycle) Create(ctx context.Context, req CreateRequest) (*models.Application, error) {
	now := requestcontext.Now(ctx)
	app, err := models.NewDraft(id.NewApplicationID(), req.StudentRef, req.SchoolRef, req.CategoryRef, req.SubcategoryRef, req.RequestedAmount, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	err = l.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := l.apps.Create(txCtx, app); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "application already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
		}
		return l.emit(txCtx, audit.Event{
			Action:  string(audit.EventApplicationCreated),
			Subject: app.ID.String(),
			To:      string(app.Status),
		})
	})
	if err != nil {
		return nil, err
	}
	l.logAudit(ctx, string(audit.EventApplicationCreated), "application_id", app.ID)
	return app, nil
}

// Get returns one application.
func (l *Lifecycle) Get(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	app, err := l.apps.FindByID(ctx, appID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return app, nil
}

// GetMany returns the applications that exist among ids.
func (l *Lifecycle) GetMany(ctx context.Context, ids []id.ApplicationID) (map[id.ApplicationID]*models.Application, error) {
	apps, err := l.apps.FindByIDs(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load applications")
	}
	return apps, nil
}

// History returns the application's transitions, oldest first.
func (l *Lifecycle) History(ctx context.Context, appID id.ApplicationID) ([]models.StatusChange, error) {
	changes, err := l.apps.History(ctx, appID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return changes, nil
}

// LatestEvaluations returns the most recent evaluation per application.
func (l *Lifecycle) LatestEvaluations(ctx context.Context, ids []id.ApplicationID) (map[id.ApplicationID]*models.Evaluation, error) {
	evals, err := l.evals.FindLatestByApplications(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evaluations")
	}
	return evals, nil
}

func (l *Lifecycle) Submit(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	now := requestcontext.Now(ctx)
	return l.transition(ctx, "submit", appID,
		func(a *models.Application) error { return a.CanSubmit() },
		func(a *models.Application) { a.ApplySubmission(now) },
	)
}

func (l *Lifecycle) MarkDocumentsReviewed(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	now := requestcontext.Now(ctx)
	return l.transition(ctx, "mark_documents_reviewed", appID,
		func(a *models.Application) error { return a.CanMarkDocumentsReviewed() },
		func(a *models.Application) { a.ApplyDocumentsReviewed(now) },
	)
}

// CheckSchedulable runs the interview scheduling guard without mutating.
func (l *Lifecycle) CheckSchedulable(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	app, err := l.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := app.CanScheduleInterview(); err != nil {
		return nil, err
	}
	return app, nil
}

// CheckReschedulable verifies the application is still waiting on its interview.
func (l *Lifecycle) CheckReschedulable(ctx context.Context, appID id.ApplicationID) error {
	app, err := l.Get(ctx, appID)
	if err != nil {
		return err
	}
	return app.CanRescheduleInterview()
}

// ScheduleInterview moves documents_reviewed → interview_scheduled. The
// scheduler calls it inside its unit of work after the slot passes the
// conflict check.
func (l *Lifecycle) ScheduleInterview(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	now := requestcontext.Now(ctx)
	return l.transition(ctx, "schedule_interview", appID,
		func(a *models.Application) error { return a.CanScheduleInterview() },
		func(a *models.Application) { a.ApplyInterviewScheduled(now) },
	)
}

// CompleteInterview moves interview_scheduled → interview_completed and
// persists the evaluation in the same unit of work. The recommendation does
// not affect the status.
func (l *Lifecycle) CompleteInterview(ctx context.Context, appID id.ApplicationID, eval *models.Evaluation) (*models.Application, error) {
	if eval == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "evaluation is required")
	}
	if err := eval.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var app *models.Application
	err := l.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := l.Get(txCtx, appID)
		if err != nil {
			return err
		}
		if err := current.CanCompleteInterview(); err != nil {
			return err
		}
		eval.ApplicationID = appID
		if eval.CreatedAt.IsZero() {
			eval.CreatedAt = now
		}
		if err := l.evals.Create(txCtx, eval); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "evaluation already recorded for slot")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save evaluation")
		}
		app, err = l.transition(txCtx, "complete_interview", appID,
			func(a *models.Application) error { return a.CanCompleteInterview() },
			func(a *models.Application) { a.ApplyInterviewCompleted(now) },
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (l *Lifecycle) Endorse(ctx context.Context, appID id.ApplicationID, notes string) (*models.Application, error) {
	now := requestcontext.Now(ctx)
	app, err := l.transition(ctx, "endorse", appID,
		func(a *models.Application) error { return a.CanEndorse() },
		func(a *models.Application) { a.ApplyEndorsement(notes, now) },
	)
	if err != nil {
		return nil, err
	}
	l.notify(ctx, notification.TypeApplicationEndorsed, app, "")
	return app, nil
}

// Approve moves endorsed_to_ssc → approved. A nil amount approves the full request.
func (l *Lifecycle) Approve(ctx context.Context, appID id.ApplicationID, notes string, amount *decimal.Decimal) (*models.Application, error) {
	now := requestcontext.Now(ctx)
	return l.transition(ctx, "approve", appID,
		func(a *models.Application) error { return a.CanApprove(amount) },
		func(a *models.Application) { a.ApplyApproval(notes, amount, now) },
	)
}

func (l *Lifecycle) Reject(ctx context.Context, appID id.ApplicationID, reason string) (*models.Application, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.New(dErrors.CodeMissingReason, "rejection reason is required")
	}
	now := requestcontext.Now(ctx)
	return l.transition(ctx, "reject", appID,
		func(a *models.Application) error { return a.CanReject(reason) },
		func(a *models.Application) { a.ApplyRejection(reason, now) },
	)
}

func (l *Lifecycle) Withdraw(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	now := requestcontext.Now(ctx)
	return l.transition(ctx, "withdraw", appID,
		func(a *models.Application) error { return a.CanWithdraw() },
		func(a *models.Application) { a.ApplyWithdrawal(now) },
	)
}

func (l *Lifecycle) Hold(ctx context.Context, appID id.ApplicationID, reason string) (*models.Application, error) {
	now := requestcontext.Now(ctx)
	return l.transition(ctx, "hold", appID,
		func(a *models.Application) error { return a.CanHold(reason) },
		func(a *models.Application) { a.ApplyHold(reason, now) },
	)
}

func (l *Lifecycle) Resume(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	now := requestcontext.Now(ctx)
	return l.transition(ctx, "resume", appID,
		func(a *models.Application) error { return a.CanResume() },
		func(a *models.Application) { a.ApplyResume(now) },
	)
}

func (l *Lifecycle) RequestCompliance(ctx context.Context, appID id.ApplicationID, note string) (*models.Application, error) {
	now := requestcontext.Now(ctx)
	return l.transition(ctx, "request_compliance", appID,
		func(a *models.Application) error { return a.CanRequestCompliance(note) },
		func(a *models.Application) { a.ApplyComplianceRequest(note, now) },
	)
}

func (l *Lifecycle) SubmitComplianceDocuments(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	now := requestcontext.Now(ctx)
	return l.transition(ctx, "submit_compliance_documents", appID,
		func(a *models.Application) error { return a.CanSubmitComplianceDocuments() },
		func(a *models.Application) { a.ApplyComplianceDocumentsSubmitted(now) },
	)
}

func (l *Lifecycle) ClearCompliance(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	now := requestcontext.Now(ctx)
	return l.transition(ctx, "clear_compliance", appID,
		func(a *models.Application) error { return a.CanClearCompliance() },
		func(a *models.Application) { a.ApplyComplianceCleared(now) },
	)
}

// transition runs one guard-then-mutate step under the application's lock and
// emits the audit event in the same unit of work.
func (l *Lifecycle) transition(ctx context.Context, op string, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	ctx, span := l.tracer.Start(ctx, "lifecycle."+op,
		trace.WithAttributes(attribute.String("application_id", appID.String())))
	defer span.End()
	start := time.Now()

	var (
		app  *models.Application
		from models.Status
	)
	err := l.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := l.apps.Execute(txCtx, appID,
			func(a *models.Application) error {
				from = a.Status
				return validate(a)
			},
			mutate,
		)
		if err != nil {
			return translateStoreErr(err)
		}
		if err := l.emit(txCtx, audit.Event{
			Action:  string(auditActionFor(a.Status)),
			Subject: a.ID.String(),
			From:    string(from),
			To:      string(a.Status),
			Reason:  transitionReason(a),
		}); err != nil {
			return err
		}
		app = a
		return nil
	})
	l.observe(op, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		l.incrementRefused(op, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("status.from", string(from)), attribute.String("status.to", string(app.Status)))
	// A caller's enclosing unit of work may still fail; report only once it commits.
	tx.AfterCommit(ctx, func() {
		l.incrementTransition(app.Status)
		l.logAudit(ctx, string(auditActionFor(app.Status)),
			"application_id", app.ID,
			"from", from,
			"to", app.Status,
		)
	})
	if app.Status != models.StatusEndorsedToSSC {
		l.notify(ctx, notification.TypeApplicationStatusChanged, app, transitionReason(app))
	}
	return app, nil
}

func auditActionFor(to models.Status) audit.AuditEvent {
	switch to {
	case models.StatusEndorsedToSSC:
		return audit.EventApplicationEndorsed
	case models.StatusApproved:
		return audit.EventApplicationApproved
	case models.StatusRejected:
		return audit.EventApplicationRejected
	default:
		return audit.EventApplicationTransition
	}
}

func transitionReason(a *models.Application) string {
	switch a.Status {
	case models.StatusRejected:
		return a.RejectionReason
	case models.StatusOnHold:
		return a.HoldReason
	case models.StatusForCompliance:
		return a.ComplianceNote
	}
	return ""
}

// translateStoreErr maps store sentinels to domain errors and passes domain errors through.
func translateStoreErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	if _, ok := dErrors.CodeOf(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "application store failure")
}

func (l *Lifecycle) emit(ctx context.Context, event audit.Event) error {
	if l.auditPublisher == nil {
		return nil
	}
	if err := l.auditPublisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

// notify sends once the enclosing unit of work, if any, has committed.
func (l *Lifecycle) notify(ctx context.Context, typ notification.Type, app *models.Application, reason string) {
	event := notification.Event{
		Type:          typ,
		ApplicationID: app.ID.String(),
		Status:        string(app.Status),
		Reason:        reason,
		RequestID:     requestcontext.RequestID(ctx),
		OccurredAt:    app.UpdatedAt,
	}
	tx.AfterCommit(ctx, func() {
		l.notifier.Notify(ctx, event)
	})
}

func (l *Lifecycle) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if actor := requestcontext.ActorID(ctx); actor != "" {
		attributes = append(attributes, "actor_id", actor)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if l.logger != nil {
		l.logger.InfoContext(ctx, event, args...)
	}
}

func (l *Lifecycle) observe(op string, start time.Time) {
	if l.metrics != nil {
		l.metrics.ObserveOperation(op, start)
	}
}

func (l *Lifecycle) incrementTransition(to models.Status) {
	if l.metrics != nil {
		l.metrics.IncrementTransition(string(to))
	}
}

func (l *Lifecycle) incrementRefused(op string, err error) {
	if l.metrics == nil {
		return
	}
	code, ok := dErrors.CodeOf(err)
	if !ok {
		code = dErrors.CodeInternal
	}
	l.metrics.IncrementRefused(op, string(code))
}
