package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appmodels "scholarops/internal/application/models"
	"scholarops/internal/interview/lock"
	ivmetrics "scholarops/internal/interview/metrics"
	"scholarops/internal/interview/models"
	"scholarops/internal/notification"
	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
	"scholarops/pkg/platform/audit"
	"scholarops/pkg/platform/tx"
)

// SlotStore persists interview slots. Execute holds the slot's lock across
// validate and mutate.
type SlotStore interface {
	Create(ctx context.Context, slot *models.Slot) error
	FindByID(ctx context.Context, slotID id.SlotID) (*models.Slot, error)
	FindScheduledByApplication(ctx context.Context, appID id.ApplicationID) (*models.Slot, error)
	ListByInterviewerDate(ctx context.Context, interviewerID id.InterviewerID, date time.Time) ([]*models.Slot, error)
	ListScheduled(ctx context.Context, interviewerID id.InterviewerID, date time.Time) ([]*models.Slot, error)
	Execute(ctx context.Context, slotID id.SlotID, validate func(*models.Slot) error, mutate func(*models.Slot)) (*models.Slot, error)
}

// InterviewerStore mirrors the staff directory.
type InterviewerStore interface {
	Upsert(ctx context.Context, interviewer *models.Interviewer) (*models.Interviewer, error)
	FindByID(ctx context.Context, interviewerID id.InterviewerID) (*models.Interviewer, error)
}

// Lifecycle is the part of the application lifecycle the scheduler drives.
type Lifecycle interface {
	Get(ctx context.Context, appID id.ApplicationID) (*appmodels.Application, error)
	GetMany(ctx context.Context, ids []id.ApplicationID) (map[id.ApplicationID]*appmodels.Application, error)
	CheckSchedulable(ctx context.Context, appID id.ApplicationID) (*appmodels.Application, error)
	CheckReschedulable(ctx context.Context, appID id.ApplicationID) error
	ScheduleInterview(ctx context.Context, appID id.ApplicationID) (*appmodels.Application, error)
	CompleteInterview(ctx context.Context, appID id.ApplicationID, eval *appmodels.Evaluation) (*appmodels.Application, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Scheduler allocates, reschedules, cancels and completes interview slots.
// Conflict detection and slot creation for one interviewer day run under
// that day's lock and inside one unit of work.
type Scheduler struct {
	slots          SlotStore
	interviewers   InterviewerStore
	lifecycle      Lifecycle
	locker         lock.Locker
	tx             tx.Runner
	logger         *slog.Logger
	metrics        *ivmetrics.Metrics
	auditPublisher AuditPublisher
	notifier       notification.Notifier
	tracer         trace.Tracer
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithMetrics(m *ivmetrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Scheduler) {
		s.auditPublisher = publisher
	}
}

// WithTx sets the unit-of-work runner. It must be the runner the lifecycle
// uses so lifecycle calls join the scheduler's unit of work.
func WithTx(runner tx.Runner) Option {
	return func(s *Scheduler) {
		s.tx = runner
	}
}

// WithLocker replaces the default in-process calendar lock, e.g. with lock.Redis.
func WithLocker(locker lock.Locker) Option {
	return func(s *Scheduler) {
		s.locker = locker
	}
}

func WithNotifier(n notification.Notifier) Option {
	return func(s *Scheduler) {
		s.notifier = n
	}
}

// New constructs a Scheduler.
func New(slots SlotStore, interviewers InterviewerStore, lifecycle Lifecycle, opts ...Option) (*Scheduler, error) {
	if slots == nil {
		return nil, errors.New("slot store is required")
	}
	if interviewers == nil {
		return nil, errors.New("interviewer store is required")
	}
	if lifecycle == nil {
		return nil, errors.New("lifecycle is required")
	}
	s := &Scheduler{
		slots:        slots,
		interviewers: interviewers,
		lifecycle:    lifecycle,
		logger:       slog.Default(),
		notifier:     notification.Noop{},
		tracer:       otel.Tracer("scholarops/interview"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = lock.NewSharded()
	}
	if s.tx == nil {
		s.tx = tx.NewInMemoryRunner()
	}
	return s, nil
}

// ScheduleRequest books one interview.
type ScheduleRequest struct {
	ApplicationID   id.ApplicationID
	InterviewerID   id.InterviewerID
	Date            time.Time
	Start           models.ClockTime
	DurationMinutes int
	MeetingLink     string
}

func (r ScheduleRequest) spec() models.SlotSpec {
	return models.SlotSpec{
		ApplicationID:   r.ApplicationID,
		InterviewerID:   r.InterviewerID,
		Date:            r.Date,
		Start:           r.Start,
		DurationMinutes: r.DurationMinutes,
		MeetingLink:     r.MeetingLink,
	}
}

// BulkRequest books consecutive interviews for several applicants.
type BulkRequest struct {
	ApplicationIDs  []id.ApplicationID
	InterviewerID   id.InterviewerID
	Date            time.Time
	Start           models.ClockTime
	DurationMinutes int
	GapMinutes      int
	MeetingLink     string
}

// BulkFailure reports one application that could not be booked after the
// batch passed conflict validation.
type BulkFailure struct {
	ApplicationID id.ApplicationID `json:"application_id"`
	Code          string           `json:"code"`
	Message       string           `json:"message"`
}

// BulkResult lists outcomes in input order.
type BulkResult struct {
	Scheduled []*models.Slot
	Failed    []BulkFailure
}

// BulkPlan is a dry run: the packed slots in pending status plus any
// conflicts with existing bookings.
type BulkPlan struct {
	Slots     []*models.Slot
	Conflicts []models.Conflict
}

// RescheduleRequest moves an interview. A zero InterviewerID keeps the
// current interviewer and a zero DurationMinutes keeps the current length.
type RescheduleRequest struct {
	InterviewerID   id.InterviewerID
	Date            time.Time
	Start           models.ClockTime
	DurationMinutes int
	MeetingLink     string
}

// startOp opens the span for a public operation.
func (s *Scheduler) startOp(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	ctx, span := s.tracer.Start(ctx, "scheduler."+op, trace.WithAttributes(attrs...))
	return ctx, span, time.Now()
}

func (s *Scheduler) endOp(span trace.Span, op string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, start)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
	}
	span.End()
}

func (s *Scheduler) lock(ctx context.Context, keys ...string) (func(), error) {
	start := time.Now()
	release, err := s.locker.Lock(ctx, keys...)
	if s.metrics != nil {
		s.metrics.ObserveLockWait(start)
	}
	return release, err
}
