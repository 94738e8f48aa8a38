package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	appmodels "scholarops/internal/application/models"
	endmetrics "scholarops/internal/endorsement/metrics"
	"scholarops/internal/endorsement/models"
	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
	"scholarops/pkg/requestcontext"
)

// DefaultConcurrency bounds how many endorsements of one batch run at once.
const DefaultConcurrency = 4

// Lifecycle is the part of the application lifecycle bulk endorsement reads
// and drives.
type Lifecycle interface {
	GetMany(ctx context.Context, ids []id.ApplicationID) (map[id.ApplicationID]*appmodels.Application, error)
	LatestEvaluations(ctx context.Context, ids []id.ApplicationID) (map[id.ApplicationID]*appmodels.Evaluation, error)
	Endorse(ctx context.Context, appID id.ApplicationID, notes string) (*appmodels.Application, error)
}

// Processor forwards completed-interview applications to the selection
// committee in batches. Each item is endorsed in its own unit of work; one
// failing item never aborts the batch.
type Processor struct {
	lifecycle   Lifecycle
	logger      *slog.Logger
	metrics     *endmetrics.Metrics
	concurrency int
	tracer      trace.Tracer
}

type Option func(*Processor)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

func WithMetrics(m *endmetrics.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithConcurrency sets the per-batch worker limit. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func New(lifecycle Lifecycle, opts ...Option) (*Processor, error) {
	if lifecycle == nil {
		return nil, errors.New("lifecycle is required")
	}
	p := &Processor{
		lifecycle:   lifecycle,
		concurrency: DefaultConcurrency,
		tracer:      otel.Tracer("scholarops/endorsement"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// BulkEndorse endorses the applications whose interview recommendation passes
// mode. Items that do not pass are reported skipped with not_recommended.
// Results are returned in input order.
func (p *Processor) BulkEndorse(ctx context.Context, ids []id.ApplicationID, mode models.FilterMode, notes string) (*models.Result, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "endorsement.bulk_endorse",
		trace.WithAttributes(
			attribute.Int("batch.size", len(ids)),
			attribute.String("filter_mode", string(mode)),
		))
	defer span.End()

	if err := validateBatch(ids, mode); err != nil {
		return nil, err
	}

	apps, err := p.lifecycle.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	evals, err := p.lifecycle.LatestEvaluations(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.ItemResult, len(ids))
	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for i, appID := range ids {
		g.Go(func() error {
			items[i] = p.endorseOne(ctx, appID, apps[appID], evals[appID], mode, notes)
			return nil
		})
	}
	_ = g.Wait()

	result := models.NewResult(items)
	for _, item := range items {
		if p.metrics != nil {
			p.metrics.IncrementItem(string(item.Outcome))
		}
	}
	if p.metrics != nil {
		p.metrics.ObserveBatch(len(ids), start)
	}
	span.SetAttributes(attribute.Int("batch.endorsed", result.EndorsedCount))
	p.logAudit(ctx, "bulk_endorsement_processed",
		"filter_mode", mode,
		"total", result.TotalProcessed,
		"endorsed", result.EndorsedCount,
		"skipped", result.SkippedCount,
		"failed", result.FailedCount,
	)
	return result, nil
}

func (p *Processor) endorseOne(ctx context.Context, appID id.ApplicationID, app *appmodels.Application, eval *appmodels.Evaluation, mode models.FilterMode, notes string) models.ItemResult {
	item := models.ItemResult{ApplicationID: appID}
	if err := ctx.Err(); err != nil {
		return failed(item, dErrors.Wrap(err, dErrors.CodeTimeout, "batch cancelled before item was processed"))
	}
	if app == nil {
		return failed(item, dErrors.New(dErrors.CodeNotFound, "application not found"))
	}
	item.Status = string(app.Status)

	if mode != models.FilterAll {
		if eval == nil {
			return failed(item, dErrors.New(dErrors.CodeInvalidState, "no interview evaluation recorded"))
		}
		if !mode.Accepts(eval.Recommendation) {
			item.Outcome = models.OutcomeSkipped
			item.Code = string(dErrors.CodeNotRecommended)
			item.Message = "recommendation " + string(eval.Recommendation) + " does not match filter " + string(mode)
			return item
		}
	}

	updated, err := p.lifecycle.Endorse(ctx, appID, notes)
	if err != nil {
		return failed(item, err)
	}
	item.Outcome = models.OutcomeEndorsed
	item.Status = string(updated.Status)
	return item
}

func failed(item models.ItemResult, err error) models.ItemResult {
	item.Outcome = models.OutcomeFailed
	code, ok := dErrors.CodeOf(err)
	if !ok || code == dErrors.CodeInternal {
		item.Code = string(dErrors.CodeInternal)
		item.Message = "internal error"
		return item
	}
	item.Code = string(code)
	item.Message = dErrors.MessageOf(err)
	return item
}

func validateBatch(ids []id.ApplicationID, mode models.FilterMode) error {
	if _, err := models.ParseFilterMode(string(mode)); err != nil {
		return err
	}
	if len(ids) == 0 {
		return dErrors.New(dErrors.CodeValidation, "application_ids must not be empty")
	}
	seen := make(map[id.ApplicationID]struct{}, len(ids))
	for _, appID := range ids {
		if appID.IsNil() {
			return dErrors.New(dErrors.CodeInvalidInput, "application_ids cannot contain a nil id")
		}
		if _, dup := seen[appID]; dup {
			return dErrors.New(dErrors.CodeValidation, "duplicate application id "+appID.String())
		}
		seen[appID] = struct{}{}
	}
	return nil
}

func (p *Processor) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if actor := requestcontext.ActorID(ctx); actor != "" {
		attributes = append(attributes, "actor_id", actor)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if p.logger != nil {
		p.logger.InfoContext(ctx, event, args...)
	}
}
