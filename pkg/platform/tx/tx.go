// Package tx carries a unit of work through context so stores can join it.
//
// Services call Runner.RunInTx; Postgres stores pick the *sql.Tx out of the
// context with From and fall back to the pool when none is present.
// Side effects that must not escape a failed unit of work (notifications,
// success metrics) are registered with AfterCommit. In-memory stores register
// undo steps with OnRollback.
package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "scholarops/pkg/domain-errors"
)

type ctxKey struct{}

var txKey = ctxKey{}

// DefaultTimeout bounds a unit of work when the caller supplied no deadline.
const DefaultTimeout = 5 * time.Second

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

type hooksKey struct{}

// hooks collects the callbacks registered during one outermost unit of work.
type hooks struct {
	mu          sync.Mutex
	afterCommit []func()
	onRollback  []func()
}

// AfterCommit runs fn once the outermost unit of work in ctx has committed,
// and never if it fails. Outside a unit of work fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	h, ok := ctx.Value(hooksKey{}).(*hooks)
	if !ok {
		fn()
		return
	}
	h.mu.Lock()
	h.afterCommit = append(h.afterCommit, fn)
	h.mu.Unlock()
}

// OnRollback registers an undo step for state written outside a database
// transaction. Steps run newest first when the outermost unit of work fails.
// Outside a unit of work the write is final and fn is discarded.
func OnRollback(ctx context.Context, fn func()) {
	h, ok := ctx.Value(hooksKey{}).(*hooks)
	if !ok {
		return
	}
	h.mu.Lock()
	h.onRollback = append(h.onRollback, fn)
	h.mu.Unlock()
}

func withHooks(ctx context.Context) (context.Context, *hooks) {
	h := &hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

func (h *hooks) commit() {
	h.mu.Lock()
	fns := h.afterCommit
	h.afterCommit = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (h *hooks) rollback() {
	h.mu.Lock()
	fns := h.onRollback
	h.onRollback = nil
	h.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// Runner provides a transactional boundary for store mutations.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner runs fn inside a database transaction.
type SQLRunner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLRunner returns a Runner backed by db.
func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db, timeout: DefaultTimeout}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel, err := bound(ctx, r.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	// Nested calls join the outer transaction.
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	txCtx, h := withHooks(WithTx(ctx, sqlTx))
	if err := fn(txCtx); err != nil {
		h.rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		h.rollback()
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	h.commit()
	return nil
}

// InMemoryRunner serializes units of work with a single mutex. In-memory stores
// already lock per call; this lock makes a multi-store unit of work atomic,
// and the undo steps they register restore their state when it fails.
type InMemoryRunner struct {
	mu      sync.Mutex
	timeout time.Duration
}

func NewInMemoryRunner() *InMemoryRunner {
	return &InMemoryRunner{timeout: DefaultTimeout}
}

type inMemoryKey struct{}

func (r *InMemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel, err := bound(ctx, r.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	if ctx.Value(inMemoryKey{}) == r {
		return fn(ctx)
	}

	h, err := r.runLocked(ctx, fn)
	if err != nil {
		return err
	}
	h.commit()
	return nil
}

// runLocked runs fn under the runner's lock and undoes its writes on failure.
func (r *InMemoryRunner) runLocked(ctx context.Context, fn func(ctx context.Context) error) (*hooks, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	txCtx, h := withHooks(context.WithValue(ctx, inMemoryKey{}, r))
	if err := fn(txCtx); err != nil {
		h.rollback()
		return nil, err
	}
	return h, nil
}

func bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}
