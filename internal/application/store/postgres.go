package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"scholarops/internal/application/models"
	id "scholarops/pkg/domain"
	"scholarops/pkg/platform/sentinel"
	txcontext "scholarops/pkg/platform/tx"
	"scholarops/pkg/requestcontext"
)

const pgUniqueViolation = "23505"

// PostgresStore persists applications and their status history in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed application store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const applicationColumns = `
	id, status, resume_status, student_ref, school_ref, category_ref, subcategory_ref,
	requested_amount, approved_amount, submitted_at, reviewed_at, endorsed_at, decided_at,
	rejection_reason, hold_reason, compliance_note, endorsement_notes, decision_notes,
	version, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	query := `INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := s.execer(ctx).ExecContext(ctx, query, applicationArgs(app)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	app, err := scanApplication(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return app, nil
}

func (s *PostgresStore) FindByIDs(ctx context.Context, ids []id.ApplicationID) (map[id.ApplicationID]*models.Application, error) {
	found := make(map[id.ApplicationID]*models.Application, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = ANY($1::uuid[])`
	rows, err := s.execer(ctx).QueryContext(ctx, query, pq.Array(idStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("find applications: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		found[app.ID] = app
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return found, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate and mutate,
// then writes the row and any recorded transitions in the same transaction.
// It joins the caller's transaction when one is in context.
func (s *PostgresStore) Execute(ctx context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	if tx, ok := txcontext.From(ctx); ok {
		return s.execute(ctx, tx, appID, validate, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	app, err := s.execute(ctx, tx, appID, validate, mutate)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return app, nil
}

func (s *PostgresStore) execute(ctx context.Context, tx *sql.Tx, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 FOR UPDATE`
	app, err := scanApplication(tx.QueryRowContext(ctx, query, uuid.UUID(appID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock application: %w", err)
	}

	if err := validate(app); err != nil {
		return nil, err
	}
	mutate(app)
	changes := app.DrainChanges()
	app.Version++

	update := `
		UPDATE applications SET
			status = $2, resume_status = $3, approved_amount = $4,
			submitted_at = $5, reviewed_at = $6, endorsed_at = $7, decided_at = $8,
			rejection_reason = $9, hold_reason = $10, compliance_note = $11,
			endorsement_notes = $12, decision_notes = $13, version = $14, updated_at = $15
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, update,
		uuid.UUID(app.ID),
		string(app.Status),
		string(app.ResumeStatus),
		nullDecimal(app.ApprovedAmount),
		app.SubmittedAt,
		app.ReviewedAt,
		app.EndorsedAt,
		app.DecidedAt,
		app.RejectionReason,
		app.HoldReason,
		app.ComplianceNote,
		app.EndorsementNotes,
		app.DecisionNotes,
		app.Version,
		app.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	actor := requestcontext.ActorID(ctx)
	for _, change := range changes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO application_status_history (application_id, from_status, to_status, reason, actor_id, changed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.UUID(change.ApplicationID), string(change.From), string(change.To), change.Reason, actor, change.ChangedAt)
		if err != nil {
			return nil, fmt.Errorf("insert status history: %w", err)
		}
	}
	return app, nil
}

func (s *PostgresStore) History(ctx context.Context, appID id.ApplicationID) ([]models.StatusChange, error) {
	if _, err := s.FindByID(ctx, appID); err != nil {
		return nil, err
	}
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT application_id, from_status, to_status, reason, actor_id, changed_at
		FROM application_status_history
		WHERE application_id = $1
		ORDER BY seq ASC
	`, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()

	var changes []models.StatusChange
	for rows.Next() {
		var (
			c        models.StatusChange
			appUUID  uuid.UUID
			from, to string
		)
		if err := rows.Scan(&appUUID, &from, &to, &c.Reason, &c.ActorID, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		c.ApplicationID = id.ApplicationID(appUUID)
		c.From = models.Status(from)
		c.To = models.Status(to)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}
	return changes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app            models.Application
		appUUID        uuid.UUID
		status, resume string
		approved       decimal.NullDecimal
	)
	err := row.Scan(
		&appUUID, &status, &resume,
		&app.StudentRef, &app.SchoolRef, &app.CategoryRef, &app.SubcategoryRef,
		&app.RequestedAmount, &approved,
		&app.SubmittedAt, &app.ReviewedAt, &app.EndorsedAt, &app.DecidedAt,
		&app.RejectionReason, &app.HoldReason, &app.ComplianceNote,
		&app.EndorsementNotes, &app.DecisionNotes,
		&app.Version, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.ID = id.ApplicationID(appUUID)
	app.Status = models.Status(status)
	app.ResumeStatus = models.Status(resume)
	if approved.Valid {
		d := approved.Decimal
		app.ApprovedAmount = &d
	}
	return &app, nil
}

func applicationArgs(app *models.Application) []any {
	return []any{
		uuid.UUID(app.ID),
		string(app.Status),
		string(app.ResumeStatus),
		app.StudentRef,
		app.SchoolRef,
		app.CategoryRef,
		app.SubcategoryRef,
		app.RequestedAmount,
		nullDecimal(app.ApprovedAmount),
		app.SubmittedAt,
		app.ReviewedAt,
		app.EndorsedAt,
		app.DecidedAt,
		app.RejectionReason,
		app.HoldReason,
		app.ComplianceNote,
		app.EndorsementNotes,
		app.DecisionNotes,
		app.Version,
		app.CreatedAt,
		app.UpdatedAt,
	}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func idStrings(ids []id.ApplicationID) []string {
	out := make([]string, len(ids))
	for i, appID := range ids {
		out[i] = appID.String()
	}
	return out
}
