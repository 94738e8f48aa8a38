package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"scholarops/internal/interview/models"
	id "scholarops/pkg/domain"
	"scholarops/pkg/platform/sentinel"
	txcontext "scholarops/pkg/platform/tx"
)

const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

// PostgresSlots persists interview slots. The schema's exclusion constraint
// rejects overlapping scheduled slots even if a caller skips the lock.
type PostgresSlots struct {
	db *sql.DB
}

func NewPostgresSlots(db *sql.DB) *PostgresSlots {
	return &PostgresSlots{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func execer(ctx context.Context, db *sql.DB) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

const slotColumns = `
	id, application_id, applicant_ref, interviewer_id, interview_date, start_minute,
	duration_minutes, status, meeting_link, result, cancel_reason, rescheduled_to,
	created_at, updated_at`

func (s *PostgresSlots) Create(ctx context.Context, slot *models.Slot) error {
	query := `INSERT INTO interview_slots (` + slotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(slot.ID),
		uuid.UUID(slot.ApplicationID),
		slot.ApplicantRef,
		uuid.UUID(slot.InterviewerID),
		slot.Date,
		int(slot.Start),
		slot.DurationMinutes,
		string(slot.Status),
		slot.MeetingLink,
		slot.Result,
		slot.CancelReason,
		nullSlotID(slot.RescheduledTo),
		slot.CreatedAt,
		slot.UpdatedAt,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert interview slot: %w", err)
	}
	return nil
}

func (s *PostgresSlots) FindByID(ctx context.Context, slotID id.SlotID) (*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM interview_slots WHERE id = $1`
	slot, err := scanSlot(execer(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(slotID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find interview slot: %w", err)
	}
	return slot, nil
}

func (s *PostgresSlots) FindScheduledByApplication(ctx context.Context, appID id.ApplicationID) (*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM interview_slots WHERE application_id = $1 AND status = 'scheduled'`
	slot, err := scanSlot(execer(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(appID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find scheduled slot: %w", err)
	}
	return slot, nil
}

func (s *PostgresSlots) ListByInterviewerDate(ctx context.Context, interviewerID id.InterviewerID, date time.Time) ([]*models.Slot, error) {
	return s.list(ctx, `SELECT `+slotColumns+` FROM interview_slots
		WHERE interviewer_id = $1 AND interview_date = $2
		ORDER BY start_minute ASC, created_at ASC`, interviewerID, date)
}

func (s *PostgresSlots) ListScheduled(ctx context.Context, interviewerID id.InterviewerID, date time.Time) ([]*models.Slot, error) {
	return s.list(ctx, `SELECT `+slotColumns+` FROM interview_slots
		WHERE interviewer_id = $1 AND interview_date = $2 AND status = 'scheduled'
		ORDER BY start_minute ASC, created_at ASC`, interviewerID, date)
}

func (s *PostgresSlots) list(ctx context.Context, query string, interviewerID id.InterviewerID, date time.Time) ([]*models.Slot, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, uuid.UUID(interviewerID), models.DateOf(date))
	if err != nil {
		return nil, fmt.Errorf("list interview slots: %w", err)
	}
	defer rows.Close()

	var slots []*models.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interview slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interview slots: %w", err)
	}
	return slots, nil
}

// Execute locks the slot row with SELECT ... FOR UPDATE for validate and
// mutate. It joins the caller's transaction when one is in context.
func (s *PostgresSlots) Execute(ctx context.Context, slotID id.SlotID, validate func(*models.Slot) error, mutate func(*models.Slot)) (*models.Slot, error) {
	if tx, ok := txcontext.From(ctx); ok {
		return s.execute(ctx, tx, slotID, validate, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	slot, err := s.execute(ctx, tx, slotID, validate, mutate)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return slot, nil
}

func (s *PostgresSlots) execute(ctx context.Context, tx *sql.Tx, slotID id.SlotID, validate func(*models.Slot) error, mutate func(*models.Slot)) (*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM interview_slots WHERE id = $1 FOR UPDATE`
	slot, err := scanSlot(tx.QueryRowContext(ctx, query, uuid.UUID(slotID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock interview slot: %w", err)
	}

	if err := validate(slot); err != nil {
		return nil, err
	}
	mutate(slot)

	_, err = tx.ExecContext(ctx, `
		UPDATE interview_slots SET
			status = $2, result = $3, cancel_reason = $4, rescheduled_to = $5, updated_at = $6
		WHERE id = $1
	`, uuid.UUID(slot.ID), string(slot.Status), slot.Result, slot.CancelReason, nullSlotID(slot.RescheduledTo), slot.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update interview slot: %w", err)
	}
	return slot, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*models.Slot, error) {
	var (
		slot                      models.Slot
		slotUUID, appUUID, ivUUID uuid.UUID
		startMinute               int
		status                    string
		rescheduledTo             uuid.NullUUID
	)
	err := row.Scan(
		&slotUUID, &appUUID, &slot.ApplicantRef, &ivUUID, &slot.Date, &startMinute,
		&slot.DurationMinutes, &status, &slot.MeetingLink, &slot.Result, &slot.CancelReason, &rescheduledTo,
		&slot.CreatedAt, &slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	slot.ID = id.SlotID(slotUUID)
	slot.ApplicationID = id.ApplicationID(appUUID)
	slot.InterviewerID = id.InterviewerID(ivUUID)
	slot.Date = models.DateOf(slot.Date)
	slot.Start = models.ClockTime(startMinute)
	slot.Status = models.SlotStatus(status)
	if rescheduledTo.Valid {
		next := id.SlotID(rescheduledTo.UUID)
		slot.RescheduledTo = &next
	}
	return &slot, nil
}

func nullSlotID(slotID *id.SlotID) uuid.NullUUID {
	if slotID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*slotID), Valid: true}
}

func isConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation || pgErr.Code == pgExclusionViolation
}
