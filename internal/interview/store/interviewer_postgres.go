package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"scholarops/internal/interview/models"
	id "scholarops/pkg/domain"
	"scholarops/pkg/platform/sentinel"
)

// PostgresInterviewers persists the staff directory mirror.
type PostgresInterviewers struct {
	db *sql.DB
}

func NewPostgresInterviewers(db *sql.DB) *PostgresInterviewers {
	return &PostgresInterviewers{db: db}
}

func (s *PostgresInterviewers) Upsert(ctx context.Context, interviewer *models.Interviewer) (*models.Interviewer, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO interviewers (id, display_name, external_user_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			external_user_ref = EXCLUDED.external_user_ref,
			updated_at = EXCLUDED.updated_at
		RETURNING id, display_name, external_user_ref, created_at, updated_at
	`, uuid.UUID(interviewer.ID), interviewer.DisplayName, interviewer.ExternalUserRef,
		interviewer.CreatedAt, interviewer.UpdatedAt)
	saved, err := scanInterviewer(row)
	if err != nil {
		return nil, fmt.Errorf("upsert interviewer: %w", err)
	}
	return saved, nil
}

func (s *PostgresInterviewers) FindByID(ctx context.Context, interviewerID id.InterviewerID) (*models.Interviewer, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, display_name, external_user_ref, created_at, updated_at
		FROM interviewers WHERE id = $1
	`, uuid.UUID(interviewerID))
	interviewer, err := scanInterviewer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find interviewer: %w", err)
	}
	return interviewer, nil
}

func scanInterviewer(row rowScanner) (*models.Interviewer, error) {
	var (
		interviewer models.Interviewer
		ivUUID      uuid.UUID
	)
	if err := row.Scan(&ivUUID, &interviewer.DisplayName, &interviewer.ExternalUserRef,
		&interviewer.CreatedAt, &interviewer.UpdatedAt); err != nil {
		return nil, err
	}
	interviewer.ID = id.InterviewerID(ivUUID)
	return &interviewer, nil
}
