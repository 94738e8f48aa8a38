package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"scholarops/internal/application/models"
	id "scholarops/pkg/domain"
	"scholarops/pkg/platform/sentinel"
	txcontext "scholarops/pkg/platform/tx"
)

// PostgresEvaluations persists evaluations. slot_id is the primary key, so a
// second write for the same slot is rejected by the database.
type PostgresEvaluations struct {
	db *sql.DB
}

func NewPostgresEvaluations(db *sql.DB) *PostgresEvaluations {
	return &PostgresEvaluations{db: db}
}

func (s *PostgresEvaluations) execer(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresEvaluations) Create(ctx context.Context, eval *models.Evaluation) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO evaluations (
			slot_id, application_id, academic_motivation, leadership, financial_need,
			character_values, recommendation, remarks, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.UUID(eval.SlotID),
		uuid.UUID(eval.ApplicationID),
		eval.AcademicMotivation,
		eval.Leadership,
		eval.FinancialNeed,
		eval.Character,
		string(eval.Recommendation),
		eval.Remarks,
		eval.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

const evaluationColumns = `slot_id, application_id, academic_motivation, leadership, financial_need,
	character_values, recommendation, remarks, created_at`

func (s *PostgresEvaluations) FindBySlot(ctx context.Context, slotID id.SlotID) (*models.Evaluation, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+evaluationColumns+` FROM evaluations WHERE slot_id = $1`, uuid.UUID(slotID))
	eval, err := scanEvaluation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find evaluation: %w", err)
	}
	return eval, nil
}

func (s *PostgresEvaluations) FindLatestByApplications(ctx context.Context, ids []id.ApplicationID) (map[id.ApplicationID]*models.Evaluation, error) {
	found := make(map[id.ApplicationID]*models.Evaluation, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT DISTINCT ON (application_id) `+evaluationColumns+`
		FROM evaluations
		WHERE application_id = ANY($1::uuid[])
		ORDER BY application_id, created_at DESC
	`, pq.Array(idStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		eval, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		found[eval.ApplicationID] = eval
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	return found, nil
}

func scanEvaluation(row rowScanner) (*models.Evaluation, error) {
	var (
		eval           models.Evaluation
		slotID, appID  uuid.UUID
		recommendation string
	)
	err := row.Scan(&slotID, &appID, &eval.AcademicMotivation, &eval.Leadership, &eval.FinancialNeed,
		&eval.Character, &recommendation, &eval.Remarks, &eval.CreatedAt)
	if err != nil {
		return nil, err
	}
	eval.SlotID = id.SlotID(slotID)
	eval.ApplicationID = id.ApplicationID(appID)
	eval.Recommendation = models.Recommendation(recommendation)
	return &eval, nil
}
