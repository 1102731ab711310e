package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nav-in27/timetable-generator/internal/models"
)

const assignmentColumns = "id, cohort_id, subject_id, component, teacher_id, created_at"

// AssignmentRepository provides persistence for the locked teacher
// mapping per (cohort, subject, component).
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListAll returns every assignment row.
func (r *AssignmentRepository) ListAll(ctx context.Context) ([]models.ComponentAssignment, error) {
	query := fmt.Sprintf("SELECT %s FROM component_assignments ORDER BY cohort_id ASC, subject_id ASC, component ASC", assignmentColumns)
	var rows []models.ComponentAssignment
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return rows, nil
}

// ListByCohort returns a cohort's assignment rows.
func (r *AssignmentRepository) ListByCohort(ctx context.Context, cohortID string) ([]models.ComponentAssignment, error) {
	query := fmt.Sprintf("SELECT %s FROM component_assignments WHERE cohort_id = $1 ORDER BY subject_id ASC, component ASC", assignmentColumns)
	var rows []models.ComponentAssignment
	if err := r.db.SelectContext(ctx, &rows, query, cohortID); err != nil {
		return nil, fmt.Errorf("list assignments by cohort: %w", err)
	}
	return rows, nil
}

// ReplaceByCohortsWithTx swaps the targeted cohorts' assignment rows
// inside the caller's transaction.
func (r *AssignmentRepository) ReplaceByCohortsWithTx(ctx context.Context, tx *sqlx.Tx, cohortIDs []string, rows []models.ComponentAssignment) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if len(cohortIDs) > 0 {
		query, args, err := sqlx.In("DELETE FROM component_assignments WHERE cohort_id IN (?)", cohortIDs)
		if err != nil {
			return fmt.Errorf("build assignment delete: %w", err)
		}
		query = tx.Rebind(query)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete assignments for cohorts: %w", err)
		}
	}

	now := time.Now().UTC()
	const query = `INSERT INTO component_assignments (id, cohort_id, subject_id, component, teacher_id, created_at)
		VALUES (:id, :cohort_id, :subject_id, :component, :teacher_id, :created_at)`
	for i := range rows {
		payload := rows[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, tx, query, &payload); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
		rows[i] = payload
	}
	return nil
}
