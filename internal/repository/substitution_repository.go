package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nav-in27/timetable-generator/internal/models"
)

const (
	absenceColumns      = "id, teacher_id, date, is_full_day, absent_periods, reason, created_at"
	substitutionColumns = "id, absence_id, allocation_id, date, original_teacher_id, substitute_teacher_id, score, status, note, created_at, updated_at"
)

// SubstitutionRepository provides persistence for teacher absences and
// substitution overlays.
type SubstitutionRepository struct {
	db *sqlx.DB
}

// NewSubstitutionRepository creates a new substitution repository.
func NewSubstitutionRepository(db *sqlx.DB) *SubstitutionRepository {
	return &SubstitutionRepository{db: db}
}

// CreateAbsence stores a teacher absence.
func (r *SubstitutionRepository) CreateAbsence(ctx context.Context, absence *models.TeacherAbsence) error {
	if absence.ID == "" {
		absence.ID = uuid.NewString()
	}
	if absence.CreatedAt.IsZero() {
		absence.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO teacher_absences (id, teacher_id, date, is_full_day, absent_periods, reason, created_at)
		VALUES (:id, :teacher_id, :date, :is_full_day, :absent_periods, :reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, absence); err != nil {
		return fmt.Errorf("create absence: %w", err)
	}
	return nil
}

// FindAbsence loads an absence by id.
func (r *SubstitutionRepository) FindAbsence(ctx context.Context, id string) (*models.TeacherAbsence, error) {
	query := fmt.Sprintf("SELECT %s FROM teacher_absences WHERE id = $1", absenceColumns)
	var absence models.TeacherAbsence
	if err := r.db.GetContext(ctx, &absence, query, id); err != nil {
		return nil, err
	}
	return &absence, nil
}

// ListAbsencesByDate returns all absences recorded for a date.
func (r *SubstitutionRepository) ListAbsencesByDate(ctx context.Context, date time.Time) ([]models.TeacherAbsence, error) {
	query := fmt.Sprintf("SELECT %s FROM teacher_absences WHERE date = $1 ORDER BY created_at ASC", absenceColumns)
	var absences []models.TeacherAbsence
	if err := r.db.SelectContext(ctx, &absences, query, date); err != nil {
		return nil, fmt.Errorf("list absences by date: %w", err)
	}
	return absences, nil
}

// FindAbsenceByTeacherAndDate returns a teacher's absence on a date.
func (r *SubstitutionRepository) FindAbsenceByTeacherAndDate(ctx context.Context, teacherID string, date time.Time) (*models.TeacherAbsence, error) {
	query := fmt.Sprintf("SELECT %s FROM teacher_absences WHERE teacher_id = $1 AND date = $2", absenceColumns)
	var absence models.TeacherAbsence
	if err := r.db.GetContext(ctx, &absence, query, teacherID, date); err != nil {
		return nil, err
	}
	return &absence, nil
}

// Create stores a substitution row.
func (r *SubstitutionRepository) Create(ctx context.Context, sub *models.Substitution) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	const query = `INSERT INTO substitutions (id, absence_id, allocation_id, date, original_teacher_id, substitute_teacher_id, score, status, note, created_at, updated_at)
		VALUES (:id, :absence_id, :allocation_id, :date, :original_teacher_id, :substitute_teacher_id, :score, :status, :note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("create substitution: %w", err)
	}
	return nil
}

// FindByID loads a substitution by id.
func (r *SubstitutionRepository) FindByID(ctx context.Context, id string) (*models.Substitution, error) {
	query := fmt.Sprintf("SELECT %s FROM substitutions WHERE id = $1", substitutionColumns)
	var sub models.Substitution
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindActiveByAllocationAndDate returns a non-cancelled substitution
// already bound to the allocation on the date, guarding against double
// assignment.
func (r *SubstitutionRepository) FindActiveByAllocationAndDate(ctx context.Context, allocationID string, date time.Time) (*models.Substitution, error) {
	query := fmt.Sprintf("SELECT %s FROM substitutions WHERE allocation_id = $1 AND date = $2 AND status IN ('PENDING', 'ASSIGNED')", substitutionColumns)
	var sub models.Substitution
	if err := r.db.GetContext(ctx, &sub, query, allocationID, date); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListAssignedByDate returns substitutions a substitute is already
// holding on a date, used to keep candidates free at their slots.
func (r *SubstitutionRepository) ListAssignedByDate(ctx context.Context, date time.Time) ([]models.Substitution, error) {
	query := fmt.Sprintf("SELECT %s FROM substitutions WHERE date = $1 AND status = 'ASSIGNED'", substitutionColumns)
	var subs []models.Substitution
	if err := r.db.SelectContext(ctx, &subs, query, date); err != nil {
		return nil, fmt.Errorf("list assigned substitutions: %w", err)
	}
	return subs, nil
}

// List returns substitutions with optional filtering and pagination.
func (r *SubstitutionRepository) List(ctx context.Context, filter models.SubstitutionFilter) ([]models.Substitution, int, error) {
	base := "FROM substitutions WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("(original_teacher_id = $%d OR substitute_teacher_id = $%d)", len(args)+1, len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"date":       true,
		"status":     true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", substitutionColumns, base, sortBy, order, size, offset)
	var subs []models.Substitution
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list substitutions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count substitutions: %w", err)
	}

	return subs, total, nil
}

// UpdateStatus advances a substitution's lifecycle state.
func (r *SubstitutionRepository) UpdateStatus(ctx context.Context, id string, status models.SubstitutionStatus) error {
	const query = `UPDATE substitutions SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update substitution status: %w", err)
	}
	return nil
}

// CountAssignedForTeacherWeek returns how many substitutions a teacher
// holds in the week containing the date, feeding the load cap check.
func (r *SubstitutionRepository) CountAssignedForTeacherWeek(ctx context.Context, teacherID string, weekStart, weekEnd time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM substitutions WHERE substitute_teacher_id = $1 AND status = 'ASSIGNED' AND date >= $2 AND date <= $3`
	var total int
	if err := r.db.GetContext(ctx, &total, query, teacherID, weekStart, weekEnd); err != nil {
		return 0, fmt.Errorf("count assigned substitutions: %w", err)
	}
	return total, nil
}
