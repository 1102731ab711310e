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

const teacherColumns = "id, email, full_name, phone, max_hours_per_week, max_consecutive, experience_score, available_days, active, created_at, updated_at"

// TeacherRepository provides persistence for teachers and their
// subject capabilities.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new teacher repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers with optional filtering and pagination.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("id IN (SELECT teacher_id FROM teacher_subjects WHERE subject_id = $%d)", len(args)+1))
		args = append(args, filter.SubjectID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"full_name":          true,
		"email":              true,
		"experience_score":   true,
		"max_hours_per_week": true,
		"created_at":         true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "full_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", teacherColumns, base, sortBy, order, size, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}

	return teachers, total, nil
}

// ListActive returns every active teacher.
func (r *TeacherRepository) ListActive(ctx context.Context) ([]models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE active = TRUE ORDER BY full_name ASC", teacherColumns)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list active teachers: %w", err)
	}
	return teachers, nil
}

// ExistsByEmail reports whether another teacher already uses the email.
func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM teachers WHERE LOWER(email) = LOWER($1) AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email, excludeID); err != nil {
		return false, fmt.Errorf("check teacher email: %w", err)
	}
	return exists, nil
}

// FindByID loads a teacher by id.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE id = $1", teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Create stores a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, email, full_name, phone, max_hours_per_week, max_consecutive, experience_score, available_days, active, created_at, updated_at)
		VALUES (:id, :email, :full_name, :phone, :max_hours_per_week, :max_consecutive, :experience_score, :available_days, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies a teacher record.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET email = :email, full_name = :full_name, phone = :phone, max_hours_per_week = :max_hours_per_week, max_consecutive = :max_consecutive, experience_score = :experience_score, available_days = :available_days, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// Delete removes a teacher by id.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return nil
}

// ListCapabilities returns every teacher-subject capability row.
func (r *TeacherRepository) ListCapabilities(ctx context.Context) ([]models.TeacherSubject, error) {
	const query = `SELECT id, teacher_id, subject_id, effectiveness_score, created_at FROM teacher_subjects ORDER BY teacher_id ASC, subject_id ASC`
	var caps []models.TeacherSubject
	if err := r.db.SelectContext(ctx, &caps, query); err != nil {
		return nil, fmt.Errorf("list capabilities: %w", err)
	}
	return caps, nil
}

// ListCapabilitiesByTeacher returns one teacher's capability rows.
func (r *TeacherRepository) ListCapabilitiesByTeacher(ctx context.Context, teacherID string) ([]models.TeacherSubject, error) {
	const query = `SELECT id, teacher_id, subject_id, effectiveness_score, created_at FROM teacher_subjects WHERE teacher_id = $1 ORDER BY subject_id ASC`
	var caps []models.TeacherSubject
	if err := r.db.SelectContext(ctx, &caps, query, teacherID); err != nil {
		return nil, fmt.Errorf("list capabilities by teacher: %w", err)
	}
	return caps, nil
}

// ReplaceCapabilities swaps a teacher's capability set atomically.
func (r *TeacherRepository) ReplaceCapabilities(ctx context.Context, teacherID string, caps []models.TeacherSubject) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace capabilities: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM teacher_subjects WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("clear capabilities: %w", err)
	}
	now := time.Now().UTC()
	for i := range caps {
		payload := caps[i]
		payload.TeacherID = teacherID
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO teacher_subjects (id, teacher_id, subject_id, effectiveness_score, created_at) VALUES (:id, :teacher_id, :subject_id, :effectiveness_score, :created_at)`, &payload); err != nil {
			return fmt.Errorf("insert capability: %w", err)
		}
		caps[i] = payload
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace capabilities: %w", err)
	}
	return nil
}
