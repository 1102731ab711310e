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

const allocationColumns = "id, cohort_id, subject_id, teacher_id, room_id, day, period, component, is_lab_continuation, is_elective, is_fixed, is_free, created_at"

// AllocationRepository provides persistence for generated allocations.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository creates a new allocation repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// List returns allocations with optional filtering and pagination.
func (r *AllocationRepository) List(ctx context.Context, filter models.AllocationFilter) ([]models.Allocation, int, error) {
	base := "FROM allocations WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.CohortID != "" {
		conditions = append(conditions, fmt.Sprintf("cohort_id = $%d", len(args)+1))
		args = append(args, filter.CohortID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Day != nil {
		conditions = append(conditions, fmt.Sprintf("day = $%d", len(args)+1))
		args = append(args, *filter.Day)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"day":        true,
		"period":     true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "day"
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
	if size <= 0 || size > 500 {
		size = 100
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, period ASC LIMIT %d OFFSET %d", allocationColumns, base, sortBy, order, size, offset)
	var allocations []models.Allocation
	if err := r.db.SelectContext(ctx, &allocations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list allocations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count allocations: %w", err)
	}

	return allocations, total, nil
}

// FindByID loads an allocation by id.
func (r *AllocationRepository) FindByID(ctx context.Context, id string) (*models.Allocation, error) {
	query := fmt.Sprintf("SELECT %s FROM allocations WHERE id = $1", allocationColumns)
	var allocation models.Allocation
	if err := r.db.GetContext(ctx, &allocation, query, id); err != nil {
		return nil, err
	}
	return &allocation, nil
}

// ListByCohort returns a cohort's full weekly grid ordered by cell.
func (r *AllocationRepository) ListByCohort(ctx context.Context, cohortID string) ([]models.Allocation, error) {
	query := fmt.Sprintf("SELECT %s FROM allocations WHERE cohort_id = $1 ORDER BY day ASC, period ASC", allocationColumns)
	var allocations []models.Allocation
	if err := r.db.SelectContext(ctx, &allocations, query, cohortID); err != nil {
		return nil, fmt.Errorf("list allocations by cohort: %w", err)
	}
	return allocations, nil
}

// ListByTeacher returns every session taught by a teacher.
func (r *AllocationRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Allocation, error) {
	query := fmt.Sprintf("SELECT %s FROM allocations WHERE teacher_id = $1 ORDER BY day ASC, period ASC", allocationColumns)
	var allocations []models.Allocation
	if err := r.db.SelectContext(ctx, &allocations, query, teacherID); err != nil {
		return nil, fmt.Errorf("list allocations by teacher: %w", err)
	}
	return allocations, nil
}

// ListByTeacherAndDay returns a teacher's sessions on one weekday.
func (r *AllocationRepository) ListByTeacherAndDay(ctx context.Context, teacherID string, day int) ([]models.Allocation, error) {
	query := fmt.Sprintf("SELECT %s FROM allocations WHERE teacher_id = $1 AND day = $2 ORDER BY period ASC", allocationColumns)
	var allocations []models.Allocation
	if err := r.db.SelectContext(ctx, &allocations, query, teacherID, day); err != nil {
		return nil, fmt.Errorf("list allocations by teacher and day: %w", err)
	}
	return allocations, nil
}

// ListByRoom returns a room's occupancy ordered by cell.
func (r *AllocationRepository) ListByRoom(ctx context.Context, roomID string) ([]models.Allocation, error) {
	query := fmt.Sprintf("SELECT %s FROM allocations WHERE room_id = $1 ORDER BY day ASC, period ASC", allocationColumns)
	var allocations []models.Allocation
	if err := r.db.SelectContext(ctx, &allocations, query, roomID); err != nil {
		return nil, fmt.Errorf("list allocations by room: %w", err)
	}
	return allocations, nil
}

// ListAtSlot returns every allocation at one (day, period) cell.
func (r *AllocationRepository) ListAtSlot(ctx context.Context, day, period int) ([]models.Allocation, error) {
	query := fmt.Sprintf("SELECT %s FROM allocations WHERE day = $1 AND period = $2", allocationColumns)
	var allocations []models.Allocation
	if err := r.db.SelectContext(ctx, &allocations, query, day, period); err != nil {
		return nil, fmt.Errorf("list allocations at slot: %w", err)
	}
	return allocations, nil
}

// CountByTeacher returns the weekly session count per teacher across
// all stored allocations.
func (r *AllocationRepository) CountByTeacher(ctx context.Context) (map[string]int, error) {
	type loadRow struct {
		TeacherID string `db:"teacher_id"`
		Sessions  int    `db:"sessions"`
	}
	const query = `SELECT teacher_id, COUNT(*) AS sessions FROM allocations WHERE teacher_id IS NOT NULL GROUP BY teacher_id`
	var rows []loadRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count allocations by teacher: %w", err)
	}
	loads := make(map[string]int, len(rows))
	for _, row := range rows {
		loads[row.TeacherID] = row.Sessions
	}
	return loads, nil
}

// DeleteAll wipes the stored timetable.
func (r *AllocationRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM allocations"); err != nil {
		return fmt.Errorf("clear allocations: %w", err)
	}
	return nil
}

// DeleteByCohortsWithTx removes the targeted cohorts' allocation sets
// inside the caller's transaction, used by full-replace generation.
func (r *AllocationRepository) DeleteByCohortsWithTx(ctx context.Context, tx *sqlx.Tx, cohortIDs []string) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if len(cohortIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM allocations WHERE cohort_id IN (?)", cohortIDs)
	if err != nil {
		return fmt.Errorf("build allocation delete: %w", err)
	}
	query = tx.Rebind(query)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete allocations for cohorts: %w", err)
	}
	return nil
}

// BulkCreateWithTx inserts allocations using an existing transaction so
// partial schedules are never visible.
func (r *AllocationRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, allocations []models.Allocation) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	const query = `INSERT INTO allocations (id, cohort_id, subject_id, teacher_id, room_id, day, period, component, is_lab_continuation, is_elective, is_fixed, is_free, created_at)
		VALUES (:id, :cohort_id, :subject_id, :teacher_id, :room_id, :day, :period, :component, :is_lab_continuation, :is_elective, :is_fixed, :is_free, :created_at)`
	for i := range allocations {
		payload := allocations[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, tx, query, &payload); err != nil {
			return fmt.Errorf("bulk insert allocation: %w", err)
		}
		allocations[i] = payload
	}
	return nil
}
