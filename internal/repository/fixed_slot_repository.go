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

const fixedSlotColumns = "id, cohort_id, subject_id, teacher_id, room_id, component, day, period, created_at"

// FixedSlotRepository provides persistence for manual slot locks.
type FixedSlotRepository struct {
	db *sqlx.DB
}

// NewFixedSlotRepository creates a new fixed slot repository.
func NewFixedSlotRepository(db *sqlx.DB) *FixedSlotRepository {
	return &FixedSlotRepository{db: db}
}

// List returns fixed slots with optional filtering and pagination.
func (r *FixedSlotRepository) List(ctx context.Context, filter models.FixedSlotFilter) ([]models.FixedSlot, int, error) {
	base := "FROM fixed_slots WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.CohortID != "" {
		conditions = append(conditions, fmt.Sprintf("cohort_id = $%d", len(args)+1))
		args = append(args, filter.CohortID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
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
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, period ASC LIMIT %d OFFSET %d", fixedSlotColumns, base, sortBy, order, size, offset)
	var slots []models.FixedSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fixed slots: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count fixed slots: %w", err)
	}

	return slots, total, nil
}

// ListAll returns every fixed slot ordered by grid position.
func (r *FixedSlotRepository) ListAll(ctx context.Context) ([]models.FixedSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM fixed_slots ORDER BY day ASC, period ASC", fixedSlotColumns)
	var slots []models.FixedSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list all fixed slots: %w", err)
	}
	return slots, nil
}

// FindByID loads a fixed slot by id.
func (r *FixedSlotRepository) FindByID(ctx context.Context, id string) (*models.FixedSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM fixed_slots WHERE id = $1", fixedSlotColumns)
	var slot models.FixedSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// Create stores a new fixed slot.
func (r *FixedSlotRepository) Create(ctx context.Context, slot *models.FixedSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO fixed_slots (id, cohort_id, subject_id, teacher_id, room_id, component, day, period, created_at)
		VALUES (:id, :cohort_id, :subject_id, :teacher_id, :room_id, :component, :day, :period, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create fixed slot: %w", err)
	}
	return nil
}

// Delete removes a fixed slot by id.
func (r *FixedSlotRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM fixed_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete fixed slot: %w", err)
	}
	return nil
}
