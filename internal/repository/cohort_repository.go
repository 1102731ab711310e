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

const cohortColumns = "id, name, semester_number, student_count, created_at, updated_at"

// CohortRepository provides persistence for cohorts.
type CohortRepository struct {
	db *sqlx.DB
}

// NewCohortRepository creates a new cohort repository.
func NewCohortRepository(db *sqlx.DB) *CohortRepository {
	return &CohortRepository{db: db}
}

// List returns cohorts with optional filtering and pagination.
func (r *CohortRepository) List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, int, error) {
	base := "FROM cohorts WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.SemesterNumber != nil {
		conditions = append(conditions, fmt.Sprintf("semester_number = $%d", len(args)+1))
		args = append(args, *filter.SemesterNumber)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":            true,
		"semester_number": true,
		"student_count":   true,
		"created_at":      true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "name"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", cohortColumns, base, sortBy, order, size, offset)
	var cohorts []models.Cohort
	if err := r.db.SelectContext(ctx, &cohorts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cohorts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cohorts: %w", err)
	}

	return cohorts, total, nil
}

// ListAll returns every cohort ordered by name.
func (r *CohortRepository) ListAll(ctx context.Context) ([]models.Cohort, error) {
	query := fmt.Sprintf("SELECT %s FROM cohorts ORDER BY name ASC", cohortColumns)
	var cohorts []models.Cohort
	if err := r.db.SelectContext(ctx, &cohorts, query); err != nil {
		return nil, fmt.Errorf("list all cohorts: %w", err)
	}
	return cohorts, nil
}

// ListByIDs returns the cohorts matching the given ids.
func (r *CohortRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Cohort, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM cohorts WHERE id IN (?) ORDER BY name ASC", cohortColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build cohort id query: %w", err)
	}
	query = r.db.Rebind(query)
	var cohorts []models.Cohort
	if err := r.db.SelectContext(ctx, &cohorts, query, args...); err != nil {
		return nil, fmt.Errorf("list cohorts by ids: %w", err)
	}
	return cohorts, nil
}

// FindByID loads a cohort by id.
func (r *CohortRepository) FindByID(ctx context.Context, id string) (*models.Cohort, error) {
	query := fmt.Sprintf("SELECT %s FROM cohorts WHERE id = $1", cohortColumns)
	var cohort models.Cohort
	if err := r.db.GetContext(ctx, &cohort, query, id); err != nil {
		return nil, err
	}
	return &cohort, nil
}

// Create stores a new cohort record.
func (r *CohortRepository) Create(ctx context.Context, cohort *models.Cohort) error {
	if cohort.ID == "" {
		cohort.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cohort.CreatedAt = now
	cohort.UpdatedAt = now

	const query = `INSERT INTO cohorts (id, name, semester_number, student_count, created_at, updated_at)
		VALUES (:id, :name, :semester_number, :student_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cohort); err != nil {
		return fmt.Errorf("create cohort: %w", err)
	}
	return nil
}

// Update modifies a cohort record.
func (r *CohortRepository) Update(ctx context.Context, cohort *models.Cohort) error {
	cohort.UpdatedAt = time.Now().UTC()
	const query = `UPDATE cohorts SET name = :name, semester_number = :semester_number, student_count = :student_count, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, cohort); err != nil {
		return fmt.Errorf("update cohort: %w", err)
	}
	return nil
}

// Delete removes a cohort by id.
func (r *CohortRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cohorts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete cohort: %w", err)
	}
	return nil
}
