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

const basketColumns = "id, name, semester_number, created_at, updated_at"

// ElectiveBasketRepository provides persistence for elective baskets.
type ElectiveBasketRepository struct {
	db *sqlx.DB
}

// NewElectiveBasketRepository creates a new elective basket repository.
func NewElectiveBasketRepository(db *sqlx.DB) *ElectiveBasketRepository {
	return &ElectiveBasketRepository{db: db}
}

// List returns baskets with optional filtering and pagination.
func (r *ElectiveBasketRepository) List(ctx context.Context, filter models.ElectiveBasketFilter) ([]models.ElectiveBasket, int, error) {
	base := "FROM elective_baskets WHERE 1=1"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", basketColumns, base, sortBy, order, size, offset)
	var baskets []models.ElectiveBasket
	if err := r.db.SelectContext(ctx, &baskets, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list elective baskets: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count elective baskets: %w", err)
	}

	return baskets, total, nil
}

// ListAll returns every basket ordered by semester and name.
func (r *ElectiveBasketRepository) ListAll(ctx context.Context) ([]models.ElectiveBasket, error) {
	query := fmt.Sprintf("SELECT %s FROM elective_baskets ORDER BY semester_number ASC, name ASC", basketColumns)
	var baskets []models.ElectiveBasket
	if err := r.db.SelectContext(ctx, &baskets, query); err != nil {
		return nil, fmt.Errorf("list all elective baskets: %w", err)
	}
	return baskets, nil
}

// FindByID loads a basket by id.
func (r *ElectiveBasketRepository) FindByID(ctx context.Context, id string) (*models.ElectiveBasket, error) {
	query := fmt.Sprintf("SELECT %s FROM elective_baskets WHERE id = $1", basketColumns)
	var basket models.ElectiveBasket
	if err := r.db.GetContext(ctx, &basket, query, id); err != nil {
		return nil, err
	}
	return &basket, nil
}

// Create stores a new basket record.
func (r *ElectiveBasketRepository) Create(ctx context.Context, basket *models.ElectiveBasket) error {
	if basket.ID == "" {
		basket.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	basket.CreatedAt = now
	basket.UpdatedAt = now

	const query = `INSERT INTO elective_baskets (id, name, semester_number, created_at, updated_at)
		VALUES (:id, :name, :semester_number, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, basket); err != nil {
		return fmt.Errorf("create elective basket: %w", err)
	}
	return nil
}

// Update modifies a basket record.
func (r *ElectiveBasketRepository) Update(ctx context.Context, basket *models.ElectiveBasket) error {
	basket.UpdatedAt = time.Now().UTC()
	const query = `UPDATE elective_baskets SET name = :name, semester_number = :semester_number, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, basket); err != nil {
		return fmt.Errorf("update elective basket: %w", err)
	}
	return nil
}

// Delete removes a basket by id after detaching member subjects.
func (r *ElectiveBasketRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete elective basket: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE subjects SET basket_id = NULL WHERE basket_id = $1`, id); err != nil {
		return fmt.Errorf("detach basket subjects: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM elective_baskets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete elective basket: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete elective basket: %w", err)
	}
	return nil
}
