package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nav-in27/timetable-generator/internal/models"
)

const runColumns = "id, status, seed, warnings, allocations, free_slots, generated_at"

// GenerationRunRepository records generation runs for audit.
type GenerationRunRepository struct {
	db *sqlx.DB
}

// NewGenerationRunRepository creates a new generation run repository.
func NewGenerationRunRepository(db *sqlx.DB) *GenerationRunRepository {
	return &GenerationRunRepository{db: db}
}

// CreateWithTx stores a run record inside the caller's transaction so
// the audit row commits together with its allocation set.
func (r *GenerationRunRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, run *models.GenerationRun) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.GeneratedAt.IsZero() {
		run.GeneratedAt = time.Now().UTC()
	}

	const query = `INSERT INTO generation_runs (id, status, seed, warnings, allocations, free_slots, generated_at)
		VALUES (:id, :status, :seed, :warnings, :allocations, :free_slots, :generated_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, run); err != nil {
		return fmt.Errorf("create generation run: %w", err)
	}
	return nil
}

// ListRecent returns the latest runs, newest first.
func (r *GenerationRunRepository) ListRecent(ctx context.Context, limit int) ([]models.GenerationRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf("SELECT %s FROM generation_runs ORDER BY generated_at DESC LIMIT %d", runColumns, limit)
	var runs []models.GenerationRun
	if err := r.db.SelectContext(ctx, &runs, query); err != nil {
		return nil, fmt.Errorf("list generation runs: %w", err)
	}
	return runs, nil
}
