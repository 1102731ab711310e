package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nav-in27/timetable-generator/internal/models"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
)

type cohortRepository interface {
	List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, int, error)
	FindByID(ctx context.Context, id string) (*models.Cohort, error)
	Create(ctx context.Context, cohort *models.Cohort) error
	Update(ctx context.Context, cohort *models.Cohort) error
	Delete(ctx context.Context, id string) error
}

// CohortRequest represents payload for creating or updating cohorts.
type CohortRequest struct {
	Name           string `json:"name" validate:"required,max=100"`
	SemesterNumber int    `json:"semester_number" validate:"required,min=1,max=12"`
	StudentCount   int    `json:"student_count" validate:"required,min=1,max=500"`
}

// CohortService orchestrates cohort operations.
type CohortService struct {
	repo      cohortRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCohortService constructs a CohortService.
func NewCohortService(repo cohortRepository, validate *validator.Validate, logger *zap.Logger) *CohortService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CohortService{repo: repo, validator: validate, logger: logger}
}

// List returns cohorts plus pagination data.
func (s *CohortService) List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, *models.Pagination, error) {
	cohorts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cohorts")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return cohorts, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a cohort by id.
func (s *CohortService) Get(ctx context.Context, id string) (*models.Cohort, error) {
	cohort, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}
	return cohort, nil
}

// Create registers a new cohort.
func (s *CohortService) Create(ctx context.Context, req CohortRequest) (*models.Cohort, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cohort payload")
	}
	cohort := &models.Cohort{
		Name:           strings.TrimSpace(req.Name),
		SemesterNumber: req.SemesterNumber,
		StudentCount:   req.StudentCount,
	}
	if err := s.repo.Create(ctx, cohort); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create cohort")
	}
	return cohort, nil
}

// Update modifies an existing cohort.
func (s *CohortService) Update(ctx context.Context, id string, req CohortRequest) (*models.Cohort, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cohort payload")
	}
	cohort, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cohort.Name = strings.TrimSpace(req.Name)
	cohort.SemesterNumber = req.SemesterNumber
	cohort.StudentCount = req.StudentCount
	if err := s.repo.Update(ctx, cohort); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update cohort")
	}
	return cohort, nil
}

// Delete removes a cohort.
func (s *CohortService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete cohort")
	}
	return nil
}
