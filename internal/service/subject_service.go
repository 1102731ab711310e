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

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

type subjectBasketLookup interface {
	FindByID(ctx context.Context, id string) (*models.ElectiveBasket, error)
}

// CreateSubjectRequest represents payload for creating subjects.
type CreateSubjectRequest struct {
	Code           string  `json:"code" validate:"required,max=20"`
	Name           string  `json:"name" validate:"required"`
	SemesterNumber int     `json:"semester_number" validate:"required,min=1,max=12"`
	TheoryHours    int     `json:"theory_hours" validate:"min=0,max=20"`
	LabHours       int     `json:"lab_hours" validate:"min=0,max=20"`
	TutorialHours  int     `json:"tutorial_hours" validate:"min=0,max=20"`
	IsElective     bool    `json:"is_elective"`
	BasketID       *string `json:"basket_id"`
}

// UpdateSubjectRequest represents payload for updating subjects.
type UpdateSubjectRequest CreateSubjectRequest

// SubjectService orchestrates subject operations.
type SubjectService struct {
	repo      subjectRepository
	baskets   subjectBasketLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(repo subjectRepository, baskets subjectBasketLookup, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, baskets: baskets, validator: validate, logger: logger}
}

// List returns subjects plus pagination data.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return subjects, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a subject by id.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create registers a new subject.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	subject, err := s.buildSubject(ctx, req, "")
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// Update modifies an existing subject.
func (s *SubjectService) Update(ctx context.Context, id string, req UpdateSubjectRequest) (*models.Subject, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	subject, err := s.buildSubject(ctx, CreateSubjectRequest(req), id)
	if err != nil {
		return nil, err
	}
	subject.ID = existing.ID
	subject.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}

func (s *SubjectService) buildSubject(ctx context.Context, req CreateSubjectRequest, excludeID string) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	if req.TheoryHours+req.LabHours+req.TutorialHours == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject needs at least one weekly hour")
	}
	if req.LabHours%2 != 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lab hours must be even, labs run as two period blocks")
	}
	if req.BasketID != nil && !req.IsElective {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only elective subjects can join a basket")
	}

	exists, err := s.repo.ExistsByCode(ctx, strings.TrimSpace(req.Code), excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already used")
	}

	if req.BasketID != nil {
		basket, err := s.baskets.FindByID(ctx, *req.BasketID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "elective basket not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load elective basket")
		}
		if basket.SemesterNumber != req.SemesterNumber {
			return nil, appErrors.Clone(appErrors.ErrValidation, "subject semester must match basket semester")
		}
	}

	return &models.Subject{
		Code:           strings.TrimSpace(req.Code),
		Name:           strings.TrimSpace(req.Name),
		SemesterNumber: req.SemesterNumber,
		TheoryHours:    req.TheoryHours,
		LabHours:       req.LabHours,
		TutorialHours:  req.TutorialHours,
		IsElective:     req.IsElective,
		BasketID:       req.BasketID,
	}, nil
}
