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

type electiveBasketRepository interface {
	List(ctx context.Context, filter models.ElectiveBasketFilter) ([]models.ElectiveBasket, int, error)
	FindByID(ctx context.Context, id string) (*models.ElectiveBasket, error)
	Create(ctx context.Context, basket *models.ElectiveBasket) error
	Update(ctx context.Context, basket *models.ElectiveBasket) error
	Delete(ctx context.Context, id string) error
}

type basketSubjectLister interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
}

// ElectiveBasketRequest represents payload for creating or updating baskets.
type ElectiveBasketRequest struct {
	Name           string `json:"name" validate:"required,max=100"`
	SemesterNumber int    `json:"semester_number" validate:"required,min=1,max=12"`
}

// ElectiveBasketService orchestrates elective basket operations.
type ElectiveBasketService struct {
	repo      electiveBasketRepository
	subjects  basketSubjectLister
	validator *validator.Validate
	logger    *zap.Logger
}

// NewElectiveBasketService constructs an ElectiveBasketService.
func NewElectiveBasketService(repo electiveBasketRepository, subjects basketSubjectLister, validate *validator.Validate, logger *zap.Logger) *ElectiveBasketService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ElectiveBasketService{repo: repo, subjects: subjects, validator: validate, logger: logger}
}

// List returns baskets plus pagination data.
func (s *ElectiveBasketService) List(ctx context.Context, filter models.ElectiveBasketFilter) ([]models.ElectiveBasket, *models.Pagination, error) {
	baskets, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list baskets")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return baskets, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a basket by id.
func (s *ElectiveBasketService) Get(ctx context.Context, id string) (*models.ElectiveBasket, error) {
	basket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "elective basket not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load elective basket")
	}
	return basket, nil
}

// Members returns the subjects currently attached to a basket.
func (s *ElectiveBasketService) Members(ctx context.Context, id string) ([]models.Subject, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	members, _, err := s.subjects.List(ctx, models.SubjectFilter{BasketID: id, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list basket members")
	}
	return members, nil
}

// Create registers a new basket.
func (s *ElectiveBasketService) Create(ctx context.Context, req ElectiveBasketRequest) (*models.ElectiveBasket, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid basket payload")
	}
	basket := &models.ElectiveBasket{
		Name:           strings.TrimSpace(req.Name),
		SemesterNumber: req.SemesterNumber,
	}
	if err := s.repo.Create(ctx, basket); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create basket")
	}
	return basket, nil
}

// Update modifies an existing basket. Changing the semester is rejected
// while subjects are attached, their semester would no longer match.
func (s *ElectiveBasketService) Update(ctx context.Context, id string, req ElectiveBasketRequest) (*models.ElectiveBasket, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid basket payload")
	}
	basket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if basket.SemesterNumber != req.SemesterNumber {
		members, err := s.Members(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(members) > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, "cannot change semester while subjects are attached")
		}
	}
	basket.Name = strings.TrimSpace(req.Name)
	basket.SemesterNumber = req.SemesterNumber
	if err := s.repo.Update(ctx, basket); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update basket")
	}
	return basket, nil
}

// Delete removes a basket and detaches its subjects.
func (s *ElectiveBasketService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete basket")
	}
	return nil
}
