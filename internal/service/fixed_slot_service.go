package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nav-in27/timetable-generator/internal/engine"
	"github.com/nav-in27/timetable-generator/internal/models"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
)

type fixedSlotRepository interface {
	List(ctx context.Context, filter models.FixedSlotFilter) ([]models.FixedSlot, int, error)
	ListAll(ctx context.Context) ([]models.FixedSlot, error)
	FindByID(ctx context.Context, id string) (*models.FixedSlot, error)
	Create(ctx context.Context, slot *models.FixedSlot) error
	Delete(ctx context.Context, id string) error
}

type fixedSlotSnapshotLoader interface {
	loadSnapshot(ctx context.Context, targets []models.Cohort) (*engine.Snapshot, error)
	resolveCohorts(ctx context.Context, ids []string) ([]models.Cohort, error)
}

// FixedSlotRequest pins a subject to one cell of a cohort's grid.
type FixedSlotRequest struct {
	CohortID  string  `json:"cohort_id" validate:"required"`
	SubjectID string  `json:"subject_id" validate:"required"`
	TeacherID *string `json:"teacher_id"`
	RoomID    *string `json:"room_id"`
	Component string  `json:"component" validate:"required,oneof=theory lab tutorial"`
	Day       int     `json:"day" validate:"min=0,max=6"`
	Period    int     `json:"period" validate:"min=0,max=11"`
}

// FixedSlotService manages manual slot locks. Every write goes through
// the engine's lock check first so stored locks are always satisfiable.
type FixedSlotService struct {
	repo      fixedSlotRepository
	snapshots fixedSlotSnapshotLoader
	engine    *engine.Engine
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFixedSlotService wires fixed slot dependencies. The generation
// service doubles as the snapshot loader so both see identical data.
func NewFixedSlotService(repo fixedSlotRepository, snapshots *GenerationService, engineCfg engine.Config, validate *validator.Validate, logger *zap.Logger) *FixedSlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FixedSlotService{
		repo:      repo,
		snapshots: snapshots,
		engine:    engine.New(engineCfg, logger),
		validator: validate,
		logger:    logger,
	}
}

// List returns fixed slots plus pagination data.
func (s *FixedSlotService) List(ctx context.Context, filter models.FixedSlotFilter) ([]models.FixedSlot, *models.Pagination, error) {
	slots, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fixed slots")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return slots, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a fixed slot by id.
func (s *FixedSlotService) Get(ctx context.Context, id string) (*models.FixedSlot, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fixed slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fixed slot")
	}
	return slot, nil
}

// Validate dry-runs a lock without persisting it.
func (s *FixedSlotService) Validate(ctx context.Context, req FixedSlotRequest) (*engine.LockCheck, error) {
	_, check, err := s.check(ctx, req)
	if err != nil {
		return nil, err
	}
	return check, nil
}

// Create persists a lock after it passes the engine check.
func (s *FixedSlotService) Create(ctx context.Context, req FixedSlotRequest) (*models.FixedSlot, *engine.LockCheck, error) {
	slot, check, err := s.check(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if !check.IsValid {
		return nil, check, appErrors.Clone(appErrors.ErrSlotLocked, strings.Join(check.Errors, "; "))
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store fixed slot")
	}
	if len(check.Warnings) > 0 {
		s.logger.Warn("fixed slot stored with warnings",
			zap.String("cohort_id", slot.CohortID),
			zap.Strings("warnings", check.Warnings))
	}
	return slot, check, nil
}

// Delete removes a lock.
func (s *FixedSlotService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete fixed slot")
	}
	return nil
}

func (s *FixedSlotService) check(ctx context.Context, req FixedSlotRequest) (*models.FixedSlot, *engine.LockCheck, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fixed slot payload")
	}

	cohorts, err := s.snapshots.resolveCohorts(ctx, []string{req.CohortID})
	if err != nil {
		return nil, nil, err
	}
	snap, err := s.snapshots.loadSnapshot(ctx, cohorts)
	if err != nil {
		return nil, nil, err
	}

	slot := &models.FixedSlot{
		CohortID:  req.CohortID,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
		RoomID:    req.RoomID,
		Component: models.Component(req.Component),
		Day:       req.Day,
		Period:    req.Period,
	}
	check := s.engine.ValidateLock(*snap, *slot)
	return slot, &check, nil
}
