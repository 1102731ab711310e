package service

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nav-in27/timetable-generator/internal/models"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
	ListCapabilitiesByTeacher(ctx context.Context, teacherID string) ([]models.TeacherSubject, error)
	ReplaceCapabilities(ctx context.Context, teacherID string, caps []models.TeacherSubject) error
}

type teacherSubjectLookup interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// CreateTeacherRequest represents payload for creating teachers.
type CreateTeacherRequest struct {
	Email           string  `json:"email" validate:"required,email"`
	FullName        string  `json:"full_name" validate:"required"`
	Phone           *string `json:"phone" validate:"omitempty,max=50"`
	MaxHoursPerWeek int     `json:"max_hours_per_week" validate:"required,min=1,max=60"`
	MaxConsecutive  int     `json:"max_consecutive" validate:"omitempty,min=1,max=12"`
	ExperienceScore float64 `json:"experience_score" validate:"min=0,max=1"`
	AvailableDays   string  `json:"available_days" validate:"omitempty"`
}

// UpdateTeacherRequest represents payload for updating teachers.
type UpdateTeacherRequest struct {
	Email           string  `json:"email" validate:"required,email"`
	FullName        string  `json:"full_name" validate:"required"`
	Phone           *string `json:"phone" validate:"omitempty,max=50"`
	MaxHoursPerWeek int     `json:"max_hours_per_week" validate:"required,min=1,max=60"`
	MaxConsecutive  int     `json:"max_consecutive" validate:"omitempty,min=1,max=12"`
	ExperienceScore float64 `json:"experience_score" validate:"min=0,max=1"`
	AvailableDays   string  `json:"available_days" validate:"omitempty"`
	Active          *bool   `json:"active"`
}

// CapabilityRequest is one teacher-subject capability entry.
type CapabilityRequest struct {
	SubjectID          string  `json:"subject_id" validate:"required"`
	EffectivenessScore float64 `json:"effectiveness_score" validate:"min=0,max=1"`
}

// TeacherService orchestrates teacher operations.
type TeacherService struct {
	repo      teacherRepository
	subjects  teacherSubjectLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, subjects teacherSubjectLookup, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, subjects: subjects, validator: validate, logger: logger}
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return teachers, pagination, nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a new teacher record.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	days, err := normalizeAvailableDays(req.AvailableDays)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueEmail(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	teacher := &models.Teacher{
		Email:           strings.TrimSpace(req.Email),
		FullName:        strings.TrimSpace(req.FullName),
		Phone:           normalizeOptional(req.Phone),
		MaxHoursPerWeek: req.MaxHoursPerWeek,
		MaxConsecutive:  req.MaxConsecutive,
		ExperienceScore: req.ExperienceScore,
		AvailableDays:   days,
		Active:          true,
	}
	if teacher.MaxConsecutive <= 0 {
		teacher.MaxConsecutive = 3
	}

	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	return teacher, nil
}

// Update modifies an existing teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	days, err := normalizeAvailableDays(req.AvailableDays)
	if err != nil {
		return nil, err
	}

	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	if err := s.ensureUniqueEmail(ctx, req.Email, id); err != nil {
		return nil, err
	}

	teacher.Email = strings.TrimSpace(req.Email)
	teacher.FullName = strings.TrimSpace(req.FullName)
	teacher.Phone = normalizeOptional(req.Phone)
	teacher.MaxHoursPerWeek = req.MaxHoursPerWeek
	if req.MaxConsecutive > 0 {
		teacher.MaxConsecutive = req.MaxConsecutive
	}
	teacher.ExperienceScore = req.ExperienceScore
	teacher.AvailableDays = days
	if req.Active != nil {
		teacher.Active = *req.Active
	}

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// Delete removes a teacher record.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	return nil
}

// ListCapabilities returns a teacher's subject capabilities.
func (s *TeacherService) ListCapabilities(ctx context.Context, teacherID string) ([]models.TeacherSubject, error) {
	if _, err := s.Get(ctx, teacherID); err != nil {
		return nil, err
	}
	caps, err := s.repo.ListCapabilitiesByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list capabilities")
	}
	return caps, nil
}

// ReplaceCapabilities swaps a teacher's capability set after validating
// every referenced subject.
func (s *TeacherService) ReplaceCapabilities(ctx context.Context, teacherID string, reqs []CapabilityRequest) ([]models.TeacherSubject, error) {
	if _, err := s.Get(ctx, teacherID); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(reqs))
	caps := make([]models.TeacherSubject, 0, len(reqs))
	for _, req := range reqs {
		if err := s.validator.Struct(req); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid capability payload")
		}
		if seen[req.SubjectID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate subject in capability list")
		}
		seen[req.SubjectID] = true
		if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
		}
		caps = append(caps, models.TeacherSubject{
			TeacherID:          teacherID,
			SubjectID:          req.SubjectID,
			EffectivenessScore: req.EffectivenessScore,
		})
	}

	if err := s.repo.ReplaceCapabilities(ctx, teacherID, caps); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace capabilities")
	}
	return caps, nil
}

func (s *TeacherService) ensureUniqueEmail(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, strings.TrimSpace(email), excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	return nil
}

// normalizeAvailableDays parses a comma separated weekday list and
// returns it deduplicated and sorted. Empty means every weekday.
func normalizeAvailableDays(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "0,1,2,3,4", nil
	}
	seen := make(map[int]bool)
	for _, part := range strings.Split(trimmed, ",") {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || day < 0 || day > 6 {
			return "", appErrors.Clone(appErrors.ErrValidation, "available_days must be comma separated weekday indexes")
		}
		seen[day] = true
	}
	var out []string
	for day := 0; day <= 6; day++ {
		if seen[day] {
			out = append(out, strconv.Itoa(day))
		}
	}
	return strings.Join(out, ","), nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
