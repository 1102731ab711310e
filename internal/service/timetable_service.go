package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nav-in27/timetable-generator/internal/models"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
)

type timetableAllocationSource interface {
	List(ctx context.Context, filter models.AllocationFilter) ([]models.Allocation, int, error)
	ListByCohort(ctx context.Context, cohortID string) ([]models.Allocation, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Allocation, error)
	ListByRoom(ctx context.Context, roomID string) ([]models.Allocation, error)
	DeleteAll(ctx context.Context) error
}

type timetableNameSource interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

type timetableTeacherNames interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type timetableRoomNames interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

type timetableOverlaySource interface {
	ListAssignedByDate(ctx context.Context, date time.Time) ([]models.Substitution, error)
}

// TimetableEntry is one enriched grid cell of a view.
type TimetableEntry struct {
	AllocationID        string  `json:"allocation_id"`
	CohortID            string  `json:"cohort_id"`
	Day                 int     `json:"day"`
	Period              int     `json:"period"`
	SubjectID           *string `json:"subject_id,omitempty"`
	SubjectCode         string  `json:"subject_code,omitempty"`
	SubjectName         string  `json:"subject_name,omitempty"`
	TeacherID           *string `json:"teacher_id,omitempty"`
	TeacherName         string  `json:"teacher_name,omitempty"`
	RoomID              *string `json:"room_id,omitempty"`
	RoomName            string  `json:"room_name,omitempty"`
	Component           string  `json:"component,omitempty"`
	IsLabContinuation   bool    `json:"is_lab_continuation"`
	IsElective          bool    `json:"is_elective"`
	IsFixed             bool    `json:"is_fixed"`
	IsFree              bool    `json:"is_free"`
	SubstituteTeacherID *string `json:"substitute_teacher_id,omitempty"`
	SubstituteName      string  `json:"substitute_name,omitempty"`
}

// TimetableView is a complete weekly grid for one cohort, teacher or room.
type TimetableView struct {
	OwnerType string           `json:"owner_type"`
	OwnerID   string           `json:"owner_id"`
	Date      string           `json:"date,omitempty"`
	Entries   []TimetableEntry `json:"entries"`
}

// TimetableService assembles enriched weekly views over stored
// allocations. Views are cached; an optional date applies that day's
// assigned substitutions as an overlay and bypasses the cache.
type TimetableService struct {
	allocations timetableAllocationSource
	subjects    timetableNameSource
	teachers    timetableTeacherNames
	rooms       timetableRoomNames
	overlays    timetableOverlaySource
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewTimetableService wires timetable view dependencies.
func NewTimetableService(
	allocations timetableAllocationSource,
	subjects timetableNameSource,
	teachers timetableTeacherNames,
	rooms timetableRoomNames,
	overlays timetableOverlaySource,
	cache *CacheService,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *TimetableService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		allocations: allocations,
		subjects:    subjects,
		teachers:    teachers,
		rooms:       rooms,
		overlays:    overlays,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// Allocations returns raw stored allocations plus pagination data.
func (s *TimetableService) Allocations(ctx context.Context, filter models.AllocationFilter) ([]models.Allocation, *models.Pagination, error) {
	allocations, total, err := s.allocations.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return allocations, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Clear drops every stored allocation and invalidates cached views.
func (s *TimetableService) Clear(ctx context.Context) error {
	if err := s.allocations.DeleteAll(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear allocations")
	}
	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, "timetable:*")
	}
	s.logger.Info("timetable cleared")
	return nil
}

// CohortView returns a cohort's weekly grid.
func (s *TimetableService) CohortView(ctx context.Context, cohortID, date string) (*TimetableView, error) {
	return s.view(ctx, "cohort", cohortID, date, s.allocations.ListByCohort)
}

// TeacherView returns every session a teacher delivers.
func (s *TimetableService) TeacherView(ctx context.Context, teacherID, date string) (*TimetableView, error) {
	return s.view(ctx, "teacher", teacherID, date, s.allocations.ListByTeacher)
}

// RoomView returns a room's weekly occupancy.
func (s *TimetableService) RoomView(ctx context.Context, roomID, date string) (*TimetableView, error) {
	return s.view(ctx, "room", roomID, date, s.allocations.ListByRoom)
}

func (s *TimetableService) view(ctx context.Context, ownerType, ownerID, date string, load func(context.Context, string) ([]models.Allocation, error)) (*TimetableView, error) {
	cacheKey := fmt.Sprintf("timetable:%s:%s", ownerType, ownerID)
	if date == "" && s.cache.Enabled() {
		var cached TimetableView
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	allocations, err := load(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	entries, err := s.enrich(ctx, allocations)
	if err != nil {
		return nil, err
	}

	view := &TimetableView{OwnerType: ownerType, OwnerID: ownerID, Entries: entries}
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
		}
		view.Date = date
		if err := s.applyOverlay(ctx, view, parsed); err != nil {
			return nil, err
		}
		return view, nil
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, view, s.cacheTTL)
	}
	return view, nil
}

func (s *TimetableService) enrich(ctx context.Context, allocations []models.Allocation) ([]TimetableEntry, error) {
	subjects, err := s.subjects.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}

	subjectsByID := make(map[string]models.Subject, len(subjects))
	for _, sub := range subjects {
		subjectsByID[sub.ID] = sub
	}
	teacherNames := make(map[string]string, len(teachers))
	for _, t := range teachers {
		teacherNames[t.ID] = t.FullName
	}
	roomNames := make(map[string]string, len(rooms))
	for _, r := range rooms {
		roomNames[r.ID] = r.Name
	}

	entries := make([]TimetableEntry, 0, len(allocations))
	for _, a := range allocations {
		entry := TimetableEntry{
			AllocationID:      a.ID,
			CohortID:          a.CohortID,
			Day:               a.Day,
			Period:            a.Period,
			SubjectID:         a.SubjectID,
			TeacherID:         a.TeacherID,
			RoomID:            a.RoomID,
			Component:         string(a.Component),
			IsLabContinuation: a.IsLabContinuation,
			IsElective:        a.IsElective,
			IsFixed:           a.IsFixed,
			IsFree:            a.IsFree,
		}
		if a.SubjectID != nil {
			if sub, ok := subjectsByID[*a.SubjectID]; ok {
				entry.SubjectCode = sub.Code
				entry.SubjectName = sub.Name
			}
		}
		if a.TeacherID != nil {
			entry.TeacherName = teacherNames[*a.TeacherID]
		}
		if a.RoomID != nil {
			entry.RoomName = roomNames[*a.RoomID]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// applyOverlay swaps in assigned substitutes for the date. Lab
// continuation cells inherit the substitute of their block start.
func (s *TimetableService) applyOverlay(ctx context.Context, view *TimetableView, date time.Time) error {
	assigned, err := s.overlays.ListAssignedByDate(ctx, date)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitutions")
	}
	if len(assigned) == 0 {
		return nil
	}

	byAllocation := make(map[string]models.Substitution, len(assigned))
	for _, sub := range assigned {
		byAllocation[sub.AllocationID] = sub
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	teacherNames := make(map[string]string, len(teachers))
	for _, t := range teachers {
		teacherNames[t.ID] = t.FullName
	}

	day := (int(date.Weekday()) + 6) % 7
	for i := range view.Entries {
		entry := &view.Entries[i]
		if entry.Day != day {
			continue
		}
		sub, ok := byAllocation[entry.AllocationID]
		if !ok || sub.SubstituteTeacherID == nil {
			continue
		}
		entry.SubstituteTeacherID = sub.SubstituteTeacherID
		entry.SubstituteName = teacherNames[*sub.SubstituteTeacherID]
	}

	starts := make(map[string]*TimetableEntry)
	for i := range view.Entries {
		entry := &view.Entries[i]
		if entry.Day == day && !entry.IsLabContinuation {
			starts[fmt.Sprintf("%s/%d", entry.CohortID, entry.Period)] = entry
		}
	}
	for i := range view.Entries {
		entry := &view.Entries[i]
		if entry.Day != day || !entry.IsLabContinuation || entry.SubstituteTeacherID != nil {
			continue
		}
		if start, ok := starts[fmt.Sprintf("%s/%d", entry.CohortID, entry.Period-1)]; ok && start.SubstituteTeacherID != nil {
			entry.SubstituteTeacherID = start.SubstituteTeacherID
			entry.SubstituteName = start.SubstituteName
		}
	}
	return nil
}
